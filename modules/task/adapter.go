package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/realtime-tasks/domain/task"
)

// TaskPort defines the interface for task operations as seen by driving
// adapters (the HTTP API).
type TaskPort interface {
	Create(ctx context.Context, title, description string) (*domain.Task, error)
	List(ctx context.Context, status string) ([]domain.Task, error)
	Get(ctx context.Context, id int64) (*domain.Task, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*domain.Task, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// TaskAdapter implements TaskPort using the service container.
type TaskAdapter struct {
	container mono.ServiceContainer
}

// NewTaskAdapter creates a new TaskAdapter.
func NewTaskAdapter(container mono.ServiceContainer) TaskPort {
	if container == nil {
		panic("task: ServiceContainer is nil")
	}
	return &TaskAdapter{container: container}
}

// toError rebuilds the typed error from a ServiceError carried across
// the request-reply boundary.
func toError(serr *ServiceError) error {
	if serr == nil {
		return nil
	}
	switch serr.Code {
	case CodeValidation:
		return &ValidationError{Message: serr.Message, Details: serr.Details}
	case CodeNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("task service error: %s", serr.Message)
	}
}

// Create validates and persists a new task.
func (a *TaskAdapter) Create(ctx context.Context, title, description string) (*domain.Task, error) {
	req := CreateTaskRequest{Title: title, Description: description}
	var resp CreateTaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceCreate,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	if resp.Err != nil {
		return nil, toError(resp.Err)
	}
	return resp.Task, nil
}

// List returns tasks ordered newest first, optionally filtered by status.
func (a *TaskAdapter) List(ctx context.Context, status string) ([]domain.Task, error) {
	req := ListTasksRequest{Status: status}
	var resp ListTasksResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceList,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if resp.Err != nil {
		return nil, toError(resp.Err)
	}
	return resp.Tasks, nil
}

// Get retrieves a single task by id.
func (a *TaskAdapter) Get(ctx context.Context, id int64) (*domain.Task, error) {
	req := GetTaskRequest{ID: id}
	var resp GetTaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGet,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if resp.Err != nil {
		return nil, toError(resp.Err)
	}
	return resp.Task, nil
}

// UpdateStatus changes a task's status and returns the updated record.
func (a *TaskAdapter) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Task, error) {
	req := UpdateTaskStatusRequest{ID: id, Status: status}
	var resp UpdateTaskStatusResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceUpdateStatus,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	if resp.Err != nil {
		return nil, toError(resp.Err)
	}
	return resp.Task, nil
}

// Delete permanently removes a task and returns its id.
func (a *TaskAdapter) Delete(ctx context.Context, id int64) (int64, error) {
	req := DeleteTaskRequest{ID: id}
	var resp DeleteTaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceDelete,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return 0, fmt.Errorf("failed to delete task: %w", err)
	}
	if resp.Err != nil {
		return 0, toError(resp.Err)
	}
	return resp.ID, nil
}
