package task

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/go-monolith/mono"

	domain "github.com/example/realtime-tasks/domain/task"
	"github.com/example/realtime-tasks/events"
)

// createTask handles the task.create service request. The status is
// forced to "pending" regardless of input.
func (m *TaskModule) createTask(_ context.Context, req CreateTaskRequest, _ *mono.Msg) (CreateTaskResponse, error) {
	title := strings.TrimSpace(req.Title)
	if details := validateTitle(title); len(details) > 0 {
		return CreateTaskResponse{Err: validationError("Validation failed", details...)}, nil
	}

	task := &domain.Task{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.StatusPending,
	}

	if err := m.repo.Create(task); err != nil {
		return CreateTaskResponse{}, err
	}

	m.publishCreated(*task)
	return CreateTaskResponse{Task: task}, nil
}

// listTasks handles the task.list service request.
func (m *TaskModule) listTasks(_ context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	status := domain.Status(req.Status)
	if req.Status != "" && !domain.ValidStatus(status) {
		return ListTasksResponse{Err: validationError("Invalid status", statusDetail)}, nil
	}

	tasks, err := m.repo.FindAll(status)
	if err != nil {
		return ListTasksResponse{}, err
	}

	if tasks == nil {
		tasks = []domain.Task{}
	}
	return ListTasksResponse{Tasks: tasks, Total: len(tasks)}, nil
}

// getTask handles the task.get service request.
func (m *TaskModule) getTask(_ context.Context, req GetTaskRequest, _ *mono.Msg) (GetTaskResponse, error) {
	task, err := m.repo.FindByID(req.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return GetTaskResponse{Err: notFoundError()}, nil
		}
		return GetTaskResponse{}, err
	}
	return GetTaskResponse{Task: task}, nil
}

// updateTaskStatus handles the task.update_status service request.
func (m *TaskModule) updateTaskStatus(_ context.Context, req UpdateTaskStatusRequest, _ *mono.Msg) (UpdateTaskStatusResponse, error) {
	if req.Status == "" {
		return UpdateTaskStatusResponse{Err: validationError("Validation failed", "Status is required")}, nil
	}
	status := domain.Status(req.Status)
	if !domain.ValidStatus(status) {
		return UpdateTaskStatusResponse{Err: validationError("Invalid status", statusDetail)}, nil
	}

	task, err := m.repo.UpdateStatus(req.ID, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return UpdateTaskStatusResponse{Err: notFoundError()}, nil
		}
		return UpdateTaskStatusResponse{}, err
	}

	m.publishUpdated(*task)
	return UpdateTaskStatusResponse{Task: task}, nil
}

// deleteTask handles the task.delete service request.
func (m *TaskModule) deleteTask(_ context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	if err := m.repo.Delete(req.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return DeleteTaskResponse{ID: req.ID, Err: notFoundError()}, nil
		}
		return DeleteTaskResponse{ID: req.ID}, err
	}

	m.publishDeleted(req.ID)
	return DeleteTaskResponse{ID: req.ID, Deleted: true}, nil
}

// Event publication. Fired after the data change commits and before the
// service reply reaches its caller. Delivery is best-effort: a failed
// publish never fails the mutation.

func (m *TaskModule) publishCreated(task domain.Task) {
	if m.eventBus == nil {
		return
	}
	if err := events.TaskCreatedV1.Publish(m.eventBus, events.TaskCreatedEvent{Task: task}, nil); err != nil {
		log.Printf("[task] Failed to publish TaskCreated event: %v", err)
	}
}

func (m *TaskModule) publishUpdated(task domain.Task) {
	if m.eventBus == nil {
		return
	}
	if err := events.TaskUpdatedV1.Publish(m.eventBus, events.TaskUpdatedEvent{Task: task}, nil); err != nil {
		log.Printf("[task] Failed to publish TaskUpdated event: %v", err)
	}
}

func (m *TaskModule) publishDeleted(id int64) {
	if m.eventBus == nil {
		return
	}
	if err := events.TaskDeletedV1.Publish(m.eventBus, events.TaskDeletedEvent{ID: id}, nil); err != nil {
		log.Printf("[task] Failed to publish TaskDeleted event: %v", err)
	}
}
