package task

import (
	"errors"
	"strings"

	domain "github.com/example/realtime-tasks/domain/task"
)

// MaxTitleLength matches the tasks.title column size.
const MaxTitleLength = 255

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("task not found")

// ValidationError is returned when a mutation request is malformed.
type ValidationError struct {
	Message string
	Details []string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}

// Service error codes carried across the request-reply boundary.
const (
	CodeValidation = "validation_error"
	CodeNotFound   = "not_found"
)

// ServiceError is the serializable failure attached to service responses,
// so callers on the other side of the service container can rebuild the
// typed error.
type ServiceError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func validationError(message string, details ...string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, Details: details}
}

func notFoundError() *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: "Task not found"}
}

// validateTitle checks an already-trimmed title and returns the list of
// validation failures, empty when the title is acceptable.
func validateTitle(title string) []string {
	var details []string
	if title == "" {
		details = append(details, "Title is required")
	}
	if len(title) > MaxTitleLength {
		details = append(details, "Title must be less than 255 characters")
	}
	return details
}

// statusDetail is the detail line used for every status validation failure.
const statusDetail = "Status must be one of: pending, in-progress, completed"

// CreateTaskRequest is the request for creating a task.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateTaskResponse is the response after creating a task.
type CreateTaskResponse struct {
	Task *domain.Task  `json:"task,omitempty"`
	Err  *ServiceError `json:"error,omitempty"`
}

// ListTasksRequest is the request for listing tasks. Status is optional;
// when empty all tasks are returned.
type ListTasksRequest struct {
	Status string `json:"status,omitempty"`
}

// ListTasksResponse is the response containing tasks ordered newest first.
type ListTasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
	Total int           `json:"total"`
	Err   *ServiceError `json:"error,omitempty"`
}

// GetTaskRequest is the request for fetching a single task.
type GetTaskRequest struct {
	ID int64 `json:"id"`
}

// GetTaskResponse is the response for a single task lookup.
type GetTaskResponse struct {
	Task *domain.Task  `json:"task,omitempty"`
	Err  *ServiceError `json:"error,omitempty"`
}

// UpdateTaskStatusRequest is the request for changing a task's status.
type UpdateTaskStatusRequest struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// UpdateTaskStatusResponse is the response after a status change.
type UpdateTaskStatusResponse struct {
	Task *domain.Task  `json:"task,omitempty"`
	Err  *ServiceError `json:"error,omitempty"`
}

// DeleteTaskRequest is the request for deleting a task.
type DeleteTaskRequest struct {
	ID int64 `json:"id"`
}

// DeleteTaskResponse is the response after deleting a task.
type DeleteTaskResponse struct {
	ID      int64         `json:"id"`
	Deleted bool          `json:"deleted"`
	Err     *ServiceError `json:"error,omitempty"`
}
