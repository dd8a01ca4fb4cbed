package events

import (
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/realtime-tasks/domain/task"
)

// TaskCreatedEvent is emitted after a task is persisted.
type TaskCreatedEvent struct {
	Task domain.Task `json:"task"`
}

// TaskUpdatedEvent is emitted after a task's status changes.
type TaskUpdatedEvent struct {
	Task domain.Task `json:"task"`
}

// TaskDeletedEvent is emitted after a task is removed. Only the id is
// carried; the record no longer exists.
type TaskDeletedEvent struct {
	ID int64 `json:"id"`
}

// Event definitions for the task domain.
var (
	TaskCreatedV1 = helper.EventDefinition[TaskCreatedEvent](
		"task",
		"TaskCreated",
		"v1",
	)

	TaskUpdatedV1 = helper.EventDefinition[TaskUpdatedEvent](
		"task",
		"TaskUpdated",
		"v1",
	)

	TaskDeletedV1 = helper.EventDefinition[TaskDeletedEvent](
		"task",
		"TaskDeleted",
		"v1",
	)
)
