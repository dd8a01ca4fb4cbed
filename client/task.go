package client

import "time"

// Task statuses accepted by the server.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Task is the client-local view of a task. IsOptimistic is set only
// between a local optimistic create and its confirmation or rejection by
// the server; it never round-trips.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	IsOptimistic bool `json:"-"`
}
