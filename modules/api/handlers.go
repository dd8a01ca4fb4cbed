package api

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/realtime-tasks/modules/broadcast"
	"github.com/example/realtime-tasks/modules/task"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes() {
	m.app.Get("/", m.rootHandler)
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	// Task API
	m.app.Post("/tasks", m.createTask)
	m.app.Get("/tasks", m.listTasks)
	m.app.Get("/tasks/:id", m.getTask)
	m.app.Patch("/tasks/:id", m.updateTaskStatus)
	m.app.Delete("/tasks/:id", m.deleteTask)

	// 404 fallback for unmatched routes
	m.app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: "Route not found",
		})
	})
}

// rootHandler handles GET /.
func (m *APIModule) rootHandler(c *fiber.Ctx) error {
	return c.JSON(RootResponse{
		Message: "Task Management API with Real-time Updates",
		Version: "1.0.0",
		Endpoints: map[string]string{
			"tasks":     "/tasks",
			"websocket": "/ws",
		},
	})
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// taskError maps a TaskPort error to the API error contract.
func taskError(c *fiber.Ctx, err error) error {
	var verr *task.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   verr.Message,
			Details: verr.Details,
		})
	}
	if errors.Is(err, task.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: "Task not found",
		})
	}
	log.Printf("[api] Task service error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: "Internal server error",
	})
}

// parseTaskID parses the :id path parameter.
func parseTaskID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// createTask handles POST /tasks.
func (m *APIModule) createTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid request body",
		})
	}

	created, err := m.taskAdapter.Create(c.UserContext(), req.Title, req.Description)
	if err != nil {
		return taskError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// listTasks handles GET /tasks with an optional status filter.
func (m *APIModule) listTasks(c *fiber.Ctx) error {
	tasks, err := m.taskAdapter.List(c.UserContext(), c.Query("status"))
	if err != nil {
		return taskError(c, err)
	}

	return c.JSON(tasks)
}

// getTask handles GET /tasks/:id.
func (m *APIModule) getTask(c *fiber.Ctx) error {
	id, err := parseTaskID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "Validation failed",
			Details: []string{"Task id must be an integer"},
		})
	}

	found, err := m.taskAdapter.Get(c.UserContext(), id)
	if err != nil {
		return taskError(c, err)
	}

	return c.JSON(found)
}

// updateTaskStatus handles PATCH /tasks/:id.
func (m *APIModule) updateTaskStatus(c *fiber.Ctx) error {
	id, err := parseTaskID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "Validation failed",
			Details: []string{"Task id must be an integer"},
		})
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid request body",
		})
	}

	updated, err := m.taskAdapter.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return taskError(c, err)
	}

	return c.JSON(updated)
}

// deleteTask handles DELETE /tasks/:id.
func (m *APIModule) deleteTask(c *fiber.Ctx) error {
	id, err := parseTaskID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "Validation failed",
			Details: []string{"Task id must be an integer"},
		})
	}

	deletedID, err := m.taskAdapter.Delete(c.UserContext(), id)
	if err != nil {
		return taskError(c, err)
	}

	return c.JSON(DeleteTaskResponse{
		Message: "Task deleted successfully",
		ID:      deletedID,
	})
}

// handleWebSocket handles WebSocket connections at /ws. Subscribers are
// push-only: inbound frames are read to keep the connection alive and
// otherwise discarded.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	client := &broadcast.Client{
		ID:   uuid.New().String(),
		Conn: c,
	}

	m.hub.Register(client)
	defer func() {
		m.hub.Unregister(client)
		log.Printf("[api] WebSocket client disconnected: %s", client.ID)
	}()

	log.Printf("[api] WebSocket client connected: %s", client.ID)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] Client %s closed connection", client.ID)
			} else {
				log.Printf("[api] Read error from %s: %v", client.ID, err)
			}
			return
		}
	}
}
