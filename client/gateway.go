package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Gateway is the synchronous mutation surface of the task API as
// consumed by the Reconciler.
type Gateway interface {
	ListTasks(ctx context.Context, status string) ([]Task, error)
	CreateTask(ctx context.Context, title, description string) (Task, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	UpdateTaskStatus(ctx context.Context, id int64, status string) (Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// HTTPGateway implements Gateway against the REST API.
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPGateway creates a gateway for the API at baseURL, e.g.
// "http://localhost:5000". Timeouts are left to the http.Client default
// behavior; the Reconciler does not enforce its own.
func NewHTTPGateway(baseURL string, httpClient *http.Client) *HTTPGateway {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type createBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateBody struct {
	Status string `json:"status"`
}

// do performs one API request. A non-2xx response becomes an *APIError;
// transport failures are returned wrapped.
func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: "request failed"}
		var eb errorBody
		if decodeErr := json.NewDecoder(resp.Body).Decode(&eb); decodeErr == nil && eb.Error != "" {
			apiErr.Message = eb.Error
			apiErr.Details = eb.Details
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// ListTasks fetches tasks, optionally filtered by status.
func (g *HTTPGateway) ListTasks(ctx context.Context, status string) ([]Task, error) {
	path := "/tasks"
	if status != "" {
		path += "?status=" + status
	}
	var tasks []Task
	if err := g.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask creates a task and returns the persisted record.
func (g *HTTPGateway) CreateTask(ctx context.Context, title, description string) (Task, error) {
	var task Task
	err := g.do(ctx, http.MethodPost, "/tasks", createBody{Title: title, Description: description}, &task)
	return task, err
}

// GetTask fetches a single task by id.
func (g *HTTPGateway) GetTask(ctx context.Context, id int64) (Task, error) {
	var task Task
	err := g.do(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d", id), nil, &task)
	return task, err
}

// UpdateTaskStatus changes a task's status and returns the updated
// record.
func (g *HTTPGateway) UpdateTaskStatus(ctx context.Context, id int64, status string) (Task, error) {
	var task Task
	err := g.do(ctx, http.MethodPatch, fmt.Sprintf("/tasks/%d", id), updateBody{Status: status}, &task)
	return task, err
}

// DeleteTask permanently removes a task.
func (g *HTTPGateway) DeleteTask(ctx context.Context, id int64) error {
	return g.do(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil, nil)
}
