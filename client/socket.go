package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Event names on the push channel.
const (
	eventTaskCreated = "taskCreated"
	eventTaskUpdated = "taskUpdated"
	eventTaskDeleted = "taskDeleted"
)

// wsEnvelope is the wire format of one push event.
type wsEnvelope struct {
	Type string `json:"type"`
	Task *Task  `json:"task"`
	ID   int64  `json:"id"`
}

// Socket subscribes to the server's push channel and dispatches change
// events to a Reconciler. There is no replay of missed events: whatever
// arrived while disconnected is gone, and a Fetch is the way to resync.
type Socket struct {
	conn   *websocket.Conn
	rec    *Reconciler
	closed atomic.Bool
}

// DialSocket connects to the push channel at url, e.g.
// "ws://localhost:5000/ws". Call Listen to start consuming events.
func DialSocket(ctx context.Context, url string, rec *Reconciler) (*Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect push channel: %w", err)
	}
	return &Socket{conn: conn, rec: rec}, nil
}

// Listen reads push events until the connection drops or Close is
// called. It returns nil on a clean close.
func (s *Socket) Listen() error {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("failed to read push event: %w", err)
		}
		s.dispatch(data)
	}
}

// dispatch decodes one envelope and routes it to the reconciler.
// Malformed and unknown events are dropped.
func (s *Socket) dispatch(data []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("[client] Dropping malformed push event: %v", err)
		return
	}

	switch env.Type {
	case eventTaskCreated:
		if env.Task != nil {
			s.rec.OnCreated(*env.Task)
		}
	case eventTaskUpdated:
		if env.Task != nil {
			s.rec.OnUpdated(*env.Task)
		}
	case eventTaskDeleted:
		s.rec.OnDeleted(env.ID)
	default:
		// Unknown event types are ignored so older clients survive
		// newer servers.
	}
}

// Connected reports whether Close has not yet been called.
func (s *Socket) Connected() bool {
	return !s.closed.Load()
}

// Close tears the subscription down. Events arriving mid-teardown are
// discarded; Listen returns nil.
func (s *Socket) Close() error {
	s.closed.Store(true)
	return s.conn.Close()
}
