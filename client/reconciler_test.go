package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway lets each test script the gateway's behavior per call.
type fakeGateway struct {
	listFn   func(ctx context.Context, status string) ([]Task, error)
	createFn func(ctx context.Context, title, description string) (Task, error)
	getFn    func(ctx context.Context, id int64) (Task, error)
	updateFn func(ctx context.Context, id int64, status string) (Task, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (g *fakeGateway) ListTasks(ctx context.Context, status string) ([]Task, error) {
	return g.listFn(ctx, status)
}

func (g *fakeGateway) CreateTask(ctx context.Context, title, description string) (Task, error) {
	return g.createFn(ctx, title, description)
}

func (g *fakeGateway) GetTask(ctx context.Context, id int64) (Task, error) {
	return g.getFn(ctx, id)
}

func (g *fakeGateway) UpdateTaskStatus(ctx context.Context, id int64, status string) (Task, error) {
	return g.updateFn(ctx, id, status)
}

func (g *fakeGateway) DeleteTask(ctx context.Context, id int64) error {
	return g.deleteFn(ctx, id)
}

func serverTask(id int64, title, description, status string) Task {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Second)
	return Task{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      status,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestDedupeByID(t *testing.T) {
	tests := []struct {
		name    string
		in      []Task
		wantIDs []int64
	}{
		{
			name:    "no duplicates",
			in:      []Task{{ID: 3}, {ID: 2}, {ID: 1}},
			wantIDs: []int64{3, 2, 1},
		},
		{
			name:    "first occurrence wins",
			in:      []Task{{ID: 1, Title: "first"}, {ID: 2}, {ID: 1, Title: "second"}},
			wantIDs: []int64{1, 2},
		},
		{
			name:    "zero ids are never collapsed",
			in:      []Task{{ID: 0, Title: "a"}, {ID: 0, Title: "b"}, {ID: 7}},
			wantIDs: []int64{0, 0, 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := dedupeByID(tt.in)

			require.Len(t, out, len(tt.wantIDs))
			for i, want := range tt.wantIDs {
				assert.Equal(t, want, out[i].ID)
			}

			// Idempotent: a second pass changes nothing
			assert.Equal(t, out, dedupeByID(out))
		})
	}

	t.Run("first occurrence keeps its fields", func(t *testing.T) {
		out := dedupeByID([]Task{{ID: 1, Title: "first"}, {ID: 1, Title: "second"}})
		require.Len(t, out, 1)
		assert.Equal(t, "first", out[0].Title)
	})
}

func TestFetchReplacesProjection(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	fromServer := []Task{
		serverTask(2, "newer", "", StatusPending),
		serverTask(1, "older", "", StatusCompleted),
	}
	g.listFn = func(_ context.Context, status string) ([]Task, error) {
		assert.Equal(t, "", status)
		return fromServer, nil
	}

	got, err := r.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, fromServer, got)
	assert.Equal(t, fromServer, r.Tasks())

	// A failing fetch leaves prior state untouched
	g.listFn = func(_ context.Context, _ string) ([]Task, error) {
		return nil, errors.New("connection refused")
	}
	_, err = r.Fetch(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, fromServer, r.Tasks())
}

func TestFetchLastToCompleteWins(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	slowResult := []Task{serverTask(1, "from slow fetch", "", StatusPending)}
	fastResult := []Task{serverTask(2, "from fast fetch", "", StatusPending)}

	slowEntered := make(chan struct{})
	slowRelease := make(chan struct{})
	g.listFn = func(_ context.Context, _ string) ([]Task, error) {
		close(slowEntered)
		<-slowRelease
		return slowResult, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Fetch(context.Background(), "")
	}()
	<-slowEntered

	// A second fetch issued later completes first
	g.listFn = func(_ context.Context, _ string) ([]Task, error) {
		return fastResult, nil
	}
	_, err := r.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, fastResult, r.Tasks())

	// The earlier-issued fetch completes last and overwrites
	close(slowRelease)
	<-done
	assert.Equal(t, slowResult, r.Tasks())
}

func TestCreateOptimisticReplacement(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	entered := make(chan struct{})
	release := make(chan struct{})
	confirmed := serverTask(42, "Buy milk", "2 liters", StatusPending)
	g.createFn = func(_ context.Context, title, description string) (Task, error) {
		close(entered)
		<-release
		return confirmed, nil
	}

	done := make(chan struct{})
	var created Task
	var createErr error
	go func() {
		defer close(done)
		created, createErr = r.Create(context.Background(), "Buy milk", "2 liters")
	}()

	// While the request is in flight the optimistic entry is visible
	<-entered
	inFlight := r.Tasks()
	require.Len(t, inFlight, 1)
	tempID := inFlight[0].ID
	assert.True(t, inFlight[0].IsOptimistic)
	assert.Equal(t, StatusPending, inFlight[0].Status)
	assert.Greater(t, tempID, int64(1_000_000), "temporary ids must not collide with small server ids")

	close(release)
	<-done
	require.NoError(t, createErr)
	assert.Equal(t, confirmed, created)

	// The temporary id is gone; exactly one entry bears the server id
	after := r.Tasks()
	require.Len(t, after, 1)
	assert.Equal(t, int64(42), after[0].ID)
	assert.Equal(t, "Buy milk", after[0].Title)
	assert.Equal(t, "2 liters", after[0].Description)
	assert.Equal(t, StatusPending, after[0].Status)
	assert.False(t, after[0].IsOptimistic)
	for _, task := range after {
		assert.NotEqual(t, tempID, task.ID)
	}
}

func TestCreateFailureRemovesOptimisticEntry(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	existing := []Task{serverTask(1, "keep me", "", StatusPending)}
	g.listFn = func(_ context.Context, _ string) ([]Task, error) { return existing, nil }
	_, err := r.Fetch(context.Background(), "")
	require.NoError(t, err)

	g.createFn = func(_ context.Context, _, _ string) (Task, error) {
		return Task{}, errors.New("network down")
	}

	_, err = r.Create(context.Background(), "doomed", "")
	require.Error(t, err)
	assert.Equal(t, existing, r.Tasks())
}

func TestUpdateStatusRollbackExactness(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	seeded := []Task{
		serverTask(3, "c", "z", StatusPending),
		serverTask(2, "b", "y", StatusInProgress),
		serverTask(1, "a", "x", StatusCompleted),
	}
	g.listFn = func(_ context.Context, _ string) ([]Task, error) { return seeded, nil }
	_, err := r.Fetch(context.Background(), "")
	require.NoError(t, err)

	original := r.Tasks()

	g.updateFn = func(_ context.Context, _ int64, _ string) (Task, error) {
		return Task{}, errors.New("network down")
	}
	_, err = r.UpdateStatus(context.Background(), 2, StatusCompleted)
	require.Error(t, err)

	// Structurally identical: same order, same field values
	assert.Equal(t, original, r.Tasks())
}

func TestUpdateStatusAppliesAuthoritativeResponse(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	g.listFn = func(_ context.Context, _ string) ([]Task, error) {
		return []Task{serverTask(5, "task", "", StatusPending)}, nil
	}
	_, err := r.Fetch(context.Background(), "")
	require.NoError(t, err)

	// The server response carries a refreshed updated_at beyond the
	// status change
	updated := serverTask(5, "task", "", StatusInProgress)
	updated.UpdatedAt = updated.UpdatedAt.Add(time.Minute)
	g.updateFn = func(_ context.Context, id int64, status string) (Task, error) {
		assert.Equal(t, int64(5), id)
		assert.Equal(t, StatusInProgress, status)
		return updated, nil
	}

	got, err := r.UpdateStatus(context.Background(), 5, StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	tasks := r.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, updated, tasks[0])
}

func TestDeleteRollbackAndSuccess(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	seeded := []Task{
		serverTask(2, "b", "", StatusPending),
		serverTask(1, "a", "", StatusPending),
	}
	g.listFn = func(_ context.Context, _ string) ([]Task, error) { return seeded, nil }
	_, err := r.Fetch(context.Background(), "")
	require.NoError(t, err)
	original := r.Tasks()

	t.Run("failure restores snapshot", func(t *testing.T) {
		g.deleteFn = func(_ context.Context, _ int64) error {
			return errors.New("network down")
		}
		err := r.Delete(context.Background(), 1)
		require.Error(t, err)
		assert.Equal(t, original, r.Tasks())
	})

	t.Run("success removes entry", func(t *testing.T) {
		g.deleteFn = func(_ context.Context, id int64) error {
			assert.Equal(t, int64(1), id)
			return nil
		}
		require.NoError(t, r.Delete(context.Background(), 1))

		tasks := r.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, int64(2), tasks[0].ID)
	})

	t.Run("unknown id is a plain gateway error", func(t *testing.T) {
		g.deleteFn = func(_ context.Context, _ int64) error {
			return &APIError{StatusCode: 404, Message: "Task not found"}
		}
		err := r.Delete(context.Background(), 99)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}

func TestOnCreatedAbsorbsOptimisticEcho(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	entered := make(chan struct{})
	release := make(chan struct{})
	g.createFn = func(_ context.Context, _, _ string) (Task, error) {
		close(entered)
		<-release
		return serverTask(42, "Buy milk", "", StatusPending), nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Create(context.Background(), "Buy milk", "")
	}()
	<-entered

	// The broadcast echo lands before the HTTP response resolves
	r.OnCreated(serverTask(42, "Buy milk", "", StatusPending))

	mid := r.Tasks()
	require.Len(t, mid, 1)
	assert.Equal(t, int64(42), mid[0].ID)
	assert.False(t, mid[0].IsOptimistic)

	// The HTTP response's own replacement step must now be a no-op
	close(release)
	<-done

	after := r.Tasks()
	require.Len(t, after, 1)
	assert.Equal(t, int64(42), after[0].ID)
}

func TestOnCreatedPrependsForeignTask(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	g.listFn = func(_ context.Context, _ string) ([]Task, error) {
		return []Task{serverTask(1, "mine", "", StatusPending)}, nil
	}
	_, err := r.Fetch(context.Background(), "")
	require.NoError(t, err)

	// A task created by another client has no optimistic match here
	r.OnCreated(serverTask(9, "theirs", "", StatusPending))

	tasks := r.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(9), tasks[0].ID)
	assert.Equal(t, int64(1), tasks[1].ID)

	// Redelivery of the same event does not duplicate
	r.OnCreated(serverTask(9, "theirs", "", StatusPending))
	assert.Len(t, r.Tasks(), 2)
}

func TestOnCreatedMatchesEmptyDescription(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	entered := make(chan struct{})
	release := make(chan struct{})
	g.createFn = func(_ context.Context, _, _ string) (Task, error) {
		close(entered)
		<-release
		return serverTask(7, "No description", "", StatusPending), nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Create(context.Background(), "No description", "")
	}()
	<-entered

	// The broadcast omits the description; absent and empty must match
	r.OnCreated(serverTask(7, "No description", "", StatusPending))

	tasks := r.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(7), tasks[0].ID)

	close(release)
	<-done
	assert.Len(t, r.Tasks(), 1)
}

func TestOnUpdated(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	g.listFn = func(_ context.Context, _ string) ([]Task, error) {
		return []Task{serverTask(1, "a", "", StatusPending)}, nil
	}
	_, err := r.Fetch(context.Background(), "")
	require.NoError(t, err)

	t.Run("replaces matching entry", func(t *testing.T) {
		r.OnUpdated(serverTask(1, "a", "", StatusCompleted))

		tasks := r.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, StatusCompleted, tasks[0].Status)
	})

	t.Run("no-op when task not loaded", func(t *testing.T) {
		before := r.Tasks()
		r.OnUpdated(serverTask(99, "elsewhere", "", StatusPending))
		assert.Equal(t, before, r.Tasks())
	})
}

func TestOnDeleted(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	g.listFn = func(_ context.Context, _ string) ([]Task, error) {
		return []Task{
			serverTask(2, "b", "", StatusPending),
			serverTask(1, "a", "", StatusPending),
		}, nil
	}
	_, err := r.Fetch(context.Background(), "")
	require.NoError(t, err)

	r.OnDeleted(2)
	tasks := r.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(1), tasks[0].ID)

	// Absent id is a safe no-op
	r.OnDeleted(2)
	assert.Len(t, r.Tasks(), 1)
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	var last []Task
	r.SetOnChange(func(tasks []Task) { last = tasks })

	r.OnCreated(serverTask(1, "a", "", StatusPending))
	require.Len(t, last, 1)
	assert.Equal(t, int64(1), last[0].ID)

	r.OnDeleted(1)
	assert.Len(t, last, 0)
}

// Full lifecycle: optimistic create, confirmation, then a failed status
// change that must revert.
func TestCreateThenFailedUpdateScenario(t *testing.T) {
	g := &fakeGateway{}
	r := NewReconciler(g)

	confirmed := serverTask(42, "Buy milk", "", StatusPending)
	entered := make(chan struct{})
	release := make(chan struct{})
	g.createFn = func(_ context.Context, _, _ string) (Task, error) {
		close(entered)
		<-release
		return confirmed, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Create(context.Background(), "Buy milk", "")
	}()

	<-entered
	inFlight := r.Tasks()
	require.Len(t, inFlight, 1)
	assert.True(t, inFlight[0].IsOptimistic)
	assert.Equal(t, StatusPending, inFlight[0].Status)

	close(release)
	<-done
	confirmedView := r.Tasks()
	require.Len(t, confirmedView, 1)
	assert.Equal(t, int64(42), confirmedView[0].ID)
	assert.Equal(t, StatusPending, confirmedView[0].Status)

	g.updateFn = func(_ context.Context, _ int64, _ string) (Task, error) {
		return Task{}, errors.New("simulated network error")
	}
	_, err := r.UpdateStatus(context.Background(), 42, StatusInProgress)
	require.Error(t, err)

	reverted := r.Tasks()
	require.Len(t, reverted, 1)
	assert.Equal(t, int64(42), reverted[0].ID)
	assert.Equal(t, StatusPending, reverted[0].Status)
}
