// Package client is the Go client SDK for the task API. Its centerpiece
// is the Reconciler, which keeps a local ordered projection of the task
// list consistent while three sources mutate it concurrently: optimistic
// local applies, the eventual gateway responses, and change events pushed
// over the WebSocket channel — including echoes of this client's own
// mutations, which may arrive before or after the HTTP response they
// correspond to.
package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Reconciler owns the client-local task projection. All reads and
// mutations of the projection go through its methods; each handler runs
// atomically under an internal lock, and network I/O happens outside the
// lock so push events can interleave with in-flight mutations.
type Reconciler struct {
	gateway Gateway

	mu    sync.Mutex
	tasks []Task

	// onChange, when set, receives a snapshot after every state change.
	onChange func([]Task)

	// tempID produces temporary ids for optimistic creates. Seeded with
	// the current unix milliseconds so values never collide with small
	// sequential server ids.
	tempID atomic.Int64
}

// NewReconciler creates a Reconciler backed by the given gateway.
func NewReconciler(gateway Gateway) *Reconciler {
	r := &Reconciler{gateway: gateway}
	r.tempID.Store(time.Now().UnixMilli())
	return r
}

// SetOnChange registers a callback invoked with a fresh snapshot after
// every state change. The callback must not call back into the
// Reconciler's mutation methods.
func (r *Reconciler) SetOnChange(fn func([]Task)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Tasks returns a snapshot of the current projection.
func (r *Reconciler) Tasks() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return snapshot(r.tasks)
}

func snapshot(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

// dedupeByID collapses entries sharing an id down to the first
// occurrence. Entries with no id (zero) are never deduplicated against
// each other.
func dedupeByID(tasks []Task) []Task {
	seen := make(map[int64]bool, len(tasks))
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == 0 {
			out = append(out, t)
			continue
		}
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

func removeByID(tasks []Task, id int64) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// Fetch replaces the entire projection with the server's ordered result.
// This is a full resync, not a merge. Concurrent fetches are not
// coalesced: the last response to complete wins, even if it was issued
// earlier. On failure the prior state is left untouched.
func (r *Reconciler) Fetch(ctx context.Context, status string) ([]Task, error) {
	fetched, err := r.gateway.ListTasks(ctx, status)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.tasks = snapshot(fetched)
	snap := snapshot(r.tasks)
	r.mu.Unlock()
	r.notifyUnlocked(snap)

	return snap, nil
}

// Create applies an optimistic task immediately, then reconciles it with
// the server's response. On success the temporary id is replaced by the
// authoritative record wherever it appears and the projection is deduped
// — if the create's broadcast echo already absorbed the optimistic
// entry, the replacement is a no-op and dedupe removes any double. On
// failure the temporary entry is removed and the error returned.
func (r *Reconciler) Create(ctx context.Context, title, description string) (Task, error) {
	now := time.Now()
	tmp := Task{
		ID:           r.tempID.Add(1),
		Title:        title,
		Description:  description,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		IsOptimistic: true,
	}

	r.mu.Lock()
	r.tasks = append([]Task{tmp}, r.tasks...)
	snap := snapshot(r.tasks)
	r.mu.Unlock()
	r.notifyUnlocked(snap)

	created, err := r.gateway.CreateTask(ctx, title, description)
	if err != nil {
		r.mu.Lock()
		r.tasks = removeByID(r.tasks, tmp.ID)
		snap := snapshot(r.tasks)
		r.mu.Unlock()
		r.notifyUnlocked(snap)
		return Task{}, err
	}

	r.mu.Lock()
	next := snapshot(r.tasks)
	for i := range next {
		if next[i].ID == tmp.ID {
			next[i] = created
		}
	}
	r.tasks = dedupeByID(next)
	snap = snapshot(r.tasks)
	r.mu.Unlock()
	r.notifyUnlocked(snap)

	return created, nil
}

// UpdateStatus optimistically rewrites the matching entry's status, then
// overwrites it with the authoritative response. On failure the full
// pre-mutation snapshot is restored verbatim.
func (r *Reconciler) UpdateStatus(ctx context.Context, id int64, status string) (Task, error) {
	r.mu.Lock()
	original := snapshot(r.tasks)
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks[i].Status = status
			r.tasks[i].UpdatedAt = time.Now()
		}
	}
	snap := snapshot(r.tasks)
	r.mu.Unlock()
	r.notifyUnlocked(snap)

	updated, err := r.gateway.UpdateTaskStatus(ctx, id, status)
	if err != nil {
		r.mu.Lock()
		r.tasks = original
		snap := snapshot(r.tasks)
		r.mu.Unlock()
		r.notifyUnlocked(snap)
		return Task{}, err
	}

	r.mu.Lock()
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks[i] = updated
		}
	}
	snap = snapshot(r.tasks)
	r.mu.Unlock()
	r.notifyUnlocked(snap)

	return updated, nil
}

// Delete optimistically removes the matching entry. On failure the full
// pre-mutation snapshot is restored verbatim; on success nothing more to
// do.
func (r *Reconciler) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	original := snapshot(r.tasks)
	r.tasks = removeByID(r.tasks, id)
	snap := snapshot(r.tasks)
	r.mu.Unlock()
	r.notifyUnlocked(snap)

	if err := r.gateway.DeleteTask(ctx, id); err != nil {
		r.mu.Lock()
		r.tasks = original
		snap := snapshot(r.tasks)
		r.mu.Unlock()
		r.notifyUnlocked(snap)
		return err
	}
	return nil
}

// OnCreated handles a taskCreated push event. If an optimistic entry
// with the same title and description exists it is replaced — absorbing
// the echo of this client's own create, which may beat the HTTP
// response. Otherwise the task is prepended. The projection is deduped
// either way.
//
// Matching by title+description is a heuristic: the temporary id and the
// broadcast carry no shared correlation token, so two identical
// concurrent creates from one client can cross-wire. Accepted trade-off.
func (r *Reconciler) OnCreated(task Task) {
	task.IsOptimistic = false

	r.mu.Lock()
	idx := -1
	for i, t := range r.tasks {
		if t.IsOptimistic && t.Title == task.Title && t.Description == task.Description {
			idx = i
			break
		}
	}

	var next []Task
	if idx >= 0 {
		next = snapshot(r.tasks)
		next[idx] = task
	} else {
		next = append([]Task{task}, r.tasks...)
	}
	r.tasks = dedupeByID(next)
	snap := snapshot(r.tasks)
	r.mu.Unlock()
	r.notifyUnlocked(snap)
}

// OnUpdated handles a taskUpdated push event: the matching entry is
// replaced. No-op if this client does not have the task loaded.
func (r *Reconciler) OnUpdated(task Task) {
	task.IsOptimistic = false

	r.mu.Lock()
	changed := false
	for i := range r.tasks {
		if r.tasks[i].ID == task.ID {
			r.tasks[i] = task
			changed = true
		}
	}
	snap := snapshot(r.tasks)
	r.mu.Unlock()
	if changed {
		r.notifyUnlocked(snap)
	}
}

// OnDeleted handles a taskDeleted push event: the matching entry is
// removed. No-op if absent.
func (r *Reconciler) OnDeleted(id int64) {
	r.mu.Lock()
	before := len(r.tasks)
	r.tasks = removeByID(r.tasks, id)
	changed := len(r.tasks) != before
	snap := snapshot(r.tasks)
	r.mu.Unlock()
	if changed {
		r.notifyUnlocked(snap)
	}
}

// notifyUnlocked invokes the change callback outside the lock.
func (r *Reconciler) notifyUnlocked(snap []Task) {
	r.mu.Lock()
	onChange := r.onChange
	r.mu.Unlock()
	if onChange != nil {
		onChange(snap)
	}
}
