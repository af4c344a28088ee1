package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/unkn0wn-root/querycache"
)

// MutationError wraps a failed remote write. The cache is left untouched.
type MutationError struct {
	Op  string // create, update, delete, complete
	ID  string // empty for create
	Err error
}

func (e *MutationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s task: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s task %s: %v", e.Op, e.ID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// Mutator performs writes against the API and then marks stale what each
// write affects. Values are never patched in place; observed keys refetch.
type Mutator struct {
	api    API
	client *querycache.Client
	log    querycache.Logger
}

func NewMutator(api API, client *querycache.Client, log querycache.Logger) *Mutator {
	if log == nil {
		log = querycache.NopLogger{}
	}
	return &Mutator{api: api, client: client, log: log}
}

// Create adds a task and invalidates every list page.
func (m *Mutator) Create(ctx context.Context, f FormData) (Task, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return Task{}, err
	}
	t, err := m.api.CreateTask(ctx, f)
	if err != nil {
		return Task{}, &MutationError{Op: "create", Err: err}
	}
	m.invalidateLists(ctx)
	return t, nil
}

// Update applies p to task id and invalidates the task and every list page.
func (m *Mutator) Update(ctx context.Context, id string, p Patch) (Task, error) {
	id, err := requireID(id)
	if err != nil {
		return Task{}, err
	}
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return Task{}, err
	}
	t, err := m.api.UpdateTask(ctx, id, p)
	if err != nil {
		return Task{}, &MutationError{Op: "update", ID: id, Err: err}
	}
	m.invalidateTask(ctx, id)
	m.invalidateLists(ctx)
	return t, nil
}

// Delete removes task id. Its detail entry is evicted rather than refetched.
func (m *Mutator) Delete(ctx context.Context, id string) error {
	id, err := requireID(id)
	if err != nil {
		return err
	}
	if err := m.api.DeleteTask(ctx, id); err != nil {
		return &MutationError{Op: "delete", ID: id, Err: err}
	}
	if err := m.client.Evict(ctx, TaskKey(id)); err != nil {
		m.log.Warn("evict after delete failed", querycache.Fields{"key": TaskKey(id), "err": err})
	}
	m.invalidateLists(ctx)
	return nil
}

// ToggleComplete sets the completion state of task id to completed.
func (m *Mutator) ToggleComplete(ctx context.Context, id string, completed bool) (Task, error) {
	id, err := requireID(id)
	if err != nil {
		return Task{}, err
	}
	t, err := m.api.SetCompleted(ctx, id, completed)
	if err != nil {
		return Task{}, &MutationError{Op: "complete", ID: id, Err: err}
	}
	m.invalidateTask(ctx, id)
	m.invalidateLists(ctx)
	return t, nil
}

// Invalidation failures are logged: the write itself already succeeded.
func (m *Mutator) invalidateLists(ctx context.Context) {
	keys, err := m.client.InvalidatePrefix(ctx, ListPrefix)
	if err != nil {
		m.log.Warn("list invalidation failed", querycache.Fields{"prefix": ListPrefix, "err": err})
		return
	}
	m.log.Debug("lists invalidated", querycache.Fields{"count": len(keys)})
}

func (m *Mutator) invalidateTask(ctx context.Context, id string) {
	if err := m.client.Invalidate(ctx, TaskKey(id)); err != nil {
		m.log.Warn("task invalidation failed", querycache.Fields{"key": TaskKey(id), "err": err})
	}
}

func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &ValidationError{Fields: map[string]string{"id": "Task id is required"}}
	}
	return id, nil
}
