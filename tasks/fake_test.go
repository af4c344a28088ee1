package tasks

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/querycache"
	bcp "github.com/unkn0wn-root/querycache/provider/bigcache"
)

var errNotFound = errors.New("task not found")

// fakeAPI is an in-memory task service.
type fakeAPI struct {
	mu       sync.Mutex
	tasks    []Task
	seq      int
	calls    map[string]int
	failNext error
	gate     chan struct{} // when set, ListTasks waits on it
}

func newFakeAPI(seed ...Task) *fakeAPI {
	a := &fakeAPI{calls: make(map[string]int)}
	for _, t := range seed {
		a.seq++
		if t.ID == "" {
			t.ID = strconv.Itoa(a.seq)
		}
		a.tasks = append(a.tasks, t)
	}
	return a
}

func (a *fakeAPI) Calls(op string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[op]
}

func (a *fakeAPI) FailNext(err error) {
	a.mu.Lock()
	a.failNext = err
	a.mu.Unlock()
}

// enter records a call and returns the injected failure, if any. a.mu held.
func (a *fakeAPI) enter(op string) error {
	a.calls[op]++
	err := a.failNext
	a.failNext = nil
	return err
}

func (a *fakeAPI) find(id string) int {
	for i, t := range a.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (a *fakeAPI) ListTasks(_ context.Context, page, limit int) (Page, error) {
	a.mu.Lock()
	gate := a.gate
	a.mu.Unlock()
	if gate != nil {
		<-gate
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enter("list"); err != nil {
		return Page{}, err
	}
	total := len(a.tasks)
	pages := (total + limit - 1) / limit
	from := min((page-1)*limit, total)
	to := min(from+limit, total)
	out := append([]Task(nil), a.tasks[from:to]...)
	return Page{
		Tasks: out,
		Pagination: Pagination{
			Page: page, Limit: limit, Total: total, TotalPages: pages, HasMore: page < pages,
		},
	}, nil
}

func (a *fakeAPI) GetTask(_ context.Context, id string) (Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enter("get"); err != nil {
		return Task{}, err
	}
	i := a.find(id)
	if i < 0 {
		return Task{}, errNotFound
	}
	return a.tasks[i], nil
}

func (a *fakeAPI) CreateTask(_ context.Context, f FormData) (Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enter("create"); err != nil {
		return Task{}, err
	}
	a.seq++
	now := time.Now().UTC()
	t := Task{
		ID: strconv.Itoa(a.seq), Title: f.Title, Description: f.Description, Tags: f.Tags,
		Priority: f.Priority, Completed: f.Completed, Images: f.Images, CreatedAt: now, UpdatedAt: now,
	}
	a.tasks = append(a.tasks, t)
	return t, nil
}

func (a *fakeAPI) UpdateTask(_ context.Context, id string, p Patch) (Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enter("update"); err != nil {
		return Task{}, err
	}
	i := a.find(id)
	if i < 0 {
		return Task{}, errNotFound
	}
	t := &a.tasks[i]
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Tags != nil {
		t.Tags = p.Tags
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	t.UpdatedAt = time.Now().UTC()
	return *t, nil
}

func (a *fakeAPI) DeleteTask(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enter("delete"); err != nil {
		return err
	}
	i := a.find(id)
	if i < 0 {
		return errNotFound
	}
	a.tasks = append(a.tasks[:i], a.tasks[i+1:]...)
	return nil
}

func (a *fakeAPI) SetCompleted(_ context.Context, id string, completed bool) (Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enter("complete"); err != nil {
		return Task{}, err
	}
	i := a.find(id)
	if i < 0 {
		return Task{}, errNotFound
	}
	a.tasks[i].Completed = completed
	return a.tasks[i], nil
}

type harness struct {
	api     *fakeAPI
	client  *querycache.Client
	queries *Queries
	mut     *Mutator
}

func newHarness(t *testing.T, seed ...Task) *harness {
	t.Helper()
	ctx := context.Background()
	p, err := bcp.New(ctx, bcp.Config{})
	if err != nil {
		t.Fatalf("bigcache: %v", err)
	}
	store, err := querycache.NewStore(querycache.StoreOptions{
		Namespace:     "tasks-test",
		Provider:      p,
		SweepInterval: -1,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	api := newFakeAPI(seed...)
	c := querycache.NewClient(store, querycache.ClientOptions{})
	return &harness{
		api:     api,
		client:  c,
		queries: NewQueries(api, nil, nil),
		mut:     NewMutator(api, c, nil),
	}
}

func task(title string, prio Priority, completed bool) Task {
	return Task{Title: title, Description: title + " details", Tags: []string{"t"}, Priority: prio, Completed: completed}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
