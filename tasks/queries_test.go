package tasks

import (
	"context"
	"sync"
	"testing"

	"github.com/unkn0wn-root/querycache"
)

func TestListKeyIsNormalized(t *testing.T) {
	if got, want := ListKey(2, 10), "tasks-list:limit=10&page=2"; got != want {
		t.Fatalf("ListKey = %q, want %q", got, want)
	}
	if ListKey(0, 0) != ListKey(1, 10) {
		t.Fatalf("defaults must share a key")
	}
	if TaskKey("abc") != "task:abc" {
		t.Fatalf("TaskKey = %q", TaskKey("abc"))
	}
}

func TestConcurrentListWatchersShareOneRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, task("a", PriorityLow, false))
	h.api.gate = make(chan struct{})

	var mu sync.Mutex
	ready := 0
	var watches []*ListWatch
	for i := 0; i < 8; i++ {
		w := WatchList(ctx, h.client, h.queries, 1, 10, Filter{}, func(r querycache.Result[ListView]) {
			if r.HasValue {
				mu.Lock()
				ready++
				mu.Unlock()
			}
		})
		watches = append(watches, w)
	}
	close(h.api.gate)

	waitUntil(t, "all watchers", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ready == 8
	})
	for _, w := range watches {
		w.Close()
	}
	if n := h.api.Calls("list"); n != 1 {
		t.Fatalf("list requests = %d, want 1", n)
	}
}

func TestTaskQueryDisabledForBlankID(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	q := h.queries.Task("  ")
	if !q.Disabled {
		t.Fatalf("blank id must disable the query")
	}
	r := querycache.Fetch(ctx, h.client, q)
	if r.HasValue || r.Status != querycache.StatusIdle || r.Err != nil {
		t.Fatalf("disabled result = %+v", r)
	}
	if h.api.Calls("get") != 0 {
		t.Fatalf("disabled query hit the API")
	}
}

func TestFetchTask(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, task("write docs", PriorityHigh, false))

	r := querycache.Fetch(ctx, h.client, h.queries.Task("1"))
	if !r.HasValue || r.Value.Title != "write docs" || r.Value.Priority != PriorityHigh {
		t.Fatalf("task result = %+v", r)
	}

	r = querycache.Fetch(ctx, h.client, h.queries.Task("404"))
	if r.HasValue || r.Status != querycache.StatusError || r.Err == nil {
		t.Fatalf("missing task result = %+v", r)
	}
}

func TestPrefetchNext(t *testing.T) {
	ctx := context.Background()
	var seed []Task
	for i := 0; i < 15; i++ {
		seed = append(seed, task("t", PriorityLow, false))
	}
	h := newHarness(t, seed...)

	first := querycache.Fetch(ctx, h.client, h.queries.List(1, 10))
	if err := h.queries.PrefetchNext(ctx, h.client, first.Value.Pagination); err != nil {
		t.Fatalf("PrefetchNext: %v", err)
	}
	second := querycache.Peek(ctx, h.client, h.queries.List(2, 10))
	if !second.HasValue || len(second.Value.Tasks) != 5 {
		t.Fatalf("page 2 not warmed: %+v", second)
	}

	if err := h.queries.PrefetchNext(ctx, h.client, second.Value.Pagination); err != nil {
		t.Fatalf("PrefetchNext on last page: %v", err)
	}
	if n := h.api.Calls("list"); n != 2 {
		t.Fatalf("list requests = %d, want 2", n)
	}
}
