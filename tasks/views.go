package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/unkn0wn-root/querycache"
	"github.com/unkn0wn-root/querycache/pagination"
)

// ListView is one rendered list page: the filtered tasks plus everything
// the pagination controls need.
type ListView struct {
	Tasks      []Task
	Unfiltered int // tasks on the page before filtering
	Pagination Pagination
	Window     pagination.Window
	Filter     Filter
	HasPrev    bool
	HasNext    bool
}

func NewListView(p Page, f Filter) ListView {
	return ListView{
		Tasks:      f.Apply(p.Tasks),
		Unfiltered: len(p.Tasks),
		Pagination: p.Pagination,
		Window:     pagination.Compute(p.Pagination.Page, p.Pagination.TotalPages),
		Filter:     f,
		HasPrev:    p.Pagination.Page > 1,
		HasNext:    p.Pagination.HasMore,
	}
}

// Summary is the line under the list, e.g.
// "Showing 3 of 42 tasks | Page 2 of 5".
func (v ListView) Summary() string {
	s := fmt.Sprintf("Showing %d of %d tasks", len(v.Tasks), v.Pagination.Total)
	if v.Pagination.TotalPages > 1 {
		s += fmt.Sprintf(" | Page %d of %d", v.Pagination.Page, v.Pagination.TotalPages)
	}
	return s
}

// EmptyMessage explains an empty list, or returns "" when there are tasks.
func (v ListView) EmptyMessage() string {
	switch {
	case len(v.Tasks) > 0:
		return ""
	case v.Unfiltered > 0:
		return "No tasks found. Try changing your filters to see more results"
	default:
		return "No tasks found. Start by creating your first task"
	}
}

// ListWatch is a live list page with a changeable filter.
type ListWatch struct {
	*querycache.Binding[Page, ListView]

	mu     sync.Mutex
	filter Filter
}

// WatchList binds fn to one list page. Changing the filter re-renders from
// the cached page without a request.
func WatchList(ctx context.Context, c *querycache.Client, q *Queries, page, limit int, f Filter, fn func(querycache.Result[ListView])) *ListWatch {
	w := &ListWatch{filter: f}
	w.Binding = querycache.Watch(ctx, c, q.List(page, limit), listProjection(f), fn)
	return w
}

func (w *ListWatch) Filter() Filter {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.filter
}

func (w *ListWatch) SetFilter(f Filter) {
	w.mu.Lock()
	w.filter = f
	w.mu.Unlock()
	w.SetProjection(listProjection(f))
}

func listProjection(f Filter) func(Page) ListView {
	return func(p Page) ListView { return NewListView(p, f) }
}

// WatchTask binds fn to the detail of task id. A blank id yields a single
// idle result and no request.
func WatchTask(ctx context.Context, c *querycache.Client, q *Queries, id string, fn func(querycache.Result[Task])) *querycache.Binding[Task, Task] {
	return querycache.Watch(ctx, c, q.Task(id), querycache.Identity[Task], fn)
}
