package tasks

import (
	"context"
	"strings"

	"github.com/unkn0wn-root/querycache"
	"github.com/unkn0wn-root/querycache/codec"
	"github.com/unkn0wn-root/querycache/pagination"
)

// Queries builds the typed queries for the task service.
type Queries struct {
	api  API
	list codec.Codec[Page]
	task codec.Codec[Task]
}

// NewQueries uses JSON for any codec left nil.
func NewQueries(api API, list codec.Codec[Page], task codec.Codec[Task]) *Queries {
	if list == nil {
		list = codec.JSON[Page]{}
	}
	if task == nil {
		task = codec.JSON[Task]{}
	}
	return &Queries{api: api, list: list, task: task}
}

// List is the query for one page of the task list.
func (q *Queries) List(page, limit int) querycache.Query[Page] {
	page, limit = pagination.Params(page, limit)
	return querycache.Query[Page]{
		Key:   ListKey(page, limit),
		Codec: q.list,
		Fetch: func(ctx context.Context) (Page, error) {
			return q.api.ListTasks(ctx, page, limit)
		},
	}
}

// Task is the query for a single task. It is disabled for a blank id.
func (q *Queries) Task(id string) querycache.Query[Task] {
	id = strings.TrimSpace(id)
	return querycache.Query[Task]{
		Key:   TaskKey(id),
		Codec: q.task,
		Fetch: func(ctx context.Context) (Task, error) {
			return q.api.GetTask(ctx, id)
		},
		Disabled: id == "",
	}
}

// PrefetchNext warms the page after p when the server says there is one.
func (q *Queries) PrefetchNext(ctx context.Context, c *querycache.Client, p Pagination) error {
	if !p.HasMore {
		return nil
	}
	return c.Prefetch(ctx, q.List(p.Page+1, p.Limit).Request())
}
