package tasks

import "context"

// API is the remote task service. taskapi.Client is the HTTP implementation.
type API interface {
	ListTasks(ctx context.Context, page, limit int) (Page, error)
	GetTask(ctx context.Context, id string) (Task, error)
	CreateTask(ctx context.Context, f FormData) (Task, error)
	UpdateTask(ctx context.Context, id string, p Patch) (Task, error)
	DeleteTask(ctx context.Context, id string) error
	// SetCompleted sends the target state, not a toggle, so retries are safe.
	SetCompleted(ctx context.Context, id string, completed bool) (Task, error)
}
