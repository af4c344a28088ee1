package taskapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/unkn0wn-root/querycache/tasks"
)

// wireTask is a task as the server encodes it.
type wireTask struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Priority    string   `json:"priority"`
	Completed   bool     `json:"completed"`
	Image       []string `json:"image"`
	Metadata    struct {
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	} `json:"metadata"`
}

func (w wireTask) toTask() tasks.Task {
	t := tasks.Task{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Tags:        w.Tags,
		Priority:    tasks.Priority(w.Priority),
		Completed:   w.Completed,
		Images:      w.Image,
		CreatedAt:   parseTime(w.Metadata.CreatedAt),
		UpdatedAt:   parseTime(w.Metadata.UpdatedAt),
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t
}

// parseTime accepts RFC 3339 with or without fractional seconds; anything
// else reads as the zero time.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

type listResponse struct {
	Tasks      []wireTask       `json:"tasks"`
	Pagination tasks.Pagination `json:"pagination"`
}

func (r listResponse) toPage() tasks.Page {
	p := tasks.Page{Tasks: make([]tasks.Task, len(r.Tasks)), Pagination: r.Pagination}
	for i, w := range r.Tasks {
		p.Tasks[i] = w.toTask()
	}
	return p
}

// decodeTask accepts both {"task": {...}} and a bare task object.
func decodeTask(body []byte) (tasks.Task, error) {
	var env struct {
		Task *wireTask `json:"task"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return tasks.Task{}, fmt.Errorf("decode task: %w", err)
	}
	if env.Task != nil {
		return env.Task.toTask(), nil
	}
	var w wireTask
	if err := json.Unmarshal(body, &w); err != nil {
		return tasks.Task{}, fmt.Errorf("decode task: %w", err)
	}
	if w.ID == "" {
		return tasks.Task{}, fmt.Errorf("decode task: response has no task")
	}
	return w.toTask(), nil
}
