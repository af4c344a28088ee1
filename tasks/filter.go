package tasks

import (
	"fmt"
	"strings"
)

type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusActive    StatusFilter = "active"
	StatusCompleted StatusFilter = "completed"
)

func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", StatusAll:
		return StatusAll, nil
	case StatusActive, StatusCompleted:
		return f, nil
	}
	return "", fmt.Errorf("unknown status filter %q (want all, active or completed)", s)
}

// ParsePriorityFilter returns "" for all priorities.
func ParsePriorityFilter(s string) (Priority, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return "", nil
	}
	return ParsePriority(s)
}

// Filter narrows a page of tasks on the client. The zero value matches
// everything. Status and priority must both match.
type Filter struct {
	Status   StatusFilter
	Priority Priority // "" = any
}

func (f Filter) Match(t Task) bool {
	switch f.Status {
	case StatusActive:
		if t.Completed {
			return false
		}
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	}
	return f.Priority == "" || t.Priority == f.Priority
}

// Apply returns the matching tasks in their original order, as a new slice.
func (f Filter) Apply(ts []Task) []Task {
	out := make([]Task, 0, len(ts))
	for _, t := range ts {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func (f Filter) String() string {
	status := f.Status
	if status == "" {
		status = StatusAll
	}
	prio := string(f.Priority)
	if prio == "" {
		prio = "all"
	}
	return fmt.Sprintf("status=%s priority=%s", status, prio)
}
