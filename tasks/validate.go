package tasks

import (
	"sort"
	"strings"
)

// ValidationError lists the rejected fields with a message for each. It is
// returned before any request is sent.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid task: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Normalize trims text fields, drops blank tags and images and defaults the
// priority to medium.
func (f FormData) Normalize() FormData {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Tags = trimAll(f.Tags)
	f.Images = trimAll(f.Images)
	if f.Priority == "" {
		f.Priority = PriorityMedium
	}
	return f
}

func (f FormData) Validate() error {
	var ve ValidationError
	if strings.TrimSpace(f.Title) == "" {
		ve.add("title", "Title is required")
	}
	if strings.TrimSpace(f.Description) == "" {
		ve.add("description", "Description is required")
	}
	if len(trimAll(f.Tags)) == 0 {
		ve.add("tags", "At least one tag is required")
	}
	if f.Priority != "" && !f.Priority.Valid() {
		ve.add("priority", "Priority must be low, medium or high")
	}
	return ve.orNil()
}

// Normalize applies FormData's rules to the fields that are set.
func (p Patch) Normalize() Patch {
	if p.Title != nil {
		s := strings.TrimSpace(*p.Title)
		p.Title = &s
	}
	if p.Description != nil {
		s := strings.TrimSpace(*p.Description)
		p.Description = &s
	}
	if p.Tags != nil {
		p.Tags = trimAll(p.Tags)
	}
	if p.Images != nil {
		p.Images = trimAll(p.Images)
	}
	return p
}

func (p Patch) Validate() error {
	var ve ValidationError
	if p.Empty() {
		ve.add("patch", "Nothing to update")
		return &ve
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		ve.add("title", "Title is required")
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		ve.add("description", "Description is required")
	}
	if p.Tags != nil && len(trimAll(p.Tags)) == 0 {
		ve.add("tags", "At least one tag is required")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		ve.add("priority", "Priority must be low, medium or high")
	}
	return ve.orNil()
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
