package tasks

import (
	"strconv"

	"github.com/unkn0wn-root/querycache/internal/util"
	"github.com/unkn0wn-root/querycache/pagination"
)

const (
	// ListPrefix is shared by every list page key; invalidating it
	// invalidates all pages.
	ListPrefix = "tasks-list:"
	TaskPrefix = "task:"
)

// ListKey is the cache key of one list page, after parameter normalization.
func ListKey(page, limit int) string {
	page, limit = pagination.Params(page, limit)
	return util.Canonical("tasks-list", map[string]string{
		"page":  strconv.Itoa(page),
		"limit": strconv.Itoa(limit),
	})
}

func TaskKey(id string) string { return TaskPrefix + id }
