// Package pagination computes the page-number window shown under a task
// list and normalizes list request parameters. Everything here is pure.
package pagination

// Size is the number of page buttons in a full window.
const Size = 5

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Window describes the pagination controls for one page of a list.
type Window struct {
	Pages   []int // contiguous, ascending
	Current int
	Total   int

	ShowFirst        bool // window does not reach page 1
	LeadingEllipsis  bool // gap between 1 and the window
	ShowLast         bool // window does not reach the last page
	TrailingEllipsis bool // gap between the window and the last page
	HasPrev          bool
}

// Hidden reports whether there is nothing to paginate.
func (w Window) Hidden() bool { return w.Total <= 1 }

// Compute returns the window of at most Size pages around current.
// current is clamped into [1, totalPages]; totalPages < 1 yields an empty
// window.
func Compute(current, totalPages int) Window {
	if totalPages < 1 {
		return Window{Current: max(current, 1), Total: 0}
	}
	current = min(max(current, 1), totalPages)

	start := max(1, current-2)
	end := min(totalPages, start+Size-1)
	if end-start < Size-1 {
		start = max(1, end-(Size-1))
	}

	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return Window{
		Pages:            pages,
		Current:          current,
		Total:            totalPages,
		ShowFirst:        start > 1,
		LeadingEllipsis:  start > 2,
		ShowLast:         end < totalPages,
		TrailingEllipsis: end < totalPages-1,
		HasPrev:          current > 1,
	}
}

// Params normalizes list request parameters: page is at least 1, a
// non-positive limit means DefaultLimit and limit is capped at MaxLimit.
func Params(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return page, limit
}
