package pagination

import (
	"reflect"
	"testing"
)

func TestComputePages(t *testing.T) {
	cases := []struct {
		current, total int
		want           []int
	}{
		{1, 10, []int{1, 2, 3, 4, 5}},
		{10, 10, []int{6, 7, 8, 9, 10}},
		{5, 5, []int{1, 2, 3, 4, 5}},
		{3, 3, []int{1, 2, 3}},
		{5, 10, []int{3, 4, 5, 6, 7}},
		{9, 10, []int{6, 7, 8, 9, 10}},
		{2, 10, []int{1, 2, 3, 4, 5}},
		{1, 1, []int{1}},
	}
	for _, tc := range cases {
		got := Compute(tc.current, tc.total)
		if !reflect.DeepEqual(got.Pages, tc.want) {
			t.Errorf("Compute(%d, %d).Pages = %v, want %v", tc.current, tc.total, got.Pages, tc.want)
		}
		if len(got.Pages) > Size {
			t.Errorf("Compute(%d, %d) window too wide: %v", tc.current, tc.total, got.Pages)
		}
	}
}

func TestComputeControls(t *testing.T) {
	w := Compute(5, 10)
	if !w.ShowFirst || !w.LeadingEllipsis || !w.ShowLast || !w.TrailingEllipsis || !w.HasPrev {
		t.Fatalf("middle window controls: %+v", w)
	}

	w = Compute(1, 10)
	if w.ShowFirst || w.LeadingEllipsis || w.HasPrev || !w.ShowLast || !w.TrailingEllipsis {
		t.Fatalf("first page controls: %+v", w)
	}

	// window [2..6] of 7: page 1 shown without a gap, last shown without a gap
	w = Compute(4, 7)
	if !reflect.DeepEqual(w.Pages, []int{2, 3, 4, 5, 6}) {
		t.Fatalf("pages = %v", w.Pages)
	}
	if !w.ShowFirst || w.LeadingEllipsis || !w.ShowLast || w.TrailingEllipsis {
		t.Fatalf("adjacent edges: %+v", w)
	}
}

func TestComputeClampsCurrent(t *testing.T) {
	if w := Compute(42, 4); w.Current != 4 || !reflect.DeepEqual(w.Pages, []int{1, 2, 3, 4}) {
		t.Fatalf("over range: %+v", w)
	}
	if w := Compute(-3, 4); w.Current != 1 || w.HasPrev {
		t.Fatalf("under range: %+v", w)
	}
	if w := Compute(1, 0); len(w.Pages) != 0 || !w.Hidden() {
		t.Fatalf("no pages: %+v", w)
	}
	if w := Compute(1, 1); !w.Hidden() {
		t.Fatalf("single page should hide controls")
	}
}

func TestParams(t *testing.T) {
	cases := []struct{ page, limit, wantPage, wantLimit int }{
		{0, 0, 1, DefaultLimit},
		{3, 25, 3, 25},
		{-1, 500, 1, MaxLimit},
	}
	for _, tc := range cases {
		p, l := Params(tc.page, tc.limit)
		if p != tc.wantPage || l != tc.wantLimit {
			t.Errorf("Params(%d, %d) = %d, %d", tc.page, tc.limit, p, l)
		}
	}
}
