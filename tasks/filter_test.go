package tasks

import "testing"

func TestFilterCombinesStatusAndPriority(t *testing.T) {
	ts := []Task{
		{ID: "1", Completed: true, Priority: PriorityLow},
		{ID: "2", Completed: false, Priority: PriorityHigh},
	}
	got := Filter{Status: StatusActive, Priority: PriorityHigh}.Apply(ts)
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("Apply = %+v, want only task 2", got)
	}

	if got := (Filter{}).Apply(ts); len(got) != 2 {
		t.Fatalf("zero filter dropped tasks: %+v", got)
	}
	if got := (Filter{Status: StatusCompleted, Priority: PriorityHigh}).Apply(ts); len(got) != 0 {
		t.Fatalf("no task is completed and high: %+v", got)
	}
}

func TestFilterApplyCopies(t *testing.T) {
	ts := []Task{{ID: "1"}, {ID: "2"}}
	got := Filter{Status: StatusAll}.Apply(ts)
	got[0].ID = "changed"
	if ts[0].ID != "1" {
		t.Fatalf("Apply aliased its input")
	}
}

func TestParseFilters(t *testing.T) {
	if f, err := ParseStatusFilter(" Active "); err != nil || f != StatusActive {
		t.Fatalf("ParseStatusFilter = %q, %v", f, err)
	}
	if f, err := ParseStatusFilter(""); err != nil || f != StatusAll {
		t.Fatalf("empty status = %q, %v", f, err)
	}
	if _, err := ParseStatusFilter("done"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if p, err := ParsePriorityFilter("all"); err != nil || p != "" {
		t.Fatalf("all priority = %q, %v", p, err)
	}
	if p, err := ParsePriorityFilter("HIGH"); err != nil || p != PriorityHigh {
		t.Fatalf("HIGH = %q, %v", p, err)
	}
	if _, err := ParsePriorityFilter("urgent"); err == nil {
		t.Fatalf("expected error for unknown priority")
	}
}
