package calibration

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/teslashibe/go-gaze/pkg/gaze"
)

func TestCanonicalPositions(t *testing.T) {
	got := CanonicalPositions(1000, 500)

	want := []Point{
		{Index: 0, Name: "top-left", Position: gaze.Point{X: 100, Y: 50}},
		{Index: 1, Name: "top-center", Position: gaze.Point{X: 500, Y: 50}},
		{Index: 2, Name: "top-right", Position: gaze.Point{X: 900, Y: 50}},
		{Index: 3, Name: "middle-left", Position: gaze.Point{X: 100, Y: 250}},
		{Index: 4, Name: "center", Position: gaze.Point{X: 500, Y: 250}},
		{Index: 5, Name: "middle-right", Position: gaze.Point{X: 900, Y: 250}},
		{Index: 6, Name: "bottom-left", Position: gaze.Point{X: 100, Y: 450}},
		{Index: 7, Name: "bottom-center", Position: gaze.Point{X: 500, Y: 450}},
		{Index: 8, Name: "bottom-right", Position: gaze.Point{X: 900, Y: 450}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CanonicalPositions mismatch (-want +got):\n%s", diff)
	}
}

func TestNewPlan_RepeatsCycles(t *testing.T) {
	plan := NewPlan(1000, 500, 3)

	if len(plan) != 27 {
		t.Fatalf("Expected 27 points, got %d", len(plan))
	}
	for i, p := range plan {
		if p.Index != i {
			t.Errorf("point %d has index %d", i, p.Index)
		}
		if p.Cycle != i/9 {
			t.Errorf("point %d has cycle %d, want %d", i, p.Cycle, i/9)
		}
		if p.Name != names[i%9] {
			t.Errorf("point %d named %s, want %s", i, p.Name, names[i%9])
		}
	}
	if plan[9].Position != plan[0].Position {
		t.Errorf("cycle 2 should restart at top-left, got %+v", plan[9])
	}
}

func TestNewPlan_ZeroCycles(t *testing.T) {
	if plan := NewPlan(1000, 500, 0); len(plan) != 0 {
		t.Errorf("Expected empty plan, got %d points", len(plan))
	}
}
