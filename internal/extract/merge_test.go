package extract

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pvtag/pvtag/internal/model"
	"github.com/pvtag/pvtag/pkg/geometry"
)

func seg(id int, x1, y1, x2, y2 float64) model.Segment {
	start, end := geometry.NewPoint(x1, y1), geometry.NewPoint(x2, y2)
	return model.Segment{ID: id, Start: start, End: end, Length: geometry.Distance(start, end), PolylineID: 1}
}

func TestMergeTwoFragments(t *testing.T) {
	in := []model.Segment{seg(1, 0, 0, 5, 0), seg(2, 6, 0, 10, 0)}

	out := Merge(in, MergeOptions{GapTolerance: 1, MaxMergeDistance: 2})
	if len(out) != 1 {
		t.Fatalf("Expected 1 merged segment, got %d", len(out))
	}

	got := out[0]
	if got.ID != 1 {
		t.Errorf("Expected merged ID 1, got %d", got.ID)
	}
	if got.Start != geometry.NewPoint(0, 0) || got.End != geometry.NewPoint(10, 0) {
		t.Errorf("Expected (0,0)-(10,0), got %v-%v", got.Start, got.End)
	}
	if math.Abs(got.Length-10) > 1e-9 {
		t.Errorf("Expected length 10, got %f", got.Length)
	}
	if diff := cmp.Diff([]int{1, 2}, got.MergedFrom); diff != "" {
		t.Errorf("MergedFrom mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeKeepsLeftmostID(t *testing.T) {
	// ID 7 lies to the right of ID 3 even though it comes first in the input.
	in := []model.Segment{seg(7, 12, 0, 20, 0), seg(3, 0, 0, 11, 0)}

	out := Merge(in, MergeOptions{GapTolerance: 0.5, MaxMergeDistance: 2})
	if len(out) != 1 {
		t.Fatalf("Expected 1 merged segment, got %d", len(out))
	}
	if out[0].ID != 3 {
		t.Errorf("Expected ID 3, got %d", out[0].ID)
	}
	if diff := cmp.Diff([]int{3, 7}, out[0].MergedFrom); diff != "" {
		t.Errorf("MergedFrom mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeRespectsTolerances(t *testing.T) {
	tests := []struct {
		name string
		in   []model.Segment
		want int
	}{
		{"gap too wide", []model.Segment{seg(1, 0, 0, 5, 0), seg(2, 8, 0, 10, 0)}, 2},
		{"different rows", []model.Segment{seg(1, 0, 0, 5, 0), seg(2, 6, 3, 10, 3)}, 2},
		{"touching", []model.Segment{seg(1, 0, 0, 5, 0), seg(2, 5, 0, 10, 0)}, 1},
		{"chain of three", []model.Segment{seg(1, 0, 0, 4, 0), seg(2, 5, 0, 9, 0), seg(3, 10, 0, 14, 0)}, 1},
		{"single", []model.Segment{seg(1, 0, 0, 5, 0)}, 1},
		{"empty", nil, 0},
	}

	opts := MergeOptions{GapTolerance: 1, MaxMergeDistance: 2}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Merge(tt.in, opts); len(got) != tt.want {
				t.Errorf("Expected %d segments, got %d: %+v", tt.want, len(got), got)
			}
		})
	}
}

func TestMergeChainLength(t *testing.T) {
	in := []model.Segment{seg(1, 0, 0, 4, 0), seg(2, 5, 0, 9, 0), seg(3, 10, 0, 14, 0)}

	out := Merge(in, MergeOptions{GapTolerance: 1, MaxMergeDistance: 2})
	if len(out) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(out))
	}
	// 4 + 4 + 1 (first gap) + 4 + 1 (second gap)
	if math.Abs(out[0].Length-14) > 1e-9 {
		t.Errorf("Expected length 14, got %f", out[0].Length)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, out[0].MergedFrom); diff != "" {
		t.Errorf("MergedFrom mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeDoesNotModifyInput(t *testing.T) {
	in := []model.Segment{seg(2, 6, 0, 10, 0), seg(1, 0, 0, 5, 0)}
	before := []model.Segment{in[0].Clone(), in[1].Clone()}

	_ = Merge(in, MergeOptions{GapTolerance: 1, MaxMergeDistance: 2})

	if diff := cmp.Diff(before, in); diff != "" {
		t.Errorf("input modified (-before +after):\n%s", diff)
	}
}

func TestMergePolylinesStaysWithinPolyline(t *testing.T) {
	a := seg(1, 0, 0, 5, 0)
	b := seg(2, 6, 0, 10, 0)
	b.PolylineID = 2

	polylines := []model.Polyline{
		{ID: 1, Segments: []model.Segment{a}},
		{ID: 2, Segments: []model.Segment{b}},
	}

	out, folded := MergePolylines(polylines, MergeOptions{GapTolerance: 1, MaxMergeDistance: 2})
	if folded != 0 {
		t.Errorf("Expected no folds across polylines, got %d", folded)
	}
	if len(out[0].Segments) != 1 || len(out[1].Segments) != 1 {
		t.Errorf("Expected each polyline to keep its segment, got %+v", out)
	}
}

func TestMergePolylinesCountsFolds(t *testing.T) {
	polylines := []model.Polyline{{
		ID:       1,
		Segments: []model.Segment{seg(1, 0, 0, 5, 0), seg(2, 6, 0, 10, 0), seg(3, 40, 0, 50, 0)},
	}}

	out, folded := MergePolylines(polylines, DefaultMergeOptions())
	if folded != 1 {
		t.Errorf("Expected 1 fold, got %d", folded)
	}
	if diff := cmp.Diff([]int{1, 3}, out[0].SegmentIDs()); diff != "" {
		t.Errorf("segment IDs mismatch (-want +got):\n%s", diff)
	}
}
