package extract

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"

	"github.com/pvtag/pvtag/internal/model"
	"github.com/pvtag/pvtag/pkg/geometry"
)

// MergeOptions controls when two segments of one polyline are coalesced.
type MergeOptions struct {
	GapTolerance     float64 // maximum difference between mean Y values
	MaxMergeDistance float64 // maximum absolute x-gap between the runs
}

// DefaultMergeOptions returns the merge defaults.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		GapTolerance:     1.0,
		MaxMergeDistance: 2.0,
	}
}

// Validate checks that the options are usable.
func (o MergeOptions) Validate() error {
	if o.GapTolerance < 0 {
		return fmt.Errorf("gap tolerance must be non-negative, got %g", o.GapTolerance)
	}
	if o.MaxMergeDistance < 0 {
		return fmt.Errorf("max merge distance must be non-negative, got %g", o.MaxMergeDistance)
	}
	return nil
}

// Merge coalesces the segments of a single polyline in one greedy
// left-to-right sweep. The input is not modified.
//
// Segments are ordered by their leftmost X. Each unfinalized segment becomes
// an accumulator that swallows every later segment lying on roughly the same
// Y within MaxMergeDistance of either end; after a swallow the scan stays at
// the same index, because the grown accumulator may now reach its neighbor.
func Merge(segments []model.Segment, opts MergeOptions) []model.Segment {
	work := make([]model.Segment, len(segments))
	for i, s := range segments {
		work[i] = s.Clone()
	}
	sort.SliceStable(work, func(i, j int) bool {
		return work[i].MinX() < work[j].MinX()
	})

	merged := make([]model.Segment, 0, len(work))
	for i := 0; i < len(work); i++ {
		acc := work[i]
		for j := i + 1; j < len(work); {
			gap, ok := mergeGap(acc, work[j], opts)
			if !ok {
				j++
				continue
			}
			acc = fold(acc, work[j], gap)
			work = slices.Delete(work, j, j+1)
		}
		merged = append(merged, acc)
	}
	return merged
}

// mergeGap returns the signed x-gap between acc and cand when they may merge.
func mergeGap(acc, cand model.Segment, opts MergeOptions) (float64, bool) {
	if math.Abs(acc.MeanY()-cand.MeanY()) > opts.GapTolerance {
		return 0, false
	}
	if gap := cand.MinX() - acc.MaxX(); math.Abs(gap) <= opts.MaxMergeDistance {
		return gap, true
	}
	if gap := acc.MinX() - cand.MaxX(); math.Abs(gap) <= opts.MaxMergeDistance {
		return gap, true
	}
	return 0, false
}

// fold extends acc over cand. The result keeps acc's ID and Y.
func fold(acc, cand model.Segment, gap float64) model.Segment {
	y := acc.MeanY()
	minX := math.Min(acc.MinX(), cand.MinX())
	maxX := math.Max(acc.MaxX(), cand.MaxX())

	acc.Start = geometry.NewPoint(minX, y)
	acc.End = geometry.NewPoint(maxX, y)
	acc.Length = acc.Length + cand.Length + math.Abs(gap)
	if len(acc.MergedFrom) == 0 {
		acc.MergedFrom = []int{acc.ID}
	}
	acc.MergedFrom = append(acc.MergedFrom, cand.ID)
	return acc
}

// MergePolylines runs Merge over every polyline and returns new polylines
// together with the number of segments that were folded away.
func MergePolylines(polylines []model.Polyline, opts MergeOptions) ([]model.Polyline, int) {
	out := make([]model.Polyline, len(polylines))
	folded := 0
	for i, p := range polylines {
		segments := Merge(p.Segments, opts)
		folded += len(p.Segments) - len(segments)
		out[i] = model.Polyline{
			ID:       p.ID,
			Segments: segments,
			Center:   p.Center,
		}
	}
	slog.Debug("segments merged", "polylines", len(polylines), "folded", folded)
	return out, folded
}
