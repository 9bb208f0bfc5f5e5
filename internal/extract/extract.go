// Package extract turns raw polyline vertex chains into horizontal wire
// segments with stable IDs, and optionally coalesces fragmented collinear
// segments within each polyline.
package extract

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/pvtag/pvtag/internal/model"
	"github.com/pvtag/pvtag/pkg/geometry"
)

// Options controls which vertex pairs count as horizontal wire.
type Options struct {
	YTolerance   float64 // maximum |y1-y2| for a pair to count as horizontal
	MinimumWidth float64 // minimum |x1-x2| for a pair to be kept
}

// DefaultOptions returns the extraction defaults.
func DefaultOptions() Options {
	return Options{
		YTolerance:   0.5,
		MinimumWidth: 1.0,
	}
}

// Validate checks that the options are usable.
func (o Options) Validate() error {
	if o.YTolerance < 0 {
		return fmt.Errorf("y tolerance must be non-negative, got %g", o.YTolerance)
	}
	if o.MinimumWidth < 0 {
		return fmt.Errorf("minimum width must be non-negative, got %g", o.MinimumWidth)
	}
	return nil
}

// Stats tallies an extraction run for diagnostics.
type Stats struct {
	SourcePolylines    int
	DiscardedPolylines int
	Kept               int
	Rejected           int
}

// Extract walks every consecutive vertex pair of every polyline and keeps the
// effectively horizontal ones. Segment IDs start at 1 and increase in
// polyline order, then vertex order. Polylines without a kept segment are
// dropped; the survivors are numbered from 1 in creation order.
func Extract(raw [][]geometry.Point, opts Options) ([]model.Polyline, Stats) {
	stats := Stats{SourcePolylines: len(raw)}
	polylines := make([]model.Polyline, 0, len(raw))
	nextID := 1

	for _, vertices := range raw {
		var segments []model.Segment
		for i := 0; i+1 < len(vertices); i++ {
			p1, p2 := vertices[i], vertices[i+1]
			yDiff := math.Abs(p1.Y - p2.Y)
			xDiff := math.Abs(p1.X - p2.X)
			if yDiff > opts.YTolerance || xDiff < opts.MinimumWidth {
				stats.Rejected++
				continue
			}
			segments = append(segments, model.Segment{
				ID:     nextID,
				Start:  p1,
				End:    p2,
				Length: geometry.Distance(p1, p2),
			})
			nextID++
		}

		if len(segments) == 0 {
			stats.DiscardedPolylines++
			continue
		}

		id := len(polylines) + 1
		for i := range segments {
			segments[i].PolylineID = id
		}
		polylines = append(polylines, model.Polyline{
			ID:       id,
			Segments: segments,
			Center:   geometry.Centroid(vertices),
		})
		stats.Kept += len(segments)
	}

	slog.Debug("segments extracted",
		"polylines", len(polylines),
		"kept", stats.Kept,
		"rejected", stats.Rejected,
		"discarded_polylines", stats.DiscardedPolylines,
	)
	return polylines, stats
}
