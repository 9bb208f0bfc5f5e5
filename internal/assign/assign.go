// Package assign implements the automatic label-to-polyline matcher.
//
// Matching is greedy: polylines are visited in creation order and each one
// claims the nearest candidate label that no earlier polyline has taken. The
// result is deterministic but not a minimum-total-distance matching, and it
// depends on polyline order when several polylines compete for one label.
package assign

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pvtag/pvtag/internal/model"
	"github.com/pvtag/pvtag/pkg/geometry"
)

// Location restricts where a label may sit relative to a segment midpoint.
type Location int

const (
	// Above requires the label's Y to be strictly greater than the midpoint's.
	Above Location = iota
	// Below requires the label's Y to be strictly less than the midpoint's.
	Below
	// Any places no constraint on the label position.
	Any
)

func (l Location) String() string {
	switch l {
	case Above:
		return "above"
	case Below:
		return "below"
	case Any:
		return "any"
	default:
		return fmt.Sprintf("Location(%d)", int(l))
	}
}

// ParseLocation converts a mode name to a Location.
func ParseLocation(s string) (Location, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "above":
		return Above, nil
	case "below":
		return Below, nil
	case "any":
		return Any, nil
	default:
		return Any, fmt.Errorf("unknown location mode %q (want above, below or any)", s)
	}
}

// Accepts reports whether a label at label satisfies the filter for a
// segment whose midpoint is mid.
func (l Location) Accepts(label, mid geometry.Point) bool {
	switch l {
	case Above:
		return label.Y > mid.Y
	case Below:
		return label.Y < mid.Y
	default:
		return true
	}
}

// Options holds the matching parameters.
type Options struct {
	SearchRadius float64
	Location     Location
}

// DefaultOptions returns the matching defaults.
func DefaultOptions() Options {
	return Options{SearchRadius: 50, Location: Above}
}

// Validate checks that the options are usable.
func (o Options) Validate() error {
	if o.SearchRadius <= 0 {
		return fmt.Errorf("search radius must be positive, got %g", o.SearchRadius)
	}
	if o.Location < Above || o.Location > Any {
		return fmt.Errorf("invalid location mode %v", o.Location)
	}
	return nil
}

// Candidate is one label within reach of one segment.
type Candidate struct {
	LabelID    string
	PolylineID int
	SegmentID  int
	Distance   float64
}

// Group is a label together with the segments it claimed.
type Group struct {
	LabelID    string
	PolylineID int
	SegmentIDs []int
	Distance   float64 // distance of the winning candidate
}

// Assignment is the outcome of an automatic run. Groups appear in claim
// order, which is polyline creation order.
type Assignment struct {
	Groups             []Group
	UnassignedTexts    []string
	UnassignedSegments []int
}

// Candidates lists, per polyline, every label within the search radius of
// any of the polyline's segment midpoints that also satisfies the location
// filter. Each list is sorted by ascending distance; ties keep encounter
// order (segment order, then label order).
func Candidates(labels []model.Label, polylines []model.Polyline, opts Options) map[int][]Candidate {
	byPolyline := make(map[int][]Candidate, len(polylines))
	for _, p := range polylines {
		var list []Candidate
		for _, s := range p.Segments {
			mid := s.Midpoint()
			for _, l := range labels {
				d := geometry.Distance(mid, l.Position)
				if d > opts.SearchRadius || !opts.Location.Accepts(l.Position, mid) {
					continue
				}
				list = append(list, Candidate{
					LabelID:    l.ID,
					PolylineID: p.ID,
					SegmentID:  s.ID,
					Distance:   d,
				})
			}
		}
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Distance < list[j].Distance
		})
		if len(list) > 0 {
			byPolyline[p.ID] = list
		}
	}
	return byPolyline
}

// Run performs the greedy matching. Every segment of a claimed polyline goes
// to the winning label; labels and polyline segments left unclaimed end up in
// the unassigned lists, in input order.
func Run(labels []model.Label, polylines []model.Polyline, opts Options) Assignment {
	candidates := Candidates(labels, polylines, opts)

	claimed := make(map[string]bool, len(labels))
	var result Assignment
	for _, p := range polylines {
		won := false
		for _, c := range candidates[p.ID] {
			if claimed[c.LabelID] {
				continue
			}
			claimed[c.LabelID] = true
			result.Groups = append(result.Groups, Group{
				LabelID:    c.LabelID,
				PolylineID: p.ID,
				SegmentIDs: p.SegmentIDs(),
				Distance:   c.Distance,
			})
			won = true
			break
		}
		if !won {
			result.UnassignedSegments = append(result.UnassignedSegments, p.SegmentIDs()...)
		}
	}

	for _, l := range labels {
		if !claimed[l.ID] {
			result.UnassignedTexts = append(result.UnassignedTexts, l.ID)
		}
	}

	slog.Debug("automatic assignment finished",
		"labels", len(labels),
		"polylines", len(polylines),
		"groups", len(result.Groups),
		"unassigned_texts", len(result.UnassignedTexts),
		"unassigned_segments", len(result.UnassignedSegments),
		"radius", opts.SearchRadius,
		"location", opts.Location.String(),
	)
	return result
}

// Relation returns the assignment as a label → segment IDs map.
func (a Assignment) Relation() map[string][]int {
	rel := make(map[string][]int, len(a.Groups))
	for _, g := range a.Groups {
		rel[g.LabelID] = append(rel[g.LabelID], g.SegmentIDs...)
	}
	return rel
}
