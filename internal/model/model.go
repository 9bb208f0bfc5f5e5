// Package model holds the value types that flow from extraction through
// automatic assignment into the assignment manager. Values are never mutated
// after creation; ownership changes live in the manager's relation only.
package model

import (
	"math"
	"slices"

	"github.com/pvtag/pvtag/pkg/geometry"
)

// Segment is a horizontal run between two consecutive vertices of a source
// polyline. ID is assigned once at extraction time and is the only identity a
// segment has; a merged segment keeps the ID of its leftmost contributor.
type Segment struct {
	ID         int            `json:"id"`
	Start      geometry.Point `json:"start"`
	End        geometry.Point `json:"end"`
	Length     float64        `json:"length"`
	PolylineID int            `json:"polyline_id"`
	MergedFrom []int          `json:"merged_from,omitempty"` // original IDs folded into this one
}

// Midpoint returns the point halfway between the segment endpoints.
func (s Segment) Midpoint() geometry.Point {
	return geometry.Midpoint(s.Start, s.End)
}

// MinX returns the leftmost X of the segment.
func (s Segment) MinX() float64 {
	return math.Min(s.Start.X, s.End.X)
}

// MaxX returns the rightmost X of the segment.
func (s Segment) MaxX() float64 {
	return math.Max(s.Start.X, s.End.X)
}

// MeanY returns the average Y of both endpoints.
func (s Segment) MeanY() float64 {
	return (s.Start.Y + s.End.Y) / 2
}

// IsMerged reports whether other segments were folded into this one.
func (s Segment) IsMerged() bool {
	return len(s.MergedFrom) > 0
}

// Clone returns a copy that shares no slices with s.
func (s Segment) Clone() Segment {
	s.MergedFrom = slices.Clone(s.MergedFrom)
	return s
}

// Polyline is a source line from the drawing together with the horizontal
// segments it contributed.
type Polyline struct {
	ID       int            `json:"id"`
	Segments []Segment      `json:"segments"`
	Center   geometry.Point `json:"center"`
}

// SegmentIDs returns the IDs of the polyline's segments in order.
func (p Polyline) SegmentIDs() []int {
	ids := make([]int, len(p.Segments))
	for i, s := range p.Segments {
		ids[i] = s.ID
	}
	return ids
}

// Label is a decoded text annotation. ID is the decoded text and doubles as
// the join key; Fields is nil when the format parser found no match.
type Label struct {
	ID       string            `json:"id"`
	Position geometry.Point    `json:"position"`
	RawText  string            `json:"raw_text"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// Parsed reports whether the label text matched the input pattern.
func (l Label) Parsed() bool {
	return l.Fields != nil
}

// Field returns a parsed field value.
func (l Label) Field(name string) (string, bool) {
	if l.Fields == nil {
		return "", false
	}
	v, ok := l.Fields[name]
	return v, ok
}

// SegmentIndex builds an ID lookup table over every segment of the polylines.
func SegmentIndex(polylines []Polyline) map[int]Segment {
	index := make(map[int]Segment)
	for _, p := range polylines {
		for _, s := range p.Segments {
			index[s.ID] = s
		}
	}
	return index
}
