// Package render draws the current assignment as an SVG diagram: every
// segment colored by state and tagged with its display number, and every
// label marked at its position.
package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/pvtag/pvtag/internal/manager"
	"github.com/pvtag/pvtag/pkg/geometry"
)

// Options controls the drawing.
type Options struct {
	Width      int    // canvas width in pixels
	Margin     int    // blank border in pixels
	Assigned   string // stroke color of assigned segments
	Unassigned string // stroke color of unassigned segments
	LabelColor string // color of label names and markers
	Title      string
}

// DefaultOptions returns the drawing defaults.
func DefaultOptions() Options {
	return Options{
		Width:      1200,
		Margin:     40,
		Assigned:   "green",
		Unassigned: "red",
		LabelColor: "blue",
	}
}

// projection maps drawing units to canvas pixels with Y pointing up.
type projection struct {
	minX, maxY float64
	scale      float64
	margin     int
}

func (p projection) point(pt geometry.Point) (int, int) {
	x := float64(p.margin) + (pt.X-p.minX)*p.scale
	y := float64(p.margin) + (p.maxY-pt.Y)*p.scale
	return int(math.Round(x)), int(math.Round(y))
}

// SVG writes the diagram for the manager's current state.
func SVG(w io.Writer, m *manager.Manager, opts Options) error {
	if opts.Width <= 2*opts.Margin {
		return fmt.Errorf("canvas width %d leaves no room inside margin %d", opts.Width, opts.Margin)
	}

	var points []geometry.Point
	for _, id := range m.SegmentIDs() {
		s, _ := m.Segment(id)
		points = append(points, s.Start, s.End)
	}
	for _, id := range m.LabelIDs() {
		if l, ok := m.Label(id); ok {
			points = append(points, l.Position)
		}
	}

	proj, height := fit(points, opts)

	canvas := svg.New(w)
	canvas.Start(opts.Width, height)
	if opts.Title != "" {
		canvas.Title(opts.Title)
	}
	canvas.Rect(0, 0, opts.Width, height, "fill:white")

	for _, g := range m.Relation() {
		top := math.Inf(-1)
		var anchor geometry.Point
		for _, id := range g.SegmentIDs {
			s, _ := m.Segment(id)
			drawSegment(canvas, proj, s.Start, s.End, m.SVGNumber(id), opts.Assigned)
			if mid := s.Midpoint(); mid.Y > top {
				top, anchor = mid.Y, mid
			}
		}
		x, y := proj.point(anchor)
		canvas.Text(x, y-16, g.TextID, "text-anchor:middle;font-size:12px;font-family:monospace;fill:"+opts.LabelColor)
	}

	for _, id := range m.UnassignedSegments() {
		s, _ := m.Segment(id)
		drawSegment(canvas, proj, s.Start, s.End, m.SVGNumber(id), opts.Unassigned)
	}

	for _, id := range m.LabelIDs() {
		l, ok := m.Label(id)
		if !ok {
			continue
		}
		x, y := proj.point(l.Position)
		canvas.Circle(x, y, 3, "fill:none;stroke-width:1;stroke:"+opts.LabelColor)
	}

	canvas.End()
	return nil
}

func drawSegment(canvas *svg.SVG, proj projection, start, end geometry.Point, number int, color string) {
	x1, y1 := proj.point(start)
	x2, y2 := proj.point(end)
	canvas.Line(x1, y1, x2, y2, "stroke-width:2;stroke:"+color)
	mx, my := proj.point(geometry.Midpoint(start, end))
	canvas.Text(mx, my-4, fmt.Sprint(number), "text-anchor:middle;font-size:10px;fill:"+color)
}

// fit scales the bounding box of points to the canvas width, keeping the
// aspect ratio, and returns the canvas height.
func fit(points []geometry.Point, opts Options) (projection, int) {
	proj := projection{scale: 1, margin: opts.Margin}
	if len(points) == 0 {
		return proj, 2 * opts.Margin
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	proj.minX, proj.maxY = minX, maxY

	inner := float64(opts.Width - 2*opts.Margin)
	if span := maxX - minX; span > 0 {
		proj.scale = inner / span
	} else if span := maxY - minY; span > 0 {
		proj.scale = inner / span
	}
	height := int(math.Ceil((maxY-minY)*proj.scale)) + 2*opts.Margin
	return proj, height
}
