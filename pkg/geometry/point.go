// Package geometry provides the planar primitives shared by segment extraction
// and label assignment. Coordinates follow drawing convention: Y grows upward.
package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

// Point is an immutable 2D coordinate in drawing units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint creates a new Point.
func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Vec converts the point to a gonum vector.
func (p Point) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// FromVec converts a gonum vector back to a Point.
func FromVec(v r2.Vec) Point {
	return Point{X: v.X, Y: v.Y}
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	return Distance(p, other)
}

func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(a.Vec(), b.Vec()))
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return FromVec(r2.Scale(0.5, r2.Add(a.Vec(), b.Vec())))
}

// Centroid returns the arithmetic mean of the points, or the origin for an
// empty set.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return Point{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}
}

// Span returns the smaller and larger X of two points.
func Span(a, b Point) (minX, maxX float64) {
	if a.X <= b.X {
		return a.X, b.X
	}
	return b.X, a.X
}
