// Package drawing reads the geometry and text of a wiring drawing from a
// YAML or JSON document.
//
// A document looks like:
//
//	name: station-1
//	polylines:
//	  - [[0, 0], [10, 0], [10, 5]]
//	texts:
//	  - text: "S1-01-1-01"
//	    position: [5, 2]
package drawing

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pvtag/pvtag/pkg/geometry"
)

// ErrRead is wrapped by every failure to load a document.
var ErrRead = errors.New("cannot read drawing")

// Text is a raw text entity and its insertion point.
type Text struct {
	Raw      string
	Position geometry.Point
}

// Document is the subset of a drawing the matcher needs.
type Document struct {
	Name      string
	Polylines [][]geometry.Point
	Texts     []Text
}

// vertex decodes a [x, y] pair.
type vertex geometry.Point

func (v *vertex) UnmarshalYAML(node *yaml.Node) error {
	var pair []float64
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("line %d: vertex must be a [x, y] pair: %w", node.Line, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("line %d: vertex must have 2 coordinates, got %d", node.Line, len(pair))
	}
	*v = vertex{X: pair[0], Y: pair[1]}
	return nil
}

type textDoc struct {
	Text     string  `yaml:"text"`
	Position *vertex `yaml:"position"`
}

type document struct {
	Name      string     `yaml:"name"`
	Polylines [][]vertex `yaml:"polylines"`
	Texts     []textDoc  `yaml:"texts"`
}

// Read loads a document from path.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	doc, err := ReadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ReadBytes decodes an in-memory document.
func ReadBytes(data []byte) (*Document, error) {
	var raw document
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	doc := &Document{Name: raw.Name}
	for _, pl := range raw.Polylines {
		points := make([]geometry.Point, len(pl))
		for i, v := range pl {
			points[i] = geometry.Point(v)
		}
		doc.Polylines = append(doc.Polylines, points)
	}
	for i, t := range raw.Texts {
		if t.Position == nil {
			return nil, fmt.Errorf("%w: text %d (%q) has no position", ErrRead, i+1, t.Text)
		}
		doc.Texts = append(doc.Texts, Text{Raw: t.Text, Position: geometry.Point(*t.Position)})
	}
	return doc, nil
}
