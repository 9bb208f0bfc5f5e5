// Package export serializes the state of an assignment manager as a JSON
// document for downstream tools.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pvtag/pvtag/internal/manager"
	"github.com/pvtag/pvtag/internal/model"
	"github.com/pvtag/pvtag/pkg/geometry"
	"github.com/pvtag/pvtag/pkg/labelformat"
)

// Segment is an exported segment with its display number.
type Segment struct {
	ID         int            `json:"id"`
	Number     int            `json:"number"`
	Start      geometry.Point `json:"start"`
	End        geometry.Point `json:"end"`
	Length     float64        `json:"length"`
	PolylineID int            `json:"polyline_id"`
	MergedFrom []int          `json:"merged_from,omitempty"`
}

// Assignment is one label and the segments it owns.
type Assignment struct {
	Label       string            `json:"label"`
	DisplayName string            `json:"display_name"`
	RawText     string            `json:"raw_text,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Custom      bool              `json:"custom,omitempty"`
	Segments    []Segment         `json:"segments"`
}

// Text is an unassigned label.
type Text struct {
	Label    string          `json:"label"`
	RawText  string          `json:"raw_text,omitempty"`
	Position *geometry.Point `json:"position,omitempty"`
	Custom   bool            `json:"custom,omitempty"`
}

// Document is the exported session.
type Document struct {
	SessionID          string            `json:"session_id"`
	CreatedAt          time.Time         `json:"created_at"`
	Drawing            string            `json:"drawing,omitempty"`
	Station            string            `json:"station,omitempty"`
	Assignments        []Assignment      `json:"assignments"`
	UnassignedTexts    []Text            `json:"unassigned_texts"`
	UnassignedSegments []Segment         `json:"unassigned_segments"`
	Orphans            []manager.Orphan  `json:"orphans"`
	ChangeLog          manager.ChangeLog `json:"change_log"`
}

// Meta describes where the session came from.
type Meta struct {
	Drawing string
	Station string
}

// Options controls how the document is built.
type Options struct {
	// OutputPattern renders display names from parsed fields. Empty keeps
	// the label ID.
	OutputPattern string
	Now           func() time.Time
	NewID         func() uuid.UUID
}

// Build captures the manager's current state.
func Build(m *manager.Manager, meta Meta, opts Options) *Document {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	newID := uuid.New
	if opts.NewID != nil {
		newID = opts.NewID
	}

	doc := &Document{
		SessionID:          newID().String(),
		CreatedAt:          now().UTC(),
		Drawing:            meta.Drawing,
		Station:            meta.Station,
		Assignments:        []Assignment{},
		UnassignedTexts:    []Text{},
		UnassignedSegments: []Segment{},
		Orphans:            m.Orphans(),
		ChangeLog:          m.ChangeLog(),
	}
	if doc.Orphans == nil {
		doc.Orphans = []manager.Orphan{}
	}

	for _, g := range m.Relation() {
		a := Assignment{
			Label:       g.TextID,
			DisplayName: displayName(m, g.TextID, opts.OutputPattern),
			Custom:      m.IsCustom(g.TextID),
		}
		if l, ok := m.Label(g.TextID); ok {
			a.RawText = l.RawText
			a.Fields = l.Fields
		}
		for _, id := range g.SegmentIDs {
			a.Segments = append(a.Segments, segment(m, id))
		}
		doc.Assignments = append(doc.Assignments, a)
	}

	for _, id := range m.UnassignedTexts() {
		t := Text{Label: id, Custom: m.IsCustom(id)}
		if l, ok := m.Label(id); ok {
			pos := l.Position
			t.RawText = l.RawText
			t.Position = &pos
		}
		doc.UnassignedTexts = append(doc.UnassignedTexts, t)
	}

	for _, id := range m.UnassignedSegments() {
		doc.UnassignedSegments = append(doc.UnassignedSegments, segment(m, id))
	}
	return doc
}

func segment(m *manager.Manager, id int) Segment {
	s, _ := m.Segment(id)
	return fromModel(s, m.SVGNumber(id))
}

func fromModel(s model.Segment, number int) Segment {
	return Segment{
		ID:         s.ID,
		Number:     number,
		Start:      s.Start,
		End:        s.End,
		Length:     s.Length,
		PolylineID: s.PolylineID,
		MergedFrom: s.MergedFrom,
	}
}

// displayName renders a label through the output pattern, falling back to
// the label ID when there is no pattern, no parse, or a render error.
func displayName(m *manager.Manager, id, pattern string) string {
	if pattern == "" {
		return id
	}
	l, ok := m.Label(id)
	if !ok || !l.Parsed() {
		return id
	}
	name, err := labelformat.Format(pattern, l.Fields)
	if err != nil {
		slog.Debug("display name fallback", "label", id, "error", err)
		return id
	}
	return name
}

// Write encodes the document as indented JSON.
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// WriteFile writes the document to path, replacing any existing file.
func WriteFile(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Write(f, doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	slog.Info("export written", "path", path, "assignments", len(doc.Assignments))
	return nil
}
