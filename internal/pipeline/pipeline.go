// Package pipeline runs a drawing through extraction, merging and
// automatic assignment, and hands the result to an assignment manager.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pvtag/pvtag/internal/assign"
	"github.com/pvtag/pvtag/internal/drawing"
	"github.com/pvtag/pvtag/internal/extract"
	"github.com/pvtag/pvtag/internal/manager"
	"github.com/pvtag/pvtag/internal/model"
)

var (
	// ErrDocumentRead aborts a run before any manager exists.
	ErrDocumentRead = errors.New("document read failure")
	// ErrNoGeometry is reported as a warning when no horizontal segment
	// survives extraction.
	ErrNoGeometry = errors.New("no geometry found")
	// ErrNoLabels is reported as a warning when the drawing has no usable
	// label.
	ErrNoLabels = errors.New("no labels found")
)

// FieldParser splits raw label text into named fields. It reports false when
// the text does not fit.
type FieldParser interface {
	Parse(raw string) (map[string]string, bool)
}

// Reader loads a drawing document.
type Reader interface {
	Read(path string) (*drawing.Document, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(path string) (*drawing.Document, error)

// Read calls f(path).
func (f ReaderFunc) Read(path string) (*drawing.Document, error) { return f(path) }

// FileReader reads drawings from disk.
var FileReader Reader = ReaderFunc(drawing.Read)

// Stats describes a run.
type Stats struct {
	Polylines        int
	Segments         int
	Rejected         int
	Merged           int
	Labels           int
	Parsed           int
	Offered          int
	DroppedByStation int
	Groups           int
	Durations        map[string]time.Duration
}

// Session is the result of a successful run.
type Session struct {
	Name      string
	Station   string
	Manager   *manager.Manager
	Labels    []model.Label
	Polylines []model.Polyline
	Stats     Stats
	Warnings  []error
}

// Outcome is delivered by Start.
type Outcome struct {
	Session *Session
	Err     error
}

// Run executes the whole pipeline. A read failure or cancellation returns a
// nil session; missing geometry or labels only add warnings.
func Run(ctx context.Context, reader Reader, path string, parser FieldParser, params Params) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	stats := Stats{Durations: make(map[string]time.Duration)}
	phase := func(name string, start time.Time) {
		stats.Durations[name] = time.Since(start)
	}

	start := time.Now()
	doc, err := reader.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentRead, err)
	}
	phase("read", start)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cancelled after read: %w", err)
	}

	// Label parsing and segment extraction are independent.
	start = time.Now()
	var (
		labels    []model.Label
		polylines []model.Polyline
		exStats   extract.Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		labels = parseLabels(doc.Labels(), parser)
		return gctx.Err()
	})
	g.Go(func() error {
		polylines, exStats = extract.Extract(doc.Polylines, params.Extract)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cancelled during extraction: %w", err)
	}
	phase("extract", start)
	stats.Polylines = len(polylines)
	stats.Segments = exStats.Kept
	stats.Rejected = exStats.Rejected
	stats.Labels = len(labels)
	for _, l := range labels {
		if l.Parsed() {
			stats.Parsed++
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cancelled after extraction: %w", err)
	}

	if params.Merge {
		start = time.Now()
		polylines, stats.Merged = extract.MergePolylines(polylines, params.MergeOpt)
		stats.Segments -= stats.Merged
		phase("merge", start)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cancelled after merge: %w", err)
		}
	}

	kept, offered := scopeLabels(labels, params)
	stats.DroppedByStation = len(labels) - len(kept)
	stats.Offered = len(offered)
	labels = kept

	start = time.Now()
	auto := assign.Run(offered, polylines, params.Assign)
	stats.Groups = len(auto.Groups)
	phase("assign", start)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cancelled after assignment: %w", err)
	}

	initial := make([]manager.Group, len(auto.Groups))
	for i, g := range auto.Groups {
		initial[i] = manager.Group{TextID: g.LabelID, SegmentIDs: g.SegmentIDs}
	}

	session := &Session{
		Name:      doc.Name,
		Station:   params.Station,
		Manager:   manager.New(labels, polylines, initial, params.Manager),
		Labels:    labels,
		Polylines: polylines,
		Stats:     stats,
	}
	if stats.Segments == 0 {
		session.Warnings = append(session.Warnings, fmt.Errorf("%w in %s", ErrNoGeometry, path))
	}
	if len(labels) == 0 {
		session.Warnings = append(session.Warnings, fmt.Errorf("%w in %s", ErrNoLabels, path))
	}
	for _, w := range session.Warnings {
		slog.Warn("pipeline warning", "error", w)
	}

	slog.Info("pipeline finished",
		"path", path,
		"polylines", stats.Polylines,
		"segments", stats.Segments,
		"rejected", stats.Rejected,
		"merged", stats.Merged,
		"labels", stats.Labels,
		"offered", stats.Offered,
		"groups", stats.Groups,
	)
	return session, nil
}

// Start runs the pipeline on its own goroutine and delivers exactly one
// Outcome on the returned channel.
func Start(ctx context.Context, reader Reader, path string, parser FieldParser, params Params) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		session, err := Run(ctx, reader, path, parser, params)
		out <- Outcome{Session: session, Err: err}
	}()
	return out
}

// parseLabels attaches parsed fields to each label. A nil parser leaves
// every label unparsed.
func parseLabels(labels []model.Label, parser FieldParser) []model.Label {
	if parser == nil {
		return labels
	}
	for i := range labels {
		if fields, ok := parser.Parse(labelText(labels[i])); ok {
			labels[i].Fields = fields
		}
	}
	return labels
}

// labelText is the decoded drawing text of a label. Unlike the ID it never
// carries a "#N" instance suffix.
func labelText(l model.Label) string {
	if l.RawText == "" {
		return l.ID
	}
	return drawing.DecodeLabel(l.RawText)
}

// scopeLabels decides which labels stay in the session and which are
// offered to the automatic engine. With a station filter, labels of other
// stations are dropped and unparsed labels stay for manual use only.
func scopeLabels(labels []model.Label, params Params) (kept, offered []model.Label) {
	if !params.stationScoped() {
		return labels, labels
	}
	for _, l := range labels {
		if !l.Parsed() {
			kept = append(kept, l)
			continue
		}
		station, _ := l.Field("station")
		if !strings.EqualFold(station, params.Station) {
			continue
		}
		kept = append(kept, l)
		offered = append(offered, l)
	}
	return kept, offered
}
