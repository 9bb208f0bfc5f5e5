// Package manager owns the label → segment relation after automatic
// assignment and applies manual corrections to it.
//
// The relation, the two unassigned pools and the numbering cache change
// together: every operation either updates all of them or reports failure
// and leaves them untouched. A Manager is not safe for concurrent use.
package manager

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/pvtag/pvtag/internal/model"
)

// Group is a label and the segments it owns, in attachment order.
type Group struct {
	TextID     string `json:"text"`
	SegmentIDs []int  `json:"segments"`
}

func (g Group) clone() Group {
	return Group{TextID: g.TextID, SegmentIDs: slices.Clone(g.SegmentIDs)}
}

// Pair is one label/segment link.
type Pair struct {
	TextID    string `json:"text"`
	SegmentID int    `json:"segment"`
}

// ChangeLog summarizes manual edits since construction or the last reset.
type ChangeLog struct {
	NewAssignments []Pair   `json:"new_assignments"`
	SkippedTexts   []string `json:"skipped_texts"`
}

func (c ChangeLog) clone() ChangeLog {
	return ChangeLog{
		NewAssignments: cloneOrNil(c.NewAssignments),
		SkippedTexts:   cloneOrNil(c.SkippedTexts),
	}
}

// cloneOrNil copies s, mapping an empty slice to nil.
func cloneOrNil[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}

// Options configures a Manager.
type Options struct {
	// Suggest, when set, proposes known label IDs close to an unknown one.
	// The suggestions are appended to not-found messages.
	Suggest func(query string, candidates []string) []string
}

// Manager holds the mutable assignment state of one session.
type Manager struct {
	opts Options

	labels     map[string]model.Label
	labelOrder []string // every known label ID, records first, then custom IDs
	custom     map[string]bool

	segments     map[int]model.Segment
	segmentOrder []int // ascending

	order []string         // relation entries in group order
	owned map[string][]int // label ID → segment IDs
	owner map[int]string   // segment ID → label ID

	unassignedTexts    map[string]bool
	unassignedSegments map[int]bool

	numbering map[int]int
	log       ChangeLog

	original       []Group
	originalCustom []string
}

// New builds a manager over the session's labels and segments, seeded with
// an initial relation. Initial entries naming a label without a record keep
// that ID as a custom label. Segment IDs that are unknown or already claimed
// by an earlier entry are dropped.
func New(labels []model.Label, polylines []model.Polyline, initial []Group, opts Options) *Manager {
	m := &Manager{
		opts:     opts,
		labels:   make(map[string]model.Label, len(labels)),
		custom:   make(map[string]bool),
		segments: model.SegmentIndex(polylines),
	}

	for _, l := range labels {
		if _, dup := m.labels[l.ID]; dup {
			slog.Warn("duplicate label ignored", "label", l.ID)
			continue
		}
		m.labels[l.ID] = l
		m.labelOrder = append(m.labelOrder, l.ID)
	}

	m.segmentOrder = slices.Sorted(maps.Keys(m.segments))

	seen := make(map[int]bool)
	for _, g := range initial {
		if g.TextID == "" {
			continue
		}
		if _, known := m.labels[g.TextID]; !known && !m.custom[g.TextID] {
			m.custom[g.TextID] = true
			m.labelOrder = append(m.labelOrder, g.TextID)
			m.originalCustom = append(m.originalCustom, g.TextID)
		}

		clean := Group{TextID: g.TextID}
		for _, id := range g.SegmentIDs {
			if _, known := m.segments[id]; !known || seen[id] {
				slog.Warn("initial segment dropped", "label", g.TextID, "segment", id, "known", known)
				continue
			}
			seen[id] = true
			clean.SegmentIDs = append(clean.SegmentIDs, id)
		}
		if len(clean.SegmentIDs) == 0 {
			continue
		}
		if i := slices.IndexFunc(m.original, func(o Group) bool { return o.TextID == g.TextID }); i >= 0 {
			m.original[i].SegmentIDs = append(m.original[i].SegmentIDs, clean.SegmentIDs...)
			continue
		}
		m.original = append(m.original, clean)
	}

	m.load(m.original)
	slog.Debug("assignment manager ready",
		"labels", len(m.labelOrder),
		"segments", len(m.segmentOrder),
		"groups", len(m.order),
		"custom", len(m.custom),
	)
	return m
}

// load replaces the relation with groups and rederives pools and numbering.
func (m *Manager) load(groups []Group) {
	m.order = make([]string, 0, len(groups))
	m.owned = make(map[string][]int, len(groups))
	m.owner = make(map[int]string, len(m.segments))
	for _, g := range groups {
		m.order = append(m.order, g.TextID)
		m.owned[g.TextID] = slices.Clone(g.SegmentIDs)
		for _, id := range g.SegmentIDs {
			m.owner[id] = g.TextID
		}
	}

	m.unassignedTexts = make(map[string]bool)
	for _, id := range m.labelOrder {
		if len(m.owned[id]) == 0 {
			m.unassignedTexts[id] = true
		}
	}
	m.unassignedSegments = make(map[int]bool)
	for _, id := range m.segmentOrder {
		if _, taken := m.owner[id]; !taken {
			m.unassignedSegments[id] = true
		}
	}
	m.RebuildNumbering()
}

func (m *Manager) knownLabel(id string) bool {
	if _, ok := m.labels[id]; ok {
		return true
	}
	return m.custom[id]
}

// Label returns the record for a label ID. Custom labels have no record.
func (m *Manager) Label(id string) (model.Label, bool) {
	l, ok := m.labels[id]
	return l, ok
}

// Segment returns the segment with the given ID.
func (m *Manager) Segment(id int) (model.Segment, bool) {
	s, ok := m.segments[id]
	return s, ok
}

// IsCustom reports whether id was registered without a label record.
func (m *Manager) IsCustom(id string) bool {
	return m.custom[id]
}

// LabelIDs returns every known label ID: label records in input order, then
// custom IDs in registration order.
func (m *Manager) LabelIDs() []string {
	return slices.Clone(m.labelOrder)
}

// SegmentIDs returns every segment ID in ascending order.
func (m *Manager) SegmentIDs() []int {
	return slices.Clone(m.segmentOrder)
}

// Relation returns a copy of the current relation in group order.
func (m *Manager) Relation() []Group {
	groups := make([]Group, 0, len(m.order))
	for _, id := range m.order {
		groups = append(groups, Group{TextID: id, SegmentIDs: slices.Clone(m.owned[id])})
	}
	return groups
}

// Segments returns the segment IDs owned by a label.
func (m *Manager) Segments(textID string) []int {
	return slices.Clone(m.owned[textID])
}

// Owner reports which label owns a segment.
func (m *Manager) Owner(segmentID int) (string, bool) {
	id, ok := m.owner[segmentID]
	return id, ok
}

// UnassignedTexts returns the labels that own no segment, in label order.
func (m *Manager) UnassignedTexts() []string {
	var out []string
	for _, id := range m.labelOrder {
		if m.unassignedTexts[id] {
			out = append(out, id)
		}
	}
	return out
}

// UnassignedSegments returns the segments owned by no label, ascending.
func (m *Manager) UnassignedSegments() []int {
	var out []int
	for _, id := range m.segmentOrder {
		if m.unassignedSegments[id] {
			out = append(out, id)
		}
	}
	return out
}

// ChangeLog returns a copy of the change log.
func (m *Manager) ChangeLog() ChangeLog {
	return m.log.clone()
}

// Original returns a copy of the relation captured at construction.
func (m *Manager) Original() []Group {
	groups := make([]Group, len(m.original))
	for i, g := range m.original {
		groups[i] = g.clone()
	}
	return groups
}

// OrphanReason explains why a label ID is an orphan.
type OrphanReason string

const (
	// OrphanNoRecord marks a relation entry whose label has no record.
	OrphanNoRecord OrphanReason = "no-record"
	// OrphanNoGeometry marks a custom label that owns no segments.
	OrphanNoGeometry OrphanReason = "no-geometry"
)

// Orphan is a label ID that cannot be tied to both a record and geometry.
type Orphan struct {
	TextID string       `json:"text"`
	Reason OrphanReason `json:"reason"`
}

// Orphans lists relation entries without a label record, then custom labels
// without geometry.
func (m *Manager) Orphans() []Orphan {
	var out []Orphan
	for _, id := range m.order {
		if _, ok := m.labels[id]; !ok {
			out = append(out, Orphan{TextID: id, Reason: OrphanNoRecord})
		}
	}
	for _, id := range m.labelOrder {
		if m.custom[id] && len(m.owned[id]) == 0 {
			out = append(out, Orphan{TextID: id, Reason: OrphanNoGeometry})
		}
	}
	return out
}

// Validate checks the partition of labels and segments between the
// relation and the pools.
func (m *Manager) Validate() error {
	counts := make(map[int]int, len(m.segments))
	for _, id := range m.order {
		segs := m.owned[id]
		if len(segs) == 0 {
			return fmt.Errorf("label %s is in the relation without segments", id)
		}
		if m.unassignedTexts[id] {
			return fmt.Errorf("label %s is both assigned and unassigned", id)
		}
		if !m.knownLabel(id) {
			return fmt.Errorf("label %s is in the relation but unknown", id)
		}
		for _, s := range segs {
			counts[s]++
			if m.owner[s] != id {
				return fmt.Errorf("segment %d is listed under %s but owned by %q", s, id, m.owner[s])
			}
		}
	}
	if len(m.owned) != len(m.order) {
		return fmt.Errorf("relation has %d entries but %d ordered groups", len(m.owned), len(m.order))
	}
	for s := range m.unassignedSegments {
		counts[s]++
	}
	for _, s := range m.segmentOrder {
		if counts[s] != 1 {
			return fmt.Errorf("segment %d appears %d times across relation and pool", s, counts[s])
		}
	}
	if len(counts) != len(m.segmentOrder) {
		return fmt.Errorf("relation or pool references unknown segments")
	}
	for _, id := range m.labelOrder {
		assigned := len(m.owned[id]) > 0
		if assigned == m.unassignedTexts[id] {
			return fmt.Errorf("label %s is assigned=%t and pooled=%t", id, assigned, m.unassignedTexts[id])
		}
	}
	if len(m.unassignedTexts) > len(m.labelOrder) {
		return fmt.Errorf("text pool holds unknown labels")
	}
	return nil
}

// notFoundLabel builds a not-found result for an unknown label ID, with
// suggestions when configured.
func (m *Manager) notFoundLabel(id string) Result {
	msg := fmt.Sprintf("label %q not found", id)
	if m.opts.Suggest != nil {
		if s := m.opts.Suggest(id, m.labelOrder); len(s) > 0 {
			msg += fmt.Sprintf(" (did you mean %q?)", s[0])
		}
	}
	return fail(KindNotFound, ErrNotFound, "%s", msg)
}
