package manager

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// detach unlinks a segment from its owner. A label left without segments
// leaves the relation and returns to the text pool.
func (m *Manager) detach(textID string, segmentID int) RemovalNote {
	segs := m.owned[textID]
	if i := slices.Index(segs, segmentID); i >= 0 {
		segs = slices.Delete(segs, i, i+1)
	}
	if len(segs) == 0 {
		delete(m.owned, textID)
		if i := slices.Index(m.order, textID); i >= 0 {
			m.order = slices.Delete(m.order, i, i+1)
		}
		m.unassignedTexts[textID] = true
	} else {
		m.owned[textID] = segs
	}
	delete(m.owner, segmentID)
	m.unassignedSegments[segmentID] = true
	return RemovalNote{TextID: textID, SegmentID: segmentID}
}

// attach links a segment to a label, appending the label to the relation
// when it owned nothing.
func (m *Manager) attach(textID string, segmentID int) {
	if _, ok := m.owned[textID]; !ok {
		m.order = append(m.order, textID)
	}
	m.owned[textID] = append(m.owned[textID], segmentID)
	m.owner[segmentID] = textID
	delete(m.unassignedSegments, segmentID)
	delete(m.unassignedTexts, textID)
}

func (m *Manager) dropNewAssignment(textID string, segmentID int) {
	m.log.NewAssignments = slices.DeleteFunc(m.log.NewAssignments, func(p Pair) bool {
		return p.TextID == textID && p.SegmentID == segmentID
	})
}

// Assign links segmentID to textID, taking it away from its previous owner
// if there was one.
func (m *Manager) Assign(textID string, segmentID int) Result {
	if !m.knownLabel(textID) {
		return m.notFoundLabel(textID)
	}
	if _, ok := m.segments[segmentID]; !ok {
		return fail(KindNotFound, ErrNotFound, "segment %d not found", segmentID)
	}
	prev, taken := m.owner[segmentID]
	if taken && prev == textID {
		return fail(KindAlreadyAssigned, ErrAlreadyAssigned, "segment %d is already assigned to %s", segmentID, textID)
	}

	res := Result{Success: true, Kind: KindOK}
	res.Reassigned = taken || len(m.owned[textID]) > 0
	if taken {
		res.Removed = append(res.Removed, m.detach(prev, segmentID))
		m.dropNewAssignment(prev, segmentID)
	}
	m.attach(textID, segmentID)

	m.log.NewAssignments = append(m.log.NewAssignments, Pair{TextID: textID, SegmentID: segmentID})
	m.log.SkippedTexts = slices.DeleteFunc(m.log.SkippedTexts, func(id string) bool { return id == textID })
	m.RebuildNumbering()

	if taken {
		res.Message = fmt.Sprintf("assigned segment %d to %s (taken from %s)", segmentID, textID, prev)
	} else {
		res.Message = fmt.Sprintf("assigned segment %d to %s", segmentID, textID)
	}
	slog.Debug("assign", "text", textID, "segment", segmentID, "previous", prev, "reassigned", res.Reassigned)
	return res
}

// Remove unlinks segmentID from textID.
func (m *Manager) Remove(textID string, segmentID int) Result {
	if owner, ok := m.owner[segmentID]; !ok || owner != textID {
		return fail(KindNotFound, ErrNotFound, "segment %d is not assigned to %s", segmentID, textID)
	}

	note := m.detach(textID, segmentID)
	m.dropNewAssignment(textID, segmentID)
	m.RebuildNumbering()

	res := succeed("removed segment %d from %s", segmentID, textID)
	res.Removed = []RemovalNote{note}
	if m.unassignedTexts[textID] {
		res.Message += "; label is now unassigned"
	}
	slog.Debug("remove", "text", textID, "segment", segmentID)
	return res
}

// Skip releases every segment a label owns and records it as skipped. The
// label itself stays known.
func (m *Manager) Skip(textID string) Result {
	if !m.knownLabel(textID) {
		return m.notFoundLabel(textID)
	}

	var notes []RemovalNote
	for _, id := range slices.Clone(m.owned[textID]) {
		notes = append(notes, m.detach(textID, id))
	}
	m.log.NewAssignments = slices.DeleteFunc(m.log.NewAssignments, func(p Pair) bool { return p.TextID == textID })
	if !slices.Contains(m.log.SkippedTexts, textID) {
		m.log.SkippedTexts = append(m.log.SkippedTexts, textID)
	}
	m.RebuildNumbering()

	res := succeed("skipped %s", textID)
	if len(notes) > 0 {
		res.Message += fmt.Sprintf(", released %d segment(s)", len(notes))
	}
	res.Removed = notes
	slog.Debug("skip", "text", textID, "released", len(notes))
	return res
}

// Swap exchanges the segment lists of two labels that both own segments.
// Each label keeps its position in the relation.
func (m *Manager) Swap(a, b string) Result {
	for _, id := range []string{a, b} {
		if len(m.owned[id]) == 0 {
			if !m.knownLabel(id) {
				return m.notFoundLabel(id)
			}
			return fail(KindNotFound, ErrNotFound, "label %s owns no segments", id)
		}
	}
	if a == b {
		return succeed("nothing to swap: %s with itself", a)
	}

	segsA, segsB := m.owned[a], m.owned[b]
	m.owned[a], m.owned[b] = segsB, segsA
	for _, id := range segsB {
		m.owner[id] = a
	}
	for _, id := range segsA {
		m.owner[id] = b
	}

	m.log.NewAssignments = slices.DeleteFunc(m.log.NewAssignments, func(p Pair) bool {
		return p.TextID == a || p.TextID == b
	})
	for _, id := range segsB {
		m.log.NewAssignments = append(m.log.NewAssignments, Pair{TextID: a, SegmentID: id})
	}
	for _, id := range segsA {
		m.log.NewAssignments = append(m.log.NewAssignments, Pair{TextID: b, SegmentID: id})
	}
	m.RebuildNumbering()

	res := succeed("swapped %s and %s", a, b)
	res.Reassigned = true
	slog.Debug("swap", "a", a, "b", b, "a_segments", segsB, "b_segments", segsA)
	return res
}

// ResetToOriginal restores the relation captured at construction, forgets
// custom labels registered since then and clears the change log.
func (m *Manager) ResetToOriginal() Result {
	for id := range m.custom {
		if !slices.Contains(m.originalCustom, id) {
			delete(m.custom, id)
			if i := slices.Index(m.labelOrder, id); i >= 0 {
				m.labelOrder = slices.Delete(m.labelOrder, i, i+1)
			}
		}
	}
	m.load(m.original)
	m.log = ChangeLog{}

	slog.Debug("reset to original", "groups", len(m.order))
	return succeed("restored %d original assignment(s)", len(m.order))
}

// RegisterCustomLabel adds a label ID that has no record in the drawing.
// It starts unassigned. IDs are taken verbatim, so surrounding whitespace is
// rejected rather than trimmed.
func (m *Manager) RegisterCustomLabel(id string) Result {
	if id == "" {
		return fail(KindInvalid, ErrInvalid, "custom label ID must not be empty")
	}
	if strings.TrimSpace(id) != id {
		return fail(KindInvalid, ErrInvalid, "custom label ID %q has surrounding whitespace", id)
	}
	if m.knownLabel(id) {
		return fail(KindInvalid, ErrInvalid, "label %s already exists", id)
	}

	m.custom[id] = true
	m.labelOrder = append(m.labelOrder, id)
	m.unassignedTexts[id] = true

	slog.Debug("custom label registered", "text", id)
	return succeed("registered custom label %s", id)
}
