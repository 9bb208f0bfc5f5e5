package manager

// RebuildNumbering recomputes the display numbers: segments of the relation
// first, group by group, then unassigned segments by ascending ID. Numbers
// start at 1 and are dense.
func (m *Manager) RebuildNumbering() {
	numbering := make(map[int]int, len(m.segments))
	next := 1
	for _, text := range m.order {
		for _, id := range m.owned[text] {
			numbering[id] = next
			next++
		}
	}
	for _, id := range m.segmentOrder {
		if m.unassignedSegments[id] {
			numbering[id] = next
			next++
		}
	}
	m.numbering = numbering
}

// SVGNumber returns the display number of a segment, or 0 when the segment
// is unknown.
func (m *Manager) SVGNumber(segmentID int) int {
	return m.numbering[segmentID]
}

// Numbering returns a copy of the numbering cache.
func (m *Manager) Numbering() map[int]int {
	out := make(map[int]int, len(m.numbering))
	for k, v := range m.numbering {
		out[k] = v
	}
	return out
}
