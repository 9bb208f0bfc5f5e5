package manager

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvtag/pvtag/internal/model"
	"github.com/pvtag/pvtag/pkg/geometry"
)

func seg(id, polyline int, x float64) model.Segment {
	start, end := geometry.NewPoint(x, 0), geometry.NewPoint(x+4, 0)
	return model.Segment{ID: id, Start: start, End: end, Length: 4, PolylineID: polyline}
}

// fixture: A owns [1 2], B owns [3]; C and segments 4, 5 are unassigned.
func fixture(t *testing.T, opts Options) *Manager {
	t.Helper()
	labels := []model.Label{
		{ID: "A", Position: geometry.NewPoint(0, 1)},
		{ID: "B", Position: geometry.NewPoint(10, 1)},
		{ID: "C", Position: geometry.NewPoint(20, 1)},
	}
	polylines := []model.Polyline{
		{ID: 1, Segments: []model.Segment{seg(1, 1, 0), seg(2, 1, 5)}},
		{ID: 2, Segments: []model.Segment{seg(3, 2, 10)}},
		{ID: 3, Segments: []model.Segment{seg(4, 3, 20), seg(5, 3, 25)}},
	}
	initial := []Group{
		{TextID: "A", SegmentIDs: []int{1, 2}},
		{TextID: "B", SegmentIDs: []int{3}},
	}
	m := New(labels, polylines, initial, opts)
	require.NoError(t, m.Validate())
	return m
}

func TestNewDerivesPools(t *testing.T) {
	m := fixture(t, Options{})

	assert.Equal(t, []string{"C"}, m.UnassignedTexts())
	assert.Equal(t, []int{4, 5}, m.UnassignedSegments())
	assert.Equal(t, []Group{
		{TextID: "A", SegmentIDs: []int{1, 2}},
		{TextID: "B", SegmentIDs: []int{3}},
	}, m.Relation())
	assert.Empty(t, m.Orphans())
}

func TestNewDropsBadInitialSegments(t *testing.T) {
	labels := []model.Label{{ID: "A"}, {ID: "B"}}
	polylines := []model.Polyline{{ID: 1, Segments: []model.Segment{seg(1, 1, 0), seg(2, 1, 5)}}}
	initial := []Group{
		{TextID: "A", SegmentIDs: []int{1, 99}},
		{TextID: "B", SegmentIDs: []int{1, 2}},
	}

	m := New(labels, polylines, initial, Options{})

	require.NoError(t, m.Validate())
	assert.Equal(t, []int{1}, m.Segments("A"))
	assert.Equal(t, []int{2}, m.Segments("B"))
}

func TestNumbering(t *testing.T) {
	m := fixture(t, Options{})

	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 3, 4: 4, 5: 5}, m.Numbering())
	assert.Equal(t, 0, m.SVGNumber(42))

	require.True(t, m.Assign("C", 5).Success)
	// C joins the relation after B; segment 4 is the only one left unassigned.
	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 3, 5: 4, 4: 5}, m.Numbering())
}

func TestNumberingRebuildIsIdempotent(t *testing.T) {
	m := fixture(t, Options{})
	m.Assign("C", 4)
	m.Remove("A", 1)

	before := m.Numbering()
	m.RebuildNumbering()
	assert.Equal(t, before, m.Numbering())
	m.RebuildNumbering()
	assert.Equal(t, before, m.Numbering())
}

func TestAssignFresh(t *testing.T) {
	m := fixture(t, Options{})

	res := m.Assign("C", 4)

	require.True(t, res.Success, res.Message)
	assert.Equal(t, KindOK, res.Kind)
	assert.False(t, res.Reassigned)
	assert.Empty(t, res.Removed)
	assert.Equal(t, []int{4}, m.Segments("C"))
	assert.Empty(t, m.UnassignedTexts())
	assert.Equal(t, []int{5}, m.UnassignedSegments())
	assert.Equal(t, []Pair{{TextID: "C", SegmentID: 4}}, m.ChangeLog().NewAssignments)
	require.NoError(t, m.Validate())
}

func TestAssignStealsSegment(t *testing.T) {
	m := fixture(t, Options{})

	res := m.Assign("C", 3)

	require.True(t, res.Success, res.Message)
	assert.True(t, res.Reassigned)
	assert.Equal(t, []RemovalNote{{TextID: "B", SegmentID: 3}}, res.Removed)
	owner, ok := m.Owner(3)
	require.True(t, ok)
	assert.Equal(t, "C", owner)
	// B lost its last segment.
	assert.Equal(t, []string{"B"}, m.UnassignedTexts())
	assert.Equal(t, []string{"A", "C"}, groupIDs(m.Relation()))
	require.NoError(t, m.Validate())
}

func TestAssignExtendsLabel(t *testing.T) {
	m := fixture(t, Options{})

	res := m.Assign("A", 4)

	require.True(t, res.Success)
	assert.True(t, res.Reassigned)
	assert.Equal(t, []int{1, 2, 4}, m.Segments("A"))
	require.NoError(t, m.Validate())
}

func TestAssignFailures(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		segment  int
		wantKind Kind
		wantErr  error
	}{
		{"unknown label", "Z", 4, KindNotFound, ErrNotFound},
		{"unknown segment", "C", 99, KindNotFound, ErrNotFound},
		{"already linked", "A", 1, KindAlreadyAssigned, ErrAlreadyAssigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fixture(t, Options{})
			before := snapshot(m)

			res := m.Assign(tt.text, tt.segment)

			assert.False(t, res.Success)
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.True(t, errors.Is(res.Err, tt.wantErr), "error %v should wrap %v", res.Err, tt.wantErr)
			assert.NotEmpty(t, res.Message)
			assert.Equal(t, before, snapshot(m))
		})
	}
}

func TestNotFoundSuggestion(t *testing.T) {
	m := fixture(t, Options{
		Suggest: func(query string, candidates []string) []string {
			for _, c := range candidates {
				if strings.EqualFold(c, query) {
					return []string{c}
				}
			}
			return nil
		},
	})

	res := m.Assign("c", 4)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, `did you mean "C"?`)
}

func TestRemove(t *testing.T) {
	m := fixture(t, Options{})

	res := m.Remove("A", 1)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, []int{2}, m.Segments("A"))
	assert.Equal(t, []int{1, 4, 5}, m.UnassignedSegments())
	assert.Equal(t, []string{"C"}, m.UnassignedTexts())

	res = m.Remove("B", 3)
	require.True(t, res.Success)
	assert.Contains(t, res.Message, "now unassigned")
	assert.Equal(t, []string{"B", "C"}, m.UnassignedTexts())
	require.NoError(t, m.Validate())
}

func TestRemoveNotLinked(t *testing.T) {
	m := fixture(t, Options{})
	before := snapshot(m)

	for _, tc := range []struct {
		text    string
		segment int
	}{{"A", 3}, {"C", 4}, {"Z", 1}, {"A", 99}} {
		res := m.Remove(tc.text, tc.segment)
		assert.False(t, res.Success)
		assert.Equal(t, KindNotFound, res.Kind)
		assert.ErrorIs(t, res.Err, ErrNotFound)
	}
	assert.Equal(t, before, snapshot(m))
}

func TestAssignRemoveRoundTrip(t *testing.T) {
	t.Run("fresh label", func(t *testing.T) {
		m := fixture(t, Options{})
		before := snapshot(m)

		require.True(t, m.Assign("C", 4).Success)
		require.True(t, m.Remove("C", 4).Success)

		assert.Equal(t, before, snapshot(m))
		assert.Empty(t, m.ChangeLog().NewAssignments)
	})

	t.Run("label with other segments", func(t *testing.T) {
		m := fixture(t, Options{})

		require.True(t, m.Assign("A", 4).Success)
		require.True(t, m.Remove("A", 4).Success)

		assert.Equal(t, []int{1, 2}, m.Segments("A"))
		assert.Equal(t, []int{4, 5}, m.UnassignedSegments())
		assert.NotContains(t, m.UnassignedTexts(), "A")
	})
}

func TestSkip(t *testing.T) {
	m := fixture(t, Options{})

	res := m.Skip("A")

	require.True(t, res.Success)
	assert.Len(t, res.Removed, 2)
	assert.Empty(t, m.Segments("A"))
	assert.Equal(t, []string{"A", "C"}, m.UnassignedTexts())
	assert.Equal(t, []int{1, 2, 4, 5}, m.UnassignedSegments())
	assert.Equal(t, []string{"A"}, m.ChangeLog().SkippedTexts)
	_, ok := m.Label("A")
	assert.True(t, ok, "skipped label keeps its record")
	require.NoError(t, m.Validate())

	// Skipping twice records it once.
	require.True(t, m.Skip("A").Success)
	assert.Equal(t, []string{"A"}, m.ChangeLog().SkippedTexts)

	// Assigning clears the skip mark.
	require.True(t, m.Assign("A", 4).Success)
	assert.Empty(t, m.ChangeLog().SkippedTexts)
}

func TestSkipUnknown(t *testing.T) {
	m := fixture(t, Options{})
	res := m.Skip("nope")
	assert.False(t, res.Success)
	assert.Equal(t, KindNotFound, res.Kind)
}

func TestSwap(t *testing.T) {
	m := fixture(t, Options{})

	res := m.Swap("A", "B")

	require.True(t, res.Success, res.Message)
	assert.Equal(t, []int{3}, m.Segments("A"))
	assert.Equal(t, []int{1, 2}, m.Segments("B"))
	assert.Equal(t, []string{"A", "B"}, groupIDs(m.Relation()))
	owner, _ := m.Owner(1)
	assert.Equal(t, "B", owner)
	// A's group comes first, so segment 3 is now number 1.
	assert.Equal(t, 1, m.SVGNumber(3))
	assert.Equal(t, 2, m.SVGNumber(1))
	require.NoError(t, m.Validate())
}

func TestSwapAtomicity(t *testing.T) {
	m := fixture(t, Options{})
	before := snapshot(m)

	for _, pair := range [][2]string{{"A", "C"}, {"C", "A"}, {"A", "Z"}} {
		res := m.Swap(pair[0], pair[1])
		assert.False(t, res.Success, "swap %v should fail", pair)
		assert.Equal(t, KindNotFound, res.Kind)
		assert.ErrorIs(t, res.Err, ErrNotFound)
	}
	assert.Equal(t, before, snapshot(m))
}

func TestResetToOriginal(t *testing.T) {
	m := fixture(t, Options{})
	original := snapshot(m)

	m.Assign("C", 1)
	m.Skip("B")
	m.RegisterCustomLabel("X")
	m.Assign("X", 5)
	m.Swap("A", "X")

	res := m.ResetToOriginal()

	require.True(t, res.Success)
	assert.Equal(t, original, snapshot(m))
	assert.Equal(t, ChangeLog{}, m.ChangeLog())
	assert.False(t, m.IsCustom("X"))
	assert.NotContains(t, m.LabelIDs(), "X")
	require.NoError(t, m.Validate())
}

func TestCustomLabelsAndOrphans(t *testing.T) {
	m := fixture(t, Options{})

	res := m.RegisterCustomLabel("X")
	require.True(t, res.Success)
	assert.True(t, m.IsCustom("X"))
	assert.Equal(t, []string{"C", "X"}, m.UnassignedTexts())
	assert.Equal(t, []Orphan{{TextID: "X", Reason: OrphanNoGeometry}}, m.Orphans())

	require.True(t, m.Assign("X", 4).Success)
	assert.Equal(t, []Orphan{{TextID: "X", Reason: OrphanNoRecord}}, m.Orphans())

	dup := m.RegisterCustomLabel("A")
	assert.False(t, dup.Success)
	assert.Equal(t, KindInvalid, dup.Kind)
	assert.ErrorIs(t, dup.Err, ErrInvalid)

	empty := m.RegisterCustomLabel("")
	assert.False(t, empty.Success)
	assert.Equal(t, KindInvalid, empty.Kind)
	require.NoError(t, m.Validate())
}

func TestRegisterCustomLabelRejectsPaddedID(t *testing.T) {
	m := fixture(t, Options{})

	for _, id := range []string{"  ", " X ", "X\t"} {
		res := m.RegisterCustomLabel(id)
		assert.False(t, res.Success, "%q", id)
		assert.Equal(t, KindInvalid, res.Kind, "%q", id)
		assert.ErrorIs(t, res.Err, ErrInvalid)
	}
	assert.False(t, m.IsCustom("X"))
	assert.Equal(t, []string{"C"}, m.UnassignedTexts())

	// A registered ID is usable verbatim by every other operation.
	require.True(t, m.RegisterCustomLabel("X").Success)
	require.True(t, m.Assign("X", 4).Success)
	assert.Equal(t, []int{4}, m.Segments("X"))
	require.NoError(t, m.Validate())
}

func TestInitialOrphansSurviveReset(t *testing.T) {
	labels := []model.Label{{ID: "A"}}
	polylines := []model.Polyline{{ID: 1, Segments: []model.Segment{seg(1, 1, 0), seg(2, 1, 5)}}}
	initial := []Group{{TextID: "ghost", SegmentIDs: []int{2}}}

	m := New(labels, polylines, initial, Options{})
	require.NoError(t, m.Validate())
	assert.Equal(t, []Orphan{{TextID: "ghost", Reason: OrphanNoRecord}}, m.Orphans())

	m.ResetToOriginal()
	assert.True(t, m.IsCustom("ghost"))
	assert.Equal(t, []int{2}, m.Segments("ghost"))
}

func TestPartitionInvariantRandomSequence(t *testing.T) {
	m := fixture(t, Options{})
	rng := rand.New(rand.NewSource(7))
	texts := []string{"A", "B", "C", "X", "missing"}
	segments := []int{1, 2, 3, 4, 5, 6}

	for step := 0; step < 2000; step++ {
		text := texts[rng.Intn(len(texts))]
		other := texts[rng.Intn(len(texts))]
		segment := segments[rng.Intn(len(segments))]

		before := snapshot(m)
		var res Result
		switch op := rng.Intn(7); op {
		case 0, 1:
			res = m.Assign(text, segment)
		case 2:
			res = m.Remove(text, segment)
		case 3:
			res = m.Skip(text)
		case 4:
			res = m.Swap(text, other)
		case 5:
			res = m.RegisterCustomLabel(text)
		case 6:
			if rng.Intn(10) == 0 {
				res = m.ResetToOriginal()
			} else {
				continue
			}
		}

		require.NoError(t, m.Validate(), "step %d: %s", step, res.Message)
		if !res.Success {
			require.Equal(t, before, snapshot(m), "step %d: failed op changed state: %s", step, res.Message)
		}
		numbering := m.Numbering()
		require.Len(t, numbering, 5, "step %d", step)
		seen := make(map[int]bool)
		for _, n := range numbering {
			require.True(t, n >= 1 && n <= 5, "step %d: number %d out of range", step, n)
			require.False(t, seen[n], "step %d: number %d repeated", step, n)
			seen[n] = true
		}
	}
}

type state struct {
	Relation           []Group
	UnassignedTexts    []string
	UnassignedSegments []int
	Numbering          map[int]int
	Log                ChangeLog
	Labels             []string
}

func snapshot(m *Manager) state {
	return state{
		Relation:           m.Relation(),
		UnassignedTexts:    m.UnassignedTexts(),
		UnassignedSegments: m.UnassignedSegments(),
		Numbering:          m.Numbering(),
		Log:                m.ChangeLog(),
		Labels:             m.LabelIDs(),
	}
}

func groupIDs(groups []Group) []string {
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.TextID
	}
	return ids
}
