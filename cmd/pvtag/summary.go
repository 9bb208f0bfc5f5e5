// nolint:errcheck
package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/pvtag/pvtag/internal/manager"
	"github.com/pvtag/pvtag/internal/pipeline"
)

var (
	headingStyle = color.New(color.Bold, color.FgHiWhite)
	okStyle      = color.New(color.FgGreen)
	failStyle    = color.New(color.FgRed)
	warnStyle    = color.New(color.FgYellow)
	dimStyle     = color.New(color.FgHiBlack)
)

// printSummary writes the session statistics followed by the current
// relation and both unassigned pools.
func printSummary(w io.Writer, s *pipeline.Session) {
	m := s.Manager
	st := s.Stats

	headingStyle.Fprintf(w, "%s", s.Name)
	if s.Station != "" {
		fmt.Fprintf(w, "  station %s", s.Station)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "polylines %d  segments %d  rejected %d  merged %d\n",
		st.Polylines, st.Segments, st.Rejected, st.Merged)
	fmt.Fprintf(w, "labels %d  parsed %d  offered %d  other stations %d  groups %d\n",
		st.Labels, st.Parsed, st.Offered, st.DroppedByStation, st.Groups)
	if len(st.Durations) > 0 {
		dimStyle.Fprintln(w, formatDurations(st.Durations))
	}

	for _, warning := range s.Warnings {
		warnStyle.Fprintf(w, "warning: %v\n", warning)
	}

	printRelation(w, m)
}

// printRelation lists every group with aligned label names, then the pools
// and orphans.
func printRelation(w io.Writer, m *manager.Manager) {
	relation := m.Relation()
	width := 0
	for _, g := range relation {
		width = max(width, runewidth.StringWidth(g.TextID))
	}

	fmt.Fprintln(w)
	headingStyle.Fprintf(w, "assigned (%d)\n", len(relation))
	for _, g := range relation {
		numbers := make([]string, len(g.SegmentIDs))
		for i, id := range g.SegmentIDs {
			numbers[i] = fmt.Sprintf("#%d", m.SVGNumber(id))
		}
		fmt.Fprint(w, "  ")
		okStyle.Fprint(w, runewidth.FillRight(g.TextID, width))
		fmt.Fprintf(w, "  %s\n", strings.Join(numbers, " "))
	}

	texts := m.UnassignedTexts()
	if len(texts) > 0 {
		fmt.Fprintln(w)
		headingStyle.Fprintf(w, "unassigned texts (%d)\n", len(texts))
		for _, id := range texts {
			fmt.Fprint(w, "  ")
			failStyle.Fprintln(w, id)
		}
	}

	segments := m.UnassignedSegments()
	if len(segments) > 0 {
		fmt.Fprintln(w)
		headingStyle.Fprintf(w, "unassigned segments (%d)\n", len(segments))
		for _, id := range segments {
			seg, _ := m.Segment(id)
			fmt.Fprint(w, "  ")
			failStyle.Fprintf(w, "#%d", m.SVGNumber(id))
			fmt.Fprintf(w, "  segment %d  %v-%v\n", id, seg.Start, seg.End)
		}
	}

	for _, o := range m.Orphans() {
		warnStyle.Fprintf(w, "orphan %s: %s\n", o.TextID, o.Reason)
	}
}

func formatDurations(d map[string]time.Duration) string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s %s", name, d[name].Round(time.Microsecond))
	}
	return strings.Join(parts, "  ")
}

// printResult prints one operation result, green on success and red on
// failure.
func printResult(w io.Writer, n int, e Edit, res manager.Result) {
	dimStyle.Fprintf(w, "%3d ", n)
	fmt.Fprintf(w, "%s: ", e)
	if res.Success {
		okStyle.Fprintln(w, res.Message)
	} else {
		failStyle.Fprintf(w, "%s [%s]\n", res.Message, res.Kind)
	}
}
