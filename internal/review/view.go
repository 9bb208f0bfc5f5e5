// Package review is the interactive correction screen. It shows label
// groups next to the unassigned segments and turns keystrokes into manager
// operations.
package review

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/pvtag/pvtag/internal/manager"
	fz "github.com/pvtag/pvtag/pkg/fuzzymatch"
)

// CaptureEvent represents the result of the user interaction
type CaptureEvent int

const (
	// QuitEvent leaves without writing.
	QuitEvent CaptureEvent = iota
	// WriteEvent asks the caller to export and leave.
	WriteEvent
)

type pane int

const (
	labelPane pane = iota
	segmentPane
)

// ViewColors groups all color-related fields
type ViewColors struct {
	Assigned   Color
	Unassigned Color
	Selected   Color
	Marked     Color
}

// DefaultColors returns the colors used when none are configured.
func DefaultColors() ViewColors {
	return ViewColors{
		Assigned:   GetColor("green"),
		Unassigned: GetColor("red"),
		Selected:   GetColor("blue"),
		Marked:     GetColor("yellow"),
	}
}

// View represents the review screen for one manager.
type View struct {
	m      *manager.Manager
	colors ViewColors
	screen tcell.Screen
	fuzzy  *fz.FuzzyMatcher

	focus     pane
	labels    []string // label IDs after filtering
	labelIdx  int
	segments  []int // unassigned segment IDs
	segIdx    int
	marked    string
	filter    string
	filtering bool

	status   string
	statusOK bool
}

// NewView creates a new View instance
func NewView(m *manager.Manager, colors ViewColors) *View {
	v := &View{
		m:        m,
		colors:   colors,
		fuzzy:    fz.NewFuzzyMatcher(false),
		status:   "? ↑↓ move  Tab pane  / filter  Enter assign  d remove  s skip  m mark  x swap  u reset  w write  q quit",
		statusOK: true,
	}
	v.refresh()
	return v
}

// refresh reloads both lists from the manager and clamps the cursors.
func (v *View) refresh() {
	all := v.m.LabelIDs()
	v.labels = v.labels[:0]
	for _, match := range v.fuzzy.Match(v.filter, all) {
		v.labels = append(v.labels, match.Text)
	}
	v.segments = v.m.UnassignedSegments()
	v.labelIdx = clamp(v.labelIdx, len(v.labels))
	v.segIdx = clamp(v.segIdx, len(v.segments))
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	return max(i, 0)
}

// selectedLabel returns the label under the cursor.
func (v *View) selectedLabel() (string, bool) {
	if v.labelIdx < len(v.labels) {
		return v.labels[v.labelIdx], true
	}
	return "", false
}

// selectedSegment returns the unassigned segment under the cursor.
func (v *View) selectedSegment() (int, bool) {
	if v.segIdx < len(v.segments) {
		return v.segments[v.segIdx], true
	}
	return 0, false
}

// Navigation methods
func (v *View) Prev() {
	if v.focus == labelPane {
		if v.labelIdx > 0 {
			v.labelIdx--
		}
	} else if v.segIdx > 0 {
		v.segIdx--
	}
}

func (v *View) Next() {
	if v.focus == labelPane {
		if v.labelIdx < len(v.labels)-1 {
			v.labelIdx++
		}
	} else if v.segIdx < len(v.segments)-1 {
		v.segIdx++
	}
}

// apply records an operation result in the status line.
func (v *View) apply(res manager.Result) {
	v.status = res.Message
	v.statusOK = res.Success
	if !res.Success {
		slog.Debug("review operation failed", "kind", res.Kind.String(), "message", res.Message)
	}
	v.refresh()
}

func (v *View) setStatus(ok bool, format string, args ...any) {
	v.status = fmt.Sprintf(format, args...)
	v.statusOK = ok
}

// render draws both panes, the header and the status line.
func (v *View) render() {
	v.screen.Clear()
	width, height := v.screen.Size()
	split := width / 2

	header := fmt.Sprintf("labels %d  unassigned texts %d  unassigned segments %d",
		len(v.m.LabelIDs()), len(v.m.UnassignedTexts()), len(v.segments))
	if v.filtering || v.filter != "" {
		header += "  filter: /" + v.filter
	}
	v.drawText(0, 0, width, header, tcell.StyleDefault.Bold(true))

	rows := max(height-3, 0)
	v.renderLabels(0, 1, split-1, rows)
	v.renderSegments(split+1, 1, width-split-1, rows)

	statusColor := v.colors.Assigned
	if !v.statusOK {
		statusColor = v.colors.Unassigned
	}
	v.drawText(0, height-1, width, v.status, tcell.StyleDefault.Foreground(colorToTcell(statusColor)))
	v.screen.Show()
}

func (v *View) renderLabels(x, y, width, rows int) {
	v.drawText(x, y, width, "LABELS", v.titleStyle(labelPane))
	start := scrollStart(v.labelIdx, rows)
	for i := start; i < len(v.labels) && i-start < rows; i++ {
		id := v.labels[i]
		segs := v.m.Segments(id)
		style := tcell.StyleDefault.Foreground(colorToTcell(v.colors.Assigned))
		if len(segs) == 0 {
			style = style.Foreground(colorToTcell(v.colors.Unassigned))
		}
		if id == v.marked {
			style = style.Foreground(colorToTcell(v.colors.Marked))
		}
		if i == v.labelIdx {
			style = style.Background(colorToTcell(v.colors.Selected))
		}
		v.drawText(x, y+1+i-start, width, v.labelRow(id, segs), style)
	}
}

// labelRow formats a label and the display numbers of its segments.
func (v *View) labelRow(id string, segs []int) string {
	var b strings.Builder
	if id == v.marked {
		b.WriteString("* ")
	} else {
		b.WriteString("  ")
	}
	b.WriteString(id)
	if v.m.IsCustom(id) {
		b.WriteString(" (custom)")
	}
	if len(segs) > 0 {
		numbers := make([]string, len(segs))
		for i, s := range segs {
			numbers[i] = fmt.Sprint(v.m.SVGNumber(s))
		}
		b.WriteString("  [" + strings.Join(numbers, " ") + "]")
	}
	return b.String()
}

func (v *View) renderSegments(x, y, width, rows int) {
	v.drawText(x, y, width, "UNASSIGNED SEGMENTS", v.titleStyle(segmentPane))
	start := scrollStart(v.segIdx, rows)
	for i := start; i < len(v.segments) && i-start < rows; i++ {
		id := v.segments[i]
		s, _ := v.m.Segment(id)
		row := fmt.Sprintf("  #%-3d seg %-4d %v-%v len %.1f", v.m.SVGNumber(id), id, s.Start, s.End, s.Length)
		style := tcell.StyleDefault.Foreground(colorToTcell(v.colors.Unassigned))
		if i == v.segIdx {
			style = style.Background(colorToTcell(v.colors.Selected))
		}
		v.drawText(x, y+1+i-start, width, row, style)
	}
}

func (v *View) titleStyle(p pane) tcell.Style {
	style := tcell.StyleDefault.Underline(true)
	if v.focus == p {
		style = style.Bold(true)
	}
	return style
}

// scrollStart keeps the cursor row visible.
func scrollStart(cursor, rows int) int {
	if rows <= 0 || cursor < rows {
		return 0
	}
	return cursor - rows + 1
}

// drawText writes text at (x, y), truncated to width display cells.
func (v *View) drawText(x, y, width int, text string, style tcell.Style) {
	text = runewidth.Truncate(text, width, "…")
	for _, r := range text {
		v.screen.SetContent(x, y, r, nil, style)
		w := runewidth.RuneWidth(r)
		if w <= 0 {
			w = 1
		}
		x += w
	}
}

// listen handles user input until the user writes or quits.
func (v *View) listen() CaptureEvent {
	renderStart := time.Now()
	v.render()
	slog.Info("first render completed", "duration_ms", time.Since(renderStart).Milliseconds())

	for {
		ev := v.screen.PollEvent()

		switch ev := ev.(type) {
		case *tcell.EventKey:
			if action := v.handleKeyEvent(ev); action != nil {
				return *action
			}
		case *tcell.EventResize:
			v.screen.Sync()
		case *tcell.EventError:
			return QuitEvent
		case nil:
			// screen finalized
			return QuitEvent
		}

		v.render()
	}
}

// handleKeyEvent processes a key event and returns an action if needed
func (v *View) handleKeyEvent(ev *tcell.EventKey) *CaptureEvent {
	if v.filtering {
		return v.handleFilterKey(ev)
	}

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		action := QuitEvent
		return &action
	case tcell.KeyUp:
		v.Prev()
	case tcell.KeyDown:
		v.Next()
	case tcell.KeyTab, tcell.KeyBacktab:
		v.toggleFocus()
	case tcell.KeyEnter:
		v.handleEnter()
	case tcell.KeyRune:
		return v.handleRuneKey(ev.Rune())
	}
	return nil
}

func (v *View) toggleFocus() {
	if v.focus == labelPane {
		v.focus = segmentPane
	} else {
		v.focus = labelPane
	}
}

// handleFilterKey edits the fuzzy filter.
func (v *View) handleFilterKey(ev *tcell.EventKey) *CaptureEvent {
	switch ev.Key() {
	case tcell.KeyEscape:
		v.filter = ""
		v.filtering = false
	case tcell.KeyEnter:
		v.filtering = false
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(v.filter); len(r) > 0 {
			v.filter = string(r[:len(r)-1])
		}
	case tcell.KeyRune:
		v.filter += string(ev.Rune())
	}
	v.labelIdx = 0
	v.refresh()
	return nil
}

// handleEnter assigns the selected segment to the selected label, or moves
// to the segment pane when the label pane has focus.
func (v *View) handleEnter() {
	if v.focus == labelPane {
		v.focus = segmentPane
		return
	}
	label, ok := v.selectedLabel()
	if !ok {
		v.setStatus(false, "no label selected")
		return
	}
	seg, ok := v.selectedSegment()
	if !ok {
		v.setStatus(false, "no unassigned segment selected")
		return
	}
	v.apply(v.m.Assign(label, seg))
}

// handleRuneKey handles character input
func (v *View) handleRuneKey(r rune) *CaptureEvent {
	switch r {
	case 'q':
		action := QuitEvent
		return &action
	case 'w':
		action := WriteEvent
		return &action
	case 'k':
		v.Prev()
	case 'j':
		v.Next()
	case '/':
		v.filtering = true
		v.focus = labelPane
	case 'd':
		label, ok := v.selectedLabel()
		if !ok {
			return nil
		}
		segs := v.m.Segments(label)
		if len(segs) == 0 {
			v.setStatus(false, "%s owns no segments", label)
			return nil
		}
		v.apply(v.m.Remove(label, segs[len(segs)-1]))
	case 's':
		if label, ok := v.selectedLabel(); ok {
			v.apply(v.m.Skip(label))
		}
	case 'm':
		label, ok := v.selectedLabel()
		if !ok {
			return nil
		}
		if v.marked == label {
			v.marked = ""
			v.setStatus(true, "unmarked %s", label)
		} else {
			v.marked = label
			v.setStatus(true, "marked %s; select another label and press x to swap", label)
		}
	case 'x':
		label, ok := v.selectedLabel()
		if !ok {
			return nil
		}
		if v.marked == "" {
			v.setStatus(false, "mark a label with m first")
			return nil
		}
		res := v.m.Swap(v.marked, label)
		if res.Success {
			v.marked = ""
		}
		v.apply(res)
	case 'u':
		v.marked = ""
		v.apply(v.m.ResetToOriginal())
	}
	return nil
}

// Present opens the terminal, runs the review loop and restores the
// terminal on return.
func (v *View) Present() (CaptureEvent, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return QuitEvent, fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return QuitEvent, fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()

	return v.Run(screen), nil
}

// Run drives the review loop on an initialized screen.
func (v *View) Run(screen tcell.Screen) CaptureEvent {
	v.screen = screen
	screen.SetStyle(tcell.StyleDefault)
	screen.Clear()
	return v.listen()
}
