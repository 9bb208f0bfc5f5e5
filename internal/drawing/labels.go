package drawing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pvtag/pvtag/internal/model"
)

var (
	mtextFont      = regexp.MustCompile(`\\[fFcCHhQqTtWwAa][^;\\{}]*;`)
	mtextParagraph = regexp.MustCompile(`\\[Pp]`)
	mtextToggle    = regexp.MustCompile(`%%[uUoOkK]`)
	mtextStack     = regexp.MustCompile(`\\S([^;]*);`)
	mtextSimple    = regexp.MustCompile(`\\[LlOoKk]`)
)

// DecodeLabel turns raw drawing text into a label ID. MTEXT formatting
// codes and braces are removed, whitespace runs collapse to one space, and
// the result is trimmed.
func DecodeLabel(raw string) string {
	s := mtextParagraph.ReplaceAllString(raw, " ")
	s = mtextFont.ReplaceAllString(s, "")
	s = mtextStack.ReplaceAllString(s, "$1")
	s = mtextSimple.ReplaceAllString(s, "")
	s = mtextToggle.ReplaceAllString(s, "")
	s = strings.NewReplacer("{", "", "}", "", `\~`, " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Labels decodes every text into a label. Texts that decode to nothing are
// skipped. A repeated ID gets an instance suffix ("#2", "#3", ...) in
// document order; the first occurrence keeps the bare ID.
func (d *Document) Labels() []model.Label {
	labels := make([]model.Label, 0, len(d.Texts))
	seen := make(map[string]int)
	taken := make(map[string]bool)

	for _, t := range d.Texts {
		id := DecodeLabel(t.Raw)
		if id == "" {
			continue
		}
		seen[id]++
		unique := id
		for n := seen[id]; taken[unique]; n++ {
			unique = id + "#" + strconv.Itoa(n)
			seen[id] = n
		}
		taken[unique] = true
		labels = append(labels, model.Label{
			ID:       unique,
			Position: t.Position,
			RawText:  t.Raw,
		})
	}
	return labels
}
