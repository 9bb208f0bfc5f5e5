package fuzzymatch

import (
	"sort"
)

// Suggest proposes up to limit candidates close to query. Subsequence
// matches come first; typos such as swapped digits, which are not
// subsequences, are caught by edit distance. A candidate qualifies by
// distance when it needs at most a third of the query's length in edits.
func (fm *FuzzyMatcher) Suggest(query string, candidates []string, limit int) []string {
	if query == "" || limit <= 0 {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, m := range fm.Match(query, candidates) {
		if m.Text == query || seen[m.Text] {
			continue
		}
		seen[m.Text] = true
		out = append(out, m.Text)
		if len(out) == limit {
			return out
		}
	}

	type scored struct {
		text string
		dist int
	}
	q := fm.fold(query)
	maxDist := max(1, len(q)/3)
	var near []scored
	for _, c := range candidates {
		if seen[c] || c == query {
			continue
		}
		if d := levenshtein(q, fm.fold(c)); d <= maxDist {
			near = append(near, scored{c, d})
		}
	}
	sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })
	for _, n := range near {
		if seen[n.text] {
			continue
		}
		seen[n.text] = true
		out = append(out, n.text)
		if len(out) == limit {
			break
		}
	}
	return out
}

// levenshtein returns the edit distance between a and b.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
