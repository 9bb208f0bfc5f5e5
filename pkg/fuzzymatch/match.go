// Package fuzzymatch ranks label IDs against a typed query. It drives the
// review filter and the "did you mean" hints for unknown IDs.
package fuzzymatch

import (
	"sort"
	"strings"
	"unicode"
)

// FuzzyMatch represents a fuzzy match result
type FuzzyMatch struct {
	Text     string
	Score    int
	Indices  []int // positions of matched runes
	Original int   // original index in the input slice
}

// FuzzyMatcher provides fuzzy matching capabilities
type FuzzyMatcher struct {
	caseSensitive bool
}

// NewFuzzyMatcher creates a new fuzzy matcher
func NewFuzzyMatcher(caseSensitive bool) *FuzzyMatcher {
	return &FuzzyMatcher{
		caseSensitive: caseSensitive,
	}
}

// Match returns the candidates that contain the query as a subsequence,
// best first. Equal scores keep input order. An empty query matches
// everything in input order.
func (fm *FuzzyMatcher) Match(query string, candidates []string) []FuzzyMatch {
	if query == "" {
		results := make([]FuzzyMatch, len(candidates))
		for i, candidate := range candidates {
			results[i] = FuzzyMatch{Text: candidate, Indices: []int{}, Original: i}
		}
		return results
	}

	var results []FuzzyMatch
	for i, candidate := range candidates {
		if match := fm.matchString(query, candidate, i); match != nil {
			results = append(results, *match)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// matchString performs fuzzy matching on a single string
func (fm *FuzzyMatcher) matchString(query, candidate string, originalIndex int) *FuzzyMatch {
	queryRunes := fm.fold(query)
	candidateRunes := fm.fold(candidate)

	queryIdx := 0
	var indices []int
	score := 0

	for i, r := range candidateRunes {
		if queryIdx >= len(queryRunes) || r != queryRunes[queryIdx] {
			continue
		}
		indices = append(indices, i)
		queryIdx++

		switch {
		case queryIdx == 1 && i == 0:
			score += 100
		case queryIdx == 1:
			score += 50
		case indices[len(indices)-1] == indices[len(indices)-2]+1:
			// consecutive
			score += 50
		default:
			score += 20
		}
	}

	if queryIdx < len(queryRunes) {
		return nil
	}

	// shorter candidates rank higher
	score += (1000 - len(candidateRunes)) / 10
	score += boundaryBonus([]rune(candidate), indices)

	return &FuzzyMatch{
		Text:     candidate,
		Score:    score,
		Indices:  indices,
		Original: originalIndex,
	}
}

func (fm *FuzzyMatcher) fold(s string) []rune {
	if fm.caseSensitive {
		return []rune(s)
	}
	return []rune(strings.ToLower(s))
}

// boundaryBonus rewards matches that start a label segment, such as the
// character after a '-' in "S1-03-2-07".
func boundaryBonus(candidate []rune, indices []int) int {
	bonus := 0
	for _, idx := range indices {
		if idx == 0 {
			bonus += 10
			continue
		}
		if idx >= len(candidate) {
			continue
		}
		prev := candidate[idx-1]
		switch {
		case unicode.IsSpace(prev), strings.ContainsRune("-_/.#", prev):
			bonus += 15
		case unicode.IsLetter(prev) && unicode.IsDigit(candidate[idx]):
			bonus += 10
		}
	}
	return bonus
}

// FilterMatches filters matches based on a minimum score threshold
func (fm *FuzzyMatcher) FilterMatches(matches []FuzzyMatch, minScore int) []FuzzyMatch {
	var filtered []FuzzyMatch
	for _, match := range matches {
		if match.Score >= minScore {
			filtered = append(filtered, match)
		}
	}
	return filtered
}

// HighlightMatch wraps runs of matched runes in startTag and endTag.
func (fm *FuzzyMatcher) HighlightMatch(match FuzzyMatch, startTag, endTag string) string {
	if len(match.Indices) == 0 {
		return match.Text
	}

	runes := []rune(match.Text)
	result := make([]rune, 0, len(runes)*2)

	matchSet := make(map[int]bool, len(match.Indices))
	for _, idx := range match.Indices {
		matchSet[idx] = true
	}

	inHighlight := false
	for i, r := range runes {
		if matchSet[i] && !inHighlight {
			result = append(result, []rune(startTag)...)
			inHighlight = true
		} else if !matchSet[i] && inHighlight {
			result = append(result, []rune(endTag)...)
			inHighlight = false
		}
		result = append(result, r)
	}

	if inHighlight {
		result = append(result, []rune(endTag)...)
	}

	return string(result)
}
