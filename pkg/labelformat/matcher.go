package labelformat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NewMatcher creates a matcher from a parsed pattern. The tokens compile to
// a single regex anchored at both ends.
func NewMatcher(parsed *ParsedPattern, options MatchOptions) (*Matcher, error) {
	regex, err := compilePattern(parsed, options)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern: %w", err)
	}

	return &Matcher{
		parsed:  parsed,
		regex:   regex,
		options: options,
	}, nil
}

// compilePattern converts a parsed pattern into a regex.
func compilePattern(parsed *ParsedPattern, options MatchOptions) (*regexp.Regexp, error) {
	var b strings.Builder
	if !options.CaseSensitive {
		b.WriteString("(?i)")
	}
	b.WriteString("^")
	for _, token := range parsed.Tokens {
		b.WriteString(tokenToRegexPart(token))
	}
	b.WriteString("$")

	regex, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("failed to compile regex pattern '%s': %w", b.String(), err)
	}
	return regex, nil
}

// tokenToRegexPart converts a single token to a regex pattern part
func tokenToRegexPart(token Token) string {
	switch token.Type {
	case TokenLiteral:
		return regexp.QuoteMeta(token.Content)
	case TokenField:
		return fmt.Sprintf(`(?P<%s>.+?)`, token.Content)
	case TokenPadded:
		return fmt.Sprintf(`(?P<%s>\d{%d})`, token.Content, token.Width)
	default:
		// derived fields consume no text
		return ""
	}
}

// Parse matches raw label text and returns its fields. Zero-padded fields
// are normalized to their integer value and derived fields are evaluated.
// The second result is false when the text does not fit the pattern or a
// derived field cannot be computed.
func (m *Matcher) Parse(raw string) (map[string]string, bool) {
	text := raw
	if m.options.TrimSpace {
		text = strings.TrimSpace(text)
	}

	match := m.regex.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}

	fields := make(map[string]string, len(m.parsed.Tokens))
	for i, name := range m.regex.SubexpNames() {
		if name != "" {
			fields[name] = match[i]
		}
	}

	for _, token := range m.parsed.Tokens {
		switch token.Type {
		case TokenField:
			fields[token.Content] = strings.TrimSpace(fields[token.Content])
		case TokenPadded:
			n, err := strconv.Atoi(fields[token.Content])
			if err != nil {
				return nil, false
			}
			fields[token.Content] = strconv.Itoa(n)
		case TokenDerived:
			v, err := evalExpr(token.expr, fields)
			if err != nil {
				return nil, false
			}
			fields[token.Content] = formatNumber(v)
		}
	}
	return fields, true
}

// Fields returns the field names in pattern order, derived fields included.
func (m *Matcher) Fields() []string {
	return m.parsed.FieldNames()
}

// Pattern returns the source pattern.
func (m *Matcher) Pattern() string {
	return m.parsed.Source
}

// FieldNames returns the field names in pattern order.
func (p *ParsedPattern) FieldNames() []string {
	var names []string
	for _, token := range p.Tokens {
		if token.Type != TokenLiteral {
			names = append(names, token.Content)
		}
	}
	return names
}
