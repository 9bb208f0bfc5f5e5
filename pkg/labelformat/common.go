package labelformat

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPattern is the label layout used when none is configured.
const DefaultPattern = "{station}-{inverter:02}-{mppt}-{string:02}"

// DefaultMatchOptions returns the usual matching options: case-insensitive
// literals and trimmed input.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		CaseSensitive: false,
		TrimSpace:     true,
	}
}

// Compile parses a pattern and builds a matcher with default options. This
// is the recommended high-level API.
func Compile(pattern string) (*Matcher, error) {
	return CompileWithOptions(pattern, DefaultMatchOptions())
}

// CompileWithOptions is like Compile with explicit match options.
func CompileWithOptions(pattern string, options MatchOptions) (*Matcher, error) {
	parsed, err := NewParser(ParserOptions{}).Parse(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pattern: %w", err)
	}
	return NewMatcher(parsed, options)
}

// Validate checks that a pattern is well formed.
func Validate(pattern string) error {
	return ValidateWith(pattern, nil)
}

// ValidateWith is like Validate but lets derived expressions reference the
// known fields, as an output pattern may reference input fields.
func ValidateWith(pattern string, known []string) error {
	_, err := NewParser(ParserOptions{StrictMode: true, KnownFields: known}).Parse(pattern)
	return err
}

// Format renders fields through a pattern. Zero-padded placeholders pad
// integer values to their width; derived placeholders are evaluated over
// the fields rendered so far.
func Format(pattern string, fields map[string]string) (string, error) {
	known := make([]string, 0, len(fields))
	for k := range fields {
		known = append(known, k)
	}
	parsed, err := NewParser(ParserOptions{KnownFields: known}).Parse(pattern)
	if err != nil {
		return "", fmt.Errorf("failed to parse pattern: %w", err)
	}

	values := make(map[string]string, len(fields))
	for k, v := range fields {
		values[k] = v
	}

	var b strings.Builder
	for _, token := range parsed.Tokens {
		switch token.Type {
		case TokenLiteral:
			b.WriteString(token.Content)
		case TokenField:
			v, ok := values[token.Content]
			if !ok {
				return "", fmt.Errorf("missing field %q", token.Content)
			}
			b.WriteString(v)
		case TokenPadded:
			v, ok := values[token.Content]
			if !ok {
				return "", fmt.Errorf("missing field %q", token.Content)
			}
			if n, err := strconv.Atoi(v); err == nil {
				v = fmt.Sprintf("%0*d", token.Width, n)
			}
			b.WriteString(v)
		case TokenDerived:
			v, err := evalExpr(token.expr, values)
			if err != nil {
				return "", fmt.Errorf("field %q: %w", token.Content, err)
			}
			values[token.Content] = formatNumber(v)
			b.WriteString(values[token.Content])
		}
	}
	return b.String(), nil
}

func (t TokenType) String() string {
	switch t {
	case TokenLiteral:
		return "Literal"
	case TokenField:
		return "Field"
	case TokenPadded:
		return "Padded"
	case TokenDerived:
		return "Derived"
	default:
		return "Unknown"
	}
}

// String returns a string representation of a token
func (t Token) String() string {
	switch t.Type {
	case TokenPadded:
		return fmt.Sprintf("%s(%q, width=%d)", t.Type, t.Content, t.Width)
	case TokenDerived:
		return fmt.Sprintf("%s(%q = %s)", t.Type, t.Content, t.Expr)
	default:
		return fmt.Sprintf("%s(%q)", t.Type, t.Content)
	}
}
