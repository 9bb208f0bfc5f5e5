// Package labelformat parses label patterns such as
// "{station}-{inverter:02}-{mppt}-{string:02}" and uses them to split label
// text into named fields, or to render fields back into text.
package labelformat

import (
	"go/ast"
	"regexp"
)

// TokenType represents the kinds of elements in a label pattern.
type TokenType int

// Token types used in pattern parsing
const (
	TokenLiteral TokenType = iota // Literal text, matched as is
	TokenField                    // {name}: one or more characters
	TokenPadded                   // {name:0N}: exactly N digits
	TokenDerived                  // {name=expr}: computed from earlier fields
)

// Token represents a parsed element of a pattern.
type Token struct {
	Type    TokenType
	Content string // literal text or field name
	Width   int    // digit count for TokenPadded
	Expr    string // source of a TokenDerived expression
	expr    ast.Expr
}

// ParsedPattern is a fully parsed label pattern.
type ParsedPattern struct {
	Source string
	Tokens []Token
}

// ParserOptions controls parsing behavior.
type ParserOptions struct {
	StrictMode bool // fail on a stray '}' instead of treating it as literal
	// KnownFields may be referenced by derived expressions without being
	// placeholders of the pattern itself.
	KnownFields []string
}

// Parser turns pattern strings into tokens.
type Parser struct {
	options ParserOptions
}

// MatchOptions controls how label text is matched.
type MatchOptions struct {
	CaseSensitive bool // match literal text case-sensitively
	TrimSpace     bool // trim surrounding whitespace before matching
}

// Matcher extracts fields from label text with a compiled pattern.
type Matcher struct {
	parsed  *ParsedPattern
	regex   *regexp.Regexp
	options MatchOptions
}
