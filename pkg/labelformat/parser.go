package labelformat

import (
	"fmt"
	"strconv"
	"strings"
)

// NewParser creates a new pattern parser with the given options.
func NewParser(options ParserOptions) *Parser {
	return &Parser{
		options: options,
	}
}

// Parse parses a pattern string into tokens. Adjacent literal text is
// merged into one token.
func (p *Parser) Parse(pattern string) (*ParsedPattern, error) {
	var tokens []Token
	defined := make(map[string]bool)
	external := make(map[string]bool, len(p.options.KnownFields))
	for _, name := range p.options.KnownFields {
		external[name] = true
	}
	pos := 0

	for pos < len(pattern) {
		token, nextPos, err := p.parseNextToken(pattern, pos)
		if err != nil {
			return nil, fmt.Errorf("parse error at position %d: %w", pos, err)
		}
		pos = nextPos

		if token.Type == TokenLiteral {
			if token.Content == "" {
				continue
			}
			if n := len(tokens); n > 0 && tokens[n-1].Type == TokenLiteral {
				tokens[n-1].Content += token.Content
				continue
			}
			tokens = append(tokens, token)
			continue
		}

		if defined[token.Content] {
			return nil, fmt.Errorf("duplicate field %q", token.Content)
		}
		if token.Type == TokenDerived {
			for _, ref := range exprIdents(token.expr) {
				if !defined[ref] && !external[ref] {
					return nil, fmt.Errorf("expression for %q references unknown field %q", token.Content, ref)
				}
			}
		}
		defined[token.Content] = true
		tokens = append(tokens, token)
	}

	return &ParsedPattern{Source: pattern, Tokens: tokens}, nil
}

// parseNextToken parses the next token starting at the given position
func (p *Parser) parseNextToken(pattern string, pos int) (Token, int, error) {
	switch pattern[pos] {
	case '{':
		if pos+1 < len(pattern) && pattern[pos+1] == '{' {
			return Token{Type: TokenLiteral, Content: "{"}, pos + 2, nil
		}
		return p.parsePlaceholder(pattern, pos)
	case '}':
		if pos+1 < len(pattern) && pattern[pos+1] == '}' {
			return Token{Type: TokenLiteral, Content: "}"}, pos + 2, nil
		}
		if p.options.StrictMode {
			return Token{}, pos, fmt.Errorf("unmatched '}'")
		}
		return Token{Type: TokenLiteral, Content: "}"}, pos + 1, nil
	default:
		return p.parseLiteralToken(pattern, pos)
	}
}

// parseLiteralToken consumes text up to the next brace.
func (p *Parser) parseLiteralToken(pattern string, pos int) (Token, int, error) {
	end := pos
	for end < len(pattern) && pattern[end] != '{' && pattern[end] != '}' {
		end++
	}
	return Token{Type: TokenLiteral, Content: pattern[pos:end]}, end, nil
}

// parsePlaceholder parses {name}, {name:0N} and {name=expr}.
func (p *Parser) parsePlaceholder(pattern string, pos int) (Token, int, error) {
	closePos := strings.IndexByte(pattern[pos+1:], '}')
	if closePos == -1 {
		return Token{}, pos, fmt.Errorf("unclosed placeholder")
	}
	closePos += pos + 1
	body := pattern[pos+1 : closePos]
	next := closePos + 1

	if name, expr, ok := strings.Cut(body, "="); ok {
		name = strings.TrimSpace(name)
		if !isValidName(name) {
			return Token{}, pos, fmt.Errorf("invalid field name %q", name)
		}
		parsed, err := parseExpr(expr)
		if err != nil {
			return Token{}, pos, fmt.Errorf("field %q: %w", name, err)
		}
		return Token{Type: TokenDerived, Content: name, Expr: strings.TrimSpace(expr), expr: parsed}, next, nil
	}

	if name, width, ok := strings.Cut(body, ":"); ok {
		name = strings.TrimSpace(name)
		if !isValidName(name) {
			return Token{}, pos, fmt.Errorf("invalid field name %q", name)
		}
		n, err := parseWidth(width)
		if err != nil {
			return Token{}, pos, fmt.Errorf("field %q: %w", name, err)
		}
		return Token{Type: TokenPadded, Content: name, Width: n}, next, nil
	}

	name := strings.TrimSpace(body)
	if name == "" {
		return Token{}, pos, fmt.Errorf("empty field name")
	}
	if !isValidName(name) {
		return Token{}, pos, fmt.Errorf("invalid field name %q", name)
	}
	return Token{Type: TokenField, Content: name}, next, nil
}

// parseWidth accepts a zero-pad specifier such as "02".
func parseWidth(spec string) (int, error) {
	spec = strings.TrimSpace(spec)
	if len(spec) < 2 || spec[0] != '0' {
		return 0, fmt.Errorf("bad width %q: want a zero-pad specifier like 02", spec)
	}
	n, err := strconv.Atoi(spec[1:])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad width %q", spec)
	}
	return n, nil
}
