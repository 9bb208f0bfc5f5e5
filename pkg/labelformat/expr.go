package labelformat

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
)

var errDivideByZero = errors.New("division by zero")

// parseExpr parses an arithmetic expression and rejects anything beyond
// numbers, field names, parentheses and + - * / %.
func parseExpr(src string) (ast.Expr, error) {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", src, err)
	}
	if err := checkExpr(expr); err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", src, err)
	}
	return expr, nil
}

func checkExpr(e ast.Expr) error {
	switch e := e.(type) {
	case *ast.BasicLit:
		if e.Kind != token.INT && e.Kind != token.FLOAT {
			return fmt.Errorf("unsupported literal %s", e.Value)
		}
	case *ast.Ident:
	case *ast.ParenExpr:
		return checkExpr(e.X)
	case *ast.UnaryExpr:
		if e.Op != token.ADD && e.Op != token.SUB {
			return fmt.Errorf("unsupported operator %s", e.Op)
		}
		return checkExpr(e.X)
	case *ast.BinaryExpr:
		switch e.Op {
		case token.ADD, token.SUB, token.MUL, token.QUO, token.REM:
		default:
			return fmt.Errorf("unsupported operator %s", e.Op)
		}
		if err := checkExpr(e.X); err != nil {
			return err
		}
		return checkExpr(e.Y)
	default:
		return fmt.Errorf("unsupported syntax %T", e)
	}
	return nil
}

// exprIdents lists the field names an expression references.
func exprIdents(e ast.Expr) []string {
	var names []string
	ast.Inspect(e, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			names = append(names, id.Name)
		}
		return true
	})
	return names
}

// evalExpr evaluates an expression with field values parsed as numbers.
func evalExpr(e ast.Expr, fields map[string]string) (float64, error) {
	switch e := e.(type) {
	case *ast.BasicLit:
		return strconv.ParseFloat(e.Value, 64)
	case *ast.Ident:
		v, ok := fields[e.Name]
		if !ok {
			return 0, fmt.Errorf("unknown field %q", e.Name)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q is not numeric: %q", e.Name, v)
		}
		return f, nil
	case *ast.ParenExpr:
		return evalExpr(e.X, fields)
	case *ast.UnaryExpr:
		x, err := evalExpr(e.X, fields)
		if err != nil {
			return 0, err
		}
		if e.Op == token.SUB {
			return -x, nil
		}
		return x, nil
	case *ast.BinaryExpr:
		x, err := evalExpr(e.X, fields)
		if err != nil {
			return 0, err
		}
		y, err := evalExpr(e.Y, fields)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.ADD:
			return x + y, nil
		case token.SUB:
			return x - y, nil
		case token.MUL:
			return x * y, nil
		case token.QUO:
			if y == 0 {
				return 0, errDivideByZero
			}
			return x / y, nil
		case token.REM:
			if y == 0 {
				return 0, errDivideByZero
			}
			return math.Mod(x, y), nil
		}
	}
	return 0, fmt.Errorf("unsupported expression %T", e)
}

// formatNumber renders integral values without a decimal point.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
