package compiler

import (
	"errors"
	"testing"
)

func parse(t *testing.T, input string) Expr {
	t.Helper()
	expr, err := ParseSource(input)
	if err != nil {
		t.Fatalf("ParseSource(%q): %v", input, err)
	}
	return expr
}

func TestParseIntLiteral(t *testing.T) {
	expr := parse(t, "42")
	lit, ok := expr.(*IntLit)
	if !ok {
		t.Fatalf("expr type = %T, want *IntLit", expr)
	}
	if lit.Value != 42 {
		t.Errorf("value = %d, want 42", lit.Value)
	}
}

func TestParseBoolLiterals(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  bool
	}{
		{"true", true},
		{"false", false},
	} {
		expr := parse(t, tc.input)
		lit, ok := expr.(*BoolLit)
		if !ok {
			t.Fatalf("Parse(%q) type = %T, want *BoolLit", tc.input, expr)
		}
		if lit.Value != tc.want {
			t.Errorf("Parse(%q) value = %t, want %t", tc.input, lit.Value, tc.want)
		}
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3)
	expr := parse(t, "1 + 2 * 3")
	add, ok := expr.(*BinExpr)
	if !ok || add.Op != OpAdd {
		t.Fatalf("root = %T %v, want add", expr, add)
	}
	mul, ok := add.Right.(*BinExpr)
	if !ok || mul.Op != OpMul {
		t.Fatalf("right = %T, want mul", add.Right)
	}
}

func TestParseComparisonDoesNotChain(t *testing.T) {
	if _, err := ParseSource("1 < 2 < 3"); err == nil {
		t.Fatal("expected parse error for chained comparison")
	}
}

func TestParseLogicalPrecedence(t *testing.T) {
	// a or b and c parses as a or (b and c)
	expr := parse(t, "a or b and c")
	or, ok := expr.(*BinExpr)
	if !ok || or.Op != OpOr {
		t.Fatalf("root op = %v, want or", or.Op)
	}
	and, ok := or.Right.(*BinExpr)
	if !ok || and.Op != OpAnd {
		t.Fatalf("right = %T, want and", or.Right)
	}
}

func TestParseUnary(t *testing.T) {
	expr := parse(t, "not -x")
	outer, ok := expr.(*UnaryExpr)
	if !ok || outer.Op != OpNot {
		t.Fatalf("root = %T, want not", expr)
	}
	inner, ok := outer.Operand.(*UnaryExpr)
	if !ok || inner.Op != OpNeg {
		t.Fatalf("operand = %T, want neg", outer.Operand)
	}
}

func TestParseSecret(t *testing.T) {
	expr := parse(t, "secret(42)")
	sec, ok := expr.(*SecretExpr)
	if !ok {
		t.Fatalf("expr type = %T, want *SecretExpr", expr)
	}
	if _, ok := sec.Inner.(*IntLit); !ok {
		t.Errorf("inner type = %T, want *IntLit", sec.Inner)
	}
}

func TestParseIfThenElse(t *testing.T) {
	expr := parse(t, "if x > 0 then 1 else 0")
	ifExpr, ok := expr.(*IfExpr)
	if !ok {
		t.Fatalf("expr type = %T, want *IfExpr", expr)
	}
	cond, ok := ifExpr.Cond.(*BinExpr)
	if !ok || cond.Op != OpGt {
		t.Errorf("cond = %T, want > comparison", ifExpr.Cond)
	}
}

func TestParseLet(t *testing.T) {
	expr := parse(t, "let x = 1 x + 1")
	let, ok := expr.(*LetExpr)
	if !ok {
		t.Fatalf("expr type = %T, want *LetExpr", expr)
	}
	if let.Name != "x" {
		t.Errorf("name = %q, want \"x\"", let.Name)
	}
	if _, ok := let.Body.(*BinExpr); !ok {
		t.Errorf("body = %T, want *BinExpr", let.Body)
	}
}

func TestParseNestedLet(t *testing.T) {
	expr := parse(t, "let x = 1 let y = 2 x + y")
	outer := expr.(*LetExpr)
	if _, ok := outer.Body.(*LetExpr); !ok {
		t.Fatalf("body = %T, want nested *LetExpr", outer.Body)
	}
}

func TestParseParenthesized(t *testing.T) {
	// (1 + 2) * 3 parses as mul at the root
	expr := parse(t, "(1 + 2) * 3")
	mul, ok := expr.(*BinExpr)
	if !ok || mul.Op != OpMul {
		t.Fatalf("root = %T, want mul", expr)
	}
}

func TestParseErrorsAreStructured(t *testing.T) {
	tests := []struct {
		input    string
		expected string // Expected field of the first error
	}{
		{"let 1 = 2 3", "identifier"},
		{"if x then 1", `"else"`},
		{"secret 42", `"("`},
		{"1 +", "expression"},
		{"(1 + 2", `")"`},
		{"1 2", "end of input"},
	}

	for _, tc := range tests {
		_, err := ParseSource(tc.input)
		if err == nil {
			t.Errorf("Parse(%q): expected error", tc.input)
			continue
		}
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("Parse(%q): error type = %T, want *ParseError", tc.input, err)
			continue
		}
		if parseErr.Expected != tc.expected {
			t.Errorf("Parse(%q): expected field = %q, want %q", tc.input, parseErr.Expected, tc.expected)
		}
	}
}

func TestParseUnexpectedEOF(t *testing.T) {
	_, err := ParseSource("let x =")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if parseErr.Tok.Type != TokenEOF {
		t.Errorf("offending token = %v, want EOF", parseErr.Tok)
	}
}

func TestParseSpans(t *testing.T) {
	expr := parse(t, "let x = 1 x")
	span := expr.Span()
	if span.Start.Offset != 0 {
		t.Errorf("span start = %d, want 0", span.Start.Offset)
	}
	if span.End.Offset != 11 {
		t.Errorf("span end = %d, want 11", span.End.Offset)
	}
}
