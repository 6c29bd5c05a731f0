package compiler

import (
	"errors"
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) + - * / % == != < <= > >= =`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenPercent, "%"},
		{TokenEq, "=="},
		{TokenNe, "!="},
		{TokenLt, "<"},
		{TokenLe, "<="},
		{TokenGt, ">"},
		{TokenGe, ">="},
		{TokenAssign, "="},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerKeywords(t *testing.T) {
	input := `let if then else secret true false and or not`
	expected := []TokenType{
		TokenLet, TokenIf, TokenThen, TokenElse, TokenSecret,
		TokenTrue, TokenFalse, TokenAnd, TokenOr, TokenNot, TokenEOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, want)
		}
	}
}

func TestLexerSymbolicAndOrNot(t *testing.T) {
	input := `a && b || !c`
	expected := []TokenType{
		TokenIdentifier, TokenAnd, TokenIdentifier, TokenOr,
		TokenNot, TokenIdentifier, TokenEOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, want)
		}
	}
}

func TestLexerLetExpression(t *testing.T) {
	tokens, err := Tokenize("let x = 42")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLet, "let"},
		{TokenIdentifier, "x"},
		{TokenAssign, "="},
		{TokenInt, "42"},
		{TokenEOF, ""},
	}
	if len(tokens) != len(expected) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(expected))
	}
	for i, exp := range expected {
		if tokens[i].Type != exp.typ || tokens[i].Literal != exp.lit {
			t.Errorf("token[%d] = %v, want %s(%q)", i, tokens[i], exp.typ, exp.lit)
		}
	}
}

func TestLexerComments(t *testing.T) {
	tokens, err := Tokenize("1 # the answer\n+ 2")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	expected := []TokenType{TokenInt, TokenPlus, TokenInt, TokenEOF}
	if len(tokens) != len(expected) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(expected))
	}
	for i, want := range expected {
		if tokens[i].Type != want {
			t.Errorf("token[%d] type = %v, want %v", i, tokens[i].Type, want)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	tokens, err := Tokenize("let x =\n  42")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	// let at 1:1, x at 1:5, = at 1:7, 42 at 2:3
	expected := []struct {
		line, col int
	}{
		{1, 1},
		{1, 5},
		{1, 7},
		{2, 3},
	}
	for i, exp := range expected {
		pos := tokens[i].Pos
		if pos.Line != exp.line || pos.Column != exp.col {
			t.Errorf("token[%d] pos = %d:%d, want %d:%d", i, pos.Line, pos.Column, exp.line, exp.col)
		}
	}
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	_, err := Tokenize("1 + @")
	if err == nil {
		t.Fatal("expected lexical error")
	}
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("error type = %T, want *LexError", err)
	}
	if lexErr.Pos.Column != 5 {
		t.Errorf("error column = %d, want 5", lexErr.Pos.Column)
	}
}

func TestLexerLoneAmpersand(t *testing.T) {
	_, err := Tokenize("a & b")
	if err == nil {
		t.Fatal("expected lexical error for single '&'")
	}
}

func TestLexerOverflowingNumber(t *testing.T) {
	_, err := Tokenize("99999999999999999999999999")
	if err == nil {
		t.Fatal("expected lexical error for out-of-range integer")
	}
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("error type = %T, want *LexError", err)
	}
}

func TestLexerStopsAtFirstError(t *testing.T) {
	// The '@' comes before the '$'; only the first failure is reported.
	_, err := Tokenize("@ $")
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("error type = %T, want *LexError", err)
	}
	if lexErr.Pos.Column != 1 {
		t.Errorf("error column = %d, want 1", lexErr.Pos.Column)
	}
}
