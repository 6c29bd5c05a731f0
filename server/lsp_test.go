package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/hyperpolymath/obli-transpiler-framework/compiler"
)

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix_SimpleWord(t *testing.T) {
	text := "let secr"
	pos := protocol.Position{Line: 0, Character: 8}
	prefix := extractPrefix(text, pos)
	if prefix != "secr" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "secr")
	}
}

func TestExtractPrefix_AtStart(t *testing.T) {
	text := "le"
	pos := protocol.Position{Line: 0, Character: 2}
	prefix := extractPrefix(text, pos)
	if prefix != "le" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "le")
	}
}

func TestExtractPrefix_EmptyLine(t *testing.T) {
	prefix := extractPrefix("", protocol.Position{Line: 0, Character: 0})
	if prefix != "" {
		t.Errorf("extractPrefix = %q, want empty string", prefix)
	}
}

func TestExtractPrefix_MultiLine(t *testing.T) {
	text := "let x = 1\nif x th"
	pos := protocol.Position{Line: 1, Character: 7}
	prefix := extractPrefix(text, pos)
	if prefix != "th" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "th")
	}
}

func TestExtractPrefix_AfterOperator(t *testing.T) {
	text := "x+se"
	pos := protocol.Position{Line: 0, Character: 4}
	prefix := extractPrefix(text, pos)
	if prefix != "se" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "se")
	}
}

func TestExtractPrefix_PastLineEnd(t *testing.T) {
	text := "abc"
	pos := protocol.Position{Line: 0, Character: 99}
	prefix := extractPrefix(text, pos)
	if prefix != "abc" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "abc")
	}
}

func TestExtractWord_MiddleOfWord(t *testing.T) {
	text := "let balance = secret(100) balance"
	pos := protocol.Position{Line: 0, Character: 6}
	word := extractWord(text, pos)
	if word != "balance" {
		t.Errorf("extractWord = %q, want %q", word, "balance")
	}
}

func TestExtractWord_OnOperator(t *testing.T) {
	text := "a + b"
	pos := protocol.Position{Line: 0, Character: 2}
	word := extractWord(text, pos)
	if word != "" {
		t.Errorf("extractWord = %q, want empty string", word)
	}
}

func TestExtractWord_LineOutOfRange(t *testing.T) {
	word := extractWord("abc", protocol.Position{Line: 5, Character: 0})
	if word != "" {
		t.Errorf("extractWord = %q, want empty string", word)
	}
}

// ---------------------------------------------------------------------------
// Hover classification
// ---------------------------------------------------------------------------

func hoverValue(t *testing.T, h *protocol.Hover) string {
	t.Helper()
	if h == nil {
		t.Fatal("hover is nil")
	}
	content, ok := h.Contents.(protocol.MarkupContent)
	if !ok {
		t.Fatalf("hover contents type = %T, want MarkupContent", h.Contents)
	}
	return content.Value
}

func TestHover_Keyword(t *testing.T) {
	s := NewLSP()
	value := hoverValue(t, s.hover("secret(1)", "secret"))
	if !strings.Contains(value, "sensitive") {
		t.Errorf("keyword hover = %q, want mention of sensitivity", value)
	}
}

func TestHover_SecretVariable(t *testing.T) {
	s := NewLSP()
	text := "let x = secret(5) x + 1"
	value := hoverValue(t, s.hover(text, "x"))
	if !strings.Contains(value, "secret") {
		t.Errorf("hover for secret binding = %q, want secret classification", value)
	}
}

func TestHover_PublicVariable(t *testing.T) {
	s := NewLSP()
	text := "let y = 5 y + 1"
	value := hoverValue(t, s.hover(text, "y"))
	if !strings.Contains(value, "public") {
		t.Errorf("hover for public binding = %q, want public classification", value)
	}
}

func TestHover_InvalidSourceYieldsNothing(t *testing.T) {
	s := NewLSP()
	if h := s.hover("let = 5", "x"); h != nil {
		t.Errorf("hover on invalid source = %v, want nil", h)
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnosticRange_LexError(t *testing.T) {
	text := "1 + $"
	err := compiler.Check(text)
	if err == nil {
		t.Fatal("Check should fail on an unexpected character")
	}

	rng := errorRange(text, err)
	if rng.Start.Line != 0 {
		t.Errorf("range start line = %d, want 0", rng.Start.Line)
	}
	if rng.Start.Character != 4 {
		t.Errorf("range start character = %d, want 4", rng.Start.Character)
	}
}

func TestDiagnosticRange_ParseErrorAtToken(t *testing.T) {
	text := "let 42 = 1 2"
	err := compiler.Check(text)
	if err == nil {
		t.Fatal("Check should fail when let is not followed by an identifier")
	}

	rng := errorRange(text, err)
	if rng.Start.Line != 0 {
		t.Errorf("range start line = %d, want 0", rng.Start.Line)
	}
	if rng.Start.Character != 4 {
		t.Errorf("range start character = %d, want 4", rng.Start.Character)
	}
	if rng.End.Character != 6 {
		t.Errorf("range end character = %d, want 6 (token width 2)", rng.End.Character)
	}
}

func TestDiagnosticRange_EOFPointsAtEnd(t *testing.T) {
	text := "1 +"
	err := compiler.Check(text)
	if err == nil {
		t.Fatal("Check should fail on a dangling operator")
	}

	rng := errorRange(text, err)
	if rng.Start.Line != 0 {
		t.Errorf("range start line = %d, want 0", rng.Start.Line)
	}
	if rng.Start.Character != 3 {
		t.Errorf("range start character = %d, want 3 (end of text)", rng.Start.Character)
	}
}

func TestDiagnosticFor_CarriesMessage(t *testing.T) {
	text := "1 + $"
	err := compiler.Check(text)
	if err == nil {
		t.Fatal("Check should fail on an unexpected character")
	}

	diag := diagnosticFor(text, err)
	if diag.Message == "" {
		t.Error("diagnostic message is empty")
	}
	if diag.Severity == nil || *diag.Severity != protocol.DiagnosticSeverityError {
		t.Error("diagnostic severity should be Error")
	}
	if diag.Source == nil || *diag.Source != lspName {
		t.Error("diagnostic source should name the server")
	}
}
