package compiler

import (
	"strings"
	"testing"
)

func TestEmitPublicAdd(t *testing.T) {
	got := EmitExpr(transform(t, "1 + 2"))
	want := "ctAdd(int64(1), int64(2))"
	if got != want {
		t.Errorf("EmitExpr = %q, want %q", got, want)
	}
}

func TestEmitSecretLiteral(t *testing.T) {
	got := EmitExpr(transform(t, "secret(42)"))
	if got != "secretInt(42)" {
		t.Errorf("EmitExpr = %q, want secretInt(42)", got)
	}
}

func TestEmitBooleansAsBits(t *testing.T) {
	if got := EmitExpr(transform(t, "true")); got != "int64(1)" {
		t.Errorf("EmitExpr(true) = %q, want int64(1)", got)
	}
	if got := EmitExpr(transform(t, "false")); got != "int64(0)" {
		t.Errorf("EmitExpr(false) = %q, want int64(0)", got)
	}
}

func TestEmitSelectCallsPrimitive(t *testing.T) {
	got := EmitExpr(transform(t, "if secret(true) then 1 else 2"))
	want := "ctSelect(secretBool(1), int64(1), int64(2))"
	if got != want {
		t.Errorf("EmitExpr = %q, want %q", got, want)
	}
}

func TestEmitPublicIfBranches(t *testing.T) {
	got := EmitExpr(transform(t, "if 1 < 2 then 3 else 4"))
	if !strings.Contains(got, "if ctLt(int64(1), int64(2)) != 0 {") {
		t.Errorf("public conditional did not emit an ordinary branch:\n%s", got)
	}
}

func TestEmitLetBindsName(t *testing.T) {
	got := EmitExpr(transform(t, "let x = 1 x + 1"))
	if !strings.Contains(got, "x := int64(1)") {
		t.Errorf("let did not bind x:\n%s", got)
	}
	if !strings.Contains(got, "return ctAdd(x, int64(1))") {
		t.Errorf("let body does not reference the binding:\n%s", got)
	}
}

func TestEmitProgramShape(t *testing.T) {
	code := Emit(transform(t, "let key = secret(3) if key > 0 then key else -key"))

	for _, fragment := range []string{
		"// Code generated by obli. DO NOT EDIT.",
		"package main",
		"func ctSelect(c, t, e int64) int64 {",
		"func main() {",
		"fmt.Println(result)",
	} {
		if !strings.Contains(code, fragment) {
			t.Errorf("emitted program missing %q", fragment)
		}
	}

	// The secret condition must have produced a selection, not a branch.
	if !strings.Contains(code, "ctSelect(ctGt(key, int64(0)), key, ctNeg(key))") {
		t.Errorf("expected a selection over both branches:\n%s", code)
	}
}

func TestEmitDeterministic(t *testing.T) {
	const input = "let x = secret(1) if x > 0 then 1 else 0"
	a, err := Transpile(input)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Transpile(input)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("repeated transpilation is not byte-identical")
	}
}
