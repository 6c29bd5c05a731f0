package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Emitter: oblivious IR → Go source
// ---------------------------------------------------------------------------
//
// The emitted program is a self-contained package main. All values are
// int64; booleans are 0 or 1. Binary and unary operations render as calls
// to the correspondingly named ct* helper, and ctSelect evaluates both of
// its value arguments unconditionally before selecting with a mask, so the
// constant-time property survives the output stage. Conditionals proven
// public render as ordinary Go branches.

// ctBinOpIdents maps operator tags to emitted helper identifiers.
var ctBinOpIdents = map[CtBinOp]string{
	CtAdd: "ctAdd",
	CtSub: "ctSub",
	CtMul: "ctMul",
	CtDiv: "ctDiv",
	CtMod: "ctMod",
	CtEq:  "ctEq",
	CtNe:  "ctNe",
	CtLt:  "ctLt",
	CtLe:  "ctLe",
	CtGt:  "ctGt",
	CtGe:  "ctGe",
	CtAnd: "ctAnd",
	CtOr:  "ctOr",
}

var ctUnaryOpIdents = map[CtUnaryOp]string{
	CtNeg: "ctNeg",
	CtNot: "ctNot",
}

// emitPreamble defines the constant-time helpers the emitted expression
// calls. Comparisons and selection are mask-based; division and modulo are
// advisory tags only, since hardware division is not constant-time.
const emitPreamble = `func ctAdd(a, b int64) int64 { return a + b }
func ctSub(a, b int64) int64 { return a - b }
func ctMul(a, b int64) int64 { return a * b }

// ctDiv and ctMod are advisory: the ct tag records intent, but hardware
// integer division may leak timing.
func ctDiv(a, b int64) int64 { return a / b }
func ctMod(a, b int64) int64 { return a % b }

func ctEq(a, b int64) int64 {
	d := uint64(a ^ b)
	d |= -d
	return int64(1 ^ (d >> 63))
}

func ctNe(a, b int64) int64 { return ctEq(a, b) ^ 1 }

func ctLt(a, b int64) int64 {
	return int64(uint64((a-b)^((a^b)&((a-b)^a))) >> 63)
}

func ctLe(a, b int64) int64 { return ctLt(b, a) ^ 1 }
func ctGt(a, b int64) int64 { return ctLt(b, a) }
func ctGe(a, b int64) int64 { return ctLt(a, b) ^ 1 }

func ctAnd(a, b int64) int64 { return a & b }
func ctOr(a, b int64) int64  { return a | b }
func ctNeg(a int64) int64    { return -a }
func ctNot(a int64) int64    { return a ^ 1 }

// ctSelect picks t when c is 1 and e when c is 0. Both arguments were
// already evaluated by the caller; the pick itself is branch-free.
func ctSelect(c, t, e int64) int64 {
	mask := -c
	return (t & mask) | (e &^ mask)
}

// secretInt and secretBool stand in for loading secret inputs; in a real
// deployment these would read from a protected source.
func secretInt(v int64) int64  { return v }
func secretBool(v int64) int64 { return v }
`

// Emit renders an oblivious IR tree as a complete Go program that computes
// the expression and prints the result.
func Emit(e ObliExpr) string {
	var b strings.Builder

	b.WriteString("// Code generated by obli. DO NOT EDIT.\n")
	b.WriteString("//\n")
	b.WriteString("// All operations on values derived from secret data are routed through\n")
	b.WriteString("// the ct* helpers below.\n")
	b.WriteString("package main\n\n")
	b.WriteString("import \"fmt\"\n\n")
	b.WriteString(emitPreamble)
	b.WriteString("\nfunc main() {\n")
	b.WriteString("\tresult := ")
	emitExpr(&b, e)
	b.WriteString("\n\tfmt.Println(result)\n")
	b.WriteString("}\n")

	return b.String()
}

// EmitExpr renders a single IR node as a Go expression, without the
// surrounding program.
func EmitExpr(e ObliExpr) string {
	var b strings.Builder
	emitExpr(&b, e)
	return b.String()
}

func emitExpr(b *strings.Builder, e ObliExpr) {
	switch n := e.(type) {
	case *PubInt:
		fmt.Fprintf(b, "int64(%d)", n.Value)

	case *PubBool:
		fmt.Fprintf(b, "int64(%d)", boolToInt(n.Value))

	case *SecretInt:
		fmt.Fprintf(b, "secretInt(%d)", n.Value)

	case *SecretBool:
		fmt.Fprintf(b, "secretBool(%d)", boolToInt(n.Value))

	case *ObliVar:
		b.WriteString(n.Name)

	case *CtBinExpr:
		b.WriteString(ctBinOpIdents[n.Op])
		b.WriteByte('(')
		emitExpr(b, n.Left)
		b.WriteString(", ")
		emitExpr(b, n.Right)
		b.WriteByte(')')

	case *CtUnaryExpr:
		b.WriteString(ctUnaryOpIdents[n.Op])
		b.WriteByte('(')
		emitExpr(b, n.Operand)
		b.WriteByte(')')

	case *CtSelect:
		// Go evaluates all three arguments before the call, so both
		// candidate values are computed regardless of the condition.
		b.WriteString("ctSelect(")
		emitExpr(b, n.Cond)
		b.WriteString(", ")
		emitExpr(b, n.Then)
		b.WriteString(", ")
		emitExpr(b, n.Else)
		b.WriteByte(')')

	case *PubIf:
		// The condition is proven public, so an ordinary branch is safe.
		b.WriteString("func() int64 {\n\t\tif ")
		emitExpr(b, n.Cond)
		b.WriteString(" != 0 {\n\t\t\treturn ")
		emitExpr(b, n.Then)
		b.WriteString("\n\t\t}\n\t\treturn ")
		emitExpr(b, n.Else)
		b.WriteString("\n\t}()")

	case *ObliLet:
		b.WriteString("func() int64 {\n\t\t")
		b.WriteString(n.Name)
		b.WriteString(" := ")
		emitExpr(b, n.Value)
		b.WriteString("\n\t\t_ = ")
		b.WriteString(n.Name)
		b.WriteString("\n\t\treturn ")
		emitExpr(b, n.Body)
		b.WriteString("\n\t}()")
	}
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
