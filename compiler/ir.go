package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// IR: Oblivious intermediate representation
// ---------------------------------------------------------------------------
//
// The IR represents programs in which every operation is constant-time.
// Branching on secrets is replaced with constant-time selection. Each node
// decides its secrecy flag once, when the transformation constructs it; the
// flag is the definitive answer to "does this value depend on secret data"
// and is never recomputed by walking children.

// CtBinOp is a constant-time binary operator tag.
type CtBinOp int

const (
	CtAdd CtBinOp = iota
	CtSub
	CtMul
	CtDiv // timing may still leak through hardware division
	CtMod
	CtEq
	CtNe
	CtLt
	CtLe
	CtGt
	CtGe
	CtAnd
	CtOr
)

var ctBinOpNames = map[CtBinOp]string{
	CtAdd: "ct_add",
	CtSub: "ct_sub",
	CtMul: "ct_mul",
	CtDiv: "ct_div",
	CtMod: "ct_mod",
	CtEq:  "ct_eq",
	CtNe:  "ct_ne",
	CtLt:  "ct_lt",
	CtLe:  "ct_le",
	CtGt:  "ct_gt",
	CtGe:  "ct_ge",
	CtAnd: "ct_and",
	CtOr:  "ct_or",
}

var ctBinOpsByName = func() map[string]CtBinOp {
	m := make(map[string]CtBinOp, len(ctBinOpNames))
	for op, name := range ctBinOpNames {
		m[name] = op
	}
	return m
}()

func (op CtBinOp) String() string {
	if name, ok := ctBinOpNames[op]; ok {
		return name
	}
	return fmt.Sprintf("CtBinOp(%d)", int(op))
}

// CtBinOpByName resolves a wire-format operator name back to its tag.
func CtBinOpByName(name string) (CtBinOp, bool) {
	op, ok := ctBinOpsByName[name]
	return op, ok
}

// ctBinOpFor maps a source operator to its constant-time equivalent.
// The mapping is one-to-one.
func ctBinOpFor(op BinOp) CtBinOp {
	switch op {
	case OpAdd:
		return CtAdd
	case OpSub:
		return CtSub
	case OpMul:
		return CtMul
	case OpDiv:
		return CtDiv
	case OpMod:
		return CtMod
	case OpEq:
		return CtEq
	case OpNe:
		return CtNe
	case OpLt:
		return CtLt
	case OpLe:
		return CtLe
	case OpGt:
		return CtGt
	case OpGe:
		return CtGe
	case OpAnd:
		return CtAnd
	case OpOr:
		return CtOr
	}
	panic(fmt.Sprintf("compiler: no constant-time mapping for operator %v", op))
}

// CtUnaryOp is a constant-time unary operator tag.
type CtUnaryOp int

const (
	CtNeg CtUnaryOp = iota
	CtNot
)

var ctUnaryOpNames = map[CtUnaryOp]string{
	CtNeg: "ct_neg",
	CtNot: "ct_not",
}

func (op CtUnaryOp) String() string {
	if name, ok := ctUnaryOpNames[op]; ok {
		return name
	}
	return fmt.Sprintf("CtUnaryOp(%d)", int(op))
}

// CtUnaryOpByName resolves a wire-format operator name back to its tag.
func CtUnaryOpByName(name string) (CtUnaryOp, bool) {
	for op, n := range ctUnaryOpNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

// ObliExpr is the interface implemented by all oblivious IR nodes. Nodes
// are immutable once the transformation has constructed them.
type ObliExpr interface {
	// IsSecret reports whether the node's value depends on secret data.
	IsSecret() bool
	obli() // marker method
}

// PubInt is a public integer literal.
type PubInt struct {
	Value int64
}

func (n *PubInt) IsSecret() bool { return false }
func (n *PubInt) obli()          {}

// PubBool is a public boolean literal.
type PubBool struct {
	Value bool
}

func (n *PubBool) IsSecret() bool { return false }
func (n *PubBool) obli()          {}

// SecretInt is an integer whose value is known at transform time but must
// be treated as secret at runtime.
type SecretInt struct {
	Value int64
}

func (n *SecretInt) IsSecret() bool { return true }
func (n *SecretInt) obli()          {}

// SecretBool is a boolean flagged as secret.
type SecretBool struct {
	Value bool
}

func (n *SecretBool) IsSecret() bool { return true }
func (n *SecretBool) obli()          {}

// ObliVar is a variable reference with its secrecy flag.
type ObliVar struct {
	Name   string
	Secret bool
}

func (n *ObliVar) IsSecret() bool { return n.Secret }
func (n *ObliVar) obli()          {}

// CtBinExpr is a constant-time binary operation.
type CtBinExpr struct {
	Op     CtBinOp
	Left   ObliExpr
	Right  ObliExpr
	Secret bool
}

func (n *CtBinExpr) IsSecret() bool { return n.Secret }
func (n *CtBinExpr) obli()          {}

// CtUnaryExpr is a constant-time unary operation.
type CtUnaryExpr struct {
	Op      CtUnaryOp
	Operand ObliExpr
	Secret  bool
}

func (n *CtUnaryExpr) IsSecret() bool { return n.Secret }
func (n *CtUnaryExpr) obli()          {}

// CtSelect is a constant-time selection. It replaces if-then-else on a
// secret condition: both values are evaluated unconditionally and one is
// picked without branching. A selection is unconditionally secret.
type CtSelect struct {
	Cond ObliExpr
	Then ObliExpr
	Else ObliExpr
}

func (n *CtSelect) IsSecret() bool { return true }
func (n *CtSelect) obli()          {}

// PubIf is an ordinary branch, permitted only when its condition is proven
// public. Its secrecy is the OR of the branch secrecies; the public
// condition contributes no taint.
type PubIf struct {
	Cond ObliExpr
	Then ObliExpr
	Else ObliExpr
}

func (n *PubIf) IsSecret() bool { return n.Then.IsSecret() || n.Else.IsSecret() }
func (n *PubIf) obli()          {}

// ObliLet is a let binding. The flag reflects the secrecy of the bound
// value; the body carries its own flag.
type ObliLet struct {
	Name   string
	Value  ObliExpr
	Body   ObliExpr
	Secret bool
}

func (n *ObliLet) IsSecret() bool { return n.Secret }
func (n *ObliLet) obli()          {}

// DumpIR renders an IR tree as an s-expression, for debugging and the
// --emit-ir CLI flag.
func DumpIR(e ObliExpr) string {
	var b strings.Builder
	dumpIR(&b, e)
	return b.String()
}

func dumpIR(b *strings.Builder, e ObliExpr) {
	switch n := e.(type) {
	case *PubInt:
		fmt.Fprintf(b, "%d", n.Value)
	case *PubBool:
		fmt.Fprintf(b, "%t", n.Value)
	case *SecretInt:
		fmt.Fprintf(b, "(secret_int %d)", n.Value)
	case *SecretBool:
		fmt.Fprintf(b, "(secret_bool %t)", n.Value)
	case *ObliVar:
		if n.Secret {
			fmt.Fprintf(b, "(var %s secret)", n.Name)
		} else {
			fmt.Fprintf(b, "(var %s)", n.Name)
		}
	case *CtBinExpr:
		fmt.Fprintf(b, "(%s ", n.Op)
		dumpIR(b, n.Left)
		b.WriteByte(' ')
		dumpIR(b, n.Right)
		b.WriteByte(')')
	case *CtUnaryExpr:
		fmt.Fprintf(b, "(%s ", n.Op)
		dumpIR(b, n.Operand)
		b.WriteByte(')')
	case *CtSelect:
		b.WriteString("(ct_select ")
		dumpIR(b, n.Cond)
		b.WriteByte(' ')
		dumpIR(b, n.Then)
		b.WriteByte(' ')
		dumpIR(b, n.Else)
		b.WriteByte(')')
	case *PubIf:
		b.WriteString("(pub_if ")
		dumpIR(b, n.Cond)
		b.WriteByte(' ')
		dumpIR(b, n.Then)
		b.WriteByte(' ')
		dumpIR(b, n.Else)
		b.WriteByte(')')
	case *ObliLet:
		fmt.Fprintf(b, "(let %s ", n.Name)
		dumpIR(b, n.Value)
		b.WriteByte(' ')
		dumpIR(b, n.Body)
		b.WriteByte(')')
	}
}
