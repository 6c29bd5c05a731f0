package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for MiniObli
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// BinOp is a binary operator in the source language.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binOpNames = map[BinOp]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAnd: "and",
	OpOr:  "or",
}

func (op BinOp) String() string {
	if name, ok := binOpNames[op]; ok {
		return name
	}
	return "?"
}

// UnaryOp is a unary operator in the source language.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

func (op UnaryOp) String() string {
	if op == OpNeg {
		return "-"
	}
	return "not"
}

// Expr is the interface implemented by all source expression nodes.
// Trees are immutable once the parser has built them; each node is owned
// by its parent and consumed exactly once by the transformation.
type Expr interface {
	Span() Span
	expr() // marker method
}

// IntLit represents an integer literal.
type IntLit struct {
	SpanVal Span
	Value   int64
}

func (n *IntLit) Span() Span { return n.SpanVal }
func (n *IntLit) expr()      {}

// BoolLit represents a boolean literal.
type BoolLit struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLit) Span() Span { return n.SpanVal }
func (n *BoolLit) expr()      {}

// VarRef represents a variable reference.
type VarRef struct {
	SpanVal Span
	Name    string
}

func (n *VarRef) Span() Span { return n.SpanVal }
func (n *VarRef) expr()      {}

// SecretExpr marks its inner expression as sensitive: secret(e).
type SecretExpr struct {
	SpanVal Span
	Inner   Expr
}

func (n *SecretExpr) Span() Span { return n.SpanVal }
func (n *SecretExpr) expr()      {}

// BinExpr represents a binary operation.
type BinExpr struct {
	SpanVal Span
	Op      BinOp
	Left    Expr
	Right   Expr
}

func (n *BinExpr) Span() Span { return n.SpanVal }
func (n *BinExpr) expr()      {}

// UnaryExpr represents a unary operation.
type UnaryExpr struct {
	SpanVal Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Span() Span { return n.SpanVal }
func (n *UnaryExpr) expr()      {}

// IfExpr represents an if-then-else expression.
type IfExpr struct {
	SpanVal Span
	Cond    Expr
	Then    Expr
	Else    Expr
}

func (n *IfExpr) Span() Span { return n.SpanVal }
func (n *IfExpr) expr()      {}

// LetExpr represents a let binding: let name = value body.
type LetExpr struct {
	SpanVal Span
	Name    string
	Value   Expr
	Body    Expr
}

func (n *LetExpr) Span() Span { return n.SpanVal }
func (n *LetExpr) expr()      {}

// ContainsSecret reports whether any node reachable from e is a secret
// marker. Literals and bare variable references are never secret by
// themselves.
func ContainsSecret(e Expr) bool {
	switch n := e.(type) {
	case *SecretExpr:
		return true
	case *IntLit, *BoolLit, *VarRef:
		return false
	case *BinExpr:
		return ContainsSecret(n.Left) || ContainsSecret(n.Right)
	case *UnaryExpr:
		return ContainsSecret(n.Operand)
	case *IfExpr:
		return ContainsSecret(n.Cond) || ContainsSecret(n.Then) || ContainsSecret(n.Else)
	case *LetExpr:
		return ContainsSecret(n.Value) || ContainsSecret(n.Body)
	}
	return false
}
