// Package artifact handles the on-disk form of transpiled programs: a
// canonical CBOR encoding of the oblivious IR plus a content-addressed
// SQLite cache.
package artifact

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/hyperpolymath/obli-transpiler-framework/compiler"
)

// CBOR encoding options with canonical mode, so the same IR always
// produces the same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("artifact: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Wire node kinds.
const (
	kindPubInt     = "pub_int"
	kindPubBool    = "pub_bool"
	kindSecretInt  = "secret_int"
	kindSecretBool = "secret_bool"
	kindVar        = "var"
	kindBin        = "bin"
	kindUnary      = "unary"
	kindSelect     = "select"
	kindPubIf      = "pub_if"
	kindLet        = "let"
)

// wireNode is the flat serialized form of one IR node. Children appear in
// evaluation order: condition/value first, then branches/body.
type wireNode struct {
	Kind   string      `cbor:"k"`
	Int    int64       `cbor:"i,omitempty"`
	Bool   bool        `cbor:"b,omitempty"`
	Name   string      `cbor:"n,omitempty"`
	Op     string      `cbor:"o,omitempty"`
	Secret bool        `cbor:"s,omitempty"`
	Kids   []*wireNode `cbor:"c,omitempty"`
}

// EncodeIR serializes an oblivious IR tree to canonical CBOR bytes.
func EncodeIR(e compiler.ObliExpr) ([]byte, error) {
	node, err := toWire(e)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(node)
}

// DecodeIR deserializes an oblivious IR tree from CBOR bytes.
func DecodeIR(data []byte) (compiler.ObliExpr, error) {
	var node wireNode
	if err := cbor.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("artifact: unmarshal IR: %w", err)
	}
	return fromWire(&node)
}

func toWire(e compiler.ObliExpr) (*wireNode, error) {
	switch n := e.(type) {
	case *compiler.PubInt:
		return &wireNode{Kind: kindPubInt, Int: n.Value}, nil
	case *compiler.PubBool:
		return &wireNode{Kind: kindPubBool, Bool: n.Value}, nil
	case *compiler.SecretInt:
		return &wireNode{Kind: kindSecretInt, Int: n.Value}, nil
	case *compiler.SecretBool:
		return &wireNode{Kind: kindSecretBool, Bool: n.Value}, nil
	case *compiler.ObliVar:
		return &wireNode{Kind: kindVar, Name: n.Name, Secret: n.Secret}, nil
	case *compiler.CtBinExpr:
		kids, err := toWireKids(n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return &wireNode{Kind: kindBin, Op: n.Op.String(), Secret: n.Secret, Kids: kids}, nil
	case *compiler.CtUnaryExpr:
		kids, err := toWireKids(n.Operand)
		if err != nil {
			return nil, err
		}
		return &wireNode{Kind: kindUnary, Op: n.Op.String(), Secret: n.Secret, Kids: kids}, nil
	case *compiler.CtSelect:
		kids, err := toWireKids(n.Cond, n.Then, n.Else)
		if err != nil {
			return nil, err
		}
		return &wireNode{Kind: kindSelect, Kids: kids}, nil
	case *compiler.PubIf:
		kids, err := toWireKids(n.Cond, n.Then, n.Else)
		if err != nil {
			return nil, err
		}
		return &wireNode{Kind: kindPubIf, Kids: kids}, nil
	case *compiler.ObliLet:
		kids, err := toWireKids(n.Value, n.Body)
		if err != nil {
			return nil, err
		}
		return &wireNode{Kind: kindLet, Name: n.Name, Secret: n.Secret, Kids: kids}, nil
	}
	return nil, fmt.Errorf("artifact: cannot encode IR node %T", e)
}

func toWireKids(kids ...compiler.ObliExpr) ([]*wireNode, error) {
	out := make([]*wireNode, len(kids))
	for i, kid := range kids {
		node, err := toWire(kid)
		if err != nil {
			return nil, err
		}
		out[i] = node
	}
	return out, nil
}

func fromWire(node *wireNode) (compiler.ObliExpr, error) {
	switch node.Kind {
	case kindPubInt:
		return &compiler.PubInt{Value: node.Int}, nil
	case kindPubBool:
		return &compiler.PubBool{Value: node.Bool}, nil
	case kindSecretInt:
		return &compiler.SecretInt{Value: node.Int}, nil
	case kindSecretBool:
		return &compiler.SecretBool{Value: node.Bool}, nil
	case kindVar:
		return &compiler.ObliVar{Name: node.Name, Secret: node.Secret}, nil
	case kindBin:
		op, ok := compiler.CtBinOpByName(node.Op)
		if !ok {
			return nil, fmt.Errorf("artifact: unknown binary operator %q", node.Op)
		}
		kids, err := fromWireKids(node, 2)
		if err != nil {
			return nil, err
		}
		return &compiler.CtBinExpr{Op: op, Left: kids[0], Right: kids[1], Secret: node.Secret}, nil
	case kindUnary:
		op, ok := compiler.CtUnaryOpByName(node.Op)
		if !ok {
			return nil, fmt.Errorf("artifact: unknown unary operator %q", node.Op)
		}
		kids, err := fromWireKids(node, 1)
		if err != nil {
			return nil, err
		}
		return &compiler.CtUnaryExpr{Op: op, Operand: kids[0], Secret: node.Secret}, nil
	case kindSelect:
		kids, err := fromWireKids(node, 3)
		if err != nil {
			return nil, err
		}
		return &compiler.CtSelect{Cond: kids[0], Then: kids[1], Else: kids[2]}, nil
	case kindPubIf:
		kids, err := fromWireKids(node, 3)
		if err != nil {
			return nil, err
		}
		return &compiler.PubIf{Cond: kids[0], Then: kids[1], Else: kids[2]}, nil
	case kindLet:
		kids, err := fromWireKids(node, 2)
		if err != nil {
			return nil, err
		}
		return &compiler.ObliLet{Name: node.Name, Value: kids[0], Body: kids[1], Secret: node.Secret}, nil
	}
	return nil, fmt.Errorf("artifact: unknown IR node kind %q", node.Kind)
}

func fromWireKids(node *wireNode, want int) ([]compiler.ObliExpr, error) {
	if len(node.Kids) != want {
		return nil, fmt.Errorf("artifact: %s node has %d children, want %d", node.Kind, len(node.Kids), want)
	}
	out := make([]compiler.ObliExpr, want)
	for i, kid := range node.Kids {
		expr, err := fromWire(kid)
		if err != nil {
			return nil, err
		}
		out[i] = expr
	}
	return out, nil
}
