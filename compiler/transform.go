package compiler

// ---------------------------------------------------------------------------
// Transformation: AST → oblivious IR
// ---------------------------------------------------------------------------
//
// The key transformation is branch elimination: an if-then-else whose
// condition depends on secret data becomes a constant-time selection over
// both (eagerly transformed) branches, so execution time does not reveal
// which branch was "live". A conditional whose condition is proven public
// keeps ordinary control flow.

// secrecyContext tracks which variable names currently hold secret-derived
// values. It has exactly one owner, the in-progress transformation call,
// and is accessed strictly sequentially.
//
// Membership is lexically scoped: the let case records the name's previous
// state and restores it once the body has been transformed, so a binding's
// secrecy never leaks into sibling scopes.
type secrecyContext struct {
	secretVars map[string]struct{}
}

func newSecrecyContext() *secrecyContext {
	return &secrecyContext{secretVars: make(map[string]struct{})}
}

// markSecret adds name to the tracked set. Idempotent.
func (c *secrecyContext) markSecret(name string) {
	c.secretVars[name] = struct{}{}
}

// unmarkSecret removes name from the tracked set. Used only to restore a
// name's state when its binding goes out of scope.
func (c *secrecyContext) unmarkSecret(name string) {
	delete(c.secretVars, name)
}

// isSecret reports whether name is currently known to be secret. Unknown
// names are public.
func (c *secrecyContext) isSecret(name string) bool {
	_, ok := c.secretVars[name]
	return ok
}

// ToOblivious transforms a source expression into oblivious IR. It is
// total: any tree the parser can produce transforms without error, and
// identical inputs yield structurally identical outputs.
func ToOblivious(e Expr) ObliExpr {
	ctx := newSecrecyContext()
	return transformExpr(e, ctx)
}

func transformExpr(e Expr, ctx *secrecyContext) ObliExpr {
	switch n := e.(type) {
	case *IntLit:
		return &PubInt{Value: n.Value}

	case *BoolLit:
		return &PubBool{Value: n.Value}

	case *VarRef:
		return &ObliVar{Name: n.Name, Secret: ctx.isSecret(n.Name)}

	case *SecretExpr:
		// A marker directly on a literal folds into the secret literal.
		switch inner := n.Inner.(type) {
		case *IntLit:
			return &SecretInt{Value: inner.Value}
		case *BoolLit:
			return &SecretBool{Value: inner.Value}
		default:
			return forceSecret(transformExpr(n.Inner, ctx))
		}

	case *BinExpr:
		left := transformExpr(n.Left, ctx)
		right := transformExpr(n.Right, ctx)
		return &CtBinExpr{
			Op:     ctBinOpFor(n.Op),
			Left:   left,
			Right:  right,
			Secret: left.IsSecret() || right.IsSecret(),
		}

	case *UnaryExpr:
		operand := transformExpr(n.Operand, ctx)
		op := CtNeg
		if n.Op == OpNot {
			op = CtNot
		}
		return &CtUnaryExpr{
			Op:      op,
			Operand: operand,
			Secret:  operand.IsSecret(),
		}

	case *IfExpr:
		cond := transformExpr(n.Cond, ctx)
		thenBranch := transformExpr(n.Then, ctx)
		elseBranch := transformExpr(n.Else, ctx)

		// Branch elimination: a secret condition forces a selection over
		// both branches. Both were transformed eagerly above.
		if cond.IsSecret() {
			return &CtSelect{Cond: cond, Then: thenBranch, Else: elseBranch}
		}
		return &PubIf{Cond: cond, Then: thenBranch, Else: elseBranch}

	case *LetExpr:
		value := transformExpr(n.Value, ctx)
		secret := value.IsSecret()

		// Scope the binding: record the name's secrecy for the body and
		// restore its previous state afterwards. Shadowing a secret name
		// with a public binding makes the name public within the body.
		wasSecret := ctx.isSecret(n.Name)
		if secret {
			ctx.markSecret(n.Name)
		} else {
			ctx.unmarkSecret(n.Name)
		}

		body := transformExpr(n.Body, ctx)

		if wasSecret {
			ctx.markSecret(n.Name)
		} else {
			ctx.unmarkSecret(n.Name)
		}

		return &ObliLet{
			Name:   n.Name,
			Value:  value,
			Body:   body,
			Secret: secret,
		}
	}

	// The AST variants above are exhaustive.
	panic("compiler: unknown expression variant")
}

// forceSecret converts an already-transformed node into one guaranteed to
// read as secret. It is total over every IR shape: a secret marker applies
// regardless of what it wraps.
func forceSecret(e ObliExpr) ObliExpr {
	switch n := e.(type) {
	case *PubInt:
		return &SecretInt{Value: n.Value}
	case *PubBool:
		return &SecretBool{Value: n.Value}
	case *SecretInt, *SecretBool:
		return e
	case *ObliVar:
		return &ObliVar{Name: n.Name, Secret: true}
	case *CtBinExpr:
		return &CtBinExpr{Op: n.Op, Left: n.Left, Right: n.Right, Secret: true}
	case *CtUnaryExpr:
		return &CtUnaryExpr{Op: n.Op, Operand: n.Operand, Secret: true}
	case *CtSelect:
		// Selections are unconditionally secret already.
		return n
	case *PubIf:
		// The condition stays public, so the branch itself may remain;
		// the value it produces must read as secret whichever branch runs.
		return &PubIf{Cond: n.Cond, Then: forceSecret(n.Then), Else: forceSecret(n.Else)}
	case *ObliLet:
		// The let's observable value is its body.
		return &ObliLet{Name: n.Name, Value: n.Value, Body: forceSecret(n.Body), Secret: true}
	}
	return e
}
