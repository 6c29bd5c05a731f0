package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Pipeline: tokenize → parse → transform → emit
// ---------------------------------------------------------------------------

// Transpile compiles MiniObli source text to constant-time Go source. The
// first failure from any stage aborts the pipeline; the transformation and
// emission stages are total.
func Transpile(source string) (string, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return "", fmt.Errorf("lex: %w", err)
	}

	ast, err := NewParser(tokens).Parse()
	if err != nil {
		return "", fmt.Errorf("parse: %w", err)
	}

	return Emit(ToOblivious(ast)), nil
}

// Check validates source without emitting code. Transformation and
// emission cannot fail, so lexing and parsing are the whole check.
func Check(source string) error {
	tokens, err := Tokenize(source)
	if err != nil {
		return fmt.Errorf("lex: %w", err)
	}
	if _, err := NewParser(tokens).Parse(); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

// Report summarizes the secrecy structure of a transformed program.
type Report struct {
	// ContainsSecret is true when the source tree carries a secret marker
	// anywhere.
	ContainsSecret bool `json:"contains_secret"`
	// ResultSecret is true when the program's value depends on secret data.
	ResultSecret bool `json:"result_secret"`
	// SecretVars lists names bound to secret-derived values, sorted.
	SecretVars []string `json:"secret_vars,omitempty"`
	// Selections counts conditionals rewritten into oblivious selections.
	Selections int `json:"selections"`
	// PublicBranches counts conditionals whose condition was proven public.
	PublicBranches int `json:"public_branches"`
}

// Analyze parses and transforms source and reports its secrecy structure.
func Analyze(source string) (*Report, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, fmt.Errorf("lex: %w", err)
	}
	ast, err := NewParser(tokens).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	ir := ToOblivious(ast)
	report := &Report{
		ContainsSecret: ContainsSecret(ast),
		ResultSecret:   ir.IsSecret(),
	}

	secretVars := make(map[string]struct{})
	collectReport(ir, report, secretVars)
	for name := range secretVars {
		report.SecretVars = append(report.SecretVars, name)
	}
	sort.Strings(report.SecretVars)

	return report, nil
}

func collectReport(e ObliExpr, r *Report, secretVars map[string]struct{}) {
	switch n := e.(type) {
	case *CtBinExpr:
		collectReport(n.Left, r, secretVars)
		collectReport(n.Right, r, secretVars)
	case *CtUnaryExpr:
		collectReport(n.Operand, r, secretVars)
	case *CtSelect:
		r.Selections++
		collectReport(n.Cond, r, secretVars)
		collectReport(n.Then, r, secretVars)
		collectReport(n.Else, r, secretVars)
	case *PubIf:
		r.PublicBranches++
		collectReport(n.Cond, r, secretVars)
		collectReport(n.Then, r, secretVars)
		collectReport(n.Else, r, secretVars)
	case *ObliLet:
		if n.Secret {
			secretVars[n.Name] = struct{}{}
		}
		collectReport(n.Value, r, secretVars)
		collectReport(n.Body, r, secretVars)
	}
}
