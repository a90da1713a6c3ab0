package caexpr

import (
	"testing"

	"github.com/kr/pretty"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
)

// fakeEnv is a minimal Env for testing Evaluate in isolation, grounded on
// the ordinary/variable tables but without pulling in internal/symbols.
type fakeEnv struct {
	ordinary map[ast.ID]Value
	vars     map[ast.ID]Value
}

func (e *fakeEnv) OrdinaryAttribute(name ast.ID, attr byte) (Value, bool) {
	v, ok := e.ordinary[name]
	return v, ok
}

func (e *fakeEnv) Variable(name ast.ID, subscript *int32) (Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

func (e *fakeEnv) HasLibrary(name ast.ID) bool { return false }

func constTok(n int32) *ast.Expr { return &ast.Expr{Node: ast.NodeConstant, IntVal: n} }
func opTok(op string) *ast.Expr  { return &ast.Expr{Node: ast.NodeBinary, Op: op} }

func evalA(t *testing.T, tokens []*ast.Expr) (int32, []diagnostics.Diagnostic) {
	t.Helper()
	col := &diagnostics.Collector{}
	expr := Resolve(&ast.Expr{Raw: tokens}, ast.KindA, col)
	v := Evaluate(expr, &fakeEnv{}, col)
	return v.A, col.Diags
}

func TestResolveArithmeticPrecedence(t *testing.T) {
	// 2 + 3 * 4 => 14, '*' binds tighter than '+'
	tokens := []*ast.Expr{constTok(2), opTok("+"), constTok(3), opTok("*"), constTok(4)}
	got, diags := evalA(t, tokens)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %# v", pretty.Formatter(diags))
	}
	if got != 14 {
		t.Fatalf("expected 14, got %d (%# v)", got, pretty.Formatter(tokens))
	}
}

func TestResolveUnaryMinus(t *testing.T) {
	tokens := []*ast.Expr{opTok("-"), constTok(5), opTok("+"), constTok(2)}
	got, diags := evalA(t, tokens)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if got != -3 {
		t.Fatalf("expected -3, got %d", got)
	}
}

func TestResolveEmptyExpressionIsDiagnosed(t *testing.T) {
	_, diags := evalA(t, []*ast.Expr{})
	if len(diags) == 0 {
		t.Fatalf("expected a diagnostic for an empty expression")
	}
	if diags[0].Code != diagnostics.CE001 {
		t.Fatalf("expected CE001, got %s", diags[0].Code)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	col := &diagnostics.Collector{}
	expr := Resolve(&ast.Expr{Raw: []*ast.Expr{constTok(7)}}, ast.KindA, col)
	again := Resolve(expr, ast.KindA, col)
	if again != expr {
		t.Fatalf("expected Resolve on an already-resolved node to be a no-op")
	}
	if len(col.Diags) != 0 {
		t.Fatalf("re-resolving under the same kind should not diagnose: %# v", pretty.Formatter(col.Diags))
	}
}

func TestResolveKindMismatchDiagnosed(t *testing.T) {
	col := &diagnostics.Collector{}
	expr := Resolve(&ast.Expr{Raw: []*ast.Expr{constTok(1)}}, ast.KindA, col)
	Resolve(expr, ast.KindB, col)
	if len(col.Diags) != 1 || col.Diags[0].Code != diagnostics.CE004 {
		t.Fatalf("expected one CE004 diagnostic, got %# v", pretty.Formatter(col.Diags))
	}
}

func TestEvaluateVariableSymbol(t *testing.T) {
	col := &diagnostics.Collector{}
	env := &fakeEnv{vars: map[ast.ID]Value{ast.Intern("X"): {Kind: ast.KindA, A: 42}}}
	expr := Resolve(&ast.Expr{Node: ast.NodeVarSymbol, Name: ast.Intern("X"), Kind: ast.KindA, Resolved: true}, ast.KindA, col)
	v := Evaluate(expr, env, col)
	if v.A != 42 {
		t.Fatalf("expected 42, got %d", v.A)
	}
	if len(col.Diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", col.Diags)
	}
}

func TestEvaluateUndefinedVariableSymbol(t *testing.T) {
	col := &diagnostics.Collector{}
	expr := Resolve(&ast.Expr{Node: ast.NodeVarSymbol, Name: ast.Intern("Y"), Kind: ast.KindA, Resolved: true}, ast.KindA, col)
	Evaluate(expr, &fakeEnv{}, col)
	if len(col.Diags) != 1 || col.Diags[0].Code != diagnostics.E065 {
		t.Fatalf("expected one E065 diagnostic, got %# v", pretty.Formatter(col.Diags))
	}
}
