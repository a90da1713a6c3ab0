package caexpr

import (
	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
)

var unaryOps = map[string]bool{
	"NOT": true, "BYTE": true, "DOUBLE": true, "LOWER": true, "SIGNED": true,
	"UPPER": true, "+": true, "-": true,
}

func isOperatorToken(e *ast.Expr) bool {
	return e.Node == ast.NodeBinary && e.Left == nil && e.Right == nil && e.Op != ""
}

// Resolve implements resolve_expression_tree(expected_kind) (§3.3
// invariant, §4.3.1): it promotes expr.Kind exactly once. Calling it again
// on an already-resolved node returns the node unchanged, since the kind is
// stable for the node's lifetime once set; if the second call asks for a
// different kind (other than KindUndef), that mismatch is reported as CE004.
func Resolve(expr *ast.Expr, kind ast.ExprKind, diags diagnostics.Consumer) *ast.Expr {
	if expr == nil {
		return nil
	}
	if expr.Resolved {
		if expr.Kind != kind && kind != ast.KindUndef {
			diags.Add(diagnostics.New(diagnostics.CE004, diagnostics.SeverityError, diagnostics.ClassEvaluation, expr.Range,
				"expression of kind %s used where %s expected", expr.Kind, kind))
		}
		return expr
	}

	if expr.Raw != nil {
		switch kind {
		case ast.KindA, ast.KindB:
			expr.Raw = foldUnknownFunctionsAsBinary(expr.Raw, kind)
			tree := resolveFlatList(kind, expr.Raw, expr.Range, diags)
			*expr = *tree
		case ast.KindC:
			tree := resolveCharList(expr.Raw, expr.Range, diags)
			*expr = *tree
		}
	}

	expr.Kind = kind
	expr.Resolved = true

	// Recurse into structural children so nested subexpressions (function
	// arguments, substring bounds, subscripts) are resolved under their
	// own expected kind rather than inheriting the parent's.
	switch expr.Node {
	case ast.NodeUnary:
		Resolve(expr.Operand, kind, diags)
	case ast.NodeBinary:
		Resolve(expr.Left, kind, diags)
		Resolve(expr.Right, kind, diags)
	case ast.NodeFunctionCall:
		for i, a := range expr.Args {
			Resolve(a, argKindFor(expr.Func, i), diags)
		}
	case ast.NodeString:
		if expr.DupFact != nil {
			Resolve(expr.DupFact, ast.KindA, diags)
		}
		if expr.SubStart != nil {
			Resolve(expr.SubStart, ast.KindA, diags)
		}
		if expr.SubCount != nil {
			Resolve(expr.SubCount, ast.KindA, diags)
		}
	case ast.NodeVarSymbol:
		if expr.Subscript != nil {
			Resolve(expr.Subscript, ast.KindA, diags)
		}
	case ast.NodeAttribute:
		// attribute operand is a symbol/variable name, not itself a
		// resolved sub-expression kind.
	case ast.NodeExprList:
		for _, e := range expr.List {
			Resolve(e, kind, diags)
		}
	}
	return expr
}

// foldUnknownFunctionsAsBinary implements §4.3.1 step 1: "A(B)" in an
// arithmetic/boolean context is reinterpreted as "A AND B" (etc., here we
// only fold the boolean case the spec calls out explicitly) when A is not
// a declared function.
func foldUnknownFunctionsAsBinary(tokens []*ast.Expr, kind ast.ExprKind) []*ast.Expr {
	if kind != ast.KindB {
		return tokens
	}
	out := make([]*ast.Expr, 0, len(tokens))
	for _, t := range tokens {
		if t.Node != ast.NodeFunctionCall || len(t.Args) != 1 || IsBuiltin(t.Func) {
			out = append(out, t)
			continue
		}
		symExpr := &ast.Expr{Node: ast.NodeSymbol, Name: ast.Intern(t.Func), Range: t.Range}
		andTok := &ast.Expr{Node: ast.NodeBinary, Op: "AND", Range: t.Range}
		out = append(out, symExpr, andTok, t.Args[0])
	}
	return out
}

func resolveFlatList(kind ast.ExprKind, tokens []*ast.Expr, rng ast.Range, diags diagnostics.Consumer) *ast.Expr {
	if len(tokens) == 0 {
		diags.Add(diagnostics.New(diagnostics.CE001, diagnostics.SeverityError, diagnostics.ClassParse, rng, "empty expression"))
		return &ast.Expr{Node: ast.NodeConstant, Range: rng}
	}
	pk := precArith
	if kind == ast.KindB {
		pk = precBool
	}
	pos := 0
	var parseUnary func() *ast.Expr
	parseUnary = func() *ast.Expr {
		if pos < len(tokens) && isOperatorToken(tokens[pos]) && unaryOps[tokens[pos].Op] {
			op := tokens[pos]
			pos++
			operand := parseUnary()
			return &ast.Expr{Node: ast.NodeUnary, Op: op.Op, Operand: operand, Range: op.Range.Union(operand.Range)}
		}
		if pos >= len(tokens) {
			diags.Add(diagnostics.New(diagnostics.CE001, diagnostics.SeverityError, diagnostics.ClassParse, rng, "expected operand"))
			return &ast.Expr{Node: ast.NodeConstant, Range: rng}
		}
		t := tokens[pos]
		pos++
		return t
	}
	var parseBin func(minPrec int, lhs *ast.Expr) *ast.Expr
	parseBin = func(minPrec int, lhs *ast.Expr) *ast.Expr {
		for pos < len(tokens) && isOperatorToken(tokens[pos]) {
			op := tokens[pos].Op
			prec, ok := precedenceOf(pk, op)
			if !ok || prec < minPrec {
				return lhs
			}
			pos++
			rhs := parseUnary()
			for pos < len(tokens) && isOperatorToken(tokens[pos]) {
				nextPrec, ok2 := precedenceOf(pk, tokens[pos].Op)
				if !ok2 || nextPrec <= prec {
					break
				}
				rhs = parseBin(nextPrec, rhs)
			}
			lhs = &ast.Expr{Node: ast.NodeBinary, Op: op, Left: lhs, Right: rhs, Range: lhs.Range.Union(rhs.Range)}
		}
		return lhs
	}
	first := parseUnary()
	return parseBin(0, first)
}

// resolveCharList concatenates character-expression terms. '.' between two
// terms is the explicit concatenation operator; adjacent terms with no
// operator concatenate directly. Any arithmetic/boolean operator appearing
// in a character context is a kind mismatch (CE004).
func resolveCharList(tokens []*ast.Expr, rng ast.Range, diags diagnostics.Consumer) *ast.Expr {
	if len(tokens) == 0 {
		return &ast.Expr{Node: ast.NodeString, StrVal: "", Range: rng}
	}
	result := tokens[0]
	for i := 1; i < len(tokens); i++ {
		t := tokens[i]
		if isOperatorToken(t) {
			if t.Op != "." {
				diags.Add(diagnostics.New(diagnostics.CE004, diagnostics.SeverityError, diagnostics.ClassEvaluation, t.Range,
					"operator %s is not valid in a character expression", t.Op))
			}
			continue
		}
		result = &ast.Expr{Node: ast.NodeBinary, Op: ".", Left: result, Right: t, Range: result.Range.Union(t.Range)}
	}
	return result
}

// argKindFor returns the expected kind for the idx-th (0-based) argument of
// a built-in function call.
func argKindFor(fn string, idx int) ast.ExprKind {
	kinds, ok := builtinArgKinds[fn]
	if !ok || idx >= len(kinds) {
		return ast.KindC
	}
	return kinds[idx]
}
