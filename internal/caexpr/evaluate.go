package caexpr

import (
	"strconv"
	"strings"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
)

// Value is a resolved CA value of exactly one kind.
type Value struct {
	Kind ast.ExprKind
	A    int32
	B    bool
	C    string
}

func defaultOf(kind ast.ExprKind) Value {
	return Value{Kind: kind}
}

// Env is the lookup environment evaluation needs: ordinary-symbol
// attribute queries, variable-symbol values, and a MNOTE/AREAD-style
// escape hatch is deliberately not modeled here (those are pipeline-level
// side effects, not expression evaluation).
type Env interface {
	OrdinaryAttribute(name ast.ID, attr byte) (Value, bool)
	Variable(name ast.ID, subscript *int32) (Value, bool)
	HasLibrary(name ast.ID) bool
}

// Evaluate walks a resolved Expr tree and produces a Value of expr.Kind,
// or that kind's default plus a diagnostic on error (§7 "Evaluation"
// class, §8.1 property 1).
func Evaluate(expr *ast.Expr, env Env, diags diagnostics.Consumer) Value {
	if expr == nil {
		return Value{}
	}
	switch expr.Node {
	case ast.NodeConstant:
		if expr.Kind == ast.KindB {
			return Value{Kind: ast.KindB, B: expr.BoolVal}
		}
		return Value{Kind: ast.KindA, A: expr.IntVal}

	case ast.NodeSymbol:
		v, ok := env.OrdinaryAttribute(expr.Name, 0)
		if !ok {
			return defaultOf(expr.Kind)
		}
		return v

	case ast.NodeVarSymbol:
		var sub *int32
		if expr.Subscript != nil {
			s := Evaluate(expr.Subscript, env, diags)
			sub = &s.A
		}
		v, ok := env.Variable(expr.Name, sub)
		if !ok {
			diags.Add(diagnostics.New(diagnostics.E065, diagnostics.SeverityError, diagnostics.ClassSemantic, expr.Range,
				"undefined variable symbol &%s", expr.Name))
			return defaultOf(expr.Kind)
		}
		return Convert(v, expr.Kind, expr.Range, diags)

	case ast.NodeAttribute:
		name := attributeOperandName(expr.AttrName, env, diags)
		if expr.Attr == 'O' {
			return Value{Kind: ast.KindC, C: orAttr(env, name)}
		}
		v, ok := env.OrdinaryAttribute(name, expr.Attr)
		if !ok {
			diags.Add(diagnostics.New(diagnostics.W013, diagnostics.SeverityWarning, diagnostics.ClassWarning, expr.Range,
				"attribute of undefined symbol %s, default used", name))
			return defaultOf(expr.Kind)
		}
		return v

	case ast.NodeString:
		return evalString(expr, env, diags)

	case ast.NodeFunctionCall:
		args := make([]Value, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = Evaluate(a, env, diags)
		}
		v, cerr := CallBuiltin(expr.Func, args)
		if cerr != nil {
			diags.Add(diagnostics.New(cerr.code, diagnostics.SeverityError, diagnostics.ClassEvaluation, expr.Range, "%s", cerr.msg))
			return defaultOf(ReturnKind(expr.Func))
		}
		return truncateIfString(v, expr.Range, diags)

	case ast.NodeExprList:
		var last Value
		for _, e := range expr.List {
			last = Evaluate(e, env, diags)
		}
		return last

	case ast.NodeUnary:
		return evalUnary(expr, env, diags)

	case ast.NodeBinary:
		return evalBinary(expr, env, diags)
	}
	return defaultOf(expr.Kind)
}

// attributeOperandName resolves an attribute reference's target name: a
// bare symbol's own name, or (for T'&LBL-shaped references) the current
// value of the variable symbol naming the target (§4.3.3).
func attributeOperandName(operand *ast.Expr, env Env, diags diagnostics.Consumer) ast.ID {
	if operand == nil {
		return ""
	}
	if operand.Node != ast.NodeVarSymbol {
		return operand.Name
	}
	var sub *int32
	if operand.Subscript != nil {
		s := Evaluate(operand.Subscript, env, diags)
		sub = &s.A
	}
	v, ok := env.Variable(operand.Name, sub)
	if !ok {
		diags.Add(diagnostics.New(diagnostics.E065, diagnostics.SeverityError, diagnostics.ClassSemantic, operand.Range,
			"undefined variable symbol &%s", operand.Name))
		return ""
	}
	c := Convert(v, ast.KindC, operand.Range, diags)
	return ast.Intern(c.C)
}

func orAttr(env Env, name ast.ID) string {
	if env.HasLibrary(name) {
		return "S"
	}
	return "U"
}

func evalString(expr *ast.Expr, env Env, diags diagnostics.Consumer) Value {
	base := expr.StrVal
	dup := int32(1)
	if expr.DupFact != nil {
		d := Evaluate(expr.DupFact, env, diags)
		if d.A < 0 {
			diags.Add(diagnostics.New(diagnostics.CE010, diagnostics.SeverityError, diagnostics.ClassEvaluation, expr.Range,
				"negative duplication factor"))
			return Value{Kind: ast.KindC, C: ""}
		}
		dup = d.A
	}
	repeated := strings.Repeat(base, int(dup))

	if expr.SubStart == nil {
		return truncateIfString(Value{Kind: ast.KindC, C: repeated}, expr.Range, diags)
	}

	count := Evaluate(expr.SubCount, env, diags)
	if count.A == 0 {
		// count=0 yields empty string and does NOT validate start (§4.3.4).
		return Value{Kind: ast.KindC, C: ""}
	}
	start := Evaluate(expr.SubStart, env, diags)
	if start.A < 1 || int(start.A) > len(repeated) {
		diags.Add(diagnostics.New(diagnostics.CE009, diagnostics.SeverityError, diagnostics.ClassEvaluation, expr.Range,
			"substring start %d out of range for string of length %d", start.A, len(repeated)))
		return Value{Kind: ast.KindC, C: ""}
	}
	end := int(start.A) - 1 + int(count.A)
	if end > len(repeated) {
		end = len(repeated)
	}
	return truncateIfString(Value{Kind: ast.KindC, C: repeated[start.A-1 : end]}, expr.Range, diags)
}

func truncateIfString(v Value, rng ast.Range, diags diagnostics.Consumer) Value {
	if v.Kind == ast.KindC && len(v.C) > MaxStrSize {
		diags.Add(diagnostics.New(diagnostics.CE011, diagnostics.SeverityError, diagnostics.ClassEvaluation, rng,
			"string value exceeds maximum length of %d bytes", MaxStrSize))
		return Value{Kind: ast.KindC, C: ""}
	}
	return v
}

func evalUnary(expr *ast.Expr, env Env, diags diagnostics.Consumer) Value {
	v := Evaluate(expr.Operand, env, diags)
	switch expr.Op {
	case "NOT":
		if expr.Kind == ast.KindB {
			return Value{Kind: ast.KindB, B: !v.B}
		}
		return Value{Kind: ast.KindA, A: ^v.A}
	case "+":
		return Value{Kind: ast.KindA, A: v.A}
	case "-":
		return Value{Kind: ast.KindA, A: -v.A}
	case "BYTE":
		r, cerr := CallBuiltin("BYTE", []Value{v})
		if cerr != nil {
			diags.Add(diagnostics.New(cerr.code, diagnostics.SeverityError, diagnostics.ClassEvaluation, expr.Range, "%s", cerr.msg))
			return defaultOf(expr.Kind)
		}
		return r
	case "DOUBLE":
		return Value{Kind: ast.KindC, C: doubleQuotes(v.C)}
	case "LOWER":
		return Value{Kind: ast.KindC, C: strings.ToLower(v.C)}
	case "UPPER":
		return Value{Kind: ast.KindC, C: strings.ToUpper(v.C)}
	case "SIGNED":
		return Value{Kind: ast.KindC, C: signedDecimal(v.A, false)}
	}
	return defaultOf(expr.Kind)
}

func evalBinary(expr *ast.Expr, env Env, diags diagnostics.Consumer) Value {
	if expr.Op == "." {
		l := Evaluate(expr.Left, env, diags)
		r := Evaluate(expr.Right, env, diags)
		return truncateIfString(Value{Kind: ast.KindC, C: l.C + r.C}, expr.Range, diags)
	}
	l := Evaluate(expr.Left, env, diags)
	r := Evaluate(expr.Right, env, diags)

	switch expr.Op {
	case "+", "-", "*":
		wide := int64(l.A) + int64(r.A)
		if expr.Op == "-" {
			wide = int64(l.A) - int64(r.A)
		} else if expr.Op == "*" {
			wide = int64(l.A) * int64(r.A)
		}
		if wide != int64(int32(wide)) {
			diags.Add(diagnostics.New(diagnostics.CE016, diagnostics.SeverityError, diagnostics.ClassEvaluation, expr.Range, "arithmetic overflow"))
			return Value{Kind: ast.KindA, A: 0}
		}
		return Value{Kind: ast.KindA, A: int32(wide)}
	case "/":
		if r.A == 0 {
			diags.Add(diagnostics.New(diagnostics.CE016, diagnostics.SeverityError, diagnostics.ClassEvaluation, expr.Range, "division by zero"))
			return Value{Kind: ast.KindA, A: 0}
		}
		return Value{Kind: ast.KindA, A: l.A / r.A}
	case "AND":
		if expr.Kind == ast.KindB {
			return Value{Kind: ast.KindB, B: l.B && r.B}
		}
		return Value{Kind: ast.KindA, A: l.A & r.A}
	case "OR":
		if expr.Kind == ast.KindB {
			return Value{Kind: ast.KindB, B: l.B || r.B}
		}
		return Value{Kind: ast.KindA, A: l.A | r.A}
	case "XOR":
		if expr.Kind == ast.KindB {
			return Value{Kind: ast.KindB, B: l.B != r.B}
		}
		return Value{Kind: ast.KindA, A: l.A ^ r.A}
	case "AND NOT":
		if expr.Kind == ast.KindB {
			return Value{Kind: ast.KindB, B: l.B && !r.B}
		}
		return Value{Kind: ast.KindA, A: l.A &^ r.A}
	case "OR NOT":
		if expr.Kind == ast.KindB {
			return Value{Kind: ast.KindB, B: l.B || !r.B}
		}
		return Value{Kind: ast.KindA, A: l.A | ^r.A}
	case "XOR NOT":
		if expr.Kind == ast.KindB {
			return Value{Kind: ast.KindB, B: l.B == r.B}
		}
		return Value{Kind: ast.KindA, A: l.A ^ ^r.A}
	case "EQ":
		return boolCompare(l, r, func(c int) bool { return c == 0 })
	case "NE":
		return boolCompare(l, r, func(c int) bool { return c != 0 })
	case "LE":
		return boolCompare(l, r, func(c int) bool { return c <= 0 })
	case "LT":
		return boolCompare(l, r, func(c int) bool { return c < 0 })
	case "GE":
		return boolCompare(l, r, func(c int) bool { return c >= 0 })
	case "GT":
		return boolCompare(l, r, func(c int) bool { return c > 0 })
	case "SLA":
		return Value{Kind: ast.KindA, A: l.A << uint32(r.A)}
	case "SLL":
		return Value{Kind: ast.KindA, A: int32(uint32(l.A) << uint32(r.A))}
	case "SRA":
		return Value{Kind: ast.KindA, A: l.A >> uint32(r.A)}
	case "SRL":
		return Value{Kind: ast.KindA, A: int32(uint32(l.A) >> uint32(r.A))}
	case "FIND":
		return Value{Kind: ast.KindA, A: find(l.C, r.C)}
	case "INDEX":
		return Value{Kind: ast.KindA, A: index(l.C, r.C)}
	}
	return defaultOf(expr.Kind)
}

func boolCompare(l, r Value, test func(int) bool) Value {
	var c int
	if l.Kind == ast.KindC || r.Kind == ast.KindC {
		c = strings.Compare(l.C, r.C)
	} else {
		c = int(l.A) - int(r.A)
	}
	return Value{Kind: ast.KindB, B: test(c)}
}

// Convert implements §4.3.2's type-conversion table between an already
// computed value and a different expected kind.
func Convert(v Value, to ast.ExprKind, rng ast.Range, diags diagnostics.Consumer) Value {
	if v.Kind == to {
		return v
	}
	switch {
	case v.Kind == ast.KindA && to == ast.KindB:
		return Value{Kind: ast.KindB, B: v.A != 0}
	case v.Kind == ast.KindB && to == ast.KindA:
		if v.B {
			return Value{Kind: ast.KindA, A: 1}
		}
		return Value{Kind: ast.KindA, A: 0}
	case v.Kind == ast.KindC && to == ast.KindA:
		n, ok := selfDefiningTerm(v.C)
		if !ok {
			diags.Add(diagnostics.New(diagnostics.CE004, diagnostics.SeverityError, diagnostics.ClassEvaluation, rng,
				"character value %q is not a valid self-defining term", v.C))
			return Value{Kind: ast.KindA, A: 0}
		}
		return Value{Kind: ast.KindA, A: n}
	case v.Kind == ast.KindC && to == ast.KindB:
		n, ok := selfDefiningTerm(v.C)
		if !ok {
			diags.Add(diagnostics.New(diagnostics.CE004, diagnostics.SeverityError, diagnostics.ClassEvaluation, rng,
				"character value %q is not a valid self-defining term", v.C))
			return Value{Kind: ast.KindB, B: false}
		}
		return Value{Kind: ast.KindB, B: n != 0}
	default:
		// A->C and B->C are not automatic (§4.3.2); the caller must have
		// routed through A2C/SIGNED explicitly. Reaching here means a
		// genuine kind mismatch.
		diags.Add(diagnostics.New(diagnostics.CE004, diagnostics.SeverityError, diagnostics.ClassEvaluation, rng,
			"cannot convert %s value to %s", v.Kind, to))
		return defaultOf(to)
	}
}

// selfDefiningTerm parses B'...'/C'...'/X'...'/G'...' forms used when a
// character value is coerced into arithmetic/boolean context.
func selfDefiningTerm(s string) (int32, bool) {
	if len(s) < 3 || s[1] != '\'' || s[len(s)-1] != '\'' {
		return 0, false
	}
	body := s[2 : len(s)-1]
	switch s[0] {
	case 'B', 'b':
		v, err := strconv.ParseUint(body, 2, 32)
		if err != nil {
			return 0, false
		}
		return int32(uint32(v)), true
	case 'X', 'x':
		v, ok := parseHex32(body)
		return v, ok
	case 'C', 'c', 'G', 'g':
		return charToInt32(body), true
	}
	return 0, false
}
