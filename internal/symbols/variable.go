package symbols

import "hlasmcore/internal/ast"

// VarType is the CA value kind a variable symbol holds.
type VarType uint8

const (
	VarA VarType = iota
	VarB
	VarC
)

// VarScope is where a variable symbol lives.
type VarScope uint8

const (
	ScopeGlobal VarScope = iota // GBLA/GBLB/GBLC
	ScopeLocal                  // LCLA/LCLB/LCLC
	ScopeParam                  // macro positional/keyword parameter
)

// Variable is one SETA/SETB/SETC symbol, scalar or 1-D subscripted. A
// composite (sublist) macro parameter is represented as Array of C-typed
// Variables.
type Variable struct {
	Name  ast.ID
	Type  VarType
	Scope VarScope

	ScalarA int32
	ScalarB bool
	ScalarC string

	// Array holds subscripted values when non-nil; index 0 is unused
	// (HLASM subscripts are 1-based) to keep indexing arithmetic direct.
	Array []Variable

	// Sublist holds the composite (parenthesized) form of a macro
	// parameter, e.g. &PARM(1) for &PARM=(A,B,C).
	Sublist []string
}

// NewScalar creates a scalar variable of the given type with its type's
// zero value (0 / false / "").
func NewScalar(name ast.ID, t VarType, scope VarScope) *Variable {
	return &Variable{Name: name, Type: t, Scope: scope}
}

// VarTable is a nested lookup environment for variable symbols: globals are
// shared across the whole analysis, locals and params are scoped to one
// macro-definition/open-code frame per §3.5.
type VarTable struct {
	globals map[ast.ID]*Variable
	locals  map[ast.ID]*Variable
	params  map[ast.ID]*Variable
}

func NewVarTable(globals map[ast.ID]*Variable) *VarTable {
	return &VarTable{
		globals: globals,
		locals:  make(map[ast.ID]*Variable),
		params:  make(map[ast.ID]*Variable),
	}
}

// Lookup resolves name preferring params, then locals, then globals,
// matching HLASM's innermost-scope-wins rule.
func (t *VarTable) Lookup(name ast.ID) (*Variable, bool) {
	if v, ok := t.params[name]; ok {
		return v, true
	}
	if v, ok := t.locals[name]; ok {
		return v, true
	}
	if v, ok := t.globals[name]; ok {
		return v, true
	}
	return nil, false
}

func (t *VarTable) DeclareLocal(v *Variable)  { t.locals[v.Name] = v }
func (t *VarTable) DeclareGlobal(v *Variable) { t.globals[v.Name] = v }
func (t *VarTable) DeclareParam(v *Variable)   { t.params[v.Name] = v }

// Globals exposes the shared global map so a child (macro invocation)
// scope can be created sharing the same GBLx storage.
func (t *VarTable) Globals() map[ast.ID]*Variable { return t.globals }

// Names lists every variable symbol visible in this scope (params, locals,
// globals), for the variables-in-scope completion provider of §4.7.
func (t *VarTable) Names() []ast.ID {
	seen := make(map[ast.ID]bool, len(t.params)+len(t.locals)+len(t.globals))
	var out []ast.ID
	for _, m := range []map[ast.ID]*Variable{t.params, t.locals, t.globals} {
		for name := range m {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// SysList synthesizes the &SYSLIST(n) composite accessor over the
// invocation's positional arguments (§3.5).
func SysList(positional []string) *Variable {
	v := &Variable{Name: ast.Intern("SYSLIST"), Type: VarC, Scope: ScopeParam}
	v.Array = make([]Variable, len(positional)+1)
	for i, s := range positional {
		v.Array[i+1] = Variable{Type: VarC, ScalarC: s}
	}
	return v
}
