// Package macro implements the macro engine of §3.5/§3.6: macro
// definitions captured as deferred statement bodies, a per-definition
// statement cache keyed by processing form so re-parsing the same body
// under a different expected form is memoized, call-site argument binding,
// and copy-member inclusion.
package macro

import (
	"hlasmcore/internal/ast"
	"hlasmcore/internal/parser"
)

// FormKey is the memoization key for the statement cache: a deferred body
// statement parsed once under a given operand rule is never reparsed under
// the same rule again (§3.5 "statement cache keyed by processing form").
type FormKey struct {
	StatementIndex int
	Rule           parser.OperandRule
}

// Definition is one macro definition (§3.5).
type Definition struct {
	Name             ast.ID
	NameParam        *ast.ID // symbolic name of the label-position parameter, if any
	PositionalParams []ast.ID
	KeywordParams    map[ast.ID]string // default text, empty string if no default
	Body             []ast.Statement   // stored as FormDeferred
	CopyNest         []ast.ID          // COPY members pulled in while defining this macro
	SequenceSymbols  map[ast.ID]int    // name -> index into Body
	DefinitionLoc    ast.Range

	cache map[FormKey][]ast.Operand
}

func NewDefinition(name ast.ID, loc ast.Range) *Definition {
	return &Definition{
		Name:            name,
		KeywordParams:   make(map[ast.ID]string),
		SequenceSymbols: make(map[ast.ID]int),
		DefinitionLoc:   loc,
		cache:           make(map[FormKey][]ast.Operand),
	}
}

// CachedOperands returns a previously parsed operand list for (stmtIndex,
// rule), or (nil, false) on a cache miss.
func (d *Definition) CachedOperands(stmtIndex int, rule parser.OperandRule) ([]ast.Operand, bool) {
	v, ok := d.cache[FormKey{stmtIndex, rule}]
	return v, ok
}

// StoreOperands memoizes the parse of body statement stmtIndex under rule.
func (d *Definition) StoreOperands(stmtIndex int, rule parser.OperandRule, ops []ast.Operand) {
	d.cache[FormKey{stmtIndex, rule}] = ops
}

// Invocation is one active macro call frame (§3.5, §4.5 "push a macro-call
// frame").
type Invocation struct {
	Def        *Definition
	Positional []string          // SYSLIST(1..n)
	Keyword    map[ast.ID]string // actual text bound to each keyword param, default if omitted
	IP         int               // instruction pointer into Def.Body
	CallSite   ast.Range
}

// NewInvocation binds actual arguments to parameter names: positional
// arguments fill PositionalParams in order, then any named "KEYWORD=value"
// actual overrides that keyword's default (§3.5 "binds actual arguments
// (positional, then keyword overrides of defaults)").
func NewInvocation(def *Definition, actuals []ast.Operand, callSite ast.Range) *Invocation {
	inv := &Invocation{Def: def, Keyword: make(map[ast.ID]string), CallSite: callSite}
	for k, v := range def.KeywordParams {
		inv.Keyword[k] = v
	}
	posIdx := 0
	for _, a := range actuals {
		if name, val, ok := splitKeywordActual(a.Text); ok {
			if _, isKeyword := def.KeywordParams[name]; isKeyword {
				inv.Keyword[name] = val
				continue
			}
		}
		if posIdx < len(def.PositionalParams) {
			inv.Positional = append(inv.Positional, a.Text)
			posIdx++
			continue
		}
		inv.Positional = append(inv.Positional, a.Text)
	}
	return inv
}

// SysList synthesizes &SYSLIST(n), the composite accessor over positional
// actuals (§3.5).
func (inv *Invocation) SysList(n int) (string, bool) {
	if n < 1 || n > len(inv.Positional) {
		return "", false
	}
	return inv.Positional[n-1], true
}

func splitKeywordActual(text string) (name ast.ID, val string, ok bool) {
	for i := 0; i < len(text); i++ {
		if text[i] == '=' {
			return ast.Intern(text[:i]), text[i+1:], true
		}
		if !ast.IsIdentChar(text[i]) {
			return "", "", false
		}
	}
	return "", "", false
}
