// Package symbols implements the four symbol tables of §3.4: ordinary,
// variable, sequence, and opcode.
package symbols

import (
	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
)

// ValueKind distinguishes an ordinary symbol's value shape.
type ValueKind uint8

const (
	ValueUndef ValueKind = iota
	ValueAbs
	ValueRelocatable
)

// Attributes is the attribute set of an ordinary symbol (§3.4).
type Attributes struct {
	T byte   // type attribute character, e.g. 'C', 'F', 'U'
	L int32  // length in bytes
	S int32  // scale
	I int32  // integer
	D bool   // defined
	O string // program type, e.g. "OPCODE", "SECT"
	P string // program type word (EQU P operand)
	A string // assembler type, e.g. "AR", "GR"
}

// DefaultAttributes is what an undefined reference resolves to (§7
// "Semantic" degrade policy).
var DefaultAttributes = Attributes{T: 'U', L: 1, S: 0, I: 1}

// Ordinary is one entry in the ordinary symbol table (§3.4). Per the
// invariant, once Defined flips true the Value/Attrs are immutable for the
// rest of the analysis.
type Ordinary struct {
	Name       ast.ID
	Kind       ValueKind
	AbsValue   int32
	RelSection ast.ID
	RelOffset  int32
	Attrs      Attributes
	Defined    bool
	DefRange   ast.Range
}

// Demand records a pending attribute query against a symbol not yet
// defined; when the symbol is defined, demands are resolved in file order
// (§3.4 invariant).
type Demand struct {
	Attr     byte
	Resolve  func(Attributes)
	Range    ast.Range
}

// OrdinaryTable is the ordinary-symbol table plus pending attribute
// demands.
type OrdinaryTable struct {
	byName  map[ast.ID]*Ordinary
	order   []ast.ID
	demands map[ast.ID][]Demand
}

func NewOrdinaryTable() *OrdinaryTable {
	return &OrdinaryTable{
		byName:  make(map[ast.ID]*Ordinary),
		demands: make(map[ast.ID][]Demand),
	}
}

// Lookup returns the symbol if known (defined or forward-referenced) and
// whether it is defined.
func (t *OrdinaryTable) Lookup(name ast.ID) (*Ordinary, bool) {
	sym, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return sym, sym.Defined
}

// Reference records a plain reference to name, creating a placeholder
// entry if this is the first mention; it does not create an attribute
// demand (that's RequestAttribute).
func (t *OrdinaryTable) Reference(name ast.ID) *Ordinary {
	if sym, ok := t.byName[name]; ok {
		return sym
	}
	sym := &Ordinary{Name: name}
	t.byName[name] = sym
	return sym
}

// RequestAttribute asks for attr on name. If the symbol is already
// defined, resolve is invoked immediately with its attributes. Otherwise
// the demand is queued and the caller (normally internal/lookahead) is
// expected to trigger forward scanning; resolve fires once Define is
// called for name.
func (t *OrdinaryTable) RequestAttribute(name ast.ID, attr byte, rng ast.Range, resolve func(Attributes)) {
	sym := t.Reference(name)
	if sym.Defined {
		resolve(sym.Attrs)
		return
	}
	t.demands[name] = append(t.demands[name], Demand{Attr: attr, Resolve: resolve, Range: rng})
}

// HasPendingDemand reports whether name is not yet defined, whether or not
// an attribute demand has been queued for it, i.e. whether lookahead needs
// to run for it.
func (t *OrdinaryTable) HasPendingDemand(name ast.ID) bool {
	sym, ok := t.byName[name]
	return !ok || !sym.Defined
}

// Define records name's value/attributes and resolves all pending demands
// for it in the order they were requested. Defining an already-defined
// symbol is reported as E010 and otherwise ignored (the first definition
// wins, matching the "once defined, immutable" invariant).
func (t *OrdinaryTable) Define(name ast.ID, kind ValueKind, abs int32, relSection ast.ID, relOffset int32, attrs Attributes, rng ast.Range, diags diagnostics.Consumer) {
	sym, ok := t.byName[name]
	if !ok {
		sym = &Ordinary{Name: name}
		t.byName[name] = sym
	}
	if sym.Defined {
		diags.Add(diagnostics.New(diagnostics.E010, diagnostics.SeverityError, diagnostics.ClassSemantic, rng,
			"symbol %s already defined", name))
		return
	}
	sym.Kind = kind
	sym.AbsValue = abs
	sym.RelSection = relSection
	sym.RelOffset = relOffset
	sym.Attrs = attrs
	sym.Defined = true
	sym.DefRange = rng
	t.order = append(t.order, name)

	for _, d := range t.demands[name] {
		d.Resolve(attrs)
	}
	delete(t.demands, name)
}

// PendingNames returns the names with at least one unresolved attribute
// demand, in no particular order. lookahead.Run does not call it; it keeps
// its own set of names still to resolve.
func (t *OrdinaryTable) PendingNames() []ast.ID {
	names := make([]ast.ID, 0, len(t.demands))
	for name, ds := range t.demands {
		if len(ds) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// AllDefined returns the symbols defined so far, in definition order.
func (t *OrdinaryTable) AllDefined() []*Ordinary {
	out := make([]*Ordinary, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.byName[name])
	}
	return out
}
