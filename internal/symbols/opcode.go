package symbols

import "hlasmcore/internal/ast"

// OpKind is the catalog bucket an opcode name belongs to before OPSYN
// aliasing. CA instructions (SETA/AIF/...) and assembler instructions
// (EQU/USING/...) are fixed sets known by this package; machine
// instructions and mnemonics come from the opaque instruction-catalog
// capability (§1 "Out of scope").
type OpKind uint8

const (
	OpKindUnknown OpKind = iota
	OpKindCA
	OpKindAssembler
	OpKindMachine
	OpKindMnemonic
	OpKindMacro
)

// Catalog is the opaque machine-instruction/mnemonic lookup the core
// consumes but does not own (§1). nil-safe: a nil Catalog resolves every
// name as unknown, useful for unit tests that don't care about machine
// instructions.
type Catalog interface {
	Lookup(name ast.ID) (OpKind, bool)
}

var caInstructions = map[ast.ID]bool{}
var asmInstructions = map[ast.ID]bool{}

func init() {
	for _, n := range []string{
		"SETA", "SETB", "SETC", "LCLA", "LCLB", "LCLC", "GBLA", "GBLB", "GBLC",
		"AGO", "AIF", "ANOP", "MACRO", "MEND", "MEXIT", "AREAD", "MNOTE", "ACTR",
	} {
		caInstructions[ast.Intern(n)] = true
	}
	for _, n := range []string{
		"EQU", "USING", "DROP", "CSECT", "DSECT", "COPY", "EXTRN", "ENTRY",
		"ORG", "CNOP", "ICTL", "OPSYN", "ALIAS", "DC", "DS", "DXD", "START",
		"END", "TITLE", "PRINT", "LTORG",
	} {
		asmInstructions[ast.Intern(n)] = true
	}
}

// OpcodeTable maps names to opcode variants under the currently active
// OPSYN mappings. Snapshot and Restore save and reinstate the synonym map,
// but the pipeline does not call them: one map is shared by every frame,
// so a mapping made inside a macro body stays in effect after the macro
// returns.
type OpcodeTable struct {
	synonyms map[ast.ID]ast.ID // Y -> X under "Y OPSYN X"
	catalog  Catalog
}

func NewOpcodeTable(catalog Catalog) *OpcodeTable {
	return &OpcodeTable{synonyms: make(map[ast.ID]ast.ID), catalog: catalog}
}

// Synonym installs "name OPSYN target". A target of the empty ID undoes
// the mapping ("Y OPSYN ,").
func (t *OpcodeTable) Synonym(name, target ast.ID) {
	if target == "" {
		delete(t.synonyms, name)
		return
	}
	t.synonyms[name] = target
}

// Snapshot returns a copy of the synonym map for a macro-definition frame
// to restore on return.
func (t *OpcodeTable) Snapshot() map[ast.ID]ast.ID {
	cp := make(map[ast.ID]ast.ID, len(t.synonyms))
	for k, v := range t.synonyms {
		cp[k] = v
	}
	return cp
}

func (t *OpcodeTable) Restore(snapshot map[ast.ID]ast.ID) {
	t.synonyms = snapshot
}

// Resolve classifies name, following at most one level of OPSYN indirection
// (HLASM does not chain synonyms transitively).
func (t *OpcodeTable) Resolve(name ast.ID, knownMacros map[ast.ID]bool) (ast.OpcodeTag, OpKind) {
	resolved := name
	if target, ok := t.synonyms[name]; ok {
		resolved = target
	}
	if caInstructions[resolved] {
		return ast.OpcodeTag{Class: ast.OpCAInstr, Name: resolved}, OpKindCA
	}
	if asmInstructions[resolved] {
		return ast.OpcodeTag{Class: ast.OpAsmInstr, Name: resolved}, OpKindAssembler
	}
	if knownMacros[resolved] {
		return ast.OpcodeTag{Class: ast.OpMacroInvocation, Name: resolved}, OpKindMacro
	}
	if t.catalog != nil {
		if kind, ok := t.catalog.Lookup(resolved); ok {
			class := ast.OpMachineInstr
			if kind == OpKindMnemonic {
				class = ast.OpMnemonic
			}
			return ast.OpcodeTag{Class: class, Name: resolved}, kind
		}
	}
	return ast.OpcodeTag{Class: ast.OpUndefined, Name: resolved}, OpKindUnknown
}
