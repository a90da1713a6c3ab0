// Package lsp implements the semantic index and editor queries of §4.7:
// hover, completion, document symbols, definition/references, built by
// observing a pipeline.Pipeline's statement stream rather than re-deriving
// it from source text.
package lsp

import (
	"regexp"
	"sync"

	"hlasmcore/internal/ast"
)

// OccurrenceKind classifies one recorded occurrence.
type OccurrenceKind uint8

const (
	OccDefinition OccurrenceKind = iota
	OccReference
)

// Occurrence is one recorded mention of a name at a range, the unit the
// index is built from.
type Occurrence struct {
	Name  ast.ID
	Range ast.Range
	Kind  OccurrenceKind
}

// OpencodeInfo is the per-translation-unit slice of the index: the main
// file's own statement count and occurrences, as opposed to a shared
// MacroInfo reused across every call site of one macro (lsp_context.h's
// opencode/macro split, see SPEC_FULL §4).
type OpencodeInfo struct {
	URI         string
	Statements  int
	Occurrences []Occurrence
}

// MacroInfo is the shared, once-per-definition slice of the index for one
// macro: its definition location plus the occurrences found inside its
// body, independent of how many times it is called.
type MacroInfo struct {
	Name        ast.ID
	Definition  ast.Range
	Occurrences []Occurrence
}

var varRefPattern = regexp.MustCompile(`&[A-Za-z#$@][A-Za-z0-9#$@]*`)

// Index is the semantic index of §4.7, populated incrementally by the
// pipeline.Hooks.OnStatement callback Hook returns, so this package never
// needs to re-lex or re-parse anything itself.
type Index struct {
	mu       sync.RWMutex
	Opencode *OpencodeInfo
	Macros   map[ast.ID]*MacroInfo
}

// NewIndex creates an empty index for the opencode file at uri.
func NewIndex(uri string) *Index {
	return &Index{
		Opencode: &OpencodeInfo{URI: uri},
		Macros:   make(map[ast.ID]*MacroInfo),
	}
}

// OnStatement matches pipeline.Hooks.OnStatement's signature so it can be
// wired in directly: Hook() func(...) returns the closure, kept separate
// from the method so index.go never needs to import internal/pipeline (it
// only needs the callback shape, avoiding a dependency cycle risk if
// pipeline ever wants to depend on lsp for anything else).
type OnStatement = func(label *ast.ID, labelRng ast.Range, instr string, instrRng ast.Range, operands []ast.Operand, stmtRng ast.Range)

// Hook returns the callback to install as pipeline.Hooks.OnStatement: it
// records the statement's label as a definition occurrence and scans its
// operand text for &NAME variable-symbol references.
func (idx *Index) Hook() OnStatement {
	return func(label *ast.ID, labelRng ast.Range, instr string, instrRng ast.Range, operands []ast.Operand, stmtRng ast.Range) {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		idx.Opencode.Statements++
		if label != nil {
			idx.Opencode.Occurrences = append(idx.Opencode.Occurrences,
				Occurrence{Name: stripAmp(*label), Range: labelRng, Kind: OccDefinition})
		}
		idx.Opencode.Occurrences = append(idx.Opencode.Occurrences,
			Occurrence{Name: ast.Intern(instr), Range: instrRng, Kind: OccReference})
		for _, op := range operands {
			for _, m := range varRefPattern.FindAllStringIndex(op.Text, -1) {
				name := ast.Intern(op.Text[m[0]+1 : m[1]])
				idx.Opencode.Occurrences = append(idx.Opencode.Occurrences,
					Occurrence{Name: name, Range: op.Range, Kind: OccReference})
			}
		}
	}
}

// stripAmp normalizes a label-position variable-symbol name (scanned with
// its leading & per §4.2) to the bare name used everywhere else a variable
// symbol is referenced, matching internal/pipeline's own normalization so
// a SETx target and its later &NAME references index to the same name.
func stripAmp(id ast.ID) ast.ID {
	s := string(id)
	if len(s) > 0 && s[0] == '&' {
		return ast.ID(s[1:])
	}
	return id
}

// DefinitionOf returns the first definition occurrence recorded for name.
func (idx *Index) DefinitionOf(name ast.ID) (ast.Range, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for _, occ := range idx.Opencode.Occurrences {
		if occ.Name == name && occ.Kind == OccDefinition {
			return occ.Range, true
		}
	}
	return ast.Range{}, false
}

// OccurrencesOf returns every recorded occurrence of name, in statement
// order, used to answer textDocument/references.
func (idx *Index) OccurrencesOf(name ast.ID) []Occurrence {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []Occurrence
	for _, occ := range idx.Opencode.Occurrences {
		if occ.Name == name {
			out = append(out, occ)
		}
	}
	return out
}

// At returns the name of whichever occurrence's range contains pos, if any
// — the lookup behind hover/definition's "what is under the cursor".
func (idx *Index) At(pos ast.Position) (ast.ID, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for _, occ := range idx.Opencode.Occurrences {
		if occ.Range.Contains(pos) {
			return occ.Name, true
		}
	}
	return "", false
}
