package lsp

import (
	"testing"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
	"hlasmcore/internal/pipeline"
)

type testLines []string

func (t testLines) Line(n int) (string, bool) {
	if n < 0 || n >= len(t) {
		return "", false
	}
	return t[n], true
}

func TestIndexRecordsEQUDefinition(t *testing.T) {
	src := testLines{"TARGET   EQU   5"}
	idx := NewIndex("file:///t.hlasm")
	p := pipeline.New(src, nil, &diagnostics.Collector{}, pipeline.Hooks{OnStatement: idx.Hook()})
	if err := p.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	rng, ok := idx.DefinitionOf(ast.Intern("TARGET"))
	if !ok {
		t.Fatalf("expected TARGET recorded as a definition")
	}
	if rng.Start.Line != 0 {
		t.Fatalf("expected definition on line 0, got %+v", rng)
	}
}

func TestIndexRecordsVariableReference(t *testing.T) {
	src := testLines{
		"&X       SETA  3",
		"TARGET   EQU   &X",
	}
	idx := NewIndex("file:///t.hlasm")
	p := pipeline.New(src, nil, &diagnostics.Collector{}, pipeline.Hooks{OnStatement: idx.Hook()})
	if err := p.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	occs := idx.OccurrencesOf(ast.Intern("X"))
	if len(occs) == 0 {
		t.Fatalf("expected at least one occurrence of X, got none")
	}
	foundRef := false
	for _, occ := range occs {
		if occ.Kind == OccReference {
			foundRef = true
		}
	}
	if !foundRef {
		t.Fatalf("expected a reference occurrence among %+v", occs)
	}
}

func TestCompleteMergesProviders(t *testing.T) {
	macros := map[ast.ID]bool{ast.Intern("MYMAC"): true}
	items := Complete("M", macros, nil)
	var sawInstr, sawMacro bool
	for _, it := range items {
		if it.Label == "MACRO" {
			sawInstr = true
		}
		if it.Label == "MYMAC" {
			sawMacro = true
		}
	}
	if !sawInstr {
		t.Fatalf("expected MACRO instruction in completion list, got %+v", items)
	}
	if !sawMacro {
		t.Fatalf("expected MYMAC macro in completion list, got %+v", items)
	}
}

func TestCompleteFiltersByPrefix(t *testing.T) {
	items := Complete("SETA", nil, nil)
	if len(items) != 1 || items[0].Label != "SETA" {
		t.Fatalf("expected exactly SETA, got %+v", items)
	}
}
