package pipeline

import (
	"testing"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
)

type stringLines []string

func (s stringLines) Line(n int) (string, bool) {
	if n < 0 || n >= len(s) {
		return "", false
	}
	return s[n], true
}

func TestStepDefinesEQUSymbol(t *testing.T) {
	src := stringLines{
		"TARGET   EQU   5",
	}
	col := &diagnostics.Collector{}
	p := New(src, nil, col, Hooks{})
	if err := p.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !p.Complete {
		t.Fatalf("expected pipeline to complete")
	}
	sym, defined := p.Ordinary.Lookup(ast.Intern("TARGET"))
	if !defined {
		t.Fatalf("expected TARGET defined")
	}
	if sym.AbsValue != 5 {
		t.Fatalf("expected TARGET value 5, got %d", sym.AbsValue)
	}
	if len(col.Diags) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", col.Diags)
	}
}

func TestStepAssignsSETAVariable(t *testing.T) {
	src := stringLines{
		"&X       SETA  3+4",
	}
	col := &diagnostics.Collector{}
	p := New(src, nil, col, Hooks{})
	if err := p.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	v, ok := p.top().Vars.Lookup(ast.Intern("X"))
	if !ok {
		t.Fatalf("expected &X to be declared")
	}
	if v.ScalarA != 7 {
		t.Fatalf("expected &X == 7, got %d", v.ScalarA)
	}
}

func TestStepDefinesDCSymbolWithTypeAttribute(t *testing.T) {
	src := stringLines{
		"FIELD    DC    CL5'AB'",
	}
	col := &diagnostics.Collector{}
	p := New(src, nil, col, Hooks{})
	if err := p.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	sym, defined := p.Ordinary.Lookup(ast.Intern("FIELD"))
	if !defined {
		t.Fatalf("expected FIELD defined")
	}
	if sym.Attrs.T != 'C' {
		t.Fatalf("expected type attribute C, got %q", sym.Attrs.T)
	}
}

func TestStepHonorsICTLColumnOverride(t *testing.T) {
	src := stringLines{
		"         ICTL  1,71,16",
		"TARGET   EQU   9",
	}
	col := &diagnostics.Collector{}
	p := New(src, nil, col, Hooks{})
	if err := p.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if p.cols.End != 71 {
		t.Fatalf("expected end column overridden to 71, got %d", p.cols.End)
	}
}

func TestRunYieldsOnHook(t *testing.T) {
	src := stringLines{
		"A EQU 1",
		"B EQU 2",
	}
	col := &diagnostics.Collector{}
	yielded := false
	p := New(src, nil, col, Hooks{
		ShouldYield: func() bool {
			if yielded {
				return false
			}
			yielded = true
			return true
		},
	})
	result, err := p.Step()
	if err != nil {
		t.Fatalf("Step returned error: %v", err)
	}
	if result != StepYielded {
		t.Fatalf("expected first Step to yield, got %v", result)
	}
	if err := p.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !p.Complete {
		t.Fatalf("expected pipeline to complete after yield")
	}
}
