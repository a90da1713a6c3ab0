package parser

import (
	"testing"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
	"hlasmcore/internal/lexer"
)

func tokenize(t *testing.T, text string) []lexer.Token {
	t.Helper()
	src := singleLine(text)
	ll := lexer.ReadLogicalLine(src, 0, lexer.DefaultColumns, false)
	return lexer.NewScanner(ll).ScanTokens()
}

type singleLine string

func (l singleLine) Line(n int) (string, bool) {
	if n != 0 {
		return "", false
	}
	return string(l), true
}

func TestLabInstrWithLabel(t *testing.T) {
	toks := tokenize(t, "LOOP     BC    8,LOOP")
	var col diagnostics.Collector
	p := New(toks, ast.Range{}, &col)
	label, _, instr, _ := p.LabInstr()
	if label == nil || *label != ast.Intern("LOOP") {
		t.Fatalf("expected label LOOP, got %v", label)
	}
	if instr != "BC" {
		t.Fatalf("expected instr BC, got %q", instr)
	}
}

func TestLabInstrWithoutLabel(t *testing.T) {
	toks := tokenize(t, "         BC    8,LOOP")
	var col diagnostics.Collector
	p := New(toks, ast.Range{}, &col)
	label, _, instr, _ := p.LabInstr()
	if label != nil {
		t.Fatalf("expected no label, got %v", *label)
	}
	if instr != "BC" {
		t.Fatalf("expected instr BC, got %q", instr)
	}
}

func TestOpRemBodySplitsOperands(t *testing.T) {
	toks := tokenize(t, "         MVC   FIELD,=C'X'   move it")
	var col diagnostics.Collector
	p := New(toks, ast.Range{}, &col)
	p.LabInstr()
	operands, remark := p.OpRemBody(RuleMach)
	if len(operands) != 2 {
		t.Fatalf("expected 2 operands, got %d (%v)", len(operands), operands)
	}
	if operands[0].Text != "FIELD" {
		t.Fatalf("expected first operand FIELD, got %q", operands[0].Text)
	}
	if remark != "move it" {
		t.Fatalf("expected remark 'move it', got %q", remark)
	}
}

func TestOpRemBodyIgnoresCommaInsideQuotes(t *testing.T) {
	toks := tokenize(t, "         DC    F'1,2',C'X'")
	var col diagnostics.Collector
	p := New(toks, ast.Range{}, &col)
	p.LabInstr()
	operands, _ := p.OpRemBody(RuleDat)
	if len(operands) != 2 {
		t.Fatalf("expected 2 operands (comma inside quotes not a separator), got %d: %v", len(operands), operands)
	}
}

func TestOpRemBodyDeferredKeepsVerbatim(t *testing.T) {
	toks := tokenize(t, "         ANOP  &X,&Y")
	var col diagnostics.Collector
	p := New(toks, ast.Range{}, &col)
	p.LabInstr()
	operands, remark := p.OpRemBody(RuleDeferred)
	if operands != nil {
		t.Fatalf("expected no parsed operands in deferred mode, got %v", operands)
	}
	if remark != "&X,&Y" {
		t.Fatalf("expected verbatim remark, got %q", remark)
	}
}
