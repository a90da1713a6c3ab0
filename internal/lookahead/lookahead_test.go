package lookahead

import (
	"testing"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/lexer"
	"hlasmcore/internal/symbols"
)

type fakeSource struct {
	lines []string
}

func (f *fakeSource) Line(n int) (string, bool) {
	if n < 0 || n >= len(f.lines) {
		return "", false
	}
	return f.lines[n], true
}

func (f *fakeSource) StatementAt(i int) ([]lexer.Token, ast.Range, bool) {
	if i < 0 || i >= len(f.lines) {
		return nil, ast.Range{}, false
	}
	ll := lexer.ReadLogicalLine(f, i, lexer.DefaultColumns, false)
	return lexer.NewScanner(ll).ScanTokens(), ast.Range{}, true
}

func TestRunResolvesLaterEQU(t *testing.T) {
	src := &fakeSource{lines: []string{
		"X        DC    F'1'",
		"TARGET   EQU   5",
	}}
	ordinary := symbols.NewOrdinaryTable()
	opcodes := symbols.NewOpcodeTable(nil)
	result := Run(src, 0, []Demand{{Name: ast.Intern("TARGET")}}, ordinary, opcodes)
	if len(result.Resolved) != 1 || result.Resolved[0] != ast.Intern("TARGET") {
		t.Fatalf("expected TARGET resolved, got %v", result.Resolved)
	}
	sym, defined := ordinary.Lookup(ast.Intern("TARGET"))
	if !defined || sym.Attrs.T != 'U' {
		t.Fatalf("expected TARGET defined with default type U, got %+v defined=%v", sym, defined)
	}
}

func TestRunStopsAtEndOfSource(t *testing.T) {
	src := &fakeSource{lines: []string{"X DC F'1'"}}
	ordinary := symbols.NewOrdinaryTable()
	opcodes := symbols.NewOpcodeTable(nil)
	result := Run(src, 0, []Demand{{Name: ast.Intern("NEVER")}}, ordinary, opcodes)
	if len(result.Resolved) != 0 {
		t.Fatalf("expected no resolution for undiscoverable symbol, got %v", result.Resolved)
	}
}
