package symbols

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/diff"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
)

func dumpDefined(t *OrdinaryTable) string {
	var b strings.Builder
	for _, sym := range t.AllDefined() {
		fmt.Fprintf(&b, "%s kind=%d attrs=%c/%d\n", sym.Name, sym.Kind, sym.Attrs.T, sym.Attrs.L)
	}
	return b.String()
}

func TestOrdinaryDefineOrderPreserved(t *testing.T) {
	tbl := NewOrdinaryTable()
	col := &diagnostics.Collector{}
	tbl.Define(ast.Intern("B"), ValueAbs, 2, "", 0, Attributes{T: 'U', L: 1}, ast.Range{}, col)
	tbl.Define(ast.Intern("A"), ValueAbs, 1, "", 0, Attributes{T: 'F', L: 4}, ast.Range{}, col)

	want := "B kind=1 attrs=U/1\nA kind=1 attrs=F/4\n"
	got := dumpDefined(tbl)
	if got != want {
		t.Fatalf("unexpected definition order:\n%s", diff.Diff("want", []byte(want), "got", []byte(got)))
	}
	if len(col.Diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", col.Diags)
	}
}

func TestOrdinaryRedefinitionDiagnosed(t *testing.T) {
	tbl := NewOrdinaryTable()
	col := &diagnostics.Collector{}
	tbl.Define(ast.Intern("X"), ValueAbs, 1, "", 0, Attributes{}, ast.Range{}, col)
	tbl.Define(ast.Intern("X"), ValueAbs, 2, "", 0, Attributes{}, ast.Range{}, col)

	if len(col.Diags) != 1 || col.Diags[0].Code != diagnostics.E010 {
		t.Fatalf("expected one E010 diagnostic, got %v", col.Diags)
	}
	sym, defined := tbl.Lookup(ast.Intern("X"))
	if !defined || sym.AbsValue != 1 {
		t.Fatalf("expected first definition to win, got %+v", sym)
	}
}

func TestOrdinaryRequestAttributeResolvesOnDefine(t *testing.T) {
	tbl := NewOrdinaryTable()
	col := &diagnostics.Collector{}
	var got Attributes
	tbl.RequestAttribute(ast.Intern("FWD"), 'L', ast.Range{}, func(a Attributes) { got = a })
	if !tbl.HasPendingDemand(ast.Intern("FWD")) {
		t.Fatalf("expected a pending demand before definition")
	}
	tbl.Define(ast.Intern("FWD"), ValueAbs, 0, "", 0, Attributes{T: 'C', L: 8}, ast.Range{}, col)
	if got.L != 8 || got.T != 'C' {
		t.Fatalf("expected queued demand to resolve with defined attrs, got %+v", got)
	}
	if tbl.HasPendingDemand(ast.Intern("FWD")) {
		t.Fatalf("expected no pending demand after definition")
	}
}

func TestOrdinaryRequestAttributeImmediateWhenDefined(t *testing.T) {
	tbl := NewOrdinaryTable()
	col := &diagnostics.Collector{}
	tbl.Define(ast.Intern("DONE"), ValueAbs, 0, "", 0, Attributes{T: 'H', L: 2}, ast.Range{}, col)
	var got Attributes
	tbl.RequestAttribute(ast.Intern("DONE"), 'L', ast.Range{}, func(a Attributes) { got = a })
	if got.L != 2 {
		t.Fatalf("expected immediate resolution, got %+v", got)
	}
}
