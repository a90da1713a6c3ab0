package macro

import (
	"testing"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/parser"
)

func TestNewInvocationBindsPositionalArgs(t *testing.T) {
	def := NewDefinition(ast.Intern("MYMAC"), ast.Range{})
	def.PositionalParams = []ast.ID{ast.Intern("P1"), ast.Intern("P2")}

	actuals := []ast.Operand{{Text: "A"}, {Text: "B"}}
	inv := NewInvocation(def, actuals, ast.Range{})

	if got, ok := inv.SysList(1); !ok || got != "A" {
		t.Fatalf("expected SYSLIST(1)==A, got %q ok=%v", got, ok)
	}
	if got, ok := inv.SysList(2); !ok || got != "B" {
		t.Fatalf("expected SYSLIST(2)==B, got %q ok=%v", got, ok)
	}
	if _, ok := inv.SysList(3); ok {
		t.Fatalf("expected SYSLIST(3) out of range")
	}
}

func TestNewInvocationOverridesKeywordDefault(t *testing.T) {
	def := NewDefinition(ast.Intern("MYMAC"), ast.Range{})
	def.KeywordParams[ast.Intern("COLOR")] = "RED"

	actuals := []ast.Operand{{Text: "COLOR=BLUE"}}
	inv := NewInvocation(def, actuals, ast.Range{})

	if inv.Keyword[ast.Intern("COLOR")] != "BLUE" {
		t.Fatalf("expected keyword override to BLUE, got %q", inv.Keyword[ast.Intern("COLOR")])
	}
}

func TestNewInvocationKeepsKeywordDefaultWhenOmitted(t *testing.T) {
	def := NewDefinition(ast.Intern("MYMAC"), ast.Range{})
	def.KeywordParams[ast.Intern("COLOR")] = "RED"

	inv := NewInvocation(def, nil, ast.Range{})
	if inv.Keyword[ast.Intern("COLOR")] != "RED" {
		t.Fatalf("expected default to survive, got %q", inv.Keyword[ast.Intern("COLOR")])
	}
}

func TestDefinitionOperandCacheRoundTrip(t *testing.T) {
	def := NewDefinition(ast.Intern("MYMAC"), ast.Range{})
	ops := []ast.Operand{{Text: "1"}, {Text: "2"}}
	def.StoreOperands(3, parser.RuleCAExpr, ops)

	got, ok := def.CachedOperands(3, parser.RuleCAExpr)
	if !ok || len(got) != 2 {
		t.Fatalf("expected cached operands to round-trip, got %v ok=%v", got, ok)
	}
	if _, ok := def.CachedOperands(3, parser.RuleAsm); ok {
		t.Fatalf("expected a cache miss for a different rule key")
	}
}
