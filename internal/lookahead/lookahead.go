// Package lookahead implements the forward-scanning resolver of §4.6:
// triggered when a CA expression references an attribute of a symbol not
// yet defined, it scans ahead just far enough to discover that symbol's
// definition, without any other side effect on program state.
package lookahead

import (
	"strconv"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/datadef"
	"hlasmcore/internal/diagnostics"
	"hlasmcore/internal/lexer"
	"hlasmcore/internal/parser"
	"hlasmcore/internal/symbols"
)

// StatementSource supplies statements one at a time starting from a given
// index, the same source the pipeline itself reads from, so lookahead
// shares the exact token stream ordinary processing would see.
type StatementSource interface {
	// StatementAt returns the raw tokens and range for the statement at
	// logical index i, or ok=false past the end of the compilation unit.
	StatementAt(i int) (toks []lexer.Token, rng ast.Range, ok bool)
}

// Demand is one symbol + attribute kind the caller needs resolved before it
// can finish evaluating an expression.
type Demand struct {
	Name ast.ID
	Kind symbols.ValueKind // hint only; lookahead resolves whatever attribute a definition yields
}

// Result carries what lookahead discovered for the demanded symbols; the
// ordinary symbol table itself was already updated as a side effect.
type Result struct {
	Resolved []ast.ID
	Reached  int // logical statement index processing stopped at
}

// Run scans forward from startIndex, defining symbols in ordinary as it
// encounters EQU/DC/DS/machine-label/CSECT/DSECT definitions, until every
// name in demands is defined or the source is exhausted (§4.6 steps 1-3).
// It never advances USING state, location counters, or the variable table:
// those are irrelevant to attribute lookahead and this function has no
// access to them.
func Run(src StatementSource, startIndex int, demands []Demand, ordinary *symbols.OrdinaryTable, opcodes *symbols.OpcodeTable) Result {
	remaining := make(map[ast.ID]bool, len(demands))
	for _, d := range demands {
		if !ordinary.HasPendingDemand(d.Name) {
			continue
		}
		remaining[d.Name] = true
	}

	result := Result{Reached: startIndex}
	if len(remaining) == 0 {
		return result
	}

	drop := diagnostics.Drop{}
	i := startIndex
	for len(remaining) > 0 {
		toks, rng, ok := src.StatementAt(i)
		if !ok {
			break
		}
		p := parser.New(toks, rng, drop)
		label, instr := p.LookLabInstr()
		resolveOne(label, instr, p, ordinary, opcodes, drop)
		if label != nil && remaining[*label] {
			delete(remaining, *label)
			result.Resolved = append(result.Resolved, *label)
		}
		i++
	}
	result.Reached = i
	return result
}

// resolveOne performs the step-4 attribute extraction for one statement's
// label, based on the instruction's classification. Complex cases
// (expression-valued EQU operands, machine instructions with
// length-modifying extended mnemonics) fall back to defaults with a
// suppressed diagnostic, matching the "errors are suppressed" rule — the
// caller's Consumer is diagnostics.Drop, so New(...) calls below are
// effectively no-ops on output but keep the call sites uniform with the
// rest of the analysis core.
func resolveOne(label *ast.ID, instr string, p *parser.Parser, ordinary *symbols.OrdinaryTable, opcodes *symbols.OpcodeTable, diags diagnostics.Consumer) {
	if label == nil {
		return
	}
	rng := ast.Range{}
	switch instr {
	case "EQU":
		operands, _ := p.OpRemBody(parser.RuleAsm)
		attrs := equAttributes(operands, rng, diags)
		ordinary.Define(*label, symbols.ValueAbs, 0, "", 0, attrs, rng, diags)
	case "DC", "DS":
		operands, _ := p.OpRemBody(parser.RuleDat)
		attrs := symbols.DefaultAttributes
		if len(operands) > 0 {
			attrs = datadef.Validate(parseDatOperand(operands[0], instr == "DC"), diags)
		}
		ordinary.Define(*label, symbols.ValueRelocatable, 0, "", 0, attrs, rng, diags)
	case "CSECT", "DSECT":
		ordinary.Define(*label, symbols.ValueRelocatable, 0, "", 0, symbols.Attributes{T: 'J', L: 1, D: true}, rng, diags)
	default:
		tag, _ := opcodes.Resolve(ast.Intern(instr), nil)
		if tag.Class == ast.OpMachineInstr || tag.Class == ast.OpMnemonic {
			ordinary.Define(*label, symbols.ValueRelocatable, 0, "", 0, symbols.Attributes{T: 'I', L: 2, D: true}, rng, diags)
		}
	}
}

// equAttributes reads EQU's length, type, program-type and assembler-type
// operands (the second to fifth) per §4.6 step 4; the first, value operand
// is not evaluated here. A length operand that is not a decimal degrades to
// the default length with an A132 warning emitted by the caller's
// diagnostics consumer; the symbol still ends up defined.
func equAttributes(operands []ast.Operand, rng ast.Range, diags diagnostics.Consumer) symbols.Attributes {
	attrs := symbols.Attributes{T: 'U', L: 1, D: true}
	if len(operands) > 1 && operands[1].Text != "" {
		if n, err := strconv.ParseInt(operands[1].Text, 10, 32); err == nil {
			attrs.L = int32(n)
		} else {
			diags.Add(diagnostics.New(diagnostics.A132, diagnostics.SeverityWarning, diagnostics.ClassWarning, rng,
				"EQU length operand %q is not a simple decimal value, default length used", operands[1].Text))
		}
	}
	if len(operands) > 2 && operands[2].Text != "" {
		attrs.T = operands[2].Text[0]
	}
	if len(operands) > 3 && operands[3].Text != "" {
		attrs.P = operands[3].Text
	}
	if len(operands) > 4 && operands[4].Text != "" {
		attrs.A = operands[4].Text
	}
	return attrs
}

func parseDatOperand(op ast.Operand, isDC bool) datadef.Operand {
	return datadef.ParseOperand(op.Text, isDC, op.Range)
}
