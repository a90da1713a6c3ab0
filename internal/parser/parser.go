// internal/parser/parser.go
//
// Recursive-descent statement parser (§4.2): label/instruction recognition
// (lab_instr / look_lab_instr) followed by one of the op_rem_body_*
// operand-rule variants the caller selects based on processing status.
package parser

import (
	"strings"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
	"hlasmcore/internal/lexer"
)

// OperandRule names one of the op_rem_body_* variants. The processing
// status computed by internal/pipeline before each statement selects which
// rule governs it; the parser never chooses this for itself.
type OperandRule uint8

const (
	RuleCAExpr   OperandRule = iota // SETA/SETB/SETC values, AGO target list
	RuleCABranch                    // AIF condition
	RuleCAVarDef                    // LCLx/GBLx var-name lists
	RuleMach                        // machine instruction operands
	RuleAsm                         // assembler instruction operands
	RuleDat                         // DC/DS operand list
	RuleMac                         // macro-call operands
	RuleNoop                        // no operands expected (MEND, etc.)
	RuleIgnored                     // operand text kept but not interpreted
	RuleDeferred                    // capture verbatim: lookahead, copy/macro definition capture
)

// Parser walks one logical statement's token list.
type Parser struct {
	tokens  []lexer.Token
	current int
	diags   diagnostics.Consumer
	rng     ast.Range
}

func New(tokens []lexer.Token, rng ast.Range, diags diagnostics.Consumer) *Parser {
	return &Parser{tokens: tokens, rng: rng, diags: diags}
}

func (p *Parser) check(t lexer.TokenType) bool { return p.peek().Type == t }

func (p *Parser) peek() lexer.Token {
	i := p.current
	for i < len(p.tokens) && p.tokens[i].Type == lexer.TokenSpace {
		i++
	}
	if i >= len(p.tokens) {
		return lexer.Token{Type: lexer.TokenEOF}
	}
	return p.tokens[i]
}

func (p *Parser) advance() lexer.Token {
	for p.current < len(p.tokens) && p.tokens[p.current].Type == lexer.TokenSpace {
		p.current++
	}
	if p.current >= len(p.tokens) {
		return lexer.Token{Type: lexer.TokenEOF}
	}
	t := p.tokens[p.current]
	p.current++
	return t
}

func (p *Parser) isAtEnd() bool { return p.peek().Type == lexer.TokenEOF }

// atColumn1 reports whether the token list's very first entry is not a
// leading space, i.e. the statement has something in the label field.
func (p *Parser) atColumn1() bool {
	return len(p.tokens) > 0 && p.tokens[0].Type != lexer.TokenSpace
}

// LabInstr implements lab_instr (§4.2): recognize an optional label then
// the instruction/macro name, leaving the remaining tokens for OpRemBody.
func (p *Parser) LabInstr() (label *ast.ID, labelRng ast.Range, instr string, instrRng ast.Range) {
	if p.atColumn1() {
		switch p.tokens[0].Type {
		case lexer.TokenOrdSymbol, lexer.TokenDot, lexer.TokenAmpersand:
			name, rng := p.scanName()
			id := ast.Intern(name)
			label = &id
			labelRng = rng
		}
	}
	instr, instrRng = p.scanName()
	return label, labelRng, instr, instrRng
}

// LookLabInstr is look_lab_instr: same recognition, used when the caller is
// lookahead and wants to stop before any operand syntax is parsed at all
// (§4.6). Diagnostics from this call are expected to be routed through a
// diagnostics.Drop consumer by the caller.
func (p *Parser) LookLabInstr() (label *ast.ID, instr string) {
	l, _, i, _ := p.LabInstr()
	return l, i
}

func (p *Parser) scanName() (string, ast.Range) {
	for p.current < len(p.tokens) && p.tokens[p.current].Type == lexer.TokenSpace {
		p.current++
	}
	nameStart := p.current
	var b strings.Builder
	for p.current < len(p.tokens) {
		t := p.tokens[p.current]
		switch t.Type {
		case lexer.TokenOrdSymbol, lexer.TokenNumeric, lexer.TokenDot, lexer.TokenAmpersand:
			b.WriteString(t.Text)
			p.current++
		default:
			goto done
		}
	}
done:
	rng := p.rng
	if nameStart < p.current {
		rng = p.tokens[nameStart].Range.Union(p.tokens[p.current-1].Range)
	}
	return b.String(), rng
}

// OpRemBody dispatches to the operand-rule variant the caller selected. For
// RuleDeferred/RuleIgnored/RuleNoop the remaining text is returned as-is
// (unsplit); other rules split on top-level commas, each field becoming one
// ast.Operand whose Expr is left nil for caexpr/datadef to fill in once
// they know the expected kind/type.
func (p *Parser) OpRemBody(rule OperandRule) (operands []ast.Operand, remark string) {
	rest := p.remainingText()
	switch rule {
	case RuleDeferred, RuleIgnored, RuleNoop:
		return nil, strings.TrimSpace(rest)
	default:
		trimmed := strings.TrimLeft(rest, " \t")
		base := p.operandBase()
		base.Col += len(rest) - len(trimmed)
		fields, fieldRanges, remark := splitOperands(trimmed, base)
		operands = make([]ast.Operand, len(fields))
		for i, f := range fields {
			operands[i] = ast.Operand{Text: f, Range: fieldRanges[i]}
		}
		return operands, remark
	}
}

func (p *Parser) operandBase() ast.Position {
	if p.current < len(p.tokens) {
		return p.tokens[p.current].Range.Start
	}
	return p.rng.End
}

func (p *Parser) remainingText() string {
	var b strings.Builder
	for ; p.current < len(p.tokens); p.current++ {
		if p.tokens[p.current].Type == lexer.TokenEOF {
			break
		}
		b.WriteString(p.tokens[p.current].Text)
	}
	return b.String()
}

// splitOperands splits an operand-field string on commas not nested inside
// parentheses or apostrophe-delimited strings. Once nesting returns to zero
// a run of whitespace introduces the free-text remark field and scanning
// stops. base anchors byte offsets into the same line the fields came from
// so each field gets an approximate Range.
func splitOperands(s string, base ast.Position) (fields []string, ranges []ast.Range, remark string) {
	depth := 0
	inStr := false
	start := 0
	i := 0
	emit := func(end int) {
		fields = append(fields, s[start:end])
		ranges = append(ranges, ast.Range{
			Start: ast.Position{Line: base.Line, Col: base.Col + start},
			End:   ast.Position{Line: base.Line, Col: base.Col + end},
		})
	}
	for i < len(s) {
		c := s[i]
		switch {
		case inStr:
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
				} else {
					inStr = false
				}
			}
		case c == '\'':
			inStr = true
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			emit(i)
			start = i + 1
		case (c == ' ' || c == '\t') && depth == 0:
			emit(i)
			remark = strings.TrimSpace(s[i:])
			return fields, ranges, remark
		}
		i++
	}
	if start < len(s) || len(fields) == 0 {
		emit(len(s))
	}
	return fields, ranges, remark
}
