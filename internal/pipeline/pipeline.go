// Package pipeline implements the processing pipeline of §4.5: a stack of
// frames tracking processing kind, a cooperative step() that advances one
// statement at a time, and the dispatch from a resolved opcode to the
// relevant semantic action.
package pipeline

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/caexpr"
	"hlasmcore/internal/datadef"
	"hlasmcore/internal/diagnostics"
	"hlasmcore/internal/lexer"
	"hlasmcore/internal/lookahead"
	"hlasmcore/internal/macro"
	"hlasmcore/internal/parser"
	"hlasmcore/internal/symbols"
)

// ProcessingKind is a frame's mode (§4.5 "processing kind").
type ProcessingKind uint8

const (
	KindOrdinary  ProcessingKind = iota
	KindMacroDef                 // capturing a MACRO...MEND body verbatim
	KindMacroCall                // interpreting a macro invocation's captured body
	KindCopyDef
	KindLookahead
	KindAread
)

// Frame is one entry on the processing stack: a processing kind, an
// instruction pointer, a variable scope, and (for a macro call) the active
// invocation, or (while capturing a MACRO body) the definition under
// construction (§4.5).
type Frame struct {
	Kind       ProcessingKind
	IP         int
	Vars       *symbols.VarTable
	Invocation *macro.Invocation
	Defining   *macro.Definition
}

// Source supplies physical source lines for the lexer/continuation engine.
type Source interface {
	lexer.LineSource
}

// StepResult is what one Step call produced (§5 "suspension points").
type StepResult uint8

const (
	StepContinue StepResult = iota
	StepYielded
	StepFinished
)

// Hooks lets the host (workspace layer, CLI) answer the cooperative
// yield/cancel queries and report library availability, without the
// pipeline importing those concerns directly.
type Hooks struct {
	ShouldYield  func() bool
	ShouldCancel func() bool
	HasLibrary   func(name ast.ID) bool

	// OnStatement, when set, is called once per processed statement after
	// its label/instruction/operands are recognized but before dispatch.
	// internal/lsp uses this to build its occurrence index (§4.7) without
	// this package importing lsp concerns directly.
	OnStatement func(label *ast.ID, labelRng ast.Range, instr string, instrRng ast.Range, operands []ast.Operand, stmtRng ast.Range)
}

// Pipeline is one single-threaded analysis (§5: "one analysis request runs
// to completion on one worker").
type Pipeline struct {
	src      Source
	cols     lexer.Columns
	ictlSeen bool
	line     int

	frames []Frame

	Ordinary  *symbols.OrdinaryTable
	Sequences *symbols.SeqTable
	Opcodes   *symbols.OpcodeTable
	Macros    map[ast.ID]*macro.Definition

	diags diagnostics.Consumer
	hooks Hooks

	locCounter int32
	curSection ast.ID

	stmtIndex int
	Complete  bool

	// jumped is set by an AGO/AIF that actually repositioned the cursor, so
	// Step's trailing advance-to-next-line doesn't immediately undo it.
	jumped bool
}

func New(src Source, catalog symbols.Catalog, diags diagnostics.Consumer, hooks Hooks) *Pipeline {
	p := &Pipeline{
		src:       src,
		cols:      lexer.DefaultColumns,
		Ordinary:  symbols.NewOrdinaryTable(),
		Sequences: symbols.NewSeqTable(symbols.SeqOpencode),
		Opcodes:   symbols.NewOpcodeTable(catalog),
		Macros:    make(map[ast.ID]*macro.Definition),
		diags:     diags,
		hooks:     hooks,
	}
	p.frames = []Frame{{Kind: KindOrdinary, Vars: symbols.NewVarTable(make(map[ast.ID]*symbols.Variable))}}
	return p
}

func (p *Pipeline) top() *Frame { return &p.frames[len(p.frames)-1] }

// BaseVars returns the variable table of the outermost (opencode) frame,
// the scope a completion or hover query should search once Run has
// finished and every macro invocation has unwound (§4.7).
func (p *Pipeline) BaseVars() *symbols.VarTable { return p.frames[0].Vars }

// Run drives Step to completion, honoring cancellation (§5).
func (p *Pipeline) Run() error {
	for {
		if p.hooks.ShouldCancel != nil && p.hooks.ShouldCancel() {
			p.Complete = false
			return nil
		}
		result, err := p.Step()
		if err != nil {
			return err
		}
		if result == StepFinished {
			p.Complete = true
			return nil
		}
	}
}

// Step advances exactly one statement through the §4.5 sequence: tokenize,
// resolve opcode, select the operand rule, dispatch. A frame interpreting a
// macro invocation draws its statements from the captured body instead of
// the physical source (stepMacroCall); every other frame reads the next
// physical line. Internal invariant violations are wrapped with a stack
// trace and surfaced as a fatal S100 diagnostic rather than panicking (§7
// "Fatal conditions").
func (p *Pipeline) Step() (result StepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			wrapped := errors.Errorf("internal parser state violation: %v", r)
			p.diags.Add(diagnostics.New(diagnostics.S100, diagnostics.SeverityError, diagnostics.ClassSemantic, ast.Range{},
				"%+v", wrapped))
			result = StepFinished
			err = wrapped
		}
	}()

	if p.hooks.ShouldYield != nil && p.hooks.ShouldYield() {
		return StepYielded, nil
	}

	if p.top().Kind == KindMacroCall {
		return p.stepMacroCall()
	}

	if _, ok := p.src.Line(p.line); !ok {
		return StepFinished, nil
	}

	ll := lexer.ReadLogicalLine(p.src, p.line, p.cols, false)
	toks := lexer.NewScanner(ll).ScanTokens()
	rng := ast.Range{Start: ast.Position{Line: ll.StartLine}, End: ast.Position{Line: ll.NextLine - 1}}

	consumer := p.diags
	if p.top().Kind == KindLookahead {
		consumer = diagnostics.Drop{}
	}

	pp := parser.New(toks, rng, consumer)
	label, labelRng, instr, instrRng := pp.LabInstr()

	if p.top().Kind == KindMacroDef {
		p.stepMacroDef(label, instr, pp, ll, rng)
		p.line = ll.NextLine
		p.stmtIndex++
		return StepContinue, nil
	}

	if !p.ictlSeen {
		p.ictlSeen = true
		if instr == "ICTL" {
			ops, _ := pp.OpRemBody(parser.RuleAsm)
			var text strings.Builder
			for i, o := range ops {
				if i > 0 {
					text.WriteByte(',')
				}
				text.WriteString(o.Text)
			}
			if cols, ok := lexer.ParseICTL(text.String()); ok {
				p.cols = cols
			}
			p.line = ll.NextLine
			p.stmtIndex++
			return StepContinue, nil
		}
	}

	if instr == "MACRO" {
		p.frames = append(p.frames, Frame{Kind: KindMacroDef, Defining: macro.NewDefinition("", rng)})
		p.line = ll.NextLine
		p.stmtIndex++
		return StepContinue, nil
	}

	tag, kind := p.Opcodes.Resolve(ast.Intern(instr), p.macroNames())

	var rule parser.OperandRule
	switch kind {
	case symbols.OpKindCA:
		rule = caRule(instr)
	case symbols.OpKindAssembler:
		rule = asmOperandRule(instr)
	case symbols.OpKindMachine, symbols.OpKindMnemonic:
		rule = parser.RuleMach
	case symbols.OpKindMacro:
		rule = parser.RuleMac
	default:
		rule = parser.RuleIgnored
	}

	operands, _ := pp.OpRemBody(rule)

	if p.hooks.OnStatement != nil && p.top().Kind != KindLookahead {
		p.hooks.OnStatement(label, labelRng, instr, instrRng, operands, rng)
	}

	p.jumped = false
	p.dispatch(label, tag, kind, instr, operands, rng, consumer)

	if p.jumped {
		p.jumped = false
	} else {
		p.line = ll.NextLine
		p.stmtIndex++
	}
	return StepContinue, nil
}

// stepMacroDef advances a MACRO...MEND capture frame by one statement: the
// first statement after MACRO is the prototype (binds the definition's name,
// name parameter and positional/keyword parameters); everything up to MEND
// is stored verbatim for later substitution and re-parse (§3.5).
func (p *Pipeline) stepMacroDef(label *ast.ID, instr string, pp *parser.Parser, ll lexer.LogicalLine, rng ast.Range) {
	def := p.top().Defining

	if def.Name == "" {
		if label != nil {
			name := stripAmp(*label)
			def.NameParam = &name
		}
		def.Name = ast.Intern(instr)
		operands, _ := pp.OpRemBody(parser.RuleMac)
		for _, o := range operands {
			name, isKeyword, val := splitProtoParam(o.Text)
			if name == "" {
				continue
			}
			if isKeyword {
				def.KeywordParams[name] = val
			} else {
				def.PositionalParams = append(def.PositionalParams, name)
			}
		}
		return
	}

	if instr == "MEND" {
		p.Macros[def.Name] = def
		p.frames = p.frames[:len(p.frames)-1]
		return
	}

	if label != nil && strings.HasPrefix(string(*label), ".") {
		def.SequenceSymbols[ast.Intern(string(*label)[1:])] = len(def.Body)
	}
	def.Body = append(def.Body, ast.Statement{Form: ast.FormDeferred, Range: rng, DeferredText: ll.Text})
}

// stepMacroCall replays one statement of the active invocation's body: model
// substitution of &NAME references against the call's own variable scope,
// then the same lex/parse/dispatch path an ordinary statement goes through.
// Operand splits of body lines that substitution leaves unchanged are
// memoized per (body index, rule) on the definition itself, so two
// invocations of the same macro under the same rule don't re-split the same
// body line twice (§3.5's statement cache); a line whose text substitution
// changed is split afresh.
func (p *Pipeline) stepMacroCall() (StepResult, error) {
	frameIdx := len(p.frames) - 1
	f := &p.frames[frameIdx]
	def := f.Invocation.Def

	if f.IP >= len(def.Body) {
		p.frames = p.frames[:len(p.frames)-1]
		return StepContinue, nil
	}

	stmt := def.Body[f.IP]
	text := p.substituteModel(stmt.DeferredText, f.Vars)
	ll := lexer.LogicalLine{Text: text, StartLine: 0, NextLine: 1}
	toks := lexer.NewScanner(ll).ScanTokens()
	rng := stmt.Range

	pp := parser.New(toks, rng, p.diags)
	label, labelRng, instr, instrRng := pp.LabInstr()

	if instr == "MEND" {
		p.frames = p.frames[:len(p.frames)-1]
		return StepContinue, nil
	}

	tag, kind := p.Opcodes.Resolve(ast.Intern(instr), p.macroNames())

	var rule parser.OperandRule
	switch kind {
	case symbols.OpKindCA:
		rule = caRule(instr)
	case symbols.OpKindAssembler:
		rule = asmOperandRule(instr)
	case symbols.OpKindMachine, symbols.OpKindMnemonic:
		rule = parser.RuleMach
	case symbols.OpKindMacro:
		rule = parser.RuleMac
	default:
		rule = parser.RuleIgnored
	}

	operands, ok := def.CachedOperands(f.IP, rule)
	if !ok || text != stmt.DeferredText {
		operands, _ = pp.OpRemBody(rule)
		if text == stmt.DeferredText {
			def.StoreOperands(f.IP, rule, operands)
		}
	}

	if p.hooks.OnStatement != nil {
		p.hooks.OnStatement(label, labelRng, instr, instrRng, operands, rng)
	}

	p.jumped = false
	p.dispatch(label, tag, kind, instr, operands, rng, p.diags)

	// dispatch may have pushed a nested macro-call frame (this statement was
	// itself a macro invocation), reallocating p.frames' backing array; reach
	// this frame by index rather than through the stale f pointer.
	if p.jumped {
		p.jumped = false
	} else {
		p.frames[frameIdx].IP++
	}
	return StepContinue, nil
}

// substituteModel replaces &NAME references in a captured macro-body
// statement's text with the current textual value of NAME in vars, before
// it is re-lexed (§3.5 model-statement substitution). Names vars has no
// binding for are left untouched, matching sublist/SYSLIST forms this pass
// doesn't resolve here.
func (p *Pipeline) substituteModel(text string, vars *symbols.VarTable) string {
	ll := lexer.LogicalLine{Text: text, StartLine: 0, NextLine: 1}
	toks := lexer.NewScanner(ll).ScanTokens()
	var b strings.Builder
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Type == lexer.TokenAmpersand && i+1 < len(toks) && toks[i+1].Type == lexer.TokenOrdSymbol {
			name := ast.Intern(toks[i+1].Text)
			if v, ok := vars.Lookup(name); ok {
				b.WriteString(variableText(*v))
				i++
				continue
			}
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

func variableText(v symbols.Variable) string {
	switch v.Type {
	case symbols.VarB:
		if v.ScalarB {
			return "1"
		}
		return "0"
	case symbols.VarC:
		return v.ScalarC
	default:
		return strconv.Itoa(int(v.ScalarA))
	}
}

// splitProtoParam parses one MACRO prototype parameter: "&NAME" is
// positional, "&NAME=default" is a keyword parameter with that default text.
func splitProtoParam(text string) (name ast.ID, isKeyword bool, def string) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "&")
	if eq := strings.IndexByte(text, '='); eq >= 0 {
		return ast.Intern(text[:eq]), true, text[eq+1:]
	}
	return ast.Intern(text), false, ""
}

func (p *Pipeline) macroNames() map[ast.ID]bool {
	out := make(map[ast.ID]bool, len(p.Macros))
	for k := range p.Macros {
		out[k] = true
	}
	return out
}

func caRule(instr string) parser.OperandRule {
	switch instr {
	case "AIF":
		return parser.RuleCABranch
	case "LCLA", "LCLB", "LCLC", "GBLA", "GBLB", "GBLC":
		return parser.RuleCAVarDef
	case "SETA", "SETB", "SETC", "AGO", "ACTR":
		return parser.RuleCAExpr
	default:
		return parser.RuleNoop
	}
}

// asmOperandRule picks the operand rule for an assembler instruction; DC/DS
// get the data-definition field grammar, everything else the generic
// assembler-operand grammar.
func asmOperandRule(instr string) parser.OperandRule {
	switch instr {
	case "DC", "DS", "DXD":
		return parser.RuleDat
	default:
		return parser.RuleAsm
	}
}

// dispatch implements §4.5 step 5: route by opcode kind to the relevant
// semantic action. A label in the '.' namespace is always a sequence symbol,
// never an ordinary/variable one, so it's resolved into Sequences here
// before the kind switch even looks at it (§3.4). Machine-instruction
// operand validation itself is out of this package's scope (§1: an opaque
// instruction-catalog capability); this only records the defining
// occurrence.
func (p *Pipeline) dispatch(label *ast.ID, tag ast.OpcodeTag, kind symbols.OpKind, instr string, operands []ast.Operand, rng ast.Range, diags diagnostics.Consumer) {
	if label != nil && strings.HasPrefix(string(*label), ".") {
		p.defineSequenceLabel(*label, rng)
		label = nil
	}
	switch kind {
	case symbols.OpKindCA:
		p.dispatchCA(label, instr, operands, rng, diags)
	case symbols.OpKindAssembler:
		p.dispatchAsm(label, instr, operands, rng, diags)
	case symbols.OpKindMachine, symbols.OpKindMnemonic:
		p.dispatchMachine(label, rng, diags)
	case symbols.OpKindMacro:
		p.dispatchMacroCall(label, tag.Name, operands, rng)
	default:
		if label != nil {
			p.Ordinary.Reference(*label)
		}
	}
}

// defineSequenceLabel records a .NAME label's statement position the first
// time it's encountered; a later visit of the same physical statement (from
// a forward lookahead scan, or re-dispatch) is not a redefinition.
func (p *Pipeline) defineSequenceLabel(label ast.ID, rng ast.Range) {
	name := ast.Intern(string(label)[1:])
	prev, _ := p.Sequences.Lookup(name)
	for s := prev; s != nil; s = s.DuplicateOf {
		if s.Pos.Line == p.line {
			return
		}
	}
	p.Sequences.Define(name, symbols.StatementPos{Index: p.stmtIndex, Line: p.line}, rng)
}

func (p *Pipeline) dispatchCA(label *ast.ID, instr string, operands []ast.Operand, rng ast.Range, diags diagnostics.Consumer) {
	switch instr {
	case "SETA", "SETB", "SETC":
		if len(operands) == 0 || label == nil {
			return
		}
		kind := ast.KindA
		switch instr {
		case "SETB":
			kind = ast.KindB
		case "SETC":
			kind = ast.KindC
		}
		name := stripAmp(*label)
		v, ok := p.top().Vars.Lookup(name)
		if !ok {
			v = symbols.NewScalar(name, varTypeFor(instr), symbols.ScopeLocal)
			p.top().Vars.DeclareLocal(v)
		}
		raw := tokenizeCAExpr(operands[0].Text)
		expr := caexpr.Resolve(&ast.Expr{Raw: raw, Range: operands[0].Range}, kind, diags)
		val := caexpr.Evaluate(expr, p.caEnv(), diags)
		switch kind {
		case ast.KindA:
			v.ScalarA = val.A
		case ast.KindB:
			v.ScalarB = val.B
		case ast.KindC:
			v.ScalarC = val.C
		}
	case "AIF":
		if len(operands) == 0 {
			return
		}
		cond, target := splitAIFOperand(operands[0].Text)
		if target == "" {
			return
		}
		raw := tokenizeCAExpr(cond)
		expr := caexpr.Resolve(&ast.Expr{Raw: raw, Range: operands[0].Range}, ast.KindB, diags)
		val := caexpr.Evaluate(expr, p.caEnv(), diags)
		if val.B {
			p.jumpToSequence(ast.Intern(target), rng, diags)
		}
	case "AGO":
		p.dispatchAGO(operands, rng, diags)
	case "MNOTE":
		// severity/message emission only; no program-state effect.
	}
}

// dispatchAGO handles both AGO forms: unconditional "AGO .TARGET" (a single
// operand with no computed-form parenthesized selector) and computed
// "AGO (expr).T1,.T2,..." (1-based selection of which target to jump to).
func (p *Pipeline) dispatchAGO(operands []ast.Operand, rng ast.Range, diags diagnostics.Consumer) {
	if len(operands) == 0 {
		return
	}
	first := strings.TrimSpace(operands[0].Text)
	if len(operands) == 1 && strings.HasPrefix(first, ".") {
		p.jumpToSequence(ast.Intern(first[1:]), rng, diags)
		return
	}

	cond, firstTarget := splitAIFOperand(first)
	raw := tokenizeCAExpr(cond)
	expr := caexpr.Resolve(&ast.Expr{Raw: raw, Range: operands[0].Range}, ast.KindA, diags)
	val := caexpr.Evaluate(expr, p.caEnv(), diags)

	targets := make([]string, 0, len(operands))
	targets = append(targets, strings.TrimPrefix(firstTarget, "."))
	for _, o := range operands[1:] {
		targets = append(targets, strings.TrimPrefix(strings.TrimSpace(o.Text), "."))
	}
	if val.A >= 1 && int(val.A) <= len(targets) && targets[val.A-1] != "" {
		p.jumpToSequence(ast.Intern(targets[val.A-1]), rng, diags)
	}
}

// splitAIFOperand splits an AIF condition / computed-AGO selector operand of
// the form "(expr).target" into expr and target, honoring parenthesis
// nesting inside expr.
func splitAIFOperand(text string) (cond, target string) {
	text = strings.TrimSpace(text)
	if len(text) == 0 || text[0] != '(' {
		return "", ""
	}
	depth := 0
	for i, c := range text {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				rest := text[i+1:]
				if strings.HasPrefix(rest, ".") {
					return text[1:i], rest[1:]
				}
				return text[1:i], ""
			}
		}
	}
	return text[1:], ""
}

// jumpToSequence implements the AGO/AIF control-transfer step of §4.5: the
// target sequence symbol is resolved (scanning forward if it hasn't been
// seen yet) and the cursor repositioned to its statement. A jump from
// inside a macro-call frame stays within that macro's own body index space
// (Definition.SequenceSymbols), a separate namespace from the opencode one
// this function otherwise operates on — a macro body can't AGO/AIF out into
// its caller's source. Duplicate-definition diagnostics (W025) are raised
// here, lazily, so a sequence symbol redefined but never jumped to never
// reports anything (§8.1 property 6).
func (p *Pipeline) jumpToSequence(name ast.ID, rng ast.Range, diags diagnostics.Consumer) {
	if p.top().Kind == KindMacroCall {
		p.jumpToSequenceInMacro(name, rng, diags)
		return
	}
	seq, ok := p.Sequences.Lookup(name)
	if !ok {
		seq, ok = p.findSequenceForward(name)
	}
	if !ok {
		diags.Add(diagnostics.New(diagnostics.E067, diagnostics.SeverityError, diagnostics.ClassSemantic, rng,
			"sequence symbol .%s is never defined", name))
		return
	}
	if _, dup := p.Sequences.Use(name); dup {
		diags.Add(diagnostics.New(diagnostics.W025, diagnostics.SeverityWarning, diagnostics.ClassWarning, rng,
			"sequence symbol %s defined more than once", name))
	}
	p.line = seq.Pos.Line
	p.stmtIndex = seq.Pos.Index
	p.jumped = true
}

// jumpToSequenceInMacro resolves an AGO/AIF target against the active
// macro-call frame's own Definition.SequenceSymbols table instead of the
// opencode Sequences table.
func (p *Pipeline) jumpToSequenceInMacro(name ast.ID, rng ast.Range, diags diagnostics.Consumer) {
	f := p.top()
	idx, ok := f.Invocation.Def.SequenceSymbols[name]
	if !ok {
		diags.Add(diagnostics.New(diagnostics.E067, diagnostics.SeverityError, diagnostics.ClassSemantic, rng,
			"sequence symbol .%s is never defined in this macro", name))
		return
	}
	f.IP = idx
	p.jumped = true
}

// findSequenceForward scans ahead of the cursor's current position for a
// sequence symbol not yet defined, registering every sequence label it
// passes over along the way exactly as dispatch would (so the normal
// forward pass doesn't later re-register the same statement as a
// duplicate). It never perturbs p.line/p.stmtIndex itself; the caller only
// commits those once the target (or end of source) is found.
func (p *Pipeline) findSequenceForward(target ast.ID) (*symbols.Sequence, bool) {
	line := p.line
	idx := p.stmtIndex
	drop := diagnostics.Drop{}
	for {
		if _, ok := p.src.Line(line); !ok {
			return nil, false
		}
		ll := lexer.ReadLogicalLine(p.src, line, p.cols, false)
		toks := lexer.NewScanner(ll).ScanTokens()
		rng := ast.Range{Start: ast.Position{Line: ll.StartLine}, End: ast.Position{Line: ll.NextLine - 1}}
		pp := parser.New(toks, rng, drop)
		label, _ := pp.LookLabInstr()
		if label != nil && strings.HasPrefix(string(*label), ".") {
			name := ast.Intern(string(*label)[1:])
			if _, exists := p.Sequences.Lookup(name); !exists {
				p.Sequences.Define(name, symbols.StatementPos{Index: idx, Line: line}, rng)
			}
			if name == target {
				return p.Sequences.Lookup(name)
			}
		}
		line = ll.NextLine
		idx++
	}
}

// stripAmp normalizes a label-position variable-symbol name (scanned with
// its leading & per §4.2) down to the bare name tokenizeCAExpr's
// NodeVarSymbol references use, so a SETx target and its later &NAME
// references resolve to the same VarTable entry.
func stripAmp(id ast.ID) ast.ID {
	s := string(id)
	if len(s) > 0 && s[0] == '&' {
		return ast.ID(s[1:])
	}
	return id
}

func varTypeFor(instr string) symbols.VarType {
	switch instr {
	case "SETB":
		return symbols.VarB
	case "SETC":
		return symbols.VarC
	default:
		return symbols.VarA
	}
}

func (p *Pipeline) dispatchAsm(label *ast.ID, instr string, operands []ast.Operand, rng ast.Range, diags diagnostics.Consumer) {
	switch instr {
	case "EQU":
		if label == nil {
			return
		}
		abs := int32(0)
		if len(operands) > 0 {
			raw := tokenizeCAExpr(operands[0].Text)
			expr := caexpr.Resolve(&ast.Expr{Raw: raw, Range: operands[0].Range}, ast.KindA, diags)
			val := caexpr.Evaluate(expr, p.caEnv(), diags)
			abs = val.A
		}
		attrs := symbols.Attributes{T: 'U', L: 1, I: 1, D: true}
		p.Ordinary.Define(*label, symbols.ValueAbs, abs, "", 0, attrs, rng, diags)
	case "CSECT", "DSECT":
		p.curSection = ""
		if label != nil {
			p.curSection = *label
			p.Ordinary.Define(*label, symbols.ValueRelocatable, 0, *label, 0, symbols.Attributes{T: 'J', L: 1, D: true}, rng, diags)
		}
		p.locCounter = 0
	case "DC", "DS":
		p.dispatchDataDef(label, instr == "DC", operands, rng, diags)
	case "OPSYN":
		if label != nil && len(operands) > 0 {
			p.Opcodes.Synonym(*label, ast.Intern(operands[0].Text))
		}
	case "COPY":
		// Resolution of the logical name through internal/library is the
		// host loop's responsibility (it owns the library.Cache); this
		// pipeline only records the reference.
		if len(operands) > 0 {
			p.Ordinary.Reference(ast.Intern(operands[0].Text))
		}
	default:
		if label != nil {
			p.Ordinary.Define(*label, symbols.ValueRelocatable, 0, p.curSection, p.locCounter, symbols.Attributes{T: 'I', L: 1, D: true}, rng, diags)
		}
	}
}

func (p *Pipeline) dispatchDataDef(label *ast.ID, isDC bool, operands []ast.Operand, rng ast.Range, diags diagnostics.Consumer) {
	if len(operands) == 0 {
		return
	}
	op := datadef.ParseOperand(operands[0].Text, isDC, rng)
	attrs := datadef.Validate(op, diags)
	if label != nil {
		p.Ordinary.Define(*label, symbols.ValueRelocatable, 0, p.curSection, p.locCounter, attrs, rng, diags)
	}
	p.locCounter += attrs.L
}

func (p *Pipeline) dispatchMachine(label *ast.ID, rng ast.Range, diags diagnostics.Consumer) {
	if label != nil {
		p.Ordinary.Define(*label, symbols.ValueRelocatable, 0, p.curSection, p.locCounter, symbols.Attributes{T: 'I', L: 2, D: true}, rng, diags)
	}
	p.locCounter += 2
}

// dispatchMacroCall binds a macro invocation's actual arguments (positional,
// keyword, SYSLIST, and the name parameter from the call's own label) into a
// fresh parameter scope and pushes a KindMacroCall frame so Step starts
// replaying the definition's captured body (§3.5, §4.5 "push a macro-call
// frame").
func (p *Pipeline) dispatchMacroCall(label *ast.ID, name ast.ID, operands []ast.Operand, rng ast.Range) {
	def, ok := p.Macros[name]
	if !ok {
		return
	}
	inv := macro.NewInvocation(def, operands, rng)
	vars := symbols.NewVarTable(p.top().Vars.Globals())
	vars.DeclareParam(symbols.SysList(inv.Positional))
	for i, param := range def.PositionalParams {
		v := symbols.NewScalar(param, symbols.VarC, symbols.ScopeParam)
		if i < len(inv.Positional) {
			v.ScalarC = inv.Positional[i]
		}
		vars.DeclareParam(v)
	}
	for param, val := range inv.Keyword {
		v := symbols.NewScalar(param, symbols.VarC, symbols.ScopeParam)
		v.ScalarC = val
		vars.DeclareParam(v)
	}
	if def.NameParam != nil {
		v := symbols.NewScalar(*def.NameParam, symbols.VarC, symbols.ScopeParam)
		if label != nil {
			v.ScalarC = string(*label)
		}
		vars.DeclareParam(v)
	}
	p.frames = append(p.frames, Frame{Kind: KindMacroCall, Vars: vars, Invocation: inv})
}

// RunLookahead triggers §4.6: lookahead reads through its own
// StatementSource cursor over the same backing Source, so the scan never
// perturbs the pipeline's own line position.
func (p *Pipeline) RunLookahead(demands []lookahead.Demand) lookahead.Result {
	return lookahead.Run(&statementSource{p: p, line: p.line}, p.stmtIndex, demands, p.Ordinary, p.Opcodes)
}

// statementSource gives internal/lookahead its own forward cursor over the
// same backing Source.
type statementSource struct {
	p    *Pipeline
	line int
}

func (s *statementSource) StatementAt(i int) ([]lexer.Token, ast.Range, bool) {
	if _, ok := s.p.src.Line(s.line); !ok {
		return nil, ast.Range{}, false
	}
	ll := lexer.ReadLogicalLine(s.p.src, s.line, s.p.cols, false)
	toks := lexer.NewScanner(ll).ScanTokens()
	rng := ast.Range{Start: ast.Position{Line: ll.StartLine}, End: ast.Position{Line: ll.NextLine - 1}}
	s.line = ll.NextLine
	return toks, rng, true
}

func (p *Pipeline) caEnv() caexpr.Env { return pipelineEnv{p} }

type pipelineEnv struct{ p *Pipeline }

func (e pipelineEnv) OrdinaryAttribute(name ast.ID, attr byte) (caexpr.Value, bool) {
	sym, defined := e.p.Ordinary.Lookup(name)
	if !defined {
		e.p.RunLookahead([]lookahead.Demand{{Name: name}})
		sym, defined = e.p.Ordinary.Lookup(name)
	}
	if !defined {
		return caexpr.Value{}, false
	}
	switch attr {
	case 'L':
		return caexpr.Value{Kind: ast.KindA, A: sym.Attrs.L}, true
	case 'S':
		return caexpr.Value{Kind: ast.KindA, A: sym.Attrs.S}, true
	case 'I':
		return caexpr.Value{Kind: ast.KindA, A: sym.Attrs.I}, true
	case 'T':
		return caexpr.Value{Kind: ast.KindC, C: string(rune(sym.Attrs.T))}, true
	case 'P':
		return caexpr.Value{Kind: ast.KindC, C: sym.Attrs.P}, true
	default:
		v := sym.AbsValue
		if sym.Kind == symbols.ValueRelocatable {
			v = sym.RelOffset
		}
		return caexpr.Value{Kind: ast.KindA, A: v}, true
	}
}

func (e pipelineEnv) Variable(name ast.ID, subscript *int32) (caexpr.Value, bool) {
	v, ok := e.p.top().Vars.Lookup(name)
	if !ok {
		return caexpr.Value{}, false
	}
	if subscript != nil && len(v.Array) > 0 {
		idx := int(*subscript)
		if idx < 0 || idx >= len(v.Array) {
			return caexpr.Value{}, false
		}
		return variableValue(v.Array[idx]), true
	}
	return variableValue(*v), true
}

func variableValue(v symbols.Variable) caexpr.Value {
	switch v.Type {
	case symbols.VarB:
		return caexpr.Value{Kind: ast.KindB, B: v.ScalarB}
	case symbols.VarC:
		return caexpr.Value{Kind: ast.KindC, C: v.ScalarC}
	default:
		return caexpr.Value{Kind: ast.KindA, A: v.ScalarA}
	}
}

func (e pipelineEnv) HasLibrary(name ast.ID) bool {
	if e.p.hooks.HasLibrary == nil {
		return false
	}
	return e.p.hooks.HasLibrary(name)
}

var caKeywordOps = map[string]bool{
	"AND": true, "OR": true, "XOR": true, "NOT": true,
	"EQ": true, "NE": true, "LE": true, "LT": true, "GE": true, "GT": true,
}

// tokenizeCAExpr re-lexes one already-split operand's text into the flat
// token list internal/caexpr.Resolve expects (§4.3.1's shunting-yard input
// shape): a mix of operand nodes and bare-Op sentinel nodes for which
// isOperatorToken is true. An attr' token forms an ast.NodeAttribute over the
// symbol or &variable that follows it (§3.3, §4.3.3).
func tokenizeCAExpr(text string) []*ast.Expr {
	ll := lexer.LogicalLine{Text: text, StartLine: 0, NextLine: 1}
	toks := lexer.NewScanner(ll).ScanTokens()
	out := make([]*ast.Expr, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.Type {
		case lexer.TokenSpace, lexer.TokenEOF, lexer.TokenEOL:
			continue
		case lexer.TokenNumeric:
			n, _ := strconv.ParseInt(t.Text, 10, 32)
			out = append(out, &ast.Expr{Node: ast.NodeConstant, IntVal: int32(n), Range: t.Range})
		case lexer.TokenString:
			out = append(out, &ast.Expr{Node: ast.NodeString, StrVal: unquoteCAString(t.Text), Range: t.Range})
		case lexer.TokenAmpersand:
			if i+1 < len(toks) && toks[i+1].Type == lexer.TokenOrdSymbol {
				i++
				out = append(out, &ast.Expr{Node: ast.NodeVarSymbol, Name: ast.Intern(toks[i].Text), Range: t.Range.Union(toks[i].Range)})
			}
		case lexer.TokenAttr:
			attr, operand := attrTarget(toks, &i)
			rng := t.Range
			if operand != nil {
				rng = rng.Union(operand.Range)
			}
			out = append(out, &ast.Expr{Node: ast.NodeAttribute, Attr: attr, AttrName: operand, Range: rng})
		case lexer.TokenOrdSymbol:
			upper := strings.ToUpper(t.Text)
			if caKeywordOps[upper] {
				out = append(out, &ast.Expr{Node: ast.NodeBinary, Op: upper, Range: t.Range})
			} else {
				out = append(out, &ast.Expr{Node: ast.NodeSymbol, Name: ast.Intern(t.Text), Range: t.Range})
			}
		case lexer.TokenOperator:
			out = append(out, &ast.Expr{Node: ast.NodeBinary, Op: t.Text, Range: t.Range})
		case lexer.TokenDot:
			out = append(out, &ast.Expr{Node: ast.NodeBinary, Op: ".", Range: t.Range})
		}
	}
	return out
}

// attrTarget reads the operand of an attr' token (the letter+apostrophe
// itself is t.Text, e.g. "L'"): either a bare ordinary symbol or a &variable
// whose current value names the symbol. i is advanced past whatever operand
// tokens it consumes.
func attrTarget(toks []lexer.Token, i *int) (byte, *ast.Expr) {
	attr := toks[*i].Text[0]
	if *i+1 >= len(toks) {
		return attr, nil
	}
	switch toks[*i+1].Type {
	case lexer.TokenAmpersand:
		if *i+2 < len(toks) && toks[*i+2].Type == lexer.TokenOrdSymbol {
			amp, name := toks[*i+1], toks[*i+2]
			*i += 2
			return attr, &ast.Expr{Node: ast.NodeVarSymbol, Name: ast.Intern(name.Text), Range: amp.Range.Union(name.Range)}
		}
	case lexer.TokenOrdSymbol:
		name := toks[*i+1]
		*i++
		return attr, &ast.Expr{Node: ast.NodeSymbol, Name: ast.Intern(name.Text), Range: name.Range}
	}
	return attr, nil
}

func unquoteCAString(text string) string {
	if len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\'' {
		text = text[1 : len(text)-1]
	}
	return strings.ReplaceAll(text, "''", "'")
}
