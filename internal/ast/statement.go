package ast

// OpcodeClass classifies a resolved instruction/macro name.
type OpcodeClass uint8

const (
	OpUndefined OpcodeClass = iota
	OpCAInstr
	OpAsmInstr
	OpMachineInstr
	OpMnemonic
	OpMacroInvocation
)

// OpcodeTag is the resolved opcode classification carried by every
// statement, independent of its form (complete/deferred/rebuilt).
type OpcodeTag struct {
	Class OpcodeClass
	Name  ID
}

// StmtForm tags which of the three statement shapes (§3.2) a Statement is.
type StmtForm uint8

const (
	FormComplete StmtForm = iota
	FormDeferred
	FormRebuilt
)

// Operand is a parsed operand in a complete statement. Concrete operand
// shapes (machine, assembler, data-definition, CA) are carried in the Expr
// field for expression-like operands, or in Text/SubOperands for
// compound/positional ones; which is populated depends on the governing
// operand-rule (§4.2), which the caller selects and Operand does not record.
type Operand struct {
	Range      Range
	Text       string
	Expr       *Expr
	SubOperands []Operand
}

// Statement is the tagged union of §3.2: complete, deferred, or rebuilt.
type Statement struct {
	Form StmtForm

	// Common to all forms.
	Range Range
	Tag   OpcodeTag

	// FormComplete
	Label    *ID
	LabelRng Range
	Instr    string
	Operands []Operand
	Remark   string

	// FormDeferred: operand field preserved verbatim because the current
	// processing kind doesn't justify parsing it (lookahead, copy/macro
	// definition capture).
	DeferredText string

	// FormRebuilt: same logical statement as Base, but with model-statement
	// substitution applied to the label and/or operand fields.
	Base               *Statement
	OverriddenLabel    *ID
	OverriddenOperands []Operand

	// EvaluatedFromModel is true when this statement's text contained
	// variable references that were substituted before reparse (§4.5).
	EvaluatedFromModel bool
}

// EffectiveLabel returns the label in effect after any rebuild override.
func (s *Statement) EffectiveLabel() *ID {
	if s.Form == FormRebuilt && s.OverriddenLabel != nil {
		return s.OverriddenLabel
	}
	if s.Form == FormRebuilt {
		return s.Base.EffectiveLabel()
	}
	return s.Label
}

// EffectiveOperands returns the operands in effect after any rebuild
// override.
func (s *Statement) EffectiveOperands() []Operand {
	if s.Form == FormRebuilt {
		if s.OverriddenOperands != nil {
			return s.OverriddenOperands
		}
		return s.Base.EffectiveOperands()
	}
	return s.Operands
}
