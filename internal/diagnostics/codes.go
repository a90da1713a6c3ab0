package diagnostics

// Stable diagnostic codes (§6.3). The groups (A###, D###, E###, CE###,
// I###, M###, S/W misc) are documented to keep the surface stable. Most
// named codes are emitted by this implementation; CW001, E066, M003 and
// W011 are named but never produced.

const (
	// CE### — conditional assembly errors.
	CE001 = "CE001" // malformed expression
	CE004 = "CE004" // expression kind mismatch (char where arithmetic expected, etc.)
	CE007 = "CE007" // function argument out of range / empty input
	CE009 = "CE009" // substring start out of range
	CE010 = "CE010" // negative duplication factor
	CE011 = "CE011" // string exceeds MAX_STR_SIZE (4064 bytes)
	CE015 = "CE015" // undefined function / operator
	CE016 = "CE016" // division by zero / arithmetic overflow
	CW001 = "CW001" // CA warning (non-fatal)

	// D### — data-definition errors.
	D007 = "D007" // bit length used with a type that forbids it
	D008 = "D008" // modifier out of [min,max] bounds
	D009 = "D009" // modifier forbidden for this type, or nonzero where ignored
	D011 = "D011" // negative duplication factor
	D016 = "D016" // missing required nominal value
	D025 = "D025" // zero value tolerated where modifier is "ignored" (warning)
	D028 = "D028" // total length exceeds (2^31-1) bits

	// E### — evaluation / ordinary-symbol errors.
	E010 = "E010" // duplicate symbol definition
	E065 = "E065" // undefined variable symbol referenced
	E066 = "E066" // symbol defined with conflicting attributes
	E067 = "E067" // AGO/AIF target sequence symbol never defined

	// A### — assembler instruction operand errors.
	A132 = "A132" // EQU operand shape unsupported for attribute extraction (warning, symbol stays defined)

	// M### — machine instruction operand errors.
	M003 = "M003" // wrong operand count / format for machine instruction

	// misc
	S100 = "S100" // internal/fatal: unrecoverable parser state
	W011 = "W011" // deprecated/discouraged construct
	W013 = "W013" // attribute of undefined symbol used in T'/D' query, default returned
	W025 = "W025" // sequence symbol defined more than once in scope (only raised if used)
)
