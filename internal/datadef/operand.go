package datadef

import (
	"strings"

	"modernc.org/mathutil"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
	"hlasmcore/internal/symbols"
)

// Operand is one DC/DS operand as handed to validation, after the parser
// has split duplication factor / type / modifiers / nominal value but
// before any semantic checking (§4.4 validation sequence).
type Operand struct {
	IsDC bool // true for DC, false for DS

	DupFactor int32

	TypeKey string // e.g. "C", "CU", "FD", "EH"

	HasLength    bool
	Length       int32
	LengthIsBits bool

	HasScale bool
	Scale    int32

	HasExponent bool
	Exponent    int32

	HasNominal   bool
	NominalText  string // string-shaped nominal (B/C/X/Z/P/H/F/L/E/D)
	NominalExprN int     // count of expressions for A/Y/S/Q/V/R/J shaped nominal

	Range ast.Range
}

const maxTotalBits = int64(1)<<31 - 1

// Validate runs the seven-step validation sequence of §4.4 and returns the
// resulting ordinary-symbol attributes plus any diagnostics. diags is a
// diagnostics.Consumer so lookahead mode (which installs Drop) suppresses
// spurious findings automatically.
func Validate(op Operand, diags diagnostics.Consumer) symbols.Attributes {
	desc, ok := Lookup(op.TypeKey)
	if !ok {
		diags.Add(diagnostics.New("D009", diagnostics.SeverityError, diagnostics.ClassSemantic, op.Range,
			"unknown data definition type %s", op.TypeKey))
		return symbols.DefaultAttributes
	}

	// 1. Duplication factor >= 0.
	if op.DupFactor < 0 {
		diags.Add(diagnostics.New(diagnostics.D011, diagnostics.SeverityError, diagnostics.ClassSemantic, op.Range,
			"negative duplication factor"))
	}

	// 2. Length modifier against bit- vs byte-length bounds.
	lengthBound := desc.LengthDC
	if !op.IsDC {
		lengthBound = desc.LengthDS
	}
	if op.HasLength {
		if op.LengthIsBits && !desc.AllowsBitLen {
			diags.Add(diagnostics.New(diagnostics.D007, diagnostics.SeverityError, diagnostics.ClassSemantic, op.Range,
				"bit length not allowed for type %s", op.TypeKey))
		} else {
			checkBound(op.Length, lengthBound, op.Range, diags)
		}
	}

	// 3. Scale and exponent against bounds.
	if op.HasScale {
		checkBound(op.Scale, desc.ScaleBound, op.Range, diags)
	}
	if op.HasExponent {
		checkBound(op.Exponent, desc.ExponentBound, op.Range, diags)
	}

	// 4. Nominal-value presence.
	if op.IsDC && !op.HasNominal && op.DupFactor != 0 {
		diags.Add(diagnostics.New(diagnostics.D016, diagnostics.SeverityError, diagnostics.ClassSemantic, op.Range,
			"DC operand requires a nominal value"))
	}

	// 5+6. Shape and per-type content validation.
	var contentLen int32
	if op.HasNominal {
		contentLen = validateContent(op, desc, diags)
	}

	// Implied scale: a packed/zoned nominal with no explicit S modifier
	// carries its scale in its own fractional-digit count (e.g. PL3'-12.34'
	// is S=2 without ever writing "S2").
	if !op.HasScale && op.HasNominal && (op.TypeKey == "P" || op.TypeKey == "Z") {
		op.Scale = impliedScale(op.NominalText)
		op.HasScale = true
	}

	attrs := computeAttributes(op, desc, contentLen)

	// 7. Total length bound.
	dup := int32(mathutil.Max(int(op.DupFactor), 1))
	totalBits := int64(attrs.L) * 8 * int64(dup)
	if totalBits >= maxTotalBits {
		diags.Add(diagnostics.New(diagnostics.D028, diagnostics.SeverityError, diagnostics.ClassSemantic, op.Range,
			"total length exceeds maximum of (2^31-1) bits"))
	}

	return attrs
}

func checkBound(v int32, b Bound, rng ast.Range, diags diagnostics.Consumer) {
	switch {
	case b.NoCheck:
		return
	case b.Forbidden:
		diags.Add(diagnostics.New(diagnostics.D009, diagnostics.SeverityError, diagnostics.ClassSemantic, rng,
			"modifier not allowed for this type"))
	case b.Ignored:
		if v != 0 {
			diags.Add(diagnostics.New(diagnostics.D009, diagnostics.SeverityError, diagnostics.ClassSemantic, rng,
				"nonzero value not allowed for this type's modifier"))
		} else {
			diags.Add(diagnostics.New(diagnostics.D025, diagnostics.SeverityWarning, diagnostics.ClassWarning, rng,
				"modifier is ignored for this type"))
		}
	default:
		if v < b.Min || v > b.Max {
			diags.Add(diagnostics.New(diagnostics.D008, diagnostics.SeverityError, diagnostics.ClassSemantic, rng,
				"modifier %d out of range [%d,%d]", v, b.Min, b.Max))
		}
	}
}

// validateContent runs the per-type content rules (§4.4, non-exhaustive
// list) and returns the "as needed" length in bytes the nominal value
// implies, used when no explicit length modifier was given.
func validateContent(op Operand, desc *Descriptor, diags diagnostics.Consumer) int32 {
	switch op.TypeKey {
	case "B":
		return validateBinaryString(op, diags)
	case "C", "CA", "CE":
		return int32(len([]rune(op.NominalText)))
	case "CU":
		if len(op.NominalText)%2 != 0 {
			diags.Add(diagnostics.New(diagnostics.D009, diagnostics.SeverityError, diagnostics.ClassSemantic, op.Range,
				"CU nominal value must have even byte length"))
		}
		return int32(len([]rune(op.NominalText)) * 2)
	case "G":
		content := stripShiftMarkers(op.NominalText)
		if len(content)%2 != 0 {
			diags.Add(diagnostics.New(diagnostics.D009, diagnostics.SeverityError, diagnostics.ClassSemantic, op.Range,
				"G nominal value must have even byte length"))
		}
		return int32(len(content))
	case "X":
		return validateHexString(op, diags)
	case "H", "F", "FD":
		validateFixedPointLiteral(op.NominalText, diags, op.Range)
		return desc.ImplicitLen.Fixed
	case "P":
		digits := countPackedDigits(op.NominalText, diags, op.Range)
		return (digits + 2) / 2
	case "Z":
		digits := countPackedDigits(op.NominalText, diags, op.Range)
		return digits
	case "E", "D", "L", "EH", "DH", "LH":
		validateFloatingLiteral(op.TypeKey, op.NominalText, diags, op.Range)
		return desc.ImplicitLen.Fixed
	default:
		return desc.ImplicitLen.Fixed
	}
}

func validateBinaryString(op Operand, diags diagnostics.Consumer) int32 {
	bits := 0
	for _, run := range strings.Split(op.NominalText, ",") {
		run = strings.ReplaceAll(run, " ", "")
		for _, c := range run {
			if c != '0' && c != '1' {
				diags.Add(diagnostics.New(diagnostics.D009, diagnostics.SeverityError, diagnostics.ClassSemantic, op.Range,
					"B nominal value must contain only 0/1 digits"))
				break
			}
		}
		bits += len(run)
		if rem := len(run) % 8; rem != 0 {
			bits += 8 - rem
		}
	}
	return int32((bits + 7) / 8)
}

func validateHexString(op Operand, diags diagnostics.Consumer) int32 {
	bytesLen := 0
	for _, run := range strings.Split(op.NominalText, ",") {
		if len(run)%2 != 0 {
			diags.Add(diagnostics.New(diagnostics.D009, diagnostics.SeverityError, diagnostics.ClassSemantic, op.Range,
				"X nominal value run must have an even number of hex digits"))
		}
		for _, c := range strings.ToUpper(run) {
			if !strings.ContainsRune("0123456789ABCDEF", c) {
				diags.Add(diagnostics.New(diagnostics.D009, diagnostics.SeverityError, diagnostics.ClassSemantic, op.Range,
					"X nominal value must be hexadecimal"))
				break
			}
		}
		bytesLen += (len(run) + 1) / 2
	}
	return int32(bytesLen)
}

func stripShiftMarkers(s string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}

func countPackedDigits(s string, diags diagnostics.Consumer, rng ast.Range) int32 {
	digits := int32(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			digits++
		} else if c == '.' || c == '+' || c == '-' {
			continue
		} else {
			diags.Add(diagnostics.New(diagnostics.D009, diagnostics.SeverityError, diagnostics.ClassSemantic, rng,
				"invalid character %q in packed/zoned nominal value", c))
		}
	}
	if digits == 0 {
		diags.Add(diagnostics.New(diagnostics.D016, diagnostics.SeverityError, diagnostics.ClassSemantic, rng,
			"packed/zoned nominal value has no digits"))
	}
	return digits
}

// computeAttributes implements §4.4's "Attribute computation" rules.
func computeAttributes(op Operand, desc *Descriptor, contentLen int32) symbols.Attributes {
	attrs := symbols.Attributes{T: desc.TypeChar, D: true}

	switch {
	case op.HasLength:
		l := op.Length
		if op.LengthIsBits {
			l = (l + 7) / 8
		}
		attrs.L = l
	case desc.ImplicitLen.AsNeeded:
		attrs.L = contentLen
	default:
		attrs.L = desc.ImplicitLen.Fixed
	}
	if attrs.L == 0 {
		attrs.L = 1
	}

	if op.HasScale {
		attrs.S = op.Scale
	}

	switch op.TypeKey {
	case "H", "F", "FD":
		attrs.I = 8*attrs.L - attrs.S - 1
	case "P":
		attrs.I = 2*attrs.L - attrs.S - 1
	case "Z":
		attrs.I = attrs.L - attrs.S
	case "E", "D", "L":
		extra := int32(0)
		if attrs.L > 8 {
			extra = 2
		}
		attrs.I = 2*(attrs.L-1) - attrs.S - extra
	default:
		attrs.I = attrs.L
	}
	return attrs
}
