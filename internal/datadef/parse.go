package datadef

import (
	"strconv"

	"hlasmcore/internal/ast"
)

// ParseOperand splits one DC/DS operand's raw text into duplication factor,
// type key, length/scale/exponent modifiers and nominal value (§4.4's
// operand grammar: [dup]type[L[.]n][Sn][En]['nominal']). The type key is
// resolved against the known descriptor table by longest match first, since
// a run like "CL" is type "C" plus an "L" length modifier, not a two-letter
// type.
func ParseOperand(text string, isDC bool, rng ast.Range) Operand {
	op := Operand{IsDC: isDC, DupFactor: 1, Range: rng}

	i := 0
	digitsEnd := i
	for digitsEnd < len(text) && text[digitsEnd] >= '0' && text[digitsEnd] <= '9' {
		digitsEnd++
	}
	if digitsEnd > i {
		if n, err := strconv.ParseInt(text[i:digitsEnd], 10, 32); err == nil {
			op.DupFactor = int32(n)
		}
		i = digitsEnd
	}

	alphaEnd := i
	for alphaEnd < len(text) && isAlpha(text[alphaEnd]) {
		alphaEnd++
	}
	typeKey := text[i:alphaEnd]
	if alphaEnd-i >= 2 {
		if _, ok := Lookup(text[i : i+2]); ok {
			typeKey = text[i : i+2]
		} else if _, ok := Lookup(text[i : i+1]); ok {
			typeKey = text[i : i+1]
		}
	}
	op.TypeKey = typeKey
	i += len(typeKey)

	for i < len(text) && text[i] != '\'' {
		switch text[i] {
		case 'L', 'l':
			i++
			n, bits, next := parseModifier(text, i)
			op.HasLength, op.Length, op.LengthIsBits = true, n, bits
			i = next
		case 'S', 's':
			i++
			n, _, next := parseModifier(text, i)
			op.HasScale, op.Scale = true, n
			i = next
		case 'E', 'e':
			i++
			n, _, next := parseModifier(text, i)
			op.HasExponent, op.Exponent = true, n
			i = next
		default:
			// Unrecognized modifier letter (or stray punctuation before the
			// nominal quote); skip it rather than loop forever.
			i++
		}
	}

	if i < len(text) && text[i] == '\'' {
		end := len(text) - 1
		if end > i {
			op.HasNominal = true
			op.NominalText = text[i+1 : end]
		}
	}
	return op
}

// parseModifier reads an optional "." bit-length marker followed by a
// decimal run starting at i, returning the parsed value, whether it was a
// bit length, and the index just past what it consumed.
func parseModifier(text string, i int) (value int32, isBits bool, next int) {
	if i < len(text) && text[i] == '.' {
		isBits = true
		i++
	}
	start := i
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if n, err := strconv.ParseInt(text[start:i], 10, 32); err == nil {
		value = int32(n)
	}
	return value, isBits, i
}

func isAlpha(c byte) bool { return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' }

// impliedScale counts the fractional digits of a packed/zoned nominal value
// that carries no explicit S modifier, e.g. "-12.34" implies scale 2.
func impliedScale(nominal string) int32 {
	dot := -1
	for i := 0; i < len(nominal); i++ {
		if nominal[i] == '.' {
			dot = i
			break
		}
	}
	if dot < 0 {
		return 0
	}
	var digits int32
	for i := dot + 1; i < len(nominal); i++ {
		c := nominal[i]
		if c < '0' || c > '9' {
			break
		}
		digits++
	}
	return digits
}
