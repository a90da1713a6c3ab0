package datadef

import (
	"strconv"
	"strings"

	mewfloat64 "github.com/mewmew/float/float64"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
)

// validateFixedPointLiteral checks one comma-separated run of an H/F/FD
// nominal value: an optional sign, digits, an optional fraction, and an
// optional exponent ("E"|"e" sign? digits).
func validateFixedPointLiteral(text string, diags diagnostics.Consumer, rng ast.Range) {
	for _, run := range strings.Split(text, ",") {
		run = strings.TrimSpace(run)
		if run == "" {
			diags.Add(diagnostics.New(diagnostics.D016, diagnostics.SeverityError, diagnostics.ClassSemantic, rng,
				"empty fixed-point nominal value"))
			continue
		}
		if _, err := strconv.ParseFloat(normalizeExponent(run), 64); err != nil {
			diags.Add(diagnostics.New(diagnostics.D009, diagnostics.SeverityError, diagnostics.ClassSemantic, rng,
				"invalid fixed-point literal %q", run))
		}
	}
}

// validateFloatingLiteral checks one comma-separated run of an E/D/L (or
// EH/DH/LH rounding-mode) nominal value. Decimal literals are parsed with
// correctly-rounded decimal-to-binary conversion rather than strconv's
// approximate rounding, since the assembler's listing reports the exact
// stored bit pattern.
func validateFloatingLiteral(typeKey, text string, diags diagnostics.Consumer, rng ast.Range) {
	for _, run := range strings.Split(text, ",") {
		run = strings.TrimSpace(run)
		if run == "" {
			diags.Add(diagnostics.New(diagnostics.D016, diagnostics.SeverityError, diagnostics.ClassSemantic, rng,
				"empty floating-point nominal value"))
			continue
		}
		if isSpecialFloatForm(run) {
			continue
		}
		if _, _, err := mewfloat64.NewFromString(normalizeExponent(run)); err != nil {
			diags.Add(diagnostics.New(diagnostics.D009, diagnostics.SeverityError, diagnostics.ClassSemantic, rng,
				"invalid %s floating-point literal %q", typeKey, run))
		}
	}
}

// isSpecialFloatForm recognizes the "(NAN)", "(INF)", "(SNAN)" special
// nominal-value forms HLASM accepts for E/D/L types in place of a decimal
// literal.
func isSpecialFloatForm(run string) bool {
	if !strings.HasPrefix(run, "(") || !strings.HasSuffix(run, ")") {
		return false
	}
	switch strings.ToUpper(strings.Trim(run, "()+-")) {
	case "NAN", "SNAN", "INF", "MAX", "MIN":
		return true
	default:
		return false
	}
}

func normalizeExponent(s string) string {
	r := strings.NewReplacer("D", "E", "d", "e")
	return r.Replace(s)
}
