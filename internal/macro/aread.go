package macro

import "hlasmcore/internal/lexer"

// AreadSource supplies the raw physical lines AREAD consumes, independent
// of the governing ICTL columns (AREAD always reads in "unlimited-line"
// mode per §4.1, since the macro is taking raw text, not a statement to be
// column-parsed).
type AreadSource interface {
	lexer.LineSource
}

// Aread reads one raw physical line for an AREAD instruction and returns it
// verbatim, advancing nextLine. The "NOSTMT"/"STMT" format distinction
// (whether the returned text is padded to a full card image) is handled by
// the caller via padTo80.
func Aread(src AreadSource, line int, padTo80 bool) (text string, nextLine int, ok bool) {
	raw, found := src.Line(line)
	if !found {
		return "", line, false
	}
	if padTo80 {
		for len(raw) < 80 {
			raw += " "
		}
	}
	return raw, line + 1, true
}
