package lexer

import (
	"strconv"
	"strings"
)

// ParseICTL parses the operand list of an ICTL statement ("begin,end,continue",
// trailing fields optional) into a Columns override. Only the first
// statement of a source may be ICTL (§4.1); callers are responsible for that
// restriction.
func ParseICTL(operands string) (Columns, bool) {
	cols := DefaultColumns
	fields := strings.Split(operands, ",")
	if len(fields) == 0 || strings.TrimSpace(fields[0]) == "" {
		return cols, false
	}
	vals := make([]int, 0, 3)
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			vals = append(vals, 0)
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return cols, false
		}
		vals = append(vals, n)
	}
	if len(vals) > 0 && vals[0] != 0 {
		cols.Begin = vals[0]
	}
	if len(vals) > 1 && vals[1] != 0 {
		cols.End = vals[1]
	}
	if len(vals) > 2 && vals[2] != 0 {
		cols.Continue = vals[2]
	}
	return cols, true
}
