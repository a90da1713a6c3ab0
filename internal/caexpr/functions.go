package caexpr

import (
	"strconv"
	"strings"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/ebcdic"
)

// builtinArgKinds records the expected kind of each positional argument for
// every built-in (§3.3, §4.3.3). Functions not listed default their
// arguments to KindC.
var builtinArgKinds = map[string][]ast.ExprKind{
	"A2B": {ast.KindA}, "A2C": {ast.KindA}, "A2D": {ast.KindA}, "A2X": {ast.KindA},
	"B2A": {ast.KindC}, "B2C": {ast.KindC}, "B2D": {ast.KindC}, "B2X": {ast.KindC},
	"BYTE": {ast.KindA},
	"C2A": {ast.KindC}, "C2B": {ast.KindC}, "C2D": {ast.KindC}, "C2X": {ast.KindC},
	"D2A": {ast.KindC}, "D2B": {ast.KindC}, "D2C": {ast.KindC}, "D2X": {ast.KindC},
	"DCLEN": {ast.KindC}, "DCVAL": {ast.KindC}, "DEQUOTE": {ast.KindC},
	"DOUBLE": {ast.KindC}, "LOWER": {ast.KindC}, "UPPER": {ast.KindC},
	"FIND": {ast.KindC, ast.KindC}, "INDEX": {ast.KindC, ast.KindC},
	"ISBIN": {ast.KindC}, "ISDEC": {ast.KindC}, "ISHEX": {ast.KindC}, "ISSYM": {ast.KindC},
	"SIGNED": {ast.KindA},
	"SYSATTRA": {ast.KindC}, "SYSATTRP": {ast.KindC},
	"X2A": {ast.KindC}, "X2B": {ast.KindC}, "X2C": {ast.KindC}, "X2D": {ast.KindC},
}

var builtinNames = func() map[string]bool {
	m := make(map[string]bool, len(builtinArgKinds))
	for name := range builtinArgKinds {
		m[name] = true
	}
	return m
}()

// IsBuiltin reports whether name is a known CA built-in function.
func IsBuiltin(name string) bool { return builtinNames[strings.ToUpper(name)] }

// ReturnKind is the CA kind a built-in call produces.
func ReturnKind(fn string) ast.ExprKind {
	switch strings.ToUpper(fn) {
	case "A2B", "A2C", "A2X", "B2C", "D2C", "X2C", "DEQUOTE", "DOUBLE", "LOWER", "UPPER",
		"A2D", "C2B", "C2X", "B2X", "D2B", "D2X", "SIGNED":
		return ast.KindC
	case "B2A", "C2A", "D2A", "X2A", "B2D", "C2D", "X2D", "FIND", "INDEX", "DCLEN":
		return ast.KindA
	case "ISBIN", "ISDEC", "ISHEX", "ISSYM":
		return ast.KindA // 0/1 predicate, still arithmetic
	case "BYTE":
		return ast.KindC
	case "SYSATTRA":
		return ast.KindA
	case "SYSATTRP":
		return ast.KindC
	case "DCVAL":
		return ast.KindA
	}
	return ast.KindC
}

// callError is a sentinel the evaluator maps to a diagnostic code.
type callError struct {
	code string
	msg  string
}

func (e *callError) Error() string { return e.msg }

// CallBuiltin evaluates one built-in function call against already
// evaluated argument values. It returns the result value plus an error
// carrying the diagnostic code to raise, or nil on success.
func CallBuiltin(fn string, args []Value) (Value, *callError) {
	fn = strings.ToUpper(fn)
	switch fn {
	case "A2B":
		return Value{Kind: ast.KindC, C: toBinaryString(uint32(args[0].A), 32)}, nil
	case "A2C":
		return Value{Kind: ast.KindC, C: int32ToChar(args[0].A)}, nil
	case "A2D":
		return Value{Kind: ast.KindC, C: signedDecimal(args[0].A, true)}, nil
	case "A2X":
		return Value{Kind: ast.KindC, C: strconv.FormatUint(uint64(uint32(args[0].A)), 16)}, nil

	case "B2A":
		v, err := fromBinaryString(args[0].C, 32)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ast.KindA, A: v}, nil
	case "B2C":
		v, err := fromBinaryString(args[0].C, 32)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ast.KindC, C: int32ToChar(v)}, nil
	case "B2D":
		v, err := fromBinaryString(args[0].C, 32)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ast.KindA, A: v}, nil
	case "B2X":
		v, err := fromBinaryString(args[0].C, 32)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ast.KindC, C: strconv.FormatUint(uint64(uint32(v)), 16)}, nil

	case "BYTE":
		n := args[0].A
		if n < 0 || n > 255 {
			return Value{}, &callError{code: "CE007", msg: "BYTE argument out of range [0,255]"}
		}
		return Value{Kind: ast.KindC, C: string(ebcdic.Char(byte(n)))}, nil

	case "C2A":
		if len(args[0].C) > 4 {
			return Value{}, &callError{code: "CE007", msg: "C2A argument longer than 4 characters"}
		}
		return Value{Kind: ast.KindA, A: charToInt32(args[0].C)}, nil
	case "C2B":
		return Value{Kind: ast.KindC, C: charToBinary(args[0].C)}, nil
	case "C2D":
		return Value{Kind: ast.KindA, A: charToInt32(args[0].C)}, nil
	case "C2X":
		return Value{Kind: ast.KindC, C: charToHex(args[0].C)}, nil

	case "D2A":
		n, ok := parseDecimal(args[0].C)
		if !ok {
			return Value{}, &callError{code: "CE007", msg: "D2A argument is not a decimal number"}
		}
		return Value{Kind: ast.KindA, A: n}, nil
	case "D2B":
		n, ok := parseDecimal(args[0].C)
		if !ok {
			return Value{}, &callError{code: "CE007", msg: "D2B argument is not a decimal number"}
		}
		return Value{Kind: ast.KindC, C: toBinaryString(uint32(n), 32)}, nil
	case "D2C":
		n, ok := parseDecimal(args[0].C)
		if !ok {
			return Value{}, &callError{code: "CE007", msg: "D2C argument is not a decimal number"}
		}
		return Value{Kind: ast.KindC, C: int32ToChar(n)}, nil
	case "D2X":
		n, ok := parseDecimal(args[0].C)
		if !ok {
			return Value{}, &callError{code: "CE007", msg: "D2X argument is not a decimal number"}
		}
		return Value{Kind: ast.KindC, C: strconv.FormatUint(uint64(uint32(n)), 16)}, nil
	case "DCLEN":
		return Value{Kind: ast.KindA, A: int32(len(unDouble(args[0].C)))}, nil
	case "DCVAL":
		return Value{Kind: ast.KindA, A: int32(len(dequote(args[0].C)))}, nil
	case "DEQUOTE":
		return Value{Kind: ast.KindC, C: dequote(args[0].C)}, nil
	case "DOUBLE":
		return Value{Kind: ast.KindC, C: doubleQuotes(args[0].C)}, nil
	case "LOWER":
		return Value{Kind: ast.KindC, C: strings.ToLower(args[0].C)}, nil
	case "UPPER":
		return Value{Kind: ast.KindC, C: strings.ToUpper(args[0].C)}, nil

	case "FIND":
		return Value{Kind: ast.KindA, A: find(args[0].C, args[1].C)}, nil
	case "INDEX":
		return Value{Kind: ast.KindA, A: index(args[0].C, args[1].C)}, nil

	case "ISBIN":
		return predicate(isAllOf(args[0].C, "01"))
	case "ISDEC":
		if args[0].C == "" {
			return Value{}, &callError{code: "CE007", msg: "ISDEC argument is empty"}
		}
		_, ok := parseDecimal(args[0].C)
		return predicate(ok)
	case "ISHEX":
		return predicate(isAllOf(strings.ToUpper(args[0].C), "0123456789ABCDEF"))
	case "ISSYM":
		return predicate(isSymbol(args[0].C))

	case "SIGNED":
		return Value{Kind: ast.KindC, C: signedDecimal(args[0].A, false)}, nil

	case "SYSATTRA":
		return Value{Kind: ast.KindA, A: 0}, nil
	case "SYSATTRP":
		return Value{Kind: ast.KindC, C: ""}, nil

	case "X2A":
		if len(args[0].C) > 8 {
			return Value{}, &callError{code: "CE007", msg: "X2A argument longer than 8 hex digits"}
		}
		n, ok := parseHex32(args[0].C)
		if !ok {
			return Value{}, &callError{code: "CE007", msg: "X2A argument is not hexadecimal"}
		}
		return Value{Kind: ast.KindA, A: n}, nil
	case "X2B":
		n, ok := parseHex32(args[0].C)
		if !ok {
			return Value{}, &callError{code: "CE007", msg: "X2B argument is not hexadecimal"}
		}
		return Value{Kind: ast.KindC, C: toBinaryString(uint32(n), len(args[0].C)*4)}, nil
	case "X2C":
		return Value{Kind: ast.KindC, C: hexToChar(args[0].C)}, nil
	case "X2D":
		n, ok := parseHex32(args[0].C)
		if !ok {
			return Value{}, &callError{code: "CE007", msg: "X2D argument is not hexadecimal"}
		}
		return Value{Kind: ast.KindA, A: n}, nil
	}
	return Value{}, &callError{code: "CE015", msg: "undefined function " + fn}
}

func predicate(b bool) (Value, *callError) {
	if b {
		return Value{Kind: ast.KindA, A: 1}, nil
	}
	return Value{Kind: ast.KindA, A: 0}, nil
}

func isAllOf(s, alphabet string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(alphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

func isSymbol(s string) bool {
	if s == "" || len(s) > ast.MaxIdentLen {
		return false
	}
	if !ast.ValidIdentStart(s[0]) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !ast.IsIdentChar(s[i]) {
			return false
		}
	}
	return true
}

func unDouble(s string) string {
	s = strings.ReplaceAll(s, "''", "'")
	s = strings.ReplaceAll(s, "&&", "&")
	return s
}

func doubleQuotes(s string) string {
	s = strings.ReplaceAll(s, "'", "''")
	s = strings.ReplaceAll(s, "&", "&&")
	return s
}

func dequote(s string) string {
	if len(s) >= 1 && s[0] == '\'' {
		s = s[1:]
	}
	if len(s) >= 1 && s[len(s)-1] == '\'' {
		s = s[:len(s)-1]
	}
	return s
}

func find(a, b string) int32 {
	set := map[byte]bool{}
	for i := 0; i < len(b); i++ {
		set[b[i]] = true
	}
	for i := 0; i < len(a); i++ {
		if set[a[i]] {
			return int32(i + 1)
		}
	}
	return 0
}

func index(a, b string) int32 {
	i := strings.Index(a, b)
	if i < 0 {
		return 0
	}
	return int32(i + 1)
}

func toBinaryString(v uint32, bits int) string {
	s := strconv.FormatUint(uint64(v), 2)
	for len(s) < bits {
		s = "0" + s
	}
	if len(s) > bits {
		s = s[len(s)-bits:]
	}
	return s
}

func fromBinaryString(s string, bits int) (int32, *callError) {
	if len(s) == 0 || len(s) > 32 {
		return 0, &callError{code: "CE007", msg: "binary string length out of range"}
	}
	v, err := strconv.ParseUint(s, 2, 64)
	if err != nil {
		return 0, &callError{code: "CE007", msg: "not a binary string"}
	}
	return int32(uint32(v)), nil
}

func parseHex32(s string) (int32, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, false
	}
	return int32(uint32(v)), true
}

func parseDecimal(s string) (int32, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return int32(v), true
}

func signedDecimal(v int32, forceSign bool) string {
	if v < 0 {
		return "-" + strconv.FormatInt(int64(-int64(v)), 10)
	}
	if forceSign {
		return "+" + strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatInt(int64(v), 10)
}

func int32ToChar(v int32) string {
	b := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	return ebcdic.FromEBCDIC(b)
}

func charToInt32(s string) int32 {
	b := ebcdic.ToEBCDIC(s)
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return int32(v)
}

func charToBinary(s string) string {
	b := ebcdic.ToEBCDIC(s)
	var sb strings.Builder
	for _, c := range b {
		sb.WriteString(toBinaryString(uint32(c), 8))
	}
	return sb.String()
}

func charToHex(s string) string {
	b := ebcdic.ToEBCDIC(s)
	var sb strings.Builder
	for _, c := range b {
		sb.WriteString(strconv.FormatUint(uint64(c), 16))
	}
	return sb.String()
}

func hexToChar(s string) string {
	if len(s)%2 != 0 {
		s = "0" + s
	}
	out := make([]byte, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		v, err := strconv.ParseUint(s[i:i+2], 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return ebcdic.FromEBCDIC(out)
}
