// Package caexpr implements the conditional-assembly expression engine of
// §4.3: operator resolution (shunting-yard under an expected kind), type
// conversions, built-in functions, and substring semantics.
package caexpr

// MaxStrSize is the maximum byte length of any intermediate CA string
// value (§3.3, §4.3.4, §8.1 property 4).
const MaxStrSize = 4064

// arithPrecedence gives the binding priority for arithmetic-context binary
// operators; lower number binds looser (matches §3.3's "precedence 0 is
// loosest" framing for FIND/INDEX).
var arithPrecedence = map[string]int{
	"FIND": 0, "INDEX": 0,
	"AND": 2, "OR": 2, "XOR": 2, "AND NOT": 2, "OR NOT": 2, "XOR NOT": 2,
	"SLA": 3, "SLL": 3, "SRA": 3, "SRL": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5,
}

// boolPrecedence gives the binding priority for boolean-context binary
// operators.
var boolPrecedence = map[string]int{
	"EQ": 0, "NE": 0, "LE": 0, "LT": 0, "GE": 0, "GT": 0,
	"AND": 2, "AND NOT": 2,
	"OR": 3, "OR NOT": 3,
	"XOR": 4, "XOR NOT": 4,
}

// rightAssociative lists operators that associate right-to-left; per §3.3
// none of the listed operators do, so it is empty. resolveFlatList does not
// consult it: every binary operator is folded left-to-right.
var rightAssociative = map[string]bool{}

func precedenceOf(kind precKind, op string) (int, bool) {
	switch kind {
	case precArith:
		p, ok := arithPrecedence[op]
		return p, ok
	case precBool:
		p, ok := boolPrecedence[op]
		return p, ok
	default:
		return 0, false
	}
}

type precKind uint8

const (
	precArith precKind = iota
	precBool
)
