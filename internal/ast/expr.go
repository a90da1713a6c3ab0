package ast

// ExprKind is the CA sub-language an expression node belongs to. It starts
// as KindUndef at parse time and is promoted exactly once by
// resolve_expression_tree; see internal/caexpr.Resolve.
type ExprKind uint8

const (
	KindUndef ExprKind = iota
	KindA              // arithmetic (i32)
	KindB              // boolean
	KindC              // character
)

func (k ExprKind) String() string {
	switch k {
	case KindA:
		return "A"
	case KindB:
		return "B"
	case KindC:
		return "C"
	default:
		return "UNDEF"
	}
}

// NodeKind tags which shape an Expr node has. Rather than an inheritance
// hierarchy (one Go type per node shape), the whole CA expression language
// is represented as this single sum type; a switch over Kind/NodeKind
// plays the role the source's visitor classes played.
type NodeKind uint8

const (
	NodeConstant    NodeKind = iota // integer/bool literal
	NodeSymbol                      // ordinary symbol reference
	NodeVarSymbol                   // &NAME, possibly subscripted
	NodeAttribute                   // attr'name  (L', T', S', ...)
	NodeString                      // 'literal'(start,count) with optional dup factor
	NodeFunctionCall                // builtin(arg[, arg])
	NodeExprList                    // (e1 e2 ...)
	NodeUnary                       // op operand
	NodeBinary                      // left op right
)

// Expr is the CA expression tagged union. Only the fields relevant to
// Kind/NodeKind are populated; nodes are ordinary heap values linked by
// *Expr pointers.
type Expr struct {
	Kind     ExprKind
	Node     NodeKind
	Range    Range
	Resolved bool // true once resolve_expression_tree has promoted Kind

	// NodeConstant
	IntVal  int32
	BoolVal bool

	// NodeSymbol / NodeVarSymbol
	Name      ID
	Subscript *Expr // nil for scalar variable references

	// NodeAttribute
	Attr     byte // 'L', 'T', 'S', 'I', 'D', 'O', 'P', 'A', 'N', 'K'
	AttrName *Expr // the symbol/variable the attribute is queried on

	// NodeString
	StrVal  string
	DupFact *Expr // duplication factor, nil = 1
	SubStart *Expr // substring start, nil = whole string
	SubCount *Expr // substring count, nil = whole string

	// NodeFunctionCall
	Func string
	Args []*Expr

	// NodeExprList
	List []*Expr

	// NodeUnary
	Op      string
	Operand *Expr

	// NodeBinary
	Left, Right *Expr

	// Raw is the flat, unparsed token-list form used before shunting-yard
	// resolution reinterprets it under an expected kind (§4.3.1). Populated
	// only for nodes parsed before the expected kind was known.
	Raw []*Expr
}

// IsLeaf reports whether the node has no sub-expressions of its own kind
// (constants, symbols, variables, strings without substring/dup exprs).
func (e *Expr) IsLeaf() bool {
	switch e.Node {
	case NodeConstant, NodeSymbol:
		return true
	case NodeVarSymbol:
		return e.Subscript == nil
	case NodeString:
		return e.DupFact == nil && e.SubStart == nil && e.SubCount == nil
	default:
		return false
	}
}
