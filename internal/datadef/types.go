// Package datadef implements the DC/DS type system of §4.4: per-type
// modifier bounds, nominal-value shape, content validation, and attribute
// computation (length/scale/integer).
package datadef

// NominalKind classifies what shape a type's nominal value must take.
type NominalKind uint8

const (
	NominalString NominalKind = iota
	NominalExpressions
	NominalAddressOrExpression
)

// ImplicitLength is either a fixed byte count or "as needed" (computed from
// the nominal value).
type ImplicitLength struct {
	Fixed    int32
	AsNeeded bool
}

// Bound is a modifier's allowed range; a zero-value Bound with NoCheck set
// always passes, otherwise [Min,Max] is enforced.
type Bound struct {
	NoCheck  bool
	Forbidden bool // modifier not allowed at all (D009)
	Ignored  bool // zero tolerated with warning D025, nonzero is D009
	Min, Max int32
}

func bound(min, max int32) Bound { return Bound{Min: min, Max: max} }

var (
	boundNoCheck   = Bound{NoCheck: true}
	boundForbidden = Bound{Forbidden: true}
	boundIgnored   = Bound{Ignored: true}
)

// Descriptor is the static per-type information of §4.4.
type Descriptor struct {
	TypeChar       byte
	Extension      string // e.g. "A" for CA, "U" for CU, "H" for EH/DH/LH
	BitLengthDC    Bound
	BitLengthDS    Bound
	LengthDC       Bound
	LengthDS       Bound
	ScaleBound     Bound
	ExponentBound  Bound
	NominalKind    NominalKind
	ImplicitAlign  int32
	ImplicitLen    ImplicitLength
	IntegerType    bool
	IgnoresScale   bool
	ExpectsSingle  bool // nominal value must be a single symbol, not a list
	AllowsBitLen   bool
}

// Descriptors maps "type+extension" (e.g. "C", "CU", "EH") to its
// Descriptor. Populated in init from the per-type tables below.
var Descriptors = map[string]*Descriptor{}

func reg(key string, d *Descriptor) *Descriptor {
	Descriptors[key] = d
	return d
}

func init() {
	reg("B", &Descriptor{TypeChar: 'B', LengthDC: boundNoCheck, LengthDS: boundNoCheck,
		ScaleBound: boundForbidden, ExponentBound: boundForbidden,
		NominalKind: NominalString, ImplicitAlign: 1, ImplicitLen: ImplicitLength{AsNeeded: true}})

	reg("C", &Descriptor{TypeChar: 'C', LengthDC: boundNoCheck, LengthDS: boundNoCheck,
		ScaleBound: boundForbidden, ExponentBound: boundForbidden,
		NominalKind: NominalString, ImplicitAlign: 1, ImplicitLen: ImplicitLength{AsNeeded: true}, AllowsBitLen: true})
	reg("CA", Descriptors["C"])
	reg("CE", Descriptors["C"])

	reg("CU", &Descriptor{TypeChar: 'C', Extension: "U", LengthDC: boundNoCheck, LengthDS: boundNoCheck,
		ScaleBound: boundForbidden, ExponentBound: boundForbidden,
		NominalKind: NominalString, ImplicitAlign: 2, ImplicitLen: ImplicitLength{AsNeeded: true}})

	reg("G", &Descriptor{TypeChar: 'G', LengthDC: boundNoCheck, LengthDS: boundNoCheck,
		ScaleBound: boundForbidden, ExponentBound: boundForbidden,
		NominalKind: NominalString, ImplicitAlign: 1, ImplicitLen: ImplicitLength{AsNeeded: true}})

	reg("X", &Descriptor{TypeChar: 'X', LengthDC: boundNoCheck, LengthDS: boundNoCheck,
		ScaleBound: boundForbidden, ExponentBound: boundForbidden,
		NominalKind: NominalString, ImplicitAlign: 1, ImplicitLen: ImplicitLength{AsNeeded: true}, AllowsBitLen: true})

	reg("H", &Descriptor{TypeChar: 'H', LengthDC: bound(1, 8), LengthDS: bound(1, 8),
		ScaleBound: bound(-187, 187), ExponentBound: boundForbidden,
		NominalKind: NominalString, ImplicitAlign: 2, ImplicitLen: ImplicitLength{Fixed: 2}, IntegerType: true})

	reg("F", &Descriptor{TypeChar: 'F', LengthDC: bound(1, 8), LengthDS: bound(1, 8),
		ScaleBound: bound(-187, 187), ExponentBound: boundForbidden,
		NominalKind: NominalString, ImplicitAlign: 4, ImplicitLen: ImplicitLength{Fixed: 4}, IntegerType: true})

	reg("FD", &Descriptor{TypeChar: 'F', Extension: "D", LengthDC: bound(1, 8), LengthDS: bound(1, 8),
		ScaleBound: bound(-187, 187), ExponentBound: boundForbidden,
		NominalKind: NominalString, ImplicitAlign: 8, ImplicitLen: ImplicitLength{Fixed: 8}, IntegerType: true})

	reg("P", &Descriptor{TypeChar: 'P', LengthDC: bound(1, 16), LengthDS: bound(1, 16),
		ScaleBound: bound(-187, 187), ExponentBound: boundForbidden,
		NominalKind: NominalString, ImplicitAlign: 1, ImplicitLen: ImplicitLength{AsNeeded: true}, IntegerType: true})

	reg("Z", &Descriptor{TypeChar: 'Z', LengthDC: bound(1, 16), LengthDS: bound(1, 16),
		ScaleBound: bound(-187, 187), ExponentBound: boundForbidden,
		NominalKind: NominalString, ImplicitAlign: 1, ImplicitLen: ImplicitLength{AsNeeded: true}, IntegerType: true})

	for _, addr := range []string{"A", "Y"} {
		ln := int32(4)
		if addr == "Y" {
			ln = 2
		}
		reg(addr, &Descriptor{TypeChar: addr[0], LengthDC: bound(1, 8), LengthDS: bound(1, 8),
			ScaleBound: boundForbidden, ExponentBound: boundForbidden,
			NominalKind: NominalAddressOrExpression, ImplicitAlign: ln, ImplicitLen: ImplicitLength{Fixed: ln}})
	}
	reg("S", &Descriptor{TypeChar: 'S', LengthDC: boundForbidden, LengthDS: boundForbidden,
		ScaleBound: boundForbidden, ExponentBound: boundForbidden,
		NominalKind: NominalAddressOrExpression, ImplicitAlign: 2, ImplicitLen: ImplicitLength{Fixed: 2}, ExpectsSingle: true})
	reg("SY", Descriptors["S"])

	for _, simple := range []string{"Q", "V", "R", "J"} {
		reg(simple, &Descriptor{TypeChar: simple[0], LengthDC: bound(1, 4), LengthDS: bound(1, 4),
			ScaleBound: boundForbidden, ExponentBound: boundForbidden,
			NominalKind: NominalExpressions, ImplicitAlign: 4, ImplicitLen: ImplicitLength{Fixed: 4}, ExpectsSingle: true})
	}

	for _, fp := range []struct {
		char string
		ln   int32
	}{{"E", 4}, {"D", 8}, {"L", 16}} {
		reg(fp.char, &Descriptor{TypeChar: fp.char[0], LengthDC: bound(1, 16), LengthDS: bound(1, 16),
			ScaleBound: bound(0, 17), ExponentBound: bound(-999, 999),
			NominalKind: NominalString, ImplicitAlign: 8, ImplicitLen: ImplicitLength{Fixed: fp.ln}})
		reg(fp.char+"H", &Descriptor{TypeChar: fp.char[0], Extension: "H", LengthDC: bound(1, 16), LengthDS: bound(1, 16),
			ScaleBound: bound(0, 17), ExponentBound: bound(-999, 999),
			NominalKind: NominalString, ImplicitAlign: 8, ImplicitLen: ImplicitLength{Fixed: fp.ln}})
	}
}

// Lookup finds a type's descriptor by its type+extension key, e.g. "C",
// "CU", "FD", "EH".
func Lookup(typeAndExt string) (*Descriptor, bool) {
	d, ok := Descriptors[typeAndExt]
	return d, ok
}
