package datadef

import (
	"testing"

	"hlasmcore/internal/diagnostics"
)

func TestValidateFixedLength(t *testing.T) {
	var col diagnostics.Collector
	op := Operand{IsDC: true, DupFactor: 1, TypeKey: "F", HasNominal: true, NominalText: "5"}
	attrs := Validate(op, &col)
	if len(col.Diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", col.Diags)
	}
	if attrs.L != 4 {
		t.Fatalf("expected implicit length 4, got %d", attrs.L)
	}
	if attrs.I != 8*4-0-1 {
		t.Fatalf("expected integer attribute %d, got %d", 8*4-0-1, attrs.I)
	}
}

func TestValidateCharAsNeededLength(t *testing.T) {
	var col diagnostics.Collector
	op := Operand{IsDC: true, DupFactor: 1, TypeKey: "C", HasNominal: true, NominalText: "HELLO"}
	attrs := Validate(op, &col)
	if attrs.L != 5 {
		t.Fatalf("expected length 5, got %d", attrs.L)
	}
}

func TestValidateNegativeDuplicationFactor(t *testing.T) {
	var col diagnostics.Collector
	op := Operand{IsDC: true, DupFactor: -1, TypeKey: "C", HasNominal: true, NominalText: "X"}
	Validate(op, &col)
	found := false
	for _, d := range col.Diags {
		if d.Code == diagnostics.D011 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected D011 diagnostic, got %v", col.Diags)
	}
}

func TestValidateBadHexString(t *testing.T) {
	var col diagnostics.Collector
	op := Operand{IsDC: true, DupFactor: 1, TypeKey: "X", HasNominal: true, NominalText: "ZZ"}
	Validate(op, &col)
	found := false
	for _, d := range col.Diags {
		if d.Code == diagnostics.D009 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected D009 diagnostic for invalid hex, got %v", col.Diags)
	}
}

func TestValidatePackedLength(t *testing.T) {
	var col diagnostics.Collector
	op := Operand{IsDC: true, DupFactor: 1, TypeKey: "P", HasNominal: true, NominalText: "12345"}
	attrs := Validate(op, &col)
	if attrs.L != 3 {
		t.Fatalf("expected packed length 3, got %d", attrs.L)
	}
}

func TestValidateUnknownType(t *testing.T) {
	var col diagnostics.Collector
	op := Operand{IsDC: true, DupFactor: 1, TypeKey: "ZZZ"}
	Validate(op, &col)
	if len(col.Diags) == 0 {
		t.Fatalf("expected a diagnostic for unknown type")
	}
}
