package symbols

import "hlasmcore/internal/ast"

// SeqScope distinguishes opencode sequence symbols from macro-local ones;
// the two never collide because a macro body is a separate name scope.
type SeqScope uint8

const (
	SeqOpencode SeqScope = iota
	SeqMacro
)

// StatementPos identifies a statement's position for AGO/AIF targets and
// sequence-symbol values.
type StatementPos struct {
	File  string
	Index int // monotonically increasing statement index within the unit
	Line  int // physical source line the statement starts on, for cursor repositioning
}

// Sequence is a .NAME label. Duplicate definitions within the same scope
// are only an error if the symbol is actually the target of a jump
// (§3.4, §8.1 property 6); DuplicateOf records the earlier definition so
// Use can decide whether to raise W025 lazily.
type Sequence struct {
	Name       ast.ID
	Scope      SeqScope
	Pos        StatementPos
	Range      ast.Range
	DuplicateOf *Sequence
}

// SeqTable holds the sequence symbols visible in one scope (opencode or one
// macro definition).
type SeqTable struct {
	byName map[ast.ID]*Sequence
	scope  SeqScope
}

func NewSeqTable(scope SeqScope) *SeqTable {
	return &SeqTable{byName: make(map[ast.ID]*Sequence), scope: scope}
}

// Define records a .NAME label. A second definition of the same name is
// kept as a duplicate chain (most recent wins for lookup, matching the
// source's last-one-seen AGO target) rather than rejected outright,
// because the duplicate is only an error if used.
func (t *SeqTable) Define(name ast.ID, pos StatementPos, rng ast.Range) *Sequence {
	seq := &Sequence{Name: name, Scope: t.scope, Pos: pos, Range: rng}
	if prev, ok := t.byName[name]; ok {
		seq.DuplicateOf = prev
	}
	t.byName[name] = seq
	return seq
}

func (t *SeqTable) Lookup(name ast.ID) (*Sequence, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// Use marks name as the target of an AGO/AIF jump and reports whether the
// resolved definition has a shadowed duplicate, so the caller can raise
// W025 only now.
func (t *SeqTable) Use(name ast.ID) (*Sequence, bool) {
	s, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return s, s.DuplicateOf != nil
}
