// Package ast defines the shared data model for statements and conditional
// assembly expressions: interned identifiers, source ranges, the statement
// tagged union, and the CA expression tagged union.
package ast

import (
	"strings"
	"sync"
)

// ID is an interned, case-folded HLASM identifier. Two IDs compare equal
// iff the underlying names are equal, giving interning stable equality and
// a total (lexicographic) order for free.
type ID string

// MaxIdentLen is the longest identifier HLASM accepts (ordinary or variable
// symbol, sequence symbol name without the leading dot).
const MaxIdentLen = 63

var internTable = struct {
	mu   sync.Mutex
	seen map[string]ID
}{seen: make(map[string]ID)}

// Intern upper-cases name and returns the shared ID for it. This is the one
// process-wide resource touched during analysis (per the concurrency
// model); insertion is latched with a coarse mutex, lookups of an already
// seen name still take the lock since the map itself isn't safe for
// concurrent reads during writes.
func Intern(name string) ID {
	folded := strings.ToUpper(name)
	internTable.mu.Lock()
	defer internTable.mu.Unlock()
	if id, ok := internTable.seen[folded]; ok {
		return id
	}
	id := ID(folded)
	internTable.seen[folded] = id
	return id
}

// ValidIdentStart reports whether c can start an ordinary or variable
// symbol name (not a digit).
func ValidIdentStart(c byte) bool {
	return isIdentChar(c) && !(c >= '0' && c <= '9')
}

func isIdentChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '$' || c == '@' || c == '#' || c == '_':
		return true
	}
	return false
}

// IsIdentChar exposes the identifier character class to the lexer.
func IsIdentChar(c byte) bool { return isIdentChar(c) }
