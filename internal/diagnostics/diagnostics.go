// Package diagnostics implements the error-as-value taxonomy of §7 and the
// stable diagnostic-code surface of §6.3. Nothing here ever panics as a
// control-flow device; errors are values passed to a Consumer.
package diagnostics

import (
	"fmt"

	"hlasmcore/internal/ast"
)

// Severity mirrors LSP DiagnosticSeverity ordering (1=Error .. 4=Hint).
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "hint"
	}
}

// Class is the taxonomy bucket a diagnostic belongs to (§7).
type Class uint8

const (
	ClassLexical Class = iota
	ClassParse
	ClassEvaluation
	ClassSemantic
	ClassWarning
)

// Diagnostic is one reported problem, always attached to a range in some
// source file before it reaches the workspace (see Consumer.Add and
// pipeline.Pipeline.attachContext).
type Diagnostic struct {
	Code     string
	Severity Severity
	Class    Class
	Range    ast.Range
	File     string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s %s: %s", d.File, d.Range.Start.Line+1, d.Range.Start.Col+1, d.Severity, d.Code, d.Message)
}

// New builds a Diagnostic without file context; pipeline attaches File
// before forwarding to the workspace (§7 "Propagation policy").
func New(code string, sev Severity, class Class, rng ast.Range, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Code: code, Severity: sev, Class: class, Range: rng, Message: fmt.Sprintf(format, args...)}
}

// Consumer is the one-operation diagnostic sink interface. Multiple
// implementations exist because different processing kinds install
// different policies — most notably lookahead installs Drop so spurious
// probing errors never surface (§4.6, §7).
type Consumer interface {
	Add(d Diagnostic)
}

// ConsumerFunc adapts a function to a Consumer.
type ConsumerFunc func(Diagnostic)

func (f ConsumerFunc) Add(d Diagnostic) { f(d) }

// Collector is a Consumer that accumulates diagnostics into a slice.
type Collector struct {
	Diags []Diagnostic
}

func (c *Collector) Add(d Diagnostic) { c.Diags = append(c.Diags, d) }

// Drop is a Consumer that discards everything; used by the lookahead
// processing kind.
type Drop struct{}

func (Drop) Add(Diagnostic) {}

// Forwarding wraps an inner consumer, attaching a file name to every
// diagnostic that doesn't already have one, matching the propagation
// policy of §7.
type Forwarding struct {
	File  string
	Inner Consumer
}

func (f Forwarding) Add(d Diagnostic) {
	if d.File == "" {
		d.File = f.File
	}
	f.Inner.Add(d)
}
