package lsp

import (
	"sort"
	"strings"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/symbols"
)

// CompletionKind tags which of the three independent providers of §4.7
// (completion_list_source.h's instructions/macros/variables split)
// contributed an item.
type CompletionKind uint8

const (
	CompletionInstruction CompletionKind = iota
	CompletionMacro
	CompletionVariable
)

// CompletionItem is one candidate returned to the editor.
type CompletionItem struct {
	Label  string
	Kind   CompletionKind
	Detail string
}

var instructionNames = []string{
	"SETA", "SETB", "SETC", "LCLA", "LCLB", "LCLC", "GBLA", "GBLB", "GBLC",
	"AGO", "AIF", "ANOP", "MACRO", "MEND", "MEXIT", "AREAD", "MNOTE", "ACTR",
	"EQU", "USING", "DROP", "CSECT", "DSECT", "COPY", "EXTRN", "ENTRY",
	"ORG", "CNOP", "ICTL", "OPSYN", "ALIAS", "DC", "DS", "DXD", "START",
	"END", "TITLE", "PRINT", "LTORG",
}

// Complete merges the three completion providers independently, then sorts
// and returns the combined list; the caller decides how to render each
// CompletionKind (snippet, detail text, etc).
func Complete(prefix string, macros map[ast.ID]bool, vars *symbols.VarTable) []CompletionItem {
	prefix = strings.ToUpper(prefix)
	items := completeInstructions(prefix)
	items = append(items, completeMacros(prefix, macros)...)
	items = append(items, completeVariables(prefix, vars)...)
	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

func completeInstructions(prefix string) []CompletionItem {
	var out []CompletionItem
	for _, name := range instructionNames {
		if strings.HasPrefix(name, prefix) {
			out = append(out, CompletionItem{Label: name, Kind: CompletionInstruction})
		}
	}
	return out
}

func completeMacros(prefix string, macros map[ast.ID]bool) []CompletionItem {
	var out []CompletionItem
	for name := range macros {
		if strings.HasPrefix(string(name), prefix) {
			out = append(out, CompletionItem{Label: string(name), Kind: CompletionMacro, Detail: "macro"})
		}
	}
	return out
}

func completeVariables(prefix string, vars *symbols.VarTable) []CompletionItem {
	if vars == nil {
		return nil
	}
	var out []CompletionItem
	for _, name := range vars.Names() {
		if strings.HasPrefix(string(name), prefix) {
			out = append(out, CompletionItem{Label: "&" + string(name), Kind: CompletionVariable, Detail: "variable symbol"})
		}
	}
	return out
}
