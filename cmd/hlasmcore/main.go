// Command hlasmcore is the analysis-core CLI: a one-shot analyze command, a
// concurrent batch-analyze command, and an lsp command that speaks the
// JSON-RPC protocol over stdio, following cmd/sentra's command-dispatch
// shape (an alias map plus one function per command in ./commands).
package main

import (
	"context"
	"fmt"
	"os"

	"hlasmcore/internal/lsp"

	"hlasmcore/cmd/hlasmcore/commands"
)

const version = "0.1.0"

var aliases = map[string]string{
	"a":     "analyze",
	"batch": "batch-analyze",
	"ba":    "batch-analyze",
	"serve": "lsp",
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "hlasmcore:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		showUsage()
		return nil
	}
	cmd := args[0]
	if alias, ok := aliases[cmd]; ok {
		cmd = alias
	}
	rest := args[1:]

	switch cmd {
	case "help", "-h", "--help":
		showUsage()
		return nil
	case "version", "-v", "--version":
		fmt.Println("hlasmcore", version)
		return nil
	case "analyze":
		return commands.AnalyzeCommand(rest)
	case "batch-analyze":
		return commands.BatchAnalyzeCommand(rest)
	case "lsp":
		server := lsp.NewServer(os.Stdin, os.Stdout)
		return server.Start(context.Background())
	default:
		showUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func showUsage() {
	fmt.Println(`hlasmcore - HLASM analysis core

Usage:
  hlasmcore analyze [flags] <file>
  hlasmcore batch-analyze [flags] <file...>
  hlasmcore lsp
  hlasmcore version

Commands:
  analyze         run one analysis and print its diagnostics
  batch-analyze   run independent analyses over many files concurrently
  lsp             speak the editor JSON-RPC protocol over stdio
  version         print the build version`)
}
