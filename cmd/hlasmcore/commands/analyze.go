// Package commands implements the hlasmcore CLI's subcommands: analyze,
// batch-analyze, and (via main) the lsp passthrough. Each command parses its
// own flag.FlagSet, matching the teacher's cmd/sentra/commands split between
// a thin main and one function per command.
package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"hlasmcore/internal/ast"
	"hlasmcore/internal/diagnostics"
	"hlasmcore/internal/library"
	"hlasmcore/internal/pipeline"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: hlasmcore %s [flags] <file...>\n", name)
		fs.PrintDefaults()
	}
	return fs
}

// fileLines adapts a file's content to pipeline.Source.
type fileLines []string

func (f fileLines) Line(n int) (string, bool) {
	if n < 0 || n >= len(f) {
		return "", false
	}
	return f[n], true
}

func readLines(path string) (fileLines, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n"), nil
}

// dirProvider resolves COPY/macro logical names against a search path of
// directories, the simplest library.Provider a standalone CLI can offer
// (an editor's workspace layer would instead talk to its own dataset
// service; §6.1 only specifies the contract, not the transport).
type dirProvider struct {
	dirs []string
}

func (d dirProvider) Fetch(_ context.Context, logicalName string) (string, bool, error) {
	for _, dir := range d.dirs {
		for _, ext := range []string{"", ".cpy", ".mac", ".asm", ".hlasm"} {
			path := filepath.Join(dir, logicalName+ext)
			if data, err := os.ReadFile(path); err == nil {
				return string(data), true, nil
			}
		}
	}
	return "", false, nil
}

func splitPath(libPath string) []string {
	if libPath == "" {
		return nil
	}
	return strings.Split(libPath, string(os.PathListSeparator))
}

// analysisResult is what one file's analysis produced, enough to print a
// text or JSON report and to aggregate across a batch run.
type analysisResult struct {
	File       string
	Statements int
	Diags      []diagnostics.Diagnostic
	Elapsed    time.Duration
}

func hasErrors(diags []diagnostics.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == diagnostics.SeverityError {
			return true
		}
	}
	return false
}

// analyzeFile runs one pipeline over file's lines, having the library cache
// answer Hooks.HasLibrary so opcode resolution can tell a not-yet-defined
// macro from a genuinely unknown one (§6.1).
func analyzeFile(ctx context.Context, file string, cache *library.Cache) (analysisResult, error) {
	start := time.Now()
	lines, err := readLines(file)
	if err != nil {
		return analysisResult{}, err
	}

	col := &diagnostics.Collector{}
	forwarding := diagnostics.Forwarding{File: file, Inner: col}

	stmts := 0
	p := pipeline.New(lines, nil, forwarding, pipeline.Hooks{
		HasLibrary: func(name ast.ID) bool {
			if cache == nil {
				return false
			}
			_, ok, _ := cache.Resolve(ctx, string(name))
			return ok
		},
		OnStatement: func(_ *ast.ID, _ ast.Range, _ string, _ ast.Range, _ []ast.Operand, _ ast.Range) {
			stmts++
		},
	})
	if err := p.Run(); err != nil {
		return analysisResult{}, err
	}
	return analysisResult{File: file, Statements: stmts, Diags: col.Diags, Elapsed: time.Since(start)}, nil
}

// AnalyzeCommand runs one analysis over a single opencode file and prints
// its diagnostics.
func AnalyzeCommand(args []string) error {
	fs := newFlagSet("analyze")
	libPath := fs.String("lib-path", "", "colon-separated directories to search for COPY/macro members")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON instead of text")
	quiet := fs.Bool("quiet", false, "suppress the summary line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: hlasmcore analyze [flags] <file>")
	}
	file := fs.Arg(0)

	var cache *library.Cache
	if dirs := splitPath(*libPath); len(dirs) > 0 {
		cache = library.NewCache(dirProvider{dirs: dirs})
	}

	res, err := analyzeFile(context.Background(), file, cache)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", file, err)
	}

	if *jsonOut {
		printJSON(res)
	} else {
		printText(res, !*quiet)
	}
	if hasErrors(res.Diags) {
		os.Exit(1)
	}
	return nil
}

func printText(res analysisResult, summary bool) {
	color := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	for _, d := range res.Diags {
		fmt.Println(formatDiagnostic(d, color))
	}
	if !summary {
		return
	}
	errs, warns := countBySeverity(res.Diags)
	fmt.Printf("%s: %s statement%s, %s diagnostic%s (%d error, %d warning) in %s\n",
		res.File,
		humanize.Comma(int64(res.Statements)), plural(res.Statements),
		humanize.Comma(int64(len(res.Diags))),
		plural(len(res.Diags)),
		errs, warns,
		res.Elapsed.Round(time.Microsecond))
}

func countBySeverity(diags []diagnostics.Diagnostic) (errs, warns int) {
	for _, d := range diags {
		switch d.Severity {
		case diagnostics.SeverityError:
			errs++
		case diagnostics.SeverityWarning:
			warns++
		}
	}
	return
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func formatDiagnostic(d diagnostics.Diagnostic, color bool) string {
	if !color {
		return d.String()
	}
	code := sevColor(d.Severity)
	return fmt.Sprintf("\033[%sm%s:%d:%d: %s %s\033[0m: %s",
		code, d.File, d.Range.Start.Line+1, d.Range.Start.Col+1, d.Severity, d.Code, d.Message)
}

func sevColor(sev diagnostics.Severity) string {
	switch sev {
	case diagnostics.SeverityError:
		return "31"
	case diagnostics.SeverityWarning:
		return "33"
	default:
		return "36"
	}
}

func printJSON(res analysisResult) {
	fmt.Printf("{\"file\":%q,\"diagnostics\":[", res.File)
	for i, d := range res.Diags {
		if i > 0 {
			fmt.Print(",")
		}
		fmt.Printf("{\"code\":%q,\"severity\":%q,\"line\":%d,\"col\":%d,\"message\":%q}",
			d.Code, d.Severity.String(), d.Range.Start.Line+1, d.Range.Start.Col+1, d.Message)
	}
	fmt.Printf("],\"elapsedMs\":%d}\n", res.Elapsed.Milliseconds())
}
