package commands

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"hlasmcore/internal/library"
)

// BatchAnalyzeCommand runs independent analyses over many files concurrently
// (the "N analyses in parallel, one library.Cache shared between them" shape
// of §5/§6.1) and prints one report per file plus a totals line.
func BatchAnalyzeCommand(args []string) error {
	fs := newFlagSet("batch-analyze")
	libPath := fs.String("lib-path", "", "colon-separated directories to search for COPY/macro members")
	jsonOut := fs.Bool("json", false, "emit each file's diagnostics as JSON instead of text")
	workers := fs.Int("workers", 4, "maximum concurrent analyses")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := fs.Args()
	if len(files) == 0 {
		return fmt.Errorf("usage: hlasmcore batch-analyze [flags] <file...>")
	}

	var cache *library.Cache
	if dirs := splitPath(*libPath); len(dirs) > 0 {
		cache = library.NewCache(dirProvider{dirs: dirs})
	}

	results := make([]analysisResult, len(files))
	errs := make([]error, len(files))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			res, err := analyzeFile(ctx, file, cache)
			results[i] = res
			errs[i] = err
			return nil // per-file errors are reported, not fatal to the batch
		})
	}
	_ = g.Wait()

	for i := range files {
		if errs[i] != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", files[i], errs[i])
			continue
		}
		if *jsonOut {
			printJSON(results[i])
		} else {
			printText(results[i], true)
		}
	}

	anyErrors := printTotals(results, errs)
	if anyErrors {
		os.Exit(1)
	}
	return nil
}

func printTotals(results []analysisResult, errs []error) bool {
	var total, errCount, warnCount, failed int
	for i, res := range results {
		if errs[i] != nil {
			failed++
			continue
		}
		e, w := countBySeverity(res.Diags)
		total += len(res.Diags)
		errCount += e
		warnCount += w
	}
	fmt.Printf("batch: %d file(s), %d diagnostic(s) (%d error, %d warning), %d failed to analyze\n",
		len(results), total, errCount, warnCount, failed)
	return errCount > 0 || failed > 0
}
