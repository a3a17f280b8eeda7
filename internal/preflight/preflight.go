package preflight

import (
	"context"
	"fmt"

	"showcopier/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the checks a copy run requires.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDirectory("Library directory", cfg.Paths.LibraryDir),
		CheckDirectoryAccess("Target directory", cfg.Paths.TargetDir),
		CheckCacheLocation(cfg.Paths.CacheFile),
	}
	for _, status := range CheckSystemDeps(ctx, cfg) {
		if status.Optional {
			continue
		}
		detail := status.Path
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err summarises failed results as a single error, or nil when all passed.
func Err(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	first := failed[0]
	if len(failed) == 1 {
		return fmt.Errorf("preflight: %s: %s", first.Name, first.Detail)
	}
	return fmt.Errorf("preflight: %s: %s (and %d more)", first.Name, first.Detail, len(failed)-1)
}
