package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"showcopier/internal/compat"
	"showcopier/internal/copier"
	"showcopier/internal/preflight"
)

type copyFlags struct {
	count   int
	verbose bool
	quiet   bool
	random  bool
	uniform bool
	dryRun  bool
}

type copySummaryView struct {
	Candidates      int     `json:"candidates"`
	CacheHits       int     `json:"cache_hits"`
	Probed          int     `json:"probed"`
	Compatible      int     `json:"compatible"`
	Copied          int     `json:"copied"`
	AlreadyPresent  int     `json:"already_present"`
	BytesCopied     int64   `json:"bytes_copied"`
	Missing         int     `json:"missing"`
	ProbeFailures   int     `json:"probe_failures"`
	CopyFailures    int     `json:"copy_failures"`
	PersistFailures int     `json:"persist_failures"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	DryRun          bool    `json:"dry_run"`
	Error           string  `json:"error,omitempty"`
}

func runCopy(cmd *cobra.Command, ctx *commandContext, shows []string, flags *copyFlags) error {
	if !cmd.Flags().Changed("count") {
		return errors.New("required flag \"count\" not set")
	}
	if flags.count <= 0 {
		return fmt.Errorf("--count must be positive (got %d)", flags.count)
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := preflight.Err(preflight.RunAll(cmd.Context(), cfg)); err != nil {
		return err
	}
	cache, logger, err := ctx.openCache()
	if err != nil {
		return err
	}

	checker := compat.NewChecker(cfg, logger)
	summary, runErr := copier.New(cfg, cache, checker, logger).Run(cmd.Context(), copier.Options{
		Shows:   shows,
		Count:   flags.count,
		Verbose: flags.verbose && !flags.quiet && !ctx.jsonOutput(),
		DryRun:  flags.dryRun,
		Random:  flags.random,
		Uniform: flags.uniform,
		Out:     cmd.OutOrStdout(),
	})

	if ctx.jsonOutput() {
		view := summaryView(summary, flags.dryRun)
		if runErr != nil {
			view.Error = runErr.Error()
		}
		if err := writeJSON(cmd, view); err != nil {
			return err
		}
		return runErr
	}
	printSummary(cmd.OutOrStdout(), summary, flags)
	return runErr
}

func summaryView(s copier.Summary, dryRun bool) copySummaryView {
	return copySummaryView{
		Candidates:      s.Candidates,
		CacheHits:       s.CacheHits,
		Probed:          s.Probed,
		Compatible:      s.Compatible,
		Copied:          s.Copied,
		AlreadyPresent:  s.AlreadyPresent,
		BytesCopied:     s.BytesCopied,
		Missing:         s.Missing,
		ProbeFailures:   s.ProbeFailures,
		CopyFailures:    s.CopyFailures,
		PersistFailures: s.PersistFailures,
		ElapsedSeconds:  s.Elapsed.Seconds(),
		DryRun:          dryRun,
	}
}

func printSummary(out io.Writer, s copier.Summary, flags *copyFlags) {
	if flags.quiet {
		return
	}
	verb := "Copied"
	if flags.dryRun {
		verb = "Would copy"
	}
	fmt.Fprintf(out, "%s %d of %d requested episodes", verb, s.Copied, flags.count)
	if s.AlreadyPresent > 0 {
		fmt.Fprintf(out, " (%d already on target)", s.AlreadyPresent)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Checked %d episodes: %d from cache, %d probed, %d compatible\n",
		s.CacheHits+s.Probed, s.CacheHits, s.Probed, s.Compatible)
	if s.BytesCopied > 0 {
		fmt.Fprintf(out, "Transferred %s in %s\n", humanBytes(s.BytesCopied), s.Elapsed.Round(time.Second))
	}
	if problems := s.Missing + s.ProbeFailures + s.CopyFailures; problems > 0 {
		fmt.Fprintf(out, "Skipped %d episodes after errors (see log)\n", problems)
	}
}

func humanBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%d B", v)
	}
	div, exp := int64(unit), 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(v)/float64(div), "KMGTPE"[exp])
}
