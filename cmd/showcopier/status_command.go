package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"showcopier/internal/deps"
	"showcopier/internal/fileid"
	"showcopier/internal/preflight"
)

type statusView struct {
	Checks       []preflight.Result `json:"checks"`
	Dependencies []deps.Status      `json:"dependencies"`
	CacheEntries int                `json:"cache_entries"`
	Compatible   int                `json:"compatible_entries"`
	Missing      int                `json:"missing_entries"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment health and cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache, _, err := ctx.openCache()
			if err != nil {
				return err
			}

			view := statusView{
				Checks: []preflight.Result{
					preflight.CheckReadableDirectory("Library directory", cfg.Paths.LibraryDir),
					preflight.CheckDirectoryAccess("Target directory", cfg.Paths.TargetDir),
					preflight.CheckCacheLocation(cfg.Paths.CacheFile),
				},
				Dependencies: preflight.CheckSystemDeps(cmd.Context(), cfg),
			}
			for _, entry := range cache.List() {
				view.CacheEntries++
				if entry.Compatible {
					view.Compatible++
				}
				if _, statErr := os.Stat(fileid.Resolve(entry.RelPath(), cache.BasePath())); statErr != nil {
					view.Missing++
				}
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderSectionHeader("Paths", colorize))
			for _, check := range view.Checks {
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderSectionHeader("Dependencies", colorize))
			for _, dep := range view.Dependencies {
				kind, detail := statusOK, dep.Version
				if detail == "" {
					detail = dep.Path
				}
				if !dep.Available {
					kind, detail = statusError, dep.Detail
					if dep.Optional {
						kind = statusWarn
					}
				}
				fmt.Fprintln(out, renderStatusLine(dep.Name, kind, detail, colorize))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderSectionHeader("Compatibility cache", colorize))
			fmt.Fprintln(out, renderStatusLine("Entries", statusInfo,
				fmt.Sprintf("%d (%d compatible)", view.CacheEntries, view.Compatible), colorize))
			staleKind := statusOK
			if view.Missing > 0 {
				staleKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Missing files", staleKind,
				fmt.Sprintf("%d (run `showcopier cache prune`)", view.Missing), colorize))
			return nil
		},
	}
}
