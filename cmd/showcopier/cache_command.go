package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type cacheEntryView struct {
	Path       string    `json:"path"`
	Compatible bool      `json:"compatible"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mod_time"`
	CheckedAt  time.Time `json:"checked_at"`
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the compatibility cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var onlyCompatible bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached verdicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, _, err := ctx.openCache()
			if err != nil {
				return err
			}
			entries := cache.List()
			views := make([]cacheEntryView, 0, len(entries))
			for _, entry := range entries {
				if onlyCompatible && !entry.Compatible {
					continue
				}
				views = append(views, cacheEntryView{
					Path:       entry.Key,
					Compatible: entry.Compatible,
					Size:       entry.Fingerprint.Size,
					ModTime:    entry.Fingerprint.ModTime,
					CheckedAt:  entry.CheckedAt,
				})
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintf(out, "No cached verdicts in %s\n", cache.Path())
				return nil
			}
			colorize := shouldColorize(out)
			const stampLayout = "2006-01-02 15:04"
			rows := make([][]string, 0, len(views))
			for _, view := range views {
				rows = append(rows, []string{
					view.Path,
					colorVerdict(view.Compatible, colorize),
					humanBytes(view.Size),
					view.CheckedAt.Local().Format(stampLayout),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{Header: "Episode"},
				{Header: "Compatible"},
				{Header: "Size", Right: true},
				{Header: "Checked"},
			}, rows, colorize))
			fmt.Fprintf(out, "%d entries\n", len(views))
			return nil
		},
	}
	cmd.Flags().BoolVar(&onlyCompatible, "compatible", false, "Only list compatible episodes")
	return cmd
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop verdicts for files that were removed or changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, _, err := ctx.openCache()
			if err != nil {
				return err
			}
			removed := cache.Prune()
			if err := cache.Flush(); err != nil {
				return err
			}
			if ctx.jsonOutput() {
				if removed == nil {
					removed = []string{}
				}
				return writeJSON(cmd, map[string]any{"removed": removed, "remaining": cache.Count()})
			}
			out := cmd.OutOrStdout()
			if len(removed) == 0 {
				fmt.Fprintln(out, "No cache entries pruned")
				return nil
			}
			for _, key := range removed {
				fmt.Fprintf(out, "  - %s\n", key)
			}
			fmt.Fprintf(out, "Pruned %d entries (%d remaining)\n", len(removed), cache.Count())
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, _, err := ctx.openCache()
			if err != nil {
				return err
			}
			count := cache.Count()
			cache.Clear()
			if err := cache.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries from %s\n", count, cache.Path())
			return nil
		},
	}
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove PATH...",
		Short: "Forget verdicts for library-relative paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, _, err := ctx.openCache()
			if err != nil {
				return err
			}
			var missing []string
			for _, key := range args {
				if err := cache.Remove(key); err != nil {
					missing = append(missing, key)
				}
			}
			if err := cache.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", len(args)-len(missing))
			if len(missing) > 0 {
				return fmt.Errorf("not in compatibility cache: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

