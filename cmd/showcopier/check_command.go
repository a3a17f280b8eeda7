package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"showcopier/internal/compat"
	"showcopier/internal/compatcache"
	"showcopier/internal/logging"
)

type trackView struct {
	Index       int      `json:"index"`
	Kind        string   `json:"kind"`
	CodecID     string   `json:"codec_id,omitempty"`
	CodecHint   string   `json:"codec_hint,omitempty"`
	AspectRatio *float64 `json:"aspect_ratio,omitempty"`
}

type checkView struct {
	Path        string      `json:"path"`
	Compatible  bool        `json:"compatible"`
	VideoOK     bool        `json:"video_ok"`
	AudioOK     bool        `json:"audio_ok"`
	VideoReason string      `json:"video_reason"`
	AudioReason string      `json:"audio_reason"`
	Tracks      []trackView `json:"tracks"`
	Error       string      `json:"error,omitempty"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Probe files and explain the player compatibility verdict",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			checker := compat.NewChecker(cfg, logger)
			var cache *compatcache.Cache
			if record {
				if cache, _, err = ctx.openCache(); err != nil {
					return err
				}
			}

			views := make([]checkView, 0, len(args))
			var failed int
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				verdict, tracks, err := checker.Check(cmd.Context(), path)
				view := checkView{Path: path}
				if err != nil {
					failed++
					view.Error = err.Error()
					views = append(views, view)
					continue
				}
				view.Compatible = verdict.Compatible
				view.VideoOK = verdict.VideoOK
				view.AudioOK = verdict.AudioOK
				view.VideoReason = verdict.VideoReason
				view.AudioReason = verdict.AudioReason
				view.Tracks = trackViews(tracks)
				views = append(views, view)

				if cache != nil {
					recordVerdict(cache, logger, path, verdict.Compatible)
				}
			}

			var flushErr error
			if cache != nil {
				flushErr = cache.Flush()
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, views); err != nil {
					return err
				}
			} else {
				printCheckViews(cmd, views)
			}
			if flushErr != nil {
				return fmt.Errorf("save compatibility cache: %w", flushErr)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be probed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "Store verdicts for library files in the compatibility cache")
	return cmd
}

// recordVerdict stores a verdict for a file inside the library. Files outside
// the library have no cache key and are skipped.
func recordVerdict(cache *compatcache.Cache, logger *slog.Logger, path string, compatible bool) {
	if err := cache.Set(path, compatible); err != nil {
		logger.Info("verdict not recorded",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
	}
}

func trackViews(tracks []compat.Track) []trackView {
	views := make([]trackView, 0, len(tracks))
	for _, track := range tracks {
		view := trackView{
			Index:     track.Index,
			Kind:      track.Kind.String(),
			CodecID:   track.CodecID,
			CodecHint: track.CodecHint,
		}
		if track.HasAspectRatio {
			ratio := track.AspectRatio
			view.AspectRatio = &ratio
		}
		views = append(views, view)
	}
	return views
}

func printCheckViews(cmd *cobra.Command, views []checkView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for i, view := range views {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, renderSectionHeader(filepath.Base(view.Path), colorize))
		if view.Error != "" {
			fmt.Fprintln(out, renderStatusLine("Probe", statusError, view.Error, colorize))
			continue
		}
		rows := make([][]string, 0, len(view.Tracks))
		for _, track := range view.Tracks {
			aspect := "-"
			if track.AspectRatio != nil {
				aspect = strconv.FormatFloat(*track.AspectRatio, 'f', 3, 64)
			}
			rows = append(rows, []string{
				strconv.Itoa(track.Index),
				track.Kind,
				dashIfEmpty(track.CodecID),
				dashIfEmpty(track.CodecHint),
				aspect,
			})
		}
		fmt.Fprintln(out, renderTable([]column{
			{Header: "#", Right: true},
			{Header: "Kind"},
			{Header: "Codec ID"},
			{Header: "Codec"},
			{Header: "Aspect", Right: true},
		}, rows, colorize))
		fmt.Fprintln(out, renderStatusLine("Video", verdictKind(view.VideoOK), view.VideoReason, colorize))
		fmt.Fprintln(out, renderStatusLine("Audio", verdictKind(view.AudioOK), view.AudioReason, colorize))
		fmt.Fprintf(out, "  %-*s %s\n", statusLabelWidth, "Compatible:", colorVerdict(view.Compatible, colorize))
	}
}

func verdictKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}

func dashIfEmpty(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
