package compat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"showcopier/internal/config"
	"showcopier/internal/logging"
	"showcopier/internal/media/ffprobe"
)

// Predicate reports whether a file plays on the target player.
type Predicate interface {
	Compatible(ctx context.Context, path string) (bool, error)
}

// ProbeError reports that a file could not be inspected at all. No verdict
// exists for the file; callers should not cache one.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

type inspectFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Checker evaluates files with ffprobe against a player profile.
type Checker struct {
	binary  string
	timeout time.Duration
	profile Profile
	logger  *slog.Logger
	inspect inspectFunc
}

// NewChecker builds a Checker from configuration.
func NewChecker(cfg *config.Config, logger *slog.Logger) *Checker {
	return &Checker{
		binary:  cfg.FFprobeBinary(),
		timeout: cfg.ProbeTimeout(),
		profile: ProfileFromConfig(cfg),
		logger:  logging.NewComponentLogger(logger, "compat"),
		inspect: ffprobe.Inspect,
	}
}

// Profile returns the player profile the checker evaluates against.
func (c *Checker) Profile() Profile {
	return c.profile
}

// Check probes path and returns the detailed verdict plus the tracks it was
// based on. A failed probe returns *ProbeError.
func (c *Checker) Check(ctx context.Context, path string) (Verdict, []Track, error) {
	probeCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	result, err := c.inspect(probeCtx, c.binary, path)
	if err != nil {
		return Verdict{}, nil, &ProbeError{Path: path, Err: err}
	}
	tracks := TracksFromProbe(result)
	verdict := Evaluate(tracks, c.profile)

	c.logger.Debug("probed file",
		logging.String(logging.FieldPath, path),
		logging.Int("track_count", len(tracks)),
		logging.Bool("compatible", verdict.Compatible),
		logging.String("video_reason", verdict.VideoReason),
		logging.String("audio_reason", verdict.AudioReason),
		logging.Duration("elapsed", time.Since(started)))
	return verdict, tracks, nil
}

// Compatible implements Predicate.
func (c *Checker) Compatible(ctx context.Context, path string) (bool, error) {
	verdict, _, err := c.Check(ctx, path)
	if err != nil {
		return false, err
	}
	return verdict.Compatible, nil
}
