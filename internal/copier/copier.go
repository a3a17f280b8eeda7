package copier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"showcopier/internal/compat"
	"showcopier/internal/compatcache"
	"showcopier/internal/config"
	"showcopier/internal/fileid"
	"showcopier/internal/fileutil"
	"showcopier/internal/library"
	"showcopier/internal/logging"
)

// VerdictCache is the cache surface the copier needs.
type VerdictCache interface {
	Get(path string) (compatible bool, found bool, err error)
	Set(path string, compatible bool) error
	Flush() error
}

// Options describes one copy task.
type Options struct {
	Shows   []string
	Count   int
	Verbose bool
	DryRun  bool
	// Random and Uniform are accepted for command-line compatibility; episode
	// selection always follows library order.
	Random  bool
	Uniform bool
	Out     io.Writer
}

// Summary reports what a run did.
type Summary struct {
	Candidates      int
	CacheHits       int
	Probed          int
	Compatible      int
	Copied          int
	AlreadyPresent  int
	BytesCopied     int64
	Missing         int
	ProbeFailures   int
	CopyFailures    int
	PersistFailures int
	Elapsed         time.Duration
}

// Copier wires the cache, the compatibility predicate, and the file copy step.
type Copier struct {
	libraryDir string
	targetDir  string
	cache      VerdictCache
	predicate  compat.Predicate
	logger     *slog.Logger
	copyFile   func(src, dst string) (int64, error)
}

// New constructs a Copier for the configured library and target.
func New(cfg *config.Config, cache VerdictCache, predicate compat.Predicate, logger *slog.Logger) *Copier {
	return &Copier{
		libraryDir: cfg.Paths.LibraryDir,
		targetDir:  cfg.Paths.TargetDir,
		cache:      cache,
		predicate:  predicate,
		logger:     logging.NewComponentLogger(logger, "copier"),
		copyFile:   fileutil.CopyFileVerified,
	}
}

// Run executes the copy task. Cancelling ctx stops the run between files.
// The returned error is non-nil when a show selector is invalid, the context
// was cancelled, or the cache could not be persisted at least once.
func (c *Copier) Run(ctx context.Context, opts Options) (Summary, error) {
	started := time.Now()
	ctx = logging.WithRunID(ctx)
	logger := logging.WithContext(ctx, c.logger)

	var summary Summary
	if opts.Count <= 0 {
		return summary, errors.New("count must be positive")
	}
	out := opts.Out
	if out == nil || !opts.Verbose {
		out = io.Discard
	}
	if opts.Random || opts.Uniform {
		logging.WarnWithContext(logger, "selection policy flags are not supported", "selection_policy_unsupported",
			logging.Bool("random", opts.Random),
			logging.Bool("uniformous", opts.Uniform),
			logging.String(logging.FieldErrorHint, "drop --random/--uniformous"),
			logging.String(logging.FieldImpact, "episodes are taken in library order"))
	}

	files, err := c.collect(opts.Shows)
	if err != nil {
		return summary, err
	}
	summary.Candidates = len(files)
	logger.Info("copy task started",
		logging.Int("candidate_count", len(files)),
		logging.Int("count", opts.Count),
		logging.Bool("dry_run", opts.DryRun))

	var persistErr error
	progress := logging.NewProgressSampler(10)
	for i, path := range files {
		if summary.Copied+summary.AlreadyPresent >= opts.Count {
			break
		}
		if err := ctx.Err(); err != nil {
			summary.Elapsed = time.Since(started)
			return summary, err
		}
		if i > 0 && progress.ShouldLog(i, len(files)) {
			logger.Info("copy progress",
				logging.Int("checked", i),
				logging.Int("candidate_count", len(files)),
				logging.Int("copied", summary.Copied),
				logging.Float64("percent", logging.Percent(i, len(files))))
		}

		fmt.Fprintf(out, "%s... ", filepath.Base(path))
		compatible, fromCache, err := c.resolve(ctx, logger, path, &summary, &persistErr)
		if err != nil {
			fmt.Fprintln(out, "error")
			continue
		}
		suffix := ""
		if fromCache {
			suffix = " (from cache)"
		}
		fmt.Fprintf(out, "%s%s\n", yesNo(compatible), suffix)
		if !compatible {
			continue
		}
		summary.Compatible++

		if opts.DryRun {
			summary.Copied++
			continue
		}
		c.transfer(logger, path, &summary)
	}

	summary.Elapsed = time.Since(started)
	logger.Info("copy task finished",
		logging.Int("candidate_count", summary.Candidates),
		logging.Int("cache_hits", summary.CacheHits),
		logging.Int("probed", summary.Probed),
		logging.Int("copied", summary.Copied),
		logging.Int("already_present", summary.AlreadyPresent),
		logging.Int64("bytes_copied", summary.BytesCopied),
		logging.Duration("elapsed", summary.Elapsed))

	if persistErr != nil {
		return summary, fmt.Errorf("compatibility cache not saved (%d failed flushes): %w", summary.PersistFailures, persistErr)
	}
	return summary, nil
}

func (c *Copier) collect(shows []string) ([]string, error) {
	if len(shows) == 0 {
		return nil, errors.New("no shows selected")
	}
	seen := make(map[string]struct{})
	var files []string
	for _, show := range shows {
		sel, err := library.ParseSelector(show)
		if err != nil {
			return nil, err
		}
		episodes, err := library.Episodes(c.libraryDir, sel)
		if err != nil {
			return nil, err
		}
		for _, episode := range episodes {
			if _, dup := seen[episode]; dup {
				continue
			}
			seen[episode] = struct{}{}
			files = append(files, episode)
		}
	}
	return files, nil
}

// resolve returns the verdict for path, probing and recording it on a miss.
func (c *Copier) resolve(ctx context.Context, logger *slog.Logger, path string, summary *Summary, persistErr *error) (bool, bool, error) {
	compatible, found, err := c.cache.Get(path)
	if err != nil {
		var notFound *fileid.NotFoundError
		if errors.As(err, &notFound) {
			summary.Missing++
		}
		logging.WarnWithContext(logger, "cannot identify episode", "episode_identify_failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "episode skipped"))
		return false, false, err
	}
	if found {
		summary.CacheHits++
		return compatible, true, nil
	}

	compatible, err = c.predicate.Compatible(ctx, path)
	if err != nil {
		summary.ProbeFailures++
		logging.WarnWithContext(logger, "cannot probe episode", "episode_probe_failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the file plays and ffprobe is installed"),
			logging.String(logging.FieldImpact, "episode skipped and left uncached"))
		return false, false, err
	}
	summary.Probed++

	if err := c.cache.Set(path, compatible); err != nil {
		logging.WarnWithContext(logger, "cannot record verdict", "compatcache_set_failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "episode will be probed again next run"))
		return compatible, false, nil
	}
	if err := c.cache.Flush(); err != nil {
		summary.PersistFailures++
		*persistErr = err
		hint := "check permissions on the cache file directory"
		if errors.Is(err, compatcache.ErrLockHeld) {
			hint = "another showcopier run may hold the cache lock"
		}
		logging.ErrorWithContext(logger, "failed to persist compatibility cache", "compatcache_flush_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint))
	}
	return compatible, false, nil
}

func (c *Copier) transfer(logger *slog.Logger, path string, summary *Summary) {
	rel, err := fileid.RelativePath(path, c.libraryDir)
	if err != nil {
		summary.CopyFailures++
		logging.WarnWithContext(logger, "cannot map episode into target", "episode_copy_failed",
			logging.String(logging.FieldPath, path), logging.Error(err))
		return
	}
	dst := fileid.Resolve(rel, c.targetDir)

	present, err := fileutil.SameSize(path, dst)
	if err == nil && present {
		summary.AlreadyPresent++
		logger.Debug("episode already in target", logging.String(logging.FieldPath, rel))
		return
	}

	written, err := c.copyFile(path, dst)
	if err != nil {
		summary.CopyFailures++
		logging.WarnWithContext(logger, "episode copy failed", "episode_copy_failed",
			logging.String(logging.FieldPath, rel),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space on the target device"),
			logging.String(logging.FieldImpact, "episode not copied"))
		return
	}
	summary.Copied++
	summary.BytesCopied += written
	logger.Info("copied episode",
		logging.String(logging.FieldPath, rel),
		logging.Int64("bytes", written))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
