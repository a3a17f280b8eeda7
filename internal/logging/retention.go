package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const runLogPattern = "showcopier-*.log"

// RunLogName returns the file name of the log written by a run started at t.
func RunLogName(t time.Time) string {
	return "showcopier-" + t.Format("20060102-150405") + ".log"
}

// PruneRunLogs removes run logs in dir whose modification time is older than
// maxAge. The file named by keep is never removed. It returns the removed
// paths in sorted order; failures are logged and skipped.
func PruneRunLogs(logger *slog.Logger, dir string, maxAge time.Duration, keep string) []string {
	if dir == "" || maxAge <= 0 {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, runLogPattern))
	if err != nil {
		return nil
	}
	cutoff := time.Now().Add(-maxAge)
	keep = filepath.Clean(keep)

	var removed []string
	for _, path := range matches {
		if filepath.Clean(path) == keep {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String(FieldPath, path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed = append(removed, path)
	}
	sort.Strings(removed)
	return removed
}
