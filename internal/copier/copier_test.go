package copier

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"showcopier/internal/compat"
	"showcopier/internal/compatcache"
	"showcopier/internal/config"
	"showcopier/internal/library"
	"showcopier/internal/logging"
	"showcopier/internal/testsupport"
)

type fakePredicate struct {
	verdicts map[string]bool
	failures map[string]error
	calls    []string
}

func (f *fakePredicate) Compatible(_ context.Context, path string) (bool, error) {
	name := filepath.Base(path)
	f.calls = append(f.calls, name)
	if err, ok := f.failures[name]; ok {
		return false, &compat.ProbeError{Path: path, Err: err}
	}
	return f.verdicts[name], nil
}

type failingFlushCache struct {
	*compatcache.Cache
	flushes int
}

func (f *failingFlushCache) Flush() error {
	f.flushes++
	return &compatcache.PersistError{Path: "cache.json", Op: "rename temp file", Err: os.ErrPermission}
}

func setup(t *testing.T, rels ...string) (*config.Config, *compatcache.Cache) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	testsupport.WriteLibrary(t, cfg.Paths.LibraryDir, rels...)
	cache := compatcache.Open(cfg.Paths.CacheFile, cfg.Paths.LibraryDir, logging.NewNop())
	return cfg, cache
}

func TestRunCopiesCompatibleEpisodes(t *testing.T) {
	cfg, cache := setup(t,
		"Show/Season 01/e01.avi",
		"Show/Season 01/e02.avi",
		"Show/Season 01/e03.avi",
	)
	pred := &fakePredicate{verdicts: map[string]bool{"e01.avi": true, "e03.avi": true}}
	var out bytes.Buffer

	summary, err := New(cfg, cache, pred, logging.NewNop()).Run(context.Background(), Options{
		Shows: []string{"Show"}, Count: 10, Verbose: true, Out: &out,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Copied != 2 || summary.Probed != 3 || summary.Compatible != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, name := range []string{"e01.avi", "e03.avi"} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.TargetDir, "Show", "Season 01", name)); err != nil {
			t.Fatalf("expected %s in target: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.TargetDir, "Show", "Season 01", "e02.avi")); !os.IsNotExist(err) {
		t.Fatalf("incompatible episode was copied: %v", err)
	}
	want := "e01.avi... yes\ne02.avi... no\ne03.avi... yes\n"
	if out.String() != want {
		t.Fatalf("verbose output = %q, want %q", out.String(), want)
	}

	reloaded, err := compatcache.Load(cfg.Paths.CacheFile, cfg.Paths.LibraryDir)
	if err != nil {
		t.Fatalf("reload cache: %v", err)
	}
	if reloaded.Count() != 3 {
		t.Fatalf("expected 3 persisted verdicts, got %d", reloaded.Count())
	}
}

func TestRunUsesCachedVerdicts(t *testing.T) {
	cfg, cache := setup(t, "Show/Season 01/e01.avi", "Show/Season 01/e02.avi")
	pred := &fakePredicate{verdicts: map[string]bool{"e01.avi": true}}
	c := New(cfg, cache, pred, logging.NewNop())
	opts := Options{Shows: []string{"Show"}, Count: 10, DryRun: true}
	if _, err := c.Run(context.Background(), opts); err != nil {
		t.Fatalf("first run: %v", err)
	}

	pred.calls = nil
	var out bytes.Buffer
	opts.Verbose = true
	opts.Out = &out
	summary, err := New(cfg, compatcache.Open(cfg.Paths.CacheFile, cfg.Paths.LibraryDir, logging.NewNop()), pred, logging.NewNop()).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(pred.calls) != 0 {
		t.Fatalf("expected no probes on second run, got %v", pred.calls)
	}
	if summary.CacheHits != 2 {
		t.Fatalf("expected 2 cache hits, got %+v", summary)
	}
	if !strings.Contains(out.String(), "e01.avi... yes (from cache)") {
		t.Fatalf("missing cached marker in %q", out.String())
	}
}

func TestRunStopsAtCount(t *testing.T) {
	cfg, cache := setup(t,
		"Show/Season 01/e01.avi",
		"Show/Season 01/e02.avi",
		"Show/Season 01/e03.avi",
	)
	pred := &fakePredicate{verdicts: map[string]bool{"e01.avi": true, "e02.avi": true, "e03.avi": true}}

	summary, err := New(cfg, cache, pred, logging.NewNop()).Run(context.Background(), Options{Shows: []string{"Show"}, Count: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Copied != 2 {
		t.Fatalf("expected 2 copies, got %+v", summary)
	}
	if len(pred.calls) != 2 {
		t.Fatalf("expected probing to stop after count, got %v", pred.calls)
	}
}

func TestRunSkipsEpisodesAlreadyInTarget(t *testing.T) {
	cfg, cache := setup(t, "Show/Season 01/e01.avi")
	src := filepath.Join(cfg.Paths.LibraryDir, "Show", "Season 01", "e01.avi")
	info, err := os.Stat(src)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.TargetDir, "Show", "Season 01", "e01.avi"), info.Size())
	pred := &fakePredicate{verdicts: map[string]bool{"e01.avi": true}}

	summary, err := New(cfg, cache, pred, logging.NewNop()).Run(context.Background(), Options{Shows: []string{"Show"}, Count: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AlreadyPresent != 1 || summary.Copied != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunKeepsDecomposedNamesInTarget(t *testing.T) {
	decomposed := "Poke\u0301mon e01.avi"
	cfg, cache := setup(t, "Show/Season 01/"+decomposed)
	pred := &fakePredicate{verdicts: map[string]bool{decomposed: true}}
	opts := Options{Shows: []string{"Show"}, Count: 1}

	summary, err := New(cfg, cache, pred, logging.NewNop()).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Copied != 1 {
		t.Fatalf("expected 1 copy, got %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.TargetDir, "Show", "Season 01", decomposed)); err != nil {
		t.Fatalf("expected copy under the source's name: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(cfg.Paths.TargetDir, "Show", "Season 01"))
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != decomposed {
		t.Fatalf("unexpected target contents: %v", entries)
	}

	// The second run must see the copy as present rather than writing it again.
	pred.calls = nil
	reopened := compatcache.Open(cfg.Paths.CacheFile, cfg.Paths.LibraryDir, logging.NewNop())
	if removed := reopened.Prune(); len(removed) != 0 {
		t.Fatalf("prune dropped a valid verdict: %v", removed)
	}
	summary, err = New(cfg, reopened, pred, logging.NewNop()).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.AlreadyPresent != 1 || summary.Copied != 0 || summary.CacheHits != 1 {
		t.Fatalf("unexpected second summary %+v", summary)
	}
	if len(pred.calls) != 0 {
		t.Fatalf("expected cached verdict, probed %v", pred.calls)
	}
}

func TestRunDoesNotCacheProbeFailures(t *testing.T) {
	cfg, cache := setup(t, "Show/Season 01/broken.avi", "Show/Season 01/good.avi")
	pred := &fakePredicate{
		verdicts: map[string]bool{"good.avi": true},
		failures: map[string]error{"broken.avi": errors.New("invalid data found")},
	}
	var out bytes.Buffer

	summary, err := New(cfg, cache, pred, logging.NewNop()).Run(context.Background(), Options{
		Shows: []string{"Show"}, Count: 5, Verbose: true, Out: &out,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.ProbeFailures != 1 || summary.Copied != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, ok := cache.Lookup("Show/Season 01/broken.avi"); ok {
		t.Fatal("probe failure should not be cached")
	}
	if !strings.Contains(out.String(), "broken.avi... error") {
		t.Fatalf("expected error marker in %q", out.String())
	}
}

func TestRunReportsPersistFailuresAndKeepsCopying(t *testing.T) {
	cfg, cache := setup(t, "Show/Season 01/e01.avi", "Show/Season 01/e02.avi")
	wrapped := &failingFlushCache{Cache: cache}
	pred := &fakePredicate{verdicts: map[string]bool{"e01.avi": true, "e02.avi": true}}

	summary, err := New(cfg, wrapped, pred, logging.NewNop()).Run(context.Background(), Options{Shows: []string{"Show"}, Count: 5})
	var persistErr *compatcache.PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected PersistError, got %v", err)
	}
	if summary.Copied != 2 || summary.PersistFailures != 2 || wrapped.flushes != 2 {
		t.Fatalf("unexpected summary %+v (flushes=%d)", summary, wrapped.flushes)
	}
}

func TestRunSeasonSelector(t *testing.T) {
	cfg, cache := setup(t,
		"Show/Season 01/e01.avi",
		"Show/Season 02/e01.avi",
	)
	pred := &fakePredicate{verdicts: map[string]bool{"e01.avi": true}}

	summary, err := New(cfg, cache, pred, logging.NewNop()).Run(context.Background(), Options{Shows: []string{"Show/Season 02"}, Count: 5})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Candidates != 1 || summary.Copied != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.TargetDir, "Show", "Season 02", "e01.avi")); err != nil {
		t.Fatalf("expected season 02 copy: %v", err)
	}
}

func TestRunUnknownShow(t *testing.T) {
	cfg, cache := setup(t, "Show/Season 01/e01.avi")
	_, err := New(cfg, cache, &fakePredicate{}, logging.NewNop()).Run(context.Background(), Options{Shows: []string{"Missing"}, Count: 1})
	if !errors.Is(err, library.ErrShowNotFound) {
		t.Fatalf("expected ErrShowNotFound, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	cfg, cache := setup(t, "Show/Season 01/e01.avi")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(cfg, cache, &fakePredicate{}, logging.NewNop()).Run(ctx, Options{Shows: []string{"Show"}, Count: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunCountsCopyFailures(t *testing.T) {
	cfg, cache := setup(t, "Show/Season 01/e01.avi", "Show/Season 01/e02.avi")
	pred := &fakePredicate{verdicts: map[string]bool{"e01.avi": true, "e02.avi": true}}
	c := New(cfg, cache, pred, logging.NewNop())
	c.copyFile = func(src, dst string) (int64, error) {
		if filepath.Base(src) == "e01.avi" {
			return 0, errors.New("no space left on device")
		}
		return 7, nil
	}

	summary, err := c.Run(context.Background(), Options{Shows: []string{"Show"}, Count: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.CopyFailures != 1 || summary.Copied != 1 || summary.BytesCopied != 7 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
