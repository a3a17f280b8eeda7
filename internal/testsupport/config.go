package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"showcopier/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The library directory is created; target and cache locations are not.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.TargetDir = filepath.Join(base, "target")
	cfgVal.Paths.CacheFile = filepath.Join(base, "state", "compat_cache.json")
	cfgVal.Paths.LogDir = ""
	if err := os.MkdirAll(cfgVal.Paths.LibraryDir, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithFFprobeScript installs an executable shell script named ffprobe in a
// private bin directory and points the config at it. The script receives the
// media path as its last argument.
func WithFFprobeScript(script string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffprobe")
		if err := os.WriteFile(target, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
			b.t.Fatalf("write ffprobe stub: %v", err)
		}
		b.cfg.Probe.FFprobeBinary = target
	}
}

// WithStubbedBinaries writes no-op executables for the provided names and
// prepends them to PATH for the duration of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "stubs")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir stub dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LibraryDir)
}
