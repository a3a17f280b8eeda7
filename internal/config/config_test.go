package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"showcopier/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "library", "tv") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	if cfg.Paths.TargetDir != filepath.Join(tempHome, "usb") {
		t.Fatalf("unexpected target dir: %q", cfg.Paths.TargetDir)
	}
	wantCache := filepath.Join(tempHome, ".cache", "showcopier", "compat_cache.json")
	if cfg.Paths.CacheFile != wantCache {
		t.Fatalf("unexpected cache file: got %q want %q", cfg.Paths.CacheFile, wantCache)
	}
	if !cfg.Cache.Lock {
		t.Fatal("expected cache locking enabled by default")
	}
	if cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected ffprobe binary: %q", cfg.FFprobeBinary())
	}
	if cfg.ProbeTimeout() != 30*time.Second {
		t.Fatalf("unexpected probe timeout: %v", cfg.ProbeTimeout())
	}
	if cfg.Player.MinAspectRatio != 1.3 || cfg.Player.MaxAspectRatio != 1.34 {
		t.Fatalf("unexpected aspect range: %v-%v", cfg.Player.MinAspectRatio, cfg.Player.MaxAspectRatio)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.TargetDir, filepath.Dir(cfg.Paths.CacheFile)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if _, err := os.Stat(cfg.Paths.LibraryDir); !os.IsNotExist(err) {
		t.Fatalf("library dir must not be created, stat err = %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "showcopier.toml")

	type payload struct {
		Paths struct {
			LibraryDir string `toml:"library_dir"`
			TargetDir  string `toml:"target_dir"`
			CacheFile  string `toml:"cache_file"`
		} `toml:"paths"`
		Player struct {
			VideoCodecs []string `toml:"video_codecs"`
		} `toml:"player"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.LibraryDir = filepath.Join(tempDir, "tv")
	custom.Paths.TargetDir = filepath.Join(tempDir, "stick")
	custom.Paths.CacheFile = filepath.Join(tempDir, "state", "cache.json")
	custom.Player.VideoCodecs = []string{" XviD ", "xvid", "DIVX", ""}
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.TargetDir != custom.Paths.TargetDir {
		t.Fatalf("expected target dir from file, got %q", cfg.Paths.TargetDir)
	}
	if got := strings.Join(cfg.Player.VideoCodecs, ","); got != "xvid,divx" {
		t.Fatalf("expected normalized video codecs, got %q", got)
	}
	if got := strings.Join(cfg.Player.AudioCodecs, ","); got != "a_ac3,ac3,mp3" {
		t.Fatalf("expected default audio codecs, got %q", got)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestEnvVarOverridesConfigFilePaths(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "showcopier.toml")
	body := "[paths]\nlibrary_dir = \"/srv/file-library\"\ntarget_dir = \"/srv/file-target\"\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	envLibrary := filepath.Join(tempDir, "env-library")
	envTarget := filepath.Join(tempDir, "env-target")
	t.Setenv("SHOWCOPIER_LIBRARY_DIR", envLibrary)
	t.Setenv("SHOWCOPIER_TARGET_DIR", envTarget)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.LibraryDir != envLibrary {
		t.Fatalf("expected env library dir, got %q", cfg.Paths.LibraryDir)
	}
	if cfg.Paths.TargetDir != envTarget {
		t.Fatalf("expected env target dir, got %q", cfg.Paths.TargetDir)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "target inside library",
			mutate: func(c *config.Config) { c.Paths.TargetDir = filepath.Join(c.Paths.LibraryDir, "out") },
			want:   "must not be inside",
		},
		{
			name:   "empty video codecs",
			mutate: func(c *config.Config) { c.Player.VideoCodecs = nil },
			want:   "player.video_codecs",
		},
		{
			name:   "empty audio codecs",
			mutate: func(c *config.Config) { c.Player.AudioCodecs = nil },
			want:   "player.audio_codecs",
		},
		{
			name:   "inverted aspect range",
			mutate: func(c *config.Config) { c.Player.MaxAspectRatio = c.Player.MinAspectRatio },
			want:   "player.max_aspect_ratio",
		},
		{
			name:   "non-positive timeout",
			mutate: func(c *config.Config) { c.Probe.TimeoutSeconds = 0 },
			want:   "probe.timeout_seconds",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.LibraryDir = "/srv/library"
			cfg.Paths.TargetDir = "/srv/target"
			cfg.Paths.CacheFile = "/srv/cache.json"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Player.Name != "Philips DVP3850" {
		t.Fatalf("unexpected player name: %q", cfg.Player.Name)
	}
	if cfg.Paths.LogDir != "" {
		t.Fatalf("expected empty log dir, got %q", cfg.Paths.LogDir)
	}
}
