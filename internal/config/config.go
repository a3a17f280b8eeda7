package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains library, target, and state file locations.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	TargetDir  string `toml:"target_dir"`
	CacheFile  string `toml:"cache_file"`
	LogDir     string `toml:"log_dir"`
}

// Player describes the codec and aspect ratio support of the target media player.
type Player struct {
	Name           string   `toml:"name"`
	VideoCodecs    []string `toml:"video_codecs"`
	AudioCodecs    []string `toml:"audio_codecs"`
	MinAspectRatio float64  `toml:"min_aspect_ratio"` // inclusive
	MaxAspectRatio float64  `toml:"max_aspect_ratio"` // exclusive
}

// Probe contains settings for media inspection.
type Probe struct {
	FFprobeBinary  string `toml:"ffprobe_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Cache contains settings for the compatibility cache.
type Cache struct {
	Lock bool `toml:"lock"` // Default: true
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"` // 0 keeps run logs forever
}

// Config encapsulates all configuration values for showcopier.
//
// Configuration sections by subsystem:
//   - Paths: library root, copy destination, cache file, and logs
//   - Player: codec allow-lists and aspect ratio range of the target player
//   - Probe: ffprobe binary and per-file timeout
//   - Cache: compatibility cache behaviour
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Player  Player  `toml:"player"`
	Probe   Probe   `toml:"probe"`
	Cache   Cache   `toml:"cache"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("showcopier.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the target, cache, and log directories. The library
// directory is never created; it must already exist.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.TargetDir, filepath.Dir(c.Paths.CacheFile)}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if binary := strings.TrimSpace(c.Probe.FFprobeBinary); binary != "" {
		return binary
	}
	return defaultFFprobeBinary
}

// ProbeTimeout returns the per-file ffprobe timeout.
func (c *Config) ProbeTimeout() time.Duration {
	if c.Probe.TimeoutSeconds <= 0 {
		return defaultProbeTimeoutSeconds * time.Second
	}
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheFile() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "showcopier", "compat_cache.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/showcopier/compat_cache.json"
	}
	return filepath.Join(home, ".cache", "showcopier", "compat_cache.json")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
