package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePlayer()
	c.normalizeProbe()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SHOWCOPIER_LIBRARY_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.LibraryDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("SHOWCOPIER_TARGET_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.TargetDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.CacheFile) == "" {
		c.Paths.CacheFile = defaultCacheFile()
	}

	var err error
	if c.Paths.LibraryDir, err = expandPath(strings.TrimSpace(c.Paths.LibraryDir)); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.TargetDir, err = expandPath(strings.TrimSpace(c.Paths.TargetDir)); err != nil {
		return fmt.Errorf("paths.target_dir: %w", err)
	}
	if c.Paths.CacheFile, err = expandPath(strings.TrimSpace(c.Paths.CacheFile)); err != nil {
		return fmt.Errorf("paths.cache_file: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePlayer() {
	c.Player.Name = strings.TrimSpace(c.Player.Name)
	if c.Player.Name == "" {
		c.Player.Name = defaultPlayerName
	}
	c.Player.VideoCodecs = normalizeCodecs(c.Player.VideoCodecs)
	c.Player.AudioCodecs = normalizeCodecs(c.Player.AudioCodecs)
}

// normalizeCodecs lowercases, trims, and de-duplicates codec identifiers.
func normalizeCodecs(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func (c *Config) normalizeProbe() {
	c.Probe.FFprobeBinary = strings.TrimSpace(c.Probe.FFprobeBinary)
	if c.Probe.FFprobeBinary == "" {
		c.Probe.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
