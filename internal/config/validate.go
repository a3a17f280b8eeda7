package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePlayer(); err != nil {
		return err
	}
	if err := c.validateProbe(); err != nil {
		return err
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.TargetDir) == "" {
		return errors.New("paths.target_dir must be set")
	}
	if strings.TrimSpace(c.Paths.CacheFile) == "" {
		return errors.New("paths.cache_file must be set")
	}
	if isWithin(c.Paths.LibraryDir, c.Paths.TargetDir) {
		return fmt.Errorf("paths.target_dir %q must not be inside paths.library_dir %q", c.Paths.TargetDir, c.Paths.LibraryDir)
	}
	return nil
}

func (c *Config) validatePlayer() error {
	if len(c.Player.VideoCodecs) == 0 {
		return errors.New("player.video_codecs must include at least one codec")
	}
	if len(c.Player.AudioCodecs) == 0 {
		return errors.New("player.audio_codecs must include at least one codec")
	}
	if c.Player.MinAspectRatio <= 0 {
		return errors.New("player.min_aspect_ratio must be positive")
	}
	if c.Player.MaxAspectRatio <= c.Player.MinAspectRatio {
		return errors.New("player.max_aspect_ratio must be greater than player.min_aspect_ratio")
	}
	return nil
}

func (c *Config) validateProbe() error {
	if c.Probe.TimeoutSeconds <= 0 {
		return errors.New("probe.timeout_seconds must be positive")
	}
	return nil
}

func isWithin(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
