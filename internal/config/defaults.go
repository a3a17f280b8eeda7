package config

const (
	defaultConfigPath          = "~/.config/showcopier/config.toml"
	defaultLibraryDir          = "~/library/tv"
	defaultTargetDir           = "~/usb"
	defaultPlayerName          = "Philips DVP3850"
	defaultMinAspectRatio      = 1.3
	defaultMaxAspectRatio      = 1.34
	defaultFFprobeBinary       = "ffprobe"
	defaultProbeTimeoutSeconds = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

var (
	defaultVideoCodecs = []string{"xvid", "divx", "dx50"}
	defaultAudioCodecs = []string{"a_ac3", "ac3", "mp3"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			TargetDir:  defaultTargetDir,
			CacheFile:  defaultCacheFile(),
		},
		Player: Player{
			Name:           defaultPlayerName,
			VideoCodecs:    append([]string(nil), defaultVideoCodecs...),
			AudioCodecs:    append([]string(nil), defaultAudioCodecs...),
			MinAspectRatio: defaultMinAspectRatio,
			MaxAspectRatio: defaultMaxAspectRatio,
		},
		Probe: Probe{
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Cache: Cache{
			Lock: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
