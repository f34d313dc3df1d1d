package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds the full set of tunables for the liveness server, loaded
// from a YAML file, environment variables (LIVENESS_ prefix), or defaults.
type Config struct {
	BindAddr string `mapstructure:"bind_addr"`

	MaxFPS          int      `mapstructure:"max_fps"`
	MaxMessageBytes int      `mapstructure:"max_message_bytes"`
	Challenges      []string `mapstructure:"challenges"`

	// PAD tunables, mirrored on the wire by GET /config.
	ReplayWindowMs            int64   `mapstructure:"replay_window_ms"`
	AllowClockSkewMs          int64   `mapstructure:"allow_clock_skew_ms"`
	MaxRecentHashes           int     `mapstructure:"max_recent_hashes"`
	DuplicateHammingThreshold int     `mapstructure:"duplicate_hamming_threshold"`
	FlickerSize               int     `mapstructure:"flicker_size"`
	FlickerSuspectThreshold   float64 `mapstructure:"flicker_suspect_threshold"`

	// Face detector model catalog.
	ModelsDir string `mapstructure:"models_dir"`

	// Logging configuration.
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
}

func Default() *Config {
	return &Config{
		BindAddr:        ":8080",
		MaxFPS:          15,
		MaxMessageBytes: 1 << 20,
		Challenges:      []string{"open-mouth", "turn-left", "turn-right", "head-up"},

		ReplayWindowMs:            5000,
		AllowClockSkewMs:          1000,
		MaxRecentHashes:           32,
		DuplicateHammingThreshold: 0,
		FlickerSize:               32,
		FlickerSuspectThreshold:   0.2,

		ModelsDir: "models",

		LogLevel:      "info",
		LogFormat:     "text",
		LogMaxSizeMB:  50,
		LogMaxBackups: 3,
	}
}

// Load reads configuration from cfgFile (or the default search path) and
// overlays environment variables, falling back to Default() for anything
// unset. A config file missing from the default search path is tolerated;
// a missing file named by cfgFile, or a malformed file, is an error.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("livenessd")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("LIVENESS")
	// Unmarshal only sees environment values for keys viper already knows,
	// so every key is bound explicitly rather than relying on AutomaticEnv.
	for _, key := range []string{
		"bind_addr", "max_fps", "max_message_bytes", "challenges",
		"replay_window_ms", "allow_clock_skew_ms", "max_recent_hashes",
		"duplicate_hamming_threshold", "flicker_size", "flicker_suspect_threshold",
		"models_dir", "log_level", "log_format", "log_file",
		"log_max_size_mb", "log_max_backups",
	} {
		viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Fatals block startup; warnings are logged (and already clamped in
	// place by ValidateTiered) and startup continues.
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		for _, err := range result.Fatals {
			slog.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "livenessd")
	case "darwin":
		return "/Library/Application Support/livenessd"
	default:
		return "/etc/livenessd"
	}
}
