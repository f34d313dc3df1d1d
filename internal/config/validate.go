package config

import (
	"fmt"
	"log/slog"
	"strings"
)

var knownChallengeKinds = map[string]bool{
	"blink":      true,
	"open-mouth": true,
	"turn-left":  true,
	"turn-right": true,
	"head-up":    true,
	"head-down":  true,
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// TieredResult splits validation findings into warnings, which are
// logged and clamped in place without blocking startup, and fatals,
// which mean the config cannot produce a coherent server and must stop
// Load from returning.
type TieredResult struct {
	Warnings []error
	Fatals   []error
}

// HasFatals reports whether the config has any fatal validation error.
func (r TieredResult) HasFatals() bool {
	return len(r.Fatals) > 0
}

// ValidateTiered checks the config for invalid values. Out-of-range
// numeric settings are clamped to a safe default so a malformed config
// cannot panic the server; those are reported as warnings so the
// operator notices. Settings with no safe default to fall back to
// (an unknown challenge kind, an unparseable log level or format) are
// fatal: the server cannot honor what was asked of it, so it should not
// pretend to start.
func (c *Config) ValidateTiered() TieredResult {
	var result TieredResult

	if c.MaxFPS < 1 {
		result.Warnings = append(result.Warnings, fmt.Errorf("max_fps %d is below minimum 1, clamping", c.MaxFPS))
		c.MaxFPS = 1
	} else if c.MaxFPS > 60 {
		result.Warnings = append(result.Warnings, fmt.Errorf("max_fps %d exceeds maximum 60, clamping", c.MaxFPS))
		c.MaxFPS = 60
	}

	if c.MaxMessageBytes < 1024 {
		result.Warnings = append(result.Warnings, fmt.Errorf("max_message_bytes %d is below minimum 1024, clamping", c.MaxMessageBytes))
		c.MaxMessageBytes = 1024
	}

	for _, kind := range c.Challenges {
		if !knownChallengeKinds[strings.ToLower(kind)] {
			result.Fatals = append(result.Fatals, fmt.Errorf("unknown challenge kind %q", kind))
		}
	}

	if c.ReplayWindowMs < 0 {
		result.Warnings = append(result.Warnings, fmt.Errorf("replay_window_ms %d is negative, clamping to 0", c.ReplayWindowMs))
		c.ReplayWindowMs = 0
	}

	if c.MaxRecentHashes < 1 {
		result.Warnings = append(result.Warnings, fmt.Errorf("max_recent_hashes %d is below minimum 1, clamping", c.MaxRecentHashes))
		c.MaxRecentHashes = 1
	}

	if c.FlickerSize < 2 {
		result.Warnings = append(result.Warnings, fmt.Errorf("flicker_size %d is below minimum 2, clamping", c.FlickerSize))
		c.FlickerSize = 2
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		result.Fatals = append(result.Fatals, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		result.Fatals = append(result.Fatals, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	for _, err := range result.Warnings {
		slog.Warn("config validation", "error", err)
	}

	return result
}
