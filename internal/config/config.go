// Package config holds the bridge's startup configuration, populated from
// cobra flags the way the teacher's jmx.Config is populated from watch's
// flag set.
package config

import (
	"fmt"
	"time"
)

// Config is the bridge's process-level configuration. Every field is a
// plain value set once at startup; nothing here is touched after Execute
// hands control to the session engine.
type Config struct {
	// MaxTokens bounds every value-rendering budget (spec.md §4.D).
	MaxTokens int

	// StepTimeoutSeconds is the default step_over/into/out wait when a
	// request omits timeout_seconds.
	StepTimeoutSeconds float64

	// AnrWarningMillis is exposed through GetAnrWarning; no component reads
	// it. The stopped payload's ANR warning uses its own fixed threshold
	// (stopped.ANRWarningSeconds).
	AnrWarningMillis int

	// LogpointRingCapacity is not read by any component; each breakpoint's
	// recent-hits ring is sized by breakpoint.LogRingCapacity.
	LogpointRingCapacity int

	// Debug enables verbose session tracing to stderr.
	Debug bool

	// DebugLogFile tees session trace lines to a file in addition to
	// stderr, mirroring the teacher's DebugLogFile.
	DebugLogFile string
}

// Default returns the configuration the bridge starts with before flags
// are applied.
func Default() Config {
	return Config{
		MaxTokens:            4000,
		StepTimeoutSeconds:   10.0,
		AnrWarningMillis:     2000,
		LogpointRingCapacity: 20,
	}
}

func (c *Config) GetStepTimeout() time.Duration {
	return time.Duration(c.StepTimeoutSeconds * float64(time.Second))
}

func (c *Config) GetAnrWarning() time.Duration {
	return time.Duration(c.AnrWarningMillis) * time.Millisecond
}

func (c *Config) String() string {
	if c.Debug {
		return fmt.Sprintf("max_tokens=%d step_timeout=%.1fs debug_log=%s", c.MaxTokens, c.StepTimeoutSeconds, c.DebugLogFile)
	}
	return fmt.Sprintf("max_tokens=%d step_timeout=%.1fs", c.MaxTokens, c.StepTimeoutSeconds)
}
