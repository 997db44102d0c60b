package vpbridge

import "vpbridge/internal/config"

// Re-export the tunables from the config sub-package so callers can
// construct a Session without importing internal paths.

// Tunables holds the session-wide pacing, decay and processing knobs.
type Tunables = config.Tunables

// DefaultTunables returns the tunables the bridge ships with.
func DefaultTunables() Tunables { return config.Default() }

// TunablesFromEnv returns the defaults overlaid with any recognised
// environment overrides (VPBRIDGE_TRACE, VPBRIDGE_RENDER_GUARD_MULT).
func TunablesFromEnv() Tunables { return config.FromEnv() }
