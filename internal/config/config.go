// Package config holds the bridge tunables and their environment
// overrides. Loading never fails: unset or malformed variables fall back
// to the defaults, so callers always get a usable Tunables value.
package config

import (
	"os"
	"strconv"
)

// Environment variable names recognised by the bridge.
const (
	// EnvTrace enables verbose pacing/render logging when set to anything
	// other than "" or "0".
	EnvTrace = "VPBRIDGE_TRACE"

	// EnvRenderGuardMult overrides the render guard multiplier used to size
	// playback headroom against the largest observed hardware pull.
	EnvRenderGuardMult = "VPBRIDGE_RENDER_GUARD_MULT"
)

// Guard multiplier bounds. Values outside this range either waste latency
// or defeat the guard entirely, so overrides are clamped.
const (
	MinRenderGuardMult = 1.0
	MaxRenderGuardMult = 4.0
)

// Tunables are the session-wide knobs. The pacing constants are
// empirically tuned and hardware/scheduler dependent, which is why they
// are carried as configuration rather than hard constants.
type Tunables struct {
	// Trace enables verbose logging on the pacing and render paths.
	Trace bool

	// RenderGuardMult scales the largest observed render pull when
	// computing the steady-state playback target.
	RenderGuardMult float64

	// SliceMs is the pacing quantum: how much audio the pacer moves per
	// iteration and how long it sleeps between iterations.
	SliceMs int

	// PrerollMs is how much audio must accumulate in the playback ring
	// before steady pacing begins.
	PrerollMs int

	// HeadroomMs is the minimum buffered duration the pacer maintains
	// during steady playback.
	HeadroomMs int

	// DecayInterval is the number of render pulls between decays of the
	// observed maximum pull size; DecayDivisor is the fraction removed
	// each time (cur - cur/DecayDivisor). 100 and 50 give ~2% per 100
	// pulls, enough to forget a one-off spike without chasing jitter.
	DecayInterval int
	DecayDivisor  int

	// BypassProcessing disables the voice-processing chain (AEC, noise
	// gate, AGC) in the hardware binding. Off by default: the bridge
	// exists to sit behind an echo-cancelled capture path.
	BypassProcessing bool
}

// Default returns the tunables the bridge ships with.
func Default() Tunables {
	return Tunables{
		RenderGuardMult: 1.5,
		SliceMs:         5,
		PrerollMs:       40,
		HeadroomMs:      10,
		DecayInterval:   100,
		DecayDivisor:    50,
	}
}

// FromEnv returns Default overlaid with any recognised environment
// overrides. Malformed values are ignored.
func FromEnv() Tunables {
	t := Default()
	if v := os.Getenv(EnvTrace); v != "" && v != "0" {
		t.Trace = true
	}
	if v := os.Getenv(EnvRenderGuardMult); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			t.RenderGuardMult = ClampGuardMult(f)
		}
	}
	return t
}

// ClampGuardMult clamps m to [MinRenderGuardMult, MaxRenderGuardMult].
func ClampGuardMult(m float64) float64 {
	if m < MinRenderGuardMult {
		return MinRenderGuardMult
	}
	if m > MaxRenderGuardMult {
		return MaxRenderGuardMult
	}
	return m
}
