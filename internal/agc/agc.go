// Package agc implements a software automatic gain control stage for the
// bridge's capture path: mono float32 PCM at 16 kHz in 10 ms
// (160-sample) frames.
//
// Each frame's RMS is compared against a target level, and a
// multiplicative gain is eased toward the gain that would hit the target.
// Attack (gain reduction) is much faster than release so loud transients
// are tamed quickly without the noise floor pumping up between words.
package agc

import "vpbridge/internal/vad"

const (
	// DefaultTarget is the desired frame RMS (linear, ~-14 dBFS).
	DefaultTarget = 0.20

	// MinGain and MaxGain bound the correction to ±20 dB so silence is not
	// amplified without limit.
	MinGain = 0.1
	MaxGain = 10.0

	// AttackCoeff and ReleaseCoeff are the per-frame smoothing factors.
	// At 10 ms frames the attack settles in roughly 20 ms; release takes
	// around a second, slow enough to avoid audible pumping.
	AttackCoeff  = 0.65
	ReleaseCoeff = 0.01

	// minRMS is the noise floor below which the gain estimate is frozen.
	minRMS = 0.001
)

// AGC is a single-channel automatic gain control stage. Zero value is not
// usable; use New().
type AGC struct {
	target float64
	gain   float64
}

// New returns an AGC with DefaultTarget and unity gain.
func New() *AGC {
	return &AGC{target: DefaultTarget, gain: 1.0}
}

// SetTarget sets the desired frame RMS (linear amplitude, clamped to
// [0.01, 0.5]).
func (a *AGC) SetTarget(target float64) {
	if target < 0.01 {
		target = 0.01
	}
	if target > 0.5 {
		target = 0.5
	}
	a.target = target
}

// Process applies the current gain to frame in-place, then updates the
// gain estimate from the frame's RMS. Returns frame for chaining.
func (a *AGC) Process(frame []float32) []float32 {
	if len(frame) == 0 {
		return frame
	}

	rms := float64(vad.RMS(frame))

	// Apply the current gain first so the update affects the next frame,
	// not the one being heard.
	for i, s := range frame {
		v := s * float32(a.gain)
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		frame[i] = v
	}

	if rms < minRMS {
		return frame
	}

	desired := a.target / rms
	if desired < MinGain {
		desired = MinGain
	} else if desired > MaxGain {
		desired = MaxGain
	}

	coeff := ReleaseCoeff
	if desired < a.gain {
		coeff = AttackCoeff
	}
	a.gain += coeff * (desired - a.gain)

	return frame
}

// Gain returns the current linear gain multiplier (informational).
func (a *AGC) Gain() float64 { return a.gain }

// Reset returns the gain to unity without changing the target.
func (a *AGC) Reset() { a.gain = 1.0 }
