// Package noisegate implements a hard noise gate for the bridge's
// capture path: frames whose RMS stays below the threshold after the
// hold period expires are zeroed entirely. It runs after echo
// cancellation so residual echo and room noise between utterances do not
// leak downstream. Frames are mono float32 PCM, 10 ms at 16 kHz.
package noisegate

import "vpbridge/internal/vad"

const (
	// DefaultThreshold is the RMS level below which audio is gated
	// (~-40 dBFS).
	DefaultThreshold = float32(0.01)

	// DefaultHold is the number of frames the gate stays open after the
	// signal drops below threshold (200 ms at 10 ms per frame), so brief
	// pauses inside speech are not chopped.
	DefaultHold = 20
)

// Gate zeroes frames below a threshold. Not safe for concurrent use; the
// capture path is the sole caller.
type Gate struct {
	threshold float32
	hold      int
	remaining int
	open      bool
}

// New returns a Gate with DefaultThreshold and DefaultHold.
func New() *Gate {
	return &Gate{threshold: DefaultThreshold, hold: DefaultHold}
}

// SetThreshold sets the RMS level below which frames are gated.
func (g *Gate) SetThreshold(rms float32) {
	if rms < 0 {
		rms = 0
	}
	g.threshold = rms
}

// Threshold returns the current RMS threshold (linear amplitude).
func (g *Gate) Threshold() float32 { return g.threshold }

// IsOpen reports whether the gate is currently passing audio.
func (g *Gate) IsOpen() bool { return g.open }

// Process applies the gate to frame in-place and returns the frame RMS
// measured before gating (useful for level metering and the speech
// detector, which must see pre-gate energy).
func (g *Gate) Process(frame []float32) float32 {
	rms := vad.RMS(frame)

	if rms >= g.threshold {
		g.remaining = g.hold
		g.open = true
		return rms
	}

	if g.remaining > 0 {
		g.remaining--
		g.open = true
		return rms
	}

	for i := range frame {
		frame[i] = 0
	}
	g.open = false
	return rms
}

// Reset closes the gate and clears the hold counter.
func (g *Gate) Reset() {
	g.remaining = 0
	g.open = false
}
