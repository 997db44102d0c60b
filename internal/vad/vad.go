// Package vad provides frame energy measurement and a simple
// energy-based speech activity detector for mono float32 PCM at the
// bridge's native 16 kHz, 160-sample (10 ms) frame size.
//
// The detector is observational only: the bridge never drops capture
// frames based on it. It exists so callers can see whether the
// echo-cancelled capture path currently carries speech, and a hangover
// counter keeps the detector active for a short tail after the last
// speech frame so word endings are not reported as silence.
package vad

import "math"

const (
	// DefaultThreshold is the RMS level below which a frame counts as
	// silence (~-46 dBFS): low enough for quiet speech, high enough to
	// ignore residual hum left after echo cancellation.
	DefaultThreshold = float32(0.005)

	// DefaultHangover is the number of silent frames the detector stays
	// active after speech ends (~400 ms at 10 ms per frame).
	DefaultHangover = 40
)

// Detector classifies frames as speech or silence by RMS energy.
// Not safe for concurrent use; the capture path is the sole caller.
type Detector struct {
	threshold float32
	hangover  int
	remaining int
}

// New returns a Detector with the default threshold and hangover.
func New() *Detector {
	return &Detector{threshold: DefaultThreshold, hangover: DefaultHangover}
}

// SetThreshold sets the RMS level above which a frame counts as speech.
func (d *Detector) SetThreshold(rms float32) {
	if rms < 0 {
		rms = 0
	}
	d.threshold = rms
}

// Active updates the detector with one frame's RMS and reports whether
// speech is currently present (directly or within the hangover tail).
func (d *Detector) Active(rms float32) bool {
	if rms > d.threshold {
		d.remaining = d.hangover
		return true
	}
	if d.remaining > 0 {
		d.remaining--
		return true
	}
	return false
}

// Reset clears the hangover tail.
func (d *Detector) Reset() {
	d.remaining = 0
}

// RMS returns the root-mean-square of a float32 PCM frame.
func RMS(frame []float32) float32 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(frame))))
}
