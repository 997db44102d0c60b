// Package aec provides a Normalized Least Mean Squares (NLMS) acoustic
// echo canceller for the bridge's voice-processing chain. The render path
// feeds each block it emits as the far-end reference; the capture path
// then subtracts the estimated echo before the noise gate and AGC see
// the signal.
//
// Usage, with mono float32 PCM at 16 kHz:
//
//	proc := aec.New(160) // 160 samples = 10 ms
//
//	// On the render side, AFTER filling the output block:
//	proc.FeedFarEnd(block)
//
//	// On the capture side, BEFORE any other processing:
//	proc.Process(frame) // modifies frame in-place
package aec

import "sync"

const (
	// DefaultDelay is the bulk delay (samples) assumed between playback
	// and the echo arriving at the microphone. 640 samples = 40 ms at
	// 16 kHz, covering typical DAC + acoustic path + ADC latency.
	DefaultDelay = 640

	// DefaultTaps is the NLMS filter length (samples). 160 samples =
	// 10 ms at 16 kHz; residual delay and room response are handled
	// within this window after the bulk delay.
	DefaultTaps = 160

	// DefaultStep is the NLMS step size mu (0 < mu < 2). Smaller values
	// converge more slowly but are more stable.
	DefaultStep = 0.1
)

// AEC is an NLMS-based acoustic echo canceller.
//
// The far-end circular buffer is sized so the writer (FeedFarEnd) and
// reader (Process) always touch disjoint regions; the mutex is held only
// for the reference copy and configuration changes, never during the
// NLMS loop itself.
type AEC struct {
	mu      sync.Mutex
	enabled bool

	weights []float64 // adaptive filter coefficients [tapLen]
	tapLen  int
	step    float64

	// Circular far-end (render) reference signal.
	farBuf    []float32
	farHead   int
	bufLen    int
	delayLen  int
	frameSize int

	// ref is the scratch copy of the reference window, reused across
	// Process calls; the capture side is single-threaded.
	ref []float32
}

// New creates an AEC for the given PCM frame size in samples
// (160 for 10 ms at 16 kHz).
func New(frameSize int) *AEC {
	bufLen := frameSize + DefaultDelay + DefaultTaps
	return &AEC{
		enabled:   true,
		weights:   make([]float64, DefaultTaps),
		tapLen:    DefaultTaps,
		step:      DefaultStep,
		farBuf:    make([]float32, bufLen),
		bufLen:    bufLen,
		delayLen:  DefaultDelay,
		frameSize: frameSize,
		ref:       make([]float32, frameSize+DefaultTaps-1),
	}
}

// SetEnabled enables or disables echo cancellation. Enabling resets the
// filter weights so adaptation starts from scratch.
func (a *AEC) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	if enabled {
		for i := range a.weights {
			a.weights[i] = 0
		}
	}
	a.mu.Unlock()
}

// Enabled reports whether cancellation is currently active.
func (a *AEC) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// FeedFarEnd stores the most recent render block as the far-end
// reference. Call from the render side after filling the output.
func (a *AEC) FeedFarEnd(block []float32) {
	a.mu.Lock()
	for _, s := range block {
		a.farBuf[a.farHead] = s
		a.farHead = (a.farHead + 1) % a.bufLen
	}
	a.mu.Unlock()
}

// Process applies echo cancellation to a captured frame in-place.
// Call from the capture side before any other processing.
//
// The algorithm:
//  1. Copies the relevant far-end reference window (locked briefly).
//  2. Runs NLMS sample-by-sample outside the lock.
//  3. Output sample = near_end[i] − Σ w[k]·far_end[i+tapLen−1−k], with
//     the weight update steering w toward the actual echo path.
func (a *AEC) Process(frame []float32) {
	a.mu.Lock()
	if !a.enabled {
		a.mu.Unlock()
		return
	}

	// Copy the reference window into the scratch so NLMS runs unlocked.
	// For sample i and tap k the reference sample is ref[i+tapLen−1−k],
	// so the window starts at farHead − frameSize − delayLen − tapLen + 1.
	refLen := a.frameSize + a.tapLen - 1
	ref := a.ref[:refLen]
	startIdx := a.farHead - a.frameSize - a.delayLen - a.tapLen + 1
	for j := range refLen {
		// Add 3*bufLen to guarantee a positive dividend before modulo.
		idx := ((startIdx+j)%a.bufLen + 3*a.bufLen) % a.bufLen
		ref[j] = a.farBuf[idx]
	}
	a.mu.Unlock()

	// Weights are only touched here; the capture side is single-threaded.
	for i := range frame {
		refBase := i + a.tapLen - 1

		var y, powerSum float64
		for k := 0; k < a.tapLen; k++ {
			x := float64(ref[refBase-k])
			y += a.weights[k] * x
			powerSum += x * x
		}

		e := float64(frame[i]) - y

		// Normalised update: w[k] += mu·e·x[k] / (‖x‖² + ε).
		if powerSum > 1e-10 {
			step := a.step * e / powerSum
			for k := 0; k < a.tapLen; k++ {
				a.weights[k] += step * float64(ref[refBase-k])
			}
		}

		frame[i] = float32(e)
	}
}
