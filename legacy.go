package vpbridge

import (
	"errors"
	"fmt"
	"log"
	"time"

	"vpbridge/internal/ring"
)

// pollInterval is the busy-wait granularity of the blocking legacy
// calls.
const pollInterval = 10 * time.Millisecond

var (
	// ErrNotInitialized is returned by the legacy calls when the
	// hardware unit has not been started.
	ErrNotInitialized = errors.New("audio unit not initialized")

	// ErrBusy is returned when a legacy call overlaps another one-shot
	// operation.
	ErrBusy = errors.New("one-shot operation already in progress")
)

// Record captures the given number of seconds of echo-cancelled
// microphone audio and returns it as 16-bit LE mono PCM. It blocks
// until the duration has elapsed. During the call the session reports
// ModeRecording; afterwards it returns to Idle, or stays Recording if a
// stream is active. Capture bytes are diverted from the streaming ring
// for the duration of the call.
func (s *Session) Record(seconds int) ([]byte, error) {
	if seconds <= 0 {
		return nil, fmt.Errorf("record: invalid duration %ds", seconds)
	}
	s.mu.Lock()
	if s.unit == nil {
		s.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if s.captureArmed.Load() || s.oneShot.Load() != nil {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	want := seconds * s.bytesPerMs() * 1000
	lr := ring.New(want)
	s.legacyCap.Store(lr)
	s.captureArmed.Store(true)
	s.mode.Store(int32(ModeRecording))
	s.mu.Unlock()

	deadline := time.Now().Add(time.Duration(seconds)*time.Second + 500*time.Millisecond)
	for lr.Buffered() < want && time.Now().Before(deadline) {
		time.Sleep(pollInterval)
	}

	s.captureArmed.Store(false)
	s.legacyCap.Store(nil)
	if s.Streaming() {
		s.mode.Store(int32(ModeRecording))
	} else {
		s.mode.Store(int32(ModeIdle))
	}

	out := make([]byte, lr.Buffered())
	n := lr.Read(out)
	out = out[:n]
	s.lastCapture.Store(&out)
	log.Printf("[bridge] record done want=%d got=%d", want, n)
	return out, nil
}

// CaptureBytes returns the result of the most recent Record call, or
// nil if none has completed since the last ResetCapture.
func (s *Session) CaptureBytes() []byte {
	if p := s.lastCapture.Load(); p != nil {
		return *p
	}
	return nil
}

// ResetCapture discards the stored recording.
func (s *Session) ResetCapture() {
	s.lastCapture.Store(nil)
}

// Play renders the given 16-bit LE mono PCM buffer through the
// voice-processing output and blocks until every byte has been pulled
// by the hardware. Playback takes priority over the streaming playback
// ring for its duration. The buffer must not be mutated until Play
// returns.
func (s *Session) Play(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	s.mu.Lock()
	if s.unit == nil {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	if s.oneShot.Load() != nil || s.captureArmed.Load() {
		s.mu.Unlock()
		return ErrBusy
	}
	os := &oneShotPlayback{data: data}
	s.oneShot.Store(os)
	s.mode.Store(int32(ModePlaying))
	s.mu.Unlock()

	// Generous deadline: playback duration plus a second of slack for
	// device startup.
	durMs := len(data) / s.bytesPerMs()
	deadline := time.Now().Add(time.Duration(durMs)*time.Millisecond + time.Second)
	for s.oneShot.Load() == os && time.Now().Before(deadline) {
		time.Sleep(pollInterval)
	}
	if s.oneShot.CompareAndSwap(os, nil) {
		// Timed out with bytes still pending; restore the resting mode
		// ourselves since the render callback will not.
		if s.Streaming() {
			s.mode.Store(int32(ModeRecording))
		} else {
			s.mode.Store(int32(ModeIdle))
		}
		return fmt.Errorf("play: timed out with %d bytes pending", len(data)-int(os.off.Load()))
	}
	return nil
}
