package vpbridge

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"vpbridge/internal/config"
	"vpbridge/internal/ring"
)

const (
	// DefaultSampleRate is the stream rate used when the caller passes 0.
	DefaultSampleRate = 16000

	channelCount   = 1 // the voice-processing path is mono only
	bytesPerSample = 2 // 16-bit signed little-endian PCM
)

// Mode is the legacy one-shot state of the session. A streaming session
// sits in ModeRecording for its whole life so echo cancellation stays
// engaged regardless of playback activity.
type Mode int32

const (
	ModeIdle Mode = iota
	ModeRecording
	ModePlaying
)

// String returns the lower-case mode name.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeRecording:
		return "recording"
	case ModePlaying:
		return "playing"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

// Session owns the hardware unit, the three streaming rings and the
// legacy one-shot buffers. Create one per process with New, start it
// with Init or StartStream, and dispose of it with Shutdown.
//
// The rings sit behind atomic pointers so the hardware callbacks can
// load them without locks; the lifecycle mutex is never taken on the
// callback path.
type Session struct {
	cfg config.Tunables

	// newUnit opens the platform binding; swapped for a stub in tests.
	newUnit func(sampleRate int, cfg config.Tunables) (HardwareUnit, error)

	mu         sync.Mutex // lifecycle: init/start/stop/shutdown
	unit       HardwareUnit
	sampleRate int

	mode      atomic.Int32
	streaming atomic.Bool

	capRing  atomic.Pointer[ring.Ring]
	playRing atomic.Pointer[ring.Ring]
	staging  atomic.Pointer[ring.Staging]

	// Render pull statistics, updated by the hardware callback and read
	// by the pacer to size playback headroom.
	renderLast  atomic.Uint64
	renderMax   atomic.Uint64
	renderPulls atomic.Uint64
	underflows  atomic.Uint64

	headroomMs atomic.Int32

	pacerMu    sync.Mutex
	pacerRun   atomic.Bool
	pacerDone  chan struct{}
	didPreroll atomic.Bool

	// Legacy one-shot state. The capture side is a ring sized at arm
	// time; the playback side is an immutable buffer with an atomic
	// read offset, published before the mode switch.
	captureArmed atomic.Bool
	legacyCap    atomic.Pointer[ring.Ring]
	lastCapture  atomic.Pointer[[]byte]
	oneShot      atomic.Pointer[oneShotPlayback]
}

// oneShotPlayback is the legacy Play buffer. data is written once before
// publication; only off mutates afterwards.
type oneShotPlayback struct {
	data []byte
	off  atomic.Uint64
}

// New returns a Session configured from the environment
// (VPBRIDGE_TRACE, VPBRIDGE_RENDER_GUARD_MULT) backed by the PortAudio
// hardware unit.
func New() *Session {
	return NewWithTunables(config.FromEnv())
}

// NewWithTunables returns a Session with explicit tunables.
func NewWithTunables(t Tunables) *Session {
	t.RenderGuardMult = config.ClampGuardMult(t.RenderGuardMult)
	s := &Session{
		cfg:     t,
		newUnit: openPortAudioUnit,
	}
	s.headroomMs.Store(int32(t.HeadroomMs))
	return s
}

// Init acquires and starts the hardware unit at the given sample rate
// (0 means DefaultSampleRate). It fails fast: any negotiation error is
// returned as-is with no internal retry, and the caller must treat it as
// fatal for this attempt. Calling Init on an initialised session is a
// no-op. Re-Init after Shutdown is legal.
func (s *Session) Init(sampleRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked(sampleRate)
}

func (s *Session) initLocked(sampleRate int) error {
	if s.unit != nil {
		return nil
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	unit, err := s.newUnit(sampleRate, s.cfg)
	if err != nil {
		return fmt.Errorf("acquire audio unit: %w", err)
	}
	if err := unit.Start(s); err != nil {
		unit.Close()
		return fmt.Errorf("start audio unit: %w", err)
	}
	s.unit = unit
	s.sampleRate = sampleRate
	s.mode.Store(int32(ModeIdle))
	if s.cfg.Trace {
		log.Printf("[bridge] unit started rate=%d", sampleRate)
	}
	return nil
}

// StartStream initialises the hardware (if needed), allocates the
// capture, playback and staging rings and enters the always-recording
// streaming state. channels is forced to mono; ringCapacityBytes is
// raised to at least one second of audio at the configured rate.
func (s *Session) StartStream(sampleRate, channels, ringCapacityBytes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initLocked(sampleRate); err != nil {
		return err
	}
	if channels != channelCount && s.cfg.Trace {
		log.Printf("[bridge] forcing mono (requested %d channels)", channels)
	}
	if minCap := s.sampleRate * channelCount * bytesPerSample; ringCapacityBytes < minCap {
		ringCapacityBytes = minCap
	}
	s.capRing.Store(ring.New(ringCapacityBytes))
	s.playRing.Store(ring.New(ringCapacityBytes))
	s.staging.Store(ring.NewStaging(ringCapacityBytes))
	s.streaming.Store(true)
	s.mode.Store(int32(ModeRecording))
	log.Printf("[bridge] stream started rate=%d ringCap=%d", s.sampleRate, ringCapacityBytes)
	return nil
}

// StopStream stops the pacer if it is running, releases the streaming
// rings and returns the session to Idle. The hardware unit stays up;
// use Shutdown to dispose of it.
func (s *Session) StopStream() {
	s.StopPacer()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.streaming.Load() {
		return
	}
	s.streaming.Store(false)
	s.mode.Store(int32(ModeIdle))
	s.capRing.Store(nil)
	s.playRing.Store(nil)
	s.staging.Store(nil)
	log.Printf("[bridge] stream stopped")
}

// Shutdown stops everything and disposes of the hardware unit and all
// buffers. Safe to call on a session that was never started; the
// session may be re-initialised afterwards.
func (s *Session) Shutdown() {
	s.StopPacer()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming.Store(false)
	s.mode.Store(int32(ModeIdle))
	s.capRing.Store(nil)
	s.playRing.Store(nil)
	s.staging.Store(nil)
	s.captureArmed.Store(false)
	s.legacyCap.Store(nil)
	s.lastCapture.Store(nil)
	s.oneShot.Store(nil)
	if s.unit != nil {
		if err := s.unit.Stop(); err != nil {
			log.Printf("[bridge] unit stop: %v", err)
		}
		if err := s.unit.Close(); err != nil {
			log.Printf("[bridge] unit close: %v", err)
		}
		s.unit = nil
		log.Printf("[bridge] shut down")
	}
}

// Mode returns the session's current legacy mode.
func (s *Session) Mode() Mode {
	return Mode(s.mode.Load())
}

// Streaming reports whether the streaming rings are live.
func (s *Session) Streaming() bool {
	return s.streaming.Load()
}

// WriteFrame appends an outgoing audio chunk to the staging ring. The
// chunk may be any size; staging grows as needed so every byte is
// accepted. Returns the number of bytes accepted (len(p), or 0 when no
// stream is active).
func (s *Session) WriteFrame(p []byte) int {
	st := s.staging.Load()
	if st == nil {
		return 0
	}
	return st.Write(p)
}

// ReadCapture drains up to len(p) bytes of echo-cancelled microphone
// audio from the capture ring. It may return fewer bytes than requested
// and never blocks.
func (s *Session) ReadCapture(p []byte) int {
	cr := s.capRing.Load()
	if cr == nil {
		return 0
	}
	return cr.Read(p)
}

// WritePlayback appends directly to the playback ring, bypassing the
// staging/pacing path. The ring drops its oldest bytes if p does not
// fit. Returns len(p), or 0 when no stream is active.
func (s *Session) WritePlayback(p []byte) int {
	pr := s.playRing.Load()
	if pr == nil {
		return 0
	}
	return pr.Write(p)
}

// FlushPlayback immediately drops all pending bytes in the playback
// ring. The next hardware pull plays silence (and counts an underflow).
func (s *Session) FlushPlayback() {
	if pr := s.playRing.Load(); pr != nil {
		pr.Flush()
	}
}

// FlushInput immediately drops all pending bytes in the staging ring.
// Together with FlushPlayback this implements barge-in cancellation.
func (s *Session) FlushInput() {
	if st := s.staging.Load(); st != nil {
		st.Flush()
	}
}

// UnderflowCount returns the number of hardware pulls that could not be
// fully satisfied from the playback ring since the last reset.
func (s *Session) UnderflowCount() uint64 {
	return s.underflows.Load()
}

// ResetUnderflowCount zeroes the glitch counter.
func (s *Session) ResetUnderflowCount() {
	s.underflows.Store(0)
}

// SetHeadroom adjusts the steady-state latency/safety tradeoff: the
// pacer keeps at least ms milliseconds of audio buffered during steady
// playback. Negative values clamp to zero.
func (s *Session) SetHeadroom(ms int) {
	if ms < 0 {
		ms = 0
	}
	s.headroomMs.Store(int32(ms))
}

// RenderStats returns the most recent and the (decayed) largest hardware
// pull sizes in bytes.
func (s *Session) RenderStats() (last, max uint64) {
	return s.renderLast.Load(), s.renderMax.Load()
}

// RingLevels returns the current fill of the capture and playback rings
// in bytes.
func (s *Session) RingLevels() (capture, playback int) {
	if cr := s.capRing.Load(); cr != nil {
		capture = cr.Buffered()
	}
	if pr := s.playRing.Load(); pr != nil {
		playback = pr.Buffered()
	}
	return capture, playback
}

// StagingLevel returns the number of bytes waiting in the staging ring.
func (s *Session) StagingLevel() int {
	if st := s.staging.Load(); st != nil {
		return st.Buffered()
	}
	return 0
}

// StagingCapacity returns the staging ring's current capacity.
func (s *Session) StagingCapacity() int {
	if st := s.staging.Load(); st != nil {
		return st.Capacity()
	}
	return 0
}

// SpeechActive reports whether the capture path currently carries
// speech, when the hardware unit exposes a detector. Always false
// otherwise.
func (s *Session) SpeechActive() bool {
	s.mu.Lock()
	unit := s.unit
	s.mu.Unlock()
	if r, ok := unit.(SpeechReporter); ok {
		return r.SpeechActive()
	}
	return false
}

// bytesPerMs returns the byte rate per millisecond of the negotiated
// format (exact at 16 kHz mono 16-bit: 32 bytes/ms).
func (s *Session) bytesPerMs() int {
	rate := s.sampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return rate * channelCount * bytesPerSample / 1000
}

// DebugDump logs and returns a one-line diagnostic snapshot: mode,
// processing bypass state, negotiated sample rates and ring fill levels.
func (s *Session) DebugDump() string {
	s.mu.Lock()
	unit := s.unit
	s.mu.Unlock()

	bypass := false
	var inSR, outSR float64
	if unit != nil {
		bypass = unit.ProcessingBypassed()
		inSR = unit.InputSampleRate()
		outSR = unit.OutputSampleRate()
	}
	capLevel, playLevel := s.RingLevels()
	capCap, playCap := 0, 0
	if cr := s.capRing.Load(); cr != nil {
		capCap = cr.Capacity()
	}
	if pr := s.playRing.Load(); pr != nil {
		playCap = pr.Capacity()
	}
	msg := fmt.Sprintf(
		"mode=%s bypass=%v inSR=%.0f outSR=%.0f capRing=%d/%d playRing=%d/%d staging=%d/%d renderLast=%d renderMax=%d underflows=%d",
		s.Mode(), bypass, inSR, outSR,
		capLevel, capCap, playLevel, playCap,
		s.StagingLevel(), s.StagingCapacity(),
		s.renderLast.Load(), s.renderMax.Load(), s.underflows.Load())
	log.Printf("[bridge] %s", msg)
	return msg
}
