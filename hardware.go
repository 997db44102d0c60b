package vpbridge

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"vpbridge/internal/aec"
	"vpbridge/internal/agc"
	"vpbridge/internal/config"
	"vpbridge/internal/noisegate"
	"vpbridge/internal/vad"
)

// DuplexHandler receives the hardware unit's capture and render
// callbacks. Session implements it; tests drive it directly from a
// clock stub.
type DuplexHandler interface {
	// CaptureAvailable delivers processed microphone bytes. Called from
	// the audio thread; must not block.
	CaptureAvailable(p []byte)

	// RenderNeeded asks for exactly len(p) playback bytes. The handler
	// fills what it has and zeroes the rest. Called from the audio
	// thread; must not block.
	RenderNeeded(p []byte)
}

// HardwareUnit is the duplex audio device abstraction. The real
// implementation wraps a PortAudio full-duplex stream with the
// voice-processing chain; tests substitute a clock-driven stub.
type HardwareUnit interface {
	Start(h DuplexHandler) error
	Stop() error
	Close() error

	InputSampleRate() float64
	OutputSampleRate() float64
	ProcessingBypassed() bool
}

// SpeechReporter is optionally implemented by units that run voice
// activity detection on the capture path.
type SpeechReporter interface {
	SpeechActive() bool
}

// paUnit binds a PortAudio full-duplex stream to the voice-processing
// chain: echo cancellation against the bytes most recently rendered,
// then noise gating and automatic gain on the capture side. Voice
// activity detection observes the gated signal and never drops frames.
type paUnit struct {
	stream *portaudio.Stream

	handler DuplexHandler
	rate    int
	frames  int
	bypass  bool

	canceller *aec.AEC
	gate      *noisegate.Gate
	gain      *agc.AGC
	detector  *vad.Detector
	speech    atomic.Bool

	// scratch buffers reused across callbacks; the audio thread owns
	// them exclusively.
	inF32    []float32
	farF32   []float32
	renderB  []byte
	captureB []byte
}

// openPortAudioUnit initialises PortAudio and opens a mono full-duplex
// stream on the default devices at the given rate. Frame size targets
// 10 ms with a floor of 80 frames so the processing chain always sees
// enough signal per callback.
func openPortAudioUnit(sampleRate int, cfg config.Tunables) (HardwareUnit, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	frames := sampleRate / 100
	if frames < 80 {
		frames = 80
	}
	u := &paUnit{
		rate:     sampleRate,
		frames:   frames,
		bypass:   cfg.BypassProcessing,
		inF32:    make([]float32, frames),
		farF32:   make([]float32, frames),
		renderB:  make([]byte, frames*bytesPerSample),
		captureB: make([]byte, frames*bytesPerSample),
	}
	if !u.bypass {
		u.canceller = aec.New(frames)
		u.gate = noisegate.New()
		u.gain = agc.New()
		u.detector = vad.New()
	}
	stream, err := portaudio.OpenDefaultStream(
		channelCount, channelCount, float64(sampleRate), frames, u.duplexCallback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open duplex stream: %w", err)
	}
	u.stream = stream
	return u, nil
}

func (u *paUnit) Start(h DuplexHandler) error {
	u.handler = h
	if err := u.stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	log.Printf("[audio] duplex stream up rate=%d frames=%d bypass=%v", u.rate, u.frames, u.bypass)
	return nil
}

func (u *paUnit) Stop() error {
	if err := u.stream.Stop(); err != nil {
		return fmt.Errorf("stop stream: %w", err)
	}
	return nil
}

func (u *paUnit) Close() error {
	err := u.stream.Close()
	portaudio.Terminate()
	if err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}

func (u *paUnit) InputSampleRate() float64  { return float64(u.rate) }
func (u *paUnit) OutputSampleRate() float64 { return float64(u.rate) }
func (u *paUnit) ProcessingBypassed() bool  { return u.bypass }

func (u *paUnit) SpeechActive() bool { return u.speech.Load() }

// duplexCallback runs once per hardware period. Render is pulled first
// so the canceller's far-end reference matches what reaches the
// speaker in the same period.
func (u *paUnit) duplexCallback(in, out []int16) {
	h := u.handler
	if h == nil {
		for i := range out {
			out[i] = 0
		}
		return
	}

	need := len(out) * bytesPerSample
	if cap(u.renderB) < need {
		u.renderB = make([]byte, need)
	}
	rb := u.renderB[:need]
	h.RenderNeeded(rb)
	bytesToInt16(rb, out)
	if u.canceller != nil {
		if cap(u.farF32) < len(out) {
			u.farF32 = make([]float32, len(out))
		}
		far := u.farF32[:len(out)]
		int16ToFloat32(out, far)
		u.canceller.FeedFarEnd(far)
	}

	got := len(in) * bytesPerSample
	if cap(u.captureB) < got {
		u.captureB = make([]byte, got)
	}
	cb := u.captureB[:got]

	if u.bypass {
		// Bypassed capture is byte-exact: no float round trip.
		int16ToBytes(in, cb)
		h.CaptureAvailable(cb)
		return
	}

	if cap(u.inF32) < len(in) {
		u.inF32 = make([]float32, len(in))
	}
	f := u.inF32[:len(in)]
	int16ToFloat32(in, f)

	u.canceller.Process(f)
	rms := u.gate.Process(f)
	u.gain.Process(f)
	u.speech.Store(u.detector.Active(rms))

	float32ToBytes(f, cb)
	h.CaptureAvailable(cb)
}

// bytesToInt16 unpacks little-endian 16-bit PCM into dst. len(p) must
// be 2*len(dst).
func bytesToInt16(p []byte, dst []int16) {
	for i := range dst {
		dst[i] = int16(uint16(p[2*i]) | uint16(p[2*i+1])<<8)
	}
}

func int16ToFloat32(src []int16, dst []float32) {
	for i, v := range src {
		dst[i] = float32(v) / 32768.0
	}
}

// int16ToBytes packs samples as little-endian 16-bit PCM. len(p) must
// be 2*len(src).
func int16ToBytes(src []int16, p []byte) {
	for i, v := range src {
		p[2*i] = byte(uint16(v))
		p[2*i+1] = byte(uint16(v) >> 8)
	}
}

// float32ToBytes packs samples back to little-endian 16-bit PCM with
// clipping. The 32768 scale mirrors int16ToFloat32 so an unmodified
// sample round-trips exactly, including negative full scale. len(p)
// must be 2*len(src).
func float32ToBytes(src []float32, p []byte) {
	for i, v := range src {
		s := int32(v * 32768.0)
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		p[2*i] = byte(uint16(int16(s)))
		p[2*i+1] = byte(uint16(int16(s)) >> 8)
	}
}
