package vpbridge

import "math"

// Cue identifies a synthesised audio cue played through the bridge.
type Cue int

const (
	CueReady Cue = iota // ascending two-tone: C5 -> G5
	CueDone             // descending two-tone: G5 -> C5
	CueAlert            // single high ping: A5
)

// cueVolume is the peak amplitude of cue tones in the [-1, 1] range.
const cueVolume = 0.18

// PlayCue synthesises the cue as 16-bit PCM at the session's sample
// rate and plays it through the legacy one-shot path, blocking until it
// finishes.
func (s *Session) PlayCue(cue Cue) error {
	s.mu.Lock()
	rate := s.sampleRate
	s.mu.Unlock()
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	pcm := generateCue(cue, rate)
	if len(pcm) == 0 {
		return nil
	}
	return s.Play(pcm)
}

func generateCue(cue Cue, rate int) []byte {
	type tone struct {
		freq int // Hz
		dur  int // ms
	}
	var tones []tone
	switch cue {
	case CueReady:
		tones = []tone{{523, 80}, {784, 120}} // C5, G5
	case CueDone:
		tones = []tone{{784, 80}, {523, 120}} // G5, C5
	case CueAlert:
		tones = []tone{{880, 120}} // A5
	default:
		return nil
	}

	var pcm []byte
	for _, t := range tones {
		pcm = append(pcm, Tone(float64(t.freq), t.dur, rate)...)
	}
	return pcm
}

// Tone synthesises a sine tone at freq Hz lasting durationMs
// milliseconds as 16-bit LE mono PCM at the given sample rate. A 5 ms
// linear fade-in and fade-out avoids clicks at the boundaries.
func Tone(freq float64, durationMs, rate int) []byte {
	totalSamples := rate * durationMs / 1000
	out := make([]byte, totalSamples*bytesPerSample)

	fadeLen := rate * 5 / 1000
	if fadeLen > totalSamples/2 {
		fadeLen = totalSamples / 2
	}

	for i := 0; i < totalSamples; i++ {
		t := float64(i) / float64(rate)
		v := math.Sin(2 * math.Pi * freq * t)

		env := 1.0
		if i < fadeLen {
			env = float64(i) / float64(fadeLen)
		} else if i >= totalSamples-fadeLen {
			env = float64(totalSamples-1-i) / float64(fadeLen)
		}

		sample := int16(v * env * cueVolume * 32767.0)
		out[2*i] = byte(uint16(sample))
		out[2*i+1] = byte(uint16(sample) >> 8)
	}
	return out
}
