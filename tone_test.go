package vpbridge

import "testing"

func pcm16At(p []byte, i int) int16 {
	return int16(uint16(p[2*i]) | uint16(p[2*i+1])<<8)
}

func TestToneLengthAndFormat(t *testing.T) {
	pcm := Tone(440, 100, 16000)
	if len(pcm) != 16000/10*2 {
		t.Fatalf("len = %d, want %d", len(pcm), 16000/10*2)
	}
}

func TestToneFadesAtEdges(t *testing.T) {
	pcm := Tone(440, 100, 16000)
	n := len(pcm) / 2
	if s := pcm16At(pcm, 0); s != 0 {
		t.Fatalf("first sample = %d, want 0 (fade-in)", s)
	}
	if s := pcm16At(pcm, n-1); s != 0 {
		t.Fatalf("last sample = %d, want 0 (fade-out)", s)
	}
	// Mid-tone must actually carry signal.
	peak := int16(0)
	for i := 0; i < n; i++ {
		if s := pcm16At(pcm, i); s > peak {
			peak = s
		}
	}
	if peak < 1000 {
		t.Fatalf("peak = %d, tone is near-silent", peak)
	}
}

func TestTonePeakBounded(t *testing.T) {
	pcm := Tone(880, 120, 16000)
	bound := cueVolume * 32767.0
	limit := int16(bound) + 1
	for i := 0; i < len(pcm)/2; i++ {
		s := pcm16At(pcm, i)
		if s > limit || s < -limit {
			t.Fatalf("sample %d = %d exceeds cue volume limit %d", i, s, limit)
		}
	}
}

func TestGenerateCueShapes(t *testing.T) {
	if generateCue(Cue(99), 16000) != nil {
		t.Fatal("unknown cue produced audio")
	}
	ready := generateCue(CueReady, 16000)
	wantLen := (16000*80/1000 + 16000*120/1000) * 2
	if len(ready) != wantLen {
		t.Fatalf("CueReady len = %d, want %d", len(ready), wantLen)
	}
}
