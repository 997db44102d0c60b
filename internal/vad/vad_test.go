package vad

import (
	"math"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	d := New()
	if d.threshold != DefaultThreshold {
		t.Errorf("threshold: got %f, want %f", d.threshold, DefaultThreshold)
	}
	if d.hangover != DefaultHangover {
		t.Errorf("hangover: got %d, want %d", d.hangover, DefaultHangover)
	}
}

func TestActiveSpeech(t *testing.T) {
	d := New()
	if !d.Active(DefaultThreshold * 2) {
		t.Error("frame above threshold should be active")
	}
}

func TestActiveSilence(t *testing.T) {
	d := New()
	// A detector that has never seen speech reports silence immediately.
	if d.Active(0) {
		t.Error("silence with no prior speech should be inactive")
	}
}

func TestHangoverTail(t *testing.T) {
	d := New()
	d.Active(DefaultThreshold * 10)
	// The next DefaultHangover silent frames still count as active.
	for i := range DefaultHangover {
		if !d.Active(0) {
			t.Errorf("hangover frame %d should still be active", i)
		}
	}
	if d.Active(0) {
		t.Error("frame after hangover expiry should be inactive")
	}
}

func TestHangoverResetOnSpeech(t *testing.T) {
	d := New()
	d.Active(DefaultThreshold * 10)
	for range DefaultHangover - 1 {
		d.Active(0)
	}
	// Speech rearms the full hangover.
	d.Active(DefaultThreshold * 10)
	for i := range DefaultHangover {
		if !d.Active(0) {
			t.Errorf("hangover frame %d after rearm should be active", i)
		}
	}
}

func TestSetThreshold(t *testing.T) {
	d := New()
	d.SetThreshold(0.1)
	if d.Active(0.05) {
		t.Error("frame below raised threshold should be inactive")
	}
	d.SetThreshold(-1)
	if d.threshold != 0 {
		t.Errorf("negative threshold should clamp to 0, got %f", d.threshold)
	}
}

func TestReset(t *testing.T) {
	d := New()
	d.Active(DefaultThreshold * 10)
	d.Reset()
	if d.Active(0) {
		t.Error("first silence after Reset should be inactive")
	}
}

func TestRMSZeroFrame(t *testing.T) {
	if RMS(nil) != 0 {
		t.Error("nil frame should return 0")
	}
	if RMS([]float32{}) != 0 {
		t.Error("empty frame should return 0")
	}
}

func TestRMSSine(t *testing.T) {
	// RMS of a full-amplitude sine is 1/sqrt(2) ≈ 0.7071
	const n = 160
	frame := make([]float32, n)
	for i := range frame {
		frame[i] = float32(math.Sin(2 * math.Pi * 400 * float64(i) / 16000))
	}
	got := RMS(frame)
	want := float32(1.0 / math.Sqrt2)
	if math.Abs(float64(got-want)) > 0.005 {
		t.Errorf("RMS: got %f, want ~%f", got, want)
	}
}
