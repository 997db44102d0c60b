package config_test

import (
	"testing"

	"vpbridge/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.Trace {
		t.Error("expected trace off by default")
	}
	if cfg.RenderGuardMult != 1.5 {
		t.Errorf("expected guard multiplier 1.5, got %v", cfg.RenderGuardMult)
	}
	if cfg.SliceMs != 5 || cfg.PrerollMs != 40 || cfg.HeadroomMs != 10 {
		t.Errorf("unexpected pacing defaults: slice=%d preroll=%d headroom=%d",
			cfg.SliceMs, cfg.PrerollMs, cfg.HeadroomMs)
	}
	if cfg.DecayInterval != 100 || cfg.DecayDivisor != 50 {
		t.Errorf("unexpected decay defaults: %d/%d", cfg.DecayInterval, cfg.DecayDivisor)
	}
	if cfg.BypassProcessing {
		t.Error("expected voice processing engaged by default")
	}
}

func TestFromEnvTrace(t *testing.T) {
	for _, tc := range []struct {
		val  string
		want bool
	}{
		{"", false},
		{"0", false},
		{"1", true},
		{"yes", true},
	} {
		t.Setenv(config.EnvTrace, tc.val)
		if got := config.FromEnv().Trace; got != tc.want {
			t.Errorf("VPBRIDGE_TRACE=%q: Trace = %v, want %v", tc.val, got, tc.want)
		}
	}
}

func TestFromEnvGuardMult(t *testing.T) {
	for _, tc := range []struct {
		val  string
		want float64
	}{
		{"2.0", 2.0},
		{"1.25", 1.25},
		{"0.5", 1.0},      // clamped low
		{"10", 4.0},       // clamped high
		{"not-a-number", 1.5}, // ignored, default kept
		{"", 1.5},
	} {
		t.Setenv(config.EnvRenderGuardMult, tc.val)
		if got := config.FromEnv().RenderGuardMult; got != tc.want {
			t.Errorf("VPBRIDGE_RENDER_GUARD_MULT=%q: got %v, want %v", tc.val, got, tc.want)
		}
	}
}

func TestClampGuardMult(t *testing.T) {
	if got := config.ClampGuardMult(0.1); got != config.MinRenderGuardMult {
		t.Errorf("ClampGuardMult(0.1) = %v", got)
	}
	if got := config.ClampGuardMult(99); got != config.MaxRenderGuardMult {
		t.Errorf("ClampGuardMult(99) = %v", got)
	}
	if got := config.ClampGuardMult(1.5); got != 1.5 {
		t.Errorf("ClampGuardMult(1.5) = %v", got)
	}
}
