package vpbridge

// CaptureAvailable receives one period of processed microphone bytes
// from the hardware unit. Outside Recording the bytes are dropped.
// They go to the streaming capture ring and, while a legacy one-shot
// recording is armed, to its private ring as well. Runs on the audio
// thread and never blocks.
func (s *Session) CaptureAvailable(p []byte) {
	if s.Mode() != ModeRecording {
		return
	}
	if cr := s.capRing.Load(); cr != nil {
		cr.Write(p)
	}
	if s.captureArmed.Load() {
		if lr := s.legacyCap.Load(); lr != nil {
			lr.Write(p)
		}
	}
}

// RenderNeeded fills p with exactly len(p) playback bytes. It records
// pull-size statistics for the pacer, then serves the legacy one-shot
// buffer or the playback ring. Any shortfall is zero-filled and counted
// as a single underflow. Runs on the audio thread and never blocks.
func (s *Session) RenderNeeded(p []byte) {
	want := uint64(len(p))
	s.renderLast.Store(want)
	if want > s.renderMax.Load() {
		s.renderMax.Store(want)
	}
	if pulls := s.renderPulls.Add(1); s.cfg.DecayInterval > 0 && s.cfg.DecayDivisor > 0 && pulls%uint64(s.cfg.DecayInterval) == 0 {
		// Decay the high-water mark a little so a one-off giant pull
		// does not inflate headroom forever.
		cur := s.renderMax.Load()
		dec := cur - cur/uint64(s.cfg.DecayDivisor)
		if dec < want {
			dec = want
		}
		s.renderMax.Store(dec)
	}

	n := 0
	fromRing := false
	if os := s.oneShot.Load(); os != nil && s.Mode() == ModePlaying {
		n = s.fillFromOneShot(os, p)
	} else if pr := s.playRing.Load(); pr != nil {
		n = pr.Read(p)
		fromRing = true
	}
	if n < len(p) {
		for i := n; i < len(p); i++ {
			p[i] = 0
		}
		if fromRing {
			s.underflows.Add(1)
		}
	}
}

// fillFromOneShot copies the next chunk of a legacy Play buffer into p.
// When the buffer is exhausted it is unpublished and the session drops
// back to its resting mode.
func (s *Session) fillFromOneShot(os *oneShotPlayback, p []byte) int {
	off := os.off.Load()
	total := uint64(len(os.data))
	if off >= total {
		s.finishOneShot(os)
		return 0
	}
	n := copy(p, os.data[off:])
	if os.off.Add(uint64(n)) >= total {
		s.finishOneShot(os)
	}
	return n
}

func (s *Session) finishOneShot(os *oneShotPlayback) {
	if s.oneShot.CompareAndSwap(os, nil) {
		if s.Streaming() {
			s.mode.Store(int32(ModeRecording))
		} else {
			s.mode.Store(int32(ModeIdle))
		}
	}
}
