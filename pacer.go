package vpbridge

import (
	"log"
	"time"
)

// StartPacer launches the background goroutine that moves audio from
// the staging ring into the playback ring in small timed slices,
// smoothing out the application's bursty writes. sliceMs and prerollMs
// override the configured defaults when positive. Starting an already
// running pacer is a no-op; starting without an active stream is an
// error only in the sense that the loop exits immediately once it sees
// nil rings.
func (s *Session) StartPacer(sliceMs, prerollMs int) {
	s.pacerMu.Lock()
	defer s.pacerMu.Unlock()
	if s.pacerRun.Load() {
		return
	}
	if sliceMs <= 0 {
		sliceMs = s.cfg.SliceMs
	}
	if prerollMs <= 0 {
		prerollMs = s.cfg.PrerollMs
	}
	s.pacerRun.Store(true)
	s.pacerDone = make(chan struct{})
	go s.paceLoop(s.pacerDone, sliceMs, prerollMs)
	if s.cfg.Trace {
		log.Printf("[pacer] started slice=%dms preroll=%dms", sliceMs, prerollMs)
	}
}

// StopPacer signals the pacing goroutine to exit and waits for it.
// Safe to call when the pacer is not running.
func (s *Session) StopPacer() {
	s.pacerMu.Lock()
	defer s.pacerMu.Unlock()
	if !s.pacerRun.Load() {
		return
	}
	s.pacerRun.Store(false)
	<-s.pacerDone
	s.pacerDone = nil
	if s.cfg.Trace {
		log.Printf("[pacer] stopped")
	}
}

// paceLoop runs until StopPacer clears the run flag. It alternates
// between two phases:
//
//   - preroll: pull from staging until the playback ring holds
//     prerollMs worth of audio, so the first audible pull is backed by
//     enough material to survive scheduling jitter. The loop re-enters
//     preroll whenever the playback ring drains (end of an utterance).
//
//   - steady: keep the playback ring topped up to a target level
//     derived from the configured headroom and the hardware's observed
//     pull size, then feed one slice per tick regardless.
func (s *Session) paceLoop(done chan struct{}, sliceMs, prerollMs int) {
	defer close(done)

	bpms := s.bytesPerMs()
	sliceBytes := sliceMs * bpms
	prerollBytes := prerollMs * bpms
	sliceDur := time.Duration(sliceMs) * time.Millisecond
	s.didPreroll.Store(false)
	iter := 0

	for s.pacerRun.Load() {
		st := s.staging.Load()
		pr := s.playRing.Load()
		if st == nil || pr == nil {
			// No stream yet (or it was torn down); wait for rings to
			// appear rather than exiting, so a pacer started early
			// picks the stream up once it begins.
			time.Sleep(sliceDur)
			continue
		}

		// An empty play ring means a new segment: re-preroll.
		if pr.Buffered() == 0 {
			if s.didPreroll.Load() && s.cfg.Trace {
				log.Printf("[pacer] drained, re-entering preroll")
			}
			s.didPreroll.Store(false)
		}

		if !s.didPreroll.Load() {
			have := pr.Buffered()
			if have < prerollBytes {
				got := st.ReadInto(pr, prerollBytes-have)
				if got == 0 {
					time.Sleep(sliceDur)
				}
				continue
			}
			s.didPreroll.Store(true)
			if s.cfg.Trace {
				log.Printf("[pacer] preroll satisfied at %d ms", prerollMs)
			}
			continue
		}

		target := int(s.headroomMs.Load()) * bpms
		if guard := int(float64(s.renderMax.Load()) * s.cfg.RenderGuardMult); guard > target {
			target = guard
		}
		desired := target + sliceBytes

		if level := pr.Buffered(); level < desired {
			if got := st.ReadInto(pr, desired-level); got == 0 {
				time.Sleep(sliceDur)
			}
		}
		st.ReadInto(pr, sliceBytes)

		if s.cfg.Trace {
			if iter++; iter%40 == 0 {
				last, max := s.renderLast.Load(), s.renderMax.Load()
				log.Printf("[pacer] steady staged=%d playing=%d target=%d rlast=%d rmax=%d",
					st.Buffered(), pr.Buffered(), desired, last, max)
			}
		}
		time.Sleep(sliceDur)
	}
}

