package vpbridge

import (
	"errors"
	"testing"
	"time"
)

func TestRecordRequiresInit(t *testing.T) {
	s, _ := newTestSession(t, nil)
	if _, err := s.Record(1); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
}

func TestRecordRejectsInvalidDuration(t *testing.T) {
	s, _ := newTestSession(t, nil)
	if err := s.Init(16000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer s.Shutdown()
	if _, err := s.Record(0); err == nil {
		t.Fatal("Record(0) succeeded")
	}
}

func TestRecordCollectsCaptureBytes(t *testing.T) {
	s, unit := newTestSession(t, nil)
	if err := s.Init(16000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer s.Shutdown()

	// Fill the one-second buffer as soon as recording arms; Record
	// returns as soon as it has enough, well before the wall-clock
	// deadline.
	want := 16000 * 2
	go func() {
		for !s.captureArmed.Load() {
			time.Sleep(time.Millisecond)
		}
		chunk := make([]byte, 320)
		for i := range chunk {
			chunk[i] = byte(i)
		}
		for fed := 0; fed < want; fed += len(chunk) {
			unit.push(chunk)
		}
	}()

	got, err := s.Record(1)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(got) != want {
		t.Fatalf("recorded %d bytes, want %d", len(got), want)
	}
	for i := 0; i < 320; i++ {
		if got[i] != byte(i) {
			t.Fatalf("byte %d = %d, want %d", i, got[i], byte(i))
		}
	}
	if s.Mode() != ModeIdle {
		t.Fatalf("mode = %v after Record, want idle", s.Mode())
	}
	if stored := s.CaptureBytes(); len(stored) != want {
		t.Fatalf("CaptureBytes = %d bytes, want %d", len(stored), want)
	}
	s.ResetCapture()
	if s.CaptureBytes() != nil {
		t.Fatal("CaptureBytes not nil after ResetCapture")
	}
}

func TestRecordTeesAlongsideStreamingRing(t *testing.T) {
	s, unit := newTestSession(t, nil)
	if err := s.StartStream(16000, 1, 0); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	defer s.Shutdown()

	go func() {
		for !s.captureArmed.Load() {
			time.Sleep(time.Millisecond)
		}
		for fed := 0; fed < 16000*2; fed += 320 {
			unit.push(make([]byte, 320))
		}
	}()
	got, err := s.Record(1)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(got) != 16000*2 {
		t.Fatalf("recorded %d bytes, want %d", len(got), 16000*2)
	}
	// The streaming consumer keeps seeing capture audio during the
	// one-shot record.
	if n := s.ReadCapture(make([]byte, 640)); n != 640 {
		t.Fatalf("streaming ring delivered %d bytes during one-shot record, want 640", n)
	}
	if s.Mode() != ModeRecording {
		t.Fatalf("mode = %v after Record while streaming, want recording", s.Mode())
	}
}

func TestPlayBlocksUntilDrained(t *testing.T) {
	s, unit := newTestSession(t, nil)
	if err := s.Init(16000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer s.Shutdown()

	data := make([]byte, 640)
	for i := range data {
		data[i] = byte(i)
	}

	rendered := make(chan []byte, 8)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if s.Mode() == ModePlaying {
				rendered <- unit.pull(160)
			}
			time.Sleep(time.Millisecond)
		}
	}()

	if err := s.Play(data); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if s.Mode() != ModeIdle {
		t.Fatalf("mode = %v after Play, want idle", s.Mode())
	}
	first := <-rendered
	if first[0] != 0 || first[159] != byte(159) {
		t.Fatal("first rendered chunk does not match played data")
	}
}

func TestPlayEmptyIsNoop(t *testing.T) {
	s, _ := newTestSession(t, nil)
	if err := s.Play(nil); err != nil {
		t.Fatalf("Play(nil): %v", err)
	}
}

func TestPlayRejectsOverlap(t *testing.T) {
	s, _ := newTestSession(t, nil)
	if err := s.Init(16000); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer s.Shutdown()

	s.oneShot.Store(&oneShotPlayback{data: make([]byte, 320)})
	if err := s.Play(make([]byte, 32)); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	s.oneShot.Store(nil)
}

func TestPlayTakesPriorityOverStream(t *testing.T) {
	s, unit := newTestSession(t, nil)
	if err := s.StartStream(16000, 1, 0); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	defer s.Shutdown()

	// Ring audio that should be preempted by the one-shot buffer.
	s.WritePlayback([]byte{1, 1, 1, 1})

	done := make(chan error, 1)
	go func() { done <- s.Play([]byte{2, 2, 2, 2}) }()
	waitFor(t, time.Second, func() bool {
		return s.Mode() == ModePlaying
	}, "mode to switch to playing")

	got := unit.pull(4)
	if got[0] != 2 {
		t.Fatalf("pulled ring bytes (%d) instead of one-shot bytes", got[0])
	}
	if err := <-done; err != nil {
		t.Fatalf("Play: %v", err)
	}
	if s.Mode() != ModeRecording {
		t.Fatalf("mode = %v after one-shot during stream, want recording", s.Mode())
	}
}
