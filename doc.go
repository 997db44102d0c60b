// Package vpbridge is a full-duplex, low-latency bridge between an
// echo-cancelled audio device and an application that produces and
// consumes 16-bit signed little-endian mono PCM in irregular chunks.
//
// The application writes outgoing audio with Session.WriteFrame and
// drains microphone audio with Session.ReadCapture. Internally a
// growable staging ring absorbs the application's arbitrary chunk
// sizes, a pacing goroutine moves small slices from staging into a
// fixed playback ring while maintaining a latency/headroom target, and
// the hardware callbacks exchange bytes with the rings using atomic
// cursors only; they never block, lock or allocate on the hot path.
// Playback shortfalls are filled with silence and counted; capture
// overflow drops the oldest bytes.
package vpbridge
