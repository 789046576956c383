package timesync

import "time"

// WallClock maps reconstructed timer ticks onto wall-clock time. The target
// has no notion of absolute time, so the capture's processing start stands
// in as the timeline origin.
type WallClock struct {
	base        time.Time
	frequencyHz uint64
}

// NewWallClock creates a converter anchored at base with the given timer
// frequency. A zero frequency falls back to 1 MHz so conversion stays usable
// on captures with an unconfigured timer.
func NewWallClock(base time.Time, frequencyHz uint64) *WallClock {
	if frequencyHz == 0 {
		frequencyHz = 1_000_000
	}
	return &WallClock{base: base, frequencyHz: frequencyHz}
}

// TicksToWallClock converts a reconstructed monotonic tick count to
// wall-clock time.
func (w *WallClock) TicksToWallClock(ticks uint64) time.Time {
	sec := ticks / w.frequencyHz
	rem := ticks % w.frequencyHz
	nanos := rem * uint64(time.Second) / w.frequencyHz
	//nolint:gosec // tick counts from real captures fit comfortably in int64
	return w.base.Add(time.Duration(sec)*time.Second + time.Duration(nanos))
}

// Base returns the timeline origin used for conversions.
func (w *WallClock) Base() time.Time { return w.base }
