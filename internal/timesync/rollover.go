package timesync

// RolloverTracker reconstructs an unbounded monotonic tick count from a
// fixed-width wrapping hardware timer. A raw value jumping backwards by more
// than half the counter range is a wraparound, not an error; anything else
// counts as forward progress.
type RolloverTracker struct {
	width       uint
	half        uint64
	last        uint64
	wraps       uint64
	initialized bool
}

// NewRolloverTracker creates a tracker for a timer of the given bit width.
func NewRolloverTracker(widthBits uint) *RolloverTracker {
	if widthBits == 0 || widthBits > 63 {
		widthBits = 32
	}
	return &RolloverTracker{
		width: widthBits,
		half:  1 << (widthBits - 1),
	}
}

// Initialize sets the baseline from the first raw tick and the wrap count
// the decoder declared at stream start.
func (t *RolloverTracker) Initialize(firstRawTick uint64, knownWraps uint64) {
	t.last = firstRawTick
	t.wraps = knownWraps
	t.initialized = true
}

// Elapsed folds a raw tick value into the reconstructed monotonic timeline
// and returns the total tick count since the timer's origin.
func (t *RolloverTracker) Elapsed(rawTick uint64) uint64 {
	if !t.initialized {
		t.Initialize(rawTick, 0)
	}
	if rawTick < t.last && t.last-rawTick > t.half {
		t.wraps++
	}
	t.last = rawTick
	return t.wraps<<t.width + rawTick
}
