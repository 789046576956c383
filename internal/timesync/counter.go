package timesync

// EventCounter tracks a wrapping event sequence counter and reports how many
// events were lost between consecutive observations. Wrapping is expected
// behavior: deltas are computed modulo the counter width, never treated as
// corruption.
type EventCounter struct {
	width       uint
	mask        uint64
	last        uint64
	count       uint64
	initialized bool
}

// NewEventCounter creates a tracker for a counter of the given bit width.
func NewEventCounter(widthBits uint) *EventCounter {
	if widthBits == 0 || widthBits > 63 {
		widthBits = 16
	}
	return &EventCounter{
		width: widthBits,
		mask:  1<<widthBits - 1,
	}
}

// Initialize sets the baseline from the first observed raw count. No loss is
// reported for the first observation.
func (c *EventCounter) Initialize(first uint64) {
	c.last = first & c.mask
	c.count = first & c.mask
	c.initialized = true
}

// Update records a new raw count and returns the number of events lost since
// the previous observation. lost is meaningful only when dropped is true.
// A delta of zero is a full counter wrap under modulo arithmetic.
func (c *EventCounter) Update(raw uint64) (lost uint64, dropped bool) {
	if !c.initialized {
		c.Initialize(raw)
		return 0, false
	}
	delta := (raw - c.last) & c.mask
	if delta == 0 {
		delta = c.mask + 1
	}
	c.last = raw & c.mask
	c.count += delta
	if delta == 1 {
		return 0, false
	}
	return delta - 1, true
}

// Count returns the reconstructed cumulative event count.
func (c *EventCounter) Count() uint64 { return c.count }
