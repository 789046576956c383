package timesync

import (
	"testing"
	"time"
)

func TestRolloverTracker_Elapsed(t *testing.T) {
	tests := []struct {
		name       string
		width      uint
		first      uint64
		knownWraps uint64
		ticks      []uint64
		want       []uint64
	}{
		{
			name:  "eight bit wrap",
			width: 8,
			first: 250,
			ticks: []uint64{250, 254, 3},
			want:  []uint64{250, 254, 259},
		},
		{
			name:  "forward progress without wrap",
			width: 32,
			first: 100,
			ticks: []uint64{100, 101, 5000},
			want:  []uint64{100, 101, 5000},
		},
		{
			name:  "equal value is not a wrap",
			width: 8,
			first: 10,
			ticks: []uint64{10, 10},
			want:  []uint64{10, 10},
		},
		{
			name:  "small backward jump is not a wrap",
			width: 8,
			first: 100,
			ticks: []uint64{100, 90},
			want:  []uint64{100, 90},
		},
		{
			name:       "known wraps from header",
			width:      8,
			first:      5,
			knownWraps: 2,
			ticks:      []uint64{5, 6},
			want:       []uint64{517, 518},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewRolloverTracker(tt.width)
			tr.Initialize(tt.first, tt.knownWraps)
			for i, raw := range tt.ticks {
				if got := tr.Elapsed(raw); got != tt.want[i] {
					t.Errorf("Elapsed(%d) = %d, want %d", raw, got, tt.want[i])
				}
			}
		})
	}
}

func TestRolloverTracker_MonotonicAcrossRepeatedWraps(t *testing.T) {
	tr := NewRolloverTracker(8)
	tr.Initialize(0, 0)
	var prev uint64
	// Three full wraps of forward progress in steps under half range.
	for raw := uint64(0); raw < 4*256; raw += 100 {
		got := tr.Elapsed(raw % 256)
		if got < prev {
			t.Fatalf("Elapsed(%d) = %d, below previous %d", raw%256, got, prev)
		}
		prev = got
	}
	if prev < 3*256 {
		t.Errorf("final elapsed %d, expected at least three wraps", prev)
	}
}

func TestWallClock_TicksToWallClock(t *testing.T) {
	base := time.Unix(1000000000, 0)
	w := NewWallClock(base, 1_000_000) // 1 MHz: one tick per microsecond

	tests := []struct {
		name  string
		ticks uint64
		want  time.Time
	}{
		{name: "zero ticks", ticks: 0, want: base},
		{name: "one second", ticks: 1_000_000, want: base.Add(1 * time.Second)},
		{name: "sub second", ticks: 1_500, want: base.Add(1500 * time.Microsecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := w.TicksToWallClock(tt.ticks)
			if !got.Equal(tt.want) {
				t.Errorf("TicksToWallClock(%d) = %v, want %v", tt.ticks, got, tt.want)
			}
		})
	}
}

func TestWallClock_ZeroFrequencyFallback(t *testing.T) {
	base := time.Unix(0, 0)
	w := NewWallClock(base, 0)
	got := w.TicksToWallClock(1_000_000)
	if !got.Equal(base.Add(1 * time.Second)) {
		t.Errorf("fallback frequency not applied: got %v", got)
	}
}
