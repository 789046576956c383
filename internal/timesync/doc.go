// Package timesync reconstructs monotonic time and event ordering from the
// narrow wrapping counters carried by trace-recorder events.
//
// Target timers are fixed-width and wrap frequently; the 16-bit event
// sequence counter wraps as well. RolloverTracker rebuilds an unbounded tick
// count from the timer, EventCounter rebuilds a cumulative event count and
// detects lost events, and WallClock maps reconstructed ticks onto
// wall-clock time for export.
package timesync
