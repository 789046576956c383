// Package recorder defines the decoded trace-recorder event model and a
// streaming decoder for recorder binary captures.
//
// A capture is a PSF-framed byte stream: a 4-byte start word, a small header
// describing the target timer (frequency, counter width, wraparounds observed
// before streaming began), followed by framed events. Each event frame starts
// with a 16-bit event code (kind in the low 12 bits, payload word count in the
// high 4), a 16-bit wrapping sequence counter and a 32-bit wrapping timestamp.
// A start word appearing where an event code is expected means the target
// restarted tracing; the decoder re-reads the header and reports ErrRestarted.
package recorder
