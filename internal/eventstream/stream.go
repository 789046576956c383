// Package eventstream drives the conversion: it pulls decoded events from a
// source, owns the counter/rollover trackers, and feeds the converter. All
// per-stream sequencing lives here: first-event initialization, stream
// restart, dropped-event markers and stream/packet boundary markers.
package eventstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"trc2otlp/internal/convert"
	"trc2otlp/internal/recorder"
	"trc2otlp/internal/sink"
	"trc2otlp/internal/timesync"
)

// counterBits is the width of the recorder's event sequence counter.
const counterBits = 16

// Source yields decoded events in capture order. It is satisfied by
// *recorder.Decoder.
type Source interface {
	ReadEvent() (*recorder.Event, error)
	Header() recorder.Header
}

// Stream converts one capture stream. It must be driven by a single
// goroutine for its whole lifetime; it shares no state with other streams.
type Stream struct {
	src  Source
	out  sink.Sink
	conv *convert.Converter

	counter  *timesync.EventCounter
	rollover *timesync.RolloverTracker

	firstEventSeen bool
	streamOpen     bool
}

// New creates a stream reading from src and emitting to out.
func New(src Source, out sink.Sink, conv *convert.Converter) *Stream {
	return &Stream{
		src:      src,
		out:      out,
		conv:     conv,
		counter:  timesync.NewEventCounter(counterBits),
		rollover: timesync.NewRolloverTracker(uint(src.Header().TimerBits)),
	}
}

// Run processes events until end of stream, a fatal error, or cancellation.
// Cancellation is observed only between events; an event's records are never
// cut short. A cancelled or exhausted stream is closed with packet/stream
// end markers.
func (s *Stream) Run(ctx context.Context) error {
	if err := s.conv.Prime(); err != nil {
		return fmt.Errorf("registering output schemas: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("early shutdown")
			return s.closeStream()
		default:
		}

		ev, err := s.src.ReadEvent()
		switch {
		case err == nil:
			// fall through to processing
		case errors.Is(err, recorder.ErrRestarted):
			log.Printf("detected a restarted trace stream")
			s.firstEventSeen = false
			continue
		case errors.Is(err, io.EOF):
			log.Printf("end of stream reached")
			return s.closeStream()
		default:
			// Data errors are not recoverable mid-capture; close out what
			// was converted so far.
			log.Printf("data error: %v", err)
			return s.closeStream()
		}

		if !s.streamOpen {
			log.Printf("opening stream")
			if err := s.out.StreamBegin(); err != nil {
				return fmt.Errorf("stream begin: %w", err)
			}
			if err := s.out.PacketBegin(); err != nil {
				return fmt.Errorf("packet begin: %w", err)
			}
			s.streamOpen = true
		}

		if err := s.processEvent(ev); err != nil {
			return err
		}
	}
}

func (s *Stream) processEvent(ev *recorder.Event) error {
	if !s.firstEventSeen {
		s.firstEventSeen = true

		if kind := ev.Code.Kind(); kind != recorder.KindTraceStart {
			log.Printf("first event should be TRACE_START, got %v", kind)
		}

		// Trackers re-baseline on the first event of every (re)started
		// stream; the header declares wraps that happened before streaming
		// and may change across a restart.
		hdr := s.src.Header()
		s.counter = timesync.NewEventCounter(counterBits)
		s.counter.Initialize(uint64(ev.Counter))
		s.rollover = timesync.NewRolloverTracker(uint(hdr.TimerBits))
		s.rollover.Initialize(uint64(ev.Timestamp), uint64(hdr.TimerWraparounds))
	} else if lost, dropped := s.counter.Update(uint64(ev.Counter)); dropped {
		log.Printf("detected %d dropped events at counter %d", lost, ev.Counter)
		if err := s.out.DiscardedEvents(lost); err != nil {
			return fmt.Errorf("discarded-events marker: %w", err)
		}
	}

	eventCount := s.counter.Count()
	timestamp := s.rollover.Elapsed(uint64(ev.Timestamp))

	if err := s.conv.Convert(eventCount, timestamp, ev); err != nil {
		return fmt.Errorf("converting event %v: %w", ev.Code.Kind(), err)
	}
	return nil
}

func (s *Stream) closeStream() error {
	if !s.streamOpen {
		return nil
	}
	s.streamOpen = false
	if err := s.out.PacketEnd(); err != nil {
		return fmt.Errorf("packet end: %w", err)
	}
	if err := s.out.StreamEnd(); err != nil {
		return fmt.Errorf("stream end: %w", err)
	}
	return nil
}
