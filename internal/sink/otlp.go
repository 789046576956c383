package sink

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trc2otlp/internal/attributes"
	"trc2otlp/internal/timesync"
)

// OTLPSink exports trace records as OpenTelemetry span events. The whole
// stream becomes one root span named after the trace; every record, loss
// marker and packet boundary is a span event on it, timestamped via the
// reconstructed tick clock.
type OTLPSink struct {
	tracer    trace.Tracer
	clock     *timesync.WallClock
	traceName string
	baseAttrs []attribute.KeyValue
	evaluator *attributes.Evaluator

	schemas []*otlpSchema
	span    trace.Span
	packet  int
}

type otlpSchema struct {
	name   string
	fields []FieldDef
}

type otlpRecord struct {
	schema    *otlpSchema
	timestamp uint64
	attrs     []attribute.KeyValue
	fields    map[string]interface{}
}

// NewOTLP creates a sink exporting through the given tracer. baseAttrs are
// set on the stream's root span; evaluator may be nil.
func NewOTLP(tracer trace.Tracer, clock *timesync.WallClock, traceName string, baseAttrs []attribute.KeyValue, evaluator *attributes.Evaluator) *OTLPSink {
	return &OTLPSink{
		tracer:    tracer,
		clock:     clock,
		traceName: traceName,
		baseAttrs: baseAttrs,
		evaluator: evaluator,
	}
}

func (s *OTLPSink) RegisterSchema(name Str, fields []FieldDef) (SchemaID, error) {
	s.schemas = append(s.schemas, &otlpSchema{name: string(name), fields: fields})
	return SchemaID(len(s.schemas) - 1), nil
}

func (s *OTLPSink) NewRecord(schema SchemaID, timestamp uint64) (Record, error) {
	if int(schema) < 0 || int(schema) >= len(s.schemas) {
		return nil, fmt.Errorf("unknown schema handle %d", schema)
	}
	sch := s.schemas[schema]
	return &otlpRecord{
		schema:    sch,
		timestamp: timestamp,
		attrs:     make([]attribute.KeyValue, 0, len(sch.fields)+3),
		fields:    make(map[string]interface{}, len(sch.fields)),
	}, nil
}

func (s *OTLPSink) Emit(r Record) error {
	rec, ok := r.(*otlpRecord)
	if !ok {
		return fmt.Errorf("record does not belong to this sink")
	}
	if s.span == nil {
		return fmt.Errorf("emit before stream begin")
	}

	attrs := rec.attrs
	if extra := s.evaluator.Evaluate(rec.schema.name, rec.fields); len(extra) > 0 {
		attrs = append(attrs, extra...)
	}

	s.span.AddEvent(rec.schema.name,
		trace.WithTimestamp(s.clock.TicksToWallClock(rec.timestamp)),
		trace.WithAttributes(attrs...),
	)
	return nil
}

func (s *OTLPSink) DiscardedEvents(count uint64) error {
	if s.span == nil {
		return fmt.Errorf("discarded-events marker before stream begin")
	}
	//nolint:gosec // loss counts are bounded by the sequence counter width
	s.span.AddEvent("discarded_events", trace.WithAttributes(attribute.Int64("count", int64(count))))
	return nil
}

func (s *OTLPSink) StreamBegin() error {
	if s.span != nil {
		return fmt.Errorf("stream already open")
	}
	_, s.span = s.tracer.Start(context.Background(), s.traceName,
		trace.WithTimestamp(s.clock.Base()),
		trace.WithAttributes(s.baseAttrs...),
	)
	return nil
}

func (s *OTLPSink) StreamEnd() error {
	if s.span == nil {
		return fmt.Errorf("stream not open")
	}
	s.span.End()
	s.span = nil
	return nil
}

func (s *OTLPSink) PacketBegin() error {
	if s.span == nil {
		return fmt.Errorf("packet begin before stream begin")
	}
	s.span.AddEvent("packet_begin", trace.WithAttributes(attribute.Int("packet", s.packet)))
	return nil
}

func (s *OTLPSink) PacketEnd() error {
	if s.span == nil {
		return fmt.Errorf("packet end before stream begin")
	}
	s.span.AddEvent("packet_end", trace.WithAttributes(attribute.Int("packet", s.packet)))
	s.packet++
	return nil
}

func (r *otlpRecord) SetCommonContext(id, eventCount, timer uint64) {
	// The id field is hex-displayed by convention.
	r.attrs = append(r.attrs,
		attribute.String("id", fmt.Sprintf("0x%04x", id)),
		//nolint:gosec // reconstructed counters fit in int64 for any real capture
		attribute.Int64("event_count", int64(eventCount)),
		attribute.Int64("timer", int64(timer)),
	)
}

func (r *otlpRecord) def(field int) FieldDef {
	if field < 0 || field >= len(r.schema.fields) {
		panic(fmt.Sprintf("field index %d out of range for schema %s", field, r.schema.name))
	}
	return r.schema.fields[field]
}

func (r *otlpRecord) SetUint(field int, v uint64) {
	def := r.def(field)
	//nolint:gosec // see SetCommonContext
	r.attrs = append(r.attrs, attribute.Int64(def.Name, int64(v)))
	r.fields[def.Name] = v
}

func (r *otlpRecord) SetInt(field int, v int64) {
	def := r.def(field)
	r.attrs = append(r.attrs, attribute.Int64(def.Name, v))
	r.fields[def.Name] = v
}

func (r *otlpRecord) SetText(field int, v Str) {
	def := r.def(field)
	r.attrs = append(r.attrs, attribute.String(def.Name, string(v)))
	r.fields[def.Name] = string(v)
}

// SetEnum exports the enumerator label; the numeric value is implied by it
// and OTLP attributes have no enum type.
func (r *otlpRecord) SetEnum(field int, label Str, _ int64) {
	def := r.def(field)
	r.attrs = append(r.attrs, attribute.String(def.Name, string(label)))
	r.fields[def.Name] = string(label)
}
