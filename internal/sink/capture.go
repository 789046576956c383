package sink

import "fmt"

// CapturedField is one populated field of an in-memory record.
type CapturedField struct {
	Name string
	Type FieldType
	Uint uint64
	Int  int64
	Text Str
	Enum Str
}

// CapturedRecord is one emitted record held by a CaptureSink.
type CapturedRecord struct {
	Schema     string
	Timestamp  uint64
	ID         uint64
	EventCount uint64
	Timer      uint64
	Fields     []CapturedField

	schema *capturedSchema
}

// Field returns the populated field with the given name.
func (r *CapturedRecord) Field(name string) (CapturedField, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return CapturedField{}, false
}

type capturedSchema struct {
	name   string
	fields []FieldDef
}

// CaptureSink is an in-memory Sink for tests. It counts schema
// registrations per name and preserves emit and marker order. A non-zero
// Limit makes Emit fail once the batch is full.
type CaptureSink struct {
	Limit int

	RegisterCalls map[string]int
	Records       []*CapturedRecord
	Marks         []string
	Discarded     []uint64

	schemas []*capturedSchema
}

// NewCaptureSink creates an empty capture sink with no batch limit.
func NewCaptureSink() *CaptureSink {
	return &CaptureSink{RegisterCalls: map[string]int{}}
}

func (s *CaptureSink) RegisterSchema(name Str, fields []FieldDef) (SchemaID, error) {
	s.RegisterCalls[string(name)]++
	s.schemas = append(s.schemas, &capturedSchema{name: string(name), fields: fields})
	return SchemaID(len(s.schemas) - 1), nil
}

func (s *CaptureSink) NewRecord(schema SchemaID, timestamp uint64) (Record, error) {
	if int(schema) < 0 || int(schema) >= len(s.schemas) {
		return nil, fmt.Errorf("unknown schema handle %d", schema)
	}
	return &CapturedRecord{
		Schema:    s.schemas[schema].name,
		Timestamp: timestamp,
		schema:    s.schemas[schema],
	}, nil
}

func (s *CaptureSink) Emit(r Record) error {
	rec, ok := r.(*CapturedRecord)
	if !ok {
		return fmt.Errorf("record does not belong to this sink")
	}
	if s.Limit > 0 && len(s.Records) >= s.Limit {
		return fmt.Errorf("output batch full (%d records)", s.Limit)
	}
	s.Records = append(s.Records, rec)
	s.Marks = append(s.Marks, "record:"+rec.Schema)
	return nil
}

func (s *CaptureSink) DiscardedEvents(count uint64) error {
	s.Discarded = append(s.Discarded, count)
	s.Marks = append(s.Marks, fmt.Sprintf("discarded:%d", count))
	return nil
}

func (s *CaptureSink) StreamBegin() error { s.Marks = append(s.Marks, "stream_begin"); return nil }
func (s *CaptureSink) StreamEnd() error   { s.Marks = append(s.Marks, "stream_end"); return nil }
func (s *CaptureSink) PacketBegin() error { s.Marks = append(s.Marks, "packet_begin"); return nil }
func (s *CaptureSink) PacketEnd() error   { s.Marks = append(s.Marks, "packet_end"); return nil }

func (r *CapturedRecord) SetCommonContext(id, eventCount, timer uint64) {
	r.ID = id
	r.EventCount = eventCount
	r.Timer = timer
}

func (r *CapturedRecord) setField(field int, f CapturedField) {
	if field < 0 || field >= len(r.schema.fields) {
		panic(fmt.Sprintf("field index %d out of range for schema %s", field, r.Schema))
	}
	def := r.schema.fields[field]
	f.Name = def.Name
	f.Type = def.Type
	r.Fields = append(r.Fields, f)
}

func (r *CapturedRecord) SetUint(field int, v uint64) { r.setField(field, CapturedField{Uint: v}) }
func (r *CapturedRecord) SetInt(field int, v int64)   { r.setField(field, CapturedField{Int: v}) }
func (r *CapturedRecord) SetText(field int, v Str)    { r.setField(field, CapturedField{Text: v}) }
func (r *CapturedRecord) SetEnum(field int, label Str, v int64) {
	r.setField(field, CapturedField{Enum: label, Int: v})
}
