package sink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"trc2otlp/internal/timesync"
)

func TestNewStr(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "plain", in: "idle"},
		{name: "empty", in: ""},
		{name: "unicode", in: "täsk"},
		{name: "embedded NUL", in: "id\x00le", wantErr: true},
		{name: "invalid utf8", in: string([]byte{0xff, 0xfe}), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStr(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, string(s))
		})
	}
}

func TestCaptureSinkBatchLimit(t *testing.T) {
	s := NewCaptureSink()
	s.Limit = 1

	id, err := s.RegisterSchema("X", nil)
	require.NoError(t, err)

	rec, err := s.NewRecord(id, 1)
	require.NoError(t, err)
	require.NoError(t, s.Emit(rec))

	rec, err = s.NewRecord(id, 2)
	require.NoError(t, err)
	assert.Error(t, s.Emit(rec), "emit past capacity must fail")
}

func TestCaptureSinkFieldsByName(t *testing.T) {
	s := NewCaptureSink()
	id, err := s.RegisterSchema("pair", []FieldDef{
		{Name: "a", Type: FieldUint},
		{Name: "b", Type: FieldText},
	})
	require.NoError(t, err)

	rec, err := s.NewRecord(id, 7)
	require.NoError(t, err)
	rec.SetCommonContext(1, 2, 3)
	rec.SetUint(0, 42)
	rec.SetText(1, "hi")
	require.NoError(t, s.Emit(rec))

	got := s.Records[0]
	assert.Equal(t, uint64(1), got.ID)
	assert.Equal(t, uint64(2), got.EventCount)
	assert.Equal(t, uint64(3), got.Timer)

	a, ok := got.Field("a")
	require.True(t, ok)
	assert.Equal(t, uint64(42), a.Uint)
	b, ok := got.Field("b")
	require.True(t, ok)
	assert.Equal(t, Str("hi"), b.Text)
}

func TestOTLPSinkExportsSpanEvents(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	base := time.Unix(1_700_000_000, 0)
	clock := timesync.NewWallClock(base, 1_000_000)

	s := NewOTLP(tracer, clock, "freertos", nil, nil)

	id, err := s.RegisterSchema("sched_wakeup", []FieldDef{
		{Name: "comm", Type: FieldText},
		{Name: "tid", Type: FieldInt},
	})
	require.NoError(t, err)

	require.NoError(t, s.StreamBegin())
	require.NoError(t, s.PacketBegin())

	rec, err := s.NewRecord(id, 2_000_000)
	require.NoError(t, err)
	rec.SetCommonContext(0x30, 5, 2_000_000)
	rec.SetText(0, "worker")
	rec.SetInt(1, 2)
	require.NoError(t, s.Emit(rec))

	require.NoError(t, s.DiscardedEvents(3))
	require.NoError(t, s.PacketEnd())
	require.NoError(t, s.StreamEnd())

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "freertos", span.Name())

	events := span.Events()
	require.Len(t, events, 4)
	assert.Equal(t, "packet_begin", events[0].Name)
	assert.Equal(t, "sched_wakeup", events[1].Name)
	assert.Equal(t, base.Add(2*time.Second), events[1].Time)
	assert.Equal(t, "discarded_events", events[2].Name)
	assert.Equal(t, "packet_end", events[3].Name)

	attrs := map[string]string{}
	for _, kv := range events[1].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "0x0030", attrs["id"])
	assert.Equal(t, "worker", attrs["comm"])
}

func TestOTLPSinkEmitBeforeStreamBegin(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	clock := timesync.NewWallClock(time.Unix(0, 0), 1_000_000)
	s := NewOTLP(tp.Tracer("test"), clock, "t", nil, nil)

	id, err := s.RegisterSchema("X", nil)
	require.NoError(t, err)
	rec, err := s.NewRecord(id, 0)
	require.NoError(t, err)
	assert.Error(t, s.Emit(rec))
	assert.Error(t, s.DiscardedEvents(1))
}
