// Package sink defines the trace-interchange output boundary: schema
// registration, record construction, field population and stream/packet/loss
// markers. OTLPSink exports records as OpenTelemetry span events;
// CaptureSink buffers them in memory for tests.
package sink
