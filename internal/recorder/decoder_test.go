package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	buf bytes.Buffer
}

func (w *captureWriter) u16(v uint16) { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *captureWriter) u32(v uint32) { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *captureWriter) str(s string) {
	w.buf.WriteByte(byte(len(s)))
	w.buf.WriteString(s)
}

func (w *captureWriter) start(platform string, freq uint32, bits uint8, wraps uint32) {
	w.buf.Write(startWord[:])
	w.u16(1) // format version
	w.str(platform)
	w.u32(freq)
	w.buf.WriteByte(bits)
	w.u32(wraps)
}

func (w *captureWriter) frame(kind Kind, paramWords int, counter uint16, ts uint32) {
	w.u16(uint16(kind) | uint16(paramWords)<<12)
	w.u16(counter)
	w.u32(ts)
}

func (w *captureWriter) identity(handle, prio uint32, name string) {
	w.u32(handle)
	w.u32(prio)
	w.str(name)
}

func TestDecoderHeader(t *testing.T) {
	var w captureWriter
	w.start("FreeRTOS", 1_000_000, 32, 2)

	d, err := NewDecoder(&w.buf)
	require.NoError(t, err)

	hdr := d.Header()
	assert.Equal(t, uint16(1), hdr.FormatVersion)
	assert.Equal(t, "FreeRTOS", hdr.Platform)
	assert.Equal(t, uint32(1_000_000), hdr.TimerFrequency)
	assert.Equal(t, uint8(32), hdr.TimerBits)
	assert.Equal(t, uint32(2), hdr.TimerWraparounds)
}

func TestDecoderSkipsLeadingGarbage(t *testing.T) {
	var w captureWriter
	w.buf.Write([]byte{0xDE, 0xAD, 'P', 'S', 0xBE})
	w.start("port", 1000, 16, 0)

	d, err := NewDecoder(&w.buf)
	require.NoError(t, err)
	assert.Equal(t, "port", d.Header().Platform)
}

func TestDecoderReadsEvents(t *testing.T) {
	var w captureWriter
	w.start("port", 1000, 32, 0)

	w.frame(KindTraceStart, 0, 1, 100)
	w.identity(1, 0, "main")

	w.frame(KindIsrBegin, 0, 2, 110)
	w.identity(5, 3, "isr1")

	w.frame(KindUserEvent, 0, 3, 120)
	w.str("ch")
	w.str("%d")
	w.str("42")

	w.frame(KindTaskDelay, 1, 4, 130)
	w.u32(250) // payload word, discarded

	d, err := NewDecoder(&w.buf)
	require.NoError(t, err)

	ev, err := d.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, KindTraceStart, ev.Code.Kind())
	require.NotNil(t, ev.Task)
	assert.Equal(t, uint32(1), ev.Task.Handle)
	assert.Equal(t, "main", ev.Task.Name)
	assert.Equal(t, uint16(1), ev.Counter)
	assert.Equal(t, uint32(100), ev.Timestamp)

	ev, err = d.ReadEvent()
	require.NoError(t, err)
	require.NotNil(t, ev.Isr)
	assert.Equal(t, uint32(5), ev.Isr.Handle)
	assert.Equal(t, "isr1", ev.Isr.Name)
	assert.Equal(t, uint32(3), ev.Isr.Priority)

	ev, err = d.ReadEvent()
	require.NoError(t, err)
	require.NotNil(t, ev.User)
	assert.Equal(t, "ch", ev.User.Channel)
	assert.Equal(t, "%d", ev.User.Format)
	assert.Equal(t, "42", ev.User.Formatted)

	ev, err = d.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, KindTaskDelay, ev.Code.Kind())
	assert.Nil(t, ev.Task)

	_, err = d.ReadEvent()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderRestart(t *testing.T) {
	var w captureWriter
	w.start("port", 1000, 32, 0)
	w.frame(KindTraceStart, 0, 1, 100)
	w.identity(1, 0, "main")

	// Target restarted: a fresh start word and header mid-stream.
	w.start("port", 2000, 32, 0)
	w.frame(KindTraceStart, 0, 1, 10)
	w.identity(1, 0, "main")

	d, err := NewDecoder(&w.buf)
	require.NoError(t, err)

	_, err = d.ReadEvent()
	require.NoError(t, err)

	_, err = d.ReadEvent()
	require.True(t, errors.Is(err, ErrRestarted))
	assert.Equal(t, uint32(2000), d.Header().TimerFrequency, "header re-read after restart")

	ev, err := d.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, uint32(10), ev.Timestamp)
}

func TestDecoderUnknownKindSkipsParams(t *testing.T) {
	var w captureWriter
	w.start("port", 1000, 32, 0)
	w.frame(Kind(0x0F3), 2, 1, 100)
	w.u32(1)
	w.u32(2)
	w.frame(KindTaskReady, 0, 2, 110)
	w.identity(2, 1, "B")

	d, err := NewDecoder(&w.buf)
	require.NoError(t, err)

	ev, err := d.ReadEvent()
	require.NoError(t, err)
	assert.False(t, ev.Code.Kind().Known())

	ev, err = d.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, KindTaskReady, ev.Code.Kind())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "TASK_READY", KindTaskReady.String())
	assert.Equal(t, "UNKNOWN(0x0F3)", Kind(0x0F3).String())
}
