package intern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trc2otlp/internal/recorder"
	"trc2otlp/internal/sink"
)

func TestStringsConvertOnce(t *testing.T) {
	calls := 0
	s := NewStrings()
	s.convert = func(v string) (sink.Str, error) {
		calls++
		return sink.NewStr(v)
	}

	first, err := s.Intern("idle")
	require.NoError(t, err)
	second, err := s.Intern("idle")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "conversion must run exactly once per distinct value")

	_, err = s.Intern("other")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestStringsConversionFailureNotCached(t *testing.T) {
	s := NewStrings()
	_, err := s.Intern("bad\x00value")
	require.Error(t, err)

	// Failed conversions are retried, not cached as empty handles.
	_, err = s.Intern("bad\x00value")
	assert.Error(t, err)
}

func TestKindsConvertOnce(t *testing.T) {
	calls := 0
	k := NewKinds()
	k.convert = func(v string) (sink.Str, error) {
		calls++
		return sink.NewStr(v)
	}

	first, err := k.Intern(recorder.KindTaskReady)
	require.NoError(t, err)
	second, err := k.Intern(recorder.KindTaskReady)
	require.NoError(t, err)

	assert.Equal(t, sink.Str("TASK_READY"), first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestKindsAndStringsDoNotCollide(t *testing.T) {
	s := NewStrings()
	k := NewKinds()

	_, err := s.Intern("TASK_READY")
	require.NoError(t, err)
	got, err := k.Intern(recorder.KindTaskReady)
	require.NoError(t, err)
	assert.Equal(t, sink.Str("TASK_READY"), got)
}
