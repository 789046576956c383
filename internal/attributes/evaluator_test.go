package attributes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trc2otlp/internal/config"
)

func TestEvaluatorSimpleExpression(t *testing.T) {
	e, err := NewEvaluator([]config.CustomAttribute{
		{Name: "board", Expression: `"rev-b"`},
	})
	require.NoError(t, err)

	attrs := e.Evaluate("sched_switch", map[string]interface{}{})
	require.Len(t, attrs, 1)
	assert.Equal(t, "board", string(attrs[0].Key))
	assert.Equal(t, "rev-b", attrs[0].Value.AsString())
}

func TestEvaluatorSeesSchemaAndFields(t *testing.T) {
	e, err := NewEvaluator([]config.CustomAttribute{
		{Name: "next", Expression: `schema == "sched_switch" ? fields.next_comm : nil`},
	})
	require.NoError(t, err)

	attrs := e.Evaluate("sched_switch", map[string]interface{}{"next_comm": "worker"})
	require.Len(t, attrs, 1)
	assert.Equal(t, "worker", attrs[0].Value.AsString())

	attrs = e.Evaluate("sched_wakeup", map[string]interface{}{"comm": "worker"})
	assert.Empty(t, attrs, "nil results are skipped")
}

func TestEvaluatorMapExpansion(t *testing.T) {
	e, err := NewEvaluator([]config.CustomAttribute{
		{Name: "meta", Expression: `{"cpu count": 1, "rev": "b"}`},
	})
	require.NoError(t, err)

	attrs := e.Evaluate("TRACE_START", map[string]interface{}{})
	require.Len(t, attrs, 2)

	got := map[string]string{}
	for _, a := range attrs {
		got[string(a.Key)] = a.Value.AsString()
	}
	assert.Equal(t, "1", got["meta.cpu_count"], "map keys are sanitized")
	assert.Equal(t, "b", got["meta.rev"])
}

func TestEvaluatorCompileError(t *testing.T) {
	_, err := NewEvaluator([]config.CustomAttribute{
		{Name: "bad", Expression: `fields[`},
	})
	assert.Error(t, err)
}

func TestEvaluatorNilReceiver(t *testing.T) {
	var e *Evaluator
	assert.Nil(t, e.Evaluate("UNKNOWN", nil))
}
