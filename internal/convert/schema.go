package convert

import (
	"fmt"

	"trc2otlp/internal/intern"
	"trc2otlp/internal/recorder"
	"trc2otlp/internal/sink"
)

// class indexes the fixed output schemas.
type class int

const (
	classTraceStart class = iota
	classUnknown
	classUser
	classSchedSwitch
	classSchedWakeup
	classIrqEntry
	classIrqExit
	numClasses
)

var classNames = [numClasses]sink.Str{
	classTraceStart:  "TRACE_START",
	classUnknown:     "UNKNOWN",
	classUser:        "USER_EVENT",
	classSchedSwitch: "sched_switch",
	classSchedWakeup: "sched_wakeup",
	classIrqEntry:    "irq_handler_entry",
	classIrqExit:     "irq_handler_exit",
}

// classFields is the single source of truth for the output field contract.
// Registration and population both walk these tables; field order is part of
// the contract.
var classFields = [numClasses][]sink.FieldDef{
	classTraceStart: {
		{Name: "task_handle", Type: sink.FieldUint},
		{Name: "task", Type: sink.FieldText},
	},
	classUnknown: {
		{Name: "event_type", Type: sink.FieldText},
	},
	classUser: {
		{Name: "channel", Type: sink.FieldText},
		{Name: "format_string", Type: sink.FieldText},
		{Name: "formatted_string", Type: sink.FieldText},
	},
	classSchedSwitch: {
		{Name: "src_event_type", Type: sink.FieldText},
		{Name: "prev_comm", Type: sink.FieldText},
		{Name: "prev_tid", Type: sink.FieldInt},
		{Name: "prev_prio", Type: sink.FieldInt},
		{Name: "prev_state", Type: sink.FieldEnum},
		{Name: "next_comm", Type: sink.FieldText},
		{Name: "next_tid", Type: sink.FieldInt},
		{Name: "next_prio", Type: sink.FieldInt},
	},
	classSchedWakeup: {
		{Name: "src_event_type", Type: sink.FieldText},
		{Name: "comm", Type: sink.FieldText},
		{Name: "tid", Type: sink.FieldInt},
		{Name: "prio", Type: sink.FieldInt},
		{Name: "target_cpu", Type: sink.FieldInt},
	},
	classIrqEntry: {
		{Name: "src_event_type", Type: sink.FieldText},
		{Name: "irq", Type: sink.FieldInt},
		{Name: "name", Type: sink.FieldText},
		{Name: "prio", Type: sink.FieldInt},
	},
	classIrqExit: {
		{Name: "src_event_type", Type: sink.FieldText},
		{Name: "irq", Type: sink.FieldInt},
		{Name: "name", Type: sink.FieldText},
		{Name: "ret", Type: sink.FieldInt},
	},
}

// schemaCache memoizes schema registration with the sink. The fixed classes
// are registered eagerly by Prime; schemas for payload-free named kinds are
// registered lazily, once per distinct kind.
type schemaCache struct {
	out     sink.Sink
	kinds   *intern.Kinds
	fixed   [numClasses]sink.SchemaID
	primed  bool
	dynamic map[recorder.Kind]sink.SchemaID
}

func newSchemaCache(out sink.Sink, kinds *intern.Kinds) *schemaCache {
	return &schemaCache{
		out:     out,
		kinds:   kinds,
		dynamic: make(map[recorder.Kind]sink.SchemaID),
	}
}

// Prime registers the fixed classes with the sink. Safe to call more than
// once; only the first call registers anything.
func (c *schemaCache) Prime() error {
	if c.primed {
		return nil
	}
	for cl := class(0); cl < numClasses; cl++ {
		id, err := c.out.RegisterSchema(classNames[cl], classFields[cl])
		if err != nil {
			return fmt.Errorf("registering schema %s: %w", classNames[cl], err)
		}
		c.fixed[cl] = id
	}
	c.primed = true
	return nil
}

func (c *schemaCache) fixedClass(cl class) (sink.SchemaID, error) {
	if !c.primed {
		return 0, fmt.Errorf("schema cache not primed")
	}
	return c.fixed[cl], nil
}

// dynamicClass returns the schema for a payload-free named kind, registering
// it on first sight.
func (c *schemaCache) dynamicClass(kind recorder.Kind) (sink.SchemaID, error) {
	if id, ok := c.dynamic[kind]; ok {
		return id, nil
	}
	name, err := c.kinds.Intern(kind)
	if err != nil {
		return 0, fmt.Errorf("interning kind name: %w", err)
	}
	id, err := c.out.RegisterSchema(name, nil)
	if err != nil {
		return 0, fmt.Errorf("registering schema %s: %w", name, err)
	}
	c.dynamic[kind] = id
	return id, nil
}
