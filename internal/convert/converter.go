package convert

import (
	"fmt"
	"log"

	"trc2otlp/internal/intern"
	"trc2otlp/internal/recorder"
	"trc2otlp/internal/sink"
)

// taskStateRunning is the prev_state enum emitted on every sched_switch.
// The recorder does not expose the previous task's real state, so the value
// is constant.
const taskStateRunning sink.Str = "TASK_RUNNING"

// Converter is the stateful conversion engine. It owns its caches and
// context state exclusively and must be driven by a single caller.
type Converter struct {
	out            sink.Sink
	schemas        *schemaCache
	strings        *intern.Strings
	kinds          *intern.Kinds
	state          *contextState
	defaultChannel string
}

// New creates a converter emitting to out. defaultChannel substitutes for
// user-event channels the target left unset.
func New(out sink.Sink, defaultChannel string) *Converter {
	if defaultChannel == "" {
		defaultChannel = "default"
	}
	kinds := intern.NewKinds()
	return &Converter{
		out:            out,
		schemas:        newSchemaCache(out, kinds),
		strings:        intern.NewStrings(),
		kinds:          kinds,
		state:          newContextState(),
		defaultChannel: defaultChannel,
	}
}

// Prime registers the fixed output schemas with the sink. Must be called
// once at stream open, before the first Convert.
func (c *Converter) Prime() error {
	return c.schemas.Prime()
}

// PendingISRDepth reports how many ISR entries are awaiting an exit.
func (c *Converter) PendingISRDepth() int { return c.state.PendingDepth() }

// ActiveContext returns the context the converter believes is running.
func (c *Converter) ActiveContext() Context { return c.state.Active() }

// Convert processes one decoded event, emitting its record(s) to the sink.
// eventCount and timestamp are the reconstructed monotonic values from the
// counter and rollover trackers.
func (c *Converter) Convert(eventCount, timestamp uint64, ev *recorder.Event) error {
	id := uint64(ev.Code)
	kind := ev.Code.Kind()

	switch kind {
	case recorder.KindTraceStart:
		if ev.Task == nil {
			return fmt.Errorf("%v event missing task payload", kind)
		}
		return c.convertTraceStart(id, eventCount, timestamp, ev.Task)
	case recorder.KindUserEvent:
		if ev.User == nil {
			return fmt.Errorf("%v event missing user payload", kind)
		}
		return c.convertUser(id, eventCount, timestamp, ev.User)
	case recorder.KindTaskReady:
		if ev.Task == nil {
			return fmt.Errorf("%v event missing task payload", kind)
		}
		return c.convertTaskReady(id, eventCount, timestamp, kind, ev.Task)
	case recorder.KindTaskResume, recorder.KindTaskActivate:
		if ev.Task == nil {
			return fmt.Errorf("%v event missing task payload", kind)
		}
		return c.convertTaskSwitch(id, eventCount, timestamp, kind, ev.Task)
	case recorder.KindIsrBegin:
		if ev.Isr == nil {
			return fmt.Errorf("%v event missing isr payload", kind)
		}
		return c.convertIsrBegin(id, eventCount, timestamp, kind, ev.Isr)
	case recorder.KindIsrResume:
		// A nil identity is tolerated here: the exit comes from the stack.
		return c.convertIsrResume(id, eventCount, timestamp, kind, ev.Isr)
	}

	if kind.Known() {
		// Named kind with no payload mapping: a generic record carrying
		// only the common context, under a lazily registered schema.
		return c.convertGeneric(id, eventCount, timestamp, kind)
	}
	return c.convertUnknown(id, eventCount, timestamp, kind)
}

func (c *Converter) convertTraceStart(id, count, ts uint64, task *recorder.TaskInfo) error {
	name, err := c.strings.Intern(task.Name)
	if err != nil {
		return fmt.Errorf("interning task name: %w", err)
	}

	rec, err := c.newRecord(classTraceStart, id, count, ts)
	if err != nil {
		return err
	}
	err = populate(rec, classFields[classTraceStart], []value{
		uintValue(uint64(task.Handle)),
		textValue(name),
	})
	if err != nil {
		return err
	}

	// The initiating task is the first active context.
	c.state.SetActive(Context{Handle: task.Handle, Name: name, Priority: task.Priority})
	return c.out.Emit(rec)
}

func (c *Converter) convertUnknown(id, count, ts uint64, kind recorder.Kind) error {
	name, err := c.kinds.Intern(kind)
	if err != nil {
		return fmt.Errorf("interning kind name: %w", err)
	}

	rec, err := c.newRecord(classUnknown, id, count, ts)
	if err != nil {
		return err
	}
	if err := populate(rec, classFields[classUnknown], []value{textValue(name)}); err != nil {
		return err
	}
	return c.out.Emit(rec)
}

func (c *Converter) convertUser(id, count, ts uint64, user *recorder.UserInfo) error {
	channel := user.Channel
	if channel == "" {
		channel = c.defaultChannel
	}
	ch, err := c.strings.Intern(channel)
	if err != nil {
		return fmt.Errorf("interning channel: %w", err)
	}
	format, err := c.strings.Intern(user.Format)
	if err != nil {
		return fmt.Errorf("interning format string: %w", err)
	}
	formatted, err := c.strings.Intern(user.Formatted)
	if err != nil {
		return fmt.Errorf("interning formatted string: %w", err)
	}

	rec, err := c.newRecord(classUser, id, count, ts)
	if err != nil {
		return err
	}
	err = populate(rec, classFields[classUser], []value{
		textValue(ch),
		textValue(format),
		textValue(formatted),
	})
	if err != nil {
		return err
	}
	return c.out.Emit(rec)
}

func (c *Converter) convertTaskReady(id, count, ts uint64, kind recorder.Kind, task *recorder.TaskInfo) error {
	srcType, err := c.kinds.Intern(kind)
	if err != nil {
		return fmt.Errorf("interning kind name: %w", err)
	}
	comm, err := c.strings.Intern(task.Name)
	if err != nil {
		return fmt.Errorf("interning task name: %w", err)
	}

	rec, err := c.newRecord(classSchedWakeup, id, count, ts)
	if err != nil {
		return err
	}
	err = populate(rec, classFields[classSchedWakeup], []value{
		textValue(srcType),
		textValue(comm),
		intValue(int64(task.Handle)),
		intValue(int64(task.Priority)),
		intValue(0), // target_cpu: single-core target
	})
	if err != nil {
		return err
	}
	return c.out.Emit(rec)
}

// convertTaskSwitch handles task resume/activate. The scheduler's
// return-to-thread event doubles as the exit of an outstanding ISR, so a
// pending entry is closed first, then the switch is recorded.
func (c *Converter) convertTaskSwitch(id, count, ts uint64, kind recorder.Kind, task *recorder.TaskInfo) error {
	if popped, ok := c.state.PopISR(); ok {
		if err := c.emitIrqExit(id, count, ts, kind, popped); err != nil {
			return err
		}
	}

	srcType, err := c.kinds.Intern(kind)
	if err != nil {
		return fmt.Errorf("interning kind name: %w", err)
	}
	nextName, err := c.strings.Intern(task.Name)
	if err != nil {
		return fmt.Errorf("interning task name: %w", err)
	}
	next := Context{Handle: task.Handle, Name: nextName, Priority: task.Priority}
	prev := c.state.Active()

	rec, err := c.newRecord(classSchedSwitch, id, count, ts)
	if err != nil {
		return err
	}
	err = populate(rec, classFields[classSchedSwitch], []value{
		textValue(srcType),
		textValue(prev.Name),
		intValue(int64(prev.Handle)),
		intValue(int64(prev.Priority)),
		enumValue(taskStateRunning, 0),
		textValue(next.Name),
		intValue(int64(next.Handle)),
		intValue(int64(next.Priority)),
	})
	if err != nil {
		return err
	}
	if err := c.out.Emit(rec); err != nil {
		return err
	}

	c.state.SetActive(next)
	return nil
}

func (c *Converter) convertIsrBegin(id, count, ts uint64, kind recorder.Kind, isr *recorder.IsrInfo) error {
	srcType, err := c.kinds.Intern(kind)
	if err != nil {
		return fmt.Errorf("interning kind name: %w", err)
	}
	name, err := c.strings.Intern(isr.Name)
	if err != nil {
		return fmt.Errorf("interning isr name: %w", err)
	}
	ctx := Context{Handle: isr.Handle, Name: name, Priority: isr.Priority}
	c.state.PushISR(ctx)

	rec, err := c.newRecord(classIrqEntry, id, count, ts)
	if err != nil {
		return err
	}
	err = populate(rec, classFields[classIrqEntry], []value{
		textValue(srcType),
		intValue(int64(ctx.Handle)),
		textValue(ctx.Name),
		intValue(int64(ctx.Priority)),
	})
	if err != nil {
		return err
	}
	return c.out.Emit(rec)
}

// convertIsrResume closes the most recent ISR entry. Stack order is the
// source of truth; the resume event's claimed identity is only checked
// against it.
func (c *Converter) convertIsrResume(id, count, ts uint64, kind recorder.Kind, isr *recorder.IsrInfo) error {
	popped, ok := c.state.PopISR()
	if !ok {
		log.Printf("got ISR resume with no pending ISR entry, ignoring (kind=%v)", kind)
		return nil
	}

	if isr != nil &&
		(popped.Handle != isr.Handle || string(popped.Name) != isr.Name || popped.Priority != isr.Priority) {
		log.Printf("ISR resume identity mismatch: event claims %q (handle=%d prio=%d), stack has %q (handle=%d prio=%d); trusting stack order",
			isr.Name, isr.Handle, isr.Priority, popped.Name, popped.Handle, popped.Priority)
	}

	return c.emitIrqExit(id, count, ts, kind, popped)
}

func (c *Converter) convertGeneric(id, count, ts uint64, kind recorder.Kind) error {
	sid, err := c.schemas.dynamicClass(kind)
	if err != nil {
		return err
	}
	rec, err := c.out.NewRecord(sid, ts)
	if err != nil {
		return fmt.Errorf("creating %v record: %w", kind, err)
	}
	rec.SetCommonContext(id, count, ts)
	return c.out.Emit(rec)
}

func (c *Converter) emitIrqExit(id, count, ts uint64, kind recorder.Kind, ctx Context) error {
	srcType, err := c.kinds.Intern(kind)
	if err != nil {
		return fmt.Errorf("interning kind name: %w", err)
	}

	rec, err := c.newRecord(classIrqExit, id, count, ts)
	if err != nil {
		return err
	}
	err = populate(rec, classFields[classIrqExit], []value{
		textValue(srcType),
		intValue(int64(ctx.Handle)),
		textValue(ctx.Name),
		intValue(1), // ret: handled
	})
	if err != nil {
		return err
	}
	return c.out.Emit(rec)
}

// newRecord creates a record for a fixed class and sets the common context.
// The sink contract requires the common context before any payload field.
func (c *Converter) newRecord(cl class, id, count, ts uint64) (sink.Record, error) {
	sid, err := c.schemas.fixedClass(cl)
	if err != nil {
		return nil, err
	}
	rec, err := c.out.NewRecord(sid, ts)
	if err != nil {
		return nil, fmt.Errorf("creating %s record: %w", classNames[cl], err)
	}
	rec.SetCommonContext(id, count, ts)
	return rec, nil
}

// value is one field value for the generic populate routine. Which member
// is read depends on the schema's field type at the same index.
type value struct {
	u     uint64
	i     int64
	s     sink.Str
	label sink.Str
}

func uintValue(v uint64) value            { return value{u: v} }
func intValue(v int64) value              { return value{i: v} }
func textValue(v sink.Str) value          { return value{s: v} }
func enumValue(l sink.Str, v int64) value { return value{label: l, i: v} }

// populate fills a record's payload from the field table and a matching
// value slice, in table order.
func populate(rec sink.Record, fields []sink.FieldDef, vals []value) error {
	if len(vals) != len(fields) {
		return fmt.Errorf("schema has %d fields, got %d values", len(fields), len(vals))
	}
	for i, def := range fields {
		switch def.Type {
		case sink.FieldUint:
			rec.SetUint(i, vals[i].u)
		case sink.FieldInt:
			rec.SetInt(i, vals[i].i)
		case sink.FieldText:
			rec.SetText(i, vals[i].s)
		case sink.FieldEnum:
			rec.SetEnum(i, vals[i].label, vals[i].i)
		}
	}
	return nil
}
