package convert

import (
	"github.com/emirpasic/gods/stacks/arraystack"

	"trc2otlp/internal/sink"
)

// NoTaskHandle is the handle of the synthetic context active before the
// first scheduler event.
const NoTaskHandle uint32 = 0

// StartupTaskName names the synthetic startup context.
const StartupTaskName sink.Str = "(startup)"

// Context identifies a scheduling context: a task or an interrupt handler.
type Context struct {
	Handle   uint32
	Name     sink.Str
	Priority uint32
}

// contextState tracks the currently running context and the stack of ISR
// entries not yet matched by an exit.
type contextState struct {
	active  Context
	pending *arraystack.Stack
}

func newContextState() *contextState {
	return &contextState{
		active: Context{
			Handle:   NoTaskHandle,
			Name:     StartupTaskName,
			Priority: 0,
		},
		pending: arraystack.New(),
	}
}

// Active returns the context believed to be currently executing.
func (s *contextState) Active() Context { return s.active }

// SetActive replaces the active context. Only task resume/activate
// processing does this.
func (s *contextState) SetActive(c Context) { s.active = c }

// PushISR records a nested ISR entry. The active context is unchanged.
func (s *contextState) PushISR(c Context) { s.pending.Push(c) }

// PopISR removes and returns the most recent unmatched ISR entry. It never
// underflows; ok is false when no entry is pending.
func (s *contextState) PopISR() (Context, bool) {
	v, ok := s.pending.Pop()
	if !ok {
		return Context{}, false
	}
	return v.(Context), true
}

// PendingDepth returns the number of unmatched ISR entries.
func (s *contextState) PendingDepth() int { return s.pending.Size() }
