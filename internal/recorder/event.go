package recorder

import "fmt"

// Kind identifies the variant of a decoded event. The low 12 bits of the
// event code select the kind; the high 4 bits carry the payload word count.
type Kind uint16

const (
	KindNull         Kind = 0x000
	KindTraceStart   Kind = 0x001
	KindTaskCreate   Kind = 0x010
	KindTaskDelete   Kind = 0x011
	KindTaskDelay    Kind = 0x012
	KindQueueCreate  Kind = 0x020
	KindQueueSend    Kind = 0x021
	KindQueueRecv    Kind = 0x022
	KindTaskReady    Kind = 0x030
	KindIsrBegin     Kind = 0x033
	KindIsrResume    Kind = 0x034
	KindTaskResume   Kind = 0x036
	KindTaskActivate Kind = 0x037
	KindMemAlloc     Kind = 0x040
	KindMemFree      Kind = 0x041
	KindUserEvent    Kind = 0x090
)

var kindNames = map[Kind]string{
	KindNull:         "NULL",
	KindTraceStart:   "TRACE_START",
	KindTaskCreate:   "TASK_CREATE",
	KindTaskDelete:   "TASK_DELETE",
	KindTaskDelay:    "TASK_DELAY",
	KindQueueCreate:  "QUEUE_CREATE",
	KindQueueSend:    "QUEUE_SEND",
	KindQueueRecv:    "QUEUE_RECEIVE",
	KindTaskReady:    "TASK_READY",
	KindIsrBegin:     "TASK_SWITCH_ISR_BEGIN",
	KindIsrResume:    "TASK_SWITCH_ISR_RESUME",
	KindTaskResume:   "TASK_SWITCH_TASK_RESUME",
	KindTaskActivate: "TASK_ACTIVATE",
	KindMemAlloc:     "MEMORY_ALLOC",
	KindMemFree:      "MEMORY_FREE",
	KindUserEvent:    "USER_EVENT",
}

// Known reports whether k is part of the closed named set. Codes outside the
// set are still decoded; they surface as UNKNOWN records downstream.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%03X)", uint16(k))
}

// EventCode is the raw 16-bit event code from the wire.
type EventCode uint16

// Kind returns the kind discriminant in the low 12 bits.
func (c EventCode) Kind() Kind { return Kind(c & 0x0FFF) }

// ParamCount returns the payload word count in the high 4 bits.
func (c EventCode) ParamCount() int { return int(c >> 12) }

// TaskInfo identifies a task: scheduler handle, display name and priority.
type TaskInfo struct {
	Handle   uint32
	Name     string
	Priority uint32
}

// IsrInfo identifies an interrupt handler.
type IsrInfo struct {
	Handle   uint32
	Name     string
	Priority uint32
}

// UserInfo carries the payload of a user-emitted trace event. Channel may be
// empty, in which case the converter substitutes the default channel name.
type UserInfo struct {
	Channel   string
	Format    string
	Formatted string
}

// Event is one decoded trace event. Exactly one of Task, Isr, User is
// non-nil, selected by Code.Kind(); payload-free kinds carry none.
type Event struct {
	Code      EventCode
	Counter   uint16 // wrapping sequence counter
	Timestamp uint32 // wrapping timer ticks

	Task *TaskInfo
	Isr  *IsrInfo
	User *UserInfo
}

// Header describes the capture stream, read once after the start word.
type Header struct {
	FormatVersion    uint16
	Platform         string
	TimerFrequency   uint32 // ticks per second
	TimerBits        uint8  // width of the wrapping timestamp counter
	TimerWraparounds uint32 // wraps observed before streaming began
}
