package efunc

import (
	"sync/atomic"
)

// State of one invocation. Transitions only move forward:
// Unmapped -> Mapped -> Submitted -> Completed/Failed.
type State uint32

const (
	StateUnmapped State = iota
	StateMapped
	StateSubmitted
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnmapped:
		return "unmapped"
	case StateMapped:
		return "mapped"
	case StateSubmitted:
		return "submitted"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InvocationHandle correlates one submitted invocation with its eventual
// output. It is good for exactly one retrieval.
type InvocationHandle struct {
	id         string
	functionID FunctionID
	state      uint32
}

func newHandle(id string, fid FunctionID) *InvocationHandle {
	return &InvocationHandle{
		id:         id,
		functionID: fid,
		state:      uint32(StateSubmitted),
	}
}

func (h *InvocationHandle) ID() string {
	return h.id
}

func (h *InvocationHandle) FunctionID() FunctionID {
	return h.functionID
}

func (h *InvocationHandle) State() State {
	return State(atomic.LoadUint32(&h.state))
}

// consume moves the handle into its terminal state. Reports false when the
// handle already reached one, which is how double retrieval is caught even
// under concurrent misuse.
func (h *InvocationHandle) consume(ok bool) bool {
	terminal := StateFailed
	if ok {
		terminal = StateCompleted
	}
	return atomic.CompareAndSwapUint32(&h.state,
		uint32(StateSubmitted), uint32(terminal))
}

func (h *InvocationHandle) consumed() bool {
	s := h.State()
	return s == StateCompleted || s == StateFailed
}
