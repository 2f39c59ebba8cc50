package preview

import (
	"fmt"
	"sync/atomic"
)

// State is the invalidation controller's lifecycle phase. There is no
// terminal state; the pipeline lives for the lifetime of the engine.
type State int32

const (
	StateUninitialized State = iota
	StateBuilding
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBuilding:
		return "building"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// allowedTransitions: UNINITIALIZED → BUILDING → RUNNING, and
// RUNNING → BUILDING on every rebuild.
var allowedTransitions = map[State][]State{
	StateUninitialized: {StateBuilding},
	StateBuilding:      {StateRunning},
	StateRunning:       {StateBuilding},
}

// stateMachine guards controller transitions. Writes happen under the
// engine's mutex; reads are lock-free.
type stateMachine struct {
	cur atomic.Int32
}

func (m *stateMachine) current() State { return State(m.cur.Load()) }

func (m *stateMachine) to(next State) error {
	cur := m.current()
	for _, ok := range allowedTransitions[cur] {
		if next == ok {
			m.cur.Store(int32(next))
			return nil
		}
	}
	return fmt.Errorf("preview: invalid state transition %s → %s", cur, next)
}
