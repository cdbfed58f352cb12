package trader

import (
	"fmt"

	"trader/pkg/exception"
)

// State is the orchestrator lifecycle state.
type State uint8

const (
	StateCreated State = iota
	StateInitializing
	StateRunning
	StateFaulted
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateFaulted:
		return "faulted"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var transitions = map[State][]State{
	StateCreated:      {StateInitializing, StateShuttingDown},
	StateInitializing: {StateRunning, StateFaulted},
	StateRunning:      {StateFaulted, StateShuttingDown},
	StateFaulted:      {StateShuttingDown},
	StateShuttingDown: {StateStopped},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", exception.ErrTraderInvalidTransition, from, to)
}
