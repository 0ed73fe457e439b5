// Package sampler converts cumulative interface byte counters into
// instantaneous rates and session totals.
package sampler

// State represents the sampling state for the active interface.
type State string

const (
	// StateUnbound indicates no interface is selected.
	StateUnbound State = "unbound"
	// StateBaselined indicates a selection was just made and exactly one
	// counter reading exists, so no elapsed-time delta is computable yet.
	StateBaselined State = "baselined"
	// StateTracking indicates at least two readings exist and rates are
	// computable.
	StateTracking State = "tracking"
)

// IsBound returns true if an interface is currently selected.
func (s State) IsBound() bool {
	return s == StateBaselined || s == StateTracking
}

// validTransitions defines the allowed state transitions.
var validTransitions = map[State][]State{
	StateUnbound: {
		StateBaselined,
	},
	StateBaselined: {
		StateTracking,
		StateUnbound,
	},
	StateTracking: {
		StateBaselined, // re-selection replaces the baseline
		StateUnbound,
	},
}

// IsValidTransition checks if transitioning from one state to another is allowed.
func IsValidTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// AllStates returns all possible sampling states.
func AllStates() []State {
	return []State{
		StateUnbound,
		StateBaselined,
		StateTracking,
	}
}
