package rendezvous

// State is the maneuver state
type State int

const (
	// StateTakingOff is owned by the vehicle collaborator; the controller starts here
	StateTakingOff State = iota
	StateRendezvousing
	StateConverged
	StateResetting
)

func (s State) String() string {
	switch s {
	case StateTakingOff:
		return "taking_off"
	case StateRendezvousing:
		return "rendezvousing"
	case StateConverged:
		return "converged"
	case StateResetting:
		return "resetting"
	default:
		return "unknown"
	}
}

// Finished reports whether no further ticks are allowed
func (s State) Finished() bool {
	return s == StateConverged || s == StateResetting
}
