package plugin

// State represents the lifecycle state of an extension.
type State int

// Extension states. The numeric order is the only legal direction of travel.
const (
	// StateRegistered - Extension is declared but has not started activating.
	StateRegistered State = iota

	// StateInstalling - Extension code is being made available.
	StateInstalling

	// StateSettingUp - Dependencies are active and setup is running.
	StateSettingUp

	// StateActive - Setup completed. Terminal.
	StateActive

	// StateFailed - Installation, a dependency or setup failed. Terminal.
	StateFailed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateInstalling:
		return "installing"
	case StateSettingUp:
		return "setting-up"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateActive || s == StateFailed
}

// IsActivating returns true while an activation is in progress.
func (s State) IsActivating() bool {
	return s == StateInstalling || s == StateSettingUp
}

// CanTransition reports whether moving from s to next is legal.
// Transitions only move forward; Failed is reachable from the two
// in-progress states.
func (s State) CanTransition(next State) bool {
	switch next {
	case StateInstalling:
		return s == StateRegistered
	case StateSettingUp:
		return s == StateInstalling
	case StateActive:
		return s == StateSettingUp
	case StateFailed:
		return s.IsActivating()
	default:
		return false
	}
}
