package access

// HostnameState is a step of the hostname loop.
type HostnameState int

// Hostname loop states.
const (
	StateAwaitInput HostnameState = iota
	StateResolving
	StateConfirming
	StateResolved
)

func (s HostnameState) String() string {
	switch s {
	case StateAwaitInput:
		return "await_input"
	case StateResolving:
		return "resolving"
	case StateConfirming:
		return "confirming"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// AccessState is a step of the access loop.
type AccessState int

// Access loop states. Granted and Cancelled are terminal.
const (
	StateAwaitConfirm AccessState = iota
	StateProbing
	StateGranted
	StateCancelled
)

func (s AccessState) String() string {
	switch s {
	case StateAwaitConfirm:
		return "await_confirm"
	case StateProbing:
		return "probing"
	case StateGranted:
		return "granted"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the access loop ends in this state.
func (s AccessState) Terminal() bool {
	return s == StateGranted || s == StateCancelled
}
