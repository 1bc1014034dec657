package tempmongo

// State is the lifecycle position of an Instance.
type State int

const (
	StateUninitialized State = iota
	StateStarting
	StateReady
	StateTearingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateTearingDown:
		return "tearing_down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
