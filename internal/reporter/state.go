// ABOUTME: Reporting loop lifecycle states
// ABOUTME: Idle, Starting, Reporting, Stopped

package reporter

// State is a position in the reporting loop lifecycle.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateReporting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateReporting:
		return "reporting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
