package orchestrator

// State is a step of a single run invocation.
type State int

const (
	StateIdle State = iota
	StateGuardCheck
	StateRejected
	StateGuardAcquired
	StateDockerfileEnsured
	StatePlanning
	StateDispatched
	StateFailed
	StateGuardReleased
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateGuardCheck:
		return "GuardCheck"
	case StateRejected:
		return "Rejected"
	case StateGuardAcquired:
		return "GuardAcquired"
	case StateDockerfileEnsured:
		return "DockerfileEnsured"
	case StatePlanning:
		return "Planning"
	case StateDispatched:
		return "Dispatched"
	case StateFailed:
		return "Failed"
	case StateGuardReleased:
		return "GuardReleased"
	default:
		return "Unknown"
	}
}
