package modularity

import "fmt"

// Phase is one of the configuration phases. Phases are global barriers:
// every module finishes a phase before any module starts the next.
type Phase int

// Phases in execution order.
const (
	PhasePreConfigure Phase = iota
	PhaseConfigure
	PhasePostConfigure

	phaseCount
)

// Phases lists the configuration phases in execution order.
var Phases = [phaseCount]Phase{PhasePreConfigure, PhaseConfigure, PhasePostConfigure}

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhasePreConfigure:
		return "PreConfigure"
	case PhaseConfigure:
		return "Configure"
	case PhasePostConfigure:
		return "PostConfigure"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Capability returns the capability a module needs to take part in p.
func (p Phase) Capability() Capability {
	switch p {
	case PhasePreConfigure:
		return CapPreConfigure
	case PhaseConfigure:
		return CapConfigure
	case PhasePostConfigure:
		return CapPostConfigure
	default:
		return 0
	}
}

// State is the lifecycle state of a Pipeline.
//
//	NotStarted -> Running -> Completed
//	Running -> NotStarted (hook failure, default)
//	Running -> Failed     (hook failure, WithTerminalFailure)
type State int

// Pipeline states.
const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
