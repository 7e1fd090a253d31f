package job

type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Phase labels shown while a job is in flight.
const (
	PhaseLoading      = "Loading model"
	PhaseTranscribing = "Transcribing audio..."
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

func (s State) Active() bool {
	return s == StateLoading || s == StateRunning
}

// Phase returns the label for an in-flight state and "" otherwise.
func (s State) Phase() string {
	switch s {
	case StateLoading:
		return PhaseLoading
	case StateRunning:
		return PhaseTranscribing
	default:
		return ""
	}
}

func isValidTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateLoading
	case StateLoading:
		return to == StateRunning || to == StateFailed
	case StateRunning:
		return to == StateCompleted || to == StateFailed
	case StateCompleted, StateFailed:
		return to == StateIdle
	default:
		return false
	}
}
