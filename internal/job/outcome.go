package job

import "time"

// Outcome is the single terminal result of a job. Status is StateCompleted or StateFailed.
type Outcome struct {
	JobID      string
	Status     State
	Text       string
	OutputPath string
	// Silent marks a transcript produced by the silence gate rather than the model.
	Silent   bool
	Message  string
	Err      error
	Duration time.Duration
}

func (o Outcome) Succeeded() bool {
	return o.Status == StateCompleted
}

// Event is one message from the worker to the interactive loop. Outcome is set only on the
// terminal event.
type Event struct {
	JobID   string
	State   State
	Phase   string
	Outcome *Outcome
}

func (e Event) Terminal() bool {
	return e.Outcome != nil
}
