package tui

import "github.com/fmueller/transcriptor/internal/job"

// jobEventMsg carries one event from the runner's ticket channel.
type jobEventMsg struct {
	event  job.Event
	events <-chan job.Event
}

// jobStreamClosedMsg reports a ticket channel that closed without a terminal event.
type jobStreamClosedMsg struct {
	jobID string
}

type copyResultMsg struct {
	err error
}

type exportResultMsg struct {
	path string
	err  error
}
