package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fmueller/transcriptor/internal/whisper"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrBusy is returned by Submit while a job is in flight or its outcome is unacknowledged.
	ErrBusy = errors.New("a transcription is already running")
	// ErrNotFinished is returned when acknowledging a job that has not delivered its outcome.
	ErrNotFinished = errors.New("job has not finished")
	ErrUnknownJob  = errors.New("unknown job")
)

// eventsPerJob is the number of events a job emits: loading, running, terminal.
const eventsPerJob = 3

// Sink persists a finished transcript and returns the written path.
type Sink interface {
	Save(sourcePath, text string) (string, error)
}

type SinkFunc func(sourcePath, text string) (string, error)

func (f SinkFunc) Save(sourcePath, text string) (string, error) {
	return f(sourcePath, text)
}

type Options struct {
	// Timeout bounds the transcription call. Zero means unbounded; model loading is never
	// bounded because a first-use download may take minutes.
	Timeout time.Duration
	Threads int
	Logger  *zap.Logger
}

// Ticket identifies an accepted job. Events carries exactly eventsPerJob messages at most and
// is closed after the terminal one.
type Ticket struct {
	ID     string
	Events <-chan Event
}

// Runner executes at most one job at a time off the interactive goroutine.
type Runner struct {
	engine whisper.Engine
	sink   Sink
	opts   Options
	newID  func() string

	mu      sync.Mutex
	state   State
	current string
	events  chan Event
	last    *Outcome
}

func NewRunner(engine whisper.Engine, sink Sink, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Runner{
		engine: engine,
		sink:   sink,
		opts:   opts,
		newID:  uuid.NewString,
		state:  StateIdle,
	}
}

// Submit starts cfg on a new goroutine and returns immediately.
func (r *Runner) Submit(cfg Configuration) (Ticket, error) {
	if cfg.SourcePath == "" {
		return Ticket{}, &ValidationError{Field: "path", Err: ErrEmptyPath}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return Ticket{}, ErrBusy
	}

	id := r.newID()
	events := make(chan Event, eventsPerJob)
	r.current = id
	r.events = events
	r.transitionLocked(StateLoading)

	r.opts.Logger.Info("job submitted",
		zap.String("job", id),
		zap.String("source", cfg.SourcePath),
		zap.String("model", string(cfg.Model)),
		zap.String("language", cfg.Language.String()),
	)

	go r.run(id, cfg)

	return Ticket{ID: id, Events: events}, nil
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Phase is the human-readable label of the in-flight job, or "" when none is running.
func (r *Runner) Phase() string {
	return r.State().Phase()
}

func (r *Runner) CurrentJob() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.current != ""
}

// LastOutcome re-reads the most recent outcome for display.
func (r *Runner) LastOutcome() (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Outcome{}, false
	}
	return *r.last, true
}

// Acknowledge returns the runner to idle after the consumer has handled jobID's outcome.
func (r *Runner) Acknowledge(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if jobID == "" || jobID != r.current {
		return fmt.Errorf("%w %q", ErrUnknownJob, jobID)
	}
	if !r.state.Terminal() {
		return ErrNotFinished
	}

	r.transitionLocked(StateIdle)
	r.current = ""
	r.events = nil
	return nil
}

// Await drains ticket until its terminal event, reporting phases to onPhase, then
// acknowledges the job. It is the headless counterpart of the interactive loop.
func (r *Runner) Await(ctx context.Context, ticket Ticket, onPhase func(Event)) (Outcome, error) {
	for {
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case ev, ok := <-ticket.Events:
			if !ok {
				return Outcome{}, fmt.Errorf("job %s: event stream closed without outcome", ticket.ID)
			}
			if !ev.Terminal() {
				if onPhase != nil {
					onPhase(ev)
				}
				continue
			}
			if err := r.Acknowledge(ticket.ID); err != nil {
				return *ev.Outcome, err
			}
			return *ev.Outcome, nil
		}
	}
}

func (r *Runner) run(id string, cfg Configuration) {
	started := time.Now()
	outcome := Outcome{JobID: id, Status: StateFailed}
	logger := r.opts.Logger.With(zap.String("job", id))

	defer func() {
		if recovered := recover(); recovered != nil {
			outcome.Status = StateFailed
			outcome.Err = fmt.Errorf("internal error: %v", recovered)
			outcome.Message = outcome.Err.Error()
			logger.Error("job panicked", zap.Any("panic", recovered), zap.Stack("stack"))
		}
		outcome.Duration = time.Since(started)
		r.finish(outcome, logger)
	}()

	r.emit(id, StateLoading)

	handle, err := r.engine.LoadModel(context.Background(), cfg.Model)
	if err != nil {
		outcome.Err = err
		outcome.Message = fmt.Sprintf("Could not load model %q: %v", cfg.Model, err)
		return
	}

	if !r.advance(id, StateRunning) {
		outcome.Err = errors.New("job state changed unexpectedly")
		outcome.Message = outcome.Err.Error()
		return
	}

	ctx := context.Background()
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	result, err := handle.Transcribe(ctx, cfg.SourcePath, whisper.Options{Language: cfg.Language, Threads: r.opts.Threads})
	if err != nil {
		outcome.Err = err
		if errors.Is(err, context.DeadlineExceeded) {
			outcome.Message = fmt.Sprintf("Transcription timed out after %s", r.opts.Timeout)
		} else {
			outcome.Message = fmt.Sprintf("Transcription failed: %v", err)
		}
		return
	}

	outcome.Text = result.Text
	outcome.Silent = result.Silent

	outputPath, err := r.sink.Save(cfg.SourcePath, result.Text)
	if err != nil {
		outcome.Err = err
		outcome.Message = fmt.Sprintf("Could not save transcript: %v", err)
		return
	}

	outcome.Status = StateCompleted
	outcome.OutputPath = outputPath
}

func (r *Runner) advance(id string, to State) bool {
	r.mu.Lock()
	ok := r.current == id && r.transitionLocked(to)
	r.mu.Unlock()

	if ok {
		r.emit(id, to)
	}
	return ok
}

// emit sends a phase event. The channel holds every event of a job, so it never blocks.
func (r *Runner) emit(id string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != id || r.events == nil {
		return
	}
	r.events <- Event{JobID: id, State: state, Phase: state.Phase()}
}

func (r *Runner) finish(outcome Outcome, logger *zap.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != outcome.JobID || !r.transitionLocked(outcome.Status) {
		logger.Error("dropping outcome for inactive job", zap.String("state", string(r.state)))
		return
	}

	stored := outcome
	r.last = &stored
	r.events <- Event{JobID: outcome.JobID, State: outcome.Status, Outcome: &stored}
	close(r.events)

	if outcome.Succeeded() {
		logger.Info("job completed", zap.String("output", outcome.OutputPath), zap.Duration("duration", outcome.Duration), zap.Bool("silent", outcome.Silent))
	} else {
		logger.Warn("job failed", zap.String("message", outcome.Message), zap.Duration("duration", outcome.Duration), zap.Error(outcome.Err))
	}
}

func (r *Runner) transitionLocked(to State) bool {
	if !isValidTransition(r.state, to) {
		r.opts.Logger.Error("invalid job transition", zap.String("from", string(r.state)), zap.String("to", string(to)))
		return false
	}
	r.state = to
	return true
}
