// Package tui is the interactive front end. The bubbletea program loop is the only goroutine
// that touches presentation state; job events reach it as messages.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fmueller/transcriptor/internal/job"
	"github.com/fmueller/transcriptor/internal/transcript"
	"github.com/fmueller/transcriptor/internal/whisper"
	"go.uber.org/zap"
)

// Runner is the part of job.Runner the UI drives.
type Runner interface {
	Submit(cfg job.Configuration) (job.Ticket, error)
	Acknowledge(jobID string) error
}

type Config struct {
	Runner Runner

	Models       []whisper.ModelID
	DefaultModel whisper.ModelID

	Languages       []whisper.Language
	DefaultLanguage whisper.Language

	InitialPath string
	// DecoderStatus describes the located ffmpeg, shown under the form.
	DecoderStatus  string
	DecoderWarning bool

	Copy   func(ctx context.Context, text string) error
	Export func(dest, text string) (string, error)

	Logger *zap.Logger
}

type mode int

const (
	modeForm mode = iota
	modeSaveAs
)

type Model struct {
	cfg Config

	path     textinput.Model
	saveAs   textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	modelIdx int
	langIdx  int
	mode     mode

	busy    bool
	jobID   string
	phase   string
	started time.Time

	outcome *job.Outcome
	status  string
	err     string

	width    int
	height   int
	quitting bool
}

func New(cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if len(cfg.Models) == 0 {
		cfg.Models = whisper.Models()
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = whisper.CommonLanguages()
	}
	if !slices.Contains(cfg.Languages, cfg.DefaultLanguage) {
		cfg.Languages = append([]whisper.Language{cfg.DefaultLanguage}, cfg.Languages...)
	}
	if cfg.Copy == nil {
		cfg.Copy = transcript.Copy
	}
	if cfg.Export == nil {
		cfg.Export = transcript.Export
	}

	path := textinput.New()
	path.Placeholder = "/path/to/audio.mp3"
	path.Prompt = ""
	path.CharLimit = 4096
	path.Width = 60
	path.SetValue(cfg.InitialPath)
	path.Focus()

	saveAs := textinput.New()
	saveAs.Prompt = ""
	saveAs.CharLimit = 4096
	saveAs.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(colorWarn)

	m := Model{
		cfg:      cfg,
		path:     path,
		saveAs:   saveAs,
		spinner:  sp,
		viewport: viewport.New(60, 8),
	}
	m.modelIdx = indexOfModel(cfg.Models, cfg.DefaultModel)
	m.langIdx = slices.Index(cfg.Languages, cfg.DefaultLanguage)
	m.viewport.SetContent(styleDim.Render("The transcript will appear here."))
	return m
}

func (m Model) Init() bubbletea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case bubbletea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, bubbletea.Quit
		}
		if m.mode == modeSaveAs {
			return m.updateSaveAs(msg)
		}
		return m.updateForm(msg)

	case jobEventMsg:
		return m.handleEvent(msg)

	case jobStreamClosedMsg:
		if msg.jobID == m.jobID && m.busy {
			m.busy = false
			m.phase = ""
			m.err = "The transcription stopped without reporting a result."
		}
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			m.err = "Copy failed: " + msg.err.Error()
			m.status = ""
		} else {
			m.err = ""
			m.status = "Transcript copied to clipboard."
		}
		return m, nil

	case exportResultMsg:
		if msg.err != nil {
			m.err = "Save failed: " + msg.err.Error()
			m.status = ""
		} else {
			m.err = ""
			m.status = "Transcript saved to " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd bubbletea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.quitting = true
		return m, bubbletea.Quit

	case key.Matches(msg, keys.Submit):
		return m.submit()

	case key.Matches(msg, keys.Model):
		if !m.busy {
			m.modelIdx = (m.modelIdx + 1) % len(m.cfg.Models)
		}
		return m, nil

	case key.Matches(msg, keys.Language):
		if !m.busy {
			m.langIdx = (m.langIdx + 1) % len(m.cfg.Languages)
		}
		return m, nil

	case key.Matches(msg, keys.Copy):
		text, ok := m.transcriptText()
		if !ok {
			m.err = "Nothing to copy yet."
			return m, nil
		}
		return m, copyCmd(m.cfg.Copy, text)

	case key.Matches(msg, keys.SaveAs):
		if _, ok := m.transcriptText(); !ok {
			m.err = "Nothing to save yet."
			return m, nil
		}
		m.mode = modeSaveAs
		m.err = ""
		m.saveAs.SetValue(m.suggestedExportPath())
		m.saveAs.CursorEnd()
		m.path.Blur()
		return m, m.saveAs.Focus()

	case key.Matches(msg, keys.Scroll):
		var cmd bubbletea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.busy {
		return m, nil
	}

	var cmd bubbletea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func (m Model) updateSaveAs(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.mode = modeForm
		m.saveAs.Blur()
		return m, m.path.Focus()

	case key.Matches(msg, keys.Submit):
		text, _ := m.transcriptText()
		dest := m.saveAs.Value()
		m.mode = modeForm
		m.saveAs.Blur()
		return m, bubbletea.Batch(m.path.Focus(), exportCmd(m.cfg.Export, dest, text))
	}

	var cmd bubbletea.Cmd
	m.saveAs, cmd = m.saveAs.Update(msg)
	return m, cmd
}

func (m Model) submit() (bubbletea.Model, bubbletea.Cmd) {
	if m.busy {
		m.err = "A transcription is already running."
		return m, nil
	}

	cfg, err := job.Validate(m.path.Value(), string(m.currentModel()), m.currentLanguage().String())
	if err != nil {
		m.err = describeValidation(err)
		m.status = ""
		return m, nil
	}

	ticket, err := m.cfg.Runner.Submit(cfg)
	if err != nil {
		if errors.Is(err, job.ErrBusy) {
			m.err = "A transcription is already running."
		} else {
			m.err = err.Error()
		}
		return m, nil
	}

	m.cfg.Logger.Info("transcription started", zap.String("job", ticket.ID), zap.String("source", cfg.SourcePath))

	m.busy = true
	m.jobID = ticket.ID
	m.phase = job.PhaseLoading
	m.started = time.Now()
	m.outcome = nil
	m.err = ""
	m.status = ""
	m.path.Blur()

	return m, bubbletea.Batch(m.spinner.Tick, waitForEvent(ticket.ID, ticket.Events))
}

func (m Model) handleEvent(msg jobEventMsg) (bubbletea.Model, bubbletea.Cmd) {
	ev := msg.event
	if ev.JobID != m.jobID {
		m.cfg.Logger.Debug("ignoring event for stale job", zap.String("job", ev.JobID))
		return m, nil
	}

	if !ev.Terminal() {
		m.phase = ev.Phase
		return m, waitForEvent(ev.JobID, msg.events)
	}

	if err := m.cfg.Runner.Acknowledge(ev.JobID); err != nil {
		m.cfg.Logger.Warn("acknowledge job", zap.String("job", ev.JobID), zap.Error(err))
	}

	outcome := *ev.Outcome
	m.outcome = &outcome
	m.busy = false
	m.phase = ""
	focus := m.path.Focus()

	if outcome.Text != "" {
		m.viewport.SetContent(wrap(outcome.Text, m.viewport.Width))
		m.viewport.GotoTop()
	}

	switch {
	case outcome.Succeeded() && (outcome.Silent || transcript.IsBlank(outcome.Text)):
		m.err = ""
		m.status = "No speech detected. Saved to " + outcome.OutputPath
	case outcome.Succeeded():
		m.err = ""
		m.status = fmt.Sprintf("Done in %s. Saved to %s", outcome.Duration.Round(time.Second), outcome.OutputPath)
	default:
		m.status = ""
		m.err = outcome.Message
	}
	return m, focus
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styleTitle.Render("Transcriptor") + "\n\n")

	if m.mode == modeSaveAs {
		b.WriteString(styleLabel.Render("Save transcript as: ") + m.saveAs.View() + "\n")
	} else {
		b.WriteString(styleLabel.Render("Audio file: ") + m.path.View() + "\n")
	}

	b.WriteString(styleLabel.Render("Model: ") + styleValue.Render(string(m.currentModel())))
	b.WriteString("   ")
	b.WriteString(styleLabel.Render("Language: ") + styleValue.Render(m.currentLanguage().DisplayName()) + "\n")

	if m.cfg.DecoderStatus != "" {
		style := styleDim
		if m.cfg.DecoderWarning {
			style = styleWarn
		}
		b.WriteString(style.Render("ffmpeg: "+m.cfg.DecoderStatus) + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.busy:
		elapsed := time.Since(m.started).Round(time.Second)
		b.WriteString(m.spinner.View() + " " + m.phase + styleDim.Render(fmt.Sprintf(" (%s)", elapsed)) + "\n")
	case m.err != "":
		b.WriteString(styleError.Render(m.err) + "\n")
	case m.status != "":
		b.WriteString(styleSuccess.Render(m.status) + "\n")
	default:
		b.WriteString(styleDim.Render("Ready.") + "\n")
	}

	b.WriteString(styleTranscript.Render(m.viewport.View()) + "\n")

	hints := helpLine(keys.Submit, keys.Model, keys.Language, keys.Copy, keys.SaveAs, keys.Quit)
	if m.mode == modeSaveAs {
		hints = helpLine(keys.Submit, keys.Back)
	}
	b.WriteString(styleBar.Render(hints))

	return b.String()
}

func (m *Model) setSize(w, h int) {
	m.width = w
	m.height = h

	inner := max(w-4, 20)
	m.path.Width = max(inner-14, 10)
	m.saveAs.Width = max(inner-21, 10)
	m.viewport.Width = inner
	m.viewport.Height = max(h-12, 3)

	if m.outcome != nil && m.outcome.Text != "" {
		m.viewport.SetContent(wrap(m.outcome.Text, inner))
	}
}

func (m Model) currentModel() whisper.ModelID {
	return m.cfg.Models[m.modelIdx]
}

func (m Model) currentLanguage() whisper.Language {
	return m.cfg.Languages[m.langIdx]
}

func (m Model) transcriptText() (string, bool) {
	if m.outcome == nil || m.outcome.Text == "" {
		return "", false
	}
	return m.outcome.Text, true
}

func (m Model) suggestedExportPath() string {
	if m.outcome != nil && m.outcome.OutputPath != "" {
		return m.outcome.OutputPath
	}
	return transcript.OutputPath(m.path.Value())
}

func indexOfModel(models []whisper.ModelID, id whisper.ModelID) int {
	for i, candidate := range models {
		if candidate == id {
			return i
		}
	}
	return 0
}

// waitForEvent blocks on the ticket channel inside a bubbletea command goroutine and hands
// the event to Update.
func waitForEvent(jobID string, events <-chan job.Event) bubbletea.Cmd {
	return func() bubbletea.Msg {
		ev, ok := <-events
		if !ok {
			return jobStreamClosedMsg{jobID: jobID}
		}
		return jobEventMsg{event: ev, events: events}
	}
}

func copyCmd(copyFn func(context.Context, string) error, text string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		return copyResultMsg{err: copyFn(context.Background(), text)}
	}
}

func exportCmd(exportFn func(string, string) (string, error), dest, text string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		path, err := exportFn(dest, text)
		return exportResultMsg{path: path, err: err}
	}
}

func describeValidation(err error) string {
	switch {
	case errors.Is(err, job.ErrEmptyPath):
		return "Select an audio file first."
	case errors.Is(err, job.ErrFileNotFound):
		return "File not found: " + strings.TrimSpace(pathOf(err))
	default:
		return err.Error()
	}
}

func pathOf(err error) string {
	var validationErr *job.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Value
	}
	return err.Error()
}

func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}
