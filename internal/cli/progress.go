package cli

import (
	"os"
	"sync"
	"time"

	"github.com/fmueller/transcriptor/internal/job"
	"github.com/schollz/progressbar/v3"
)

type stopFunc func()

func startSpinner(enabled bool, description string) stopFunc {
	if !enabled {
		return func() {}
	}

	bar := progressbar.NewOptions(
		-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			<-doneCh
		})
	}
}

// phaseSpinner shows one spinner per job phase, replacing the previous one. While a model
// download may be drawing its byte bar on stderr, the loading phase gets no spinner.
type phaseSpinner struct {
	enabled     bool
	downloadBar bool
	start       func(enabled bool, description string) stopFunc
	current     stopFunc
}

func newPhaseSpinner(enabled bool, downloadBar bool) *phaseSpinner {
	return &phaseSpinner{enabled: enabled, downloadBar: downloadBar, start: startSpinner}
}

func (p *phaseSpinner) show(phase string) {
	p.stop()
	if p.downloadBar && phase == job.PhaseLoading {
		return
	}
	p.current = p.start(p.enabled, phase)
}

func (p *phaseSpinner) stop() {
	if p.current != nil {
		p.current()
		p.current = nil
	}
}
