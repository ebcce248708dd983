package ingest

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter receives pipeline progress, one tick per embedded chunk.
type Reporter interface {
	Start(total int)
	Increment()
	Finish()
}

// BarReporter renders progress to stderr.
type BarReporter struct {
	enabled bool
	bar     *progressbar.ProgressBar
}

func NewBarReporter(enabled bool) *BarReporter {
	return &BarReporter{enabled: enabled}
}

func (p *BarReporter) Start(total int) {
	if !p.enabled || total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("embedding"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *BarReporter) Increment() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *BarReporter) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

// DefaultProgressEnabled reports whether stderr is a terminal.
func DefaultProgressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
