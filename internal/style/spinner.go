package style

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Spinner is the progress indicator used while a download is in flight.
type Spinner interface {
	SetSuffix(suffix string)
	SetFinalMSG(finalMSG string)
	Start()
	Stop()
}

// TerminalSpinner wraps the briandowns spinner for interactive terminals.
type TerminalSpinner struct {
	spinner *spinner.Spinner
}

func NewTerminalSpinner(cs []string, d time.Duration, options ...spinner.Option) *TerminalSpinner {
	return &TerminalSpinner{
		spinner: spinner.New(cs, d, options...),
	}
}

func (s *TerminalSpinner) SetSuffix(suffix string) {
	s.spinner.Suffix = suffix
}

func (s *TerminalSpinner) SetFinalMSG(finalMSG string) {
	s.spinner.FinalMSG = finalMSG
}

func (s *TerminalSpinner) Start() {
	s.spinner.Start()
}

func (s *TerminalSpinner) Stop() {
	s.spinner.Stop()
}

// PlainSpinner writes each update on its own line instead of redrawing,
// keeping test and non-TTY output stable.
type PlainSpinner struct {
	mu       sync.Mutex
	Writer   io.Writer
	Suffix   string
	FinalMSG string
	colorize func(a ...interface{}) string
	active   bool
}

func NewPlainSpinner(w io.Writer) *PlainSpinner {
	return &PlainSpinner{
		Writer:   w,
		colorize: color.New(color.FgCyan).SprintFunc(),
	}
}

func (s *PlainSpinner) SetSuffix(suffix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Suffix = suffix
	if s.active {
		fmt.Fprintf(s.Writer, "%s%s\n", s.colorize("..."), suffix)
	}
}

func (s *PlainSpinner) SetFinalMSG(finalMSG string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FinalMSG = finalMSG
}

func (s *PlainSpinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	if s.Suffix != "" {
		fmt.Fprintf(s.Writer, "%s%s\n", s.colorize("..."), s.Suffix)
	}
}

func (s *PlainSpinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	if s.FinalMSG != "" {
		fmt.Fprint(s.Writer, s.FinalMSG)
	}
}

// NewSpinner picks the spinner implementation: plain output under tests,
// an animated one otherwise.
func NewSpinner(w io.Writer) Spinner {
	if os.Getenv("PROVIS_TEST") == "true" {
		return NewPlainSpinner(w)
	}

	return NewTerminalSpinner(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
}
