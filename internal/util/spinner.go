package util

import (
	"context"

	"github.com/charmbracelet/huh/spinner"
)

type Spinner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	spinner *spinner.Spinner
}

// NewSpinner starts a spinner titled msg which runs until Stop or until c is done.
func NewSpinner(c context.Context, msg string) *Spinner {
	ctx, cancel := context.WithCancel(c)
	s := &Spinner{
		ctx:    ctx,
		cancel: cancel,
	}
	s.spinner = spinner.New().Context(ctx).Title(msg)
	go s.spinner.Run()
	return s
}

// Title changes the message shown next to the spinner. It does nothing on a nil spinner.
func (s *Spinner) Title(msg string) {
	if s == nil {
		return
	}
	s.spinner.Title(msg)
}

func (s *Spinner) Stop() {
	s.cancel()
}

type Task func(ctx context.Context, spinner *Spinner) error

// RunTaskWithSpinner runs task while showing a spinner. When quiet is true the task runs
// without one, which is what non interactive output such as logs or pipes need.
func RunTaskWithSpinner(ctx context.Context, msg string, quiet bool, task Task) error {
	if quiet {
		return task(ctx, nil)
	}
	s := NewSpinner(ctx, msg)
	defer s.Stop()
	return task(ctx, s)
}
