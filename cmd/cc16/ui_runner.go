package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"cc16/internal/buildpipeline"
	"cc16/internal/driver"
	"cc16/internal/ui"
)

type buildOutcome struct {
	results []*driver.Result
	err     error
}

// runBuildWithUI compiles files while a progress model renders the events.
func runBuildWithUI(ctx context.Context, title string, files []string, opts driver.Options) ([]*driver.Result, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		opts.Progress = buildpipeline.ChannelSink{Ch: events}
		res, err := driver.CompileFiles(ctx, files, opts)
		outcomeCh <- buildOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// the build keeps sending until it closes events
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
