package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/mdhold/pkg/app/screens"
	"github.com/kerbaras/mdhold/pkg/logger"
	"github.com/kerbaras/mdhold/pkg/services"
)

type App struct {
	updater *services.Updater
	options []tea.ProgramOption
}

func NewApp(updater *services.Updater, options ...tea.ProgramOption) *App {
	return &App{updater: updater, options: options}
}

type outcome struct {
	result *services.Result
	err    error
}

// Run performs the transition behind a progress bar and returns once the
// run itself has returned, even if the display fails or is interrupted.
// The program renders inline so the last frame stays on screen. Log lines
// written meanwhile are printed after the program exits.
func (a *App) Run(ctx context.Context, opts services.Options) (*services.Result, error) {
	// the stop key cancels the run only; the program waits for it to wind down
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	release := logger.Hold()
	defer release()

	done := make(chan outcome, 1)
	go func() {
		res, err := a.updater.Transition(runCtx, opts)
		a.updater.Close()
		done <- outcome{result: res, err: err}
	}()

	model := screens.NewRunScreen(a.updater.GetProgressChannel(), stop, opts)
	options := append([]tea.ProgramOption{tea.WithContext(ctx)}, a.options...)
	if _, err := tea.NewProgram(model, options...).Run(); err != nil {
		logger.Log.Debugw("progress display stopped", "error", err)
	}

	// keep the run unblocked if the display quit early
	for range a.updater.GetProgressChannel() {
	}

	out := <-done
	return out.result, out.err
}
