package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tutorx/internal/nav"
	"github.com/desertthunder/tutorx/internal/shared"
	"github.com/desertthunder/tutorx/internal/ui"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.api == nil || r.store == nil {
		return fmt.Errorf("%w: backend client not initialized", shared.ErrServiceUnavailable)
	}
	if !r.isTerminal() {
		return fmt.Errorf("%w: the TUI needs an interactive terminal", shared.ErrInvalidArgument)
	}

	start, err := nav.Parse(cmd.String("route"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logFile, err := shared.LogToFile(r.logger, shared.ExpandPath(r.config.Log.File))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer func() {
		r.logger.SetOutput(os.Stderr)
		logFile.Close()
	}()

	cb := r.config.Callback
	model := ui.NewModel(ctx, ui.Options{
		Client:          r.api,
		Store:           r.store,
		Logger:          r.logger,
		CallbackAddr:    cb.Addr(),
		CallbackPath:    cb.Path,
		CallbackTimeout: time.Duration(cb.TimeoutSeconds) * time.Second,
		OpenBrowser:     r.openBrowser,
		Start:           start,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
