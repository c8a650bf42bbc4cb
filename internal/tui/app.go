// Package tui renders identified processes: a lipgloss table for one-shot
// output and a bubbletea dashboard for watch mode.
package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Iron-Ham/devtop/internal/monitor"
	tea "github.com/charmbracelet/bubbletea"
)

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
}

// New creates a new dashboard application
func New(ctx context.Context, source Source, filter monitor.Filter, pattern string, interval time.Duration) *App {
	return &App{
		model: NewModel(ctx, source, filter, pattern, interval),
	}
}

// Run starts the dashboard and blocks until the user quits
func (a *App) Run() error {
	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	// Quit cleanly on termination signals so the terminal is restored
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigChan:
			a.program.Send(tea.Quit())
		case <-done:
		}
	}()

	_, err := a.program.Run()
	return err
}
