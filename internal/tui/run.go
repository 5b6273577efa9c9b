package tui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/smarttransit/internal/dashboard"
	"github.com/Veraticus/smarttransit/internal/monitor"
	"github.com/Veraticus/smarttransit/internal/service"
)

// Forwarder delivers events produced outside the event loop to a running
// program. It is safe to use before a program is attached; events are
// dropped until then.
type Forwarder struct {
	program atomic.Pointer[tea.Program]
}

// Attach sets the program receiving forwarded events.
func (f *Forwarder) Attach(p *tea.Program) {
	f.program.Store(p)
}

// Forward delivers a status snapshot.
func (f *Forwarder) Forward(s monitor.Snapshot) {
	f.send(snapshotMsg(s))
}

// Notify implements service.Notifier.
func (f *Forwarder) Notify(level service.Level, message string) {
	f.send(noticeMsg{level: level, message: message})
}

func (f *Forwarder) send(msg tea.Msg) {
	if p := f.program.Load(); p != nil {
		p.Send(msg)
	}
}

// Run starts the console and blocks until the operator quits or ctx is
// canceled. fwd may be nil when nothing outside the model produces events.
func Run(ctx context.Context, app *dashboard.App, fwd *Forwarder, opts ...Option) error {
	if app == nil {
		return fmt.Errorf("dashboard app is required")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cleanupTerminal := func() {
		// Best-effort restore; errors are ignored.
		_, _ = os.Stdout.Write([]byte("\033[?1049l")) // Exit alternate screen
		_, _ = os.Stdout.Write([]byte("\033[?25h"))   // Show cursor
		_, _ = os.Stdout.Write([]byte("\033[m"))      // Reset colors
	}
	defer cleanupTerminal()

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	program := tea.NewProgram(
		NewModel(ctx, app, opts...),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if fwd != nil {
		fwd.Attach(program)
		defer fwd.Attach(nil)
	}
	defer app.Close()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
