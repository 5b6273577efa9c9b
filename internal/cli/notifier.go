package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/Veraticus/smarttransit/internal/service"
)

// Notifier prints operator notifications as styled lines.
type Notifier struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewNotifier creates a Notifier writing to w, or stderr when w is nil.
func NewNotifier(w io.Writer) *Notifier {
	if w == nil {
		w = os.Stderr
	}
	return &Notifier{writer: w}
}

// Notify implements service.Notifier.
func (n *Notifier) Notify(level service.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintln(n.writer, FormatLevel(level, message)); err != nil {
		slog.Warn("Failed to write notification", "error", err)
	}
}

// FormatLevel styles message according to its level.
func FormatLevel(level service.Level, message string) string {
	switch level {
	case service.LevelSuccess:
		return FormatSuccess(message)
	case service.LevelWarning:
		return FormatWarning(message)
	case service.LevelError:
		return FormatError(message)
	default:
		return FormatInfo(message)
	}
}
