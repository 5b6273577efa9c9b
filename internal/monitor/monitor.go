// Package monitor tracks the reachability of the notification channel.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/smarttransit/internal/common"
)

// Status is the reachability state.
type Status string

// Reachability states.
const (
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// MaxErrors bounds the retained error log.
const MaxErrors = 10

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = 30 * time.Second

// Probe performs one liveness call.
type Probe interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) error

// Probe calls f(ctx).
func (f ProbeFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

// ErrorEntry is one failed check.
type ErrorEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}

// Snapshot is a read-only view of the monitor.
type Snapshot struct {
	LastCheck    time.Time     `json:"lastCheck"`
	LastError    *ErrorEntry   `json:"lastError,omitempty"`
	Status       Status        `json:"status"`
	ErrorCount   int           `json:"errorCount"`
	ResponseTime time.Duration `json:"responseTime"`
}

// Monitor records the outcome of liveness checks. Only Check mutates it.
type Monitor struct {
	probe        Probe
	now          func() time.Time
	lastCheck    time.Time
	status       Status
	errors       []ErrorEntry
	responseTime time.Duration
	mu           sync.RWMutex
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// New creates a monitor in the unknown state.
func New(probe Probe, opts ...Option) *Monitor {
	m := &Monitor{
		probe:  probe,
		now:    time.Now,
		status: StatusUnknown,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check runs the probe once and reports whether it succeeded.
func (m *Monitor) Check(ctx context.Context) bool {
	start := m.now()
	err := m.probe.Probe(ctx)
	end := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastCheck = end

	var httpErr *common.HTTPError
	if err == nil || errors.As(err, &httpErr) {
		m.responseTime = end.Sub(start)
	}

	if err == nil {
		m.status = StatusOnline
		m.errors = nil
		return true
	}

	slog.Debug("Status check failed", "error", err)
	m.status = StatusOffline
	m.errors = append(m.errors, ErrorEntry{Timestamp: end, Error: err.Error()})
	if len(m.errors) > MaxErrors {
		m.errors = append([]ErrorEntry(nil), m.errors[len(m.errors)-MaxErrors:]...)
	}
	return false
}

// Snapshot returns the current state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		Status:       m.status,
		LastCheck:    m.lastCheck,
		ErrorCount:   len(m.errors),
		ResponseTime: m.responseTime,
	}
	if n := len(m.errors); n > 0 {
		last := m.errors[n-1]
		s.LastError = &last
	}
	return s
}

// Errors returns the retained error log, oldest first.
func (m *Monitor) Errors() []ErrorEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ErrorEntry(nil), m.errors...)
}

// Poll runs Check every interval until ctx is canceled. onCheck, when not
// nil, receives the snapshot after each check.
func (m *Monitor) Poll(ctx context.Context, interval time.Duration, onCheck func(Snapshot)) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
			if onCheck != nil && ctx.Err() == nil {
				onCheck(m.Snapshot())
			}
		}
	}
}
