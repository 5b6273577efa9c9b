package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/smarttransit/internal/common"
)

type scriptedProbe struct {
	errs  []error
	calls atomic.Int32
}

func (p *scriptedProbe) Probe(context.Context) error {
	n := int(p.calls.Add(1)) - 1
	if n < len(p.errs) {
		return p.errs[n]
	}
	return nil
}

// tickingClock advances by step on every call.
func tickingClock(start time.Time, step time.Duration) func() time.Time {
	var n atomic.Int64
	return func() time.Time {
		return start.Add(time.Duration(n.Add(1)-1) * step)
	}
}

func TestNew_StartsUnknown(t *testing.T) {
	m := New(ProbeFunc(func(context.Context) error { return nil }))

	s := m.Snapshot()

	assert.Equal(t, StatusUnknown, s.Status)
	assert.True(t, s.LastCheck.IsZero())
	assert.Zero(t, s.ErrorCount)
	assert.Nil(t, s.LastError)
}

func TestCheck_FailureGoesOffline(t *testing.T) {
	start := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	m := New(ProbeFunc(func(context.Context) error {
		return fmt.Errorf("%w: connection refused", common.ErrNetwork)
	}), WithClock(tickingClock(start, time.Second)))

	ok := m.Check(context.Background())

	assert.False(t, ok)
	s := m.Snapshot()
	assert.Equal(t, StatusOffline, s.Status)
	assert.Equal(t, 1, s.ErrorCount)
	require.NotNil(t, s.LastError)
	assert.Contains(t, s.LastError.Error, "connection refused")
	assert.Equal(t, start.Add(time.Second), s.LastCheck)
}

func TestCheck_ErrorLogIsCapped(t *testing.T) {
	errs := make([]error, 15)
	for i := range errs {
		errs[i] = fmt.Errorf("failure %d", i)
	}
	m := New(&scriptedProbe{errs: errs})

	for range 15 {
		m.Check(context.Background())
		assert.LessOrEqual(t, m.Snapshot().ErrorCount, MaxErrors)
	}

	s := m.Snapshot()
	assert.Equal(t, MaxErrors, s.ErrorCount)
	assert.Equal(t, "failure 14", s.LastError.Error)
	log := m.Errors()
	require.Len(t, log, MaxErrors)
	assert.Equal(t, "failure 5", log[0].Error)
}

func TestCheck_SuccessClearsErrors(t *testing.T) {
	start := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	probe := &scriptedProbe{errs: []error{errors.New("down"), errors.New("down")}}
	m := New(probe, WithClock(tickingClock(start, 40*time.Millisecond)))

	m.Check(context.Background())
	m.Check(context.Background())
	ok := m.Check(context.Background())

	assert.True(t, ok)
	s := m.Snapshot()
	assert.Equal(t, StatusOnline, s.Status)
	assert.Zero(t, s.ErrorCount)
	assert.Nil(t, s.LastError)
	assert.Equal(t, 40*time.Millisecond, s.ResponseTime)
}

func TestCheck_ResponseTimeKeptForHTTPErrors(t *testing.T) {
	start := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	m := New(ProbeFunc(func(context.Context) error {
		return &common.HTTPError{Method: http.MethodGet, URL: "/telegram/test", Status: http.StatusBadGateway}
	}), WithClock(tickingClock(start, 25*time.Millisecond)))

	m.Check(context.Background())

	assert.Equal(t, 25*time.Millisecond, m.Snapshot().ResponseTime)
}

func TestPoll_StopsWhenCanceled(t *testing.T) {
	probe := &scriptedProbe{}
	m := New(probe)
	ctx, cancel := context.WithCancel(context.Background())

	checks := make(chan Snapshot, 16)
	done := make(chan struct{})
	go func() {
		m.Poll(ctx, 5*time.Millisecond, func(s Snapshot) {
			select {
			case checks <- s:
			default:
			}
		})
		close(done)
	}()

	select {
	case s := <-checks:
		assert.Equal(t, StatusOnline, s.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("poller never checked")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}

	after := probe.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, probe.calls.Load())
}
