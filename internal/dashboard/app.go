package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/smarttransit/internal/api"
	"github.com/Veraticus/smarttransit/internal/model"
	"github.com/Veraticus/smarttransit/internal/monitor"
	"github.com/Veraticus/smarttransit/internal/service"
	"github.com/Veraticus/smarttransit/internal/storage"
	"github.com/Veraticus/smarttransit/internal/telegram"
)

// ErrStale is returned when a section finished loading after the operator
// had already navigated elsewhere.
var ErrStale = errors.New("section result is stale")

// Deps are the long-lived collaborators of an App.
type Deps struct {
	Client     *api.Client
	Reports    *storage.ReportStore
	Messages   *storage.MessageHistory
	Dispatcher *telegram.Dispatcher
	Monitor    *monitor.Monitor
	Notifier   service.Notifier
}

// App is the console's application state. It is built once at startup
// and closed on teardown.
type App struct {
	deps         Deps
	onMonitor    func(monitor.Snapshot)
	cancel       context.CancelFunc
	current      Section
	pollInterval time.Duration
	generation   uint64
	mu           sync.Mutex
}

// Option configures an App.
type Option func(*App)

// WithPollInterval sets how often the notifications section re-checks the
// channel status.
func WithPollInterval(d time.Duration) Option {
	return func(a *App) {
		a.pollInterval = d
	}
}

// WithMonitorListener receives every status snapshot taken while the
// notifications section is shown.
func WithMonitorListener(fn func(monitor.Snapshot)) Option {
	return func(a *App) {
		a.onMonitor = fn
	}
}

// New creates an App showing no section.
func New(deps Deps, opts ...Option) (*App, error) {
	if deps.Client == nil {
		return nil, errors.New("dashboard: client is required")
	}
	if deps.Reports == nil || deps.Messages == nil {
		return nil, errors.New("dashboard: report and message stores are required")
	}
	if deps.Notifier == nil {
		deps.Notifier = service.Discard
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = telegram.NewDispatcher(deps.Client, nil)
	}

	a := &App{
		deps:         deps,
		pollInterval: monitor.DefaultInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Navigate makes section current. The previous section's context is
// canceled, which aborts its in-flight loads and timers. The returned
// context lives until the next navigation.
func (a *App) Navigate(ctx context.Context, section Section) (context.Context, uint64) {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	sectionCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.current = section
	a.generation++
	gen := a.generation
	a.mu.Unlock()

	slog.Debug("Navigated", "section", section, "generation", gen)

	if section == SectionNotifications && a.deps.Monitor != nil {
		go a.deps.Monitor.Poll(sectionCtx, a.pollInterval, a.onMonitor)
	}
	return sectionCtx, gen
}

// Current returns the section shown.
func (a *App) Current() Section {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// IsCurrent reports whether gen is still the latest navigation.
func (a *App) IsCurrent(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return gen == a.generation
}

// Open navigates to section and loads it. ErrStale is returned when
// another navigation happened while loading.
func (a *App) Open(ctx context.Context, section Section) (View, error) {
	sectionCtx, gen := a.Navigate(ctx, section)
	view, err := a.Load(sectionCtx, section)
	if err != nil {
		return view, err
	}
	view.Generation = gen
	if !a.IsCurrent(gen) {
		return view, ErrStale
	}
	return view, nil
}

// Close cancels the current section.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// Load runs the loader of section. Reads never fail, so the only errors
// are an unknown section or a canceled context.
func (a *App) Load(ctx context.Context, section Section) (View, error) {
	view := View{Section: section, Source: api.SourceBackend}

	switch section {
	case SectionDashboard:
		summary := a.loadSummary(ctx)
		view.Summary = &summary
		view.Source = summary.Source
	case SectionBuses:
		view.Buses, view.Source = a.deps.Client.Buses(ctx)
	case SectionStops:
		view.Stops, view.Source = a.deps.Client.Stops(ctx)
	case SectionRoutes:
		view.Routes, view.Source = a.deps.Client.Routes(ctx)
	case SectionPassengers:
		view.Passengers, view.Source = a.deps.Client.Passengers(ctx)
	case SectionReports:
		view.Reports = a.deps.Reports.List()
		view.ReportStats = a.deps.Reports.Stats()
	case SectionNotifications:
		view.Messages = a.deps.Messages.List()
		if a.deps.Monitor != nil {
			snap := a.deps.Monitor.Snapshot()
			view.Monitor = &snap
		}
		if a.deps.Dispatcher.DirectEnabled() {
			check := a.deps.Dispatcher.CheckBot(ctx)
			view.Bot = &check
		}
	default:
		return view, fmt.Errorf("unknown section %q", section)
	}

	if err := ctx.Err(); err != nil {
		return view, err
	}
	return view, nil
}

// loadSummary fetches the dashboard figures concurrently.
func (a *App) loadSummary(ctx context.Context) Summary {
	var (
		buses      []model.Bus
		stops      []model.Stop
		passengers []model.PassengerRecord
		sources    [3]api.Source
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		buses, sources[0] = a.deps.Client.Buses(gctx)
		return nil
	})
	g.Go(func() error {
		stops, sources[1] = a.deps.Client.Stops(gctx)
		return nil
	})
	g.Go(func() error {
		passengers, sources[2] = a.deps.Client.Passengers(gctx)
		return nil
	})
	_ = g.Wait()

	s := Summary{
		Buses:      len(buses),
		Stops:      len(stops),
		Passengers: len(passengers),
		Reports:    a.deps.Reports.Stats(),
		Source:     api.SourceBackend,
	}
	for _, b := range buses {
		if b.Status == "active" {
			s.ActiveBuses++
		}
	}
	for _, p := range passengers {
		s.Entered += p.Entered
		s.Exited += p.Exited
	}
	for _, src := range sources {
		if src == api.SourceMock {
			s.Source = api.SourceMock
		}
	}
	return s
}
