// Package report builds passenger-flow reports and keeps them in the local
// report history.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/smarttransit/internal/api"
	"github.com/Veraticus/smarttransit/internal/model"
	"github.com/Veraticus/smarttransit/internal/service"
	"github.com/Veraticus/smarttransit/internal/storage"
)

// Type is a report kind.
type Type string

// Report kinds.
const (
	Daily      Type = "daily"
	Weekly     Type = "weekly"
	Monthly    Type = "monthly"
	Routes     Type = "route"
	Fleet      Type = "buses"
	Passengers Type = "passengers"
)

// Types lists every kind Generate accepts.
var Types = []Type{Daily, Weekly, Monthly, Routes, Fleet, Passengers}

var titles = map[Type]string{
	Daily:      "Суточный отчет по пассажиропотоку",
	Weekly:     "Недельный отчет по пассажиропотоку",
	Monthly:    "Месячный отчет по пассажиропотоку",
	Routes:     "Отчет по маршрутам",
	Fleet:      "Отчет по автопарку",
	Passengers: "Отчет по пассажирам",
}

// ParseType validates a report kind.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := titles[t]; !ok {
		return "", fmt.Errorf("unknown report type %q", s)
	}
	return t, nil
}

// Title is the display name of a report kind.
func (t Type) Title() string {
	return titles[t]
}

// Generator builds reports from live or mock data.
type Generator struct {
	client   *api.Client
	store    *storage.ReportStore
	notifier service.Notifier
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithNotifier reports generation outcomes.
func WithNotifier(n service.Notifier) Option {
	return func(g *Generator) {
		g.notifier = n
	}
}

// NewGenerator creates a Generator.
func NewGenerator(client *api.Client, store *storage.ReportStore, opts ...Option) *Generator {
	g := &Generator{
		client:   client,
		store:    store,
		notifier: service.Discard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a report of kind t and stores it. The stored record is
// returned even when persisting fails.
func (g *Generator) Generate(ctx context.Context, t Type) (model.Report, error) {
	if _, ok := titles[t]; !ok {
		return model.Report{}, fmt.Errorf("unknown report type %q", t)
	}

	now := g.now()
	var content string
	var mock bool
	switch t {
	case Daily:
		content, mock = g.flow(ctx, dayStart(now), now)
	case Weekly:
		content, mock = g.flow(ctx, dayStart(now).AddDate(0, 0, -6), now)
	case Monthly:
		content, mock = g.flow(ctx, dayStart(now).AddDate(0, -1, 0), now)
	case Routes:
		content, mock = g.routes(ctx)
	case Fleet:
		content, mock = g.fleet(ctx)
	case Passengers:
		content, mock = g.flow(ctx, time.Time{}, now)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nСформирован: %s\n", t.Title(), now.Format("02.01.2006 15:04"))
	if mock {
		b.WriteString("Источник данных: тестовый режим\n")
	}
	b.WriteString("\n")
	b.WriteString(content)

	body := strings.TrimRight(b.String(), "\n")
	stored, err := g.store.Add(ctx, model.Report{
		Type:      string(t),
		Name:      t.Title(),
		Content:   body,
		CreatedAt: now,
		Status:    model.ReportCompleted,
		Size:      FormatSize(len(body)),
	})
	if err != nil {
		g.notifier.Notify(service.LevelWarning, fmt.Sprintf("Отчет создан, но не сохранен: %v", err))
		return stored, err
	}
	g.notifier.Notify(service.LevelSuccess, fmt.Sprintf("Отчет «%s» создан", t.Title()))
	return stored, nil
}

// flow summarizes passenger records within [from, to]. A zero from covers
// every record.
func (g *Generator) flow(ctx context.Context, from, to time.Time) (string, bool) {
	records, src := g.client.Passengers(ctx)

	type tally struct{ entered, exited, count int }
	byStop := map[string]*tally{}
	var total tally
	for _, r := range records {
		if !from.IsZero() {
			ts, ok := r.Time()
			if !ok || ts.Before(from) || ts.After(to) {
				continue
			}
		}
		key := refLabel("Остановка", r.Stop)
		t := byStop[key]
		if t == nil {
			t = &tally{}
			byStop[key] = t
		}
		t.entered += r.Entered
		t.exited += r.Exited
		t.count++
		total.entered += r.Entered
		total.exited += r.Exited
		total.count++
	}

	var b strings.Builder
	if !from.IsZero() {
		fmt.Fprintf(&b, "Период: %s – %s\n", from.Format("02.01.2006"), to.Format("02.01.2006"))
	}
	fmt.Fprintf(&b, "Записей: %d\n", total.count)
	fmt.Fprintf(&b, "Вошло пассажиров: %d\n", total.entered)
	fmt.Fprintf(&b, "Вышло пассажиров: %d\n", total.exited)

	if len(byStop) > 0 {
		b.WriteString("\nПо остановкам:\n")
		for _, key := range sortedKeys(byStop) {
			t := byStop[key]
			fmt.Fprintf(&b, "  %s: вошло %d, вышло %d (%d записей)\n", key, t.entered, t.exited, t.count)
		}
	}
	return b.String(), src == api.SourceMock
}

func (g *Generator) fleet(ctx context.Context) (string, bool) {
	buses, src := g.client.Buses(ctx)

	byStatus := map[string]int{}
	var b strings.Builder
	fmt.Fprintf(&b, "Автобусов: %d\n\n", len(buses))
	for _, bus := range buses {
		status := bus.Status
		if status == "" {
			status = "unknown"
		}
		byStatus[status]++
		fmt.Fprintf(&b, "  #%d %s, маршрут %s, статус %s\n", bus.ID, bus.Model, bus.RouteLabel(), status)
	}
	if len(byStatus) > 0 {
		b.WriteString("\nПо статусу:\n")
		for _, status := range sortedKeys(byStatus) {
			fmt.Fprintf(&b, "  %s: %d\n", status, byStatus[status])
		}
	}
	return b.String(), src == api.SourceMock
}

func (g *Generator) routes(ctx context.Context) (string, bool) {
	routes, src := g.client.Routes(ctx)

	var b strings.Builder
	fmt.Fprintf(&b, "Маршрутов: %d\n", len(routes))
	for _, r := range routes {
		fmt.Fprintf(&b, "\nМаршрут #%d: остановок %d, автобусов %d\n", r.ID, len(r.Stops), len(r.Buses))
		names := make([]string, 0, len(r.Stops))
		for _, s := range r.Stops {
			names = append(names, s.Name)
		}
		if len(names) > 0 {
			fmt.Fprintf(&b, "  %s\n", strings.Join(names, " → "))
		}
	}
	return b.String(), src == api.SourceMock
}

func refLabel(kind string, ref *model.Ref) string {
	switch {
	case ref == nil:
		return kind + " ?"
	case ref.Name != "":
		return ref.Name
	default:
		return fmt.Sprintf("%s #%d", kind, ref.ID)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FormatSize renders a byte count the way report sizes are displayed.
func FormatSize(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
