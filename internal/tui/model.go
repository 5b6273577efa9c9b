// Package tui implements the interactive terminal console on top of
// dashboard.App.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/smarttransit/internal/cli"
	"github.com/Veraticus/smarttransit/internal/dashboard"
	"github.com/Veraticus/smarttransit/internal/monitor"
	"github.com/Veraticus/smarttransit/internal/report"
)

// DefaultRefresh is how often the dashboard section reloads itself.
const DefaultRefresh = 30 * time.Second

// Model is the Bubble Tea model for the console.
type Model struct {
	ctx        context.Context
	sectionCtx context.Context
	err        error
	app        *dashboard.App
	status     *monitor.Snapshot
	notice     *noticeMsg
	section    dashboard.Section
	start      dashboard.Section
	view       dashboard.View
	help       help.Model
	input      textinput.Model
	keymap     KeyMap
	refresh    time.Duration
	gen        uint64
	width      int
	height     int
	loaded     bool
	loading    bool
	alerting   bool
	busy       bool
	quitting   bool
}

// Option configures a Model.
type Option func(*Model)

// WithRefresh sets the dashboard auto-refresh interval.
func WithRefresh(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.refresh = d
		}
	}
}

// WithStartSection sets the section shown first.
func WithStartSection(s dashboard.Section) Option {
	return func(m *Model) {
		if s != "" {
			m.start = s
		}
	}
}

// WithKeyMap replaces the default key bindings.
func WithKeyMap(k KeyMap) Option {
	return func(m *Model) {
		m.keymap = k
	}
}

// NewModel creates the console model. Actions run under ctx.
func NewModel(ctx context.Context, app *dashboard.App, opts ...Option) Model {
	input := textinput.New()
	input.Placeholder = "Текст оповещения"
	input.CharLimit = 1000
	input.Width = 60

	m := Model{
		ctx:     ctx,
		app:     app,
		keymap:  DefaultKeyMap(),
		help:    help.New(),
		input:   input,
		refresh: DefaultRefresh,
		start:   dashboard.SectionDashboard,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return navigateMsg{section: m.start} },
		m.tick(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.alerting {
			return m.updateAlert(msg)
		}
		return m.handleKey(msg)

	case navigateMsg:
		return m.navigate(msg.section)

	case sectionLoadedMsg:
		if msg.gen != m.gen || !m.app.IsCurrent(msg.gen) {
			slog.Debug("Dropping stale section result", "generation", msg.gen)
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			if !errors.Is(msg.err, context.Canceled) {
				m.err = msg.err
			}
			return m, nil
		}
		m.err = nil
		m.view = msg.view
		m.loaded = true
		if msg.view.Monitor != nil {
			snap := *msg.view.Monitor
			m.status = &snap
		}
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{m.tick()}
		if m.section == dashboard.SectionDashboard && !m.loading {
			m.loading = true
			cmds = append(cmds, m.load())
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		snap := monitor.Snapshot(msg)
		m.status = &snap
		return m, nil

	case noticeMsg:
		m.notice = &msg
		return m, nil

	case actionDoneMsg:
		m.busy = false
		if m.section == dashboard.SectionNotifications || m.section == dashboard.SectionReports {
			m.loading = true
			return m, m.load()
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		m.app.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keymap.Next):
		return m.navigate(m.offset(1))

	case key.Matches(msg, m.keymap.Prev):
		return m.navigate(m.offset(-1))

	case key.Matches(msg, m.keymap.Refresh):
		if m.sectionCtx == nil {
			return m, nil
		}
		m.loading = true
		return m, m.load()

	case key.Matches(msg, m.keymap.SendTest):
		return m.action(func(ctx context.Context) tea.Msg {
			m.app.SendTest(ctx)
			return actionDoneMsg{}
		})

	case key.Matches(msg, m.keymap.SendStats):
		return m.action(func(ctx context.Context) tea.Msg {
			m.app.SendStatistics(ctx)
			return actionDoneMsg{}
		})

	case key.Matches(msg, m.keymap.Check):
		return m.action(func(ctx context.Context) tea.Msg {
			return snapshotMsg(m.app.CheckStatus(ctx))
		})

	case key.Matches(msg, m.keymap.Generate):
		return m.action(func(ctx context.Context) tea.Msg {
			if _, err := m.app.GenerateReport(ctx, report.Daily); err != nil {
				slog.Warn("Report generation failed", "error", err)
			}
			return actionDoneMsg{}
		})

	case key.Matches(msg, m.keymap.Alert):
		m.alerting = true
		m.input.Reset()
		return m, m.input.Focus()
	}

	for i, binding := range m.keymap.Sections {
		if i < len(dashboard.Sections) && key.Matches(msg, binding) {
			return m.navigate(dashboard.Sections[i])
		}
	}
	return m, nil
}

func (m Model) updateAlert(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.alerting = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keymap.Submit):
		text := strings.TrimSpace(m.input.Value())
		m.alerting = false
		m.input.Blur()
		return m.action(func(ctx context.Context) tea.Msg {
			m.app.SendAlert(ctx, text)
			return actionDoneMsg{}
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// navigate makes section current and starts loading it. Results of earlier
// navigations are dropped when they arrive.
func (m Model) navigate(section dashboard.Section) (tea.Model, tea.Cmd) {
	sectionCtx, gen := m.app.Navigate(m.ctx, section)
	m.sectionCtx = sectionCtx
	m.section = section
	m.gen = gen
	m.loading = true
	m.loaded = false
	m.err = nil
	return m, m.load()
}

// load reads the current section under the context of its navigation.
func (m Model) load() tea.Cmd {
	app, section, gen, ctx := m.app, m.section, m.gen, m.sectionCtx
	if ctx == nil {
		return nil
	}
	return func() tea.Msg {
		view, err := app.Load(ctx, section)
		view.Generation = gen
		return sectionLoadedMsg{view: view, err: err, gen: gen}
	}
}

func (m Model) action(run func(context.Context) tea.Msg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	ctx := m.ctx
	return m, func() tea.Msg {
		return run(ctx)
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) offset(delta int) dashboard.Section {
	idx := 0
	for i, s := range dashboard.Sections {
		if s == m.section {
			idx = i
			break
		}
	}
	n := len(dashboard.Sections)
	return dashboard.Sections[((idx+delta)%n+n)%n]
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(cli.FormatTitle("SmartTransit"))
	b.WriteString("\n")
	b.WriteString(dashboard.RenderNav(m.section))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(cli.FormatError(m.err.Error()))
	case !m.loaded:
		b.WriteString(cli.SubtleStyle.Render("Загрузка..."))
	default:
		b.WriteString(dashboard.Render(m.view))
	}
	b.WriteString("\n\n")

	if m.alerting {
		b.WriteString(cli.BoldStyle.Render("Оповещение: "))
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	var footer []string
	if m.status != nil {
		footer = append(footer, dashboard.RenderStatus(*m.status))
	}
	if m.notice != nil {
		footer = append(footer, cli.FormatLevel(m.notice.level, m.notice.message))
	}
	if m.busy {
		footer = append(footer, cli.SubtleStyle.Render("Выполняется..."))
	}
	if len(footer) > 0 {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, footer...))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keymap))
	return b.String()
}
