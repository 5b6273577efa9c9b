package dashboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/smarttransit/internal/api"
	"github.com/Veraticus/smarttransit/internal/cli"
	"github.com/Veraticus/smarttransit/internal/model"
	"github.com/Veraticus/smarttransit/internal/monitor"
)

const timeLayout = "02.01.2006 15:04"

// RenderNav renders the section bar with current highlighted.
func RenderNav(current Section) string {
	parts := make([]string, 0, len(Sections))
	for i, s := range Sections {
		label := fmt.Sprintf("%d %s", i+1, s.Title())
		if s == current {
			parts = append(parts, cli.NavActiveStyle.Render(label))
		} else {
			parts = append(parts, cli.NavStyle.Render(label))
		}
	}
	return strings.Join(parts, "")
}

// Render renders a loaded section.
func Render(v View) string {
	var body string
	switch v.Section {
	case SectionDashboard:
		body = renderSummary(v.Summary)
	case SectionBuses:
		body = renderBuses(v.Buses)
	case SectionStops:
		body = renderStops(v.Stops)
	case SectionRoutes:
		body = renderRoutes(v.Routes)
	case SectionPassengers:
		body = renderPassengers(v.Passengers)
	case SectionReports:
		body = renderReports(v)
	case SectionNotifications:
		body = renderNotifications(v)
	}

	out := cli.FormatTitle(v.Section.Title()) + "\n" + body
	if v.Source == api.SourceMock {
		out += "\n\n" + cli.FormatWarning("Сервер недоступен, показаны тестовые данные")
	}
	return out
}

func renderSummary(s *Summary) string {
	if s == nil {
		return cli.SubtleStyle.Render("Загрузка...")
	}
	return cli.RenderCards(
		cli.RenderCard("Автобусы", strconv.Itoa(s.Buses), fmt.Sprintf("активных: %d", s.ActiveBuses)),
		cli.RenderCard("Остановки", strconv.Itoa(s.Stops), ""),
		cli.RenderCard("Пассажиры", strconv.Itoa(s.Entered), fmt.Sprintf("записей: %d, вышло: %d", s.Passengers, s.Exited)),
		cli.RenderCard("Отчеты", strconv.Itoa(s.Reports.Total), fmt.Sprintf("сегодня: %d", s.Reports.Today)),
	)
}

func renderBuses(buses []model.Bus) string {
	rows := make([][]string, 0, len(buses))
	for _, b := range buses {
		rows = append(rows, []string{strconv.FormatInt(b.ID, 10), b.Model, b.RouteLabel(), statusLabel(b.Status)})
	}
	return cli.RenderTable([]string{"ID", "Модель", "Маршрут", "Статус"}, rows)
}

func renderStops(stops []model.Stop) string {
	rows := make([][]string, 0, len(stops))
	for _, s := range stops {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Name,
			strconv.FormatFloat(s.Lat, 'f', 4, 64),
			strconv.FormatFloat(s.Lon, 'f', 4, 64),
		})
	}
	return cli.RenderTable([]string{"ID", "Название", "Широта", "Долгота"}, rows)
}

func renderRoutes(routes []model.Route) string {
	rows := make([][]string, 0, len(routes))
	for _, r := range routes {
		rows = append(rows, []string{strconv.FormatInt(r.ID, 10), strconv.Itoa(len(r.Stops)), strconv.Itoa(len(r.Buses))})
	}
	return cli.RenderTable([]string{"ID", "Остановок", "Автобусов"}, rows)
}

func renderPassengers(records []model.PassengerRecord) string {
	rows := make([][]string, 0, len(records))
	for _, p := range records {
		when := p.Timestamp
		if t, ok := p.Time(); ok {
			when = t.Format(timeLayout)
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			when,
			refID(p.Bus),
			refID(p.Stop),
			strconv.Itoa(p.Entered),
			strconv.Itoa(p.Exited),
		})
	}
	return cli.RenderTable([]string{"ID", "Время", "Автобус", "Остановка", "Вошло", "Вышло"}, rows)
}

func renderReports(v View) string {
	rows := make([][]string, 0, len(v.Reports))
	for _, r := range v.Reports {
		rows = append(rows, []string{r.CreatedAt.Format(timeLayout), r.Type, r.Name, r.Size, string(r.Status)})
	}
	stats := cli.SubtleStyle.Render(fmt.Sprintf("Всего отчетов: %d, сегодня: %d", v.ReportStats.Total, v.ReportStats.Today))
	return stats + "\n\n" + cli.RenderTable([]string{"Дата", "Тип отчета", "Название", "Размер", "Статус"}, rows)
}

func renderNotifications(v View) string {
	var b strings.Builder
	if v.Monitor != nil {
		b.WriteString(RenderStatus(*v.Monitor))
		b.WriteString("\n")
	}
	if v.Bot != nil {
		if v.Bot.Success {
			b.WriteString(cli.FormatSuccess(v.Bot.Message))
		} else {
			b.WriteString(cli.FormatError(v.Bot.Message + ": " + v.Bot.Error))
		}
		b.WriteString("\n")
	}

	rows := make([][]string, 0, len(v.Messages))
	for _, m := range v.Messages {
		rows = append(rows, []string{m.Timestamp.Format(timeLayout), m.Status, m.Message})
	}
	b.WriteString("\n")
	b.WriteString(cli.RenderTable([]string{"Время", "Статус", "Сообщение"}, rows))
	return b.String()
}

// RenderStatus renders a status monitor snapshot on one line.
func RenderStatus(s monitor.Snapshot) string {
	var line string
	switch s.Status {
	case monitor.StatusOnline:
		line = cli.FormatSuccess("Telegram: онлайн")
	case monitor.StatusOffline:
		line = cli.FormatError("Telegram: офлайн")
	default:
		line = cli.FormatInfo("Telegram: статус неизвестен")
	}
	if s.ResponseTime > 0 {
		line += cli.SubtleStyle.Render(fmt.Sprintf(" (%dms)", s.ResponseTime.Round(time.Millisecond).Milliseconds()))
	}
	if !s.LastCheck.IsZero() {
		line += cli.SubtleStyle.Render(" · проверено " + s.LastCheck.Format("15:04:05"))
	}
	if s.LastError != nil {
		line += "\n" + cli.SubtleStyle.Render(fmt.Sprintf("Ошибок: %d, последняя: %s", s.ErrorCount, s.LastError.Error))
	}
	return line
}

func statusLabel(status string) string {
	switch status {
	case "active":
		return cli.SuccessStyle.Render("активен")
	case "maintenance":
		return cli.WarningStyle.Render("на обслуживании")
	case "inactive":
		return cli.SubtleStyle.Render("неактивен")
	case "":
		return "-"
	default:
		return status
	}
}

func refID(ref *model.Ref) string {
	if ref == nil {
		return "-"
	}
	if ref.Name != "" {
		return ref.Name
	}
	return strconv.FormatInt(ref.ID, 10)
}
