// Package dashboard holds the console's application state: which section
// is shown, the loaders behind each section and the actions operators run
// from them.
package dashboard

import (
	"fmt"
	"strings"
)

// Section is one screen of the console.
type Section string

// Sections of the console.
const (
	SectionDashboard     Section = "dashboard"
	SectionBuses         Section = "buses"
	SectionStops         Section = "stops"
	SectionRoutes        Section = "routes"
	SectionPassengers    Section = "passengers"
	SectionReports       Section = "reports"
	SectionNotifications Section = "notifications"
)

// Sections lists every section in navigation order.
var Sections = []Section{
	SectionDashboard,
	SectionBuses,
	SectionStops,
	SectionRoutes,
	SectionPassengers,
	SectionReports,
	SectionNotifications,
}

var sectionTitles = map[Section]string{
	SectionDashboard:     "Дашборд",
	SectionBuses:         "Автобусы",
	SectionStops:         "Остановки",
	SectionRoutes:        "Маршруты",
	SectionPassengers:    "Пассажиры",
	SectionReports:       "Отчеты",
	SectionNotifications: "Telegram",
}

// Title is the display name of the section.
func (s Section) Title() string {
	if t, ok := sectionTitles[s]; ok {
		return t
	}
	return string(s)
}

// ParseSection resolves a section name. "telegram" is accepted for the
// notifications section.
func ParseSection(name string) (Section, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "telegram" {
		return SectionNotifications, nil
	}
	s := Section(name)
	if _, ok := sectionTitles[s]; !ok {
		return "", fmt.Errorf("unknown section %q", name)
	}
	return s, nil
}
