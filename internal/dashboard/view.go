package dashboard

import (
	"github.com/Veraticus/smarttransit/internal/api"
	"github.com/Veraticus/smarttransit/internal/model"
	"github.com/Veraticus/smarttransit/internal/monitor"
	"github.com/Veraticus/smarttransit/internal/storage"
	"github.com/Veraticus/smarttransit/internal/telegram"
)

// Summary holds the dashboard figures.
type Summary struct {
	Source      api.Source
	Reports     storage.ReportStats
	Buses       int
	ActiveBuses int
	Stops       int
	Passengers  int
	Entered     int
	Exited      int
}

// View is the loaded content of a section. Only the fields of its
// section are populated.
type View struct {
	Summary     *Summary
	Monitor     *monitor.Snapshot
	Bot         *telegram.BotCheck
	Section     Section
	Source      api.Source
	Buses       []model.Bus
	Stops       []model.Stop
	Routes      []model.Route
	Passengers  []model.PassengerRecord
	Reports     []model.Report
	Messages    []model.MessageEntry
	ReportStats storage.ReportStats
	Generation  uint64
}
