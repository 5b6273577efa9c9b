package telegram

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/smarttransit/internal/api"
	"github.com/Veraticus/smarttransit/internal/model"
)

// Identity of the reporting system.
const (
	SystemName    = "SmartTransit Passenger Flow System"
	SystemVersion = "1.0.0"
)

// testModeStatistics is reported when live figures are unavailable.
var testModeStatistics = model.Statistics{
	Buses:                12,
	Stops:                45,
	PassengersToday:      1567,
	TotalPassengersToday: 24500,
	TotalExitedToday:     23800,
	SystemStatus:         "test_mode",
	APIStatus:            "using_mock_data",
}

// CollectStatistics gathers fleet, stop and passenger counts concurrently.
// When any of them had to be served from mock data the fixed test-mode
// figures are reported instead.
func CollectStatistics(ctx context.Context, client *api.Client, now time.Time) model.Statistics {
	var (
		buses      []model.Bus
		stops      []model.Stop
		passengers []model.PassengerRecord
		sources    [3]api.Source
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		buses, sources[0] = client.Buses(gctx)
		return nil
	})
	g.Go(func() error {
		stops, sources[1] = client.Stops(gctx)
		return nil
	})
	g.Go(func() error {
		passengers, sources[2] = client.Passengers(gctx)
		return nil
	})
	_ = g.Wait()

	stats := model.Statistics{
		Timestamp:  now.UTC().Format(time.RFC3339Nano),
		ServerTime: now.Format(DisplayTimeLayout),
		System:     SystemName,
		Version:    SystemVersion,
	}

	for _, src := range sources {
		if src == api.SourceMock {
			stats.Buses = testModeStatistics.Buses
			stats.Stops = testModeStatistics.Stops
			stats.PassengersToday = testModeStatistics.PassengersToday
			stats.TotalPassengersToday = testModeStatistics.TotalPassengersToday
			stats.TotalExitedToday = testModeStatistics.TotalExitedToday
			stats.SystemStatus = testModeStatistics.SystemStatus
			stats.APIStatus = testModeStatistics.APIStatus
			return stats
		}
	}

	stats.Buses = len(buses)
	stats.Stops = len(stops)
	stats.PassengersToday = len(passengers)
	for _, p := range passengers {
		stats.TotalPassengersToday += p.Entered
		stats.TotalExitedToday += p.Exited
	}
	stats.SystemStatus = "operational"
	stats.APIStatus = "online"
	return stats
}
