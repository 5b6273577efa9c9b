package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/smarttransit/internal/api"
)

func TestCollectStatistics_Live(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/buses":
			_, _ = w.Write([]byte(`[{"id":1,"model":"A"},{"id":2,"model":"B"}]`))
		case "/stops":
			_, _ = w.Write([]byte(`[{"id":1,"name":"S"}]`))
		case "/passengers":
			_, _ = w.Write([]byte(`[{"id":1,"entered":4,"exited":1},{"id":2,"entered":6,"exited":5}]`))
		}
	}))
	defer srv.Close()
	client, err := api.New(srv.URL)
	require.NoError(t, err)

	stats := CollectStatistics(context.Background(), client, fixedNow)

	assert.Equal(t, 2, stats.Buses)
	assert.Equal(t, 1, stats.Stops)
	assert.Equal(t, 2, stats.PassengersToday)
	assert.Equal(t, 10, stats.TotalPassengersToday)
	assert.Equal(t, 6, stats.TotalExitedToday)
	assert.Equal(t, "operational", stats.SystemStatus)
	assert.Equal(t, "online", stats.APIStatus)
	assert.Equal(t, SystemName, stats.System)
	assert.Equal(t, SystemVersion, stats.Version)
	assert.Equal(t, "15.01.2024, 09:30:00", stats.ServerTime)
}

func TestCollectStatistics_MockDataReportsTestMode(t *testing.T) {
	client, err := api.New("http://backend.invalid/api", api.WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("offline")
		}),
	}))
	require.NoError(t, err)

	stats := CollectStatistics(context.Background(), client, fixedNow)

	assert.Equal(t, 12, stats.Buses)
	assert.Equal(t, 45, stats.Stops)
	assert.Equal(t, 1567, stats.PassengersToday)
	assert.Equal(t, 24500, stats.TotalPassengersToday)
	assert.Equal(t, 23800, stats.TotalExitedToday)
	assert.Equal(t, "test_mode", stats.SystemStatus)
	assert.Equal(t, "using_mock_data", stats.APIStatus)
}
