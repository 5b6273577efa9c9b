package api

import (
	"encoding/json"
	"strings"

	"github.com/Veraticus/smarttransit/internal/model"
)

// MockBuses is served in place of /buses when the backend is unavailable.
var MockBuses = []model.Bus{
	{ID: 1, Model: "ПАЗ-3205", Route: &model.RouteRef{Label: "7A"}, Status: "active"},
	{ID: 2, Model: "ЛиАЗ-5292", Route: &model.RouteRef{Label: "12B"}, Status: "active"},
	{ID: 3, Model: "МАЗ-103", Route: &model.RouteRef{Label: "25C"}, Status: "maintenance"},
}

// MockStops is served in place of /stops.
var MockStops = []model.Stop{
	{ID: 1, Name: "Центральная площадь", Lat: 55.7558, Lon: 37.6173},
	{ID: 2, Name: "Железнодорожный вокзал", Lat: 55.7556, Lon: 37.6563},
	{ID: 3, Name: "Университет", Lat: 55.7538, Lon: 37.6198},
}

// MockPassengers is served in place of /passengers.
var MockPassengers = []model.PassengerRecord{
	{ID: 1, Timestamp: "2024-01-15T08:30:00", Bus: &model.Ref{ID: 1}, Stop: &model.Ref{ID: 1}, Entered: 15, Exited: 8},
	{ID: 2, Timestamp: "2024-01-15T09:15:00", Bus: &model.Ref{ID: 2}, Stop: &model.Ref{ID: 2}, Entered: 12, Exited: 5},
	{ID: 3, Timestamp: "2024-01-15T10:00:00", Bus: &model.Ref{ID: 1}, Stop: &model.Ref{ID: 3}, Entered: 8, Exited: 10},
}

// MockEnvelope is served in place of any /telegram call.
type MockEnvelope struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

var mockTelegram = MockEnvelope{Success: true, Message: "Тестовое сообщение отправлено"}

// MockPayload returns the substitute payload for endpoint, matched by
// substring in a fixed order, or nil when nothing matches.
func MockPayload(endpoint string) *Payload {
	var v any
	switch {
	case strings.Contains(endpoint, "/buses"):
		v = MockBuses
	case strings.Contains(endpoint, "/stops"):
		v = MockStops
	case strings.Contains(endpoint, "/passengers"):
		v = MockPassengers
	case strings.Contains(endpoint, "/telegram"):
		v = mockTelegram
	default:
		return nil
	}

	body, err := json.Marshal(v)
	if err != nil {
		// Static values always encode.
		panic(err)
	}
	return &Payload{Body: body, JSON: true, Source: SourceMock}
}
