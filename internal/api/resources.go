package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/Veraticus/smarttransit/internal/model"
)

// Resource endpoints.
const (
	EndpointProducts   = "/products"
	EndpointBuses      = "/buses"
	EndpointStops      = "/stops"
	EndpointRoutes     = "/routes"
	EndpointPassengers = "/passengers"
	EndpointNearby     = "/stops/nearby"
	EndpointLoad       = "/predictions/current-load"
	EndpointTelegram   = "/telegram"
)

// fetchInto reads endpoint into a T. A payload that does not decode is
// replaced by the endpoint's mock, and a missing payload yields the zero T.
func fetchInto[T any](ctx context.Context, c *Client, endpoint string) (T, Source) {
	var out T
	payload := c.Fetch(ctx, endpoint)
	if payload == nil {
		return out, SourceNone
	}

	if err := payload.Decode(&out); err == nil {
		return out, payload.Source
	} else if !payload.IsMock() {
		slog.Warn("Unexpected response shape, serving mock data", "endpoint", endpoint, "error", err)
	}

	var fallback T
	mock := MockPayload(endpoint)
	if mock == nil || mock.Decode(&fallback) != nil {
		return fallback, SourceNone
	}
	return fallback, SourceMock
}

// fetchOne reads a single entity. When the payload is a list (as the mocks
// are) the element with the requested id is picked.
func fetchOne[T any](ctx context.Context, c *Client, endpoint string, id int64, idOf func(T) int64) (*T, Source) {
	payload := c.Fetch(ctx, endpoint)
	if payload == nil {
		return nil, SourceNone
	}

	var one T
	if err := payload.Decode(&one); err == nil && idOf(one) != 0 {
		return &one, payload.Source
	}

	var many []T
	if err := payload.Decode(&many); err != nil {
		slog.Warn("Unexpected response shape", "endpoint", endpoint, "error", err)
		return nil, SourceNone
	}
	for i := range many {
		if idOf(many[i]) == id {
			return &many[i], payload.Source
		}
	}
	return nil, SourceNone
}

// Products lists catalog products.
func (c *Client) Products(ctx context.Context) ([]model.Product, Source) {
	return fetchInto[[]model.Product](ctx, c, EndpointProducts)
}

// Buses lists the fleet.
func (c *Client) Buses(ctx context.Context) ([]model.Bus, Source) {
	return fetchInto[[]model.Bus](ctx, c, EndpointBuses)
}

// Stops lists every stop.
func (c *Client) Stops(ctx context.Context) ([]model.Stop, Source) {
	return fetchInto[[]model.Stop](ctx, c, EndpointStops)
}

// Routes lists routes with their stops and buses.
func (c *Client) Routes(ctx context.Context) ([]model.Route, Source) {
	return fetchInto[[]model.Route](ctx, c, EndpointRoutes)
}

// Passengers lists passenger-flow records.
func (c *Client) Passengers(ctx context.Context) ([]model.PassengerRecord, Source) {
	return fetchInto[[]model.PassengerRecord](ctx, c, EndpointPassengers)
}

// Bus fetches one bus; nil when unknown.
func (c *Client) Bus(ctx context.Context, id int64) (*model.Bus, Source) {
	return fetchOne(ctx, c, fmt.Sprintf("%s/%d", EndpointBuses, id), id, func(b model.Bus) int64 { return b.ID })
}

// Stop fetches one stop; nil when unknown.
func (c *Client) Stop(ctx context.Context, id int64) (*model.Stop, Source) {
	return fetchOne(ctx, c, fmt.Sprintf("%s/%d", EndpointStops, id), id, func(s model.Stop) int64 { return s.ID })
}

// Passenger fetches one passenger record; nil when unknown.
func (c *Client) Passenger(ctx context.Context, id int64) (*model.PassengerRecord, Source) {
	return fetchOne(ctx, c, fmt.Sprintf("%s/%d", EndpointPassengers, id), id, func(p model.PassengerRecord) int64 { return p.ID })
}

// NearbyStops lists stops close to a coordinate.
func (c *Client) NearbyStops(ctx context.Context, lat, lon float64) ([]model.Stop, Source) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return fetchInto[[]model.Stop](ctx, c, EndpointNearby+"?"+q.Encode())
}

// CurrentLoad returns the predicted load of a bus. The backend answers
// either with a bare number or with {"currentLoad": n}.
func (c *Client) CurrentLoad(ctx context.Context, busID int64) (int, bool) {
	payload := c.Fetch(ctx, fmt.Sprintf("%s/%d", EndpointLoad, busID))
	if payload == nil {
		return 0, false
	}

	var n json.Number
	if err := payload.Decode(&n); err == nil {
		if v, err := n.Int64(); err == nil {
			return int(v), true
		}
	}

	var wrapped struct {
		CurrentLoad *int `json:"currentLoad"`
	}
	if err := payload.Decode(&wrapped); err == nil && wrapped.CurrentLoad != nil {
		return *wrapped.CurrentLoad, true
	}

	if v, err := strconv.Atoi(payload.Text()); err == nil {
		return v, true
	}
	return 0, false
}
