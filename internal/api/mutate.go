package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Veraticus/smarttransit/internal/common"
	"github.com/Veraticus/smarttransit/internal/model"
	"github.com/Veraticus/smarttransit/internal/service"
)

// Create POSTs body to endpoint.
func (c *Client) Create(ctx context.Context, endpoint string, body any) (*Payload, error) {
	return c.write(ctx, http.MethodPost, endpoint, body)
}

// Update PUTs body to endpoint.
func (c *Client) Update(ctx context.Context, endpoint string, body any) (*Payload, error) {
	return c.write(ctx, http.MethodPut, endpoint, body)
}

// Delete removes the resource at endpoint. Any 2xx is success.
func (c *Client) Delete(ctx context.Context, endpoint string) error {
	_, err := c.write(ctx, http.MethodDelete, endpoint, nil)
	return err
}

// Call sends body as JSON to endpoint and returns the raw outcome. Unlike
// the typed writes it neither notifies nor logs.
func (c *Client) Call(ctx context.Context, method, endpoint string, body any, opts ...RequestOption) (*Payload, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return c.do(ctx, method, endpoint, reader, opts...)
}

// write performs a mutation. Failures are reported to the notifier and
// returned; there is no mock fallback.
func (c *Client) write(ctx context.Context, method, endpoint string, body any) (*Payload, error) {
	payload, err := c.Call(ctx, method, endpoint, body)
	if err != nil {
		return nil, c.fail(method, endpoint, err)
	}
	return payload, nil
}

func (c *Client) fail(method, endpoint string, err error) error {
	slog.Error("API write failed", "method", method, "endpoint", endpoint, "error", err)
	msg := fmt.Sprintf("%s %s failed", method, endpoint)
	c.notifier.Notify(service.LevelError, fmt.Sprintf("%s: %v", msg, err))
	return common.NewUserError(msg, err)
}

func (c *Client) check(v any) error {
	if err := c.validate.Struct(v); err != nil {
		c.notifier.Notify(service.LevelWarning, fmt.Sprintf("Invalid input: %v", err))
		return common.NewUserError("invalid input", err)
	}
	return nil
}

func decodeCreated[T any](payload *Payload) (*T, error) {
	if payload == nil || len(payload.Body) == 0 {
		return nil, nil
	}
	var out T
	if err := payload.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// CreateBus registers a bus.
func (c *Client) CreateBus(ctx context.Context, bus model.NewBus) (*model.Bus, error) {
	if err := c.check(bus); err != nil {
		return nil, err
	}
	payload, err := c.Create(ctx, EndpointBuses, bus)
	if err != nil {
		return nil, err
	}
	c.notifier.Notify(service.LevelSuccess, "Bus added")
	return decodeCreated[model.Bus](payload)
}

// UpdateBus replaces a bus.
func (c *Client) UpdateBus(ctx context.Context, id int64, bus model.NewBus) (*model.Bus, error) {
	if err := c.check(bus); err != nil {
		return nil, err
	}
	payload, err := c.Update(ctx, fmt.Sprintf("%s/%d", EndpointBuses, id), bus)
	if err != nil {
		return nil, err
	}
	c.notifier.Notify(service.LevelSuccess, "Bus updated")
	return decodeCreated[model.Bus](payload)
}

// DeleteBus removes a bus.
func (c *Client) DeleteBus(ctx context.Context, id int64) error {
	if err := c.Delete(ctx, fmt.Sprintf("%s/%d", EndpointBuses, id)); err != nil {
		return err
	}
	c.notifier.Notify(service.LevelSuccess, "Bus deleted")
	return nil
}

// CreateStop registers a stop.
func (c *Client) CreateStop(ctx context.Context, stop model.Stop) (*model.Stop, error) {
	if err := c.check(stop); err != nil {
		return nil, err
	}
	payload, err := c.Create(ctx, EndpointStops, stop)
	if err != nil {
		return nil, err
	}
	c.notifier.Notify(service.LevelSuccess, "Stop added")
	return decodeCreated[model.Stop](payload)
}

// UpdateStop replaces a stop.
func (c *Client) UpdateStop(ctx context.Context, id int64, stop model.Stop) (*model.Stop, error) {
	if err := c.check(stop); err != nil {
		return nil, err
	}
	payload, err := c.Update(ctx, fmt.Sprintf("%s/%d", EndpointStops, id), stop)
	if err != nil {
		return nil, err
	}
	c.notifier.Notify(service.LevelSuccess, "Stop updated")
	return decodeCreated[model.Stop](payload)
}

// DeleteStop removes a stop.
func (c *Client) DeleteStop(ctx context.Context, id int64) error {
	if err := c.Delete(ctx, fmt.Sprintf("%s/%d", EndpointStops, id)); err != nil {
		return err
	}
	c.notifier.Notify(service.LevelSuccess, "Stop deleted")
	return nil
}

// CreatePassenger records a passenger count.
func (c *Client) CreatePassenger(ctx context.Context, rec model.PassengerRecord) (*model.PassengerRecord, error) {
	if err := c.check(rec); err != nil {
		return nil, err
	}
	payload, err := c.Create(ctx, EndpointPassengers, rec)
	if err != nil {
		return nil, err
	}
	c.notifier.Notify(service.LevelSuccess, "Passenger record added")
	return decodeCreated[model.PassengerRecord](payload)
}

// UpdatePassenger replaces a passenger count.
func (c *Client) UpdatePassenger(ctx context.Context, id int64, rec model.PassengerRecord) (*model.PassengerRecord, error) {
	if err := c.check(rec); err != nil {
		return nil, err
	}
	payload, err := c.Update(ctx, fmt.Sprintf("%s/%d", EndpointPassengers, id), rec)
	if err != nil {
		return nil, err
	}
	c.notifier.Notify(service.LevelSuccess, "Passenger record updated")
	return decodeCreated[model.PassengerRecord](payload)
}
