// Package model contains the domain types exchanged with the transit backend
// and persisted locally by the console.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Bus is a vehicle as reported by the backend.
type Bus struct {
	Route       *RouteRef `json:"route,omitempty"`
	CurrentLoad *int      `json:"currentLoad,omitempty"`
	Model       string    `json:"model"`
	Status      string    `json:"status,omitempty"`
	ID          int64     `json:"id"`
}

// RouteLabel returns a printable route identifier, or "-" when unknown.
func (b Bus) RouteLabel() string {
	if b.Route == nil {
		return "-"
	}
	return b.Route.String()
}

// RouteRef references a route either by label ("7A") or by id ({"id": 1}).
type RouteRef struct {
	Label string
	ID    int64
}

func (r RouteRef) String() string {
	if r.Label != "" {
		return r.Label
	}
	if r.ID != 0 {
		return fmt.Sprintf("#%d", r.ID)
	}
	return "-"
}

// UnmarshalJSON accepts both the string and object encodings.
func (r *RouteRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.Label)
	}
	var obj struct {
		Name string `json:"name"`
		ID   int64  `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("route reference: %w", err)
	}
	r.ID = obj.ID
	r.Label = obj.Name
	return nil
}

// MarshalJSON writes a label as a string and an id as an object.
func (r RouteRef) MarshalJSON() ([]byte, error) {
	if r.ID == 0 && r.Label != "" {
		return json.Marshal(r.Label)
	}
	return json.Marshal(struct {
		Name string `json:"name,omitempty"`
		ID   int64  `json:"id"`
	}{ID: r.ID, Name: r.Label})
}

// Stop is a boarding point.
type Stop struct {
	Name string  `json:"name" validate:"required"`
	ID   int64   `json:"id"`
	Lat  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon  float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Route is an ordered set of stops served by buses.
type Route struct {
	Stops []Stop `json:"stops,omitempty"`
	Buses []Bus  `json:"buses,omitempty"`
	ID    int64  `json:"id"`
}

// Ref is a bare {"id": n} reference used inside passenger records.
type Ref struct {
	Name string `json:"name,omitempty"`
	ID   int64  `json:"id"`
}

// PassengerRecord is a single boarding/alighting count.
type PassengerRecord struct {
	Timestamp string `json:"timestamp"`
	Bus       *Ref   `json:"bus,omitempty"`
	Stop      *Ref   `json:"stop,omitempty"`
	ID        int64  `json:"id"`
	Entered   int    `json:"entered" validate:"gte=0"`
	Exited    int    `json:"exited" validate:"gte=0"`
}

// Time parses the record timestamp, which the backend sends without a zone.
func (p PassengerRecord) Time() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04:05.999999999"} {
		if t, err := time.ParseInLocation(layout, p.Timestamp, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Product is the legacy catalog entity still exposed by the backend.
type Product struct {
	Title string `json:"title"`
	ID    int64  `json:"id"`
	Cost  int    `json:"cost"`
}

// NewBus is the payload for creating or updating a bus.
type NewBus struct {
	Route  *Ref   `json:"route,omitempty"`
	Model  string `json:"model" validate:"required"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=active maintenance inactive"`
}
