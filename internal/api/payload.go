package api

import (
	"encoding/json"
	"errors"
)

// Source tells where a payload came from.
type Source string

// Payload sources.
const (
	SourceBackend Source = "backend"
	SourceMock    Source = "mock"
	SourceNone    Source = "none"
)

// ErrNoContent is returned when decoding a nil payload.
var ErrNoContent = errors.New("no content")

// Payload is a response body as returned by Fetch. A nil *Payload stands
// for "no data" (HTTP 204, or no mock for the endpoint).
type Payload struct {
	Source Source
	Body   []byte
	JSON   bool
}

// Decode unmarshals a JSON payload into v.
func (p *Payload) Decode(v any) error {
	if p == nil {
		return ErrNoContent
	}
	return json.Unmarshal(p.Body, v)
}

// Text returns the raw body.
func (p *Payload) Text() string {
	if p == nil {
		return ""
	}
	return string(p.Body)
}

// IsMock reports whether the payload is substitute data.
func (p *Payload) IsMock() bool {
	return p != nil && p.Source == SourceMock
}

// From returns the payload source, SourceNone for nil.
func (p *Payload) From() Source {
	if p == nil {
		return SourceNone
	}
	return p.Source
}
