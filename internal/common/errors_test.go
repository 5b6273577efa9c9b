package common

import (
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPError_Taxonomy(t *testing.T) {
	unauthorized := &HTTPError{Method: http.MethodGet, URL: "/buses", Status: http.StatusUnauthorized}
	assert.ErrorIs(t, unauthorized, ErrAuthExpired)
	assert.NotErrorIs(t, unauthorized, ErrTransientHTTP)
	assert.Equal(t, "GET /buses: HTTP 401", unauthorized.Error())

	unavailable := &HTTPError{Method: http.MethodPost, URL: "/stops", Status: http.StatusServiceUnavailable}
	assert.ErrorIs(t, unavailable, ErrTransientHTTP)
	assert.NotErrorIs(t, unavailable, ErrAuthExpired)
}

func TestUserError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUserError("POST /buses failed", cause)

	assert.Equal(t, "POST /buses failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "POST /buses failed", userErr.UserMessage)

	assert.Equal(t, "just a message", NewUserError("just a message", nil).Error())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLogger_RejectsUnknownFormat(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	assert.ErrorIs(t, SetupLogger(nil, slog.LevelInfo, "xml"), ErrInvalidConfig)
	assert.NoError(t, SetupLogger(nil, slog.LevelDebug, "json"))
}
