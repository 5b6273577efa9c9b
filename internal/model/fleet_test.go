package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_RouteEncodings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "label", input: `{"id":1,"model":"ПАЗ-3205","route":"7A"}`, want: "7A"},
		{name: "object", input: `{"id":2,"model":"ЛиАЗ-5292","route":{"id":12}}`, want: "#12"},
		{name: "named object", input: `{"id":3,"model":"МАЗ-103","route":{"id":5,"name":"15"}}`, want: "15"},
		{name: "missing", input: `{"id":4,"model":"ГАЗель"}`, want: "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var bus Bus
			require.NoError(t, json.Unmarshal([]byte(tt.input), &bus))
			assert.Equal(t, tt.want, bus.RouteLabel())
		})
	}
}

func TestRouteRef_InvalidJSON(t *testing.T) {
	var bus Bus
	assert.Error(t, json.Unmarshal([]byte(`{"route":42}`), &bus))
}

func TestRouteRef_MarshalKeepsShape(t *testing.T) {
	label, err := json.Marshal(RouteRef{Label: "7A"})
	require.NoError(t, err)
	assert.JSONEq(t, `"7A"`, string(label))

	obj, err := json.Marshal(RouteRef{ID: 12})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":12}`, string(obj))
}

func TestPassengerRecord_Time(t *testing.T) {
	tests := []struct {
		name      string
		timestamp string
		want      time.Time
		ok        bool
	}{
		{
			name:      "local without zone",
			timestamp: "2024-03-01T08:30:00",
			want:      time.Date(2024, 3, 1, 8, 30, 0, 0, time.Local),
			ok:        true,
		},
		{
			name:      "fractional seconds",
			timestamp: "2024-03-01T08:30:00.123",
			want:      time.Date(2024, 3, 1, 8, 30, 0, 123000000, time.Local),
			ok:        true,
		},
		{
			name:      "rfc3339",
			timestamp: "2024-03-01T08:30:00Z",
			want:      time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC),
			ok:        true,
		},
		{name: "empty", timestamp: ""},
		{name: "garbage", timestamp: "yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PassengerRecord{Timestamp: tt.timestamp}.Time()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
			}
		})
	}
}
