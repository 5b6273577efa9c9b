package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/smarttransit/internal/common"
	"github.com/Veraticus/smarttransit/internal/model"
	"github.com/Veraticus/smarttransit/internal/service"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type recordingNotifier struct {
	levels   []service.Level
	messages []string
	mu       sync.Mutex
}

func (n *recordingNotifier) Notify(level service.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.levels = append(n.levels, level)
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) last() (service.Level, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.levels) == 0 {
		return "", ""
	}
	return n.levels[len(n.levels)-1], n.messages[len(n.messages)-1]
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(baseURL, opts...)
	require.NoError(t, err)
	return c
}

func failingTransport() Option {
	return WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("NetworkError when attempting to fetch resource")
		}),
	})
}

func statusServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"detail":"nope"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestFetch_ReadsNeverFail(t *testing.T) {
	endpoints := []string{"/buses", "/stops", "/passengers", "/telegram/test", "/buses/7", "/stops/nearby?lat=1&lon=2"}

	failures := map[string]func(t *testing.T) *Client{
		"transport error": func(t *testing.T) *Client {
			return newTestClient(t, "http://backend.invalid/api", failingTransport())
		},
		"401": func(t *testing.T) *Client {
			return newTestClient(t, statusServer(t, http.StatusUnauthorized).URL)
		},
		"404": func(t *testing.T) *Client {
			return newTestClient(t, statusServer(t, http.StatusNotFound).URL)
		},
		"500": func(t *testing.T) *Client {
			return newTestClient(t, statusServer(t, http.StatusInternalServerError).URL)
		},
		"unauthenticated": func(t *testing.T) *Client {
			return newTestClient(t, "http://backend.invalid/api",
				failingTransport(),
				WithAuth(func(context.Context) bool { return false }))
		},
	}

	for name, build := range failures {
		t.Run(name, func(t *testing.T) {
			c := build(t)
			for _, ep := range endpoints {
				got := c.Fetch(context.Background(), ep)
				want := MockPayload(ep)
				require.NotNil(t, got, ep)
				assert.Equal(t, SourceMock, got.Source, ep)
				assert.JSONEq(t, string(want.Body), string(got.Body), ep)
			}
		})
	}
}

func TestFetch_UnmatchedEndpointResolvesToNil(t *testing.T) {
	c := newTestClient(t, "http://backend.invalid/api", failingTransport())

	got := c.Fetch(context.Background(), "/products")

	assert.Nil(t, got)
	assert.Equal(t, SourceNone, got.From())
}

func TestBuses_NetworkErrorServesMockFleet(t *testing.T) {
	c := newTestClient(t, "http://backend.invalid/api", failingTransport())

	buses, src := c.Buses(context.Background())

	assert.Equal(t, SourceMock, src)
	require.Len(t, buses, 3)
	ids := []int64{buses[0].ID, buses[1].ID, buses[2].ID}
	models := []string{buses[0].Model, buses[1].Model, buses[2].Model}
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, []string{"ПАЗ-3205", "ЛиАЗ-5292", "МАЗ-103"}, models)
	assert.Equal(t, "7A", buses[0].RouteLabel())
	assert.Equal(t, "maintenance", buses[2].Status)
}

func TestFetch_ContentHandling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		case "/text":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("pong"))
		case "/json":
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = w.Write([]byte(`[{"id":9,"model":"Volvo","route":{"id":4,"name":"4K"}}]`))
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	assert.Nil(t, c.Fetch(context.Background(), "/empty"))

	text := c.Fetch(context.Background(), "/text")
	require.NotNil(t, text)
	assert.False(t, text.JSON)
	assert.Equal(t, "pong", text.Text())
	assert.Equal(t, SourceBackend, text.Source)

	js := c.Fetch(context.Background(), "/json")
	require.NotNil(t, js)
	assert.True(t, js.JSON)
	var buses []model.Bus
	require.NoError(t, js.Decode(&buses))
	require.Len(t, buses, 1)
	assert.Equal(t, "4K", buses[0].RouteLabel())
	assert.Equal(t, int64(4), buses[0].Route.ID)
}

func TestFetch_HeaderMerge(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	c.Fetch(context.Background(), "/buses",
		WithHeader("Content-Type", "text/csv"),
		WithHeader("X-Trace", "abc"))

	assert.Equal(t, "text/csv", got.Get("Content-Type"))
	assert.Equal(t, "abc", got.Get("X-Trace"))
	assert.Contains(t, got.Get("Accept"), "application/json")
}

func TestFetch_SendsSessionCookies(t *testing.T) {
	var sawCookie atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "s1", Path: "/"})
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if c, err := r.Cookie("sessionid"); err == nil && c.Value == "s1" {
			sawCookie.Store(true)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	c.Fetch(context.Background(), "/login")
	c.Fetch(context.Background(), "/buses")

	assert.True(t, sawCookie.Load())
}

func TestUnauthenticated_SkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, WithAuth(func(context.Context) bool { return false }))

	stops, src := c.Stops(context.Background())

	assert.Equal(t, SourceMock, src)
	assert.Len(t, stops, 3)
	assert.Zero(t, calls.Load())
}

func TestSingleEntity_PicksFromMockList(t *testing.T) {
	c := newTestClient(t, "http://backend.invalid/api", failingTransport())

	bus, src := c.Bus(context.Background(), 2)
	require.NotNil(t, bus)
	assert.Equal(t, SourceMock, src)
	assert.Equal(t, "ЛиАЗ-5292", bus.Model)

	stop, _ := c.Stop(context.Background(), 3)
	require.NotNil(t, stop)
	assert.Equal(t, "Университет", stop.Name)

	missing, src := c.Passenger(context.Background(), 42)
	assert.Nil(t, missing)
	assert.Equal(t, SourceNone, src)
}

func TestSingleEntity_Backend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stops/5", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":5,"name":"Парк","lat":55.1,"lon":37.2}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	stop, src := c.Stop(context.Background(), 5)

	require.NotNil(t, stop)
	assert.Equal(t, SourceBackend, src)
	assert.Equal(t, "Парк", stop.Name)
}

func TestNearbyStops_EncodesCoordinates(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	stops, src := c.NearbyStops(context.Background(), 55.75, 37.61)

	assert.Empty(t, stops)
	assert.Equal(t, SourceBackend, src)
	assert.Equal(t, "55.75", query.Get("lat"))
	assert.Equal(t, "37.61", query.Get("lon"))
}

func TestCurrentLoad(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        int
		wantOK      bool
	}{
		{name: "bare number", contentType: "application/json", body: "42", want: 42, wantOK: true},
		{name: "wrapped", contentType: "application/json", body: `{"currentLoad":17}`, want: 17, wantOK: true},
		{name: "plain text", contentType: "text/plain", body: "8", want: 8, wantOK: true},
		{name: "garbage", contentType: "application/json", body: `{"other":1}`, want: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/predictions/current-load/3", r.URL.Path)
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			c := newTestClient(t, srv.URL)

			got, ok := c.CurrentLoad(context.Background(), 3)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentLoad_NoMock(t *testing.T) {
	c := newTestClient(t, "http://backend.invalid/api", failingTransport())

	_, ok := c.CurrentLoad(context.Background(), 1)

	assert.False(t, ok)
}

func TestCreateBus(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/buses", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":11,"model":"НефАЗ-5299","route":"3","status":"active"}`))
	}))
	defer srv.Close()
	n := &recordingNotifier{}
	c := newTestClient(t, srv.URL, WithNotifier(n))

	bus, err := c.CreateBus(context.Background(), model.NewBus{Model: "НефАЗ-5299", Status: "active", Route: &model.Ref{ID: 3}})

	require.NoError(t, err)
	require.NotNil(t, bus)
	assert.Equal(t, int64(11), bus.ID)
	assert.Equal(t, "НефАЗ-5299", body["model"])
	level, _ := n.last()
	assert.Equal(t, service.LevelSuccess, level)
}

func TestWrites_FailLoudly(t *testing.T) {
	tests := []struct {
		build func(t *testing.T) (string, []Option)
		name  string
	}{
		{
			name: "server error",
			build: func(t *testing.T) (string, []Option) {
				return statusServer(t, http.StatusInternalServerError).URL, nil
			},
		},
		{
			name: "unauthorized",
			build: func(t *testing.T) (string, []Option) {
				return statusServer(t, http.StatusUnauthorized).URL, nil
			},
		},
		{
			name: "transport error",
			build: func(*testing.T) (string, []Option) {
				return "http://backend.invalid/api", []Option{failingTransport()}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{}
			baseURL, opts := tt.build(t)
			c := newTestClient(t, baseURL, append(opts, WithNotifier(n))...)

			_, err := c.CreateStop(context.Background(), model.Stop{Name: "Рынок", Lat: 55, Lon: 37})
			require.Error(t, err)
			var userErr *common.UserError
			assert.ErrorAs(t, err, &userErr)

			err = c.DeleteBus(context.Background(), 1)
			require.Error(t, err)

			level, msg := n.last()
			assert.Equal(t, service.LevelError, level)
			assert.Contains(t, msg, "DELETE /buses/1")
		})
	}
}

func TestWrites_ValidateBeforeSending(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()
	n := &recordingNotifier{}
	c := newTestClient(t, srv.URL, WithNotifier(n))

	_, err := c.CreateBus(context.Background(), model.NewBus{Status: "flying"})
	require.Error(t, err)
	_, err = c.CreateStop(context.Background(), model.Stop{Name: "Север", Lat: 91})
	require.Error(t, err)
	_, err = c.CreatePassenger(context.Background(), model.PassengerRecord{Entered: -1})
	require.Error(t, err)

	assert.Zero(t, calls.Load())
	level, _ := n.last()
	assert.Equal(t, service.LevelWarning, level)
}

func TestDeleteBus_AcceptsNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/buses/4", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	assert.NoError(t, c.DeleteBus(context.Background(), 4))
}

func TestProbe(t *testing.T) {
	ok := newTestClient(t, statusServer(t, http.StatusOK).URL)
	assert.NoError(t, ok.Probe(context.Background(), "/telegram/test"))

	down := newTestClient(t, statusServer(t, http.StatusBadGateway).URL)
	err := down.Probe(context.Background(), "/telegram/test")
	var httpErr *common.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)

	offline := newTestClient(t, "http://backend.invalid/api", failingTransport())
	assert.ErrorIs(t, offline.Probe(context.Background(), "/telegram/test"), common.ErrNetwork)
}

func fastRetry() Option {
	return WithRetry(service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1})
}

func TestDownload_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reports/daily", r.URL.Path)
		assert.Equal(t, "2024-01-15", r.URL.Query().Get("date"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-report"))
	}))
	defer srv.Close()
	var progress bytes.Buffer
	c := newTestClient(t, srv.URL, fastRetry(), WithProgress(&progress))

	var out bytes.Buffer
	n, err := c.Download(context.Background(), "daily", url.Values{"date": {"2024-01-15"}}, &out)

	require.NoError(t, err)
	assert.Equal(t, int64(len("%PDF-report")), n)
	assert.Equal(t, "%PDF-report", out.String())
	assert.Equal(t, int32(2), calls.Load())
}

func TestDownload_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	n := &recordingNotifier{}
	c := newTestClient(t, srv.URL, fastRetry(), WithNotifier(n))

	_, err := c.Download(context.Background(), "weekly", nil, io.Discard)

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	level, _ := n.last()
	assert.Equal(t, service.LevelError, level)
}

func TestDownload_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, fastRetry())

	_, err := c.Download(context.Background(), "buses", nil, io.Discard)

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, int32(3), calls.Load())
}
