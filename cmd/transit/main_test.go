package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/smarttransit/internal/config"
)

// offlineConfig points the global viper at a temporary database with the
// backend disabled.
func offlineConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	config.SetDefaults(viper.GetViper())
	viper.Set("database.path", filepath.Join(t.TempDir(), "transit.db"))
	viper.Set("api.offline", true)
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := []string{"dashboard", "buses", "stops", "routes", "passengers", "reports", "notify", "relay", "db", "version"}

	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, names[name], "missing command %q", name)
	}
}

func TestReportsCmd_Subcommands(t *testing.T) {
	cmd := reportsCmd()
	for _, name := range []string{"list", "show", "generate", "delete", "export", "download", "seed"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1", want: 1},
		{in: "42", want: 42},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListBuses_Offline(t *testing.T) {
	offlineConfig(t)

	stdout, stderr, err := run(t, listBusesCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "ПАЗ-3205")
	assert.Contains(t, stderr, "тестовые данные")
}

func TestReports_GenerateThenList(t *testing.T) {
	offlineConfig(t)

	stdout, _, err := run(t, generateReportCmd(), "daily")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Суточный отчет по пассажиропотоку")

	stdout, _, err = run(t, listReportsCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "daily")
	assert.Contains(t, stdout, "Всего: 1")
}

func TestReports_UnknownType(t *testing.T) {
	offlineConfig(t)

	_, _, err := run(t, generateReportCmd(), "yearly")
	assert.Error(t, err)
}

func TestReports_ExportWritesFile(t *testing.T) {
	offlineConfig(t)

	_, _, err := run(t, seedReportsCmd())
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "history.xlsx")
	stdout, _, err := run(t, exportReportsCmd(), "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, out)
	assert.FileExists(t, out)
}

func TestNotifyAlert_ThroughRelay(t *testing.T) {
	offlineConfig(t)

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Оповещение отправлено"}`))
	}))
	t.Cleanup(srv.Close)
	viper.Set("api.offline", false)
	viper.Set("api.base_url", srv.URL+"/api")

	stdout, _, err := run(t, notifyAlertCmd(), "Задержка", "на", "маршруте")
	require.NoError(t, err)
	assert.Equal(t, "/api/telegram/alert", gotPath)
	assert.Contains(t, stdout, "Оповещение отправлено")

	stdout, _, err = run(t, notifyHistoryCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "Задержка на маршруте")
}

func TestNotifyAlert_FailureIsRecorded(t *testing.T) {
	offlineConfig(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	viper.Set("api.offline", false)
	viper.Set("api.base_url", srv.URL+"/api")

	_, _, err := run(t, notifyAlertCmd(), "Авария")
	require.Error(t, err)

	stdout, _, err := run(t, notifyHistoryCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "failed")
}

func TestDBBackup_RoundTrip(t *testing.T) {
	offlineConfig(t)

	_, _, err := run(t, seedReportsCmd())
	require.NoError(t, err)

	_, _, err = run(t, dbBackupCmd(), "seeded")
	require.NoError(t, err)

	stdout, _, err := run(t, dbListCmd())
	require.NoError(t, err)
	assert.Contains(t, stdout, "seeded")

	_, _, err = run(t, dbRestoreCmd(), "seeded")
	require.NoError(t, err)
}

func TestRelayServe_RequiresCredentials(t *testing.T) {
	offlineConfig(t)

	_, _, err := run(t, relayServeCmd())
	assert.Error(t, err)
}
