package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/viper"

	"github.com/Veraticus/smarttransit/internal/api"
	"github.com/Veraticus/smarttransit/internal/cli"
	"github.com/Veraticus/smarttransit/internal/config"
	"github.com/Veraticus/smarttransit/internal/monitor"
	"github.com/Veraticus/smarttransit/internal/service"
	"github.com/Veraticus/smarttransit/internal/storage"
	"github.com/Veraticus/smarttransit/internal/telegram"
)

// env bundles the collaborators a command needs. Close releases the
// database.
type env struct {
	notifier   service.Notifier
	kv         *storage.SQLiteKV
	client     *api.Client
	reports    *storage.ReportStore
	messages   *storage.MessageHistory
	bot        *telegram.Bot
	dispatcher *telegram.Dispatcher
	cfg        config.Config
}

// loadConfig decodes the global viper state.
func loadConfig() (config.Config, error) {
	return config.Load(viper.GetViper())
}

// initStorage opens and migrates the local database.
func initStorage(ctx context.Context, cfg config.Config) (*storage.SQLiteKV, error) {
	kv, err := storage.NewSQLiteKV(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if err := kv.Migrate(ctx); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return kv, nil
}

// initClient builds the backend client. Progress bars for downloads go to
// progress when it is non-nil.
func initClient(cfg config.Config, notifier service.Notifier, progress io.Writer) (*api.Client, error) {
	opts := []api.Option{
		api.WithTimeout(cfg.API.Timeout),
		api.WithNotifier(notifier),
		api.WithRetry(service.RetryOptions{MaxAttempts: cfg.API.Retries}),
	}
	if cfg.API.Offline {
		opts = append(opts, api.WithAuth(func(context.Context) bool { return false }))
	}
	if progress != nil {
		opts = append(opts, api.WithProgress(progress))
	}
	return api.New(cfg.API.BaseURL, opts...)
}

// initBot returns nil when no direct bot credentials are configured.
func initBot(cfg config.Config) (*telegram.Bot, error) {
	if !cfg.Telegram.DirectEnabled() {
		return nil, nil
	}
	return telegram.NewBot(cfg.Telegram.APIURL, cfg.Telegram.Token, cfg.Telegram.ChatID)
}

// openEnv wires every collaborator from the loaded configuration.
func openEnv(ctx context.Context, notifier service.Notifier) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = cli.NewNotifier(os.Stderr)
	}

	client, err := initClient(cfg, notifier, os.Stderr)
	if err != nil {
		return nil, err
	}

	bot, err := initBot(cfg)
	if err != nil {
		return nil, err
	}

	kv, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reports, err := storage.NewReportStore(ctx, kv)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to open report history: %w", err)
	}
	messages, err := storage.NewMessageHistory(ctx, kv)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to open message history: %w", err)
	}

	return &env{
		cfg:        cfg,
		notifier:   notifier,
		kv:         kv,
		client:     client,
		reports:    reports,
		messages:   messages,
		bot:        bot,
		dispatcher: telegram.NewDispatcher(client, bot),
	}, nil
}

func (e *env) Close() {
	if err := e.kv.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

// newMonitor builds the status monitor for the configured probe.
func (e *env) newMonitor() *monitor.Monitor {
	if e.cfg.Monitor.Probe == "bot" && e.bot != nil {
		return monitor.New(e.bot)
	}
	return monitor.New(monitor.ProbeFunc(func(ctx context.Context) error {
		return e.client.Probe(ctx, api.EndpointTelegram+"/test")
	}))
}

// parseID parses a positive numeric entity id.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// sourceNote tells the operator when a listing came from test data.
func sourceNote(w io.Writer, source api.Source) {
	if source == api.SourceMock {
		fmt.Fprintln(w, cli.FormatWarning("Бэкенд недоступен, показаны тестовые данные"))
	}
}

var errNoResult = errors.New("no result")
