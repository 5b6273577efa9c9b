package config

import (
	"fmt"
	"time"

	"github.com/Veraticus/smarttransit/internal/common"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the typed view of the console configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Relay     RelayConfig     `mapstructure:"relay"`
	API       APIConfig       `mapstructure:"api"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// APIConfig points at the transit backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// Offline serves every read from mock data without contacting the backend.
	Offline bool `mapstructure:"offline"`
	// Retries bounds report download attempts.
	Retries int `mapstructure:"retries" validate:"gte=1,lte=10"`
}

// TelegramConfig holds the bot credentials. Both fields empty disables
// every direct call to the bot API.
type TelegramConfig struct {
	APIURL string `mapstructure:"api_url" validate:"required,url"`
	Token  string `mapstructure:"token"`
	ChatID string `mapstructure:"chat_id" validate:"required_with=Token"`
}

// DirectEnabled reports whether direct bot calls are configured.
func (c TelegramConfig) DirectEnabled() bool {
	return c.Token != "" && c.ChatID != ""
}

// DatabaseConfig locates the local SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// MonitorConfig drives the status monitor.
type MonitorConfig struct {
	Probe    string        `mapstructure:"probe" validate:"oneof=relay bot"`
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
}

// DashboardConfig drives the terminal dashboard.
type DashboardConfig struct {
	Refresh time.Duration `mapstructure:"refresh" validate:"gt=0"`
}

// RelayConfig configures the notification relay server.
type RelayConfig struct {
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.offline", false)
	v.SetDefault("api.retries", 3)
	v.SetDefault("telegram.api_url", "https://api.telegram.org")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("database.path", "$HOME/.local/share/transit/transit.db")
	v.SetDefault("monitor.interval", 30*time.Second)
	v.SetDefault("monitor.probe", "relay")
	v.SetDefault("dashboard.refresh", 30*time.Second)
	v.SetDefault("relay.addr", "127.0.0.1:8090")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.Database.Path = ExpandPath(cfg.Database.Path)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	return cfg, nil
}
