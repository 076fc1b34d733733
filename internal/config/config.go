package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BackupConfig controls periodic copies of the sqlite database.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Interval returns the backup period with the daily default applied.
func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}

type Config struct {
	Server struct {
		ListenAddr        string  `yaml:"listen_addr"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Enabled         bool   `yaml:"enabled"`
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		QuoteTTLMinutes int    `yaml:"quote_ttl_minutes"`
	} `yaml:"redis"`

	Booking struct {
		Timezone          string   `yaml:"timezone"`
		CurrencyDecimals  int      `yaml:"currency_decimals"`
		LockWaitSeconds   int      `yaml:"lock_wait_seconds"`
		CommittedStatuses []string `yaml:"committed_statuses"`
		ReleasedStatuses  []string `yaml:"released_statuses"`
	} `yaml:"booking"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.RequestsPerSecond <= 0 {
		c.Server.RequestsPerSecond = 20
	}
	if c.Server.Burst <= 0 {
		c.Server.Burst = 40
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/gembook.db"
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "UTC"
	}
	if c.Booking.CurrencyDecimals <= 0 {
		c.Booking.CurrencyDecimals = 2
	}
	if len(c.Booking.CommittedStatuses) == 0 {
		c.Booking.CommittedStatuses = []string{"processing", "on-hold", "completed"}
	}
	if len(c.Booking.ReleasedStatuses) == 0 {
		c.Booking.ReleasedStatuses = []string{"cancelled", "refunded", "failed"}
	}
	if c.Redis.QuoteTTLMinutes <= 0 {
		c.Redis.QuoteTTLMinutes = 60
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8081
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}

// Location resolves the configured store timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Booking.Timezone, err)
	}
	return loc, nil
}

// LockWait returns the bounded per-item lock wait for reservations.
func (c *Config) LockWait() time.Duration {
	if c.Booking.LockWaitSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.Booking.LockWaitSeconds) * time.Second
}

// QuoteTTL returns how long cached quotes stay valid.
func (c *Config) QuoteTTL() time.Duration {
	return time.Duration(c.Redis.QuoteTTLMinutes) * time.Minute
}
