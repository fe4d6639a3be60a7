package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	Storage struct {
		Driver string
	} `mapstructure:"storage"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	SQLite struct {
		Path          string
		BusyTimeoutMS int `mapstructure:"busy_timeout_ms"`
	} `mapstructure:"sqlite"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Audit struct {
		Enabled  bool
		Schedule string
	} `mapstructure:"audit"`
}

func (c Config) BusyTimeout() time.Duration {
	return time.Duration(c.SQLite.BusyTimeoutMS) * time.Millisecond
}

// Load читает YAML (если path не пуст), затем .env и переменные APP_*,
// например APP_STORAGE_DRIVER или APP_POSTGRES_DSN.
func Load(path string) (Config, error) {
	// .env необязателен
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("app.env", "prod")
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("sqlite.path", "data/trace.db")
	v.SetDefault("sqlite.busy_timeout_ms", 5000)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.schedule", "@hourly")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("config: postgres.dsn is required for postgres driver")
		}
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return errors.New("config: sqlite.path is required for sqlite driver")
		}
		if c.SQLite.BusyTimeoutMS <= 0 {
			return errors.New("config: sqlite.busy_timeout_ms must be > 0")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Audit.Enabled && c.Audit.Schedule == "" {
		return errors.New("config: audit.schedule is required when audit is enabled")
	}
	return nil
}
