package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPath is where the commands look for the YAML file when no -config flag is given.
const DefaultPath = "config/config.yaml"

type Config struct {
	Env      string         `mapstructure:"env"` // "dev" or "prod"
	Alpaca   AlpacaConfig   `mapstructure:"alpaca"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Service  ServiceConfig  `mapstructure:"service"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Chart    ChartConfig    `mapstructure:"chart"`
}

type AlpacaConfig struct {
	REST RESTConfig `mapstructure:"rest"`
	WS   WSConfig   `mapstructure:"ws"`
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Feed    string        `mapstructure:"feed"` // "iex" or "sip"
}

type WSConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SecretsConfig selects where the API key pair comes from.
type SecretsConfig struct {
	Source string    `mapstructure:"source"` // "file" or "ssm"
	File   string    `mapstructure:"file"`
	SSM    SSMConfig `mapstructure:"ssm"`
}

type SSMConfig struct {
	KeyParam    string        `mapstructure:"key_param"`
	SecretParam string        `mapstructure:"secret_param"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

type StorageConfig struct {
	Driver         string         `mapstructure:"driver"` // "sqlite" or "postgres"
	Path           string         `mapstructure:"path"`   // sqlite database file
	CreateDatabase bool           `mapstructure:"create_database"`
	BatchSize      int            `mapstructure:"batch_size"`
	Postgres       PostgresConfig `mapstructure:"postgres"`
}

type IngestConfig struct {
	Symbols       []string `mapstructure:"symbols"`
	LookbackDays  int      `mapstructure:"lookback_days"`
	Timeframe     string   `mapstructure:"timeframe"`
	Policy        string   `mapstructure:"policy"` // "warn", "reject" or "quarantine"
	QuarantineDir string   `mapstructure:"quarantine_dir"`
}

type ScheduleConfig struct {
	DailyAt    string        `mapstructure:"daily_at"` // "HH:MM" in Timezone
	Timezone   string        `mapstructure:"timezone"`
	Interval   time.Duration `mapstructure:"interval"`
	WindowDays int           `mapstructure:"window_days"`
}

type ServiceConfig struct {
	Addr string `mapstructure:"addr"`
}

type StreamConfig struct {
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type ChartConfig struct {
	Output string `mapstructure:"output"`
}

// Load loads application configuration using Viper.
// A .env file in the working directory is applied first, then the YAML file at path,
// then QUANTVIZ_* environment variables (e.g. QUANTVIZ_STORAGE_DRIVER).
// A missing YAML file is not an error: defaults and environment still apply.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = DefaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Support environment variables with dot notation (e.g., QUANTVIZ_ALPACA_REST_BASE_URL)
	v.SetEnvPrefix("QUANTVIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("alpaca.rest.base_url", "https://data.alpaca.markets")
	v.SetDefault("alpaca.rest.timeout", 30*time.Second)
	v.SetDefault("alpaca.rest.feed", "iex")
	v.SetDefault("alpaca.ws.url", "wss://stream.data.alpaca.markets/v2/iex")
	v.SetDefault("alpaca.ws.timeout", 10*time.Second)

	v.SetDefault("secrets.source", "file")
	v.SetDefault("secrets.file", "config/secrets.json")
	v.SetDefault("secrets.ssm.key_param", "QUANTVIZ_ALPACA_API_KEY")
	v.SetDefault("secrets.ssm.secret_param", "QUANTVIZ_ALPACA_API_SECRET")
	v.SetDefault("secrets.ssm.timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "logs/quantviz.log")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "data/stocks.db")
	v.SetDefault("storage.batch_size", 500)
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.dbname", "quantviz")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.max_open_conns", 10)
	v.SetDefault("storage.postgres.max_idle_conns", 5)
	v.SetDefault("storage.postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("ingest.symbols", []string{"AAPL", "MSFT"})
	v.SetDefault("ingest.lookback_days", 30)
	v.SetDefault("ingest.timeframe", "1Day")
	v.SetDefault("ingest.policy", "warn")
	v.SetDefault("ingest.quarantine_dir", "data/quarantine")

	v.SetDefault("schedule.daily_at", "18:00")
	v.SetDefault("schedule.timezone", "Local")
	v.SetDefault("schedule.interval", 60*time.Second)
	v.SetDefault("schedule.window_days", 1)

	v.SetDefault("service.addr", ":8080")
	v.SetDefault("stream.flush_interval", time.Minute)
	v.SetDefault("chart.output", "data/stock_bars.xlsx")
}

// Validate checks the values Load cannot default sensibly.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid storage.driver %q (use sqlite or postgres)", c.Storage.Driver)
	}
	switch c.Ingest.Policy {
	case "warn", "reject", "quarantine":
	default:
		return fmt.Errorf("invalid ingest.policy %q (use warn, reject or quarantine)", c.Ingest.Policy)
	}
	switch c.Secrets.Source {
	case "file", "ssm":
	default:
		return fmt.Errorf("invalid secrets.source %q (use file or ssm)", c.Secrets.Source)
	}
	if len(c.Ingest.Symbols) == 0 {
		return errors.New("ingest.symbols must not be empty")
	}
	for _, s := range c.Ingest.Symbols {
		if s == "" || len(s) > 10 {
			return fmt.Errorf("invalid symbol %q in ingest.symbols", s)
		}
	}
	if c.Ingest.LookbackDays <= 0 {
		return fmt.Errorf("ingest.lookback_days must be positive, got %d", c.Ingest.LookbackDays)
	}
	if c.Schedule.WindowDays <= 0 {
		return fmt.Errorf("schedule.window_days must be positive, got %d", c.Schedule.WindowDays)
	}
	if _, _, err := c.Schedule.DailyClock(); err != nil {
		return err
	}
	if _, err := c.Schedule.Location(); err != nil {
		return err
	}
	return nil
}

// DailyClock parses DailyAt ("18:00") into hour and minute.
func (s ScheduleConfig) DailyClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", s.DailyAt)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid schedule.daily_at %q: %w", s.DailyAt, err)
	}
	return t.Hour(), t.Minute(), nil
}

// Location resolves Timezone; "" and "Local" mean the process time zone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule.timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}
