package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"MACrossover/internal/model"
	"MACrossover/internal/store"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Strategy struct {
		Instrument  string `yaml:"instrument"`
		ShortWindow int    `yaml:"short_window"`
		LongWindow  int    `yaml:"long_window"`
	} `yaml:"strategy"`
	Ingest struct {
		CSVPath     string `yaml:"csv_path"`
		YahooSymbol string `yaml:"yahoo_symbol"`
		BatchSize   int    `yaml:"batch_size"`
	} `yaml:"ingest"`
	Schedule struct {
		IngestCron string `yaml:"ingest_cron"`
		ReportCron string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Proxy string `yaml:"proxy"`
}

// LoadEnv loads variables from a .env file into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Printf("[INFO] loaded environment from %s", path)
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	// DATABASE_URL always means a postgres connection string.
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.Driver = store.DriverPostgres
		c.Database.DSN = v
	} else if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.Driver = store.DriverSQLite
		c.Database.DSN = v
	}
	if v := os.Getenv("INSTRUMENT"); v != "" {
		c.Strategy.Instrument = v
	}
	if err := envInt("SHORT_WINDOW", &c.Strategy.ShortWindow); err != nil {
		return err
	}
	if err := envInt("LONG_WINDOW", &c.Strategy.LongWindow); err != nil {
		return err
	}
	if v := os.Getenv("CSV_PATH"); v != "" {
		c.Ingest.CSVPath = v
	}
	if v := os.Getenv("YAHOO_SYMBOL"); v != "" {
		c.Ingest.YahooSymbol = v
	}
	if err := envInt("BATCH_SIZE", &c.Ingest.BatchSize); err != nil {
		return err
	}
	if v := os.Getenv("CRON_INGEST"); v != "" {
		c.Schedule.IngestCron = v
	}
	if v := os.Getenv("CRON_REPORT"); v != "" {
		c.Schedule.ReportCron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("env %s: %w", key, err)
	}
	*dst = n
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = store.DriverSQLite
	}
	if c.Database.DSN == "" && c.Database.Driver == store.DriverSQLite {
		c.Database.DSN = "data/crossover.db"
	}
	if c.Strategy.ShortWindow == 0 {
		c.Strategy.ShortWindow = model.DefaultShortWindow
	}
	if c.Strategy.LongWindow == 0 {
		c.Strategy.LongWindow = model.DefaultLongWindow
	}
	if c.Ingest.BatchSize == 0 {
		c.Ingest.BatchSize = 100
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 30 16 * * 1-5"
	}
}

// Window returns the default evaluation window.
func (c *Config) Window() model.WindowConfig {
	return model.WindowConfig{Short: c.Strategy.ShortWindow, Long: c.Strategy.LongWindow}
}

// TelegramEnabled reports whether both Telegram credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all fields are usable.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	case store.DriverMemory:
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if err := c.Window().Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Schedule.IngestCron != "" && c.Ingest.CSVPath == "" && c.Ingest.YahooSymbol == "" {
		return fmt.Errorf("schedule.ingest_cron requires ingest.csv_path or ingest.yahoo_symbol")
	}
	return nil
}
