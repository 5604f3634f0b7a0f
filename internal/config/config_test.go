package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SERVER_ADDR", "DATABASE_URL", "SQLITE_PATH", "INSTRUMENT", "SHORT_WINDOW", "LONG_WINDOW",
		"CSV_PATH", "YAHOO_SYMBOL", "BATCH_SIZE", "CRON_INGEST", "CRON_REPORT",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "HTTPS_PROXY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("expected :8000, got %q", cfg.Server.Addr)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "data/crossover.db" {
		t.Errorf("unexpected database %+v", cfg.Database)
	}
	if w := cfg.Window(); w.Short != 20 || w.Long != 50 {
		t.Errorf("expected 20/50, got %v", w)
	}
	if cfg.Ingest.BatchSize != 100 {
		t.Errorf("expected batch size 100, got %d", cfg.Ingest.BatchSize)
	}
	if cfg.TelegramEnabled() {
		t.Error("telegram should be disabled without credentials")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
server:
  addr: ":9000"
  read_timeout: 5s
database:
  driver: memory
strategy:
  instrument: HINDALCO
  short_window: 5
  long_window: 15
schedule:
  report_cron: "0 0 18 * * *"
`)
	t.Setenv("LONG_WINDOW", "30")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/stocks?sslmode=disable")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("unexpected server %+v", cfg.Server)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("DATABASE_URL should select postgres, got %q", cfg.Database.Driver)
	}
	if cfg.Strategy.Instrument != "HINDALCO" || cfg.Strategy.ShortWindow != 5 || cfg.Strategy.LongWindow != 30 {
		t.Errorf("unexpected strategy %+v", cfg.Strategy)
	}
	if cfg.Schedule.ReportCron != "0 0 18 * * *" {
		t.Errorf("unexpected report cron %q", cfg.Schedule.ReportCron)
	}
}

func TestLoad_BadEnvInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHORT_WINDOW", "twenty")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for non-numeric SHORT_WINDOW")
	}
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	if err := LoadEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored: %v", err)
	}
	path := writeFile(t, ".env", "CSV_PATH=data/HINDALCO.csv\n")
	os.Unsetenv("CSV_PATH")
	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("CSV_PATH"); got != "data/HINDALCO.csv" {
		t.Errorf("expected CSV_PATH from .env, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, false},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }, false},
		{"short not below long", func(c *Config) { c.Strategy.ShortWindow = 50 }, false},
		{"zero batch", func(c *Config) { c.Ingest.BatchSize = 0 }, false},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "t" }, false},
		{"ingest cron without source", func(c *Config) { c.Schedule.IngestCron = "0 0 17 * * *" }, false},
		{"ingest cron with csv", func(c *Config) {
			c.Schedule.IngestCron = "0 0 17 * * *"
			c.Ingest.CSVPath = "data.csv"
		}, true},
	}
	for _, tt := range tests {
		cfg := &Config{}
		cfg.applyDefaults()
		tt.modify(cfg)
		err := cfg.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}
