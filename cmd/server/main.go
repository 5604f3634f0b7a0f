package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"MACrossover/internal/collector"
	"MACrossover/internal/config"
	"MACrossover/internal/httpapi"
	"MACrossover/internal/notifier"
	"MACrossover/internal/performance"
	"MACrossover/internal/scheduler"
	"MACrossover/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] MACrossover starting...")

	if err := config.LoadEnv(".env"); err != nil {
		log.Printf("[WARN] %v", err)
	}
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init store
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("[FATAL] open %s store: %v", cfg.Database.Driver, err)
	}
	defer st.Close()
	log.Printf("[INFO] store: %s", cfg.Database.Driver)

	svc := performance.NewService(st)

	// Init collector
	var col *collector.Collector
	switch {
	case cfg.Ingest.YahooSymbol != "":
		src := collector.NewYahooSource(cfg.Ingest.YahooSymbol, cfg.Strategy.Instrument, cfg.Proxy)
		col = collector.NewCollector(src, scheduler.NewSinceSink(st), cfg.Ingest.BatchSize)
	case cfg.Ingest.CSVPath != "":
		src := collector.NewCSVSource(cfg.Ingest.CSVPath, cfg.Strategy.Instrument)
		col = collector.NewCollector(src, scheduler.NewSinceSink(st), cfg.Ingest.BatchSize)
	}
	if col != nil {
		log.Printf("[INFO] data source: %s", col.Source.Name())
	}

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var n notifier.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	} else {
		log.Println("[WARN] telegram not configured, reports are disabled")
	}

	sched := scheduler.NewScheduler(ctx, col, svc, n, cfg.Strategy.Instrument, cfg.Window())
	if err := sched.RegisterAll(cfg.Schedule.IngestCron, cfg.Schedule.ReportCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if col != nil && os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing ingest task now")
		go sched.RunIngestNow()
	}

	srv := httpapi.NewServer(st, svc, cfg.Strategy.Instrument, cfg.Window())
	log.Println("[INFO] MACrossover is running. Press Ctrl+C to stop.")
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout); err != nil {
		log.Printf("[ERROR] http server: %v", err)
	}

	log.Println("[INFO] MACrossover stopped")
}
