// Command ingest bulk-loads a CSV file of OHLCV bars, either through a running
// API server or straight into the configured store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"MACrossover/internal/collector"
	"MACrossover/internal/config"
	"MACrossover/internal/httpapi"
	"MACrossover/internal/store"
)

var errUsage = errors.New("usage")

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	cancel()
	switch {
	case errors.Is(err, errUsage):
		os.Exit(2)
	case err != nil:
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

// run parses args, ingests the CSV file and closes the store before returning.
func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api", "", "base URL of a running API server (e.g. http://localhost:8000); empty writes to the store directly")
	instrument := fs.String("instrument", "", "instrument for rows without an instrument column")
	batch := fs.Int("batch", collector.DefaultBatchSize, "records per batch")
	cfgPath := fs.String("config", "configs/config.yaml", "config file used when writing to the store")
	envPath := fs.String("env", ".env", "optional .env file used when writing to the store")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: ingest [flags] <file.csv>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	var sink collector.Sink
	if *apiURL != "" {
		sink = httpapi.NewClient(*apiURL)
	} else {
		st, err := openStore(*envPath, *cfgPath)
		if err != nil {
			return err
		}
		defer st.Close()
		sink = st
	}

	col := collector.NewCollector(collector.NewCSVSource(fs.Arg(0), *instrument), sink, *batch)
	report, err := col.Ingest(ctx)
	if report != nil {
		log.Printf("[INFO] done: read %d, skipped %d, stored %d, failed batches %d/%d",
			report.Read, report.Skipped, report.Stored, report.FailedBatches, report.Batches)
	}
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if report.FailedBatches > 0 {
		return fmt.Errorf("%d of %d batches failed", report.FailedBatches, report.Batches)
	}
	return nil
}

func openStore(envPath, cfgPath string) (store.Store, error) {
	if err := config.LoadEnv(envPath); err != nil {
		log.Printf("[WARN] %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	return st, nil
}
