package collector

import (
	"context"
	"fmt"
	"log"

	"MACrossover/internal/model"
)

// DefaultBatchSize matches the bulk endpoint's expected batch size.
const DefaultBatchSize = 100

// IngestReport summarises one ingestion run.
type IngestReport struct {
	Source        string
	Read          int
	Skipped       int
	Stored        int
	Batches       int
	FailedBatches int
}

// Collector moves observations from a Source into a Sink in batches.
type Collector struct {
	Source    Source
	Sink      Sink
	BatchSize int
}

// NewCollector creates a new Collector.
func NewCollector(src Source, sink Sink, batchSize int) *Collector {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Collector{Source: src, Sink: sink, BatchSize: batchSize}
}

// Ingest fetches all rows, drops invalid ones and stores the rest batch by
// batch. A failed batch is logged and the remaining batches still run.
func (c *Collector) Ingest(ctx context.Context) (*IngestReport, error) {
	rows, err := c.Source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c.Source.Name(), err)
	}

	report := &IngestReport{Source: c.Source.Name(), Read: len(rows)}
	valid := make([]model.Observation, 0, len(rows))
	for _, r := range rows {
		if r.Err == nil {
			r.Err = r.Observation.Validate()
		}
		if r.Err != nil {
			log.Printf("[WARN] %s line %d skipped: %v", report.Source, r.Line, r.Err)
			report.Skipped++
			continue
		}
		valid = append(valid, r.Observation)
	}
	log.Printf("[INFO] %s: %d rows read, %d valid", report.Source, report.Read, len(valid))

	total := (len(valid) + c.BatchSize - 1) / c.BatchSize
	for start := 0; start < len(valid); start += c.BatchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		end := start + c.BatchSize
		if end > len(valid) {
			end = len(valid)
		}
		report.Batches++
		n, err := c.Sink.AppendBatch(ctx, valid[start:end])
		if err != nil {
			report.FailedBatches++
			log.Printf("[ERROR] batch %d/%d (%d records) failed: %v", report.Batches, total, end-start, err)
			continue
		}
		report.Stored += n
		log.Printf("[INFO] batch %d/%d stored (%d records)", report.Batches, total, n)
	}
	return report, nil
}
