// Package scheduler runs periodic ingest and report jobs and answers chat commands.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"MACrossover/internal/calculator"
	"MACrossover/internal/collector"
	"MACrossover/internal/model"
	"MACrossover/internal/notifier"
	"MACrossover/internal/performance"
	"MACrossover/internal/store"
)

const sendRetries = 3

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron        *cron.Cron
	Collector   *collector.Collector
	Performance *performance.Service
	Notifier    notifier.Notifier
	Instrument  string
	Window      model.WindowConfig
	Ctx         context.Context
}

// NewScheduler creates a new Scheduler. col and n may be nil when ingest or
// notifications are not configured.
func NewScheduler(ctx context.Context, col *collector.Collector, svc *performance.Service, n notifier.Notifier, instrument string, window model.WindowConfig) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Collector:   col,
		Performance: svc,
		Notifier:    n,
		Instrument:  instrument,
		Window:      window,
		Ctx:         ctx,
	}
}

// RegisterAll registers the ingest and report tasks. An empty spec skips the task.
func (s *Scheduler) RegisterAll(ingestCron, reportCron string) error {
	if ingestCron != "" {
		if s.Collector == nil {
			return fmt.Errorf("register ingest task: no collector configured")
		}
		if _, err := s.Cron.AddFunc(ingestCron, s.ingestTask); err != nil {
			return fmt.Errorf("register ingest task: %w", err)
		}
	}
	if reportCron != "" {
		if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
			return fmt.Errorf("register report task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunIngestNow executes the ingest task immediately (RUN_ON_START).
func (s *Scheduler) RunIngestNow() {
	s.ingestTask()
}

// RunReportNow executes the report task immediately.
func (s *Scheduler) RunReportNow() {
	s.reportTask()
}

func (s *Scheduler) ingestTask() {
	log.Println("[INFO] running ingest task")
	report, err := s.Collector.Ingest(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] ingest: %v", err)
		s.trySend(notifier.FormatError("Ingest", err))
		return
	}
	if report.FailedBatches > 0 || report.Skipped > 0 {
		s.trySend(notifier.FormatIngestReport(report))
	}
}

func (s *Scheduler) reportTask() {
	log.Println("[INFO] running report task")
	msg, err := s.performanceReport(s.Ctx, s.Window)
	if err != nil {
		log.Printf("[ERROR] report: %v", err)
		s.trySend(notifier.FormatError("Report", err))
		return
	}
	s.trySend(msg)
}

func (s *Scheduler) performanceReport(ctx context.Context, window model.WindowConfig) (string, error) {
	res, err := s.Performance.Evaluate(ctx, s.Instrument, window)
	if err != nil {
		return "", err
	}
	return notifier.FormatPerformance(res.Instrument, res.Observations, res.Summary, s.Performance.Now()), nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	// Strip a "@botname" suffix used in group chats.
	name, _, _ := strings.Cut(fields[0], "@")

	switch name {
	case "/performance":
		window, err := parseWindow(fields[1:], s.Window)
		if err != nil {
			return err.Error()
		}
		msg, err := s.performanceReport(ctx, window)
		if err != nil {
			return notifier.FormatError("Evaluation", err)
		}
		return msg
	case "/history":
		recs, err := s.Performance.History(ctx, 10)
		if err != nil {
			return notifier.FormatError("History", err)
		}
		return notifier.FormatHistory(recs)
	case "/status":
		n, err := s.Performance.Store.Count(ctx)
		if err != nil {
			return notifier.FormatError("Status", err)
		}
		latest, err := s.latestMA(ctx)
		if err != nil {
			return notifier.FormatError("Status", err)
		}
		return notifier.FormatStatus(s.Instrument, s.Window, n, latest)
	default:
		return notifier.HelpText
	}
}

// latestMA computes the default-window averages at the last stored bar.
func (s *Scheduler) latestMA(ctx context.Context) (*notifier.LatestMA, error) {
	obs, err := s.Performance.Store.Series(ctx, s.Instrument)
	if err != nil {
		return nil, err
	}
	if len(obs) < s.Window.Long {
		return nil, nil
	}
	closes := calculator.ExtractCloses(obs)
	long, err := calculator.CalculateSMA(closes, s.Window.Long)
	if err != nil {
		return nil, err
	}
	short, err := calculator.CalculateSMA(closes, s.Window.Short)
	if err != nil {
		return nil, err
	}
	last := obs[len(obs)-1]
	return &notifier.LatestMA{Time: last.Time, Close: last.Close, Short: short, Long: long}, nil
}

func parseWindow(args []string, def model.WindowConfig) (model.WindowConfig, error) {
	switch len(args) {
	case 0:
		return def, nil
	case 2:
		short, err1 := strconv.Atoi(args[0])
		long, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			return def, fmt.Errorf("usage: /performance [short long]")
		}
		return model.WindowConfig{Short: short, Long: long}, nil
	default:
		return def, fmt.Errorf("usage: /performance [short long]")
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.Ctx, 2*time.Minute)
	defer cancel()
	if err := s.Notifier.SendWithRetry(ctx, text, sendRetries); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}

// NewSinceSink wraps a store so that only observations newer than the latest
// stored bar of the same instrument are appended. Scheduled sources return
// overlapping history on every run.
func NewSinceSink(st store.Store) collector.Sink {
	return &sinceSink{store: st}
}

type sinceSink struct {
	store store.Store
}

func (s *sinceSink) AppendBatch(ctx context.Context, obs []model.Observation) (int, error) {
	latest := map[string]time.Time{}
	fresh := make([]model.Observation, 0, len(obs))
	for _, o := range obs {
		last, ok := latest[o.Instrument]
		if !ok {
			stored, err := s.store.Series(ctx, o.Instrument)
			if err != nil {
				return 0, err
			}
			if len(stored) > 0 {
				last = stored[len(stored)-1].Time
			}
			latest[o.Instrument] = last
		}
		if o.Time.After(last) {
			fresh = append(fresh, o)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	return s.store.AppendBatch(ctx, fresh)
}
