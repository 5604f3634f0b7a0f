package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"MACrossover/internal/collector"
	"MACrossover/internal/model"
	"MACrossover/internal/store"
)

const dateTimeLayout = "2006-01-02 15:04"

func instrumentLabel(instrument string) string {
	if instrument == "" {
		return "all instruments"
	}
	return html.EscapeString(instrument)
}

// FormatPerformance formats one evaluation into a Telegram message.
func FormatPerformance(instrument string, observations int, sum *model.PerformanceSummary, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>MA Crossover</b> | %s | %s\n\n", instrumentLabel(instrument), at.Format(dateTimeLayout))
	fmt.Fprintf(&b, "Window: MA%d / MA%d (%d bars)\n", sum.ShortWindow, sum.LongWindow, observations)
	fmt.Fprintf(&b, "Total return: %+.2f%%\n", sum.TotalReturnPct)
	fmt.Fprintf(&b, "Trades: %d (buy %d, sell %d)\n", sum.TradeCount, sum.BuySignalCount, sum.SellSignalCount)
	return b.String()
}

// FormatHistory formats recent evaluation runs, newest first.
func FormatHistory(records []store.EvaluationRecord) string {
	if len(records) == 0 {
		return "No evaluations recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent evaluations</b>\n\n")
	for _, r := range records {
		fmt.Fprintf(&b, "%s %s MA%d/MA%d: %+.2f%% (%d trades)\n",
			r.CreatedAt.Format(dateTimeLayout), instrumentLabel(r.Instrument),
			r.Summary.ShortWindow, r.Summary.LongWindow, r.Summary.TotalReturnPct, r.Summary.TradeCount)
	}
	return b.String()
}

// LatestMA is the pair of moving averages at the most recent bar.
type LatestMA struct {
	Time        time.Time
	Close       float64
	Short, Long float64
}

// FormatStatus formats the service status. latest is nil when there is not
// enough history for the default window.
func FormatStatus(instrument string, window model.WindowConfig, observations int, latest *LatestMA) string {
	var b strings.Builder
	b.WriteString("📦 <b>Status</b>\n\n")
	fmt.Fprintf(&b, "Instrument: %s\n", instrumentLabel(instrument))
	fmt.Fprintf(&b, "Default window: %s\n", window)
	fmt.Fprintf(&b, "Stored observations: %d\n", observations)
	if latest != nil {
		sig := model.SignalFlat
		switch {
		case latest.Short > latest.Long:
			sig = model.SignalLong
		case latest.Short < latest.Long:
			sig = model.SignalShort
		}
		fmt.Fprintf(&b, "\nLast bar %s close %.2f\n", latest.Time.Format(dateTimeLayout), latest.Close)
		fmt.Fprintf(&b, "MA%d %.2f | MA%d %.2f → %s\n", window.Short, latest.Short, window.Long, latest.Long, sig)
	}
	return b.String()
}

// FormatIngestReport formats the outcome of a scheduled ingest.
func FormatIngestReport(r *collector.IngestReport) string {
	msg := fmt.Sprintf("📥 <b>Ingest</b> %s: read %d, skipped %d, stored %d",
		html.EscapeString(r.Source), r.Read, r.Skipped, r.Stored)
	if r.FailedBatches > 0 {
		msg += fmt.Sprintf("\n⚠️ %d of %d batches failed", r.FailedBatches, r.Batches)
	}
	return msg
}

// FormatError formats a failed task.
func FormatError(task string, err error) string {
	return fmt.Sprintf("❌ %s failed: %s", task, html.EscapeString(err.Error()))
}

// HelpText lists the supported chat commands.
const HelpText = "Available commands:\n" +
	"• /performance [short long]\n" +
	"• /history\n" +
	"• /status"
