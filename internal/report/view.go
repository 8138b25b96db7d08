package report

import (
	"time"

	"spendwatch/internal/core"
)

// Options control how a View is built.
type Options struct {
	Now          time.Time
	Location     *time.Location
	Timeframe    core.Timeframe
	Threshold    core.Money
	AlertEnabled bool
	TopN         int
}

// View is the full aggregate derived from one snapshot.
type View struct {
	Totals     Totals          `json:"totals"`
	Categories []CategoryTotal `json:"categories"`
	Top        []TopCategory   `json:"top"`
	Timeframe  core.Timeframe  `json:"timeframe"`
	Series     []Point         `json:"series"`
	Alert      AlertState      `json:"alert"`
	Count      int             `json:"count"`
	Skipped    int             `json:"skipped"`
}

// Build computes every aggregate for txs. Invalid records are counted in
// Skipped and otherwise ignored.
func Build(txs []core.Transaction, opts Options) View {
	tf := opts.Timeframe
	if !tf.Valid() {
		tf = core.Daily
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	skipped := 0
	for _, tx := range txs {
		if tx.Validate() != nil {
			skipped++
		}
	}

	totals := ComputeTotals(txs)
	cats := CategoryTotals(txs)
	return View{
		Totals:     totals,
		Categories: cats,
		Top:        TopCategories(cats, totals.Expense, opts.Threshold, opts.TopN),
		Timeframe:  tf,
		Series:     BuildSeries(txs, tf, now, opts.Location),
		Alert:      EvaluateAlert(totals.Expense, opts.Threshold, opts.AlertEnabled),
		Count:      len(txs) - skipped,
		Skipped:    skipped,
	}
}
