package report

import "spendwatch/internal/core"

const (
	// AlertPercentage is the share of the limit at which an alert fires.
	AlertPercentage = 90.0
	// WarningPercentage is where the display band turns to warning.
	WarningPercentage = 75.0
)

// Band classifies threshold usage for display.
type Band string

const (
	BandNormal   Band = "normal"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

// AlertState is the outcome of comparing total expense with the user's
// limit. Percentage is unclamped and drives ShouldAlert; Display is clamped
// to [0, 100] for progress bars.
type AlertState struct {
	TotalExpense core.Money `json:"totalExpense"`
	Threshold    core.Money `json:"threshold"`
	Enabled      bool       `json:"enabled"`
	Percentage   float64    `json:"percentage"`
	Display      float64    `json:"display"`
	Band         Band       `json:"band"`
	ShouldAlert  bool       `json:"shouldAlert"`
}

// EvaluateAlert compares totalExpense against threshold. A non-positive
// threshold yields 0%.
func EvaluateAlert(totalExpense, threshold core.Money, enabled bool) AlertState {
	pct := percentOf(totalExpense, threshold)
	display := pct
	if display > 100 {
		display = 100
	}
	if display < 0 {
		display = 0
	}

	band := BandNormal
	switch {
	case display >= AlertPercentage:
		band = BandCritical
	case display >= WarningPercentage:
		band = BandWarning
	}

	return AlertState{
		TotalExpense: totalExpense,
		Threshold:    threshold,
		Enabled:      enabled,
		Percentage:   pct,
		Display:      display,
		Band:         band,
		ShouldAlert:  enabled && pct >= AlertPercentage,
	}
}
