package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"spendwatch/internal/core"
)

// DefaultTopN is the number of categories highlighted on the dashboard.
const DefaultTopN = 3

// TopCategory is one of the highest-spending categories.
//
// ThresholdShare is the part of the spending limit attributed to the
// category, proportional to its share of total expense.
type TopCategory struct {
	Category       string     `json:"category"`
	Amount         core.Money `json:"amount"`
	Percentage     float64    `json:"percentage"`
	ThresholdShare core.Money `json:"thresholdShare"`
}

// TopCategories returns at most n categories sorted by amount, largest
// first. Equal amounts keep their input order.
func TopCategories(cats []CategoryTotal, totalExpense, threshold core.Money, n int) []TopCategory {
	if n <= 0 {
		n = DefaultTopN
	}
	sorted := make([]CategoryTotal, len(cats))
	copy(sorted, cats)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.Cents > sorted[j].Amount.Cents
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]TopCategory, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, TopCategory{
			Category:       c.Category,
			Amount:         c.Amount,
			Percentage:     percentOf(c.Amount, totalExpense),
			ThresholdShare: thresholdShare(threshold, c.Amount, totalExpense),
		})
	}
	return out
}

func thresholdShare(threshold, amount, total core.Money) core.Money {
	if total.Cents <= 0 {
		return core.Money{}
	}
	share := decimal.NewFromInt(threshold.Cents).
		Mul(decimal.NewFromInt(amount.Cents)).
		Div(decimal.NewFromInt(total.Cents)).
		Round(0)
	return core.Money{Cents: share.IntPart()}
}
