// Package report turns a snapshot of transactions into the aggregates shown
// to the user: totals, per-category sums, top categories, time series and the
// spending-threshold alert.
//
// Every function here is pure. Callers pass the current time and location
// explicitly and nothing is cached between calls.
package report

import (
	"sort"
	"strings"

	"spendwatch/internal/core"
)

// Totals holds the income/expense sums of a snapshot. Net is Income minus
// Expense and may be negative.
type Totals struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
}

// CategoryTotal is the expense sum of a single category.
type CategoryTotal struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
}

// CategoryShare is a category sum with its share of total expense.
type CategoryShare struct {
	Category   string     `json:"category"`
	Amount     core.Money `json:"amount"`
	Percentage float64    `json:"percentage"`
}

// ComputeTotals sums income and expense. Records that fail validation are
// ignored.
func ComputeTotals(txs []core.Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		if tx.Validate() != nil {
			continue
		}
		switch tx.Type {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Net = t.Income.Sub(t.Expense)
	return t
}

// CategoryTotals sums expense amounts per category. Income never contributes.
// Categories appear in the order they are first encountered.
func CategoryTotals(txs []core.Transaction) []CategoryTotal {
	out := make([]CategoryTotal, 0)
	index := make(map[string]int)
	for _, tx := range txs {
		if !tx.IsExpense() || tx.Validate() != nil {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, CategoryTotal{Category: tx.Category})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	return out
}

// AsMap indexes category totals by name.
func AsMap(cats []CategoryTotal) map[string]core.Money {
	m := make(map[string]core.Money, len(cats))
	for _, c := range cats {
		m[c.Category] = c.Amount
	}
	return m
}

// CategoryShares computes each category's percentage of total expense,
// keeping the input order. Percentages are 0 when total is 0.
func CategoryShares(cats []CategoryTotal, total core.Money) []CategoryShare {
	out := make([]CategoryShare, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryShare{
			Category:   c.Category,
			Amount:     c.Amount,
			Percentage: percentOf(c.Amount, total),
		})
	}
	return out
}

// SearchByCategory keeps the transactions whose category contains query,
// ignoring case. An empty query keeps everything.
func SearchByCategory(txs []core.Transaction, query string) []core.Transaction {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if q == "" || strings.Contains(strings.ToLower(tx.Category), q) {
			out = append(out, tx)
		}
	}
	return out
}

// Recent returns the n most recent transactions, newest first. Undated
// records sort last. n <= 0 returns all of them.
func Recent(txs []core.Transaction, n int) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func percentOf(part, total core.Money) float64 {
	if total.Cents <= 0 {
		return 0
	}
	return float64(part.Cents) * 100 / float64(total.Cents)
}
