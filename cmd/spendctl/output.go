package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"spendwatch/internal/core"
	"spendwatch/internal/report"
	"spendwatch/internal/services"
)

const barWidth = 30

func printTransactions(w io.Writer, l services.Listing) {
	if len(l.Transactions) == 0 {
		fmt.Fprintln(w, "No transactions")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tCATEGORY\tMODE\tAMOUNT\tID\tDESCRIPTION")
	for _, tx := range l.Transactions {
		date := "-"
		if !tx.Date.IsZero() {
			date = tx.Date.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			date, tx.Type, tx.Category, tx.Mode, tx.Amount, tx.ID, tx.Description)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d of %d transactions", len(l.Transactions), l.Total)
	if l.Rejected > 0 {
		fmt.Fprintf(w, " (%d malformed records skipped)", l.Rejected)
	}
	fmt.Fprintln(w)
}

func printReport(w io.Writer, rep services.Report) {
	v := rep.View
	fmt.Fprintf(w, "Report for %s (%s)\n\n", displayName(rep.User.Name, rep.User.Email), v.Timeframe)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Income\t%s\t\n", v.Totals.Income)
	fmt.Fprintf(tw, "Expense\t%s\t\n", v.Totals.Expense)
	fmt.Fprintf(tw, "Net\t%s\t\n", v.Totals.Net)
	tw.Flush()

	if len(v.Top) > 0 {
		fmt.Fprintln(w, "\nTop categories")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, c := range v.Top {
			fmt.Fprintf(tw, "  %s\t%s\t%.1f%%\tof limit %s\n", c.Category, c.Amount, c.Percentage, c.ThresholdShare)
		}
		tw.Flush()
	}

	fmt.Fprintln(w)
	printAlert(w, v.Alert)
	if v.Skipped > 0 || len(rep.Rejected) > 0 {
		fmt.Fprintf(w, "\n%d malformed records were left out\n", v.Skipped+len(rep.Rejected))
	}
}

func printSeries(w io.Writer, tf core.Timeframe, points []report.Point) {
	if len(points) == 0 {
		fmt.Fprintf(w, "No %s spending recorded\n", tf)
		return
	}
	var max int64
	for _, p := range points {
		if p.Amount.Cents > max {
			max = p.Amount.Cents
		}
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Label, p.Amount, bar(p.Amount.Cents, max))
	}
	tw.Flush()
}

func printAlert(w io.Writer, a report.AlertState) {
	fmt.Fprintf(w, "Limit    %s\n", a.Threshold)
	fmt.Fprintf(w, "Used     %.1f%%  [%s]\n", a.Percentage, progress(a.Display))
	switch {
	case !a.Enabled:
		fmt.Fprintln(w, "Alerts are off")
	case a.ShouldAlert:
		fmt.Fprintf(w, "ALERT: you have used %.1f%% of your spending limit\n", a.Percentage)
	}
}

func bar(v, max int64) string {
	if max <= 0 || v <= 0 {
		return ""
	}
	n := int(v * barWidth / max)
	if n == 0 {
		n = 1
	}
	return strings.Repeat("#", n)
}

func progress(display float64) string {
	n := int(display / 100 * barWidth)
	return strings.Repeat("#", n) + strings.Repeat(".", barWidth-n)
}
