package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"spendwatch/internal/core"
	"spendwatch/internal/export"
	"spendwatch/internal/services"
)

// build runs a report for the logged-in user.
func (g *globals) build(timeframe string, top int) (services.Report, error) {
	a, err := g.login()
	if err != nil {
		return services.Report{}, err
	}
	tf, err := core.ParseTimeframe(timeframe)
	if err != nil {
		return services.Report{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()
	return a.reports.Build(ctx, services.ReportRequest{Token: a.token, UserID: a.userID, Timeframe: tf, TopN: top})
}

type reportCmd struct {
	Timeframe string `short:"t" default:"daily" help:"daily, monthly or yearly."`
	Top       int    `default:"3" help:"Number of top categories."`
	JSON      bool   `name:"json" help:"Print the report as JSON."`
}

func (c *reportCmd) Run(g *globals) error {
	rep, err := g.build(c.Timeframe, c.Top)
	if err != nil {
		return err
	}
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printReport(os.Stdout, rep)
	return nil
}

type seriesCmd struct {
	Timeframe string `short:"t" default:"daily" help:"daily, monthly or yearly."`
}

func (c *seriesCmd) Run(g *globals) error {
	rep, err := g.build(c.Timeframe, 0)
	if err != nil {
		return err
	}
	printSeries(os.Stdout, rep.View.Timeframe, rep.View.Series)
	return nil
}

type alertCmd struct{}

func (c *alertCmd) Run(g *globals) error {
	rep, err := g.build("", 0)
	if err != nil {
		return err
	}
	printAlert(os.Stdout, rep.View.Alert)
	return nil
}

type thresholdCmd struct {
	Set thresholdSetCmd `cmd help:"Set the spending limit."`
}

type thresholdSetCmd struct {
	Amount string `arg help:"New limit, e.g. 15000."`
}

func (c *thresholdSetCmd) Run(g *globals) error {
	amount, err := core.ParsePositiveAmount(c.Amount)
	if err != nil {
		return core.ErrInvalidThreshold
	}
	return g.updateSettings(core.Settings{MaxThreshold: &amount}, fmt.Sprintf("Spending limit set to %s", amount))
}

type alertsCmd struct {
	State string `arg help:"on or off."`
}

func (c *alertsCmd) Run(g *globals) error {
	var enabled bool
	switch strings.ToLower(c.State) {
	case "on":
		enabled = true
	case "off":
	default:
		return fmt.Errorf("expected on or off, got %q", c.State)
	}
	return g.updateSettings(core.Settings{AlertEnabled: &enabled}, "Alerts turned "+strings.ToLower(c.State))
}

func (g *globals) updateSettings(st core.Settings, done string) error {
	a, err := g.login()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()
	if err := a.ledger.UpdateSettings(ctx, a.token, a.userID, st); err != nil {
		return err
	}
	fmt.Println(done)
	return nil
}

type exportCmd struct {
	Out       string `default:"jsonfile:report.json" help:"Where to write [jsonfile:/path/file.json es8:http://myelasticsearch:9200 sheets:<spreadsheet id>/<sheet>]"`
	Timeframe string `short:"t" default:"monthly" help:"daily, monthly or yearly."`
	Top       int    `default:"3" help:"Number of top categories."`
}

func (c *exportCmd) Run(g *globals) error {
	exporter, err := export.Parse(c.Out)
	if err != nil {
		return err
	}
	rep, err := g.build(c.Timeframe, c.Top)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()
	err = exporter.Export(ctx, export.Snapshot{User: rep.User, View: rep.View, GeneratedAt: rep.GeneratedAt})
	if err != nil {
		return err
	}
	fmt.Printf("Exported %s report to %s\n", rep.View.Timeframe, c.Out)
	return nil
}
