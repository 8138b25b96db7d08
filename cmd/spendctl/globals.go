package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "time/tzdata"

	"spendwatch/internal/api"
	"spendwatch/internal/config"
	applog "spendwatch/internal/log"
	"spendwatch/internal/services"
	"spendwatch/internal/session"
)

// globals holds options shared by every command. Empty values fall back to
// the environment.
type globals struct {
	API     string        `help:"Base URL of the expense API (default: API_BASE_URL)."`
	Session string        `help:"Session file (default: SESSION_FILE or the user config directory)."`
	Timeout time.Duration `default:"15s" help:"Timeout of each command."`
	Debug   bool          `help:"Log API calls to stderr."`

	cfg *config.Config
}

func (g *globals) config() *config.Config {
	if g.cfg == nil {
		g.cfg = config.Load()
		level := slog.LevelWarn
		if g.Debug {
			level = slog.LevelDebug
		}
		applog.SetDefault(applog.NewText(os.Stderr, level, "spendctl"))
	}
	return g.cfg
}

func (g *globals) sessions() *session.Store {
	cfg := g.config()
	path := g.Session
	if path == "" {
		path = cfg.SessionFile
	}
	if path == "" {
		path = session.DefaultPath()
	}
	return session.NewStore(path)
}

func (g *globals) client() *api.Client {
	cfg := g.config()
	base := g.API
	if base == "" {
		base = cfg.APIBaseURL
	}
	return api.NewClient(base, g.sessions(), api.WithTimeout(g.Timeout))
}

// app is what authenticated commands work with.
type app struct {
	token   string
	userID  string
	reports *services.ReportService
	ledger  *services.LedgerService
}

// login loads the stored session and wires the services around it.
func (g *globals) login() (*app, error) {
	store := g.sessions()
	sess, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("%w (run `spendctl login`)", err)
	}

	cfg := g.config()
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	remote := services.ClientFactory(g.client())
	snapshots := services.NewSnapshots(remote, nil)
	reports := services.NewReportService(snapshots, remote, nil, loc)
	if err := reports.SetDefaultThreshold(cfg.Threshold()); err != nil {
		return nil, err
	}
	return &app{
		token:   sess.Token,
		userID:  sess.User.ID,
		reports: reports,
		ledger:  services.NewLedgerService(snapshots, remote),
	}, nil
}
