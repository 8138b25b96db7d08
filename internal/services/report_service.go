package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwatch/internal/alerting"
	"spendwatch/internal/api"
	"spendwatch/internal/core"
	"spendwatch/internal/report"
)

// Observer receives every evaluated alert state.
type Observer interface {
	Observe(ctx context.Context, u core.User, st report.AlertState) (alerting.Outcome, error)
}

// ReportRequest identifies whose report to build and how.
type ReportRequest struct {
	Token     string
	UserID    string
	Timeframe core.Timeframe
	TopN      int
}

// Report is a built view together with the user it belongs to.
type Report struct {
	User         core.User        `json:"user"`
	View         report.View      `json:"view"`
	Rejected     []api.Rejected   `json:"rejected,omitempty"`
	AlertOutcome alerting.Outcome `json:"alertOutcome,omitempty"`
	AlertError   string           `json:"alertError,omitempty"`
	GeneratedAt  time.Time        `json:"generatedAt"`
}

// ReportService fetches a user's data and turns it into a report.View.
type ReportService struct {
	snapshots *Snapshots
	remote    RemoteFactory
	observer  Observer
	loc       *time.Location
	fallback  core.Money
	now       func() time.Time
}

// NewReportService builds a report service. observer may be nil, in which
// case alerts are evaluated but never dispatched.
func NewReportService(snapshots *Snapshots, remote RemoteFactory, observer Observer, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{
		snapshots: snapshots,
		remote:    remote,
		observer:  observer,
		loc:       loc,
		fallback:  core.DefaultThreshold,
		now:       time.Now,
	}
}

// SetDefaultThreshold changes the limit used for users who have not set one.
func (s *ReportService) SetDefaultThreshold(m core.Money) error {
	if err := core.ValidateThreshold(m); err != nil {
		return err
	}
	s.fallback = m
	return nil
}

// Build fetches the user and the transactions concurrently, aggregates them
// and hands the alert state to the observer. A failed notification does not
// fail the report; it is reported in AlertError.
func (s *ReportService) Build(ctx context.Context, req ReportRequest) (Report, error) {
	if req.UserID == "" {
		return Report{}, fmt.Errorf("build report: empty user id")
	}

	var (
		user core.User
		snap Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.remote(req.Token).GetUser(gctx, req.UserID)
		if err != nil {
			return wrapRemote("get user", err)
		}
		user = u
		return nil
	})
	g.Go(func() error {
		sn, err := s.snapshots.Get(gctx, req.Token)
		if err != nil {
			return wrapRemote("list transactions", err)
		}
		snap = sn
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if user.ID == "" {
		user.ID = req.UserID
	}

	threshold := user.MaxThreshold
	if threshold.Cents <= 0 {
		threshold = s.fallback
	}

	now := s.now()
	view := report.Build(snap.Transactions, report.Options{
		Now:          now,
		Location:     s.loc,
		Timeframe:    req.Timeframe,
		Threshold:    threshold,
		AlertEnabled: user.AlertEnabled,
		TopN:         req.TopN,
	})

	rep := Report{
		User:        user,
		View:        view,
		Rejected:    snap.Rejected,
		GeneratedAt: now,
	}

	if s.observer != nil {
		outcome, err := s.observer.Observe(ctx, user, view.Alert)
		rep.AlertOutcome = outcome
		if err != nil {
			if !errors.Is(err, alerting.ErrDispatchFailed) {
				return Report{}, fmt.Errorf("observe alert: %w", err)
			}
			slog.ErrorContext(ctx, "Alert dispatch failed",
				"user_id", user.ID,
				"percentage", view.Alert.Percentage,
				"error", err)
			rep.AlertError = err.Error()
		} else if outcome == alerting.OutcomeSent {
			slog.InfoContext(ctx, "Alert dispatched",
				"user_id", user.ID,
				"percentage", view.Alert.Percentage)
		}
	}

	return rep, nil
}
