// Package scheduler runs the periodic background jobs: publishing store
// counts as gauges and purging expired magic tokens.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/docgate/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

// ActiveWindow is how far back a login counts towards auth_users_active_24h.
const ActiveWindow = 24 * time.Hour

type Reporter struct {
	repo     repository.StatsRepository
	schedule cron.Schedule
	logger   *slog.Logger
	now      func() time.Time

	pendingTokens prometheus.Gauge
	users         prometheus.Gauge
	activeUsers   prometheus.Gauge
}

// NewReporter parses expr (standard cron syntax or a descriptor such as
// "@every 1m") and registers the gauges on reg.
func NewReporter(repo repository.StatsRepository, expr string, logger *slog.Logger, reg prometheus.Registerer) (*Reporter, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse report schedule %q: %w", expr, err)
	}

	r := &Reporter{
		repo:     repo,
		schedule: sched,
		logger:   logger.With("component", "stats_reporter"),
		now:      time.Now,
		pendingTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auth",
			Name:      "magic_tokens_pending",
			Help:      "Magic tokens neither used nor expired.",
		}),
		users: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auth",
			Name:      "users_total",
			Help:      "Registered users.",
		}),
		activeUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auth",
			Name:      "users_active_24h",
			Help:      "Users who signed in during the last 24 hours.",
		}),
	}
	if err := registerAll(reg, r.pendingTokens, r.users, r.activeUsers); err != nil {
		return nil, err
	}
	return r, nil
}

func registerAll(reg prometheus.Registerer, cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register stats gauge: %w", err)
		}
	}
	return nil
}

func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	r.now = now
	return r
}

// Start reports once immediately and then on every schedule tick until ctx
// is cancelled.
func (r *Reporter) Start(ctx context.Context) {
	r.logger.Info("stats reporter started")
	r.report(ctx)

	for {
		wait := time.Until(r.schedule.Next(time.Now()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("stats reporter shut down")
			return
		case <-timer.C:
			r.report(ctx)
		}
	}
}

func (r *Reporter) report(ctx context.Context) {
	if err := r.Report(ctx); err != nil {
		r.logger.Error("stats snapshot", "error", err)
	}
}

// Report takes one snapshot and updates the gauges. On error the gauges
// keep their previous values.
func (r *Reporter) Report(ctx context.Context) error {
	now := r.now()
	s, err := r.repo.Snapshot(ctx, now, now.Add(-ActiveWindow))
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	r.pendingTokens.Set(float64(s.PendingTokens))
	r.users.Set(float64(s.Users))
	r.activeUsers.Set(float64(s.ActiveUsers))
	r.logger.Debug("stats reported", "pending_tokens", s.PendingTokens, "users", s.Users, "active_users", s.ActiveUsers)
	return nil
}
