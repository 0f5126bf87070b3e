package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/docgate/internal/repository"
	"github.com/ErlanBelekov/docgate/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeStatsRepo struct {
	snapshot func(ctx context.Context, now, activeSince time.Time) (repository.AuthStats, error)
}

func (r *fakeStatsRepo) Snapshot(ctx context.Context, now, activeSince time.Time) (repository.AuthStats, error) {
	return r.snapshot(ctx, now, activeSince)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewReporter_InvalidSchedule(t *testing.T) {
	_, err := scheduler.NewReporter(&fakeStatsRepo{}, "every minute", discardLogger(), prometheus.NewRegistry())
	if err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestNewReporter_AcceptsDescriptorsAndCron(t *testing.T) {
	for _, expr := range []string{"@every 1m", "@hourly", "*/5 * * * *"} {
		if _, err := scheduler.NewReporter(&fakeStatsRepo{}, expr, discardLogger(), prometheus.NewRegistry()); err != nil {
			t.Errorf("%q: %v", expr, err)
		}
	}
}

func TestNewReporter_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := scheduler.NewReporter(&fakeStatsRepo{}, "@every 1m", discardLogger(), reg); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := scheduler.NewReporter(&fakeStatsRepo{}, "@every 1m", discardLogger(), reg); err == nil {
		t.Error("second registration on the same registry should fail")
	}
}

func TestReport_SetsGauges(t *testing.T) {
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeStatsRepo{
		snapshot: func(_ context.Context, gotNow, since time.Time) (repository.AuthStats, error) {
			if !gotNow.Equal(now) || !since.Equal(now.Add(-24*time.Hour)) {
				t.Errorf("snapshot(%v, %v)", gotNow, since)
			}
			return repository.AuthStats{PendingTokens: 3, Users: 10, ActiveUsers: 4}, nil
		},
	}
	reg := prometheus.NewRegistry()
	r, err := scheduler.NewReporter(repo, "@every 1m", discardLogger(), reg)
	if err != nil {
		t.Fatalf("NewReporter: %v", err)
	}
	r.WithClock(func() time.Time { return now })

	if err := r.Report(context.Background()); err != nil {
		t.Fatalf("Report: %v", err)
	}

	want := `
# HELP auth_magic_tokens_pending Magic tokens neither used nor expired.
# TYPE auth_magic_tokens_pending gauge
auth_magic_tokens_pending 3
# HELP auth_users_active_24h Users who signed in during the last 24 hours.
# TYPE auth_users_active_24h gauge
auth_users_active_24h 4
# HELP auth_users_total Registered users.
# TYPE auth_users_total gauge
auth_users_total 10
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want)); err != nil {
		t.Error(err)
	}
}

func TestReport_ErrorKeepsPreviousValues(t *testing.T) {
	fail := false
	repo := &fakeStatsRepo{
		snapshot: func(context.Context, time.Time, time.Time) (repository.AuthStats, error) {
			if fail {
				return repository.AuthStats{}, errors.New("db down")
			}
			return repository.AuthStats{Users: 7}, nil
		},
	}
	reg := prometheus.NewRegistry()
	r, err := scheduler.NewReporter(repo, "@every 1m", discardLogger(), reg)
	if err != nil {
		t.Fatalf("NewReporter: %v", err)
	}

	if err := r.Report(context.Background()); err != nil {
		t.Fatalf("Report: %v", err)
	}
	fail = true
	if err := r.Report(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	want := `
# HELP auth_users_total Registered users.
# TYPE auth_users_total gauge
auth_users_total 7
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "auth_users_total"); err != nil {
		t.Error(err)
	}
}

func TestStart_ReportsImmediatelyAndStops(t *testing.T) {
	calls := make(chan struct{}, 4)
	repo := &fakeStatsRepo{
		snapshot: func(context.Context, time.Time, time.Time) (repository.AuthStats, error) {
			calls <- struct{}{}
			return repository.AuthStats{}, nil
		},
	}
	r, err := scheduler.NewReporter(repo, "@hourly", discardLogger(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewReporter: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("no initial report")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reporter did not stop after cancel")
	}
}
