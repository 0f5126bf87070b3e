package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/docgate/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
)

const reapBatchSize = 500

// Reaper deletes magic tokens once they are past expiry by more than the
// retention period. Used and unused tokens alike; neither can sign anyone in.
type Reaper struct {
	repo      repository.TokenRepository
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	deleted   prometheus.Counter
}

func NewReaper(repo repository.TokenRepository, logger *slog.Logger, interval, retention time.Duration, reg prometheus.Registerer) *Reaper {
	deleted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "magic_tokens_reaped_total",
		Help:      "Expired magic tokens deleted by the reaper.",
	})
	reg.MustRegister(deleted)

	return &Reaper{
		repo:      repo,
		logger:    logger.With("component", "reaper"),
		interval:  interval,
		retention: retention,
		now:       time.Now,
		deleted:   deleted,
	}
}

func (r *Reaper) WithClock(now func() time.Time) *Reaper {
	r.now = now
	return r
}

func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reaper started", "interval", r.interval, "retention", r.retention)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper shut down")
			return
		case <-ticker.C:
			r.Reap(ctx)
		}
	}
}

// Reap deletes in batches until a batch comes back short, and returns the
// total removed.
func (r *Reaper) Reap(ctx context.Context) int64 {
	cutoff := r.now().Add(-r.retention)
	var total int64
	for {
		n, err := r.repo.DeleteExpired(ctx, cutoff, reapBatchSize)
		if err != nil {
			r.logger.Error("reaper delete expired", "error", err)
			break
		}
		total += n
		if n < reapBatchSize || ctx.Err() != nil {
			break
		}
	}
	if total > 0 {
		r.deleted.Add(float64(total))
		r.logger.Info("reaper deleted expired tokens", "count", total)
	}
	return total
}
