package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/docgate/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepository struct {
	pool *pgxpool.Pool
}

func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

func (r *StatsRepository) Snapshot(ctx context.Context, now, activeSince time.Time) (repository.AuthStats, error) {
	var s repository.AuthStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM magic_tokens WHERE used_at IS NULL AND expires_at > $1),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE last_login_at > $2)`,
		now, activeSince,
	).Scan(&s.PendingTokens, &s.Users, &s.ActiveUsers)
	if err != nil {
		return repository.AuthStats{}, fmt.Errorf("auth stats: %w", err)
	}
	return s, nil
}

var (
	_ repository.UserRepository   = (*UserRepository)(nil)
	_ repository.TokenRepository  = (*TokenRepository)(nil)
	_ repository.DomainRepository = (*DomainRepository)(nil)
	_ repository.StatsRepository  = (*StatsRepository)(nil)
)
