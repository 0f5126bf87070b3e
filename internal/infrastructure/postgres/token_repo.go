package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/docgate/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Create(ctx context.Context, t *domain.MagicToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO magic_tokens (token_hash, email, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`,
		t.TokenHash, t.Email, t.CreatedAt, t.ExpiresAt,
	)
	if err != nil {
		if hasCode(err, pgUniqueViolation) {
			return domain.ErrTokenCollision
		}
		return fmt.Errorf("insert magic token: %w", err)
	}
	return nil
}

func (r *TokenRepository) Claim(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var email string
	err := r.pool.QueryRow(ctx, `
		UPDATE magic_tokens
		SET    used_at = $2
		WHERE  token_hash = $1
		  AND  expires_at > $2
		  AND  used_at IS NULL
		RETURNING email`,
		tokenHash, now,
	).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrTokenInvalid
		}
		return "", fmt.Errorf("claim magic token: %w", err)
	}
	return email, nil
}

func (r *TokenRepository) FindActive(ctx context.Context, tokenHash string, now time.Time) (*domain.MagicToken, error) {
	var t domain.MagicToken
	err := r.pool.QueryRow(ctx, `
		SELECT token_hash, email, created_at, expires_at, used_at
		FROM   magic_tokens
		WHERE  token_hash = $1
		  AND  expires_at > $2
		  AND  used_at IS NULL`,
		tokenHash, now,
	).Scan(&t.TokenHash, &t.Email, &t.CreatedAt, &t.ExpiresAt, &t.UsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("find magic token: %w", err)
	}
	return &t, nil
}

func (r *TokenRepository) ExistsIssuedSince(ctx context.Context, email string, since, now time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM magic_tokens
			WHERE  email = $1
			  AND  used_at IS NULL
			  AND  expires_at > $3
			  AND  created_at > $2
		)`,
		email, since, now,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent token: %w", err)
	}
	return exists, nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM magic_tokens
		WHERE token_hash IN (
			SELECT token_hash FROM magic_tokens
			WHERE  expires_at < $1
			LIMIT  $2
		)`,
		cutoff, limit,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
