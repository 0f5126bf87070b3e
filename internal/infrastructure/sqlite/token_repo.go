package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/docgate/internal/domain"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type TokenRepository struct {
	db *DB
}

func NewTokenRepository(db *DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, t *domain.MagicToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO magic_tokens (token_hash, email, created_at, expires_at)
		VALUES (?1, ?2, ?3, ?4)`,
		t.TokenHash, t.Email, toMillis(t.CreatedAt), toMillis(t.ExpiresAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrTokenCollision
		}
		return fmt.Errorf("insert magic token: %w", err)
	}
	return nil
}

func (r *TokenRepository) Claim(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var email string
	err := r.db.QueryRowContext(ctx, `
		UPDATE magic_tokens
		SET    used_at = ?2
		WHERE  token_hash = ?1
		  AND  expires_at > ?2
		  AND  used_at IS NULL
		RETURNING email`,
		tokenHash, toMillis(now),
	).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrTokenInvalid
		}
		return "", fmt.Errorf("claim magic token: %w", err)
	}
	return email, nil
}

func (r *TokenRepository) FindActive(ctx context.Context, tokenHash string, now time.Time) (*domain.MagicToken, error) {
	var (
		t                    domain.MagicToken
		createdAt, expiresAt int64
		usedAt               sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT token_hash, email, created_at, expires_at, used_at
		FROM   magic_tokens
		WHERE  token_hash = ?1
		  AND  expires_at > ?2
		  AND  used_at IS NULL`,
		tokenHash, toMillis(now),
	).Scan(&t.TokenHash, &t.Email, &createdAt, &expiresAt, &usedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("find magic token: %w", err)
	}
	t.CreatedAt = fromMillis(createdAt)
	t.ExpiresAt = fromMillis(expiresAt)
	t.UsedAt = fromNullMillis(usedAt)
	return &t, nil
}

func (r *TokenRepository) ExistsIssuedSince(ctx context.Context, email string, since, now time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM magic_tokens
			WHERE  email = ?1
			  AND  used_at IS NULL
			  AND  expires_at > ?3
			  AND  created_at > ?2
		)`,
		email, toMillis(since), toMillis(now),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent token: %w", err)
	}
	return exists, nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM magic_tokens
		WHERE token_hash IN (
			SELECT token_hash FROM magic_tokens
			WHERE  expires_at < ?1
			LIMIT  ?2
		)`,
		toMillis(cutoff), limit,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
