package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/docgate/internal/domain"
)

type TokenRepository interface {
	// Create inserts a new unused token. It returns domain.ErrTokenCollision
	// instead of overwriting an existing row with the same hash.
	Create(ctx context.Context, t *domain.MagicToken) error

	// Claim marks the token used and returns its email in one conditional
	// update, so only one of several concurrent claims can succeed.
	// Unknown, expired and already used tokens all yield domain.ErrTokenInvalid.
	Claim(ctx context.Context, tokenHash string, now time.Time) (string, error)

	// FindActive returns an unused, unexpired token without consuming it.
	FindActive(ctx context.Context, tokenHash string, now time.Time) (*domain.MagicToken, error)

	// ExistsIssuedSince reports whether an unused, unexpired token for email
	// was created after since.
	ExistsIssuedSince(ctx context.Context, email string, since, now time.Time) (bool, error)

	// DeleteExpired removes up to limit tokens that expired before cutoff,
	// used or not, and returns how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
