package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/docgate/internal/domain"
)

type UserRepository interface {
	// Upsert inserts the user or, when the email already exists, bumps
	// last_login_at. The user ID is returned either way.
	Upsert(ctx context.Context, email string, now time.Time) (string, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	SetEntity(ctx context.Context, id, entity string) error
	List(ctx context.Context, limit int) ([]*domain.User, error)
}
