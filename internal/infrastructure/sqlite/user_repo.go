package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/docgate/internal/domain"
	"github.com/google/uuid"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Upsert(ctx context.Context, email string, now time.Time) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, last_login_at, created_at)
		VALUES (?1, ?2, ?3, ?3)
		ON CONFLICT (email) DO UPDATE SET last_login_at = excluded.last_login_at
		RETURNING id`,
		uuid.NewString(), email, toMillis(now),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}
	return id, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, email, entity, last_login_at, created_at FROM users WHERE id = ?1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, email, entity, last_login_at, created_at FROM users WHERE email = ?1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) SetEntity(ctx context.Context, id, entity string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET entity = ?2 WHERE id = ?1`, id, entity)
	if err != nil {
		return fmt.Errorf("set entity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set entity: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, limit int) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, entity, last_login_at, created_at
		FROM users
		ORDER BY last_login_at IS NULL, last_login_at DESC, email
		LIMIT ?1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// *sql.Row and *sql.Rows both implement this.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		entity    sql.NullString
		lastLogin sql.NullInt64
		createdAt int64
	)
	err := row.Scan(&u.ID, &u.Email, &entity, &lastLogin, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if entity.Valid {
		u.Entity = &entity.String
	}
	u.LastLoginAt = fromNullMillis(lastLogin)
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}
