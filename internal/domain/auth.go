package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrTokenInvalid     = errors.New("token is invalid or expired")
	ErrTokenCollision   = errors.New("magic token already exists")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrEmailRequired    = errors.New("email required")
	ErrEmailInvalid     = errors.New("email address is invalid")
	ErrDomainNotAllowed = errors.New("email domain not allowed")
	ErrRecentlySent     = errors.New("magic link recently sent")
	ErrEntityRequired   = errors.New("entity is required")
)

type User struct {
	ID          string
	Email       string
	Entity      *string
	LastLoginAt *time.Time
	CreatedAt   time.Time
}

type MagicToken struct {
	TokenHash string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// Valid reports whether the token can still be consumed at now.
func (t *MagicToken) Valid(now time.Time) bool {
	return t.UsedAt == nil && t.ExpiresAt.After(now)
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain returns the lower-cased part after the '@'. ok is false unless
// the address has exactly one '@' with something on both sides.
func EmailDomain(email string) (string, bool) {
	local, rest, found := strings.Cut(email, "@")
	if !found || strings.TrimSpace(local) == "" || strings.Contains(rest, "@") {
		return "", false
	}
	d := NormalizeDomain(rest)
	if d == "" {
		return "", false
	}
	return d, true
}

// NormalizeDomain is the canonical form allow-list entries are stored in.
func NormalizeDomain(d string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
}
