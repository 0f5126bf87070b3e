package repository

import "context"

type DomainRepository interface {
	IsAllowed(ctx context.Context, domain string) (bool, error)
	List(ctx context.Context) ([]string, error)
	// Add is idempotent; it returns how many domains were newly inserted.
	Add(ctx context.Context, domains ...string) (int, error)
	Remove(ctx context.Context, domains ...string) (int, error)
}
