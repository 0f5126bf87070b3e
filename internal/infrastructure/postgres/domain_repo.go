package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DomainRepository struct {
	pool *pgxpool.Pool
}

func NewDomainRepository(pool *pgxpool.Pool) *DomainRepository {
	return &DomainRepository{pool: pool}
}

func (r *DomainRepository) IsAllowed(ctx context.Context, domain string) (bool, error) {
	var allowed bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM allowed_domains WHERE domain = $1)`, domain,
	).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("check allowed domain: %w", err)
	}
	return allowed, nil
}

func (r *DomainRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT domain FROM allowed_domains ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("list allowed domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan allowed domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

func (r *DomainRepository) Add(ctx context.Context, domains ...string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO allowed_domains (domain)
		SELECT UNNEST($1::text[])
		ON CONFLICT (domain) DO NOTHING`, domains)
	if err != nil {
		return 0, fmt.Errorf("add allowed domains: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *DomainRepository) Remove(ctx context.Context, domains ...string) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM allowed_domains WHERE domain = ANY($1)`, domains)
	if err != nil {
		return 0, fmt.Errorf("remove allowed domains: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
