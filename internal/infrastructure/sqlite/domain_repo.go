package sqlite

import (
	"context"
	"fmt"
	"time"
)

type DomainRepository struct {
	db *DB
}

func NewDomainRepository(db *DB) *DomainRepository {
	return &DomainRepository{db: db}
}

func (r *DomainRepository) IsAllowed(ctx context.Context, domain string) (bool, error) {
	var allowed bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM allowed_domains WHERE domain = ?1)`, domain,
	).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("check allowed domain: %w", err)
	}
	return allowed, nil
}

func (r *DomainRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT domain FROM allowed_domains ORDER BY domain`)
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
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin add domains: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := toMillis(time.Now())
	added := 0
	for _, d := range domains {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO allowed_domains (domain, created_at) VALUES (?1, ?2) ON CONFLICT (domain) DO NOTHING`,
			d, now)
		if err != nil {
			return 0, fmt.Errorf("add allowed domain %q: %w", d, err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit add domains: %w", err)
	}
	return added, nil
}

func (r *DomainRepository) Remove(ctx context.Context, domains ...string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin remove domains: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	removed := 0
	for _, d := range domains {
		res, err := tx.ExecContext(ctx, `DELETE FROM allowed_domains WHERE domain = ?1`, d)
		if err != nil {
			return 0, fmt.Errorf("remove allowed domain %q: %w", d, err)
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit remove domains: %w", err)
	}
	return removed, nil
}
