package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ErlanBelekov/docgate/internal/domain"
	"github.com/ErlanBelekov/docgate/internal/infrastructure/sqlite"
)

var t0 = time.Date(2025, 4, 10, 8, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newToken(hash, email string, createdAt time.Time) *domain.MagicToken {
	return &domain.MagicToken{
		TokenHash: hash,
		Email:     email,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(15 * time.Minute),
	}
}

func TestOpen_MigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestTokenRepository_ClaimOnce(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewTokenRepository(openTestDB(t))

	if err := repo.Create(ctx, newToken("h1", "user@allowed.org", t0)); err != nil {
		t.Fatalf("create: %v", err)
	}

	email, err := repo.Claim(ctx, "h1", t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if email != "user@allowed.org" {
		t.Errorf("email = %q", email)
	}

	if _, err := repo.Claim(ctx, "h1", t0.Add(2*time.Minute)); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("second claim: want ErrTokenInvalid, got %v", err)
	}
	if _, err := repo.FindActive(ctx, "h1", t0.Add(2*time.Minute)); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("FindActive after claim: want ErrTokenInvalid, got %v", err)
	}
}

func TestTokenRepository_ClaimExpired(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewTokenRepository(openTestDB(t))

	if err := repo.Create(ctx, newToken("h1", "user@allowed.org", t0)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.Claim(ctx, "h1", t0.Add(15*time.Minute)); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("claim at expiry: want ErrTokenInvalid, got %v", err)
	}
	if _, err := repo.Claim(ctx, "unknown", t0); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("claim unknown: want ErrTokenInvalid, got %v", err)
	}
}

func TestTokenRepository_ConcurrentClaimHasOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewTokenRepository(openTestDB(t))

	if err := repo.Create(ctx, newToken("h1", "user@allowed.org", t0)); err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Claim(ctx, "h1", t0.Add(time.Minute))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrTokenInvalid) {
				t.Errorf("claim: unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
}

func TestTokenRepository_CreateCollision(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewTokenRepository(openTestDB(t))

	if err := repo.Create(ctx, newToken("h1", "a@allowed.org", t0)); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := repo.Create(ctx, newToken("h1", "b@allowed.org", t0.Add(time.Second)))
	if !errors.Is(err, domain.ErrTokenCollision) {
		t.Fatalf("want ErrTokenCollision, got %v", err)
	}

	tok, err := repo.FindActive(ctx, "h1", t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if tok.Email != "a@allowed.org" {
		t.Errorf("collision overwrote the row: email = %q", tok.Email)
	}
}

func TestTokenRepository_ExistsIssuedSince(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewTokenRepository(openTestDB(t))
	const email = "user@allowed.org"

	if err := repo.Create(ctx, newToken("h1", email, t0)); err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"immediately", t0.Add(time.Second), true},
		{"inside window", t0.Add(119 * time.Second), true},
		{"window elapsed", t0.Add(2 * time.Minute), false},
		{"long after", t0.Add(10 * time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ExistsIssuedSince(ctx, email, tt.now.Add(-2*time.Minute), tt.now)
			if err != nil {
				t.Fatalf("exists: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExistsIssuedSince = %v, want %v", got, tt.want)
			}
		})
	}

	other, err := repo.ExistsIssuedSince(ctx, "other@allowed.org", t0.Add(-time.Minute), t0.Add(time.Second))
	if err != nil || other {
		t.Errorf("other email: got (%v, %v), want (false, nil)", other, err)
	}

	if _, err := repo.Claim(ctx, "h1", t0.Add(10*time.Second)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	used, err := repo.ExistsIssuedSince(ctx, email, t0.Add(-time.Minute), t0.Add(20*time.Second))
	if err != nil || used {
		t.Errorf("after claim: got (%v, %v), want (false, nil)", used, err)
	}
}

func TestUserRepository_UpsertIsIdempotentOnEmail(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewUserRepository(openTestDB(t))

	id1, err := repo.Upsert(ctx, "user@allowed.org", t0)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	id2, err := repo.Upsert(ctx, "user@allowed.org", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("ids differ: %q vs %q", id1, id2)
	}

	u, err := repo.FindByID(ctx, id1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.LastLoginAt == nil || !u.LastLoginAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("last_login_at = %v, want %v", u.LastLoginAt, t0.Add(time.Hour))
	}
	if !u.CreatedAt.Equal(t0) {
		t.Errorf("created_at = %v, want %v", u.CreatedAt, t0)
	}
	if u.Entity != nil {
		t.Errorf("entity = %q, want nil", *u.Entity)
	}
}

func TestUserRepository_EntityAndLookups(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewUserRepository(openTestDB(t))

	id, err := repo.Upsert(ctx, "user@allowed.org", t0)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.SetEntity(ctx, id, "UNDP"); err != nil {
		t.Fatalf("set entity: %v", err)
	}

	u, err := repo.FindByEmail(ctx, "user@allowed.org")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if u.Entity == nil || *u.Entity != "UNDP" {
		t.Errorf("entity = %v, want UNDP", u.Entity)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("FindByID missing: want ErrUserNotFound, got %v", err)
	}
	if err := repo.SetEntity(ctx, "missing", "UNDP"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("SetEntity missing: want ErrUserNotFound, got %v", err)
	}

	if _, err := repo.Upsert(ctx, "second@allowed.org", t0.Add(time.Hour)); err != nil {
		t.Fatalf("upsert second: %v", err)
	}
	users, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].Email != "second@allowed.org" {
		t.Errorf("list order unexpected: %+v", users)
	}
}

func TestDomainRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewDomainRepository(openTestDB(t))

	added, err := repo.Add(ctx, "un.org", "undp.org", "un.org")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}

	ok, err := repo.IsAllowed(ctx, "un.org")
	if err != nil || !ok {
		t.Errorf("IsAllowed(un.org) = (%v, %v)", ok, err)
	}
	ok, err = repo.IsAllowed(ctx, "evil.org")
	if err != nil || ok {
		t.Errorf("IsAllowed(evil.org) = (%v, %v)", ok, err)
	}

	removed, err := repo.Remove(ctx, "undp.org", "missing.org")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0] != "un.org" {
		t.Errorf("list = %v, want [un.org]", list)
	}
}

func TestStatsRepository_Snapshot(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	tokens := sqlite.NewTokenRepository(db)
	users := sqlite.NewUserRepository(db)

	for i, h := range []string{"h1", "h2", "h3"} {
		if err := tokens.Create(ctx, newToken(h, "user@allowed.org", t0.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("create %s: %v", h, err)
		}
	}
	if _, err := tokens.Claim(ctx, "h1", t0.Add(3*time.Minute)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := users.Upsert(ctx, "old@allowed.org", t0.Add(-48*time.Hour)); err != nil {
		t.Fatalf("upsert old: %v", err)
	}
	if _, err := users.Upsert(ctx, "user@allowed.org", t0.Add(3*time.Minute)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	now := t0.Add(5 * time.Minute)
	s, err := sqlite.NewStatsRepository(db).Snapshot(ctx, now, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if s.PendingTokens != 2 || s.Users != 2 || s.ActiveUsers != 1 {
		t.Errorf("snapshot = %+v, want {2 2 1}", s)
	}
}

func TestTokenRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewTokenRepository(openTestDB(t))

	// h1 and h2 expire at t0+15m and t0+16m, h3 at t0+2h.
	for _, tok := range []*domain.MagicToken{
		newToken("h1", "a@allowed.org", t0),
		newToken("h2", "b@allowed.org", t0.Add(time.Minute)),
		newToken("h3", "c@allowed.org", t0.Add(105*time.Minute)),
	} {
		if err := repo.Create(ctx, tok); err != nil {
			t.Fatalf("create %s: %v", tok.TokenHash, err)
		}
	}

	n, err := repo.DeleteExpired(ctx, t0.Add(time.Hour), 1)
	if err != nil || n != 1 {
		t.Fatalf("first batch = (%d, %v), want (1, nil)", n, err)
	}
	n, err = repo.DeleteExpired(ctx, t0.Add(time.Hour), 10)
	if err != nil || n != 1 {
		t.Fatalf("second batch = (%d, %v), want (1, nil)", n, err)
	}

	if _, err := repo.FindActive(ctx, "h3", t0.Add(time.Hour)); err != nil {
		t.Errorf("unexpired token removed: %v", err)
	}
}
