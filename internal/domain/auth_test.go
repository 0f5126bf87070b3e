package domain_test

import (
	"testing"
	"time"

	"github.com/ErlanBelekov/docgate/internal/domain"
)

func TestEmailDomain(t *testing.T) {
	tests := []struct {
		email  string
		want   string
		wantOK bool
	}{
		{"user@allowed.org", "allowed.org", true},
		{"User@Allowed.ORG", "allowed.org", true},
		{"a@b@un.org", "", false},
		{"victim@attacker.example@un.org", "", false},
		{"@un.org", "", false},
		{"user@allowed.org.", "allowed.org", true},
		{"no-at-sign", "", false},
		{"trailing@", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := domain.EmailDomain(tt.email)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("EmailDomain(%q) = (%q, %v), want (%q, %v)", tt.email, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := domain.NormalizeEmail("  Jane.Doe@UN.org "); got != "jane.doe@un.org" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestMagicToken_Valid(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	used := now.Add(-time.Minute)

	tests := []struct {
		name string
		tok  domain.MagicToken
		want bool
	}{
		{"fresh", domain.MagicToken{ExpiresAt: now.Add(time.Minute)}, true},
		{"expired", domain.MagicToken{ExpiresAt: now.Add(-time.Second)}, false},
		{"expires exactly now", domain.MagicToken{ExpiresAt: now}, false},
		{"used", domain.MagicToken{ExpiresAt: now.Add(time.Minute), UsedAt: &used}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tok.Valid(now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
