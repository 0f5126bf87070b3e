package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ErlanBelekov/docgate/internal/domain"
	"github.com/ErlanBelekov/docgate/internal/email"
	"github.com/ErlanBelekov/docgate/internal/metrics"
	"github.com/ErlanBelekov/docgate/internal/repository"
	"github.com/ErlanBelekov/docgate/internal/session"
	"github.com/go-playground/validator/v10"
)

const (
	TokenTTL = 15 * time.Minute
	// ResendWindow blocks a new link while an unused one issued within it exists.
	ResendWindow = 2 * time.Minute
)

var validate = validator.New()

type AuthUsecase struct {
	users     repository.UserRepository
	tokens    repository.TokenRepository
	domains   repository.DomainRepository
	email     email.Sender
	secret    []byte
	baseURL   string
	siteTitle string
	now       func() time.Time
}

type AuthConfig struct {
	Secret    []byte
	BaseURL   string
	SiteTitle string
}

func NewAuthUsecase(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	domains repository.DomainRepository,
	emailSender email.Sender,
	cfg AuthConfig,
) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		tokens:    tokens,
		domains:   domains,
		email:     emailSender,
		secret:    cfg.Secret,
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		siteTitle: cfg.SiteTitle,
		now:       time.Now,
	}
}

// WithClock replaces the time source; tests use it to step past expiries.
func (u *AuthUsecase) WithClock(now func() time.Time) *AuthUsecase {
	u.now = now
	return u
}

// IsAllowedDomain fails closed: an address without a domain is never allowed.
func (u *AuthUsecase) IsAllowedDomain(ctx context.Context, emailAddr string) (bool, error) {
	d, ok := domain.EmailDomain(emailAddr)
	if !ok {
		return false, nil
	}
	allowed, err := u.domains.IsAllowed(ctx, d)
	if err != nil {
		return false, fmt.Errorf("check domain: %w", err)
	}
	return allowed, nil
}

func (u *AuthUsecase) RecentTokenExists(ctx context.Context, emailAddr string) (bool, error) {
	now := u.now()
	return u.tokens.ExistsIssuedSince(ctx, domain.NormalizeEmail(emailAddr), now.Add(-ResendWindow), now)
}

// CreateMagicToken stores the SHA-256 of a fresh 256-bit token and returns
// the raw token. Only the hash is persisted.
func (u *AuthUsecase) CreateMagicToken(ctx context.Context, emailAddr string) (string, error) {
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	rawToken := hex.EncodeToString(raw)

	now := u.now()
	err := u.tokens.Create(ctx, &domain.MagicToken{
		TokenHash: hashToken(rawToken),
		Email:     domain.NormalizeEmail(emailAddr),
		CreatedAt: now,
		ExpiresAt: now.Add(TokenTTL),
	})
	if err != nil {
		return "", fmt.Errorf("store magic token: %w", err)
	}
	return rawToken, nil
}

// VerifyMagicToken consumes the token and returns its email. Unknown,
// expired and already used tokens all return domain.ErrTokenInvalid.
func (u *AuthUsecase) VerifyMagicToken(ctx context.Context, rawToken string) (string, error) {
	if rawToken == "" {
		return "", domain.ErrTokenInvalid
	}
	return u.tokens.Claim(ctx, hashToken(rawToken), u.now())
}

func (u *AuthUsecase) UpsertUser(ctx context.Context, emailAddr string) (string, error) {
	id, err := u.users.Upsert(ctx, domain.NormalizeEmail(emailAddr), u.now())
	if err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}
	return id, nil
}

// CreateSession returns the signed credential for the auth_session cookie.
func (u *AuthUsecase) CreateSession(userID string) string {
	metrics.SessionsIssuedTotal.Inc()
	return session.Sign(u.secret, userID, u.now())
}

// GetCurrentUser resolves the credential to its user. A missing, invalid or
// expired credential, or a deleted user, yields domain.ErrUnauthorized.
func (u *AuthUsecase) GetCurrentUser(ctx context.Context, credential string) (*domain.User, error) {
	if credential == "" {
		return nil, domain.ErrUnauthorized
	}
	userID, ok := session.Verify(u.secret, credential, u.now())
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// RequestMagicLink runs the whole login request: validation, allow-list,
// resend window, token issue and delivery.
func (u *AuthUsecase) RequestMagicLink(ctx context.Context, emailAddr string) error {
	addr := domain.NormalizeEmail(emailAddr)
	if addr == "" {
		return u.requestOutcome(domain.ErrEmailRequired)
	}
	if err := validate.Var(addr, "email"); err != nil || strings.Count(addr, "@") != 1 {
		return u.requestOutcome(domain.ErrEmailInvalid)
	}

	allowed, err := u.IsAllowedDomain(ctx, addr)
	if err != nil {
		return u.requestOutcome(err)
	}
	if !allowed {
		return u.requestOutcome(domain.ErrDomainNotAllowed)
	}

	recent, err := u.RecentTokenExists(ctx, addr)
	if err != nil {
		return u.requestOutcome(fmt.Errorf("check recent token: %w", err))
	}
	if recent {
		return u.requestOutcome(domain.ErrRecentlySent)
	}

	rawToken, err := u.CreateMagicToken(ctx, addr)
	if err != nil {
		return u.requestOutcome(err)
	}

	link := u.baseURL + "/verify?token=" + rawToken
	if err := u.email.Send(ctx, email.MagicLinkMessage(addr, u.siteTitle, link, TokenTTL)); err != nil {
		return u.requestOutcome(fmt.Errorf("send magic link: %w", err))
	}
	return u.requestOutcome(nil)
}

func (u *AuthUsecase) requestOutcome(err error) error {
	outcome := "sent"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrEmailRequired), errors.Is(err, domain.ErrEmailInvalid):
		outcome = "invalid"
	case errors.Is(err, domain.ErrDomainNotAllowed):
		outcome = "domain_not_allowed"
	case errors.Is(err, domain.ErrRecentlySent):
		outcome = "throttled"
	default:
		outcome = "error"
	}
	metrics.MagicLinksRequestedTotal.WithLabelValues(outcome).Inc()
	return err
}

type EntityStatus struct {
	Email     string
	HasEntity bool
	Entity    *string
}

// CheckEntity looks up a still-valid token without consuming it, so the
// client can decide whether to ask for an entity before verifying.
func (u *AuthUsecase) CheckEntity(ctx context.Context, rawToken string) (*EntityStatus, error) {
	if rawToken == "" {
		return nil, domain.ErrTokenInvalid
	}
	now := u.now()
	tok, err := u.tokens.FindActive(ctx, hashToken(rawToken), now)
	if err != nil {
		return nil, err
	}
	if !tok.Valid(now) {
		return nil, domain.ErrTokenInvalid
	}

	status := &EntityStatus{Email: tok.Email}
	user, err := u.users.FindByEmail(ctx, tok.Email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
	case err != nil:
		return nil, fmt.Errorf("find user: %w", err)
	case user.Entity != nil && *user.Entity != "":
		status.HasEntity = true
		status.Entity = user.Entity
	}
	return status, nil
}

// Verify consumes the token, upserts the user, stores entity when one is
// given, and returns a signed session credential.
func (u *AuthUsecase) Verify(ctx context.Context, rawToken, entity string) (string, error) {
	emailAddr, err := u.VerifyMagicToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			metrics.MagicLinksVerifiedTotal.WithLabelValues("invalid").Inc()
			return "", err
		}
		metrics.MagicLinksVerifiedTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("verify magic token: %w", err)
	}

	userID, err := u.UpsertUser(ctx, emailAddr)
	if err != nil {
		metrics.MagicLinksVerifiedTotal.WithLabelValues("error").Inc()
		return "", err
	}

	if entity = strings.TrimSpace(entity); entity != "" {
		if err := u.users.SetEntity(ctx, userID, entity); err != nil {
			metrics.MagicLinksVerifiedTotal.WithLabelValues("error").Inc()
			return "", fmt.Errorf("set entity: %w", err)
		}
	}

	metrics.MagicLinksVerifiedTotal.WithLabelValues("ok").Inc()
	return u.CreateSession(userID), nil
}

func (u *AuthUsecase) UpdateEntity(ctx context.Context, userID, entity string) error {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return domain.ErrEntityRequired
	}
	if err := u.users.SetEntity(ctx, userID, entity); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("set entity: %w", err)
	}
	return nil
}

func hashToken(rawToken string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(rawToken)))
}
