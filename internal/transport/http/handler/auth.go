package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/docgate/internal/domain"
	"github.com/ErlanBelekov/docgate/internal/session"
	"github.com/ErlanBelekov/docgate/internal/transport/http/middleware"
	"github.com/ErlanBelekov/docgate/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	RequestMagicLink(ctx context.Context, email string) error
	CheckEntity(ctx context.Context, rawToken string) (*usecase.EntityStatus, error)
	Verify(ctx context.Context, rawToken, entity string) (string, error)
	GetCurrentUser(ctx context.Context, credential string) (*domain.User, error)
	UpdateEntity(ctx context.Context, userID, entity string) error
}

type AuthHandler struct {
	authUsecase  authUsecaser
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler builds the handler. secureCookie marks the session cookie
// Secure and should be set whenever the site is served over HTTPS.
func NewAuthHandler(authUsecase authUsecaser, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase:  authUsecase,
		secureCookie: secureCookie,
		logger:       logger.With("component", "auth_handler"),
	}
}

type magicLinkRequest struct {
	Email string `json:"email" form:"email"`
}

// POST /api/auth/request
// Accepts JSON or a form post from the landing page.
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req magicLinkRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		return
	}

	err := h.authUsecase.RequestMagicLink(c.Request.Context(), req.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case errors.Is(err, domain.ErrEmailRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": errEmailRequired})
	case errors.Is(err, domain.ErrEmailInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": errEmailInvalid})
	case errors.Is(err, domain.ErrDomainNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": errDomainNotAllowed})
	case errors.Is(err, domain.ErrRecentlySent):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": errRecentlySent})
	default:
		h.logger.ErrorContext(c.Request.Context(), "request magic link", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errSendFailed})
	}
}

type tokenRequest struct {
	Token  string `json:"token"`
	Entity string `json:"entity"`
}

// POST /api/auth/check-entity
// Peeks at the token without consuming it.
func (h *AuthHandler) CheckEntity(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMissingToken})
		return
	}

	status, err := h.authUsecase.CheckEntity(c.Request.Context(), req.Token)
	if err != nil {
		if !errors.Is(err, domain.ErrTokenInvalid) {
			h.logger.ErrorContext(c.Request.Context(), "check entity", "error", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errTokenInvalid})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":     status.Email,
		"hasEntity": status.HasEntity,
		"entity":    status.Entity,
	})
}

// POST /api/auth/verify
// Consumes the token and sets the session cookie.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMissingToken})
		return
	}

	credential, err := h.authUsecase.Verify(c.Request.Context(), req.Token, req.Entity)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLinkInvalid})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "verify magic link", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	http.SetCookie(c.Writer, session.NewCookie(credential, h.secureCookie))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// POST /api/auth/logout
// Only clears the cookie; the signed credential itself stays valid until exp.
func (h *AuthHandler) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, session.ClearCookie(h.secureCookie))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authUsecase.GetCurrentUser(c.Request.Context(), c.GetString(middleware.CredentialKey))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "get current user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     user.ID,
		"email":  user.Email,
		"entity": user.Entity,
	})
}

type entityRequest struct {
	Entity string `json:"entity"`
}

// PUT /api/me/entity
func (h *AuthHandler) UpdateEntity(c *gin.Context) {
	var req entityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidRequest})
		return
	}

	err := h.authUsecase.UpdateEntity(c.Request.Context(), c.GetString(middleware.UserIDKey), req.Entity)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case errors.Is(err, domain.ErrEntityRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": errEntityRequired})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
	default:
		h.logger.ErrorContext(c.Request.Context(), "update entity", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
