package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/docgate/internal/gate"
	"github.com/ErlanBelekov/docgate/internal/session"
	"github.com/ErlanBelekov/docgate/internal/transport/http/handler"
	"github.com/ErlanBelekov/docgate/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type RouterConfig struct {
	Gate  *gate.Gate
	Codec *session.Codec
	// Secure enables HSTS; set it when the site is served over HTTPS.
	Secure bool
}

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, pageHandler *handler.PageHandler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(cfg.Secure))
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.Gate(cfg.Gate))

	r.GET("/about", pageHandler.About)

	auth := r.Group("/api/auth")
	auth.POST("/request", authHandler.RequestMagicLink)
	auth.POST("/check-entity", authHandler.CheckEntity)
	auth.POST("/verify", authHandler.Verify)
	auth.POST("/logout", authHandler.Logout)

	me := r.Group("/api/me", middleware.Auth(cfg.Codec))
	me.GET("", authHandler.Me)
	me.PUT("/entity", authHandler.UpdateEntity)

	return r
}
