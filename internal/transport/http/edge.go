package httptransport

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/ErlanBelekov/docgate/internal/gate"
	"github.com/ErlanBelekov/docgate/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

// NewEdgeRouter fronts upstream with the gate and nothing else. It needs
// only the session secret, never the database.
func NewEdgeRouter(logger *slog.Logger, g *gate.Gate, upstream *url.URL) *gin.Engine {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	direct := proxy.Director
	// Upstream sees the same path the gate decided on.
	proxy.Director = func(r *http.Request) {
		if cleaned := gate.CleanPath(r.URL.Path); cleaned != r.URL.Path {
			r.URL.Path = cleaned
			r.URL.RawPath = ""
		}
		direct(r)
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.ErrorContext(r.Context(), "edge upstream", "error", err)
		w.WriteHeader(http.StatusBadGateway)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.Gate(g))

	r.NoRoute(func(c *gin.Context) {
		proxy.ServeHTTP(c.Writer, c.Request)
	})
	return r
}
