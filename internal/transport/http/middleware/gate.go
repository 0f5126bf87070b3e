package middleware

import (
	"net/http"

	"github.com/ErlanBelekov/docgate/internal/gate"
	"github.com/gin-gonic/gin"
)

// Gate runs the edge gate ahead of routing. Requests without a valid
// session on a non-public path are sent to the landing page.
func Gate(g *gate.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.Decide(c.Request) == gate.Redirected {
			c.Redirect(http.StatusTemporaryRedirect, gate.LandingPath)
			c.Abort()
			return
		}
		c.Next()
	}
}
