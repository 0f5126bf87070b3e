package middleware

import (
	"net/http"

	"github.com/ErlanBelekov/docgate/internal/reqctx"
	"github.com/ErlanBelekov/docgate/internal/session"
	"github.com/gin-gonic/gin"
)

const errUnauthorized = "Unauthorized"

// Context keys set by Auth.
const (
	UserIDKey     = "userID"
	CredentialKey = "sessionCredential"
)

// Auth validates the auth_session cookie and sets UserIDKey and
// CredentialKey in the gin context. API callers get a 401 instead of the
// gate's redirect.
func Auth(codec *session.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := session.FromRequest(c.Request)
		if cred == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		userID, ok := codec.Verify(cred)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Request = c.Request.WithContext(reqctx.WithUserID(c.Request.Context(), userID))
		c.Set(UserIDKey, userID)
		c.Set(CredentialKey, cred)
		c.Next()
	}
}
