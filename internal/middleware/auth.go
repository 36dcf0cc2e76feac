package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-chat/internal/identity"
	"campus-chat/internal/models"
)

// IdentityContextKey is where the authenticated identity lives in the gin
// context.
const IdentityContextKey = "identity"

// IdentityMiddleware validates the Authorization header and attaches the
// caller's identity to the request context.
func IdentityMiddleware(verifier *identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		ident, err := verifier.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(IdentityContextKey, ident)
		c.Next()
	}
}

// IdentityFromContext retrieves the identity set by IdentityMiddleware.
func IdentityFromContext(c *gin.Context) (models.Identity, bool) {
	val, ok := c.Get(IdentityContextKey)
	if !ok {
		return models.Identity{}, false
	}
	ident, ok := val.(models.Identity)
	return ident, ok
}
