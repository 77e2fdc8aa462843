package middleware

import (
	"net/http"

	"helpdesk-realtime-api/internal/auth"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// JWTAuthMiddleware validates the bearer token (header or ?token=) and stores
// the resulting principal in the gin context.
func JWTAuthMiddleware(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := auth.BearerToken(c.Request)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
			})
			return
		}

		principal, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil || principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		// Store user info in context for use in handlers
		c.Set(principalKey, principal)
		c.Set("user_id", principal.ID)
		c.Set("username", principal.DisplayName())

		c.Next()
	}
}

// CurrentPrincipal returns the principal stored by JWTAuthMiddleware.
func CurrentPrincipal(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok && p != nil
}
