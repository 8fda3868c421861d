package middleware

import (
	"github.com/gin-gonic/gin"

	"echolog/api/internal/models"
	"echolog/api/internal/service"
)

// Cookie names the identity resolver reads.
const (
	CookieSession = "access_token"
	CookieGuest   = "guest_id"
)

// Context keys set by Identity for downstream gates and handlers.
const (
	ContextIdentity  = "identity"
	ContextRemaining = "remaining"
)

// Identity resolves the caller from cookies and attaches the result to the
// request context. It never aborts: bad or missing credentials leave the
// request unauthenticated and only the gates below reject.
func Identity(resolver *service.IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken, _ := c.Cookie(CookieSession)
		guestToken, _ := c.Cookie(CookieGuest)

		if ident, remaining, ok := resolver.Resolve(c.Request.Context(), sessionToken, guestToken); ok {
			c.Set(ContextIdentity, ident)
			c.Set(ContextRemaining, remaining)
		}

		c.Next()
	}
}

// IdentityFromContext returns the resolved identity, if any.
func IdentityFromContext(c *gin.Context) (models.Identity, bool) {
	val, exists := c.Get(ContextIdentity)
	if !exists {
		return models.Identity{}, false
	}
	ident, ok := val.(models.Identity)
	return ident, ok
}

// RemainingFromContext returns the remaining allowance resolved with the
// identity.
func RemainingFromContext(c *gin.Context) int {
	return c.GetInt(ContextRemaining)
}
