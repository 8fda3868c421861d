package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireIdentity rejects requests that resolved to no usable identity.
// 401 tells the client to establish an identity (visit /auth/me or log in).
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := IdentityFromContext(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "identity_required",
				"message": "establish a guest session or log in first",
			})
			return
		}
		c.Next()
	}
}

// RequireQuota admits only identities with remaining allowance. Exhaustion
// is 402, deliberately distinct from 401 so clients route to top-up instead
// of login. Reading remaining here never changes it; consumption is the
// handler's explicit post-success step.
func RequireQuota() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := IdentityFromContext(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "identity_required",
				"message": "establish a guest session or log in first",
			})
			return
		}

		if RemainingFromContext(c) <= 0 {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error":   "quota_exhausted",
				"message": "free quota used up, register and top up to continue",
			})
			return
		}

		c.Next()
	}
}

// RequireAdmin admits only the administrator role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := IdentityFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "identity_required",
			})
			return
		}
		if !ident.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin_only",
			})
			return
		}
		c.Next()
	}
}
