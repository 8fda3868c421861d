package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"echolog/api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// injectIdentity stands in for the resolver middleware in gate tests.
func injectIdentity(ident models.Identity, remaining int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextIdentity, ident)
		c.Set(ContextRemaining, remaining)
		c.Next()
	}
}

func performGated(t *testing.T, middlewares ...gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Use(middlewares...)
	router.POST("/action", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/action", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRequireIdentityRejectsAnonymous(t *testing.T) {
	w := performGated(t, RequireIdentity())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "identity_required")
}

func TestRequireIdentityAdmitsGuest(t *testing.T) {
	w := performGated(t, injectIdentity(models.GuestIdentity("g1"), 3), RequireIdentity())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireQuotaAnonymousIsUnauthorizedNotPayment(t *testing.T) {
	// Missing identity and exhausted quota must stay distinguishable.
	w := performGated(t, RequireQuota())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "identity_required")
}

func TestRequireQuotaExhausted(t *testing.T) {
	w := performGated(t, injectIdentity(models.GuestIdentity("g2"), 0), RequireQuota())
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "quota_exhausted")
}

func TestRequireQuotaAdmitsRemaining(t *testing.T) {
	w := performGated(t, injectIdentity(models.GuestIdentity("g3"), 1), RequireQuota())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireQuotaAdmitsAdmin(t *testing.T) {
	admin := models.UserIdentity(models.User{ID: "root", Email: "admin@local", Role: models.UserRoleAdmin})
	w := performGated(t, injectIdentity(admin, models.UnlimitedRemaining), RequireQuota())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdminRejectsRegularUser(t *testing.T) {
	user := models.UserIdentity(models.User{ID: "u1", Email: "a@b.c", Role: models.UserRoleUser, Balance: 10})
	w := performGated(t, injectIdentity(user, 10), RequireIdentity(), RequireAdmin())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "admin_only")
}

func TestRequireAdminRejectsGuest(t *testing.T) {
	w := performGated(t, injectIdentity(models.GuestIdentity("g4"), 3), RequireAdmin())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdminAdmitsAdmin(t *testing.T) {
	admin := models.UserIdentity(models.User{ID: "root", Email: "admin@local", Role: models.UserRoleAdmin})
	w := performGated(t, injectIdentity(admin, models.UnlimitedRemaining), RequireIdentity(), RequireAdmin())
	assert.Equal(t, http.StatusOK, w.Code)
}
