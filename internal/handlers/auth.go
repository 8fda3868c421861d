package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"echolog/api/internal/middleware"
	"echolog/api/internal/models"
	"echolog/api/internal/repository"
	"echolog/api/internal/service"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Balance int    `json:"balance"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:      u.ID,
		Email:   u.Email,
		Role:    string(u.Role),
		Balance: u.Balance,
	}
}

func (h HandlerSet) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieSession, token, h.auth.SessionTTL(), "/", "", false, true)
	// A logged-in client no longer needs its guest allowance; the record is
	// abandoned, not merged.
	c.SetCookie(middleware.CookieGuest, "", -1, "/", "", false, true)
}

func (h HandlerSet) setGuestCookie(c *gin.Context, guestID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieGuest, guestID, h.auth.SessionTTL(), "/", "", false, true)
}

func (h HandlerSet) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email_already_registered"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Best-effort; a failed mail never fails the registration.
	h.mailer.SendWelcome(user.Email)

	token, err := h.auth.IssueSession(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.setSessionCookie(c, token)

	c.JSON(http.StatusOK, gin.H{
		"user":    toUserResponse(user),
		"message": "registered, top up to start using",
	})
}

func (h HandlerSet) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token, err := h.auth.IssueSession(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.setSessionCookie(c, token)

	remaining := user.Balance
	if user.IsAdmin() {
		remaining = models.UnlimitedRemaining
	}

	c.JSON(http.StatusOK, gin.H{
		"user":      toUserResponse(user),
		"remaining": remaining,
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieSession, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

// Me reports the caller's identity and remaining allowance. It is the only
// endpoint allowed to mint a fresh guest allowance: a caller with no
// credential at all gets a new guest id via Set-Cookie for reuse.
func (h HandlerSet) Me(c *gin.Context) {
	if ident, ok := middleware.IdentityFromContext(c); ok {
		remaining := middleware.RemainingFromContext(c)
		switch ident.Kind {
		case models.IdentityKindUser:
			c.JSON(http.StatusOK, gin.H{
				"type": "user",
				"user": userResponse{
					ID:      ident.UserID,
					Email:   ident.Email,
					Role:    string(ident.Role),
					Balance: ident.Balance,
				},
				"remaining": remaining,
			})
		case models.IdentityKindGuest:
			c.JSON(http.StatusOK, gin.H{
				"type":      "guest",
				"guestId":   ident.GuestID,
				"remaining": remaining,
			})
		}
		return
	}

	ident, remaining, err := h.usage.EstablishGuest(c.Request.Context(), "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.setGuestCookie(c, ident.GuestID)

	c.JSON(http.StatusOK, gin.H{
		"type":      "guest",
		"guestId":   ident.GuestID,
		"remaining": remaining,
	})
}
