package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"echolog/api/internal/repository"
	"echolog/api/internal/service"
)

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	users, err := h.usage.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUserResponse(u))
	}

	c.JSON(http.StatusOK, gin.H{"users": items})
}

type addBalanceRequest struct {
	UserID string `json:"userId" binding:"required"`
	Amount int    `json:"amount" binding:"required"`
}

func (h HandlerSet) AdminAddBalance(c *gin.Context) {
	var req addBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance, err := h.usage.TopUp(c.Request.Context(), req.UserID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTopUpAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount_must_be_positive"})
		case errors.Is(err, repository.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":     req.UserID,
		"newBalance": balance,
	})
}
