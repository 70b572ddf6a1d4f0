package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"geofriends-service/internal/mail"
	"geofriends-service/internal/repositories"
)

// SupportHandler forwards member support requests to the admin by email.
type SupportHandler struct {
	userRepo repositories.UserRepository
	mailer   mail.Mailer
}

// NewSupportHandler builds a SupportHandler.
func NewSupportHandler(userRepo repositories.UserRepository, mailer mail.Mailer) *SupportHandler {
	return &SupportHandler{userRepo: userRepo, mailer: mailer}
}

// Send delivers a support message from the authenticated user to the admin.
func (h *SupportHandler) Send(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Message string `json:"message" binding:"required,min=10"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	admin, err := h.userRepo.FindAdmin(c.Request.Context())
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no admin configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "support request failed"})
		return
	}

	if err := h.mailer.SendSupportEmail(admin.Email, user.Email, user.Name, req.Message); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not send support email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "support request sent"})
}
