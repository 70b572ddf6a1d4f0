package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"geofriends-service/internal/models"
	"geofriends-service/internal/presence"
	"geofriends-service/internal/repositories"
)

// UserHandler serves profile, roster and admin user management endpoints.
type UserHandler struct {
	userRepo repositories.UserRepository
	settings repositories.SettingsRepository
	watcher  *presence.Watcher
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(userRepo repositories.UserRepository, settings repositories.SettingsRepository, watcher *presence.Watcher) *UserHandler {
	return &UserHandler{userRepo: userRepo, settings: settings, watcher: watcher}
}

// Me returns the authenticated user's record.
func (h *UserHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMe applies a self-service profile edit and recomputes the display
// name.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID := c.GetString("userID")

	var profile models.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := map[string]any{
		"firstName":  profile.FirstName,
		"lastName":   profile.LastName,
		"name":       profile.FirstName + " " + profile.LastName,
		"phone":      profile.Phone,
		"address":    profile.Address,
		"postalCode": profile.PostalCode,
		"city":       profile.City,
		"province":   profile.Province,
		"country":    profile.Country,
	}
	if profile.Avatar != "" {
		fields["avatar"] = profile.Avatar
	}

	if err := h.userRepo.UpdateFields(c.Request.Context(), userID, fields); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "profile updated"})
}

// Roster returns the approved, online users with a fresh location, for the
// map view. A requester without a fresh sample of their own gets an empty
// roster: a client that cannot confirm its own freshness does not get to
// trust anyone else's.
func (h *UserHandler) Roster(c *gin.Context) {
	userID := c.GetString("userID")

	timings, err := h.settings.GetTimings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load timing settings"})
		return
	}
	inactive := time.Duration(timings.GPSInactiveTime) * time.Second

	if !h.watcher.Fresh(userID, inactive) {
		c.JSON(http.StatusOK, gin.H{"users": []models.RosterEntry{}, "stale": true})
		return
	}

	users, err := h.userRepo.ListApproved(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	entries := make([]models.RosterEntry, 0, len(users))
	for _, u := range users {
		if !u.Online || u.Location == nil {
			continue
		}
		if !h.watcher.Fresh(u.ID, inactive) {
			continue
		}
		entries = append(entries, models.RosterEntry{
			ID:          u.ID,
			Name:        u.Name,
			Avatar:      u.Avatar,
			Role:        u.Role,
			ChatEnabled: u.ChatEnabled,
			Online:      u.Online,
			Location:    u.Location,
		})
	}

	c.JSON(http.StatusOK, gin.H{"users": entries, "stale": false})
}

// ListUsers returns every user record for the admin panel.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userRepo.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UpdateStatus moves a user through the approval state machine.
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	targetID := c.Param("user_id")

	var req struct {
		Status string `json:"status" binding:"required,oneof=pending aprobado suspended"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userRepo.UpdateFields(c.Request.Context(), targetID, map[string]any{"status": req.Status}); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not update status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}

// ToggleChat flips a user's chat access.
func (h *UserHandler) ToggleChat(c *gin.Context) {
	targetID := c.Param("user_id")

	user, err := h.userRepo.GetByID(c.Request.Context(), targetID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	if err := h.userRepo.UpdateFields(c.Request.Context(), targetID, map[string]any{"chatEnabled": !user.ChatEnabled}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not toggle chat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat_enabled": !user.ChatEnabled})
}

// DeleteUser removes a user record. No cross-entity cleanup: the user's
// messages and chats survive.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	targetID := c.Param("user_id")

	if err := h.userRepo.Delete(c.Request.Context(), targetID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not delete user"})
		return
	}

	c.Status(http.StatusNoContent)
}
