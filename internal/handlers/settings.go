package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geofriends-service/internal/models"
	"geofriends-service/internal/repositories"
)

// SettingsHandler serves the branding and timing singletons.
type SettingsHandler struct {
	settings repositories.SettingsRepository
}

// NewSettingsHandler builds a SettingsHandler.
func NewSettingsHandler(settings repositories.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Branding returns the branding settings. Public: the login page needs them
// before authentication.
func (h *SettingsHandler) Branding(c *gin.Context) {
	branding, err := h.settings.GetBranding(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load branding"})
		return
	}
	c.JSON(http.StatusOK, branding)
}

// UpdateBranding validates and merge-writes the branding settings.
func (h *SettingsHandler) UpdateBranding(c *gin.Context) {
	var branding models.BrandingSettings
	if err := c.ShouldBindJSON(&branding); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.settings.UpdateBranding(c.Request.Context(), branding); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update branding"})
		return
	}
	c.JSON(http.StatusOK, branding)
}

// Timings returns the timing settings.
func (h *SettingsHandler) Timings(c *gin.Context) {
	timings, err := h.settings.GetTimings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load timings"})
		return
	}
	c.JSON(http.StatusOK, timings)
}

// UpdateTimings validates and merge-writes the timing settings.
func (h *SettingsHandler) UpdateTimings(c *gin.Context) {
	var timings models.TimingSettings
	if err := c.ShouldBindJSON(&timings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.settings.UpdateTimings(c.Request.Context(), timings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update timings"})
		return
	}
	c.JSON(http.StatusOK, timings)
}
