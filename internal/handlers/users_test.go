package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"geofriends-service/internal/mocks"
	"geofriends-service/internal/models"
	"geofriends-service/internal/presence"
)

func setupUserRouter(handler *UserHandler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	r.GET("/roster", handler.Roster)
	r.POST("/admin/users/:user_id/chat-toggle", handler.ToggleChat)
	return r
}

func defaultTimingsMock(settings *mocks.SettingsRepositoryMock) {
	settings.On("GetTimings", mock.Anything).Return(models.DefaultTimings(), nil).Once()
}

func TestRosterStaleRequesterGetsEmptyRoster(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	settings := new(mocks.SettingsRepositoryMock)
	watcher := presence.NewWatcher()
	router := setupUserRouter(NewUserHandler(userRepo, settings, watcher), "u1")

	defaultTimingsMock(settings)

	req := httptest.NewRequest(http.MethodGet, "/roster", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []models.RosterEntry `json:"users"`
		Stale bool                 `json:"stale"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Stale)
	assert.Empty(t, resp.Users)
	userRepo.AssertNotCalled(t, "ListApproved", mock.Anything)
}

func TestRosterListsFreshOnlineUsers(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	settings := new(mocks.SettingsRepositoryMock)
	watcher := presence.NewWatcher()
	router := setupUserRouter(NewUserHandler(userRepo, settings, watcher), "u1")

	defaultTimingsMock(settings)
	watcher.Observe("u1")
	watcher.Observe("u2")

	loc := &models.Location{Lat: 40.4, Lng: -3.7}
	userRepo.On("ListApproved", mock.Anything).Return([]models.User{
		{ID: "u1", Name: "Ana", Status: models.StatusApproved, Online: true, Location: loc},
		{ID: "u2", Name: "Bea", Status: models.StatusApproved, Online: true, Location: loc},
		// Online but without a fresh sample: filtered out.
		{ID: "u3", Name: "Carlos", Status: models.StatusApproved, Online: true, Location: loc},
		// Offline: filtered out.
		{ID: "u4", Name: "David", Status: models.StatusApproved, Online: false},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/roster", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []models.RosterEntry `json:"users"`
		Stale bool                 `json:"stale"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Stale)
	require.Len(t, resp.Users, 2)
	assert.Equal(t, "u1", resp.Users[0].ID)
	assert.Equal(t, "u2", resp.Users[1].ID)
	userRepo.AssertExpectations(t)
}

func TestToggleChatFlipsFlag(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	settings := new(mocks.SettingsRepositoryMock)
	router := setupUserRouter(NewUserHandler(userRepo, settings, presence.NewWatcher()), "admin")

	userRepo.On("GetByID", mock.Anything, "u2").Return(models.User{ID: "u2", ChatEnabled: true}, nil).Once()
	userRepo.On("UpdateFields", mock.Anything, "u2", map[string]any{"chatEnabled": false}).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/admin/users/u2/chat-toggle", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, false, resp["chat_enabled"])
	userRepo.AssertExpectations(t)
}
