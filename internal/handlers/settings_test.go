package handlers

import (
	"bytes"
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
)

func setupSettingsRouter(handler *SettingsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/settings/branding", handler.Branding)
	r.PUT("/admin/settings/branding", handler.UpdateBranding)
	r.GET("/admin/settings/timings", handler.Timings)
	r.PUT("/admin/settings/timings", handler.UpdateTimings)
	return r
}

func TestBrandingReturnsDefaults(t *testing.T) {
	settings := new(mocks.SettingsRepositoryMock)
	router := setupSettingsRouter(NewSettingsHandler(settings))

	settings.On("GetBranding", mock.Anything).Return(models.DefaultBranding(), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/settings/branding", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.BrandingSettings
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "GeoFriends", resp.SiteName)
	assert.Equal(t, float64(1), resp.MarkerOpacity)
	settings.AssertExpectations(t)
}

func TestUpdateBrandingRejectsOpacityOutOfRange(t *testing.T) {
	settings := new(mocks.SettingsRepositoryMock)
	router := setupSettingsRouter(NewSettingsHandler(settings))

	body := `{"site_name":"GeoFriends","copyright":"c","developer":"d","marker_opacity":1.5}`
	req := httptest.NewRequest(http.MethodPut, "/admin/settings/branding", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	settings.AssertNotCalled(t, "UpdateBranding", mock.Anything, mock.Anything)
}

func TestUpdateBrandingRejectsInvalidURL(t *testing.T) {
	settings := new(mocks.SettingsRepositoryMock)
	router := setupSettingsRouter(NewSettingsHandler(settings))

	body := `{"site_name":"GeoFriends","copyright":"c","developer":"d","developer_web":"not a url","marker_opacity":1}`
	req := httptest.NewRequest(http.MethodPut, "/admin/settings/branding", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	settings.AssertNotCalled(t, "UpdateBranding", mock.Anything, mock.Anything)
}

func TestUpdateTimingsSuccess(t *testing.T) {
	settings := new(mocks.SettingsRepositoryMock)
	router := setupSettingsRouter(NewSettingsHandler(settings))

	want := models.TimingSettings{EditMessageTime: 30, DeleteMessageTime: 60, GPSInactiveTime: 120, GPSQueryTimeout: 5000}
	settings.On("UpdateTimings", mock.Anything, want).Return(nil).Once()

	body := `{"edit_message_time":30,"delete_message_time":60,"gps_inactive_time":120,"gps_query_timeout":5000}`
	req := httptest.NewRequest(http.MethodPut, "/admin/settings/timings", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	settings.AssertExpectations(t)
}

func TestUpdateTimingsRejectsShortQueryTimeout(t *testing.T) {
	settings := new(mocks.SettingsRepositoryMock)
	router := setupSettingsRouter(NewSettingsHandler(settings))

	body := `{"edit_message_time":0,"delete_message_time":0,"gps_inactive_time":60,"gps_query_timeout":500}`
	req := httptest.NewRequest(http.MethodPut, "/admin/settings/timings", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	settings.AssertNotCalled(t, "UpdateTimings", mock.Anything, mock.Anything)
}
