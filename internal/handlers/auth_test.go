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

	"geofriends-service/internal/auth"
	"geofriends-service/internal/mocks"
	"geofriends-service/internal/models"
	"geofriends-service/internal/repositories"
)

const registerBody = `{
	"email": "ana@example.com",
	"password": "secret123",
	"first_name": "Ana",
	"last_name": "García",
	"phone": "600000000",
	"address": "Calle Mayor 1",
	"postal_code": "28001",
	"city": "Madrid",
	"province": "Madrid",
	"country": "España"
}`

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	r.POST("/auth/setup-admin", handler.SetupAdmin)
	r.POST("/auth/verify", handler.Verify)
	r.POST("/auth/resend", handler.Resend)
	return r
}

func newAuthHandler(userRepo *mocks.UserRepositoryMock, mailer *mocks.MailerMock) *AuthHandler {
	return NewAuthHandler(userRepo, mailer, auth.NewSessions("test-secret"), "boot@example.com", "bootpass")
}

func TestRegisterSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	mailer := new(mocks.MailerMock)
	router := setupAuthRouter(newAuthHandler(userRepo, mailer))

	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Email == "ana@example.com" &&
			u.Status == models.StatusPending &&
			u.Role == models.RoleUser &&
			u.ChatEnabled &&
			u.Name == "Ana García" &&
			len(u.VerificationToken) == 24 &&
			u.Password != "secret123"
	})).Return(nil).Once()
	mailer.On("SendVerificationEmail", "ana@example.com", mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(registerBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	userRepo.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	mailer := new(mocks.MailerMock)
	router := setupAuthRouter(newAuthHandler(userRepo, mailer))

	userRepo.On("Create", mock.Anything, mock.Anything).Return(repositories.ErrDuplicateEmail).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(registerBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	mailer.AssertNotCalled(t, "SendVerificationEmail", mock.Anything, mock.Anything)
	userRepo.AssertExpectations(t)
}

func TestRegisterInvalidPayload(t *testing.T) {
	router := setupAuthRouter(newAuthHandler(new(mocks.UserRepositoryMock), new(mocks.MailerMock)))

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{"email":"not-an-email"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetupAdminAlreadyExists(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(newAuthHandler(userRepo, new(mocks.MailerMock)))

	userRepo.On("FindAdmin", mock.Anything).Return(models.User{ID: "admin", Role: models.RoleAdmin}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/setup-admin", bytes.NewBufferString(`{"email":"admin@example.com","password":"secret123"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestSetupAdminCreatesApprovedAdmin(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	mailer := new(mocks.MailerMock)
	router := setupAuthRouter(newAuthHandler(userRepo, mailer))

	userRepo.On("FindAdmin", mock.Anything).Return(models.User{}, repositories.ErrUserNotFound).Once()
	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Role == models.RoleAdmin && u.Status == models.StatusApproved
	})).Return(nil).Once()
	mailer.On("SendVerificationEmail", "admin@example.com", mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/setup-admin", bytes.NewBufferString(`{"email":"admin@example.com","password":"secret123"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	userRepo.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestLoginBootstrapTriggersAdminSetup(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(newAuthHandler(userRepo, new(mocks.MailerMock)))

	userRepo.On("FindAdmin", mock.Anything).Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"boot@example.com","password":"bootpass"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["needs_admin_setup"])
	userRepo.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(newAuthHandler(userRepo, new(mocks.MailerMock)))

	hashed, err := auth.HashPassword("rightpass")
	require.NoError(t, err)
	userRepo.On("GetByEmail", mock.Anything, "ana@example.com").Return(models.User{ID: "u1", Email: "ana@example.com", Password: hashed}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"ana@example.com","password":"wrongpass"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestLoginUnverifiedEmail(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(newAuthHandler(userRepo, new(mocks.MailerMock)))

	hashed, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	userRepo.On("GetByEmail", mock.Anything, "ana@example.com").Return(models.User{
		ID: "u1", Email: "ana@example.com", Password: hashed, EmailVerified: false,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"ana@example.com","password":"secret123"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["needs_verification"])
	userRepo.AssertExpectations(t)
}

func TestLoginPendingApproval(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(newAuthHandler(userRepo, new(mocks.MailerMock)))

	hashed, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	userRepo.On("GetByEmail", mock.Anything, "ana@example.com").Return(models.User{
		ID: "u1", Email: "ana@example.com", Password: hashed, EmailVerified: true,
		Status: models.StatusPending, Role: models.RoleUser,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"ana@example.com","password":"secret123"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestLoginSuccessIssuesToken(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(newAuthHandler(userRepo, new(mocks.MailerMock)))

	hashed, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	userRepo.On("GetByEmail", mock.Anything, "ana@example.com").Return(models.User{
		ID: "u1", Email: "ana@example.com", Password: hashed, EmailVerified: true,
		Status: models.StatusApproved, Role: models.RoleUser,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"ana@example.com","password":"secret123"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp["token"])

	userID, role, err := auth.NewSessions("test-secret").Validate(resp["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, models.RoleUser, role)
	userRepo.AssertExpectations(t)
}

func TestVerifyInvalidToken(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(newAuthHandler(userRepo, new(mocks.MailerMock)))

	userRepo.On("GetByEmailAndToken", mock.Anything, "ana@example.com", "badtoken").Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/verify", bytes.NewBufferString(`{"email":"ana@example.com","token":"badtoken"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestVerifyClearsToken(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	router := setupAuthRouter(newAuthHandler(userRepo, new(mocks.MailerMock)))

	userRepo.On("GetByEmailAndToken", mock.Anything, "ana@example.com", "tok").Return(models.User{ID: "u1"}, nil).Once()
	userRepo.On("UpdateFields", mock.Anything, "u1", map[string]any{
		"emailVerified":     true,
		"verificationToken": "",
	}).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/verify", bytes.NewBufferString(`{"email":"ana@example.com","token":"tok"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestResendAlreadyVerified(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	mailer := new(mocks.MailerMock)
	router := setupAuthRouter(newAuthHandler(userRepo, mailer))

	userRepo.On("GetByEmail", mock.Anything, "ana@example.com").Return(models.User{ID: "u1", EmailVerified: true}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/resend", bytes.NewBufferString(`{"email":"ana@example.com"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	mailer.AssertNotCalled(t, "SendVerificationEmail", mock.Anything, mock.Anything)
	userRepo.AssertExpectations(t)
}
