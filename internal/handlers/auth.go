package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"geofriends-service/internal/auth"
	"geofriends-service/internal/logger"
	"geofriends-service/internal/mail"
	"geofriends-service/internal/models"
	"geofriends-service/internal/repositories"
)

const placeholderAvatar = "https://placehold.co/100x100.png"

// AuthHandler manages registration, login and email verification.
type AuthHandler struct {
	userRepo      repositories.UserRepository
	mailer        mail.Mailer
	sessions      *auth.Sessions
	adminEmail    string
	adminPassword string
}

// NewAuthHandler builds an AuthHandler. adminEmail/adminPassword are the
// bootstrap credentials that unlock first-run admin setup.
func NewAuthHandler(userRepo repositories.UserRepository, mailer mail.Mailer, sessions *auth.Sessions, adminEmail, adminPassword string) *AuthHandler {
	return &AuthHandler{
		userRepo:      userRepo,
		mailer:        mailer,
		sessions:      sessions,
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	models.Profile
}

// Register creates a pending user and dispatches the verification email.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process password"})
		return
	}
	token, err := auth.NewVerificationToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create verification token"})
		return
	}

	user := newUser(req.Email, hashed, token, req.Profile)
	user.Status = models.StatusPending
	user.Role = models.RoleUser

	if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	// The user record survives a failed send; the token is recoverable via
	// resend.
	if err := h.mailer.SendVerificationEmail(user.Email, token); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "user created but verification email failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "registration received, pending approval"})
}

type setupAdminRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// SetupAdmin creates the single admin account. Only valid while no admin
// record exists.
func (h *AuthHandler) SetupAdmin(c *gin.Context) {
	var req setupAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.userRepo.FindAdmin(c.Request.Context()); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "admin already exists"})
		return
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check admin"})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process password"})
		return
	}
	token, err := auth.NewVerificationToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create verification token"})
		return
	}

	user := newUser(req.Email, hashed, token, models.Profile{FirstName: "Admin", LastName: "GeoFriends"})
	user.Status = models.StatusApproved
	user.Role = models.RoleAdmin

	if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create admin"})
		return
	}

	if err := h.mailer.SendVerificationEmail(user.Email, token); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "admin created but verification email failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "admin created"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a user and issues a session token. The bootstrap admin
// credentials trigger first-run setup while no admin record exists yet.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.adminEmail != "" && req.Email == h.adminEmail && req.Password == h.adminPassword {
		if _, err := h.userRepo.FindAdmin(c.Request.Context()); errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusOK, gin.H{"needs_admin_setup": true})
			return
		}
	}

	user, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
		return
	}
	if !user.EmailVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "email not verified", "needs_verification": true})
		return
	}
	if user.Status == models.StatusSuspended {
		c.JSON(http.StatusForbidden, gin.H{"error": "account suspended"})
		return
	}
	if !user.IsApproved() && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "account pending approval"})
		return
	}

	token, err := h.sessions.Issue(user.ID, user.Role)
	if err != nil {
		logger.Errorf("session issue failed user=%s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

type verifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required"`
}

// Verify consumes a verification token. Tokens are single-use.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetByEmailAndToken(c.Request.Context(), req.Email, req.Token)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	err = h.userRepo.UpdateFields(c.Request.Context(), user.ID, map[string]any{
		"emailVerified":     true,
		"verificationToken": "",
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

type resendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Resend issues a fresh verification token, invalidating the previous one.
func (h *AuthHandler) Resend(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resend failed"})
		return
	}
	if user.EmailVerified {
		c.JSON(http.StatusConflict, gin.H{"error": "email already verified"})
		return
	}

	token, err := auth.NewVerificationToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create verification token"})
		return
	}
	if err := h.userRepo.UpdateFields(c.Request.Context(), user.ID, map[string]any{"verificationToken": token}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resend failed"})
		return
	}
	if err := h.mailer.SendVerificationEmail(user.Email, token); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not send verification email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "verification email sent"})
}

func newUser(email, hashedPassword, token string, profile models.Profile) models.User {
	avatar := profile.Avatar
	if avatar == "" {
		avatar = placeholderAvatar
	}
	return models.User{
		ID:                uuid.NewString(),
		Name:              profile.FirstName + " " + profile.LastName,
		FirstName:         profile.FirstName,
		LastName:          profile.LastName,
		Email:             email,
		Password:          hashedPassword,
		Phone:             profile.Phone,
		Address:           profile.Address,
		PostalCode:        profile.PostalCode,
		City:              profile.City,
		Province:          profile.Province,
		Country:           profile.Country,
		Avatar:            avatar,
		EmailVerified:     false,
		VerificationToken: token,
		ChatEnabled:       true,
		CreatedAt:         time.Now().UTC(),
	}
}
