package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
	"taskboard/internal/service"
)

// AuthHandler mantiene dependencias para endpoints de autenticacion.
type AuthHandler struct {
	logger   *zap.Logger
	authServ *service.AuthService
	jwtServ  *service.JWTService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, jwtServ *service.JWTService) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		authServ: authServ,
		jwtServ:  jwtServ,
	}
}

type loginData struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Surname  string `json:"surname" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		fail(c, http.StatusBadRequest, "Name, surname, email and password are required")
		return
	}

	user, err := h.authServ.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			fail(c, http.StatusBadRequest, "Email already exists")
		case errors.Is(err, service.ErrMissingFields),
			errors.Is(err, service.ErrInvalidEmail),
			errors.Is(err, service.ErrWeakPassword):
			fail(c, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("register failed", zap.Error(err))
			fail(c, http.StatusInternalServerError, "Error creating user")
		}
		return
	}

	okData(c, http.StatusCreated, user)
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		fail(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.authServ.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// Mismo mensaje para email desconocido y password incorrecto.
			fail(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := h.jwtServ.IssueSessionToken(user.ID)
	if err != nil {
		h.logger.Error("issue session token failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	okData(c, http.StatusOK, loginData{User: user, Token: token})
}

// Logout maneja POST /auth/logout. No pasa por RequireAuth: revocar un token
// ya revocado tiene que seguir siendo un exito idempotente.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		fail(c, http.StatusUnauthorized, "Access denied. No token provided")
		return
	}
	if err := h.jwtServ.RevokeSessionToken(token); err != nil {
		h.logger.Error("revoke session token failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	okMessage(c, http.StatusOK, "Logged out successfully")
}

// ForgotPassword maneja POST /auth/forgot-password. La respuesta es generica
// exista o no la cuenta.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.authServ.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			fail(c, http.StatusBadRequest, "Invalid email format")
		case errors.Is(err, service.ErrRateLimited):
			fail(c, http.StatusTooManyRequests, "Too many reset requests. Please try again later.")
		default:
			h.logger.Error("forgot password failed", zap.Error(err))
			fail(c, http.StatusInternalServerError, "Server error")
		}
		return
	}

	okMessage(c, http.StatusOK, "If this email exists, a reset code was sent.")
}

// VerifyResetCode maneja POST /auth/verify-reset-code.
func (h *AuthHandler) VerifyResetCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Email and code are required")
		return
	}

	if err := h.authServ.VerifyResetCode(c.Request.Context(), req.Email, req.Code); err != nil {
		h.respondResetError(c, err, "verify reset code failed")
		return
	}

	okMessage(c, http.StatusOK, "Code verified successfully.")
}

// SetNewPassword maneja POST /auth/set-new-password.
func (h *AuthHandler) SetNewPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		Code        string `json:"code" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Email, code and newPassword are required")
		return
	}

	if err := h.authServ.SetNewPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.respondResetError(c, err, "set new password failed")
		return
	}

	okMessage(c, http.StatusOK, "Password reset successfully.")
}

func (h *AuthHandler) respondResetError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		fail(c, http.StatusBadRequest, "Invalid email format")
	case errors.Is(err, service.ErrResetCodeInvalid):
		fail(c, http.StatusBadRequest, "Invalid or expired code")
	case errors.Is(err, service.ErrWeakPassword):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(logMsg, zap.Error(err))
		fail(c, http.StatusInternalServerError, "Server error")
	}
}

// GetProfile maneja GET /auth/profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.authServ.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			fail(c, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("get profile failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	okData(c, http.StatusOK, profile)
}

// UpdateProfile maneja PUT /auth/profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req struct {
		Name    *string `json:"name"`
		Surname *string `json:"surname"`
		Email   *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.authServ.UpdateProfile(c.Request.Context(), user.ID, repository.ProfileUpdate{
		Name:    req.Name,
		Surname: req.Surname,
		Email:   req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoFields):
			fail(c, http.StatusBadRequest, "No valid fields provided for update")
		case errors.Is(err, service.ErrInvalidEmail):
			fail(c, http.StatusBadRequest, "Invalid email format")
		case errors.Is(err, repository.ErrDuplicateEmail):
			fail(c, http.StatusBadRequest, "Email is already taken by another user")
		case errors.Is(err, service.ErrUserNotFound):
			fail(c, http.StatusNotFound, "User not found")
		default:
			h.logger.Error("update profile failed", zap.Error(err))
			fail(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	okData(c, http.StatusOK, updated)
}

// ChangePassword maneja PUT /auth/change-password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Current and new password are required")
		return
	}

	err := h.authServ.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongPassword):
			fail(c, http.StatusBadRequest, "Current password is incorrect")
		case errors.Is(err, service.ErrWeakPassword):
			fail(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			fail(c, http.StatusNotFound, "User not found")
		default:
			h.logger.Error("change password failed", zap.Error(err))
			fail(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	okMessage(c, http.StatusOK, "Password changed successfully")
}

// ListUsers maneja GET /auth/all (solo admin).
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.authServ.ListUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	okData(c, http.StatusOK, users)
}

// DeleteUser maneja DELETE /auth/deleteUser/:id (solo admin).
func (h *AuthHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.authServ.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			fail(c, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("delete user failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Error deleting user")
		return
	}

	c.Status(http.StatusNoContent)
}
