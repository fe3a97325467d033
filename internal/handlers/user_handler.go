package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/middleware"
	"github.com/hotelpms/hotel-backend/internal/services"
)

// UserHandler handles the signed-in user's own account
type UserHandler struct {
	auth   AuthService
	logger *logrus.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(auth AuthService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		auth:   auth,
		logger: logger,
	}
}

// UpdateProfileRequest represents the editable profile fields
type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// WithdrawRequest re-confirms the password before withdrawal
type WithdrawRequest struct {
	Password string `json:"password" binding:"required"`
}

// GetProfile handles GET /api/users/me
func (h *UserHandler) GetProfile(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	user, err := h.auth.GetProfile(c.Request.Context(), userCtx.UserID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /api/users/me
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name and email are required")
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), userCtx.UserID, services.ProfileInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword handles PUT /api/users/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "current_password, new_password and confirm_password are required")
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), userCtx.UserID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Password changed. Please log in again."})
}

// Withdraw handles DELETE /api/users/me
func (h *UserHandler) Withdraw(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "password is required")
		return
	}

	if err := h.auth.Withdraw(c.Request.Context(), userCtx.UserID, req.Password); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Account withdrawn. It can be restored until the grace period ends."})
}

// Restore handles POST /api/users/me/restore. It is reached without a token.
func (h *UserHandler) Restore(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}

	user, err := h.auth.Restore(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
