package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	appidentity "github.com/stocklink/pos/internal/application/identity"
	"github.com/stocklink/pos/internal/interfaces/http/middleware"
)

// AuthService is the identity surface used by AuthHandler
type AuthService interface {
	Register(ctx context.Context, input appidentity.RegisterInput) (*appidentity.UserResponse, error)
	Login(ctx context.Context, input appidentity.LoginInput) (*appidentity.LoginResult, error)
	ResetPassword(ctx context.Context, input appidentity.ResetPasswordInput) error
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	Me(ctx context.Context, userID int64) (*appidentity.UserResponse, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	BaseHandler
	auth AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register godoc
// @Summary      Register a till operator
// @Tags         auth
// @Accept       json
// @Param        request body appidentity.RegisterInput true "User"
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req appidentity.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	user, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// Login godoc
// @Summary      User login
// @Description  Authenticate with email and password and receive an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body appidentity.LoginInput true "Login credentials"
// @Success      200 {object} dto.Response{data=appidentity.LoginResult}
// @Failure      401 {object} dto.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req appidentity.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Logout revokes the caller's token
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := h.auth.Logout(c.Request.Context(), claims.ID, expiresAt); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Me returns the authenticated user
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.GetJWTUserID(c)
	if userID == 0 {
		h.Unauthorized(c, "Authentication required")
		return
	}
	user, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ResetPassword sets a new password for a user. Admin only.
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req appidentity.ResetPasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
