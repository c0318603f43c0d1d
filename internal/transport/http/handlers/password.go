package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AudereSemper/kokoru-garden-api/internal/usecase"
)

// PasswordHandler exposes the password reset endpoints.
type PasswordHandler struct {
	auth *usecase.AuthService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(auth *usecase.AuthService) *PasswordHandler {
	return &PasswordHandler{auth: auth}
}

// RegisterRoutes binds the reset routes. resetMiddlewares run ahead of both
// handlers (edge throttling).
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, resetMiddlewares ...gin.HandlerFunc) {
	if len(resetMiddlewares) > 0 {
		r.Use(resetMiddlewares...)
	}
	r.POST("/forgot", h.forgotPassword)
	r.POST("/reset", h.resetPassword)
}

// ForgotPassword godoc
// @Summary Request a password reset email
// @Description Always answers 200 with the same message whether or not the address is registered.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Forgot password payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails "Rate limit exceeded"
// @Router /api/v1/password/forgot [post]
func (h *PasswordHandler) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email is required"))
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), strings.TrimSpace(req.Email)); err != nil {
		RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Message: "if the email is registered, a reset link has been sent",
	})
}

// ResetPassword godoc
// @Summary Redeem a reset token with a new password
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Token invalid or expired"
// @Router /api/v1/password/reset [post]
func (h *PasswordHandler) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token and password are required"))
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password has been reset"})
}
