package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AudereSemper/kokoru-garden-api/internal/transport/http/middleware"
	"github.com/AudereSemper/kokoru-garden-api/internal/usecase"
)

// VerificationHandler exposes the email verification endpoints.
type VerificationHandler struct {
	auth *usecase.AuthService
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(auth *usecase.AuthService) *VerificationHandler {
	return &VerificationHandler{auth: auth}
}

// RegisterRoutes binds the verification routes.
func (h *VerificationHandler) RegisterRoutes(r *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	r.POST("/verify", h.verifyEmail)
	r.POST("/resend", requireAuth, h.resendVerification)
}

// VerifyEmail godoc
// @Summary Redeem an email verification token
// @Tags Verification
// @Accept json
// @Produce json
// @Param request body VerifyEmailRequest true "Verification payload"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Token invalid or expired"
// @Router /api/v1/email/verify [post]
func (h *VerificationHandler) verifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token is required"))
		return
	}

	user, err := h.auth.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{User: *user})
}

// ResendVerification godoc
// @Summary Resend the verification email
// @Description Subject to a per-identity cooldown; repeated calls return 429 with a Retry-After header.
// @Tags Verification
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails "Cooldown active"
// @Router /api/v1/email/resend [post]
func (h *VerificationHandler) resendVerification(c *gin.Context) {
	identityID, ok := middleware.GetAuthenticatedIdentityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.auth.ResendVerification(c.Request.Context(), identityID); err != nil {
		RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification email sent"})
}
