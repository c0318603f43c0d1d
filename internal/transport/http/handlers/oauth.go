package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AudereSemper/kokoru-garden-api/internal/usecase"
)

// OAuthHandler exposes the federated login endpoint.
type OAuthHandler struct {
	auth *usecase.AuthService
}

// NewOAuthHandler constructs OAuthHandler.
func NewOAuthHandler(auth *usecase.AuthService) *OAuthHandler {
	return &OAuthHandler{auth: auth}
}

// RegisterRoutes binds the OAuth routes.
func (h *OAuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/google", h.googleLogin)
}

// GoogleLogin godoc
// @Summary Authenticate through Google
// @Description Exchanges the OAuth authorization code, verifies the Google ID token, and issues a local token pair.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body GoogleLoginRequest true "OAuth payload"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Federated authentication failed"
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/auth/google [post]
func (h *OAuthHandler) googleLogin(c *gin.Context) {
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "code is required"))
		return
	}

	result, err := h.auth.GoogleLogin(c.Request.Context(), req.Code)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}
