package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AudereSemper/kokoru-garden-api/internal/transport/http/middleware"
	"github.com/AudereSemper/kokoru-garden-api/internal/usecase"
)

// AuthHandler exposes the credential authentication endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds the auth routes. loginMiddlewares run ahead of the
// login handler only (edge throttling).
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, requireAuth gin.HandlerFunc, loginMiddlewares ...gin.HandlerFunc) {
	r.POST("/register", h.register)

	chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	chain = append(chain, h.login)
	r.POST("/login", chain...)

	r.POST("/refresh", h.refresh)
	r.POST("/logout", requireAuth, h.logout)
	r.GET("/me", requireAuth, h.me)
	r.POST("/sessions/revoke-all", requireAuth, h.revokeAllSessions)
}

// Register godoc
// @Summary Register a new account
// @Description Creates a local identity with the supplied email and password, issues tokens, and sends a verification email.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration payload"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	result, err := h.auth.Register(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newAuthResponse(result))
}

// Login godoc
// @Summary Authenticate with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 423 {object} ErrorResponse "Account temporarily locked"
// @Failure 429 {object} middleware.ProblemDetails "Rate limit exceeded"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

// Refresh godoc
// @Summary Rotate the token pair
// @Description Verifies the refresh token against the stored slot and issues a fresh pair; the old refresh token stops working.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh payload"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

// Logout godoc
// @Summary Logout the current identity
// @Description Clears the stored refresh token. Access tokens stay valid until natural expiry.
// @Tags Authentication
// @Produce json
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	identityID, ok := middleware.GetAuthenticatedIdentityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), identityID); err != nil {
		RespondWithDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Me godoc
// @Summary Current identity profile
// @Tags Authentication
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) me(c *gin.Context) {
	identityID, ok := middleware.GetAuthenticatedIdentityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.auth.GetCurrentUser(c.Request.Context(), identityID)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{User: *user})
}

// RevokeAllSessions godoc
// @Summary Revoke every live session
// @Tags Authentication
// @Produce json
// @Success 200 {object} SessionsRevokedResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/sessions/revoke-all [post]
func (h *AuthHandler) revokeAllSessions(c *gin.Context) {
	identityID, ok := middleware.GetAuthenticatedIdentityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	revoked, err := h.auth.RevokeAllSessions(c.Request.Context(), identityID)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, SessionsRevokedResponse{Revoked: revoked})
}

func newAuthResponse(result *usecase.AuthResult) AuthResponse {
	return AuthResponse{
		AccessToken:    result.Tokens.AccessToken,
		RefreshToken:   result.Tokens.RefreshToken,
		TokenType:      "Bearer",
		User:           result.Identity,
		IsNewUser:      result.IsNewUser,
		OnboardingStep: result.RequiresStep,
	}
}
