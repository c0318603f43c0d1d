package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
)

// ErrorResponse is the generic error payload with a trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request's trace ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse is a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest defines the credential login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// GoogleLoginRequest carries the OAuth authorization code.
type GoogleLoginRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyEmailRequest carries the raw verification token from the email link.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// ForgotPasswordRequest starts the password reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest redeems a reset token with a replacement password.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// BulkOnboardingRequest updates onboarding state for a batch of identities.
type BulkOnboardingRequest struct {
	IdentityIDs []string `json:"identity_ids" binding:"required"`
	Step        int      `json:"step"`
	Completed   bool     `json:"completed"`
}

// BulkOnboardingResponse reports how many identities were updated.
type BulkOnboardingResponse struct {
	Updated int `json:"updated"`
}

// AuthResponse is returned by every flow that issues tokens.
type AuthResponse struct {
	AccessToken    string                   `json:"access_token"`
	RefreshToken   string                   `json:"refresh_token"`
	TokenType      string                   `json:"token_type"`
	User           domain.SanitizedIdentity `json:"user"`
	IsNewUser      bool                     `json:"is_new_user,omitempty"`
	OnboardingStep int                      `json:"onboarding_step"`
}

// UserResponse wraps the sanitized identity for profile endpoints.
type UserResponse struct {
	User domain.SanitizedIdentity `json:"user"`
}

// SessionsRevokedResponse reports how many sessions were removed.
type SessionsRevokedResponse struct {
	Revoked int `json:"revoked"`
}
