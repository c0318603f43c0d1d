package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the Authorization header against the token engine and
// stores the verified claims on the request context. Revoked access tokens are
// rejected the same way as invalid ones.
func RequireAuth(tokens port.TokenEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		claims, err := tokens.VerifyAccessToken(c.Request.Context(), token)
		if err != nil {
			switch {
			case domain.IsKind(err, domain.KindTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token expired"))
			case domain.IsKind(err, domain.KindInvalidToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid access token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(IdentityIDKey, claims.IdentityID)
		c.Set("claims", claims)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.IdentityID = claims.IdentityID
		}

		c.Next()
	}
}

// GetAuthenticatedIdentityID retrieves the identity ID from context (helper
// for handlers).
func GetAuthenticatedIdentityID(c *gin.Context) (string, bool) {
	identityID, exists := c.Get(IdentityIDKey)
	if !exists {
		return "", false
	}

	if id, ok := identityID.(string); ok && id != "" {
		return id, true
	}

	return "", false
}

// GetAccessTokenClaims retrieves the verified claims stored by RequireAuth.
func GetAccessTokenClaims(c *gin.Context) *domain.TokenClaims {
	raw, exists := c.Get("claims")
	if !exists {
		return nil
	}

	claims, ok := raw.(*domain.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
