package handlers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/transport/http/middleware"
)

const rateLimitProblemType = "https://api.kokoru.garden/errors/rate-limit-exceeded"

// RespondWithDomainError translates a classified service error into its HTTP
// representation. Unclassified errors collapse to a plain 500 so nothing
// internal leaks to the client.
func RespondWithDomainError(c *gin.Context, err error) {
	domErr, ok := domain.AsError(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
		return
	}

	switch domErr.Kind {
	case domain.KindValidation:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, domErr.Message))
	case domain.KindConflict, domain.KindUniqueConstraint:
		c.JSON(http.StatusConflict, NewErrorResponse(c, domErr.Message))
	case domain.KindAuthentication, domain.KindInvalidToken, domain.KindTokenExpired:
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, domErr.Message))
	case domain.KindAuthorization:
		c.JSON(http.StatusForbidden, NewErrorResponse(c, domErr.Message))
	case domain.KindAccountLocked:
		respondAccountLocked(c, domErr)
	case domain.KindRateLimit:
		respondRateLimited(c, domErr)
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
	}
}

func respondAccountLocked(c *gin.Context, domErr *domain.Error) {
	if domErr.LockedUntil != nil {
		seconds := int(math.Ceil(time.Until(*domErr.LockedUntil).Seconds()))
		if seconds > 0 {
			c.Header("Retry-After", strconv.Itoa(seconds))
		}
	}
	c.JSON(http.StatusLocked, NewErrorResponse(c, domErr.Message))
}

// respondRateLimited emits an RFC 9457 problem payload with a Retry-After
// header, matching the shape the throttling middleware uses.
func respondRateLimited(c *gin.Context, domErr *domain.Error) {
	retrySeconds := int(math.Ceil(domErr.RetryAfter.Seconds()))
	if retrySeconds < 0 {
		retrySeconds = 0
	}
	c.Header("Retry-After", strconv.Itoa(retrySeconds))

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.JSON(http.StatusTooManyRequests, middleware.ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      "Rate Limit Exceeded",
		Status:     http.StatusTooManyRequests,
		Detail:     domErr.Message,
		Instance:   instance,
		RetryAfter: retrySeconds,
		TraceID:    middleware.GetTraceID(c),
	})
}
