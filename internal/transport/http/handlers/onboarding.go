package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AudereSemper/kokoru-garden-api/internal/usecase"
)

// OnboardingHandler exposes the batch onboarding update endpoint.
type OnboardingHandler struct {
	auth *usecase.AuthService
}

// NewOnboardingHandler constructs OnboardingHandler.
func NewOnboardingHandler(auth *usecase.AuthService) *OnboardingHandler {
	return &OnboardingHandler{auth: auth}
}

// RegisterRoutes binds the onboarding routes.
func (h *OnboardingHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/bulk", h.bulkUpdate)
}

// BulkUpdate godoc
// @Summary Update onboarding state for a batch of identities
// @Description All-or-nothing update of up to 100 identities; one unknown id rolls back the whole batch.
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param request body BulkOnboardingRequest true "Batch payload"
// @Success 200 {object} BulkOnboardingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/onboarding/bulk [post]
func (h *OnboardingHandler) bulkUpdate(c *gin.Context) {
	var req BulkOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "identity_ids are required"))
		return
	}

	if err := h.auth.BulkUpdateOnboarding(c.Request.Context(), req.IdentityIDs, req.Step, req.Completed); err != nil {
		RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, BulkOnboardingResponse{Updated: len(req.IdentityIDs)})
}
