package handlers

import (
	"net/http"
	"time"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/internal/repositories"
	"github.com/noneedcode-dev/fiscalist-api/internal/services"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PlanHandler struct {
	planRepo   *repositories.PlanRepository
	clientRepo *repositories.ClientRepository
	audit      *services.AuditRecorder
}

func NewPlanHandler(planRepo *repositories.PlanRepository, clientRepo *repositories.ClientRepository, audit *services.AuditRecorder) *PlanHandler {
	return &PlanHandler{planRepo: planRepo, clientRepo: clientRepo, audit: audit}
}

// GetCurrent returns the client's open plan assignment
func (h *PlanHandler) GetCurrent(c *gin.Context) {
	clientID, err := scopedClientID(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	plan, err := h.planRepo.GetCurrent(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Assign closes the open assignment and opens a new one. Staff only.
func (h *PlanHandler) Assign(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	var req models.AssignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	userID := currentUserID(c)
	if userID == nil {
		respondError(c, errors.ErrUnauthorized)
		return
	}

	startsAt := time.Now()
	if req.StartsAt != nil {
		startsAt = *req.StartsAt
	}

	pa := &models.PlanAssignment{
		ID:         uuid.New(),
		ClientID:   clientID,
		Plan:       req.Plan,
		StartsAt:   startsAt,
		AssignedBy: *userID,
	}

	if err := h.planRepo.Assign(c.Request.Context(), pa); err != nil {
		respondError(c, err)
		return
	}

	// Denormalized onto the client row for cheap reads
	if err := h.clientRepo.SetPlan(c.Request.Context(), clientID, pa.Plan); err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(c.Request.Context(), models.AuditEvent{
		ClientID:   &clientID,
		UserID:     userID,
		Action:     "plan_assigned",
		EntityType: "plan_assignment",
		EntityID:   &pa.ID,
		Metadata:   map[string]interface{}{"plan": pa.Plan},
	})

	c.JSON(http.StatusCreated, pa)
}
