package handlers

import (
	"net/http"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/internal/repositories"
	"github.com/noneedcode-dev/fiscalist-api/internal/services"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ExportHandler struct {
	exportRepo   *repositories.ExportRepository
	documentRepo *repositories.DocumentRepository
	audit        *services.AuditRecorder
}

func NewExportHandler(exportRepo *repositories.ExportRepository, documentRepo *repositories.DocumentRepository, audit *services.AuditRecorder) *ExportHandler {
	return &ExportHandler{
		exportRepo:   exportRepo,
		documentRepo: documentRepo,
		audit:        audit,
	}
}

// Create enqueues a pending export job; the worker picks it up later
func (h *ExportHandler) Create(c *gin.Context) {
	clientID, err := scopedClientID(c, c.Query("client_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req models.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	job := &models.ExportJob{
		ID:          uuid.New(),
		ClientID:    clientID,
		CreatedBy:   currentUserID(c),
		Status:      models.ExportStatusPending,
		DocumentIDs: req.DocumentIDs,
	}

	if err := h.exportRepo.Create(c.Request.Context(), job); err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(c.Request.Context(), models.AuditEvent{
		ClientID:   &job.ClientID,
		UserID:     job.CreatedBy,
		Action:     "export_requested",
		EntityType: "document_export",
		EntityID:   &job.ID,
		Metadata: map[string]interface{}{
			"document_count": len(job.DocumentIDs),
		},
	})

	c.JSON(http.StatusAccepted, job)
}

// GetByID is the status poll endpoint
func (h *ExportHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	job, err := h.exportRepo.GetByID(c.Request.Context(), id, claimClientID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *ExportHandler) List(c *gin.Context) {
	clientID, err := scopedClientID(c, c.Query("client_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	page, limit := pagination(c)

	jobs, total, err := h.exportRepo.List(c.Request.Context(), clientID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exports": jobs,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}
