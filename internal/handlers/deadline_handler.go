package handlers

import (
	"net/http"
	"time"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/internal/repositories"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DeadlineHandler struct {
	deadlineRepo *repositories.DeadlineRepository
	clientRepo   *repositories.ClientRepository
}

func NewDeadlineHandler(deadlineRepo *repositories.DeadlineRepository, clientRepo *repositories.ClientRepository) *DeadlineHandler {
	return &DeadlineHandler{
		deadlineRepo: deadlineRepo,
		clientRepo:   clientRepo,
	}
}

// Create adds a deadline to the client named in the route
func (h *DeadlineHandler) Create(c *gin.Context) {
	clientID, err := scopedClientID(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req models.CreateDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	// Make sure the client exists before attaching a deadline
	if _, err := h.clientRepo.GetByID(c.Request.Context(), clientID); err != nil {
		respondError(c, err)
		return
	}

	dl := &models.TaxDeadline{
		ID:       uuid.New(),
		ClientID: clientID,
		Title:    req.Title,
		TaxType:  req.TaxType,
		DueDate:  req.DueDate,
		Period:   req.Period,
		Status:   "upcoming",
		Notes:    req.Notes,
	}

	if err := h.deadlineRepo.Create(c.Request.Context(), dl); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dl)
}

// List is the calendar view: optional client, window, and status filters
func (h *DeadlineHandler) List(c *gin.Context) {
	page, limit := pagination(c)

	var clientID *uuid.UUID
	if bound := claimClientID(c); bound != nil {
		clientID = bound
	} else if s := c.Query("client_id"); s != "" {
		parsed, err := uuid.Parse(s)
		if err != nil {
			respondError(c, errors.ErrBadRequest)
			return
		}
		clientID = &parsed
	}

	var from, to *time.Time
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(c, errors.NewError("INVALID_DATE", "from must be RFC3339", errors.ErrBadRequest.Status))
			return
		}
		from = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(c, errors.NewError("INVALID_DATE", "to must be RFC3339", errors.ErrBadRequest.Status))
			return
		}
		to = &t
	}

	var status *string
	if s := c.Query("status"); s != "" {
		status = &s
	}

	deadlines, total, err := h.deadlineRepo.List(c.Request.Context(), clientID, from, to, status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deadlines": deadlines,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

func (h *DeadlineHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	dl, err := h.deadlineRepo.GetByID(c.Request.Context(), id, claimClientID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dl)
}

func (h *DeadlineHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	var req models.UpdateDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	dl, err := h.deadlineRepo.GetByID(c.Request.Context(), id, claimClientID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Title != nil {
		dl.Title = *req.Title
	}
	if req.TaxType != nil {
		dl.TaxType = *req.TaxType
	}
	if req.DueDate != nil {
		dl.DueDate = *req.DueDate
	}
	if req.Period != nil {
		dl.Period = req.Period
	}
	if req.Status != nil {
		dl.Status = *req.Status
	}
	if req.Notes != nil {
		dl.Notes = req.Notes
	}

	if err := h.deadlineRepo.Update(c.Request.Context(), dl); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dl)
}

func (h *DeadlineHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	if err := h.deadlineRepo.Delete(c.Request.Context(), id, claimClientID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deadline deleted"})
}
