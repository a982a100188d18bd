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

type TimeEntryHandler struct {
	timeEntryRepo *repositories.TimeEntryRepository
}

func NewTimeEntryHandler(timeEntryRepo *repositories.TimeEntryRepository) *TimeEntryHandler {
	return &TimeEntryHandler{timeEntryRepo: timeEntryRepo}
}

func (h *TimeEntryHandler) Create(c *gin.Context) {
	var req models.CreateTimeEntryRequest
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

	billable := true
	if req.Billable != nil {
		billable = *req.Billable
	}

	entry := &models.TimeEntry{
		ID:          uuid.New(),
		ClientID:    req.ClientID,
		UserID:      *userID,
		Description: req.Description,
		Minutes:     req.Minutes,
		Billable:    billable,
		EntryDate:   req.EntryDate,
	}

	if err := h.timeEntryRepo.Create(c.Request.Context(), entry); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *TimeEntryHandler) List(c *gin.Context) {
	var clientID *uuid.UUID
	if q := c.Query("client_id"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			respondError(c, errors.NewError("INVALID_CLIENT_ID", "client_id must be a valid UUID", errors.ErrBadRequest.Status))
			return
		}
		clientID = &id
	}

	var from, to *time.Time
	if q := c.Query("from"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			respondError(c, errors.NewError("INVALID_DATE", "from must be RFC3339", errors.ErrBadRequest.Status))
			return
		}
		from = &t
	}
	if q := c.Query("to"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			respondError(c, errors.NewError("INVALID_DATE", "to must be RFC3339", errors.ErrBadRequest.Status))
			return
		}
		to = &t
	}

	var billable *bool
	if q := c.Query("billable"); q != "" {
		b := q == "true"
		billable = &b
	}

	page, limit := pagination(c)
	entries, total, err := h.timeEntryRepo.List(c.Request.Context(), clientID, from, to, billable, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"time_entries": entries,
		"total":        total,
		"page":         page,
		"limit":        limit,
	})
}

func (h *TimeEntryHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	entry, err := h.timeEntryRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *TimeEntryHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	var req models.UpdateTimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	entry, err := h.timeEntryRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Description != nil {
		entry.Description = *req.Description
	}
	if req.Minutes != nil {
		entry.Minutes = *req.Minutes
	}
	if req.Billable != nil {
		entry.Billable = *req.Billable
	}
	if req.EntryDate != nil {
		entry.EntryDate = *req.EntryDate
	}

	if err := h.timeEntryRepo.Update(c.Request.Context(), entry); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *TimeEntryHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	if err := h.timeEntryRepo.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Time entry deleted"})
}
