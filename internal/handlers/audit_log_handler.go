package handlers

import (
	"net/http"

	"github.com/noneedcode-dev/fiscalist-api/internal/repositories"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuditLogHandler struct {
	auditRepo *repositories.AuditLogRepository
}

func NewAuditLogHandler(auditRepo *repositories.AuditLogRepository) *AuditLogHandler {
	return &AuditLogHandler{auditRepo: auditRepo}
}

func (h *AuditLogHandler) List(c *gin.Context) {
	var clientID *uuid.UUID
	if q := c.Query("client_id"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			respondError(c, errors.NewError("INVALID_CLIENT_ID", "client_id must be a valid UUID", errors.ErrBadRequest.Status))
			return
		}
		clientID = &id
	}

	var userID *uuid.UUID
	if q := c.Query("user_id"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			respondError(c, errors.NewError("INVALID_USER_ID", "user_id must be a valid UUID", errors.ErrBadRequest.Status))
			return
		}
		userID = &id
	}

	var action, entityType *string
	if q := c.Query("action"); q != "" {
		action = &q
	}
	if q := c.Query("entity_type"); q != "" {
		entityType = &q
	}

	page, limit := pagination(c)
	logs, total, err := h.auditRepo.List(c.Request.Context(), clientID, userID, action, entityType, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audit_logs": logs,
		"total":      total,
		"page":       page,
		"limit":      limit,
	})
}

func (h *AuditLogHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	log, err := h.auditRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, log)
}
