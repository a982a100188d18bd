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

type InvoiceHandler struct {
	invoiceRepo *repositories.InvoiceRepository
	audit       *services.AuditRecorder
}

func NewInvoiceHandler(invoiceRepo *repositories.InvoiceRepository, audit *services.AuditRecorder) *InvoiceHandler {
	return &InvoiceHandler{invoiceRepo: invoiceRepo, audit: audit}
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	var req models.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	inv := &models.Invoice{
		ID:          uuid.New(),
		ClientID:    req.ClientID,
		Number:      req.Number,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Status:      "draft",
		DueAt:       req.DueAt,
		LineItems:   req.LineItems,
	}

	if err := h.invoiceRepo.Create(c.Request.Context(), inv); err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(c.Request.Context(), models.AuditEvent{
		ClientID:   &inv.ClientID,
		UserID:     currentUserID(c),
		Action:     "invoice_created",
		EntityType: "invoice",
		EntityID:   &inv.ID,
		Metadata: map[string]interface{}{
			"number":       inv.Number,
			"amount_cents": inv.AmountCents,
		},
	})

	c.JSON(http.StatusCreated, inv)
}

func (h *InvoiceHandler) List(c *gin.Context) {
	var clientID *uuid.UUID
	if q := c.Query("client_id"); q != "" || claimClientID(c) != nil {
		id, err := scopedClientID(c, q)
		if err != nil {
			respondError(c, err)
			return
		}
		clientID = &id
	}

	var status *string
	if s := c.Query("status"); s != "" {
		status = &s
	}

	page, limit := pagination(c)
	invoices, total, err := h.invoiceRepo.List(c.Request.Context(), clientID, status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices": invoices,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	inv, err := h.invoiceRepo.GetByID(c.Request.Context(), id, claimClientID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// Update only applies to draft invoices; the repository enforces the
// status guard.
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	var req models.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	inv, err := h.invoiceRepo.GetByID(c.Request.Context(), id, claimClientID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if req.AmountCents != nil {
		inv.AmountCents = *req.AmountCents
	}
	if req.Currency != nil {
		inv.Currency = *req.Currency
	}
	if req.DueAt != nil {
		inv.DueAt = req.DueAt
	}
	if req.LineItems != nil {
		inv.LineItems = req.LineItems
	}

	if err := h.invoiceRepo.Update(c.Request.Context(), inv); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) Send(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	if err := h.invoiceRepo.MarkSent(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(c.Request.Context(), models.AuditEvent{
		UserID:     currentUserID(c),
		Action:     "invoice_sent",
		EntityType: "invoice",
		EntityID:   &id,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Invoice sent"})
}

func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	if err := h.invoiceRepo.MarkPaid(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(c.Request.Context(), models.AuditEvent{
		UserID:     currentUserID(c),
		Action:     "invoice_paid",
		EntityType: "invoice",
		EntityID:   &id,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Invoice marked paid"})
}
