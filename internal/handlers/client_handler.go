package handlers

import (
	"net/http"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/internal/repositories"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ClientHandler struct {
	clientRepo *repositories.ClientRepository
}

func NewClientHandler(clientRepo *repositories.ClientRepository) *ClientHandler {
	return &ClientHandler{clientRepo: clientRepo}
}

func (h *ClientHandler) Create(c *gin.Context) {
	var req models.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	client := &models.Client{
		ID:           uuid.New(),
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		ContactName:  req.ContactName,
		KvkNumber:    req.KvkNumber,
		VatNumber:    req.VatNumber,
		Status:       "active",
	}

	if err := h.clientRepo.Create(c.Request.Context(), client); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *ClientHandler) List(c *gin.Context) {
	page, limit := pagination(c)

	var status *string
	if s := c.Query("status"); s != "" {
		status = &s
	}

	clients, total, err := h.clientRepo.List(c.Request.Context(), status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clients": clients,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (h *ClientHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	client, err := h.clientRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	var req models.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	client, err := h.clientRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.ContactEmail != nil {
		client.ContactEmail = *req.ContactEmail
	}
	if req.ContactName != nil {
		client.ContactName = req.ContactName
	}
	if req.KvkNumber != nil {
		client.KvkNumber = req.KvkNumber
	}
	if req.VatNumber != nil {
		client.VatNumber = req.VatNumber
	}
	if req.Status != nil {
		client.Status = *req.Status
	}

	if err := h.clientRepo.Update(c.Request.Context(), client); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) Archive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	if err := h.clientRepo.Archive(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Client archived"})
}
