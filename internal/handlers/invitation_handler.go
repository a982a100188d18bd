package handlers

import (
	"net/http"
	"time"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/internal/repositories"
	"github.com/noneedcode-dev/fiscalist-api/internal/services"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"
	"github.com/noneedcode-dev/fiscalist-api/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const invitationTTL = 7 * 24 * time.Hour

type InvitationHandler struct {
	invitationRepo *repositories.InvitationRepository
	userRepo       *repositories.UserRepository
	audit          *services.AuditRecorder
}

func NewInvitationHandler(invitationRepo *repositories.InvitationRepository, userRepo *repositories.UserRepository, audit *services.AuditRecorder) *InvitationHandler {
	return &InvitationHandler{
		invitationRepo: invitationRepo,
		userRepo:       userRepo,
		audit:          audit,
	}
}

// Create issues an invitation token. The raw token is returned exactly
// once; only its hash is stored.
func (h *InvitationHandler) Create(c *gin.Context) {
	var req models.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	invitedBy := currentUserID(c)
	if invitedBy == nil {
		respondError(c, errors.ErrUnauthorized)
		return
	}

	token, err := utils.GenerateToken(32)
	if err != nil {
		respondError(c, errors.WrapError(err, "INTERNAL_ERROR", "Failed to generate invitation token", errors.ErrInternalServer.Status))
		return
	}

	inv := &models.Invitation{
		ID:        uuid.New(),
		ClientID:  req.ClientID,
		Email:     req.Email,
		Role:      req.Role,
		TokenHash: utils.HashToken(token),
		InvitedBy: *invitedBy,
		Status:    "pending",
		ExpiresAt: time.Now().Add(invitationTTL),
	}

	if err := h.invitationRepo.Create(c.Request.Context(), inv); err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(c.Request.Context(), models.AuditEvent{
		ClientID:   &inv.ClientID,
		UserID:     invitedBy,
		Action:     "invitation_created",
		EntityType: "invitation",
		EntityID:   &inv.ID,
		Metadata: map[string]interface{}{
			"email": inv.Email,
			"role":  inv.Role,
		},
	})

	c.JSON(http.StatusCreated, gin.H{
		"invitation": inv,
		"token":      token,
	})
}

func (h *InvitationHandler) ListByClient(c *gin.Context) {
	clientID, err := scopedClientID(c, c.Query("client_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	invitations, err := h.invitationRepo.ListByClient(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

func (h *InvitationHandler) Revoke(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	if err := h.invitationRepo.UpdateStatus(c.Request.Context(), id, "revoked"); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation revoked"})
}

// Accept is public: a valid token plus a password creates the account
func (h *InvitationHandler) Accept(c *gin.Context) {
	var req models.AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: err.Error(),
		})
		return
	}

	inv, err := h.invitationRepo.GetByTokenHash(c.Request.Context(), utils.HashToken(req.Token))
	if err != nil {
		respondError(c, errors.NewError("INVALID_INVITATION", "Invitation is invalid or no longer open", errors.ErrUnauthorized.Status))
		return
	}

	if time.Now().After(inv.ExpiresAt) {
		// Mark it so the list view shows why it stopped working
		if err := h.invitationRepo.UpdateStatus(c.Request.Context(), inv.ID, "expired"); err != nil {
			respondError(c, err)
			return
		}
		respondError(c, errors.NewError("INVITATION_EXPIRED", "Invitation has expired", errors.ErrUnauthorized.Status))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(c, errors.WrapError(err, "INTERNAL_ERROR", "Failed to hash password", errors.ErrInternalServer.Status))
		return
	}

	user := &models.User{
		ID:           uuid.New(),
		ClientID:     &inv.ClientID,
		Email:        inv.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         inv.Role,
		Status:       "active",
	}

	if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}

	if err := h.invitationRepo.UpdateStatus(c.Request.Context(), inv.ID, "accepted"); err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(c.Request.Context(), models.AuditEvent{
		ClientID:   &inv.ClientID,
		UserID:     &user.ID,
		Action:     "invitation_accepted",
		EntityType: "invitation",
		EntityID:   &inv.ID,
		Metadata:   map[string]interface{}{"email": inv.Email},
	})

	c.JSON(http.StatusCreated, user)
}
