package services

import (
	"context"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// AuditRecorder persists audit events. Recording is fire-and-forget: a
// failed insert is logged and never surfaces to the caller, since audit
// must not fail the operation it describes.
type AuditRecorder struct {
	repo *repositories.AuditLogRepository
	log  *logrus.Logger
}

func NewAuditRecorder(repo *repositories.AuditLogRepository, log *logrus.Logger) *AuditRecorder {
	return &AuditRecorder{repo: repo, log: log}
}

func (a *AuditRecorder) Record(ctx context.Context, event models.AuditEvent) {
	if err := a.repo.Create(ctx, event); err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{
			"action":      event.Action,
			"entity_type": event.EntityType,
		}).Error("failed to record audit event")
	}
}
