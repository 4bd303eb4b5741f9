package service

import (
	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuditEntry describes one change to record. Before is nil for creations, After for deletions.
type AuditEntry struct {
	ActorID  *uuid.UUID
	Action   string
	Entity   string
	EntityID string
	Before   interface{}
	After    interface{}
}

type AuditService interface {
	// Record writes the entry through tx so it commits or rolls back with the change it describes.
	Record(tx *gorm.DB, entry AuditEntry) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

func (s *auditService) Record(tx *gorm.DB, entry AuditEntry) error {
	auditLog := &entity.AuditLog{
		UserID: entry.ActorID,
		Action: entry.Action,
		Metadata: entity.JSON{
			"entity":    entry.Entity,
			"entity_id": entry.EntityID,
			"old_value": entry.Before,
			"new_value": entry.After,
		},
	}

	if err := s.auditRepo.Create(tx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log %s for %s %s: %+v", entry.Action, entry.Entity, entry.EntityID, err)
		return err
	}

	return nil
}
