package service

import (
	"context"

	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/domain/repository"

	"github.com/sirupsen/logrus"
)

// AuditService records security relevant events. A failed write is logged and
// never fails the operation being audited.
type AuditService interface {
	Log(ctx context.Context, actor entity.Principal, action string, metadata entity.JSON)
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

// Log writes one entry. actor may be nil for events without an identified principal.
func (s *auditService) Log(ctx context.Context, actor entity.Principal, action string, metadata entity.JSON) {
	auditLog := &entity.AuditLog{
		Action:   action,
		Metadata: metadata,
	}
	if actor != nil {
		id := actor.Identity().ID
		auditLog.ActorID = &id
		auditLog.ActorRole = string(actor.Role())
	}

	if err := s.auditRepo.Create(ctx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log %s: %+v", action, err)
	}
}
