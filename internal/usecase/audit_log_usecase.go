package usecase

import (
	"context"

	"medical-office-api/internal/converter"
	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AuditLogUsecase interface {
	GetAppointmentHistory(ctx context.Context, actor entity.Actor, appointmentID uuid.UUID) (*dto.AuditLogListResponse, error)
	GetAuditLog(ctx context.Context, actor entity.Actor, id int64) (*dto.AuditLogResponse, error)
}

type auditLogUsecase struct {
	tx           repository.Transactor
	log          *logrus.Logger
	auditLogRepo repository.AuditLogRepository
}

func NewAuditLogUsecase(
	tx repository.Transactor,
	log *logrus.Logger,
	auditLogRepo repository.AuditLogRepository,
) AuditLogUsecase {
	return &auditLogUsecase{
		tx:           tx,
		log:          log,
		auditLogRepo: auditLogRepo,
	}
}

// GetAppointmentHistory lists every recorded change of one appointment, oldest first.
// History outlives the appointment, so deleted ids still resolve.
func (u *auditLogUsecase) GetAppointmentHistory(ctx context.Context, actor entity.Actor, appointmentID uuid.UUID) (*dto.AuditLogListResponse, error) {
	if !actor.IsSecretary() {
		return nil, ErrForbidden
	}

	logs, err := u.auditLogRepo.FindByEntity(ctx, u.tx.Conn(ctx), entity.AuditEntityAppointment, appointmentID.String())
	if err != nil {
		u.log.Warnf("Failed to find audit logs for appointment %s: %+v", appointmentID, err)
		return nil, err
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: len(logs),
	}, nil
}

func (u *auditLogUsecase) GetAuditLog(ctx context.Context, actor entity.Actor, id int64) (*dto.AuditLogResponse, error) {
	if !actor.IsSecretary() {
		return nil, ErrForbidden
	}

	auditLog, err := u.auditLogRepo.FindByID(ctx, u.tx.Conn(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find audit log: %+v", err)
		return nil, err
	}
	if auditLog == nil {
		return nil, ErrAuditLogNotFound
	}

	return converter.AuditLogToResponse(auditLog), nil
}
