package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medical-office-api/config"
	"medical-office-api/internal/converter"
	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/domain/repository"
	"medical-office-api/internal/infrastructure/cache"
	"medical-office-api/internal/service"
	"medical-office-api/pkg/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	opSchedule      = "schedule"
	opConfirm       = "confirm"
	opCancel        = "cancel"
	opReschedule    = "reschedule"
	opDelete        = "delete"
	opCheckConflict = "check_conflict"
)

type AppointmentUsecase interface {
	Schedule(ctx context.Context, actor entity.Actor, req *dto.ScheduleAppointmentRequest) (*dto.AppointmentResponse, error)
	Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error)
	List(ctx context.Context, actor entity.Actor, query *dto.ListAppointmentsQuery) (*dto.AppointmentListResponse, error)
	Confirm(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error)
	Cancel(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error)
	Reschedule(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error)
	CheckConflict(ctx context.Context, actor entity.Actor, query *dto.ConflictCheckQuery) (*dto.ConflictCheckResponse, error)
	Delete(ctx context.Context, actor entity.Actor, id uuid.UUID) error
}

type appointmentUsecase struct {
	tx               repository.Transactor
	log              *logrus.Logger
	appointmentRepo  repository.AppointmentRepository
	patientRepo      repository.PatientProfileRepository
	practitionerRepo repository.PractitionerProfileRepository
	auditService     service.AuditService
	locker           cache.SlotLocker
	notifier         service.Dispatcher
	metrics          *metrics.Collector
	paging           config.SchedulingConfig
}

func NewAppointmentUsecase(
	tx repository.Transactor,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	patientRepo repository.PatientProfileRepository,
	practitionerRepo repository.PractitionerProfileRepository,
	auditService service.AuditService,
	locker cache.SlotLocker,
	notifier service.Dispatcher,
	collector *metrics.Collector,
	paging config.SchedulingConfig,
) AppointmentUsecase {
	return &appointmentUsecase{
		tx:               tx,
		log:              log,
		appointmentRepo:  appointmentRepo,
		patientRepo:      patientRepo,
		practitionerRepo: practitionerRepo,
		auditService:     auditService,
		locker:           locker,
		notifier:         notifier,
		metrics:          collector,
		paging:           paging,
	}
}

// transitionStep describes one guarded status change on a stored appointment
type transitionStep struct {
	action  string
	allowed func(actor entity.Actor, appointment *entity.Appointment) bool
	apply   func(appointment *entity.Appointment) error
	// guard runs inside the transaction after apply and before the write
	guard func(ctx context.Context, tx *gorm.DB, appointment *entity.Appointment) error
}

func (u *appointmentUsecase) Schedule(ctx context.Context, actor entity.Actor, req *dto.ScheduleAppointmentRequest) (*dto.AppointmentResponse, error) {
	appointment, err := u.schedule(ctx, actor, req)
	u.observe(opSchedule, err)
	if err != nil {
		return nil, err
	}

	u.log.Infof("Appointment %s scheduled with practitioner %s on %s at %s",
		appointment.ID, appointment.PractitionerID, appointment.Date.Format(entity.DateLayout), appointment.Time)
	u.notify(service.NotificationConfirmation, appointment)
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) schedule(ctx context.Context, actor entity.Actor, req *dto.ScheduleAppointmentRequest) (*entity.Appointment, error) {
	if !actor.IsSecretary() {
		return nil, ErrForbidden
	}

	date, clock, err := parseSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = entity.DefaultDurationMinutes
	}
	if duration < entity.MinDurationMinutes || duration > entity.MaxDurationMinutes {
		return nil, invalid("duration_minutes", "must be between %d and %d minutes",
			entity.MinDurationMinutes, entity.MaxDurationMinutes)
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, invalid("reason", "is required")
	}

	db := u.tx.Conn(ctx)
	patient, err := u.patientRepo.FindByUserID(ctx, db, req.PatientID)
	if err != nil {
		u.log.Warnf("Failed to find patient: %+v", err)
		return nil, err
	}
	if patient == nil {
		return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, req.PatientID)
	}

	practitioner, err := u.practitionerRepo.FindByUserID(ctx, db, req.PractitionerID)
	if err != nil {
		u.log.Warnf("Failed to find practitioner: %+v", err)
		return nil, err
	}
	if practitioner == nil {
		return nil, fmt.Errorf("%w: %s", ErrPractitionerNotFound, req.PractitionerID)
	}

	appointment := &entity.Appointment{
		Date:            date,
		Time:            clock,
		DurationMinutes: duration,
		Reason:          reason,
		Status:          entity.AppointmentStatusScheduled,
		PatientID:       patient.UserID,
		PractitionerID:  practitioner.UserID,
		CreatedBy:       actor.UserID,
	}

	err = u.withSlotLock(ctx, practitioner.UserID, date, clock, nil, func(ctx context.Context) error {
		return u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
			if err := u.ensureSlotFree(ctx, tx, date, clock, practitioner.UserID, nil); err != nil {
				return err
			}
			if err := u.appointmentRepo.Create(ctx, tx, appointment); err != nil {
				return err
			}
			return u.auditService.LogCreate(ctx, tx, actor.UserID,
				entity.AuditActionAppointmentCreate, entity.AuditEntityAppointment,
				appointment.ID.String(), converter.AppointmentSnapshot(appointment))
		})
	})
	switch {
	case errors.Is(err, repository.ErrPatientMissing):
		return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, req.PatientID)
	case errors.Is(err, repository.ErrPractitionerMissing):
		return nil, fmt.Errorf("%w: %s", ErrPractitionerNotFound, req.PractitionerID)
	case err != nil:
		return nil, u.resolveSlotError(ctx, err, date, clock, practitioner.UserID, nil)
	}

	appointment.Patient = *patient
	appointment.Practitioner = *practitioner
	return appointment, nil
}

func (u *appointmentUsecase) Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.findAppointment(ctx, u.tx.Conn(ctx), id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, appointment) {
		return nil, ErrForbidden
	}
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) List(ctx context.Context, actor entity.Actor, query *dto.ListAppointmentsQuery) (*dto.AppointmentListResponse, error) {
	filter, err := u.buildFilter(actor, query)
	if err != nil {
		return nil, err
	}

	appointments, total, err := u.appointmentRepo.FindAll(ctx, u.tx.Conn(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to list appointments: %+v", err)
		return nil, err
	}

	totalPages := int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	return &dto.AppointmentListResponse{
		Items:       converter.AppointmentsToResponses(appointments),
		TotalPages:  totalPages,
		CurrentPage: filter.Page,
		Total:       total,
	}, nil
}

func (u *appointmentUsecase) buildFilter(actor entity.Actor, query *dto.ListAppointmentsQuery) (entity.AppointmentFilter, error) {
	filter := entity.AppointmentFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = u.paging.DefaultPageSize
	}
	if filter.PageSize > u.paging.MaxPageSize {
		filter.PageSize = u.paging.MaxPageSize
	}

	var err error
	if filter.PractitionerID, err = parseOptionalID("practitioner_id", query.PractitionerID); err != nil {
		return filter, err
	}
	if filter.PatientID, err = parseOptionalID("patient_id", query.PatientID); err != nil {
		return filter, err
	}
	if filter.DateFrom, err = parseOptionalDate("date_from", query.DateFrom); err != nil {
		return filter, err
	}
	if filter.DateTo, err = parseOptionalDate("date_to", query.DateTo); err != nil {
		return filter, err
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return filter, invalid("date_to", "must not be before date_from")
	}

	if query.Status != "" {
		status := entity.AppointmentStatus(strings.ToUpper(query.Status))
		if !status.IsValid() {
			return filter, invalid("status", "unknown status %q", query.Status)
		}
		filter.Status = status
	}

	switch {
	case actor.IsSecretary():
	case actor.IsDoctor():
		self := actor.UserID
		filter.PractitionerID = &self
	case actor.IsPatient():
		self := actor.UserID
		filter.PatientID = &self
	default:
		return filter, ErrForbidden
	}

	return filter, nil
}

func (u *appointmentUsecase) Confirm(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.transition(ctx, actor, id, transitionStep{
		action:  entity.AuditActionAppointmentConfirm,
		allowed: canConfirm,
		apply:   (*entity.Appointment).Confirm,
	})
	u.observe(opConfirm, err)
	if err != nil {
		return nil, err
	}

	u.log.Infof("Appointment %s confirmed", appointment.ID)
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) Cancel(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error) {
	appointment, err := u.transition(ctx, actor, id, transitionStep{
		action:  entity.AuditActionAppointmentCancel,
		allowed: canView,
		apply: func(a *entity.Appointment) error {
			return a.Cancel(req.Reason)
		},
	})
	u.observe(opCancel, err)
	if err != nil {
		return nil, err
	}

	u.log.Infof("Appointment %s cancelled", appointment.ID)
	u.notify(service.NotificationCancellation, appointment)
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) Reschedule(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error) {
	appointment, err := u.reschedule(ctx, actor, id, req)
	u.observe(opReschedule, err)
	if err != nil {
		return nil, err
	}

	u.log.Infof("Appointment %s rescheduled to %s at %s",
		appointment.ID, appointment.Date.Format(entity.DateLayout), appointment.Time)
	u.notify(service.NotificationConfirmation, appointment)
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) reschedule(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.RescheduleAppointmentRequest) (*entity.Appointment, error) {
	if !actor.IsSecretary() {
		return nil, ErrForbidden
	}

	date, clock, err := parseSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	// The lock key needs the practitioner, so read the appointment once outside the transaction
	current, err := u.findAppointment(ctx, u.tx.Conn(ctx), id)
	if err != nil {
		return nil, err
	}
	if current.IsCompleted() {
		return nil, &entity.TransitionError{Action: "reschedule", From: current.Status}
	}

	var updated *entity.Appointment
	err = u.withSlotLock(ctx, current.PractitionerID, date, clock, &id, func(ctx context.Context) error {
		var err error
		updated, err = u.transition(ctx, actor, id, transitionStep{
			action:  entity.AuditActionAppointmentReschedule,
			allowed: isSecretary,
			apply: func(a *entity.Appointment) error {
				return a.Reschedule(date, clock)
			},
			guard: func(ctx context.Context, tx *gorm.DB, a *entity.Appointment) error {
				return u.ensureSlotFree(ctx, tx, date, clock, a.PractitionerID, &a.ID)
			},
		})
		return err
	})
	if err != nil {
		return nil, u.resolveSlotError(ctx, err, date, clock, current.PractitionerID, &id)
	}
	return updated, nil
}

func (u *appointmentUsecase) CheckConflict(ctx context.Context, actor entity.Actor, query *dto.ConflictCheckQuery) (*dto.ConflictCheckResponse, error) {
	resp, err := u.checkConflict(ctx, actor, query)
	if err == nil && resp.Conflict {
		u.metrics.AppointmentOperation(opCheckConflict, metrics.OutcomeConflict)
	} else {
		u.observe(opCheckConflict, err)
	}
	return resp, err
}

func (u *appointmentUsecase) checkConflict(ctx context.Context, actor entity.Actor, query *dto.ConflictCheckQuery) (*dto.ConflictCheckResponse, error) {
	if !actor.IsSecretary() && !actor.IsDoctor() {
		return nil, ErrForbidden
	}

	date, clock, err := parseSlot(query.Date, query.Time)
	if err != nil {
		return nil, err
	}
	practitionerID, err := uuid.Parse(query.PractitionerID)
	if err != nil {
		return nil, invalid("practitioner_id", "must be a valid UUID")
	}
	excludeID, err := parseOptionalID("exclude_id", query.ExcludeID)
	if err != nil {
		return nil, err
	}

	existing, err := u.appointmentRepo.FindActiveBySlot(ctx, u.tx.Conn(ctx), date, clock, practitionerID, excludeID)
	if err != nil {
		u.log.Warnf("Failed to check slot conflict: %+v", err)
		return nil, err
	}

	return &dto.ConflictCheckResponse{
		Conflict:    existing != nil,
		Appointment: converter.AppointmentToResponse(existing),
	}, nil
}

func (u *appointmentUsecase) Delete(ctx context.Context, actor entity.Actor, id uuid.UUID) error {
	err := u.delete(ctx, actor, id)
	u.observe(opDelete, err)
	if err != nil {
		return err
	}

	u.log.Infof("Appointment %s deleted", id)
	return nil
}

func (u *appointmentUsecase) delete(ctx context.Context, actor entity.Actor, id uuid.UUID) error {
	if !actor.IsSecretary() {
		return ErrForbidden
	}

	return u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		appointment, err := u.findAppointment(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := appointment.CheckDeletable(); err != nil {
			return err
		}

		rows, err := u.appointmentRepo.DeleteIfStatus(ctx, tx, id, appointment.Status)
		if err != nil {
			u.log.Warnf("Failed to delete appointment: %+v", err)
			return err
		}
		if rows == 0 {
			return u.staleWrite(ctx, tx, id, (*entity.Appointment).CheckDeletable)
		}

		return u.auditService.LogDelete(ctx, tx, actor.UserID,
			entity.AuditActionAppointmentDelete, entity.AuditEntityAppointment,
			id.String(), converter.AppointmentSnapshot(appointment))
	})
}

// transition loads the appointment, applies step and writes it back only if no
// other writer changed its status in between.
func (u *appointmentUsecase) transition(ctx context.Context, actor entity.Actor, id uuid.UUID, step transitionStep) (*entity.Appointment, error) {
	var updated *entity.Appointment
	err := u.tx.WithinTransaction(ctx, func(tx *gorm.DB) error {
		appointment, err := u.findAppointment(ctx, tx, id)
		if err != nil {
			return err
		}
		if !step.allowed(actor, appointment) {
			return ErrForbidden
		}

		before := converter.AppointmentSnapshot(appointment)
		expected := appointment.Status
		if err := step.apply(appointment); err != nil {
			return err
		}
		if step.guard != nil {
			if err := step.guard(ctx, tx, appointment); err != nil {
				return err
			}
		}

		rows, err := u.appointmentRepo.UpdateIfStatus(ctx, tx, appointment, expected)
		if err != nil {
			return err
		}
		if rows == 0 {
			return u.staleWrite(ctx, tx, id, step.apply)
		}

		if err := u.auditService.LogUpdate(ctx, tx, actor.UserID, step.action,
			entity.AuditEntityAppointment, id.String(), before, converter.AppointmentSnapshot(appointment)); err != nil {
			return err
		}
		updated = appointment
		return nil
	})
	return updated, err
}

// staleWrite explains a compare-and-set that matched no row: the appointment is
// gone, its new status forbids the change, or it moved and the caller should retry.
func (u *appointmentUsecase) staleWrite(ctx context.Context, tx *gorm.DB, id uuid.UUID, check func(*entity.Appointment) error) error {
	current, err := u.findAppointment(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := check(current); err != nil {
		return err
	}
	return ErrConcurrentUpdate
}

func (u *appointmentUsecase) findAppointment(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, db, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment: %+v", err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

func (u *appointmentUsecase) ensureSlotFree(ctx context.Context, tx *gorm.DB, date time.Time, clock string, practitionerID uuid.UUID, excludeID *uuid.UUID) error {
	existing, err := u.appointmentRepo.FindActiveBySlot(ctx, tx, date, clock, practitionerID, excludeID)
	if err != nil {
		u.log.Warnf("Failed to check slot conflict: %+v", err)
		return err
	}
	if existing != nil {
		return &SlotConflictError{Existing: existing}
	}
	return nil
}

// withSlotLock runs fn while holding the Redis slot lock. The lock only narrows the
// race; the active-slot unique index decides. When Redis fails fn runs unlocked, and
// losing the lock to a request that already holds the slot is reported as a conflict.
func (u *appointmentUsecase) withSlotLock(ctx context.Context, practitionerID uuid.UUID, date time.Time, clock string, excludeID *uuid.UUID, fn func(ctx context.Context) error) error {
	ran := false
	err := u.locker.WithSlotLock(ctx, practitionerID, date, clock, func(ctx context.Context) error {
		ran = true
		return fn(ctx)
	})
	switch {
	case ran || err == nil:
		return err
	case errors.Is(err, cache.ErrLockNotAcquired):
		holder, findErr := u.appointmentRepo.FindActiveBySlot(ctx, u.tx.Conn(ctx), date, clock, practitionerID, excludeID)
		if findErr != nil {
			u.log.Warnf("Failed to check slot after lock contention: %+v", findErr)
			return ErrSlotBusy
		}
		if holder != nil {
			return &SlotConflictError{Existing: holder}
		}
		return ErrSlotBusy
	default:
		u.log.Warnf("Failed to take slot lock, continuing without it: %+v", err)
		return fn(ctx)
	}
}

// resolveSlotError turns a unique index violation into a SlotConflictError.
// The failed transaction is already rolled back, so the holder is read on a fresh connection.
func (u *appointmentUsecase) resolveSlotError(ctx context.Context, err error, date time.Time, clock string, practitionerID uuid.UUID, excludeID *uuid.UUID) error {
	if !errors.Is(err, repository.ErrActiveSlotTaken) {
		return err
	}

	holder, findErr := u.appointmentRepo.FindActiveBySlot(ctx, u.tx.Conn(ctx), date, clock, practitionerID, excludeID)
	if findErr != nil {
		u.log.Warnf("Failed to load conflicting appointment: %+v", findErr)
	}
	return &SlotConflictError{Existing: holder}
}

func (u *appointmentUsecase) notify(kind service.NotificationKind, appointment *entity.Appointment) {
	n, ok := service.NewAppointmentNotification(kind, appointment)
	if !ok {
		u.log.Infof("Skipping %s notification for appointment %s: patient has no email", kind, appointment.ID)
		u.metrics.Notification(string(kind), metrics.OutcomeSkipped)
		return
	}
	u.notifier.Enqueue(n)
}

func (u *appointmentUsecase) observe(operation string, err error) {
	switch {
	case err == nil:
		u.metrics.AppointmentOperation(operation, metrics.OutcomeSuccess)
	case errors.Is(err, ErrSlotConflict):
		u.metrics.AppointmentOperation(operation, metrics.OutcomeConflict)
		u.metrics.SlotConflictsTotal.Inc()
	case isRejection(err):
		u.metrics.AppointmentOperation(operation, metrics.OutcomeRejected)
	default:
		u.log.Warnf("Failed to %s appointment: %+v", operation, err)
		u.metrics.AppointmentOperation(operation, metrics.OutcomeFailure)
	}
}

func isRejection(err error) bool {
	for _, target := range []error{
		ErrValidation,
		ErrForbidden,
		ErrAppointmentNotFound,
		ErrPatientNotFound,
		ErrPractitionerNotFound,
		ErrSlotBusy,
		ErrConcurrentUpdate,
		entity.ErrInvalidTransition,
		entity.ErrAlreadyCancelled,
		entity.ErrOperationNotAllowed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func canView(actor entity.Actor, appointment *entity.Appointment) bool {
	switch {
	case actor.IsSecretary():
		return true
	case actor.IsDoctor():
		return appointment.PractitionerID == actor.UserID
	case actor.IsPatient():
		return appointment.PatientID == actor.UserID
	}
	return false
}

func canConfirm(actor entity.Actor, appointment *entity.Appointment) bool {
	return actor.IsSecretary() || (actor.IsDoctor() && appointment.PractitionerID == actor.UserID)
}

func isSecretary(actor entity.Actor, _ *entity.Appointment) bool {
	return actor.IsSecretary()
}

func parseSlot(dateValue, clockValue string) (time.Time, string, error) {
	date, err := entity.ParseDate(dateValue)
	if err != nil {
		return time.Time{}, "", invalid("date", "must be a date in YYYY-MM-DD format")
	}
	clock, err := entity.NormalizeClock(clockValue)
	if err != nil {
		return time.Time{}, "", invalid("time", "must be a time of day in HH:MM format")
	}
	return date, clock, nil
}

func parseOptionalID(field, value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, invalid(field, "must be a valid UUID")
	}
	return &id, nil
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	date, err := entity.ParseDate(value)
	if err != nil {
		return nil, invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return &date, nil
}
