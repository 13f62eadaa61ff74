package usecase

import (
	"context"
	"time"

	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/domain/repository"
	"medical-office-api/internal/infrastructure/cache"
	"medical-office-api/internal/service"
	"medical-office-api/pkg/metrics"

	"github.com/sirupsen/logrus"
)

// ReminderRun summarizes one reminder pass over a day
type ReminderRun struct {
	Day     string `json:"day"`
	Found   int    `json:"found"`
	Queued  int    `json:"queued"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

type ReminderUsecase interface {
	// SendReminders queues one reminder per scheduled appointment on day.
	// Appointments already reminded within the de-duplication window are skipped.
	SendReminders(ctx context.Context, day time.Time) (*ReminderRun, error)
	// DefaultDay is the day reminders target when none is given
	DefaultDay(now time.Time) time.Time
}

type reminderUsecase struct {
	tx              repository.Transactor
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	marker          cache.ReminderMarker
	notifier        service.Dispatcher
	metrics         *metrics.Collector
	leadDays        int
}

func NewReminderUsecase(
	tx repository.Transactor,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	marker cache.ReminderMarker,
	notifier service.Dispatcher,
	collector *metrics.Collector,
	leadDays int,
) ReminderUsecase {
	return &reminderUsecase{
		tx:              tx,
		log:             log,
		appointmentRepo: appointmentRepo,
		marker:          marker,
		notifier:        notifier,
		metrics:         collector,
		leadDays:        leadDays,
	}
}

func (u *reminderUsecase) DefaultDay(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, u.leadDays)
}

func (u *reminderUsecase) SendReminders(ctx context.Context, day time.Time) (*ReminderRun, error) {
	y, m, d := day.Date()
	day = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	appointments, err := u.appointmentRepo.FindByStatusOnDate(ctx, u.tx.Conn(ctx), day, entity.AppointmentStatusScheduled)
	if err != nil {
		u.log.Warnf("Failed to find appointments for reminders: %+v", err)
		return nil, err
	}

	run := &ReminderRun{Day: day.Format(entity.DateLayout), Found: len(appointments)}
	kind := string(service.NotificationReminder)

	for i := range appointments {
		appointment := &appointments[i]

		n, ok := service.NewAppointmentNotification(service.NotificationReminder, appointment)
		if !ok {
			run.Skipped++
			u.metrics.Notification(kind, metrics.OutcomeSkipped)
			continue
		}

		first, err := u.marker.MarkSent(ctx, appointment.ID)
		if err != nil {
			u.log.Warnf("Failed to mark reminder for appointment %s: %+v", appointment.ID, err)
			run.Failed++
			continue
		}
		if !first {
			run.Skipped++
			continue
		}

		appointmentID := appointment.ID
		n.OnFailure = func(ctx context.Context) {
			// delivery failed, the next run may try again
			if err := u.marker.Unmark(ctx, appointmentID); err != nil {
				u.log.Warnf("Failed to clear reminder mark for appointment %s: %+v", appointmentID, err)
			}
		}

		if !u.notifier.Enqueue(n) {
			// let the next run retry
			if err := u.marker.Unmark(ctx, appointment.ID); err != nil {
				u.log.Warnf("Failed to clear reminder mark for appointment %s: %+v", appointment.ID, err)
			}
			run.Failed++
			continue
		}
		run.Queued++
	}

	u.log.WithFields(logrus.Fields{
		"day":     run.Day,
		"found":   run.Found,
		"queued":  run.Queued,
		"skipped": run.Skipped,
		"failed":  run.Failed,
	}).Info("Reminder run finished")

	return run, nil
}
