package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"medical-office-api/internal/domain/entity"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationConfirmation NotificationKind = "confirmation"
	NotificationCancellation NotificationKind = "cancellation"
	NotificationReminder     NotificationKind = "reminder"
)

var notificationSubjects = map[NotificationKind]string{
	NotificationConfirmation: "Your appointment is confirmed",
	NotificationCancellation: "Your appointment was cancelled",
	NotificationReminder:     "Reminder: upcoming appointment",
}

// Notification is one email to a patient about one appointment
type Notification struct {
	Kind               NotificationKind
	AppointmentID      uuid.UUID
	To                 string
	PatientName        string
	PractitionerName   string
	Date               time.Time
	Time               string
	Reason             string
	CancellationReason string

	// OnFailure runs on the worker after a failed delivery.
	OnFailure func(ctx context.Context)
}

// DateLabel formats the appointment date for humans
func (n Notification) DateLabel() string {
	return n.Date.Format("Monday, January 2, 2006")
}

// Notifier delivers a rendered message. Implementations report failures; callers decide what to do with them.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Dispatcher accepts notifications for background delivery without blocking the caller.
type Dispatcher interface {
	Enqueue(n Notification) bool
}

// NewAppointmentNotification builds a notification for the appointment's patient.
// It reports false when the patient has no contact address.
func NewAppointmentNotification(kind NotificationKind, appointment *entity.Appointment) (Notification, bool) {
	to := appointment.Patient.ContactEmail()
	if to == "" {
		return Notification{}, false
	}

	n := Notification{
		Kind:             kind,
		AppointmentID:    appointment.ID,
		To:               to,
		PatientName:      appointment.Patient.User.FullName,
		PractitionerName: appointment.Practitioner.DisplayName(),
		Date:             appointment.Date,
		Time:             appointment.Time,
		Reason:           appointment.Reason,
	}
	if appointment.CancellationReason != nil {
		n.CancellationReason = *appointment.CancellationReason
	}
	return n, true
}

//go:embed templates/*.html
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

func renderNotification(tmpl *template.Template, n Notification) (string, string, error) {
	subject, ok := notificationSubjects[n.Kind]
	if !ok {
		return "", "", fmt.Errorf("unknown notification kind %q", n.Kind)
	}

	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, string(n.Kind)+".html", n); err != nil {
		return "", "", fmt.Errorf("render %s template: %w", n.Kind, err)
	}
	return subject, body.String(), nil
}
