package entity

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newAppointment(status AppointmentStatus) *Appointment {
	return &Appointment{
		ID:              uuid.New(),
		Date:            time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Time:            "14:00",
		DurationMinutes: DefaultDurationMinutes,
		Reason:          "checkup",
		Status:          status,
		PractitionerID:  uuid.New(),
	}
}

func TestConfirm(t *testing.T) {
	a := newAppointment(AppointmentStatusScheduled)
	if err := a.Confirm(); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if a.Status != AppointmentStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", a.Status)
	}

	for _, from := range []AppointmentStatus{AppointmentStatusCompleted, AppointmentStatusCancelled} {
		a := newAppointment(from)
		err := a.Confirm()
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Confirm from %s: err = %v, want ErrInvalidTransition", from, err)
		}
		if !strings.Contains(err.Error(), string(from)) {
			t.Errorf("error %q should name status %s", err, from)
		}
		if a.Status != from {
			t.Errorf("status changed to %s on refused confirm", a.Status)
		}
	}
}

func TestCancel(t *testing.T) {
	t.Run("stores reason", func(t *testing.T) {
		a := newAppointment(AppointmentStatusScheduled)
		if err := a.Cancel("patient request"); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if a.Status != AppointmentStatusCancelled || *a.CancellationReason != "patient request" {
			t.Fatalf("got status=%s reason=%v", a.Status, a.CancellationReason)
		}
	})

	t.Run("defaults reason", func(t *testing.T) {
		a := newAppointment(AppointmentStatusScheduled)
		if err := a.Cancel("   "); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if *a.CancellationReason != DefaultCancellationReason {
			t.Fatalf("reason = %q, want %q", *a.CancellationReason, DefaultCancellationReason)
		}
	})

	t.Run("twice fails", func(t *testing.T) {
		a := newAppointment(AppointmentStatusScheduled)
		_ = a.Cancel("")
		if err := a.Cancel(""); !errors.Is(err, ErrAlreadyCancelled) {
			t.Fatalf("second Cancel: err = %v, want ErrAlreadyCancelled", err)
		}
	})

	t.Run("completed fails", func(t *testing.T) {
		a := newAppointment(AppointmentStatusCompleted)
		err := a.Cancel("")
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("err = %v, want ErrInvalidTransition", err)
		}
		if errors.Is(err, ErrAlreadyCancelled) {
			t.Fatal("completed appointment must not report AlreadyCancelled")
		}
	})
}

func TestReschedule(t *testing.T) {
	newDate := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	a := newAppointment(AppointmentStatusCancelled)
	if err := a.Reschedule(newDate, "09:30"); err != nil {
		t.Fatalf("Reschedule cancelled: %v", err)
	}
	if a.Status != AppointmentStatusScheduled {
		t.Fatalf("rescheduling a cancelled appointment should revive it, status = %s", a.Status)
	}
	if !a.Date.Equal(newDate) || a.Time != "09:30" {
		t.Fatalf("slot not moved: %v %s", a.Date, a.Time)
	}

	done := newAppointment(AppointmentStatusCompleted)
	if err := done.Reschedule(newDate, "09:30"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Reschedule completed: err = %v, want ErrInvalidTransition", err)
	}
	if done.Time != "14:00" {
		t.Fatal("completed appointment was moved")
	}
}

func TestCheckDeletable(t *testing.T) {
	for _, s := range []AppointmentStatus{AppointmentStatusScheduled, AppointmentStatusCancelled} {
		if err := newAppointment(s).CheckDeletable(); err != nil {
			t.Errorf("%s should be deletable: %v", s, err)
		}
	}
	err := newAppointment(AppointmentStatusCompleted).CheckDeletable()
	if !errors.Is(err, ErrOperationNotAllowed) {
		t.Fatalf("err = %v, want ErrOperationNotAllowed", err)
	}
	if !strings.Contains(err.Error(), "cancel") {
		t.Errorf("error %q should point to cancellation", err)
	}
}

func TestNormalizeClock(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "14:00", want: "14:00"},
		{in: "9:05", want: "09:05"},
		{in: "00:00", want: "00:00"},
		{in: "23:59", want: "23:59"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizeClock(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidClock) {
				t.Errorf("NormalizeClock(%q) err = %v, want ErrInvalidClock", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("NormalizeClock(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-10")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Location() != time.UTC || d.Hour() != 0 || d.Day() != 10 {
		t.Fatalf("ParseDate = %v", d)
	}
	if _, err := ParseDate("10/03/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("err = %v, want ErrInvalidDate", err)
	}
}
