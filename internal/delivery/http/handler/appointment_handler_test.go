package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/delivery/http/middleware"
	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/usecase"
	"medical-office-api/pkg/response"
	"medical-office-api/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type stubAppointmentUsecase struct {
	err       error
	listQuery *dto.ListAppointmentsQuery
	cancelReq *dto.CancelAppointmentRequest
	actor     entity.Actor
}

func (s *stubAppointmentUsecase) Schedule(ctx context.Context, actor entity.Actor, req *dto.ScheduleAppointmentRequest) (*dto.AppointmentResponse, error) {
	s.actor = actor
	if s.err != nil {
		return nil, s.err
	}
	return &dto.AppointmentResponse{ID: uuid.New(), Date: req.Date, Time: req.Time, Status: "SCHEDULED"}, nil
}

func (s *stubAppointmentUsecase) Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.AppointmentResponse{ID: id}, nil
}

func (s *stubAppointmentUsecase) List(ctx context.Context, actor entity.Actor, query *dto.ListAppointmentsQuery) (*dto.AppointmentListResponse, error) {
	s.listQuery = query
	if s.err != nil {
		return nil, s.err
	}
	return &dto.AppointmentListResponse{Items: []dto.AppointmentResponse{}, CurrentPage: 1}, nil
}

func (s *stubAppointmentUsecase) Confirm(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.AppointmentResponse{ID: id, Status: "COMPLETED"}, nil
}

func (s *stubAppointmentUsecase) Cancel(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error) {
	s.cancelReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &dto.AppointmentResponse{ID: id, Status: "CANCELLED"}, nil
}

func (s *stubAppointmentUsecase) Reschedule(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.AppointmentResponse{ID: id, Date: req.Date, Time: req.Time}, nil
}

func (s *stubAppointmentUsecase) CheckConflict(ctx context.Context, actor entity.Actor, query *dto.ConflictCheckQuery) (*dto.ConflictCheckResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.ConflictCheckResponse{}, nil
}

func (s *stubAppointmentUsecase) Delete(ctx context.Context, actor entity.Actor, id uuid.UUID) error {
	return s.err
}

var secretary = entity.Actor{UserID: uuid.New(), RoleID: entity.RoleIDSecretary}

func authed(r *http.Request, actor entity.Actor) *http.Request {
	ctx := middleware.WithClaims(r.Context(), actor.UserID, "staff@example.com", actor.RoleID, "token-1")
	return r.WithContext(ctx)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestScheduleAppointmentCreated(t *testing.T) {
	uc := &stubAppointmentUsecase{}
	h := NewAppointmentHandler(uc, validator.NewValidator())

	body := `{"date":"2024-03-10","time":"14:00","reason":"checkup","patient_id":"` + uuid.NewString() +
		`","practitioner_id":"` + uuid.NewString() + `"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body)), secretary)
	rec := httptest.NewRecorder()

	h.ScheduleAppointment(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if uc.actor != secretary {
		t.Fatalf("actor not passed through: %+v", uc.actor)
	}
	if !decode(t, rec).Success {
		t.Fatal("expected success envelope")
	}
}

func TestScheduleAppointmentValidation(t *testing.T) {
	h := NewAppointmentHandler(&stubAppointmentUsecase{}, validator.NewValidator())

	body := `{"date":"2024-03-10","time":"2pm","reason":"checkup"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body)), secretary)
	rec := httptest.NewRecorder()

	h.ScheduleAppointment(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	errs, _ := decode(t, rec).Error.(map[string]interface{})
	if _, ok := errs["time"]; !ok {
		t.Fatalf("expected time error, got %v", errs)
	}
	if _, ok := errs["patient_id"]; !ok {
		t.Fatalf("expected patient_id error, got %v", errs)
	}
}

func TestScheduleAppointmentRequiresActor(t *testing.T) {
	h := NewAppointmentHandler(&stubAppointmentUsecase{}, validator.NewValidator())
	rec := httptest.NewRecorder()

	h.ScheduleAppointment(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader("{}")))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAppointmentErrorMapping(t *testing.T) {
	existing := &entity.Appointment{
		ID:   uuid.New(),
		Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Time: "14:00",
	}

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"conflict", &usecase.SlotConflictError{Existing: existing}, http.StatusBadRequest},
		{"validation", &usecase.ValidationError{Field: "time", Message: "bad"}, http.StatusBadRequest},
		{"transition", &entity.TransitionError{Action: "cancel", From: entity.AppointmentStatusCompleted}, http.StatusBadRequest},
		{"already cancelled", entity.ErrAlreadyCancelled, http.StatusBadRequest},
		{"not allowed", entity.ErrOperationNotAllowed, http.StatusBadRequest},
		{"not found", usecase.ErrAppointmentNotFound, http.StatusNotFound},
		{"forbidden", usecase.ErrForbidden, http.StatusForbidden},
		{"busy", usecase.ErrSlotBusy, http.StatusConflict},
		{"stale", usecase.ErrConcurrentUpdate, http.StatusConflict},
		{"unexpected", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAppointmentHandler(&stubAppointmentUsecase{err: tc.err}, validator.NewValidator())
			id := uuid.New()
			req := authed(httptest.NewRequest(http.MethodPut, "/api/v1/appointments/"+id.String()+"/confirm", nil), secretary)
			req = mux.SetURLVars(req, map[string]string{"id": id.String()})
			rec := httptest.NewRecorder()

			h.ConfirmAppointment(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestConflictResponseCarriesExistingAppointment(t *testing.T) {
	existing := &entity.Appointment{
		ID:   uuid.New(),
		Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Time: "14:00",
	}
	h := NewAppointmentHandler(&stubAppointmentUsecase{err: &usecase.SlotConflictError{Existing: existing}}, validator.NewValidator())

	id := uuid.New()
	req := authed(httptest.NewRequest(http.MethodPut, "/api/v1/appointments/"+id.String()+"/reschedule",
		strings.NewReader(`{"date":"2024-03-10","time":"14:00"}`)), secretary)
	req = mux.SetURLVars(req, map[string]string{"id": id.String()})
	rec := httptest.NewRecorder()

	h.RescheduleAppointment(rec, req)

	body := decode(t, rec)
	appt, _ := body.Error.(map[string]interface{})
	if appt["id"] != existing.ID.String() || appt["time"] != "14:00" {
		t.Fatalf("conflict payload = %v", body.Error)
	}
}

func TestCancelAppointmentWithoutBody(t *testing.T) {
	uc := &stubAppointmentUsecase{}
	h := NewAppointmentHandler(uc, validator.NewValidator())

	id := uuid.New()
	req := authed(httptest.NewRequest(http.MethodPut, "/api/v1/appointments/"+id.String()+"/cancel", nil), secretary)
	req = mux.SetURLVars(req, map[string]string{"id": id.String()})
	rec := httptest.NewRecorder()

	h.CancelAppointment(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if uc.cancelReq == nil || uc.cancelReq.Reason != "" {
		t.Fatalf("unexpected cancel request %+v", uc.cancelReq)
	}
}

func TestInvalidAppointmentID(t *testing.T) {
	h := NewAppointmentHandler(&stubAppointmentUsecase{}, validator.NewValidator())
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/appointments/abc", nil), secretary)
	req = mux.SetURLVars(req, map[string]string{"id": "abc"})
	rec := httptest.NewRecorder()

	h.GetAppointment(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListAppointmentsQueryBinding(t *testing.T) {
	uc := &stubAppointmentUsecase{}
	h := NewAppointmentHandler(uc, validator.NewValidator())
	practitioner := uuid.NewString()

	req := authed(httptest.NewRequest(http.MethodGet,
		"/api/v1/appointments?practitioner_id="+practitioner+"&status=scheduled&date_from=2024-03-01&page=2&page_size=5", nil), secretary)
	rec := httptest.NewRecorder()

	h.ListAppointments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	q := uc.listQuery
	if q.PractitionerID != practitioner || q.Status != "scheduled" || q.DateFrom != "2024-03-01" || q.Page != 2 || q.PageSize != 5 {
		t.Fatalf("unexpected query %+v", q)
	}

	rec = httptest.NewRecorder()
	h.ListAppointments(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/appointments?page=two", nil), secretary))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad page: status = %d", rec.Code)
	}
}
