package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"medical-office-api/internal/converter"
	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/delivery/http/middleware"
	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/usecase"
	"medical-office-api/pkg/response"
	"medical-office-api/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
	}
}

func (h *AppointmentHandler) ScheduleAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	var req dto.ScheduleAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.Schedule(r.Context(), actor, &req)
	if err != nil {
		writeAppointmentError(w, err, "Failed to schedule appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment scheduled successfully", appointment)
}

func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	q := r.URL.Query()
	query := dto.ListAppointmentsQuery{
		PractitionerID: q.Get("practitioner_id"),
		PatientID:      q.Get("patient_id"),
		Status:         q.Get("status"),
		DateFrom:       q.Get("date_from"),
		DateTo:         q.Get("date_to"),
	}

	var err error
	if query.Page, err = intParam(q.Get("page")); err != nil {
		response.ValidationError(w, map[string]string{"page": "page must be a number"})
		return
	}
	if query.PageSize, err = intParam(q.Get("page_size")); err != nil {
		response.ValidationError(w, map[string]string{"page_size": "page_size must be a number"})
		return
	}
	if err := h.validator.Validate(&query); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointments, err := h.appointmentUsecase.List(r.Context(), actor, &query)
	if err != nil {
		writeAppointmentError(w, err, "Failed to list appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.Get(r.Context(), actor, id)
	if err != nil {
		writeAppointmentError(w, err, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *AppointmentHandler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.Confirm(r.Context(), actor, id)
	if err != nil {
		writeAppointmentError(w, err, "Failed to confirm appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment confirmed successfully", appointment)
}

func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	// the body is optional: no reason means "unspecified"
	var req dto.CancelAppointmentRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body")
			return
		}
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.Cancel(r.Context(), actor, id, &req)
	if err != nil {
		writeAppointmentError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled successfully", appointment)
}

func (h *AppointmentHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	var req dto.RescheduleAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.Reschedule(r.Context(), actor, id, &req)
	if err != nil {
		writeAppointmentError(w, err, "Failed to reschedule appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment rescheduled successfully", appointment)
}

func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndID(w, r)
	if !ok {
		return
	}

	if err := h.appointmentUsecase.Delete(r.Context(), actor, id); err != nil {
		writeAppointmentError(w, err, "Failed to delete appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment deleted successfully", nil)
}

func (h *AppointmentHandler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	q := r.URL.Query()
	query := dto.ConflictCheckQuery{
		Date:           q.Get("date"),
		Time:           q.Get("time"),
		PractitionerID: q.Get("practitioner_id"),
		ExcludeID:      q.Get("exclude_id"),
	}
	if err := h.validator.Validate(&query); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.appointmentUsecase.CheckConflict(r.Context(), actor, &query)
	if err != nil {
		writeAppointmentError(w, err, "Failed to check slot")
		return
	}

	response.Success(w, http.StatusOK, "Slot checked successfully", result)
}

func actorAndID(w http.ResponseWriter, r *http.Request) (entity.Actor, uuid.UUID, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return entity.Actor{}, uuid.Nil, false
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid appointment ID")
		return entity.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

func intParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func writeAppointmentError(w http.ResponseWriter, err error, fallback string) {
	var (
		conflict   *usecase.SlotConflictError
		validation *usecase.ValidationError
	)

	switch {
	case errors.As(err, &validation):
		response.ValidationError(w, map[string]string{validation.Field: validation.Field + " " + validation.Message})
	case errors.As(err, &conflict):
		response.Error(w, http.StatusBadRequest, conflict.Error(), converter.AppointmentToResponse(conflict.Existing))
	case errors.Is(err, usecase.ErrAppointmentNotFound),
		errors.Is(err, usecase.ErrPatientNotFound),
		errors.Is(err, usecase.ErrPractitionerNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, usecase.ErrForbidden):
		response.Forbidden(w, err.Error())
	case errors.Is(err, usecase.ErrSlotBusy),
		errors.Is(err, usecase.ErrConcurrentUpdate):
		response.Conflict(w, err.Error())
	case errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, entity.ErrAlreadyCancelled),
		errors.Is(err, entity.ErrOperationNotAllowed):
		response.BadRequest(w, err.Error())
	default:
		response.InternalServerError(w, fallback)
	}
}
