package handler

import (
	"net/http"
	"time"

	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/usecase"
	"medical-office-api/pkg/response"
)

type ReminderHandler struct {
	reminderUsecase usecase.ReminderUsecase
}

func NewReminderHandler(reminderUsecase usecase.ReminderUsecase) *ReminderHandler {
	return &ReminderHandler{reminderUsecase: reminderUsecase}
}

// SendReminders triggers a reminder pass for ?date=YYYY-MM-DD, defaulting to the configured lead day
func (h *ReminderHandler) SendReminders(w http.ResponseWriter, r *http.Request) {
	day := h.reminderUsecase.DefaultDay(time.Now())
	if value := r.URL.Query().Get("date"); value != "" {
		parsed, err := entity.ParseDate(value)
		if err != nil {
			response.ValidationError(w, map[string]string{"date": "date must be a date in YYYY-MM-DD format"})
			return
		}
		day = parsed
	}

	run, err := h.reminderUsecase.SendReminders(r.Context(), day)
	if err != nil {
		response.InternalServerError(w, "Failed to send reminders")
		return
	}

	response.Success(w, http.StatusAccepted, "Reminders queued", run)
}
