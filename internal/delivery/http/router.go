package http

import (
	"net/http"

	"medical-office-api/internal/delivery/http/handler"
	"medical-office-api/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router                  *mux.Router
	authHandler             *handler.AuthHandler
	appointmentHandler      *handler.AppointmentHandler
	auditLogHandler         *handler.AuditLogHandler
	reminderHandler         *handler.ReminderHandler
	healthHandler           *handler.HealthHandler
	metricsHandler          http.Handler
	authMiddleware          *middleware.AuthMiddleware
	corsMiddleware          *middleware.CORSMiddleware
	observabilityMiddleware *middleware.ObservabilityMiddleware
}

func NewRouter(
	authHandler *handler.AuthHandler,
	appointmentHandler *handler.AppointmentHandler,
	auditLogHandler *handler.AuditLogHandler,
	reminderHandler *handler.ReminderHandler,
	healthHandler *handler.HealthHandler,
	metricsHandler http.Handler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	observabilityMiddleware *middleware.ObservabilityMiddleware,
) *Router {
	return &Router{
		router:                  mux.NewRouter(),
		authHandler:             authHandler,
		appointmentHandler:      appointmentHandler,
		auditLogHandler:         auditLogHandler,
		reminderHandler:         reminderHandler,
		healthHandler:           healthHandler,
		metricsHandler:          metricsHandler,
		authMiddleware:          authMiddleware,
		corsMiddleware:          corsMiddleware,
		observabilityMiddleware: observabilityMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	r.router.Handle("/metrics", r.metricsHandler).Methods(http.MethodGet)

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", r.healthHandler.Health).Methods(http.MethodGet)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.authHandler.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh-token", r.authHandler.RefreshToken).Methods(http.MethodPost)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", r.authHandler.GetCurrentUser).Methods(http.MethodGet)

	// Appointments (any authenticated role; the usecase scopes doctors and patients to their own)
	appointments := api.PathPrefix("/appointments").Subrouter()
	appointments.Use(r.authMiddleware.Authenticate)

	h := r.appointmentHandler
	appointments.HandleFunc("", h.ListAppointments).Methods(http.MethodGet)
	appointments.Handle("", secretaryOnly(h.ScheduleAppointment)).Methods(http.MethodPost)
	// registered before /{id} so it is not read as an appointment id
	appointments.Handle("/conflict-check", secretaryOrDoctor(h.CheckConflict)).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}", h.GetAppointment).Methods(http.MethodGet)
	appointments.Handle("/{id}", secretaryOnly(h.DeleteAppointment)).Methods(http.MethodDelete)
	appointments.Handle("/{id}/confirm", secretaryOrDoctor(h.ConfirmAppointment)).Methods(http.MethodPut)
	appointments.HandleFunc("/{id}/cancel", h.CancelAppointment).Methods(http.MethodPut)
	appointments.Handle("/{id}/reschedule", secretaryOnly(h.RescheduleAppointment)).Methods(http.MethodPut)
	appointments.Handle("/{id}/history", secretaryOnly(r.auditLogHandler.GetAppointmentHistory)).Methods(http.MethodGet)

	// Back office (secretary only)
	auditLogs := api.PathPrefix("/audit-logs").Subrouter()
	auditLogs.Use(r.authMiddleware.Authenticate, middleware.RequireSecretary)
	auditLogs.HandleFunc("/{id:[0-9]+}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	reminders := api.PathPrefix("/reminders").Subrouter()
	reminders.Use(r.authMiddleware.Authenticate, middleware.RequireSecretary)
	reminders.HandleFunc("/run", r.reminderHandler.SendReminders).Methods(http.MethodPost)

	// Preflight requests only need the CORS headers
	r.router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})

	r.router.Use(r.observabilityMiddleware.Handle)
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func secretaryOnly(fn http.HandlerFunc) http.Handler {
	return middleware.RequireSecretary(fn)
}

func secretaryOrDoctor(fn http.HandlerFunc) http.Handler {
	return middleware.RequireSecretaryOrDoctor(fn)
}
