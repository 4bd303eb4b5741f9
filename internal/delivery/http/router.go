package http

import (
	"net/http"

	"dispensary-queue/internal/delivery/http/handler"
	"dispensary-queue/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router              *mux.Router
	availabilityHandler *handler.AvailabilityHandler
	bookingHandler      *handler.BookingHandler
	scheduleHandler     *handler.ScheduleHandler
	auditLogHandler     *handler.AuditLogHandler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
	metricsMiddleware   *middleware.MetricsMiddleware
	metricsHandler      http.Handler
}

func NewRouter(
	availabilityHandler *handler.AvailabilityHandler,
	bookingHandler *handler.BookingHandler,
	scheduleHandler *handler.ScheduleHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	metricsMiddleware *middleware.MetricsMiddleware,
	metricsHandler http.Handler,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		availabilityHandler: availabilityHandler,
		bookingHandler:      bookingHandler,
		scheduleHandler:     scheduleHandler,
		auditLogHandler:     auditLogHandler,
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
		metricsMiddleware:   metricsMiddleware,
		metricsHandler:      metricsHandler,
	}
}

func (r *Router) Setup() *mux.Router {
	// Operational endpoints
	r.router.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)
	r.router.Handle("/metrics", r.metricsHandler).Methods(http.MethodGet)

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Availability (public)
	api.HandleFunc("/availability", r.availabilityHandler.GetAvailability).Methods(http.MethodGet)

	// Patient bookings
	bookings := api.PathPrefix("/bookings").Subrouter()
	bookings.Use(r.authMiddleware.Authenticate)
	bookings.Use(middleware.RequirePatient)
	bookings.HandleFunc("", r.bookingHandler.CreateBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/me", r.bookingHandler.GetMyBookings).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}/cancel", r.bookingHandler.CancelMyBooking).Methods(http.MethodPost)

	// Dispensary counter (admin or staff)
	counter := api.PathPrefix("/admin/bookings").Subrouter()
	counter.Use(r.authMiddleware.Authenticate)
	counter.Use(middleware.RequireAdminOrStaff)
	counter.HandleFunc("", r.bookingHandler.CreateWalkInBooking).Methods(http.MethodPost)
	counter.HandleFunc("", r.bookingHandler.ListSessionBookings).Methods(http.MethodGet)
	counter.HandleFunc("/{id}/cancel", r.bookingHandler.CancelBooking).Methods(http.MethodPost)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	// Weekly schedules
	admin.HandleFunc("/weekly-schedules", r.scheduleHandler.CreateWeeklySchedule).Methods(http.MethodPost)
	admin.HandleFunc("/weekly-schedules", r.scheduleHandler.ListWeeklySchedules).Methods(http.MethodGet)
	admin.HandleFunc("/weekly-schedules/{id}", r.scheduleHandler.GetWeeklySchedule).Methods(http.MethodGet)
	admin.HandleFunc("/weekly-schedules/{id}", r.scheduleHandler.UpdateWeeklySchedule).Methods(http.MethodPut)
	admin.HandleFunc("/weekly-schedules/{id}", r.scheduleHandler.DeactivateWeeklySchedule).Methods(http.MethodDelete)

	// Date overrides
	admin.HandleFunc("/overrides", r.scheduleHandler.SaveOverride).Methods(http.MethodPut)
	admin.HandleFunc("/overrides", r.scheduleHandler.ListOverrides).Methods(http.MethodGet)
	admin.HandleFunc("/overrides/{id}", r.scheduleHandler.GetOverride).Methods(http.MethodGet)
	admin.HandleFunc("/overrides/{id}", r.scheduleHandler.DeleteOverride).Methods(http.MethodDelete)

	// Audit trail
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	r.router.Use(r.metricsMiddleware.Handle)
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
