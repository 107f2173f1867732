package http

import (
	"net/http"

	"go-medical-appointment/internal/delivery/http/handler"
	"go-medical-appointment/internal/delivery/http/middleware"
	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/policy"

	"github.com/gorilla/mux"
)

type Router struct {
	router              *mux.Router
	authHandler         *handler.AuthHandler
	doctorHandler       *handler.DoctorHandler
	appointmentHandler  *handler.AppointmentHandler
	paymentHandler      *handler.PaymentHandler
	auditLogHandler     *handler.AuditLogHandler
	adminHandler        *handler.AdminHandler
	authMiddleware      *middleware.AuthMiddleware
	ownershipMiddleware *middleware.OwnershipMiddleware
	corsMiddleware      *middleware.CORSMiddleware
}

func NewRouter(
	authHandler *handler.AuthHandler,
	doctorHandler *handler.DoctorHandler,
	appointmentHandler *handler.AppointmentHandler,
	paymentHandler *handler.PaymentHandler,
	auditLogHandler *handler.AuditLogHandler,
	adminHandler *handler.AdminHandler,
	authMiddleware *middleware.AuthMiddleware,
	ownershipMiddleware *middleware.OwnershipMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		authHandler:         authHandler,
		doctorHandler:       doctorHandler,
		appointmentHandler:  appointmentHandler,
		paymentHandler:      paymentHandler,
		auditLogHandler:     auditLogHandler,
		adminHandler:        adminHandler,
		authMiddleware:      authMiddleware,
		ownershipMiddleware: ownershipMiddleware,
		corsMiddleware:      corsMiddleware,
	}
}

// chain wraps h so that mws run in the order given.
func chain(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var wrapped http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()
	authenticate := r.authMiddleware.Authenticate
	approvedDoctor := middleware.Require(policy.RequireRole(entity.RoleDoctor), policy.RequireApproved())

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Auth routes
	api.HandleFunc("/auth/register/patient", r.authHandler.RegisterPatient).Methods(http.MethodPost)
	api.HandleFunc("/auth/register/doctor", r.authHandler.RegisterDoctor).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", r.authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh-token", r.authHandler.RefreshToken).Methods(http.MethodPost)
	api.Handle("/auth/logout", chain(r.authHandler.Logout, authenticate)).Methods(http.MethodPost)
	api.Handle("/auth/me", chain(r.authHandler.GetCurrentUser, authenticate)).Methods(http.MethodGet)
	api.Handle("/auth/change-password", chain(r.authHandler.ChangePassword, authenticate)).Methods(http.MethodPut)
	api.Handle("/auth/profile", chain(r.authHandler.UpdateProfile, authenticate)).Methods(http.MethodPut)

	// Doctor directory (public)
	api.HandleFunc("/doctors", r.doctorHandler.GetApprovedDoctors).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{id}", r.doctorHandler.GetDoctor).Methods(http.MethodGet)

	// Doctor workspace
	api.Handle("/doctor/patients", chain(r.appointmentHandler.GetDoctorPatients, authenticate, approvedDoctor)).Methods(http.MethodGet)
	api.Handle("/doctor/profile", chain(r.doctorHandler.UpdateProfile,
		authenticate,
		middleware.Require(policy.RequireRole(entity.RoleDoctor)),
	)).Methods(http.MethodPut)

	// Appointments
	appointments := api.PathPrefix("/appointments").Subrouter()
	appointments.Use(authenticate)
	appointments.Handle("", chain(r.appointmentHandler.CreateAppointment,
		middleware.Require(policy.RequireRole(entity.RolePatient)),
	)).Methods(http.MethodPost)
	appointments.HandleFunc("", r.appointmentHandler.GetAppointments).Methods(http.MethodGet)
	appointments.Handle("/{id}", chain(r.appointmentHandler.GetAppointment,
		middleware.Require(policy.RequireApproved()),
		r.ownershipMiddleware.Appointment,
	)).Methods(http.MethodGet)
	appointments.Handle("/{id}/status", chain(r.appointmentHandler.UpdateStatus,
		approvedDoctor,
		r.ownershipMiddleware.Appointment,
	)).Methods(http.MethodPut)
	appointments.Handle("/{id}/cancel", chain(r.appointmentHandler.CancelAppointment,
		middleware.Require(policy.RequireRole(entity.RolePatient, entity.RoleDoctor), policy.RequireApproved()),
		r.ownershipMiddleware.Appointment,
	)).Methods(http.MethodPost)

	// Payments (patient only)
	payments := api.PathPrefix("/payments").Subrouter()
	payments.Use(authenticate)
	payments.Use(middleware.Require(policy.RequireRole(entity.RolePatient)))
	payments.HandleFunc("/orders", r.paymentHandler.CreateOrder).Methods(http.MethodPost)
	payments.HandleFunc("/verify", r.paymentHandler.VerifyPayment).Methods(http.MethodPost)
	payments.HandleFunc("/history", r.paymentHandler.GetPaymentHistory).Methods(http.MethodGet)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authenticate)
	admin.Use(middleware.Require(policy.RequireRole(entity.RoleAdmin)))

	manageDoctors := middleware.Require(policy.RequirePermission(entity.PermissionManageDoctors))
	admin.Handle("/doctors", chain(r.adminHandler.GetDoctors, manageDoctors)).Methods(http.MethodGet)
	admin.Handle("/doctors/pending", chain(r.doctorHandler.GetPendingDoctors, manageDoctors)).Methods(http.MethodGet)
	admin.Handle("/doctors/{id}/approve", chain(r.doctorHandler.SetApproval, manageDoctors)).Methods(http.MethodPut)
	admin.Handle("/doctors/{id}", chain(r.adminHandler.DeleteDoctor, manageDoctors)).Methods(http.MethodDelete)

	manageUsers := middleware.Require(policy.RequirePermission(entity.PermissionManageUsers))
	admin.Handle("/users", chain(r.adminHandler.GetUsers, manageUsers)).Methods(http.MethodGet)
	admin.Handle("/users/{id}", chain(r.adminHandler.DeleteUser, manageUsers)).Methods(http.MethodDelete)

	viewAuditLogs := middleware.Require(policy.RequirePermission(entity.PermissionViewAuditLogs))
	admin.Handle("/audit-logs", chain(r.auditLogHandler.GetAllAuditLogs, viewAuditLogs)).Methods(http.MethodGet)
	admin.Handle("/audit-logs/{id}", chain(r.auditLogHandler.GetAuditLog, viewAuditLogs)).Methods(http.MethodGet)

	// Preflight requests need a matching route for the CORS middleware to run
	r.router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
