package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go-medical-appointment/internal/delivery/http/middleware"
	"go-medical-appointment/internal/service"
	"go-medical-appointment/internal/usecase"
	"go-medical-appointment/pkg/response"
)

// respondError maps usecase and policy errors to responses. Anything
// unrecognised becomes a 500 carrying only fallback.
func respondError(w http.ResponseWriter, err error, fallback string) {
	if middleware.RespondAuthorizationError(w, err) {
		return
	}

	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid email or password")
	case errors.Is(err, usecase.ErrUnauthenticated),
		errors.Is(err, usecase.ErrInvalidToken),
		errors.Is(err, usecase.ErrTokenRevoked):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrAccountLocked):
		response.Locked(w, "Account is temporarily locked due to too many failed login attempts")

	case errors.Is(err, usecase.ErrEmailAlreadyExists),
		errors.Is(err, usecase.ErrLicenseAlreadyExists),
		errors.Is(err, usecase.ErrInvalidTransition),
		errors.Is(err, usecase.ErrAppointmentAlreadyPaid):
		response.Conflict(w, err.Error())

	case errors.Is(err, usecase.ErrAppointmentNotFound),
		errors.Is(err, usecase.ErrDoctorNotFound),
		errors.Is(err, usecase.ErrUserNotFound),
		errors.Is(err, usecase.ErrAuditLogNotFound):
		response.NotFound(w, err.Error())

	case errors.Is(err, usecase.ErrDoctorNotApproved),
		errors.Is(err, usecase.ErrAppointmentDateInPast),
		errors.Is(err, usecase.ErrInvalidDateFormat),
		errors.Is(err, usecase.ErrInvalidFee),
		errors.Is(err, usecase.ErrInvalidOldPassword),
		errors.Is(err, usecase.ErrUnsupportedStatusValue),
		errors.Is(err, usecase.ErrInvalidPaymentAmount),
		errors.Is(err, usecase.ErrPaymentVerificationFailed):
		response.BadRequest(w, err.Error())

	case errors.Is(err, usecase.ErrPaymentProviderUnavailable):
		response.ServiceUnavailable(w, "Payment provider is unavailable, try again later")

	default:
		response.InternalServerError(w, fallback)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

// pageParams reads page and limit, clamped to 1 and 1..100 (default 10).
func pageParams(r *http.Request) (int, int) {
	page := max(queryInt(r, "page", 1), 1)
	limit := queryInt(r, "limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
