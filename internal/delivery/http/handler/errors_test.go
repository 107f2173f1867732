package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-medical-appointment/internal/policy"
	"go-medical-appointment/internal/service"
	"go-medical-appointment/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestRespondError_StatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{usecase.ErrInvalidCredentials, http.StatusUnauthorized},
		{usecase.ErrTokenRevoked, http.StatusUnauthorized},
		{policy.ErrUnauthenticated, http.StatusUnauthorized},
		{service.ErrAccountLocked, http.StatusLocked},
		{usecase.ErrEmailAlreadyExists, http.StatusConflict},
		{fmt.Errorf("confirm: %w", usecase.ErrInvalidTransition), http.StatusConflict},
		{usecase.ErrAppointmentAlreadyPaid, http.StatusConflict},
		{usecase.ErrAppointmentNotFound, http.StatusNotFound},
		{usecase.ErrDoctorNotApproved, http.StatusBadRequest},
		{usecase.ErrPaymentVerificationFailed, http.StatusBadRequest},
		{usecase.ErrPaymentProviderUnavailable, http.StatusServiceUnavailable},
		{policy.Forbidden(policy.ReasonNotOwner), http.StatusForbidden},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(rec, tc.err, "Failed")
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, errors.New("pq: password authentication failed"), "Failed to get appointment")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
	assert.Contains(t, rec.Body.String(), "Failed to get appointment")
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, totalPages(0, 10))
	assert.Equal(t, 1, totalPages(10, 10))
	assert.Equal(t, 2, totalPages(11, 10))
	assert.Equal(t, 0, totalPages(5, 0))
}
