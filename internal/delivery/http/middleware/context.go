package middleware

import (
	"context"

	"go-medical-appointment/internal/domain/entity"

	"github.com/google/uuid"
)

type contextKey string

const (
	PrincipalKey   contextKey = "principal"
	TokenIDKey     contextKey = "token_id"
	AppointmentKey contextKey = "appointment"
)

// WithPrincipal stores the resolved principal and the access token id.
func WithPrincipal(ctx context.Context, principal entity.Principal, tokenID string) context.Context {
	ctx = context.WithValue(ctx, PrincipalKey, principal)
	return context.WithValue(ctx, TokenIDKey, tokenID)
}

// GetPrincipalFromContext extracts the authenticated principal from context
func GetPrincipalFromContext(ctx context.Context) (entity.Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(entity.Principal)
	return principal, ok && principal != nil
}

// GetTokenIDFromContext extracts token ID from context
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(TokenIDKey).(string)
	return tokenID, ok
}

// WithAppointment caches an appointment already loaded for this request.
func WithAppointment(ctx context.Context, appointment *entity.Appointment) context.Context {
	return context.WithValue(ctx, AppointmentKey, appointment)
}

// GetAppointmentFromContext returns the cached appointment when it has the given id.
func GetAppointmentFromContext(ctx context.Context, id uuid.UUID) (*entity.Appointment, bool) {
	appointment, ok := ctx.Value(AppointmentKey).(*entity.Appointment)
	if !ok || appointment == nil || appointment.ID != id {
		return nil, false
	}
	return appointment, true
}
