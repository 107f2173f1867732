package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/domain/repository"
	"go-medical-appointment/internal/policy"
	"go-medical-appointment/internal/service"
	"go-medical-appointment/pkg/jwt"
	"go-medical-appointment/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type AuthMiddleware struct {
	log         *logrus.Logger
	jwtService  *jwt.JWTService
	sessionRepo repository.SessionRepository
	resolver    service.PrincipalResolver
}

func NewAuthMiddleware(
	log *logrus.Logger,
	jwtService *jwt.JWTService,
	sessionRepo repository.SessionRepository,
	resolver service.PrincipalResolver,
) *AuthMiddleware {
	return &AuthMiddleware{
		log:         log,
		jwtService:  jwtService,
		sessionRepo: sessionRepo,
		resolver:    resolver,
	}
}

// Authenticate turns a bearer access token into a principal on the request
// context. Every token failure gets the same 401; the cause is only logged.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil || claims.TokenType != jwt.AccessToken {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		// Check if token is still on the allowlist (not revoked)
		exists, err := m.sessionRepo.Exists(r.Context(), string(jwt.AccessToken), claims.PrincipalID, claims.TokenID)
		if err != nil {
			m.log.Warnf("Failed to check access token %s: %+v", claims.TokenID, err)
			response.InternalServerError(w, "Failed to validate token")
			return
		}
		if !exists {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		principal, err := m.resolver.Resolve(r.Context(), claims.PrincipalID, entity.Role(claims.Role))
		if err != nil {
			if errors.Is(err, service.ErrPrincipalNotFound) {
				m.log.Warnf("Token %s names unknown %s %s", claims.TokenID, claims.Role, claims.PrincipalID)
				response.Unauthorized(w, "Invalid or expired token")
				return
			}
			m.log.Warnf("Failed to resolve principal %s: %+v", claims.PrincipalID, err)
			response.InternalServerError(w, "Failed to validate token")
			return
		}

		ctx := WithPrincipal(r.Context(), principal, claims.TokenID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require applies principal level checks to every route behind it. It must run
// after Authenticate.
func Require(checks ...policy.Check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := GetPrincipalFromContext(r.Context())
			if err := policy.Authorize(principal, nil, checks...); err != nil {
				RespondAuthorizationError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type OwnershipMiddleware struct {
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
}

func NewOwnershipMiddleware(log *logrus.Logger, appointmentRepo repository.AppointmentRepository) *OwnershipMiddleware {
	return &OwnershipMiddleware{
		log:             log,
		appointmentRepo: appointmentRepo,
	}
}

// Appointment loads the appointment named by the {id} route variable, checks
// that the caller owns it and caches it on the context for the handler.
func (m *OwnershipMiddleware) Appointment(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipalFromContext(r.Context())
		if !ok {
			response.Unauthorized(w, "")
			return
		}

		id, err := uuid.Parse(mux.Vars(r)["id"])
		if err != nil {
			response.BadRequest(w, "Invalid appointment ID")
			return
		}

		appointment, err := m.appointmentRepo.FindByID(r.Context(), id)
		if err != nil {
			m.log.Warnf("Failed to find appointment %s: %+v", id, err)
			response.InternalServerError(w, "Failed to get appointment")
			return
		}
		if appointment == nil {
			if principal.Role() == entity.RoleAdmin {
				response.NotFound(w, "Appointment not found")
				return
			}
			RespondAuthorizationError(w, policy.Forbidden(policy.ReasonNotOwner))
			return
		}

		if err := policy.Authorize(principal, appointment, policy.RequireOwnership()); err != nil {
			RespondAuthorizationError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAppointment(r.Context(), appointment)))
	})
}

// RespondAuthorizationError writes the response for a policy failure and
// reports whether err was one.
func RespondAuthorizationError(w http.ResponseWriter, err error) bool {
	var fe *policy.ForbiddenError
	switch {
	case errors.As(err, &fe):
		response.ForbiddenReason(w, string(fe.Reason), fe.Message())
	case errors.Is(err, policy.ErrUnauthenticated):
		response.Unauthorized(w, "")
	default:
		return false
	}
	return true
}
