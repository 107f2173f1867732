// Package policy holds the authorization checks applied to a resolved
// principal before a protected operation runs.
package policy

import (
	"errors"
	"slices"

	"go-medical-appointment/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
)

type Reason string

const (
	ReasonRoleMismatch      Reason = "roleMismatch"
	ReasonPendingApproval   Reason = "pendingApproval"
	ReasonNotOwner          Reason = "notOwner"
	ReasonMissingPermission Reason = "missingPermission"
)

var reasonMessages = map[Reason]string{
	ReasonRoleMismatch:      "you do not have permission to perform this action",
	ReasonPendingApproval:   "doctor account is pending approval",
	ReasonNotOwner:          "you do not have access to this resource",
	ReasonMissingPermission: "admin permission required",
}

type ForbiddenError struct {
	Reason Reason
}

func Forbidden(reason Reason) error {
	return &ForbiddenError{Reason: reason}
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + string(e.Reason)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// Message is the client facing text for the reason.
func (e *ForbiddenError) Message() string {
	if msg, ok := reasonMessages[e.Reason]; ok {
		return msg
	}
	return "access denied"
}

// ReasonOf extracts the reason from a forbidden error, if any.
func ReasonOf(err error) (Reason, bool) {
	var fe *ForbiddenError
	if errors.As(err, &fe) {
		return fe.Reason, true
	}
	return "", false
}

// Resource is anything with owning principals. Implemented by
// *entity.Appointment and *entity.PaymentOrder.
type Resource interface {
	OwnerIDs() []uuid.UUID
}

// Check inspects a principal, and optionally a resource, and returns nil to allow.
type Check func(p entity.Principal, r Resource) error

// Chain runs checks in order and stops at the first failure.
func Chain(checks ...Check) Check {
	return func(p entity.Principal, r Resource) error {
		for _, check := range checks {
			if err := check(p, r); err != nil {
				return err
			}
		}
		return nil
	}
}

// Authorize applies checks to p. A nil principal is unauthenticated.
func Authorize(p entity.Principal, r Resource, checks ...Check) error {
	if p == nil {
		return ErrUnauthenticated
	}
	return Chain(checks...)(p, r)
}

func RequireRole(roles ...entity.Role) Check {
	return func(p entity.Principal, _ Resource) error {
		if slices.Contains(roles, p.Role()) {
			return nil
		}
		return Forbidden(ReasonRoleMismatch)
	}
}

// RequireApproved rejects doctors whose account has not been approved. Other
// principals pass.
func RequireApproved() Check {
	return func(p entity.Principal, _ Resource) error {
		if d, ok := p.(*entity.Doctor); ok && !d.IsApproved {
			return Forbidden(ReasonPendingApproval)
		}
		return nil
	}
}

// RequireOwnership passes admins and principals listed by r.OwnerIDs. A nil
// resource is owned by nobody.
func RequireOwnership() Check {
	return func(p entity.Principal, r Resource) error {
		if p.Role() == entity.RoleAdmin {
			return nil
		}
		if r == nil {
			return Forbidden(ReasonNotOwner)
		}
		if slices.Contains(r.OwnerIDs(), p.Identity().ID) {
			return nil
		}
		return Forbidden(ReasonNotOwner)
	}
}

// RequirePermission is admin only. Super admins hold every permission.
func RequirePermission(permission entity.Permission) Check {
	return func(p entity.Principal, _ Resource) error {
		admin, ok := p.(*entity.Admin)
		if !ok {
			return Forbidden(ReasonRoleMismatch)
		}
		if !admin.HasPermission(permission) {
			return Forbidden(ReasonMissingPermission)
		}
		return nil
	}
}
