package repository

import (
	"context"
	"time"

	"go-medical-appointment/internal/domain/entity"

	"github.com/google/uuid"
)

// AccountRepository is the keyed-record store for one principal kind. Lookups
// return (nil, nil) when no record matches.
type AccountRepository interface {
	Role() entity.Role
	Create(ctx context.Context, principal entity.Principal) error
	FindByID(ctx context.Context, id uuid.UUID) (entity.Principal, error)
	FindByEmail(ctx context.Context, email string) (entity.Principal, error)
	// RecordLoginFailure atomically increments the failed attempt counter, capped
	// at threshold, and sets lock_until once the threshold is reached. A lock
	// that expired before now restarts the count. It returns the stored counter
	// and lock expiry after the update.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, now, lockUntil time.Time) (int, *time.Time, error)
	RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	// UpdateProfile writes only the self-service profile columns of principal.
	UpdateProfile(ctx context.Context, principal entity.Principal) error
	List(ctx context.Context, limit, offset int) ([]entity.Principal, int64, error)
	// Delete soft-deletes the account; appointments keep referencing it.
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type DoctorRepository interface {
	AccountRepository
	FindDoctorByID(ctx context.Context, id uuid.UUID) (*entity.Doctor, error)
	FindApproved(ctx context.Context, specialization string) ([]entity.Doctor, error)
	FindPending(ctx context.Context) ([]entity.Doctor, error)
	UpdateApproval(ctx context.Context, id uuid.UUID, approved bool) (int64, error)
}
