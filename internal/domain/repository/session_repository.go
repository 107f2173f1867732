package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionRepository is the allowlist of issued token ids.
type SessionRepository interface {
	Store(ctx context.Context, kind string, principalID uuid.UUID, tokenID string, ttl time.Duration) error
	Exists(ctx context.Context, kind string, principalID uuid.UUID, tokenID string) (bool, error)
	Delete(ctx context.Context, kind string, principalID uuid.UUID, tokenID string) error
	DeleteAll(ctx context.Context, principalID uuid.UUID) error
}
