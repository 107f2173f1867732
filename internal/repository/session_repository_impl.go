package repository

import (
	"context"
	"fmt"
	"time"

	domainRepo "go-medical-appointment/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type sessionRepository struct {
	redisClient *redis.Client
}

func NewSessionRepository(redisClient *redis.Client) domainRepo.SessionRepository {
	return &sessionRepository{redisClient: redisClient}
}

// sessionKey builds "<kind>_token:<principal>:<token id>".
func sessionKey(kind string, principalID uuid.UUID, tokenID string) string {
	return fmt.Sprintf("%s_token:%s:%s", kind, principalID.String(), tokenID)
}

func (r *sessionRepository) Store(ctx context.Context, kind string, principalID uuid.UUID, tokenID string, ttl time.Duration) error {
	return r.redisClient.Set(ctx, sessionKey(kind, principalID, tokenID), "valid", ttl).Err()
}

func (r *sessionRepository) Exists(ctx context.Context, kind string, principalID uuid.UUID, tokenID string) (bool, error) {
	exists, err := r.redisClient.Exists(ctx, sessionKey(kind, principalID, tokenID)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (r *sessionRepository) Delete(ctx context.Context, kind string, principalID uuid.UUID, tokenID string) error {
	return r.redisClient.Del(ctx, sessionKey(kind, principalID, tokenID)).Err()
}

// DeleteAll revokes every token issued to the principal.
func (r *sessionRepository) DeleteAll(ctx context.Context, principalID uuid.UUID) error {
	pattern := fmt.Sprintf("*_token:%s:*", principalID.String())
	iter := r.redisClient.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.redisClient.Del(ctx, keys...).Err()
}
