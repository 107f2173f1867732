package service

import (
	"context"
	"errors"
	"time"

	"go-medical-appointment/config"
	"go-medical-appointment/internal/domain/entity"

	"github.com/sirupsen/logrus"
)

var ErrAccountLocked = errors.New("account is temporarily locked due to multiple failed login attempts")

const (
	defaultMaxLoginAttempts = 5
	defaultLockDuration     = 2 * time.Hour
)

type LoginThrottle interface {
	// CheckLock rejects a principal whose lock window is still open.
	CheckLock(principal entity.Principal) error
	// RecordOutcome persists the result of a password comparison and reports
	// whether the principal is locked afterwards.
	RecordOutcome(ctx context.Context, principal entity.Principal, success bool) (bool, error)
}

type loginThrottle struct {
	log          *logrus.Logger
	resolver     PrincipalResolver
	maxAttempts  int
	lockDuration time.Duration
	now          func() time.Time
}

func NewLoginThrottle(cfg config.SecurityConfig, clock func() time.Time, log *logrus.Logger, resolver PrincipalResolver) LoginThrottle {
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = defaultMaxLoginAttempts
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = defaultLockDuration
	}
	if clock == nil {
		clock = time.Now
	}
	return &loginThrottle{
		log:          log,
		resolver:     resolver,
		maxAttempts:  cfg.MaxLoginAttempts,
		lockDuration: cfg.LockDuration,
		now:          clock,
	}
}

func (t *loginThrottle) CheckLock(principal entity.Principal) error {
	if principal.Identity().IsLocked(t.now()) {
		return ErrAccountLocked
	}
	return nil
}

func (t *loginThrottle) RecordOutcome(ctx context.Context, principal entity.Principal, success bool) (bool, error) {
	store, ok := t.resolver.Store(principal.Role())
	if !ok {
		return false, ErrPrincipalNotFound
	}
	account := principal.Identity()
	now := t.now()

	if success {
		if err := store.RecordLoginSuccess(ctx, account.ID, now); err != nil {
			t.log.Warnf("Failed to reset login attempts for %s: %+v", account.ID, err)
			return false, err
		}
		account.FailedAttempts = 0
		account.LockUntil = nil
		account.LastLoginAt = &now
		return false, nil
	}

	attempts, lockUntil, err := store.RecordLoginFailure(ctx, account.ID, t.maxAttempts, now, now.Add(t.lockDuration))
	if err != nil {
		t.log.Warnf("Failed to record login failure for %s: %+v", account.ID, err)
		return false, err
	}
	account.FailedAttempts = attempts
	account.LockUntil = lockUntil

	locked := account.IsLocked(now)
	if locked {
		t.log.Warnf("Account %s (%s) locked after %d failed login attempts", account.ID, principal.Role(), attempts)
	}
	return locked, nil
}
