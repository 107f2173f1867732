package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-medical-appointment/config"
	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/repository/memory"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newThrottleFixture(t *testing.T) (LoginThrottle, *memory.AccountStore, *entity.Patient, *fakeClock) {
	t.Helper()
	log, _ := test.NewNullLogger()
	patients := memory.NewPatientStore()
	patient := &entity.Patient{Account: entity.Account{Email: "ana@example.com", Name: "Ana"}}
	patients.Seed(patient)

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	resolver := NewPrincipalResolver(log, patients, memory.NewDoctorStore(), memory.NewAdminStore())
	throttle := NewLoginThrottle(config.SecurityConfig{MaxLoginAttempts: 5, LockDuration: 2 * time.Hour}, clock.Now, log, resolver)
	return throttle, patients, patient, clock
}

func stored(t *testing.T, store *memory.AccountStore, p entity.Principal) *entity.Account {
	t.Helper()
	found, err := store.FindByID(context.Background(), p.Identity().ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	return found.Identity()
}

func TestLoginThrottle_LocksAtThreshold(t *testing.T) {
	throttle, store, patient, _ := newThrottleFixture(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		locked, err := throttle.RecordOutcome(ctx, patient, false)
		require.NoError(t, err)
		assert.False(t, locked, "attempt %d", i)
		assert.NoError(t, throttle.CheckLock(patient))
	}

	locked, err := throttle.RecordOutcome(ctx, patient, false)
	require.NoError(t, err)
	assert.True(t, locked)
	assert.ErrorIs(t, throttle.CheckLock(patient), ErrAccountLocked)

	account := stored(t, store, patient)
	assert.Equal(t, 5, account.FailedAttempts)
	require.NotNil(t, account.LockUntil)
}

func TestLoginThrottle_CounterStaysAtThreshold(t *testing.T) {
	throttle, store, patient, _ := newThrottleFixture(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, err := throttle.RecordOutcome(ctx, patient, false)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, stored(t, store, patient).FailedAttempts)
}

func TestLoginThrottle_WindowExpiryAndReset(t *testing.T) {
	throttle, store, patient, clock := newThrottleFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := throttle.RecordOutcome(ctx, patient, false)
		require.NoError(t, err)
	}
	require.ErrorIs(t, throttle.CheckLock(patient), ErrAccountLocked)

	clock.Advance(2*time.Hour - time.Second)
	assert.ErrorIs(t, throttle.CheckLock(patient), ErrAccountLocked)

	clock.Advance(time.Second)
	assert.NoError(t, throttle.CheckLock(patient))

	locked, err := throttle.RecordOutcome(ctx, patient, true)
	require.NoError(t, err)
	assert.False(t, locked)

	account := stored(t, store, patient)
	assert.Zero(t, account.FailedAttempts)
	assert.Nil(t, account.LockUntil)
	require.NotNil(t, account.LastLoginAt)
	assert.Equal(t, clock.Now(), *account.LastLoginAt)
}

func TestLoginThrottle_FailureAfterExpiredLockRestartsCount(t *testing.T) {
	throttle, store, patient, clock := newThrottleFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := throttle.RecordOutcome(ctx, patient, false)
		require.NoError(t, err)
	}
	clock.Advance(3 * time.Hour)

	locked, err := throttle.RecordOutcome(ctx, patient, false)
	require.NoError(t, err)
	assert.False(t, locked)

	account := stored(t, store, patient)
	assert.Equal(t, 1, account.FailedAttempts)
	assert.Nil(t, account.LockUntil)
}

func TestLoginThrottle_ConcurrentFailuresAreNotLost(t *testing.T) {
	throttle, store, patient, _ := newThrottleFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// each request loads its own copy of the principal
			p, err := store.FindByID(ctx, patient.ID)
			if assert.NoError(t, err) {
				_, err = throttle.RecordOutcome(ctx, p, false)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	account := stored(t, store, patient)
	assert.Equal(t, 5, account.FailedAttempts)
	assert.True(t, account.IsLocked(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
}

func TestLoginThrottle_Defaults(t *testing.T) {
	log, _ := test.NewNullLogger()
	throttle := NewLoginThrottle(config.SecurityConfig{}, nil, log, NewPrincipalResolver(log)).(*loginThrottle)
	assert.Equal(t, 5, throttle.maxAttempts)
	assert.Equal(t, 2*time.Hour, throttle.lockDuration)
	assert.NotNil(t, throttle.now)
}
