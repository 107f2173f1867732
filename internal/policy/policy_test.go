package policy

import (
	"errors"
	"testing"

	"go-medical-appointment/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patient() *entity.Patient {
	return &entity.Patient{Account: entity.Account{ID: uuid.New()}}
}

func doctor(approved bool) *entity.Doctor {
	d := &entity.Doctor{Account: entity.Account{ID: uuid.New()}}
	d.SetApproval(approved)
	return d
}

func admin(tier entity.AdminTier, perms ...entity.Permission) *entity.Admin {
	return &entity.Admin{Account: entity.Account{ID: uuid.New()}, Tier: tier, Permissions: perms}
}

func assertReason(t *testing.T, err error, want Reason) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
	got, ok := ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestRequireRole(t *testing.T) {
	check := RequireRole(entity.RolePatient, entity.RoleDoctor)

	assert.NoError(t, check(patient(), nil))
	assert.NoError(t, check(doctor(false), nil))
	assertReason(t, check(admin(entity.AdminTierSuper), nil), ReasonRoleMismatch)
}

func TestRequireApproved(t *testing.T) {
	check := RequireApproved()

	assert.NoError(t, check(doctor(true), nil))
	assertReason(t, check(doctor(false), nil), ReasonPendingApproval)
	assert.NoError(t, check(patient(), nil))
}

func TestRequireOwnership(t *testing.T) {
	owner := patient()
	assigned := doctor(true)
	appointment := &entity.Appointment{ID: uuid.New(), PatientID: owner.ID, DoctorID: assigned.ID}
	check := RequireOwnership()

	assert.NoError(t, check(owner, appointment))
	assert.NoError(t, check(assigned, appointment))
	assert.NoError(t, check(admin(entity.AdminTierStandard), appointment))
	assertReason(t, check(patient(), appointment), ReasonNotOwner)
	assertReason(t, check(doctor(true), appointment), ReasonNotOwner)
	assertReason(t, check(owner, nil), ReasonNotOwner)

	order := &entity.PaymentOrder{OrderID: "order_1", PatientID: owner.ID}
	assert.NoError(t, check(owner, order))
	assertReason(t, check(assigned, order), ReasonNotOwner)
}

func TestRequirePermission(t *testing.T) {
	check := RequirePermission(entity.PermissionManageDoctors)

	assert.NoError(t, check(admin(entity.AdminTierStandard, entity.PermissionManageDoctors), nil))
	assert.NoError(t, check(admin(entity.AdminTierSuper), nil))
	assertReason(t, check(admin(entity.AdminTierStandard, entity.PermissionViewAuditLogs), nil), ReasonMissingPermission)
	assertReason(t, check(doctor(true), nil), ReasonRoleMismatch)
}

func TestChainStopsAtFirstFailure(t *testing.T) {
	calls := 0
	counting := func(entity.Principal, Resource) error {
		calls++
		return nil
	}

	err := Chain(counting, RequireRole(entity.RoleDoctor), RequireApproved(), counting)(doctor(false), nil)
	assertReason(t, err, ReasonPendingApproval)
	assert.Equal(t, 1, calls)

	err = Chain(RequireRole(entity.RoleAdmin), counting)(patient(), nil)
	assertReason(t, err, ReasonRoleMismatch)
	assert.Equal(t, 1, calls)
}

func TestAuthorize(t *testing.T) {
	assert.ErrorIs(t, Authorize(nil, nil, RequireRole(entity.RolePatient)), ErrUnauthenticated)
	assert.NoError(t, Authorize(patient(), nil))

	err := Authorize(patient(), nil, RequireRole(entity.RoleDoctor))
	var fe *ForbiddenError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "you do not have permission to perform this action", fe.Message())
}
