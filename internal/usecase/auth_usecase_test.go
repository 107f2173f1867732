package usecase

import (
	"context"
	"testing"
	"time"

	"go-medical-appointment/internal/delivery/dto"
	"go-medical-appointment/internal/delivery/http/middleware"
	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterPatient_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.auth.RegisterPatient(ctx, &dto.RegisterPatientRequest{
		Email:       "Ana@Example.com",
		Password:    "secret123",
		Name:        "Ana",
		DateOfBirth: "1990-04-12",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", resp.Email)
	assert.Equal(t, "patient", resp.Role)
	require.NotNil(t, resp.Patient)
	require.NotNil(t, resp.Patient.DateOfBirth)

	_, err = f.auth.RegisterPatient(ctx, &dto.RegisterPatientRequest{Email: "ANA@example.com", Password: "secret123", Name: "Ana"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	_, err = f.auth.RegisterPatient(ctx, &dto.RegisterPatientRequest{Email: "bo@example.com", Password: "secret123", Name: "Bo", DateOfBirth: "12/04/1990"})
	assert.ErrorIs(t, err, ErrInvalidDateFormat)
}

func TestRegisterDoctor_StartsUnapproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.RegisterDoctor(ctx, &dto.RegisterDoctorRequest{
		Email: "dr@example.com", Password: "secret123", Name: "Dr Who",
		Specialization: "Cardiology", LicenseNumber: "L-1", ConsultationFee: decimal.Zero,
	})
	assert.ErrorIs(t, err, ErrInvalidFee)

	resp, err := f.auth.RegisterDoctor(ctx, &dto.RegisterDoctorRequest{
		Email: "dr@example.com", Password: "secret123", Name: "Dr Who",
		Specialization: "Cardiology", LicenseNumber: "L-1", ConsultationFee: decimal.RequireFromString("150.00"),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Doctor)
	assert.False(t, resp.Doctor.IsApproved)
	assert.Equal(t, string(entity.DoctorStatusInactive), resp.Doctor.Status)
	assert.Equal(t, []string{entity.AuditActionUserRegister}, f.audits.Actions())
}

func TestLogin_WithRoleIssuesAllowlistedTokens(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")

	tokens, err := f.auth.Login(context.Background(), &dto.LoginRequest{Email: "ANA@example.com", Password: "secret123", Role: "patient"})
	require.NoError(t, err)
	require.NotNil(t, tokens.User)
	assert.Equal(t, patient.ID, tokens.User.ID)
	assert.Equal(t, int64(900), tokens.ExpiresIn)

	claims, err := f.jwtService.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "patient", claims.Role)

	ok, err := f.sessions.Exists(context.Background(), sessionAccess, patient.ID, claims.TokenID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, f.audits.Actions(), entity.AuditActionUserLogin)
}

func TestLogin_RoleSelectsStore(t *testing.T) {
	f := newFixture(t)
	f.seedPatient("ana@example.com", "secret123")

	_, err := f.auth.Login(context.Background(), &dto.LoginRequest{Email: "ana@example.com", Password: "secret123", Role: "doctor"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_WithoutRoleSearchesEveryStore(t *testing.T) {
	f := newFixture(t)
	doctor := f.seedDoctor("dr@example.com", true, 100)

	tokens, err := f.auth.Login(context.Background(), &dto.LoginRequest{Email: "dr@example.com", Password: "doctor-pass"})
	require.NoError(t, err)
	assert.Equal(t, doctor.ID, tokens.User.ID)
	assert.Equal(t, "doctor", tokens.User.Role)

	claims, err := f.jwtService.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "doctor", claims.Role)
}

func TestLogin_WithoutRoleAmbiguousEmailIsRejected(t *testing.T) {
	f := newFixture(t)
	f.seedPatient("same@example.com", "doctor-pass")
	f.seedDoctor("same@example.com", true, 100)

	_, err := f.auth.Login(context.Background(), &dto.LoginRequest{Email: "same@example.com", Password: "doctor-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(context.Background(), &dto.LoginRequest{Email: "same@example.com", Password: "doctor-pass", Role: "doctor"})
	assert.NoError(t, err)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Login(context.Background(), &dto.LoginRequest{Email: "nobody@example.com", Password: "x", Role: "admin"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	ctx := context.Background()
	wrong := &dto.LoginRequest{Email: "ana@example.com", Password: "wrong", Role: "patient"}
	right := &dto.LoginRequest{Email: "ana@example.com", Password: "secret123", Role: "patient"}

	for i := 0; i < 5; i++ {
		_, err := f.auth.Login(ctx, wrong)
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i+1)
	}
	assert.Equal(t, 1, countActions(f.audits.Actions(), entity.AuditActionAccountLocked))

	// the correct password is refused while the lock holds
	_, err := f.auth.Login(ctx, right)
	assert.ErrorIs(t, err, service.ErrAccountLocked)

	f.clock.Advance(2*time.Hour + time.Minute)

	tokens, err := f.auth.Login(ctx, right)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)

	stored, err := f.patients.FindByID(ctx, patient.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Identity().FailedAttempts)
	assert.Nil(t, stored.Identity().LockUntil)
	require.NotNil(t, stored.Identity().LastLoginAt)
}

func TestLogin_SuccessResetsCounterBeforeThreshold(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "ana@example.com", Password: "wrong", Role: "patient"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "ana@example.com", Password: "secret123", Role: "patient"})
	require.NoError(t, err)

	stored, err := f.patients.FindByID(ctx, patient.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Identity().FailedAttempts)
}

func TestRefreshToken_RotatesPair(t *testing.T) {
	f := newFixture(t)
	f.seedPatient("ana@example.com", "secret123")
	ctx := context.Background()

	tokens, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "ana@example.com", Password: "secret123", Role: "patient"})
	require.NoError(t, err)

	_, err = f.auth.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.AccessToken})
	assert.ErrorIs(t, err, ErrInvalidToken)

	rotated, err := f.auth.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = f.auth.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.auth.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: "garbage"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_RevokesPresentedTokens(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	bg := context.Background()

	tokens, err := f.auth.Login(bg, &dto.LoginRequest{Email: "ana@example.com", Password: "secret123", Role: "patient"})
	require.NoError(t, err)
	access, err := f.jwtService.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)

	ctx := middleware.WithPrincipal(bg, patient, access.TokenID)
	require.NoError(t, f.auth.Logout(ctx, &dto.LogoutRequest{RefreshToken: tokens.RefreshToken}))

	ok, err := f.sessions.Exists(bg, sessionAccess, patient.ID, access.TokenID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.auth.RefreshToken(bg, &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenRevoked)

	assert.ErrorIs(t, f.auth.Logout(bg, nil), ErrUnauthenticated)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	bg := context.Background()

	tokens, err := f.auth.Login(bg, &dto.LoginRequest{Email: "ana@example.com", Password: "secret123", Role: "patient"})
	require.NoError(t, err)

	err = f.auth.ChangePassword(as(patient), &dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newsecret"})
	assert.ErrorIs(t, err, ErrInvalidOldPassword)

	require.NoError(t, f.auth.ChangePassword(as(patient), &dto.ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "newsecret"}))

	// every token issued before the change is revoked
	_, err = f.auth.RefreshToken(bg, &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.auth.Login(bg, &dto.LoginRequest{Email: "ana@example.com", Password: "secret123", Role: "patient"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(bg, &dto.LoginRequest{Email: "ana@example.com", Password: "newsecret", Role: "patient"})
	assert.NoError(t, err)
}

func TestGetCurrentUser(t *testing.T) {
	f := newFixture(t)
	admin := f.seedAdmin("root@example.com", entity.AdminTierSuper)

	resp, err := f.auth.GetCurrentUser(as(admin))
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.Role)
	require.NotNil(t, resp.Admin)
	assert.Equal(t, "super-admin", resp.Admin.Tier)

	_, err = f.auth.GetCurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	patient := f.seedPatient("ana@example.com", "secret123")
	doctor := f.seedDoctor("dr@example.com", true, 150)
	bg := context.Background()

	resp, err := f.auth.UpdateProfile(as(patient), &dto.UpdateProfileRequest{
		Name:        "  Ana Maria ",
		Phone:       "5551234567",
		DateOfBirth: "1990-04-12",
		Gender:      "female",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", resp.Name)
	assert.Equal(t, "ana@example.com", resp.Email)
	require.NotNil(t, resp.Patient)
	assert.Equal(t, "5551234567", resp.Patient.Phone)
	assert.Equal(t, "female", resp.Patient.Gender)
	require.NotNil(t, resp.Patient.DateOfBirth)
	assert.Equal(t, "1990-04-12", resp.Patient.DateOfBirth.Format("2006-01-02"))

	_, err = f.auth.UpdateProfile(as(patient), &dto.UpdateProfileRequest{DateOfBirth: "12/04/1990"})
	assert.ErrorIs(t, err, ErrInvalidDateFormat)

	stored, err := f.patients.FindByID(bg, patient.ID)
	require.NoError(t, err)
	p := stored.(*entity.Patient)
	require.NotNil(t, p.DateOfBirth)
	assert.Equal(t, "1990-04-12", p.DateOfBirth.Format("2006-01-02"))
	assert.Equal(t, "Ana Maria", p.Name)

	// only name and phone reach a doctor record here; the fee stays put
	resp, err = f.auth.UpdateProfile(as(doctor), &dto.UpdateProfileRequest{Phone: "5559876543", Gender: "male"})
	require.NoError(t, err)
	require.NotNil(t, resp.Doctor)
	assert.Equal(t, "5559876543", resp.Doctor.Phone)
	assert.True(t, decimal.NewFromInt(150).Equal(resp.Doctor.ConsultationFee))

	assert.Equal(t, 2, countActions(f.audits.Actions(), entity.AuditActionProfileUpdate))

	_, err = f.auth.UpdateProfile(bg, &dto.UpdateProfileRequest{Name: "Nobody"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
