package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-medical-appointment/internal/converter"
	"go-medical-appointment/internal/delivery/dto"
	"go-medical-appointment/internal/delivery/http/middleware"
	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/domain/repository"
	"go-medical-appointment/internal/service"
	"go-medical-appointment/pkg/jwt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrLicenseAlreadyExists = errors.New("license number already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrTokenRevoked         = errors.New("token has been revoked")
	ErrUserNotFound         = errors.New("user not found")
	ErrUnauthenticated      = errors.New("authentication required")
	ErrInvalidOldPassword   = errors.New("current password is incorrect")
	ErrInvalidDateFormat    = errors.New("invalid date format, use YYYY-MM-DD")
	ErrInvalidFee           = errors.New("consultation fee must be greater than zero")
)

const (
	sessionAccess  = string(jwt.AccessToken)
	sessionRefresh = string(jwt.RefreshToken)
)

type AuthUsecase interface {
	RegisterPatient(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.AccountResponse, error)
	RegisterDoctor(ctx context.Context, req *dto.RegisterDoctorRequest) (*dto.AccountResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, req *dto.LogoutRequest) error
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	GetCurrentUser(ctx context.Context) (*dto.AccountResponse, error)
	ChangePassword(ctx context.Context, req *dto.ChangePasswordRequest) error
	UpdateProfile(ctx context.Context, req *dto.UpdateProfileRequest) (*dto.AccountResponse, error)
}

type authUsecase struct {
	log          *logrus.Logger
	patientRepo  repository.AccountRepository
	doctorRepo   repository.DoctorRepository
	resolver     service.PrincipalResolver
	throttle     service.LoginThrottle
	sessionRepo  repository.SessionRepository
	jwtService   *jwt.JWTService
	auditService service.AuditService
}

func NewAuthUsecase(
	log *logrus.Logger,
	patientRepo repository.AccountRepository,
	doctorRepo repository.DoctorRepository,
	resolver service.PrincipalResolver,
	throttle service.LoginThrottle,
	sessionRepo repository.SessionRepository,
	jwtService *jwt.JWTService,
	auditService service.AuditService,
) AuthUsecase {
	return &authUsecase{
		log:          log,
		patientRepo:  patientRepo,
		doctorRepo:   doctorRepo,
		resolver:     resolver,
		throttle:     throttle,
		sessionRepo:  sessionRepo,
		jwtService:   jwtService,
		auditService: auditService,
	}
}

func (u *authUsecase) RegisterPatient(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.AccountResponse, error) {
	var dob *time.Time
	if req.DateOfBirth != "" {
		parsed, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return nil, ErrInvalidDateFormat
		}
		dob = &parsed
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	patient := &entity.Patient{
		Account: entity.Account{
			Email:        normalizeEmail(req.Email),
			PasswordHash: string(hashedPassword),
			Name:         strings.TrimSpace(req.Name),
		},
		Phone:       req.Phone,
		DateOfBirth: dob,
		Gender:      req.Gender,
	}

	if err := u.patientRepo.Create(ctx, patient); err != nil {
		if isDuplicateKeyError(err, "email") {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create patient: %+v", err)
		return nil, err
	}

	u.auditService.Log(ctx, patient, entity.AuditActionUserRegister, entity.JSON{"role": entity.RolePatient})
	u.log.Infof("Patient registered: %s", patient.ID)

	patient.PasswordHash = ""
	return converter.PrincipalToResponse(patient), nil
}

// RegisterDoctor creates an unapproved doctor. The account can sign in but no
// doctor action passes authorization until an admin approves it.
func (u *authUsecase) RegisterDoctor(ctx context.Context, req *dto.RegisterDoctorRequest) (*dto.AccountResponse, error) {
	if !req.ConsultationFee.IsPositive() {
		return nil, ErrInvalidFee
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	doctor := &entity.Doctor{
		Account: entity.Account{
			Email:        normalizeEmail(req.Email),
			PasswordHash: string(hashedPassword),
			Name:         strings.TrimSpace(req.Name),
		},
		Phone:           req.Phone,
		Specialization:  req.Specialization,
		Experience:      req.Experience,
		LicenseNumber:   req.LicenseNumber,
		HospitalName:    req.HospitalName,
		ConsultationFee: req.ConsultationFee.Round(2),
	}
	doctor.SetApproval(false)

	if err := u.doctorRepo.Create(ctx, doctor); err != nil {
		if isDuplicateKeyError(err, "email") {
			return nil, ErrEmailAlreadyExists
		}
		if isDuplicateKeyError(err, "license") {
			return nil, ErrLicenseAlreadyExists
		}
		u.log.Warnf("Failed to create doctor: %+v", err)
		return nil, err
	}

	u.auditService.Log(ctx, doctor, entity.AuditActionUserRegister, entity.JSON{"role": entity.RoleDoctor})
	u.log.Infof("Doctor registered, pending approval: %s", doctor.ID)

	doctor.PasswordHash = ""
	return converter.PrincipalToResponse(doctor), nil
}

func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	email := normalizeEmail(req.Email)

	principal, err := u.findForLogin(ctx, email, entity.Role(req.Role))
	if err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, ErrInvalidCredentials
	}

	if err := u.throttle.CheckLock(principal); err != nil {
		u.log.Warnf("Login rejected for locked account %s (%s)", principal.Identity().ID, principal.Role())
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(principal.Identity().PasswordHash), []byte(req.Password)); err != nil {
		locked, recordErr := u.throttle.RecordOutcome(ctx, principal, false)
		if recordErr != nil {
			return nil, recordErr
		}
		if locked {
			u.auditService.Log(ctx, principal, entity.AuditActionAccountLocked, entity.JSON{
				"failed_attempts": principal.Identity().FailedAttempts,
			})
		}
		return nil, ErrInvalidCredentials
	}

	if _, err := u.throttle.RecordOutcome(ctx, principal, true); err != nil {
		return nil, err
	}

	tokens, err := u.issueTokens(ctx, principal)
	if err != nil {
		return nil, err
	}

	u.auditService.Log(ctx, principal, entity.AuditActionUserLogin, nil)

	principal.Identity().PasswordHash = ""
	tokens.User = converter.PrincipalToResponse(principal)
	return tokens, nil
}

// findForLogin looks the email up in the store named by role, or in every store
// at once when role is empty. An email registered in more than one store cannot
// be resolved without a role and is treated as unknown.
func (u *authUsecase) findForLogin(ctx context.Context, email string, role entity.Role) (entity.Principal, error) {
	if role != "" {
		store, ok := u.resolver.Store(role)
		if !ok {
			return nil, nil
		}
		principal, err := store.FindByEmail(ctx, email)
		if err != nil {
			u.log.Warnf("Failed to find %s by email: %+v", role, err)
			return nil, err
		}
		return principal, nil
	}

	stores := u.resolver.Stores()
	found := make([]entity.Principal, len(stores))
	g, gctx := errgroup.WithContext(ctx)
	for i, store := range stores {
		i, store := i, store
		g.Go(func() error {
			principal, err := store.FindByEmail(gctx, email)
			if err != nil {
				return err
			}
			found[i] = principal
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		u.log.Warnf("Failed to find account by email: %+v", err)
		return nil, err
	}

	var match entity.Principal
	for _, principal := range found {
		if principal == nil {
			continue
		}
		if match != nil {
			u.log.Warnf("Email registered as both %s and %s, role required to sign in", match.Role(), principal.Role())
			return nil, nil
		}
		match = principal
	}
	return match, nil
}

func (u *authUsecase) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	principal, ok := middleware.GetPrincipalFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	principalID := principal.Identity().ID

	if tokenID, ok := middleware.GetTokenIDFromContext(ctx); ok {
		if err := u.sessionRepo.Delete(ctx, sessionAccess, principalID, tokenID); err != nil {
			u.log.Warnf("Failed to delete access token: %+v", err)
			return err
		}
	}

	if req != nil && req.RefreshToken != "" {
		claims, err := u.jwtService.ValidateToken(req.RefreshToken)
		if err == nil && claims.TokenType == jwt.RefreshToken && claims.PrincipalID == principalID {
			if err := u.sessionRepo.Delete(ctx, sessionRefresh, principalID, claims.TokenID); err != nil {
				u.log.Warnf("Failed to delete refresh token: %+v", err)
				return err
			}
		}
	}

	u.auditService.Log(ctx, principal, entity.AuditActionUserLogout, nil)
	return nil
}

// RefreshToken rotates the pair: the presented refresh token is revoked before
// a new pair is issued.
func (u *authUsecase) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := u.jwtService.ValidateToken(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != jwt.RefreshToken {
		return nil, ErrInvalidToken
	}

	exists, err := u.sessionRepo.Exists(ctx, sessionRefresh, claims.PrincipalID, claims.TokenID)
	if err != nil {
		u.log.Warnf("Failed to check refresh token: %+v", err)
		return nil, err
	}
	if !exists {
		return nil, ErrTokenRevoked
	}

	if err := u.sessionRepo.Delete(ctx, sessionRefresh, claims.PrincipalID, claims.TokenID); err != nil {
		u.log.Warnf("Failed to delete old refresh token: %+v", err)
		return nil, err
	}

	principal, err := u.resolver.Resolve(ctx, claims.PrincipalID, entity.Role(claims.Role))
	if err != nil {
		if errors.Is(err, service.ErrPrincipalNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return u.issueTokens(ctx, principal)
}

func (u *authUsecase) GetCurrentUser(ctx context.Context) (*dto.AccountResponse, error) {
	principal, ok := middleware.GetPrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return converter.PrincipalToResponse(principal), nil
}

// ChangePassword verifies the current password against the stored hash and
// revokes every issued token once the new hash is saved.
func (u *authUsecase) ChangePassword(ctx context.Context, req *dto.ChangePasswordRequest) error {
	principal, ok := middleware.GetPrincipalFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	store, ok := u.resolver.Store(principal.Role())
	if !ok {
		return ErrUserNotFound
	}
	id := principal.Identity().ID

	stored, err := store.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find %s %s: %+v", principal.Role(), id, err)
		return err
	}
	if stored == nil {
		return ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(stored.Identity().PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidOldPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return err
	}

	if err := store.UpdatePassword(ctx, id, string(hashedPassword)); err != nil {
		u.log.Warnf("Failed to update password for %s: %+v", id, err)
		return err
	}

	if err := u.sessionRepo.DeleteAll(ctx, id); err != nil {
		u.log.Warnf("Failed to revoke tokens for %s: %+v", id, err)
		return err
	}

	u.auditService.Log(ctx, principal, entity.AuditActionPasswordChange, nil)
	return nil
}

// UpdateProfile applies the non-empty fields of req to the caller's own record.
func (u *authUsecase) UpdateProfile(ctx context.Context, req *dto.UpdateProfileRequest) (*dto.AccountResponse, error) {
	principal, ok := middleware.GetPrincipalFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	store, ok := u.resolver.Store(principal.Role())
	if !ok {
		return nil, ErrUserNotFound
	}
	id := principal.Identity().ID

	stored, err := store.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find %s %s: %+v", principal.Role(), id, err)
		return nil, err
	}
	if stored == nil {
		return nil, ErrUserNotFound
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		stored.Identity().Name = name
	}
	switch p := stored.(type) {
	case *entity.Patient:
		if req.Phone != "" {
			p.Phone = req.Phone
		}
		if req.DateOfBirth != "" {
			dob, err := time.Parse("2006-01-02", req.DateOfBirth)
			if err != nil {
				return nil, ErrInvalidDateFormat
			}
			p.DateOfBirth = &dob
		}
		if req.Gender != "" {
			p.Gender = req.Gender
		}
	case *entity.Doctor:
		if req.Phone != "" {
			p.Phone = req.Phone
		}
	}

	if err := store.UpdateProfile(ctx, stored); err != nil {
		u.log.Warnf("Failed to update profile of %s: %+v", id, err)
		return nil, err
	}

	updated, err := store.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to reload %s %s: %+v", principal.Role(), id, err)
		return nil, err
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}

	u.auditService.Log(ctx, principal, entity.AuditActionProfileUpdate, nil)

	updated.Identity().PasswordHash = ""
	return converter.PrincipalToResponse(updated), nil
}

func (u *authUsecase) issueTokens(ctx context.Context, principal entity.Principal) (*dto.TokenResponse, error) {
	id := principal.Identity().ID
	role := string(principal.Role())

	accessToken, accessTokenID, err := u.jwtService.GenerateAccessToken(id, role)
	if err != nil {
		u.log.Warnf("Failed to generate access token: %+v", err)
		return nil, err
	}

	refreshToken, refreshTokenID, err := u.jwtService.GenerateRefreshToken(id, role)
	if err != nil {
		u.log.Warnf("Failed to generate refresh token: %+v", err)
		return nil, err
	}

	if err := u.sessionRepo.Store(ctx, sessionAccess, id, accessTokenID, u.jwtService.GetAccessExpiry()); err != nil {
		u.log.Warnf("Failed to store access token: %+v", err)
		return nil, err
	}

	if err := u.sessionRepo.Store(ctx, sessionRefresh, id, refreshTokenID, u.jwtService.GetRefreshExpiry()); err != nil {
		u.log.Warnf("Failed to store refresh token: %+v", err)
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(u.jwtService.GetAccessExpiry().Seconds()),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// containing the specified constraint name
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL error code 23505 = unique_violation
		if pgErr.Code == "23505" && strings.Contains(strings.ToLower(pgErr.ConstraintName), strings.ToLower(constraintName)) {
			return true
		}
	}
	return false
}
