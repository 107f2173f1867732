package usecase

import (
	"context"
	"errors"

	"go-medical-appointment/internal/converter"
	"go-medical-appointment/internal/delivery/dto"
	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/domain/repository"
	"go-medical-appointment/internal/policy"
	"go-medical-appointment/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var errAccountMissing = errors.New("account not found")

// AdminUsecase covers account administration. Patients need manage_users,
// doctors need manage_doctors.
type AdminUsecase interface {
	GetUsers(ctx context.Context, page, limit int) (*dto.AccountListResponse, error)
	DeleteUser(ctx context.Context, patientID uuid.UUID) error
	GetDoctors(ctx context.Context, page, limit int) (*dto.DoctorListResponse, error)
	DeleteDoctor(ctx context.Context, doctorID uuid.UUID) error
}

type adminUsecase struct {
	log          *logrus.Logger
	patientRepo  repository.AccountRepository
	doctorRepo   repository.DoctorRepository
	sessionRepo  repository.SessionRepository
	auditService service.AuditService
}

func NewAdminUsecase(
	log *logrus.Logger,
	patientRepo repository.AccountRepository,
	doctorRepo repository.DoctorRepository,
	sessionRepo repository.SessionRepository,
	auditService service.AuditService,
) AdminUsecase {
	return &adminUsecase{
		log:          log,
		patientRepo:  patientRepo,
		doctorRepo:   doctorRepo,
		sessionRepo:  sessionRepo,
		auditService: auditService,
	}
}

func (u *adminUsecase) GetUsers(ctx context.Context, page, limit int) (*dto.AccountListResponse, error) {
	if _, err := authorize(ctx, nil, policy.RequirePermission(entity.PermissionManageUsers)); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)

	patients, total, err := u.patientRepo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		u.log.Warnf("Failed to list patients: %+v", err)
		return nil, err
	}

	accounts := make([]dto.AccountResponse, 0, len(patients))
	for _, p := range patients {
		p.Identity().PasswordHash = ""
		accounts = append(accounts, *converter.PrincipalToResponse(p))
	}
	return &dto.AccountListResponse{Accounts: accounts, Total: total}, nil
}

func (u *adminUsecase) DeleteUser(ctx context.Context, patientID uuid.UUID) error {
	admin, err := authorize(ctx, nil, policy.RequirePermission(entity.PermissionManageUsers))
	if err != nil {
		return err
	}
	if err := u.deleteAccount(ctx, u.patientRepo, patientID); err != nil {
		if errors.Is(err, errAccountMissing) {
			return ErrUserNotFound
		}
		return err
	}

	u.auditService.Log(ctx, admin, entity.AuditActionUserDelete, entity.JSON{"patient_id": patientID})
	u.log.Infof("Patient %s deleted by admin %s", patientID, admin.Identity().ID)
	return nil
}

func (u *adminUsecase) GetDoctors(ctx context.Context, page, limit int) (*dto.DoctorListResponse, error) {
	if _, err := authorize(ctx, nil, policy.RequirePermission(entity.PermissionManageDoctors)); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)

	principals, total, err := u.doctorRepo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		u.log.Warnf("Failed to list doctors: %+v", err)
		return nil, err
	}

	doctors := make([]dto.DoctorResponse, 0, len(principals))
	for _, p := range principals {
		if doctor, ok := p.(*entity.Doctor); ok {
			doctors = append(doctors, *converter.DoctorToResponse(doctor))
		}
	}
	return &dto.DoctorListResponse{Doctors: doctors, Total: int(total)}, nil
}

func (u *adminUsecase) DeleteDoctor(ctx context.Context, doctorID uuid.UUID) error {
	admin, err := authorize(ctx, nil, policy.RequirePermission(entity.PermissionManageDoctors))
	if err != nil {
		return err
	}
	if err := u.deleteAccount(ctx, u.doctorRepo, doctorID); err != nil {
		if errors.Is(err, errAccountMissing) {
			return ErrDoctorNotFound
		}
		return err
	}

	u.auditService.Log(ctx, admin, entity.AuditActionDoctorDelete, entity.JSON{"doctor_id": doctorID})
	u.log.Infof("Doctor %s deleted by admin %s", doctorID, admin.Identity().ID)
	return nil
}

// deleteAccount soft-deletes the record and revokes every token it holds, so
// an outstanding access token stops resolving at once.
func (u *adminUsecase) deleteAccount(ctx context.Context, store repository.AccountRepository, id uuid.UUID) error {
	rows, err := store.Delete(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to delete %s %s: %+v", store.Role(), id, err)
		return err
	}
	if rows == 0 {
		return errAccountMissing
	}

	if err := u.sessionRepo.DeleteAll(ctx, id); err != nil {
		u.log.Warnf("Failed to revoke tokens of deleted %s %s: %+v", store.Role(), id, err)
		return err
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit
}
