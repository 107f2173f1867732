package usecase

import (
	"context"
	"strings"

	"go-medical-appointment/internal/converter"
	"go-medical-appointment/internal/delivery/dto"
	"go-medical-appointment/internal/domain/entity"
	"go-medical-appointment/internal/domain/repository"
	"go-medical-appointment/internal/policy"
	"go-medical-appointment/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type DoctorUsecase interface {
	GetApprovedDoctors(ctx context.Context, specialization string) (*dto.DoctorListResponse, error)
	GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error)
	GetPendingDoctors(ctx context.Context) (*dto.DoctorListResponse, error)
	SetApproval(ctx context.Context, doctorID uuid.UUID, req *dto.ApproveDoctorRequest) (*dto.DoctorResponse, error)
	UpdateProfile(ctx context.Context, req *dto.UpdateDoctorProfileRequest) (*dto.DoctorResponse, error)
}

type doctorUsecase struct {
	log          *logrus.Logger
	doctorRepo   repository.DoctorRepository
	auditService service.AuditService
}

func NewDoctorUsecase(
	log *logrus.Logger,
	doctorRepo repository.DoctorRepository,
	auditService service.AuditService,
) DoctorUsecase {
	return &doctorUsecase{
		log:          log,
		doctorRepo:   doctorRepo,
		auditService: auditService,
	}
}

func (u *doctorUsecase) GetApprovedDoctors(ctx context.Context, specialization string) (*dto.DoctorListResponse, error) {
	doctors, err := u.doctorRepo.FindApproved(ctx, specialization)
	if err != nil {
		u.log.Warnf("Failed to find approved doctors: %+v", err)
		return nil, err
	}

	return &dto.DoctorListResponse{
		Doctors: converter.DoctorsToResponses(doctors),
		Total:   len(doctors),
	}, nil
}

// GetDoctor is public and only shows approved doctors.
func (u *doctorUsecase) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error) {
	doctor, err := u.doctorRepo.FindDoctorByID(ctx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if doctor == nil || !doctor.IsApproved {
		return nil, ErrDoctorNotFound
	}

	return converter.DoctorToResponse(doctor), nil
}

func (u *doctorUsecase) GetPendingDoctors(ctx context.Context) (*dto.DoctorListResponse, error) {
	if _, err := authorize(ctx, nil, policy.RequirePermission(entity.PermissionManageDoctors)); err != nil {
		return nil, err
	}

	doctors, err := u.doctorRepo.FindPending(ctx)
	if err != nil {
		u.log.Warnf("Failed to find pending doctors: %+v", err)
		return nil, err
	}

	return &dto.DoctorListResponse{
		Doctors: converter.DoctorsToResponses(doctors),
		Total:   len(doctors),
	}, nil
}

// SetApproval flips the approval flag and the derived status together.
func (u *doctorUsecase) SetApproval(ctx context.Context, doctorID uuid.UUID, req *dto.ApproveDoctorRequest) (*dto.DoctorResponse, error) {
	admin, err := authorize(ctx, nil, policy.RequirePermission(entity.PermissionManageDoctors))
	if err != nil {
		return nil, err
	}
	approved := req.Approved != nil && *req.Approved

	rows, err := u.doctorRepo.UpdateApproval(ctx, doctorID, approved)
	if err != nil {
		u.log.Warnf("Failed to update approval for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if rows == 0 {
		return nil, ErrDoctorNotFound
	}

	doctor, err := u.doctorRepo.FindDoctorByID(ctx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to reload doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	action := entity.AuditActionDoctorApprove
	if !approved {
		action = entity.AuditActionDoctorReject
	}
	u.auditService.Log(ctx, admin, action, entity.JSON{"doctor_id": doctorID})
	u.log.Infof("Doctor %s approval set to %t by admin %s", doctorID, approved, admin.Identity().ID)

	return converter.DoctorToResponse(doctor), nil
}

// UpdateProfile lets a doctor, approved or not, edit their own practice
// details. Existing appointments keep the fee they were booked at.
func (u *doctorUsecase) UpdateProfile(ctx context.Context, req *dto.UpdateDoctorProfileRequest) (*dto.DoctorResponse, error) {
	principal, err := authorize(ctx, nil, policy.RequireRole(entity.RoleDoctor))
	if err != nil {
		return nil, err
	}
	if req.ConsultationFee != nil && !req.ConsultationFee.IsPositive() {
		return nil, ErrInvalidFee
	}
	doctorID := principal.Identity().ID

	doctor, err := u.doctorRepo.FindDoctorByID(ctx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	previousFee := doctor.ConsultationFee

	if name := strings.TrimSpace(req.Name); name != "" {
		doctor.Name = name
	}
	if req.Phone != "" {
		doctor.Phone = req.Phone
	}
	if req.Specialization != "" {
		doctor.Specialization = req.Specialization
	}
	if req.Experience != nil {
		doctor.Experience = *req.Experience
	}
	if req.HospitalName != "" {
		doctor.HospitalName = req.HospitalName
	}
	if req.ConsultationFee != nil {
		doctor.ConsultationFee = req.ConsultationFee.Round(2)
	}

	if err := u.doctorRepo.UpdateProfile(ctx, doctor); err != nil {
		u.log.Warnf("Failed to update profile of doctor %s: %+v", doctorID, err)
		return nil, err
	}

	updated, err := u.doctorRepo.FindDoctorByID(ctx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to reload doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if updated == nil {
		return nil, ErrDoctorNotFound
	}

	metadata := entity.JSON{}
	if !previousFee.Equal(updated.ConsultationFee) {
		metadata["previous_fee"] = previousFee.String()
		metadata["consultation_fee"] = updated.ConsultationFee.String()
		u.log.Infof("Doctor %s changed consultation fee from %s to %s", doctorID, previousFee, updated.ConsultationFee)
	}
	u.auditService.Log(ctx, principal, entity.AuditActionDoctorProfileUpdate, metadata)

	return converter.DoctorToResponse(updated), nil
}
