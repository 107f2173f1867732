package converter

import (
	"go-medical-appointment/internal/delivery/dto"
	"go-medical-appointment/internal/domain/entity"
)

// PrincipalToResponse converts any principal kind to AccountResponse DTO
func PrincipalToResponse(principal entity.Principal) *dto.AccountResponse {
	if principal == nil {
		return nil
	}

	account := principal.Identity()
	response := &dto.AccountResponse{
		ID:          account.ID,
		Email:       account.Email,
		Name:        account.Name,
		Role:        string(principal.Role()),
		LastLoginAt: account.LastLoginAt,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}

	switch p := principal.(type) {
	case *entity.Patient:
		response.Patient = PatientToResponse(p)
	case *entity.Doctor:
		response.Doctor = DoctorToResponse(p)
	case *entity.Admin:
		permissions := make([]string, len(p.Permissions))
		for i, perm := range p.Permissions {
			permissions[i] = string(perm)
		}
		response.Admin = &dto.AdminResponse{
			Tier:        string(p.Tier),
			Permissions: permissions,
		}
	}

	return response
}

// PatientToResponse converts a Patient entity to PatientResponse DTO
func PatientToResponse(patient *entity.Patient) *dto.PatientResponse {
	if patient == nil {
		return nil
	}

	return &dto.PatientResponse{
		ID:          patient.ID,
		Name:        patient.Name,
		Email:       patient.Email,
		Phone:       patient.Phone,
		DateOfBirth: patient.DateOfBirth,
		Gender:      patient.Gender,
	}
}

// PatientsToResponses converts a slice of Patient entities to slice of PatientResponse DTOs
func PatientsToResponses(patients []entity.Patient) []dto.PatientResponse {
	responses := make([]dto.PatientResponse, len(patients))
	for i := range patients {
		responses[i] = *PatientToResponse(&patients[i])
	}
	return responses
}

// DoctorToResponse converts a Doctor entity to DoctorResponse DTO
func DoctorToResponse(doctor *entity.Doctor) *dto.DoctorResponse {
	if doctor == nil {
		return nil
	}

	return &dto.DoctorResponse{
		ID:              doctor.ID,
		Name:            doctor.Name,
		Email:           doctor.Email,
		Phone:           doctor.Phone,
		Specialization:  doctor.Specialization,
		Experience:      doctor.Experience,
		LicenseNumber:   doctor.LicenseNumber,
		HospitalName:    doctor.HospitalName,
		ConsultationFee: doctor.ConsultationFee,
		IsApproved:      doctor.IsApproved,
		Status:          string(doctor.Status),
		CreatedAt:       doctor.CreatedAt,
	}
}

// DoctorsToResponses converts a slice of Doctor entities to slice of DoctorResponse DTOs
func DoctorsToResponses(doctors []entity.Doctor) []dto.DoctorResponse {
	responses := make([]dto.DoctorResponse, len(doctors))
	for i := range doctors {
		responses[i] = *DoctorToResponse(&doctors[i])
	}
	return responses
}
