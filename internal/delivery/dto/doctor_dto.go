package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type ApproveDoctorRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

// UpdateDoctorProfileRequest changes only the fields that are set. A new fee
// applies to appointments booked afterwards.
type UpdateDoctorProfileRequest struct {
	Name            string           `json:"name" validate:"omitempty,min=2,max=100"`
	Phone           string           `json:"phone" validate:"omitempty,min=10,max=20"`
	Specialization  string           `json:"specialization" validate:"omitempty,max=100"`
	Experience      *int             `json:"experience" validate:"omitempty,gte=0,lte=70"`
	HospitalName    string           `json:"hospital_name" validate:"omitempty,max=255"`
	ConsultationFee *decimal.Decimal `json:"consultation_fee"`
}

// Response DTOs

type DoctorResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone,omitempty"`
	Specialization  string          `json:"specialization"`
	Experience      int             `json:"experience"`
	LicenseNumber   string          `json:"license_number"`
	HospitalName    string          `json:"hospital_name,omitempty"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
	IsApproved      bool            `json:"is_approved"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

type DoctorListResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
	Total   int              `json:"total"`
}

type AccountListResponse struct {
	Accounts []AccountResponse `json:"accounts"`
	Total    int64             `json:"total"`
}
