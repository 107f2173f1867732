package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

// LoginRequest selects the principal store by Role when given; otherwise all
// stores are searched.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=patient doctor admin"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,nefield=CurrentPassword"`
}

type RegisterPatientRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Phone       string `json:"phone" validate:"omitempty,min=10,max=20"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
}

type RegisterDoctorRequest struct {
	Email           string          `json:"email" validate:"required,email"`
	Password        string          `json:"password" validate:"required,min=6"`
	Name            string          `json:"name" validate:"required,min=2,max=100"`
	Phone           string          `json:"phone" validate:"omitempty,min=10,max=20"`
	Specialization  string          `json:"specialization" validate:"required"`
	Experience      int             `json:"experience" validate:"gte=0,lte=70"`
	LicenseNumber   string          `json:"license_number" validate:"required"`
	HospitalName    string          `json:"hospital_name" validate:"omitempty,max=255"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
}

// UpdateProfileRequest changes only the fields that are set. Date of birth and
// gender apply to patients.
type UpdateProfileRequest struct {
	Name        string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone       string `json:"phone" validate:"omitempty,min=10,max=20"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
}

// Response DTOs

type TokenResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresIn    int64            `json:"expires_in"`
	User         *AccountResponse `json:"user,omitempty"`
}

type AccountResponse struct {
	ID          uuid.UUID        `json:"id"`
	Email       string           `json:"email"`
	Name        string           `json:"name"`
	Role        string           `json:"role"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	Patient     *PatientResponse `json:"patient,omitempty"`
	Doctor      *DoctorResponse  `json:"doctor,omitempty"`
	Admin       *AdminResponse   `json:"admin,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type PatientResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      string     `json:"gender,omitempty"`
}

type AdminResponse struct {
	Tier        string   `json:"tier"`
	Permissions []string `json:"permissions"`
}
