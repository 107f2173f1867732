package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateAppointmentRequest struct {
	DoctorID        uuid.UUID `json:"doctor_id" validate:"required"`
	AppointmentDate string    `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	AppointmentTime string    `json:"appointment_time" validate:"required,max=20"`
	AppointmentType string    `json:"appointment_type" validate:"omitempty,oneof=in-person video phone"`
	Symptoms        string    `json:"symptoms" validate:"omitempty,max=2000"`
	PatientNotes    string    `json:"patient_notes" validate:"omitempty,max=2000"`
}

type ListAppointmentsRequest struct {
	Status string `validate:"omitempty,oneof=scheduled confirmed completed cancelled"`
	Page   int    `validate:"gte=1"`
	Limit  int    `validate:"gte=1,lte=100"`
}

type MedicationRequest struct {
	Name      string `json:"name" validate:"required"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

type PrescriptionRequest struct {
	Medications []MedicationRequest `json:"medications" validate:"dive"`
	Notes       string              `json:"notes"`
}

// UpdateAppointmentStatusRequest drives the doctor transitions. Diagnosis and
// prescription are only kept when completing.
type UpdateAppointmentStatusRequest struct {
	Status       string               `json:"status" validate:"required,oneof=confirmed completed cancelled"`
	Diagnosis    string               `json:"diagnosis" validate:"omitempty,max=5000"`
	Prescription *PrescriptionRequest `json:"prescription"`
	DoctorNotes  string               `json:"doctor_notes" validate:"omitempty,max=2000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// Response DTOs

type PrescriptionResponse struct {
	Medications []MedicationRequest `json:"medications,omitempty"`
	Notes       string              `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID             `json:"id"`
	PatientID       uuid.UUID             `json:"patient_id"`
	DoctorID        uuid.UUID             `json:"doctor_id"`
	AppointmentDate string                `json:"appointment_date"`
	AppointmentTime string                `json:"appointment_time"`
	AppointmentType string                `json:"appointment_type"`
	Status          string                `json:"status"`
	Symptoms        string                `json:"symptoms,omitempty"`
	Diagnosis       string                `json:"diagnosis,omitempty"`
	Prescription    *PrescriptionResponse `json:"prescription,omitempty"`
	ConsultationFee decimal.Decimal       `json:"consultation_fee"`
	PaymentStatus   string                `json:"payment_status"`
	PaymentMethod   string                `json:"payment_method,omitempty"`
	PaymentID       string                `json:"payment_id,omitempty"`
	PatientNotes    string                `json:"patient_notes,omitempty"`
	DoctorNotes     string                `json:"doctor_notes,omitempty"`
	Patient         *PatientResponse      `json:"patient,omitempty"`
	Doctor          *DoctorResponse       `json:"doctor,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
}
