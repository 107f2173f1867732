package repository

import (
	"context"

	"go-medical-appointment/internal/domain/entity"

	"github.com/google/uuid"
)

// AppointmentUpdate carries the optional fields written together with a status change.
type AppointmentUpdate struct {
	Diagnosis    *string
	Prescription *entity.Prescription
	PatientNotes *string
	DoctorNotes  *string
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entity.Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)
	FindAll(ctx context.Context, filter entity.AppointmentFilter) ([]entity.Appointment, int64, error)
	FindPaidByPatient(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error)
	FindPatientsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]entity.Patient, error)
	// CompareAndSwapStatus moves the appointment from -> to only if its stored
	// status is still from. It reports whether the row was updated.
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to entity.AppointmentStatus, update AppointmentUpdate) (bool, error)
	// MarkPaid records a verified payment only if the stored status is still from
	// and the appointment is not already paid.
	MarkPaid(ctx context.Context, id uuid.UUID, from, to entity.AppointmentStatus, method entity.PaymentMethod, transactionID string) (bool, error)
}
