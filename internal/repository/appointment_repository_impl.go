package repository

import (
	"context"
	"errors"

	"go-medical-appointment/internal/domain/entity"
	domainRepo "go-medical-appointment/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) domainRepo.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *entity.Appointment) error {
	return r.db.WithContext(ctx).Omit("Patient", "Doctor").Create(appointment).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Doctor").
		Where("id = ?", id).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindAll(ctx context.Context, filter entity.AppointmentFilter) ([]entity.Appointment, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Appointment{})
	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.DoctorID != nil {
		query = query.Where("doctor_id = ?", *filter.DoctorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var appointments []entity.Appointment
	err := query.
		Preload("Patient").
		Preload("Doctor").
		Order("appointment_date DESC, created_at DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, 0, err
	}
	return appointments, total, nil
}

func (r *appointmentRepository) FindPaidByPatient(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := r.db.WithContext(ctx).
		Preload("Doctor").
		Where("patient_id = ? AND payment_status = ? AND payment_method = ?", patientID, entity.PaymentStatusPaid, entity.PaymentMethodRazorpay).
		Order("created_at DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindPatientsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]entity.Patient, error) {
	var patients []entity.Patient
	err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&entity.Appointment{}).Select("patient_id").Where("doctor_id = ?", doctorID)).
		Order("name").
		Find(&patients).Error
	if err != nil {
		return nil, err
	}
	return patients, nil
}

// CompareAndSwapStatus updates only while the stored status still equals from,
// so two racing transitions cannot both apply.
func (r *appointmentRepository) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to entity.AppointmentStatus, update domainRepo.AppointmentUpdate) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if update.Diagnosis != nil {
		updates["diagnosis"] = *update.Diagnosis
	}
	if update.Prescription != nil {
		updates["prescription"] = *update.Prescription
	}
	if update.PatientNotes != nil {
		updates["patient_notes"] = *update.PatientNotes
	}
	if update.DoctorNotes != nil {
		updates["doctor_notes"] = *update.DoctorNotes
	}

	result := r.db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected == 1, result.Error
}

func (r *appointmentRepository) MarkPaid(ctx context.Context, id uuid.UUID, from, to entity.AppointmentStatus, method entity.PaymentMethod, transactionID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ? AND status = ? AND payment_status <> ?", id, from, entity.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"status":         to,
			"payment_status": entity.PaymentStatusPaid,
			"payment_method": method,
			"payment_id":     transactionID,
		})
	return result.RowsAffected == 1, result.Error
}
