package repository

import (
	"context"
	"errors"

	"go-medical-appointment/internal/domain/entity"
	domainRepo "go-medical-appointment/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type doctorRepository struct {
	*accountRepository
}

func NewDoctorRepository(db *gorm.DB) domainRepo.DoctorRepository {
	return &doctorRepository{
		accountRepository: &accountRepository{
			db:             db,
			role:           entity.RoleDoctor,
			table:          entity.Doctor{}.TableName(),
			profileColumns: entity.DoctorProfileColumns,
			newModel:       func() entity.Principal { return &entity.Doctor{} },
		},
	}
}

func (r *doctorRepository) FindDoctorByID(ctx context.Context, id uuid.UUID) (*entity.Doctor, error) {
	var doctor entity.Doctor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepository) FindApproved(ctx context.Context, specialization string) ([]entity.Doctor, error) {
	var doctors []entity.Doctor
	query := r.db.WithContext(ctx).Where("is_approved = ? AND status = ?", true, entity.DoctorStatusActive)
	if specialization != "" {
		query = query.Where("specialization ILIKE ?", "%"+specialization+"%")
	}
	if err := query.Order("name").Find(&doctors).Error; err != nil {
		return nil, err
	}
	return doctors, nil
}

func (r *doctorRepository) FindPending(ctx context.Context) ([]entity.Doctor, error) {
	var doctors []entity.Doctor
	err := r.db.WithContext(ctx).
		Where("is_approved = ?", false).
		Order("created_at DESC").
		Find(&doctors).Error
	if err != nil {
		return nil, err
	}
	return doctors, nil
}

// UpdateApproval sets the approval flag together with the derived status.
func (r *doctorRepository) UpdateApproval(ctx context.Context, id uuid.UUID, approved bool) (int64, error) {
	status := entity.DoctorStatusInactive
	if approved {
		status = entity.DoctorStatusActive
	}
	result := r.db.WithContext(ctx).Model(&entity.Doctor{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_approved": approved,
			"status":      status,
		})
	return result.RowsAffected, result.Error
}
