package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-medical-appointment/internal/domain/entity"
	domainRepo "go-medical-appointment/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// accountRepository serves the patients, doctors and admins tables. Each kind
// gets its own instance bound to one table.
type accountRepository struct {
	db             *gorm.DB
	role           entity.Role
	table          string
	profileColumns []string
	newModel       func() entity.Principal
}

func NewPatientRepository(db *gorm.DB) domainRepo.AccountRepository {
	return &accountRepository{
		db:             db,
		role:           entity.RolePatient,
		table:          entity.Patient{}.TableName(),
		profileColumns: entity.PatientProfileColumns,
		newModel:       func() entity.Principal { return &entity.Patient{} },
	}
}

func NewAdminRepository(db *gorm.DB) domainRepo.AccountRepository {
	return &accountRepository{
		db:             db,
		role:           entity.RoleAdmin,
		table:          entity.Admin{}.TableName(),
		profileColumns: entity.AdminProfileColumns,
		newModel:       func() entity.Principal { return &entity.Admin{} },
	}
}

func (r *accountRepository) Role() entity.Role {
	return r.role
}

func (r *accountRepository) Create(ctx context.Context, principal entity.Principal) error {
	return r.db.WithContext(ctx).Create(principal).Error
}

func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (entity.Principal, error) {
	model := r.newModel()
	err := r.db.WithContext(ctx).Where("id = ?", id).First(model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (entity.Principal, error) {
	model := r.newModel()
	err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model, nil
}

// RecordLoginFailure runs as one UPDATE so concurrent failures serialize on the
// row lock and each one observes the previous increment. A lock that expired
// before now restarts the count at one.
func (r *accountRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, now, lockUntil time.Time) (int, *time.Time, error) {
	var row struct {
		FailedAttempts int
		LockUntil      *time.Time
	}
	err := r.db.WithContext(ctx).Raw(`
		UPDATE `+r.table+`
		SET failed_attempts = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= @now THEN 1
				ELSE LEAST(failed_attempts + 1, @threshold)
			END,
			lock_until = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= @now THEN NULL
				WHEN failed_attempts + 1 >= @threshold THEN @lockUntil
				ELSE lock_until
			END,
			updated_at = @now
		WHERE id = @id
		RETURNING failed_attempts, lock_until`,
		sql.Named("now", now),
		sql.Named("threshold", threshold),
		sql.Named("lockUntil", lockUntil),
		sql.Named("id", id),
	).Scan(&row).Error
	if err != nil {
		return 0, nil, err
	}
	return row.FailedAttempts, row.LockUntil, nil
}

func (r *accountRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Table(r.table).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"failed_attempts": 0,
			"lock_until":      nil,
			"last_login_at":   at,
		}).Error
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.db.WithContext(ctx).Table(r.table).
		Where("id = ?", id).
		Update("password", passwordHash).Error
}

func (r *accountRepository) UpdateProfile(ctx context.Context, principal entity.Principal) error {
	return r.db.WithContext(ctx).Model(principal).
		Select(r.profileColumns).
		Updates(principal).Error
}

func (r *accountRepository) List(ctx context.Context, limit, offset int) ([]entity.Principal, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(r.newModel()).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows, err := r.db.WithContext(ctx).Model(r.newModel()).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Rows()
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var principals []entity.Principal
	for rows.Next() {
		model := r.newModel()
		if err := r.db.ScanRows(rows, model); err != nil {
			return nil, 0, err
		}
		principals = append(principals, model)
	}
	return principals, total, rows.Err()
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(r.newModel())
	return result.RowsAffected, result.Error
}
