// Package memory holds in-process implementations of the domain repositories
// for tests only; nothing under cmd/ wires them. They mirror the atomicity of
// the SQL versions, which the repository integration tests check against
// Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go-medical-appointment/internal/domain/entity"
	domainRepo "go-medical-appointment/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type AccountStore struct {
	mu      sync.Mutex
	role    entity.Role
	records map[uuid.UUID]entity.Principal
}

var _ domainRepo.AccountRepository = (*AccountStore)(nil)

func NewPatientStore() *AccountStore {
	return newAccountStore(entity.RolePatient)
}

func NewAdminStore() *AccountStore {
	return newAccountStore(entity.RoleAdmin)
}

func newAccountStore(role entity.Role) *AccountStore {
	return &AccountStore{role: role, records: make(map[uuid.UUID]entity.Principal)}
}

func (s *AccountStore) Role() entity.Role {
	return s.role
}

// Create rejects a second account with the same email the way the unique
// index does.
func (s *AccountStore) Create(ctx context.Context, principal entity.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := principal.Identity()
	for _, existing := range s.records {
		if strings.EqualFold(existing.Identity().Email, account.Email) {
			return &pgconn.PgError{Code: "23505", ConstraintName: "idx_" + string(s.role) + "s_email"}
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.records[account.ID] = clonePrincipal(principal)
	return nil
}

func (s *AccountStore) FindByID(ctx context.Context, id uuid.UUID) (entity.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.records[id]; ok {
		return clonePrincipal(p), nil
	}
	return nil, nil
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (entity.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.records {
		if strings.EqualFold(p.Identity().Email, email) {
			return clonePrincipal(p), nil
		}
	}
	return nil, nil
}

func (s *AccountStore) RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, now, lockUntil time.Time) (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[id]
	if !ok {
		return 0, nil, nil
	}
	account := p.Identity()
	switch {
	case account.LockUntil != nil && !account.LockUntil.After(now):
		account.FailedAttempts = 1
		account.LockUntil = nil
	default:
		if account.FailedAttempts+1 >= threshold {
			until := lockUntil
			account.LockUntil = &until
		}
		account.FailedAttempts = min(account.FailedAttempts+1, threshold)
	}
	account.UpdatedAt = now
	return account.FailedAttempts, copyTime(account.LockUntil), nil
}

func (s *AccountStore) RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.records[id]; ok {
		account := p.Identity()
		account.FailedAttempts = 0
		account.LockUntil = nil
		account.LastLoginAt = copyTime(&at)
	}
	return nil
}

func (s *AccountStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.records[id]; ok {
		p.Identity().PasswordHash = passwordHash
	}
	return nil
}

func (s *AccountStore) UpdateProfile(ctx context.Context, principal entity.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[principal.Identity().ID]
	if !ok {
		return nil
	}
	switch src := principal.(type) {
	case *entity.Patient:
		dst := stored.(*entity.Patient)
		dst.Name, dst.Phone, dst.Gender = src.Name, src.Phone, src.Gender
		dst.DateOfBirth = copyTime(src.DateOfBirth)
	case *entity.Doctor:
		dst := stored.(*entity.Doctor)
		dst.Name, dst.Phone = src.Name, src.Phone
		dst.Specialization, dst.Experience, dst.HospitalName = src.Specialization, src.Experience, src.HospitalName
		dst.ConsultationFee = src.ConsultationFee
	case *entity.Admin:
		stored.Identity().Name = src.Name
	}
	stored.Identity().UpdatedAt = time.Now()
	return nil
}

// List orders by creation time, newest first, then by email.
func (s *AccountStore) List(ctx context.Context, limit, offset int) ([]entity.Principal, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]entity.Principal, 0, len(s.records))
	for _, p := range s.records {
		all = append(all, clonePrincipal(p))
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].Identity(), all[j].Identity()
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Email < b.Email
	})

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (s *AccountStore) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return 0, nil
	}
	delete(s.records, id)
	return 1, nil
}

// Seed stores principal as is, bypassing the uniqueness check.
func (s *AccountStore) Seed(principal entity.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if principal.Identity().ID == uuid.Nil {
		principal.Identity().ID = uuid.New()
	}
	s.records[principal.Identity().ID] = clonePrincipal(principal)
}

type DoctorStore struct {
	*AccountStore
}

var _ domainRepo.DoctorRepository = (*DoctorStore)(nil)

func NewDoctorStore() *DoctorStore {
	return &DoctorStore{AccountStore: newAccountStore(entity.RoleDoctor)}
}

func (s *DoctorStore) FindDoctorByID(ctx context.Context, id uuid.UUID) (*entity.Doctor, error) {
	p, err := s.FindByID(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	return p.(*entity.Doctor), nil
}

func (s *DoctorStore) FindApproved(ctx context.Context, specialization string) ([]entity.Doctor, error) {
	return s.filter(func(d *entity.Doctor) bool {
		if !d.IsApproved || d.Status != entity.DoctorStatusActive {
			return false
		}
		return specialization == "" || strings.Contains(strings.ToLower(d.Specialization), strings.ToLower(specialization))
	}), nil
}

func (s *DoctorStore) FindPending(ctx context.Context) ([]entity.Doctor, error) {
	return s.filter(func(d *entity.Doctor) bool { return !d.IsApproved }), nil
}

func (s *DoctorStore) UpdateApproval(ctx context.Context, id uuid.UUID, approved bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[id]
	if !ok {
		return 0, nil
	}
	p.(*entity.Doctor).SetApproval(approved)
	return 1, nil
}

func (s *DoctorStore) filter(keep func(d *entity.Doctor) bool) []entity.Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doctors []entity.Doctor
	for _, p := range s.records {
		d := p.(*entity.Doctor)
		if keep(d) {
			doctors = append(doctors, *clonePrincipal(d).(*entity.Doctor))
		}
	}
	return doctors
}

func clonePrincipal(p entity.Principal) entity.Principal {
	switch v := p.(type) {
	case *entity.Patient:
		c := *v
		c.Account = cloneAccount(v.Account)
		return &c
	case *entity.Doctor:
		c := *v
		c.Account = cloneAccount(v.Account)
		return &c
	case *entity.Admin:
		c := *v
		c.Account = cloneAccount(v.Account)
		c.Permissions = append(entity.PermissionSet(nil), v.Permissions...)
		return &c
	}
	return p
}

func cloneAccount(a entity.Account) entity.Account {
	a.LockUntil = copyTime(a.LockUntil)
	a.LastLoginAt = copyTime(a.LastLoginAt)
	return a
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
