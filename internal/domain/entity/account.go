package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account holds the attributes shared by every principal kind, including the
// login attempt record.
type Account struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash   string         `gorm:"column:password;type:text;not null" json:"-"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	FailedAttempts int            `gorm:"not null;default:0" json:"-"`
	LockUntil      *time.Time     `json:"-"`
	LastLoginAt    *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsLocked reports whether the lock window is still open at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// Principal is an authenticated actor: *Patient, *Doctor or *Admin.
type Principal interface {
	Identity() *Account
	Role() Role
}

type Patient struct {
	Account     `gorm:"embedded"`
	Phone       string     `gorm:"type:varchar(20)" json:"phone,omitempty"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`
	Gender      string     `gorm:"type:varchar(10)" json:"gender,omitempty"`
}

func (Patient) TableName() string {
	return "patients"
}

// PatientProfileColumns are the columns a patient may change about themselves.
var PatientProfileColumns = []string{"name", "phone", "date_of_birth", "gender"}

func (p *Patient) Identity() *Account { return &p.Account }
func (p *Patient) Role() Role { return RolePatient }

// DoctorStatus is the operational status, derived from approval.
type DoctorStatus string

const (
	DoctorStatusActive   DoctorStatus = "active"
	DoctorStatusInactive DoctorStatus = "inactive"
)

type Doctor struct {
	Account         `gorm:"embedded"`
	Phone           string          `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Specialization  string          `gorm:"type:varchar(100);not null;index" json:"specialization"`
	Experience      int             `gorm:"not null;default:0" json:"experience"`
	LicenseNumber   string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"license_number"`
	HospitalName    string          `gorm:"type:varchar(255)" json:"hospital_name,omitempty"`
	ConsultationFee decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"consultation_fee"`
	IsApproved      bool            `gorm:"not null;default:false;index" json:"is_approved"`
	Status          DoctorStatus    `gorm:"type:varchar(20);not null;default:'inactive'" json:"status"`
}

func (Doctor) TableName() string {
	return "doctors"
}

// DoctorProfileColumns never include approval, status, license or email; those
// change only through their own workflows.
var DoctorProfileColumns = []string{"name", "phone", "specialization", "experience", "hospital_name", "consultation_fee"}

func (d *Doctor) Identity() *Account { return &d.Account }
func (d *Doctor) Role() Role { return RoleDoctor }

// SetApproval flips the approval flag and the derived operational status.
func (d *Doctor) SetApproval(approved bool) {
	d.IsApproved = approved
	if approved {
		d.Status = DoctorStatusActive
	} else {
		d.Status = DoctorStatusInactive
	}
}

type Admin struct {
	Account     `gorm:"embedded"`
	Tier        AdminTier     `gorm:"type:varchar(20);not null;default:'admin'" json:"tier"`
	Permissions PermissionSet `gorm:"type:jsonb" json:"permissions"`
}

func (Admin) TableName() string {
	return "admins"
}

var AdminProfileColumns = []string{"name"}

func (a *Admin) Identity() *Account { return &a.Account }
func (a *Admin) Role() Role { return RoleAdmin }

// HasPermission reports whether the admin holds p. Super admins hold every permission.
func (a *Admin) HasPermission(p Permission) bool {
	if a.Tier == AdminTierSuper {
		return true
	}
	for _, held := range a.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

// PermissionSet is stored as a JSONB array.
type PermissionSet []Permission

func (s PermissionSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *PermissionSet) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal permission set:", value))
	}
	return json.Unmarshal(bytes, s)
}
