package entity

// Role identifies which of the three principal stores an account lives in.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the recognized role tags.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// AdminTier is the privilege tier of an operator account.
type AdminTier string

const (
	AdminTierStandard AdminTier = "admin"
	AdminTierSuper    AdminTier = "super-admin"
)

// Permission is a named capability held by an admin.
type Permission string

const (
	PermissionManageDoctors    Permission = "manage_doctors"
	PermissionManageUsers      Permission = "manage_users"
	PermissionViewAppointments Permission = "view_appointments"
	PermissionViewAuditLogs    Permission = "view_audit_logs"
)
