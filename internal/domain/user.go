package domain

import (
	"context"
	"time"
)

// Role is a closed set of user roles. The authorization guard and the
// approval workflow branch over this type with exhaustive switches rather
// than comparing free-form strings.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// UserStatus tracks where an account sits in the onboarding lifecycle.
type UserStatus string

const (
	StatusPendingHRApproval    UserStatus = "pending_hr_approval"
	StatusPendingStaffApproval UserStatus = "pending_staff_approval"
	StatusActive               UserStatus = "active"
	StatusInactive             UserStatus = "inactive"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusPendingHRApproval, StatusPendingStaffApproval, StatusActive, StatusInactive:
		return true
	}
	return false
}

// User represents an account in the identity store.
// EmployeeID is unique across all users once assigned. An account whose
// LockUntil lies in the future must be rejected at login regardless of
// credential correctness.
type User struct {
	ID             string // UUID
	Name           string
	Email          string // Unique email address
	PasswordHash   string // Bcrypt hashed password (not returned in API)
	Role           Role
	Status         UserStatus
	OrganizationID string // UUID, empty until assigned to an organization
	OrgCode        string
	HRCode         string // HR code the user reports under (staff) or owns (hr)
	EmployeeID     string // e.g. EMP202500042, unique when present
	IsAssigned     bool
	Department     string
	Designation    string
	DateOfJoining  *time.Time
	LoginAttempts  int
	LockUntil      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Locked reports whether the account lockout is still in effect at now.
func (u *User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	EmployeeIDExists(ctx context.Context, employeeID string) (bool, error)
	CountEmployeesByYear(ctx context.Context, year int) (int, error)
}
