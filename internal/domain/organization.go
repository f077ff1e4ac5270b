package domain

import (
	"context"
	"time"
)

// Organization represents a tenant organization. OrgCode is immutable once
// assigned, and exactly one admin user owns each organization.
type Organization struct {
	ID        string // UUID
	OrgCode   string // ORG### - unique
	Name      string
	AdminID   string // UUID of the owning admin user
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HRManager links an hr-role user to the organization they recruit for.
// The record is created exactly once, at the moment an hr_join request is
// approved, and its HRCode embeds the owning organization's OrgCode
// (HR###-ORG###).
type HRManager struct {
	ID             string // UUID
	UserID         string // UUID, 1:1 with a user whose role is hr
	OrganizationID string
	HRCode         string // unique
	CreatedAt      time.Time
}

// OrganizationRepository defines data access for organizations
type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	GetByCode(ctx context.Context, orgCode string) (*Organization, error)
	GetByAdminID(ctx context.Context, adminID string) (*Organization, error)
	NextOrgCode(ctx context.Context) (string, error)
}

// HRManagerRepository defines data access for HR manager records
type HRManagerRepository interface {
	Create(ctx context.Context, hr *HRManager) error
	GetByUserID(ctx context.Context, userID string) (*HRManager, error)
	GetByCode(ctx context.Context, hrCode string) (*HRManager, error)
	CountByOrganization(ctx context.Context, organizationID string) (int, error)
}
