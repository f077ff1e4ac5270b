package domain

import (
	"context"
	"time"
)

// RequestType distinguishes the two onboarding paths: admins approve
// hr_join requests, HR managers approve staff_join requests.
type RequestType string

const (
	RequestTypeHRJoin    RequestType = "hr_join"
	RequestTypeStaffJoin RequestType = "staff_join"
)

// Valid reports whether t is one of the known request types.
func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeHRJoin, RequestTypeStaffJoin:
		return true
	}
	return false
}

// RequestStatus is the join-request state machine: pending is initial,
// approved and rejected are terminal. Once terminal, no further transition
// is permitted.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// Valid reports whether s is one of the known request statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// JoinRequest records a user's pending request to join an organization
// under a target role. The approval workflow is the only writer of Status
// and the response fields; requests are never deleted.
type JoinRequest struct {
	ID               string // UUID
	UserID           string // requester
	RequestType      RequestType
	RequestedRole    Role
	RequestedOrgCode string
	RequestedHRCode  string // set for staff_join, empty for hr_join
	OrganizationID   string
	Status           RequestStatus
	ApprovedBy       string // acting admin/HR id, empty while pending
	RespondedAt      *time.Time
	ResponseMessage  string
	CreatedAt        time.Time
}

// JoinRequestRepository defines data access for join requests
type JoinRequestRepository interface {
	Create(ctx context.Context, req *JoinRequest) error
	GetByID(ctx context.Context, id string) (*JoinRequest, error)
	// GetByIDForUpdate re-reads a request under a row lock so that
	// concurrent decisions on the same request serialize.
	GetByIDForUpdate(ctx context.Context, id string) (*JoinRequest, error)
	Update(ctx context.Context, req *JoinRequest) error
	ListPendingByOrganization(ctx context.Context, organizationID string, requestType RequestType) ([]*JoinRequest, error)
	ListPendingByHRCode(ctx context.Context, hrCode string) ([]*JoinRequest, error)
}

// Store bundles the repositories the hierarchy workflow touches and scopes
// multi-table writes to a single transaction. InTransaction commits when fn
// returns nil and rolls back on error or panic; business code never calls
// rollback by hand.
type Store interface {
	Users() UserRepository
	Organizations() OrganizationRepository
	HRManagers() HRManagerRepository
	JoinRequests() JoinRequestRepository
	InTransaction(ctx context.Context, fn func(tx Store) error) error
}
