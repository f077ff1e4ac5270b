package security

import (
	"errors"
	"testing"

	"github.com/workorbit/workorbit/internal/domain"
)

func TestAuthorizeMatrix(t *testing.T) {
	org := &domain.Organization{ID: "org-1", OrgCode: "ORG001", AdminID: "admin-1"}
	otherOrg := &domain.Organization{ID: "org-2", OrgCode: "ORG002", AdminID: "admin-2"}
	hrRec := &domain.HRManager{ID: "hr-rec-1", UserID: "hr-1", OrganizationID: "org-1", HRCode: "HR001-ORG001"}

	admin := &domain.User{ID: "admin-1", Role: domain.RoleAdmin}
	otherAdmin := &domain.User{ID: "admin-2", Role: domain.RoleAdmin}
	hr := &domain.User{ID: "hr-1", Role: domain.RoleHR}
	employee := &domain.User{ID: "emp-1", Role: domain.RoleEmployee}
	manager := &domain.User{ID: "mgr-1", Role: domain.RoleManager}

	hrJoin := &domain.JoinRequest{
		ID:             "req-1",
		RequestType:    domain.RequestTypeHRJoin,
		RequestedRole:  domain.RoleHR,
		OrganizationID: "org-1",
	}
	staffJoin := &domain.JoinRequest{
		ID:              "req-2",
		RequestType:     domain.RequestTypeStaffJoin,
		RequestedRole:   domain.RoleEmployee,
		RequestedHRCode: "HR001-ORG001",
		OrganizationID:  "org-1",
	}
	foreignStaffJoin := &domain.JoinRequest{
		ID:              "req-3",
		RequestType:     domain.RequestTypeStaffJoin,
		RequestedRole:   domain.RoleEmployee,
		RequestedHRCode: "HR001-ORG002",
		OrganizationID:  "org-2",
	}

	guard := NewApprovalGuard(nil)

	cases := []struct {
		name  string
		actor *domain.User
		req   *domain.JoinRequest
		dc    DecisionContext
		allow bool
	}{
		{"admin approves hr_join for owned org", admin, hrJoin, DecisionContext{OwnedOrganization: org}, true},
		{"admin denied hr_join for foreign org", otherAdmin, hrJoin, DecisionContext{OwnedOrganization: otherOrg}, false},
		{"admin denied without owned org", admin, hrJoin, DecisionContext{}, false},
		{"admin denied staff_join", admin, staffJoin, DecisionContext{OwnedOrganization: org}, false},
		{"hr approves staff_join naming their code", hr, staffJoin, DecisionContext{HRManagerRecord: hrRec}, true},
		{"hr denied hr_join", hr, hrJoin, DecisionContext{HRManagerRecord: hrRec}, false},
		{"hr denied staff_join naming another code", hr, foreignStaffJoin, DecisionContext{HRManagerRecord: hrRec}, false},
		{"hr denied without record", hr, staffJoin, DecisionContext{}, false},
		{"employee denied everything", employee, staffJoin, DecisionContext{}, false},
		{"manager denied everything", manager, hrJoin, DecisionContext{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := guard.Authorize(tc.actor, tc.req, tc.dc)
			if tc.allow && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tc.allow && !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
}
