package security

import (
	"fmt"
	"log/slog"

	"github.com/workorbit/workorbit/internal/domain"
)

// DecisionContext carries the organizational records the guard needs to
// scope a decision: the organization the actor owns (admin) or the HR
// manager record the actor holds (hr). The workflow fetches these inside
// its transaction so the guard stays a pure decision.
type DecisionContext struct {
	OwnedOrganization *domain.Organization
	HRManagerRecord   *domain.HRManager
}

// ApprovalGuard decides whether an acting user may approve or reject a
// join request. The capability split is deliberate: admins onboard HR
// managers for the organization they own, HR managers onboard only the
// staff who named their specific HR code.
type ApprovalGuard struct {
	logger *slog.Logger
}

// NewApprovalGuard creates a new approval guard
func NewApprovalGuard(logger *slog.Logger) *ApprovalGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalGuard{logger: logger}
}

// Authorize returns ErrForbidden unless actor may decide req.
func (g *ApprovalGuard) Authorize(actor *domain.User, req *domain.JoinRequest, dc DecisionContext) error {
	switch actor.Role {
	case domain.RoleAdmin:
		if req.RequestType != domain.RequestTypeHRJoin {
			return g.deny(actor, req, "admins decide hr_join requests only")
		}
		if dc.OwnedOrganization == nil || dc.OwnedOrganization.AdminID != actor.ID {
			return g.deny(actor, req, "actor does not own an organization")
		}
		if req.OrganizationID != dc.OwnedOrganization.ID {
			return g.deny(actor, req, "request belongs to another organization")
		}
		return nil

	case domain.RoleHR:
		if req.RequestType != domain.RequestTypeStaffJoin {
			return g.deny(actor, req, "hr managers decide staff_join requests only")
		}
		if dc.HRManagerRecord == nil || dc.HRManagerRecord.UserID != actor.ID {
			return g.deny(actor, req, "actor holds no hr manager record")
		}
		if req.RequestedHRCode != dc.HRManagerRecord.HRCode {
			return g.deny(actor, req, "request names another hr code")
		}
		if req.OrganizationID != dc.HRManagerRecord.OrganizationID {
			return g.deny(actor, req, "request belongs to another organization")
		}
		return nil

	case domain.RoleManager, domain.RoleEmployee:
		return g.deny(actor, req, "role carries no approval capability")

	default:
		return g.deny(actor, req, "unknown role")
	}
}

func (g *ApprovalGuard) deny(actor *domain.User, req *domain.JoinRequest, reason string) error {
	g.logger.Warn("approval denied",
		slog.String("actor_id", actor.ID),
		slog.String("actor_role", string(actor.Role)),
		slog.String("request_id", req.ID),
		slog.String("request_type", string(req.RequestType)),
		slog.String("reason", reason),
	)
	return fmt.Errorf("%s: %w", reason, domain.ErrForbidden)
}
