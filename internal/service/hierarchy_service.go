package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/internal/observability/metrics"
	"github.com/workorbit/workorbit/internal/security"
	"github.com/workorbit/workorbit/pkg/cache"
)

const (
	defaultApproveMessage = "Your join request has been approved. Welcome aboard."
	defaultRejectMessage  = "Your join request has been declined."

	codeCacheTTL = 5 * time.Minute
)

// ApproveInput carries the optional overrides an approver may supply.
type ApproveInput struct {
	Department  string
	Designation string
	Message     string
}

// DecisionResult is the outcome of an approve or reject call.
type DecisionResult struct {
	Request *domain.JoinRequest
	User    *domain.User
}

// OrgCodeSummary is returned by ValidateOrgCode.
type OrgCodeSummary struct {
	OrgCode          string `json:"orgCode"`
	OrganizationName string `json:"organizationName"`
}

// HRCodeSummary is returned by ValidateHRCode.
type HRCodeSummary struct {
	HRCode           string `json:"hrCode"`
	OrgCode          string `json:"orgCode"`
	OrganizationName string `json:"organizationName"`
}

// HierarchyService owns the join-request state machine. It is the only
// writer of JoinRequest.Status and of the identity fields approval touches;
// every decision runs inside one store transaction so the request, the
// user, and (for hr_join) the new HR manager row move together or not at
// all.
type HierarchyService struct {
	store     domain.Store
	guard     *security.ApprovalGuard
	publisher domain.EventPublisher
	codeCache *cache.Cache
	logger    *slog.Logger
	now       func() time.Time
}

// NewHierarchyService creates a new hierarchy service
func NewHierarchyService(
	store domain.Store,
	guard *security.ApprovalGuard,
	publisher domain.EventPublisher,
	logger *slog.Logger,
) *HierarchyService {
	if logger == nil {
		logger = slog.Default()
	}

	return &HierarchyService{
		store:     store,
		guard:     guard,
		publisher: publisher,
		codeCache: cache.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// Approve moves a pending join request to approved and promotes the
// requester in the same transaction. For hr_join an HR manager record is
// created and an HR code issued; for staff_join an employee ID is issued
// with bounded retry. Department/designation overrides from the approver
// are applied when present.
func (s *HierarchyService) Approve(ctx context.Context, requestID, actingUserID string, in ApproveInput) (*DecisionResult, error) {
	start := s.now()
	result := &DecisionResult{}

	err := s.store.InTransaction(ctx, func(tx domain.Store) error {
		req, actor, err := s.loadAndAuthorize(ctx, tx, requestID, actingUserID)
		if err != nil {
			return err
		}

		org, err := tx.Organizations().GetByID(ctx, req.OrganizationID)
		if err != nil {
			return err
		}

		user, err := tx.Users().GetByID(ctx, req.UserID)
		if err != nil {
			return err
		}

		now := s.now()

		switch req.RequestedRole {
		case domain.RoleHR:
			count, err := tx.HRManagers().CountByOrganization(ctx, org.ID)
			if err != nil {
				return err
			}
			hrCode := FormatHRCode(count+1, org.OrgCode)
			if err := tx.HRManagers().Create(ctx, &domain.HRManager{
				ID:             uuid.NewString(),
				UserID:         user.ID,
				OrganizationID: org.ID,
				HRCode:         hrCode,
			}); err != nil {
				return err
			}
			user.Role = domain.RoleHR
			user.HRCode = hrCode

		case domain.RoleManager, domain.RoleEmployee:
			employeeID, err := nextEmployeeID(ctx, tx.Users(), now)
			if err != nil {
				return err
			}
			user.Role = req.RequestedRole
			user.EmployeeID = employeeID
			user.HRCode = req.RequestedHRCode
			user.DateOfJoining = &now

		default:
			return fmt.Errorf("requested role %q: %w", req.RequestedRole, domain.ErrValidation)
		}

		user.OrganizationID = org.ID
		user.OrgCode = org.OrgCode
		user.IsAssigned = true
		user.Status = domain.StatusActive
		if in.Department != "" {
			user.Department = in.Department
		}
		if in.Designation != "" {
			user.Designation = in.Designation
		}

		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}

		req.Status = domain.RequestStatusApproved
		req.ApprovedBy = actor.ID
		req.RespondedAt = &now
		req.ResponseMessage = in.Message
		if req.ResponseMessage == "" {
			req.ResponseMessage = defaultApproveMessage
		}

		if err := tx.JoinRequests().Update(ctx, req); err != nil {
			return err
		}

		result.Request = req
		result.User = user
		return nil
	})

	if err != nil {
		metrics.ObserveDecision("approve", outcomeLabel(err), s.now().Sub(start))
		return nil, err
	}

	metrics.ObserveDecision("approve", "success", s.now().Sub(start))
	s.logger.Info("join request approved",
		slog.String("request_id", result.Request.ID),
		slog.String("user_id", result.User.ID),
		slog.String("role", string(result.User.Role)),
		slog.String("approved_by", actingUserID),
	)

	s.emit(ctx, domain.Event{
		ID:             uuid.NewString(),
		Type:           domain.EventRequestApproved,
		UserID:         result.User.ID,
		OrganizationID: result.User.OrganizationID,
		Detail: map[string]string{
			"request_id":  result.Request.ID,
			"role":        string(result.User.Role),
			"employee_id": result.User.EmployeeID,
			"hr_code":     result.User.HRCode,
		},
		OccurredAt: s.now(),
	})

	return result, nil
}

// Reject moves a pending join request to rejected and marks the requester
// inactive. The pair of writes is atomic, like approve.
func (s *HierarchyService) Reject(ctx context.Context, requestID, actingUserID, reason string) (*DecisionResult, error) {
	start := s.now()
	result := &DecisionResult{}

	err := s.store.InTransaction(ctx, func(tx domain.Store) error {
		req, actor, err := s.loadAndAuthorize(ctx, tx, requestID, actingUserID)
		if err != nil {
			return err
		}

		user, err := tx.Users().GetByID(ctx, req.UserID)
		if err != nil {
			return err
		}

		now := s.now()

		user.Status = domain.StatusInactive
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}

		req.Status = domain.RequestStatusRejected
		req.ApprovedBy = actor.ID
		req.RespondedAt = &now
		req.ResponseMessage = reason
		if req.ResponseMessage == "" {
			req.ResponseMessage = defaultRejectMessage
		}

		if err := tx.JoinRequests().Update(ctx, req); err != nil {
			return err
		}

		result.Request = req
		result.User = user
		return nil
	})

	if err != nil {
		metrics.ObserveDecision("reject", outcomeLabel(err), s.now().Sub(start))
		return nil, err
	}

	metrics.ObserveDecision("reject", "success", s.now().Sub(start))
	s.logger.Info("join request rejected",
		slog.String("request_id", result.Request.ID),
		slog.String("user_id", result.User.ID),
		slog.String("rejected_by", actingUserID),
	)

	s.emit(ctx, domain.Event{
		ID:             uuid.NewString(),
		Type:           domain.EventRequestRejected,
		UserID:         result.User.ID,
		OrganizationID: result.Request.OrganizationID,
		Detail:         map[string]string{"request_id": result.Request.ID},
		OccurredAt:     s.now(),
	})

	return result, nil
}

// loadAndAuthorize re-reads the request under a row lock, checks its state,
// and runs the approval guard with the actor's organizational context. All
// three checks happen inside the caller's transaction.
func (s *HierarchyService) loadAndAuthorize(ctx context.Context, tx domain.Store, requestID, actingUserID string) (*domain.JoinRequest, *domain.User, error) {
	req, err := tx.JoinRequests().GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	if req.Status != domain.RequestStatusPending {
		return nil, nil, fmt.Errorf("request %s is %s: %w", req.ID, req.Status, domain.ErrInvalidState)
	}

	actor, err := tx.Users().GetByID(ctx, actingUserID)
	if err != nil {
		return nil, nil, err
	}

	dc := security.DecisionContext{}
	switch actor.Role {
	case domain.RoleAdmin:
		org, err := tx.Organizations().GetByAdminID(ctx, actor.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, err
		}
		dc.OwnedOrganization = org
	case domain.RoleHR:
		hr, err := tx.HRManagers().GetByUserID(ctx, actor.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, err
		}
		dc.HRManagerRecord = hr
	}

	if err := s.guard.Authorize(actor, req, dc); err != nil {
		return nil, nil, err
	}

	return req, actor, nil
}

// PendingRequests lists the pending join requests the acting user may
// decide, newest first: admins see hr_join requests for the organization
// they own, HR managers see staff_join requests addressed to their HR code.
func (s *HierarchyService) PendingRequests(ctx context.Context, actingUserID string) ([]*domain.JoinRequest, error) {
	actor, err := s.store.Users().GetByID(ctx, actingUserID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case domain.RoleAdmin:
		org, err := s.store.Organizations().GetByAdminID(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("actor owns no organization: %w", domain.ErrForbidden)
			}
			return nil, err
		}
		return s.store.JoinRequests().ListPendingByOrganization(ctx, org.ID, domain.RequestTypeHRJoin)

	case domain.RoleHR:
		hr, err := s.store.HRManagers().GetByUserID(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("actor holds no hr manager record: %w", domain.ErrForbidden)
			}
			return nil, err
		}
		return s.store.JoinRequests().ListPendingByHRCode(ctx, hr.HRCode)

	default:
		return nil, fmt.Errorf("role %s cannot list join requests: %w", actor.Role, domain.ErrForbidden)
	}
}

// ValidateOrgCode resolves an ORG### code to its organization name.
// Results are cached briefly since registration forms poll this endpoint.
func (s *HierarchyService) ValidateOrgCode(ctx context.Context, code string) (*OrgCodeSummary, error) {
	if !OrgCodePattern.MatchString(code) {
		return nil, fmt.Errorf("org code must match ORG###: %w", domain.ErrValidation)
	}

	if cached, ok := s.codeCache.Get("org:" + code); ok {
		return cached.(*OrgCodeSummary), nil
	}

	org, err := s.store.Organizations().GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	summary := &OrgCodeSummary{OrgCode: org.OrgCode, OrganizationName: org.Name}
	s.codeCache.Set("org:"+code, summary, codeCacheTTL)
	return summary, nil
}

// ValidateHRCode resolves an HR###-ORG### code to its HR/organization summary.
func (s *HierarchyService) ValidateHRCode(ctx context.Context, code string) (*HRCodeSummary, error) {
	if !HRCodePattern.MatchString(code) {
		return nil, fmt.Errorf("hr code must match HR###-ORG###: %w", domain.ErrValidation)
	}

	if cached, ok := s.codeCache.Get("hr:" + code); ok {
		return cached.(*HRCodeSummary), nil
	}

	hr, err := s.store.HRManagers().GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	org, err := s.store.Organizations().GetByID(ctx, hr.OrganizationID)
	if err != nil {
		return nil, err
	}

	summary := &HRCodeSummary{
		HRCode:           hr.HRCode,
		OrgCode:          org.OrgCode,
		OrganizationName: org.Name,
	}
	s.codeCache.Set("hr:"+code, summary, codeCacheTTL)
	return summary, nil
}

// emit hands an event to the notification channel after a successful
// commit. Publish failures are logged and swallowed: notification delivery
// never decides the fate of a committed approval.
func (s *HierarchyService) emit(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event",
			slog.String("event_type", string(event.Type)),
			slog.String("user_id", event.UserID),
			slog.String("error", err.Error()),
		)
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrExhaustedCapacity):
		return "exhausted"
	default:
		return "error"
	}
}
