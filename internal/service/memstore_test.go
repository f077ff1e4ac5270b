package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/workorbit/workorbit/internal/domain"
)

// memStore is an in-memory domain.Store. InTransaction snapshots state
// before running fn and restores it when fn fails, mirroring the rollback
// guarantee of the Postgres store. Repositories hand out copies so that
// in-place mutation never leaks past a rolled-back transaction.
type memStore struct {
	users  map[string]*domain.User
	orgs   map[string]*domain.Organization
	hrs    map[string]*domain.HRManager
	reqs   map[string]*domain.JoinRequest
	orgSeq int

	// hrCreateErr, when set, makes HRManager creation fail. Used to
	// verify that a failed write rolls back the whole decision.
	hrCreateErr error
}

func newMemStore() *memStore {
	return &memStore{
		users: map[string]*domain.User{},
		orgs:  map[string]*domain.Organization{},
		hrs:   map[string]*domain.HRManager{},
		reqs:  map[string]*domain.JoinRequest{},
	}
}

func (s *memStore) Users() domain.UserRepository                 { return &memUsers{s} }
func (s *memStore) Organizations() domain.OrganizationRepository { return &memOrgs{s} }
func (s *memStore) HRManagers() domain.HRManagerRepository       { return &memHRs{s} }
func (s *memStore) JoinRequests() domain.JoinRequestRepository   { return &memReqs{s} }

func (s *memStore) InTransaction(ctx context.Context, fn func(tx domain.Store) error) error {
	users, orgs, hrs, reqs, seq := s.snapshot()
	if err := fn(s); err != nil {
		s.users, s.orgs, s.hrs, s.reqs, s.orgSeq = users, orgs, hrs, reqs, seq
		return err
	}
	return nil
}

func (s *memStore) snapshot() (map[string]*domain.User, map[string]*domain.Organization, map[string]*domain.HRManager, map[string]*domain.JoinRequest, int) {
	users := make(map[string]*domain.User, len(s.users))
	for k, v := range s.users {
		users[k] = cloneUser(v)
	}
	orgs := make(map[string]*domain.Organization, len(s.orgs))
	for k, v := range s.orgs {
		cp := *v
		orgs[k] = &cp
	}
	hrs := make(map[string]*domain.HRManager, len(s.hrs))
	for k, v := range s.hrs {
		cp := *v
		hrs[k] = &cp
	}
	reqs := make(map[string]*domain.JoinRequest, len(s.reqs))
	for k, v := range s.reqs {
		reqs[k] = cloneRequest(v)
	}
	return users, orgs, hrs, reqs, s.orgSeq
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	if u.DateOfJoining != nil {
		t := *u.DateOfJoining
		cp.DateOfJoining = &t
	}
	if u.LockUntil != nil {
		t := *u.LockUntil
		cp.LockUntil = &t
	}
	return &cp
}

func cloneRequest(r *domain.JoinRequest) *domain.JoinRequest {
	cp := *r
	if r.RespondedAt != nil {
		t := *r.RespondedAt
		cp.RespondedAt = &t
	}
	return &cp
}

type memUsers struct{ s *memStore }

func (m *memUsers) Create(ctx context.Context, user *domain.User) error {
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("email %s taken: %w", user.Email, domain.ErrConflict)
		}
		if user.EmployeeID != "" && u.EmployeeID == user.EmployeeID {
			return fmt.Errorf("employee id %s taken: %w", user.EmployeeID, domain.ErrConflict)
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	m.s.users[user.ID] = cloneUser(user)
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := m.s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

func (m *memUsers) Update(ctx context.Context, user *domain.User) error {
	if _, ok := m.s.users[user.ID]; !ok {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrNotFound)
	}
	for _, u := range m.s.users {
		if u.ID != user.ID && user.EmployeeID != "" && u.EmployeeID == user.EmployeeID {
			return fmt.Errorf("employee id %s taken: %w", user.EmployeeID, domain.ErrConflict)
		}
	}
	m.s.users[user.ID] = cloneUser(user)
	return nil
}

func (m *memUsers) EmployeeIDExists(ctx context.Context, employeeID string) (bool, error) {
	for _, u := range m.s.users {
		if u.EmployeeID == employeeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) CountEmployeesByYear(ctx context.Context, year int) (int, error) {
	prefix := fmt.Sprintf("EMP%d", year)
	count := 0
	for _, u := range m.s.users {
		if strings.HasPrefix(u.EmployeeID, prefix) {
			count++
		}
	}
	return count, nil
}

type memOrgs struct{ s *memStore }

func (m *memOrgs) Create(ctx context.Context, org *domain.Organization) error {
	for _, o := range m.s.orgs {
		if o.OrgCode == org.OrgCode {
			return fmt.Errorf("org code %s taken: %w", org.OrgCode, domain.ErrConflict)
		}
	}
	cp := *org
	m.s.orgs[org.ID] = &cp
	return nil
}

func (m *memOrgs) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	if o, ok := m.s.orgs[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, fmt.Errorf("organization %s: %w", id, domain.ErrNotFound)
}

func (m *memOrgs) GetByCode(ctx context.Context, orgCode string) (*domain.Organization, error) {
	for _, o := range m.s.orgs {
		if o.OrgCode == orgCode {
			cp := *o
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("organization %s: %w", orgCode, domain.ErrNotFound)
}

func (m *memOrgs) GetByAdminID(ctx context.Context, adminID string) (*domain.Organization, error) {
	for _, o := range m.s.orgs {
		if o.AdminID == adminID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("organization for admin %s: %w", adminID, domain.ErrNotFound)
}

func (m *memOrgs) NextOrgCode(ctx context.Context) (string, error) {
	m.s.orgSeq++
	return fmt.Sprintf("ORG%03d", m.s.orgSeq), nil
}

type memHRs struct{ s *memStore }

func (m *memHRs) Create(ctx context.Context, hr *domain.HRManager) error {
	if m.s.hrCreateErr != nil {
		return m.s.hrCreateErr
	}
	for _, h := range m.s.hrs {
		if h.HRCode == hr.HRCode {
			return fmt.Errorf("hr code %s taken: %w", hr.HRCode, domain.ErrConflict)
		}
		if h.UserID == hr.UserID {
			return fmt.Errorf("user %s already an hr manager: %w", hr.UserID, domain.ErrConflict)
		}
	}
	cp := *hr
	m.s.hrs[hr.ID] = &cp
	return nil
}

func (m *memHRs) GetByUserID(ctx context.Context, userID string) (*domain.HRManager, error) {
	for _, h := range m.s.hrs {
		if h.UserID == userID {
			cp := *h
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("hr manager for user %s: %w", userID, domain.ErrNotFound)
}

func (m *memHRs) GetByCode(ctx context.Context, hrCode string) (*domain.HRManager, error) {
	for _, h := range m.s.hrs {
		if h.HRCode == hrCode {
			cp := *h
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("hr manager %s: %w", hrCode, domain.ErrNotFound)
}

func (m *memHRs) CountByOrganization(ctx context.Context, organizationID string) (int, error) {
	count := 0
	for _, h := range m.s.hrs {
		if h.OrganizationID == organizationID {
			count++
		}
	}
	return count, nil
}

type memReqs struct{ s *memStore }

func (m *memReqs) Create(ctx context.Context, req *domain.JoinRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	m.s.reqs[req.ID] = cloneRequest(req)
	return nil
}

func (m *memReqs) GetByID(ctx context.Context, id string) (*domain.JoinRequest, error) {
	if r, ok := m.s.reqs[id]; ok {
		return cloneRequest(r), nil
	}
	return nil, fmt.Errorf("join request %s: %w", id, domain.ErrNotFound)
}

func (m *memReqs) GetByIDForUpdate(ctx context.Context, id string) (*domain.JoinRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *memReqs) Update(ctx context.Context, req *domain.JoinRequest) error {
	if _, ok := m.s.reqs[req.ID]; !ok {
		return fmt.Errorf("join request %s: %w", req.ID, domain.ErrNotFound)
	}
	m.s.reqs[req.ID] = cloneRequest(req)
	return nil
}

func (m *memReqs) ListPendingByOrganization(ctx context.Context, organizationID string, requestType domain.RequestType) ([]*domain.JoinRequest, error) {
	out := []*domain.JoinRequest{}
	for _, r := range m.s.reqs {
		if r.Status == domain.RequestStatusPending && r.OrganizationID == organizationID && r.RequestType == requestType {
			out = append(out, cloneRequest(r))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *memReqs) ListPendingByHRCode(ctx context.Context, hrCode string) ([]*domain.JoinRequest, error) {
	out := []*domain.JoinRequest{}
	for _, r := range m.s.reqs {
		if r.Status == domain.RequestStatusPending && r.RequestType == domain.RequestTypeStaffJoin && r.RequestedHRCode == hrCode {
			out = append(out, cloneRequest(r))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(reqs []*domain.JoinRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
}

// capturePublisher records emitted events for assertions.
type capturePublisher struct {
	events []domain.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event domain.Event) error {
	p.events = append(p.events, event)
	return nil
}
