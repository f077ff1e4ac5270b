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
	"github.com/workorbit/workorbit/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration and authentication. Admin registration
// bootstraps an organization; HR and staff registration create pending
// accounts plus the join request the approval workflow later decides.
type AuthService struct {
	store            domain.Store
	tokenManager     *auth.TokenManager
	publisher        domain.EventPublisher
	maxLoginAttempts int
	lockoutDuration  time.Duration
	logger           *slog.Logger
	now              func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	store domain.Store,
	tokenManager *auth.TokenManager,
	publisher domain.EventPublisher,
	maxLoginAttempts int,
	lockoutDuration time.Duration,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxLoginAttempts <= 0 {
		maxLoginAttempts = 5
	}
	if lockoutDuration <= 0 {
		lockoutDuration = 15 * time.Minute
	}

	return &AuthService{
		store:            store,
		tokenManager:     tokenManager,
		publisher:        publisher,
		maxLoginAttempts: maxLoginAttempts,
		lockoutDuration:  lockoutDuration,
		logger:           logger,
		now:              time.Now,
	}
}

// RegisterResult represents a registration response
type RegisterResult struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	OrgCode   string `json:"orgCode,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Token     string `json:"token,omitempty"`
}

// LoginResult represents a login response
type LoginResult struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"` // seconds
	TokenType string `json:"tokenType"`
}

// RegisterAdmin creates an organization and its owning admin in one
// transaction. The org code comes from the database sequence so two
// concurrent registrations can never mint the same ORG number.
func (s *AuthService) RegisterAdmin(ctx context.Context, name, email, password, organizationName string) (*RegisterResult, error) {
	if name == "" || email == "" || password == "" || organizationName == "" {
		return nil, fmt.Errorf("name, email, password, and organizationName are required: %w", domain.ErrValidation)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Status:       domain.StatusActive,
		IsAssigned:   true,
	}

	err = s.store.InTransaction(ctx, func(tx domain.Store) error {
		orgCode, err := tx.Organizations().NextOrgCode(ctx)
		if err != nil {
			return err
		}

		org := &domain.Organization{
			ID:      uuid.NewString(),
			OrgCode: orgCode,
			Name:    organizationName,
			AdminID: user.ID,
		}

		user.OrganizationID = org.ID
		user.OrgCode = org.OrgCode

		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Organizations().Create(ctx, org)
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokenManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("admin registered",
		slog.String("user_id", user.ID),
		slog.String("org_code", user.OrgCode),
	)

	return &RegisterResult{
		UserID:  user.ID,
		Email:   user.Email,
		Status:  string(user.Status),
		OrgCode: user.OrgCode,
		Token:   token,
	}, nil
}

// RegisterHR creates a pending HR account and its hr_join request against
// the named organization. The account stays pending_hr_approval until the
// owning admin decides the request.
func (s *AuthService) RegisterHR(ctx context.Context, name, email, password, orgCode string) (*RegisterResult, error) {
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("name, email, and password are required: %w", domain.ErrValidation)
	}
	if !OrgCodePattern.MatchString(orgCode) {
		return nil, fmt.Errorf("org code must match ORG###: %w", domain.ErrValidation)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleEmployee, // provisional until approval promotes to hr
		Status:       domain.StatusPendingHRApproval,
	}
	req := &domain.JoinRequest{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		RequestType:      domain.RequestTypeHRJoin,
		RequestedRole:    domain.RoleHR,
		RequestedOrgCode: orgCode,
		Status:           domain.RequestStatusPending,
	}

	err = s.store.InTransaction(ctx, func(tx domain.Store) error {
		org, err := tx.Organizations().GetByCode(ctx, orgCode)
		if err != nil {
			return err
		}
		req.OrganizationID = org.ID
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.JoinRequests().Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("hr join request submitted",
		slog.String("user_id", user.ID),
		slog.String("request_id", req.ID),
		slog.String("org_code", orgCode),
	)

	return &RegisterResult{
		UserID:    user.ID,
		Email:     user.Email,
		Status:    string(user.Status),
		RequestID: req.ID,
	}, nil
}

// RegisterStaff creates a pending staff account and its staff_join request
// addressed to a specific HR manager's code.
func (s *AuthService) RegisterStaff(ctx context.Context, name, email, password, hrCode string, requestedRole domain.Role) (*RegisterResult, error) {
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("name, email, and password are required: %w", domain.ErrValidation)
	}
	if requestedRole != domain.RoleManager && requestedRole != domain.RoleEmployee {
		return nil, fmt.Errorf("requested role must be manager or employee: %w", domain.ErrValidation)
	}
	if !HRCodePattern.MatchString(hrCode) {
		return nil, fmt.Errorf("hr code must match HR###-ORG###: %w", domain.ErrValidation)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         requestedRole,
		Status:       domain.StatusPendingStaffApproval,
	}
	req := &domain.JoinRequest{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		RequestType:     domain.RequestTypeStaffJoin,
		RequestedRole:   requestedRole,
		RequestedHRCode: hrCode,
		Status:          domain.RequestStatusPending,
	}

	err = s.store.InTransaction(ctx, func(tx domain.Store) error {
		hr, err := tx.HRManagers().GetByCode(ctx, hrCode)
		if err != nil {
			return err
		}
		org, err := tx.Organizations().GetByID(ctx, hr.OrganizationID)
		if err != nil {
			return err
		}
		req.OrganizationID = org.ID
		req.RequestedOrgCode = org.OrgCode
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.JoinRequests().Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("staff join request submitted",
		slog.String("user_id", user.ID),
		slog.String("request_id", req.ID),
		slog.String("hr_code", hrCode),
	)

	s.emit(ctx, domain.Event{
		ID:             uuid.NewString(),
		Type:           domain.EventEmployeeRegistered,
		UserID:         user.ID,
		OrganizationID: req.OrganizationID,
		Detail: map[string]string{
			"request_id": req.ID,
			"hr_code":    hrCode,
			"role":       string(requestedRole),
		},
		OccurredAt: s.now(),
	})

	return &RegisterResult{
		UserID:    user.ID,
		Email:     user.Email,
		Status:    string(user.Status),
		RequestID: req.ID,
	}, nil
}

// Login authenticates a user. A locked account is rejected before the
// credential check; repeated failures lock the account and emit a lockout
// event.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", domain.ErrValidation)
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("login attempt with unknown email", slog.String("email", email))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()

	if user.Locked(now) {
		s.logger.Warn("login attempt on locked account",
			slog.String("user_id", user.ID),
			slog.Time("lock_until", *user.LockUntil),
		)
		return nil, fmt.Errorf("locked until %s: %w", user.LockUntil.Format(time.RFC3339), domain.ErrAccountLocked)
	}

	if user.Status == domain.StatusInactive {
		return nil, fmt.Errorf("account is inactive: %w", domain.ErrForbidden)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, s.recordFailedAttempt(ctx, user, now)
	}

	// Successful login clears the failure counter and any expired lock
	if user.LoginAttempts > 0 || user.LockUntil != nil {
		user.LoginAttempts = 0
		user.LockUntil = nil
		if err := s.store.Users().Update(ctx, user); err != nil {
			s.logger.Error("failed to reset login attempts", slog.String("error", err.Error()))
		}
	}

	token, err := s.tokenManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return &LoginResult{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		Token:     token,
		ExpiresIn: int(s.tokenManager.TTL().Seconds()),
		TokenType: "Bearer",
	}, nil
}

func (s *AuthService) recordFailedAttempt(ctx context.Context, user *domain.User, now time.Time) error {
	user.LoginAttempts++

	locked := user.LoginAttempts >= s.maxLoginAttempts
	if locked {
		until := now.Add(s.lockoutDuration)
		user.LockUntil = &until
		user.LoginAttempts = 0
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		s.logger.Error("failed to record login attempt", slog.String("error", err.Error()))
	}

	if locked {
		metrics.ObserveLockout()
		s.logger.Warn("account locked after repeated failures",
			slog.String("user_id", user.ID),
			slog.Duration("lockout", s.lockoutDuration),
		)
		s.emit(ctx, domain.Event{
			ID:         uuid.NewString(),
			Type:       domain.EventAccountLocked,
			UserID:     user.ID,
			Detail:     map[string]string{"lock_until": user.LockUntil.Format(time.RFC3339)},
			OccurredAt: now,
		})
		return fmt.Errorf("too many failed attempts: %w", domain.ErrAccountLocked)
	}

	s.logger.Info("login failed with wrong password", slog.String("user_id", user.ID))
	return domain.ErrInvalidCredentials
}

func (s *AuthService) hashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters: %w", domain.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) emit(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event",
			slog.String("event_type", string(event.Type)),
			slog.String("error", err.Error()),
		)
	}
}
