package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/pkg/database"
)

// PostgresJoinRequestRepository implements domain.JoinRequestRepository using PostgreSQL
type PostgresJoinRequestRepository struct {
	db     database.Queryer
	logger *slog.Logger
}

// NewPostgresJoinRequestRepository creates a new join request repository
func NewPostgresJoinRequestRepository(db database.Queryer, logger *slog.Logger) *PostgresJoinRequestRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJoinRequestRepository{
		db:     db,
		logger: logger,
	}
}

const joinRequestColumns = `id, user_id, request_type, requested_role, requested_org_code,
		requested_hr_code, organization_id, status, COALESCE(approved_by::text, ''),
		responded_at, response_message, created_at`

// Create inserts a new join request
func (r *PostgresJoinRequestRepository) Create(ctx context.Context, req *domain.JoinRequest) error {
	query := `
		INSERT INTO join_requests (id, user_id, request_type, requested_role,
			requested_org_code, requested_hr_code, organization_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		req.ID,
		req.UserID,
		req.RequestType,
		req.RequestedRole,
		req.RequestedOrgCode,
		req.RequestedHRCode,
		req.OrganizationID,
		req.Status,
	).Scan(&req.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create join request",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create join request: %w", err)
	}

	return nil
}

// GetByID retrieves a join request by ID
func (r *PostgresJoinRequestRepository) GetByID(ctx context.Context, id string) (*domain.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE id = $1`
	return r.scanJoinRequest(r.db.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate re-reads a join request under FOR UPDATE. Two approvals
// racing on the same request serialize here: the first committed decision
// flips the status and the second observes a non-pending row.
func (r *PostgresJoinRequestRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE id = $1 FOR UPDATE`
	return r.scanJoinRequest(r.db.QueryRowContext(ctx, query, id))
}

// Update persists the decision fields of a join request
func (r *PostgresJoinRequestRepository) Update(ctx context.Context, req *domain.JoinRequest) error {
	query := `
		UPDATE join_requests
		SET status = $1, approved_by = NULLIF($2, '')::uuid, responded_at = $3,
			response_message = $4
		WHERE id = $5
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		req.Status,
		req.ApprovedBy,
		req.RespondedAt,
		req.ResponseMessage,
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update join request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("join request %s: %w", req.ID, domain.ErrNotFound)
	}

	return nil
}

// ListPendingByOrganization lists pending requests of a type within an
// organization, newest first
func (r *PostgresJoinRequestRepository) ListPendingByOrganization(ctx context.Context, organizationID string, requestType domain.RequestType) ([]*domain.JoinRequest, error) {
	query := `
		SELECT ` + joinRequestColumns + `
		FROM join_requests
		WHERE organization_id = $1 AND request_type = $2 AND status = 'pending'
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID, requestType)
	if err != nil {
		r.logger.Error("failed to list join requests",
			slog.String("organization_id", organizationID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	defer rows.Close()

	return r.collectJoinRequests(rows)
}

// ListPendingByHRCode lists pending staff_join requests addressed to a
// specific HR code, newest first
func (r *PostgresJoinRequestRepository) ListPendingByHRCode(ctx context.Context, hrCode string) ([]*domain.JoinRequest, error) {
	query := `
		SELECT ` + joinRequestColumns + `
		FROM join_requests
		WHERE requested_hr_code = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, hrCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	defer rows.Close()

	return r.collectJoinRequests(rows)
}

func (r *PostgresJoinRequestRepository) collectJoinRequests(rows *sql.Rows) ([]*domain.JoinRequest, error) {
	var requests []*domain.JoinRequest
	for rows.Next() {
		req := &domain.JoinRequest{}
		err := rows.Scan(
			&req.ID,
			&req.UserID,
			&req.RequestType,
			&req.RequestedRole,
			&req.RequestedOrgCode,
			&req.RequestedHRCode,
			&req.OrganizationID,
			&req.Status,
			&req.ApprovedBy,
			&req.RespondedAt,
			&req.ResponseMessage,
			&req.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan join request row",
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("failed to scan join request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func (r *PostgresJoinRequestRepository) scanJoinRequest(row *sql.Row) (*domain.JoinRequest, error) {
	req := &domain.JoinRequest{}

	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.RequestType,
		&req.RequestedRole,
		&req.RequestedOrgCode,
		&req.RequestedHRCode,
		&req.OrganizationID,
		&req.Status,
		&req.ApprovedBy,
		&req.RespondedAt,
		&req.ResponseMessage,
		&req.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("join request: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}

	return req, nil
}
