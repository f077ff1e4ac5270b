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

// PostgresOrganizationRepository implements domain.OrganizationRepository using PostgreSQL
type PostgresOrganizationRepository struct {
	db     database.Queryer
	logger *slog.Logger
}

// NewPostgresOrganizationRepository creates a new organization repository
func NewPostgresOrganizationRepository(db database.Queryer, logger *slog.Logger) *PostgresOrganizationRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresOrganizationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new organization
func (r *PostgresOrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (id, org_code, name, admin_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		org.ID,
		org.OrgCode,
		org.Name,
		org.AdminID,
	).Scan(&org.CreatedAt, &org.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("org code %s already assigned: %w", org.OrgCode, domain.ErrConflict)
		}
		r.logger.Error("failed to create organization",
			slog.String("org_code", org.OrgCode),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// GetByID retrieves an organization by ID
func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	query := `
		SELECT id, org_code, name, admin_id, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	return r.scanOrganization(r.db.QueryRowContext(ctx, query, id))
}

// GetByCode retrieves an organization by its ORG### code
func (r *PostgresOrganizationRepository) GetByCode(ctx context.Context, orgCode string) (*domain.Organization, error) {
	query := `
		SELECT id, org_code, name, admin_id, created_at, updated_at
		FROM organizations
		WHERE org_code = $1
	`
	return r.scanOrganization(r.db.QueryRowContext(ctx, query, orgCode))
}

// GetByAdminID retrieves the organization owned by an admin user
func (r *PostgresOrganizationRepository) GetByAdminID(ctx context.Context, adminID string) (*domain.Organization, error) {
	query := `
		SELECT id, org_code, name, admin_id, created_at, updated_at
		FROM organizations
		WHERE admin_id = $1
	`
	return r.scanOrganization(r.db.QueryRowContext(ctx, query, adminID))
}

// NextOrgCode draws the next ORG### code from the database sequence.
// A sequence, unlike a row count, cannot hand the same number to two
// concurrent registrations.
func (r *PostgresOrganizationRepository) NextOrgCode(ctx context.Context) (string, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('org_code_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("failed to draw org code: %w", err)
	}
	return fmt.Sprintf("ORG%03d", n), nil
}

func (r *PostgresOrganizationRepository) scanOrganization(row *sql.Row) (*domain.Organization, error) {
	org := &domain.Organization{}

	err := row.Scan(
		&org.ID,
		&org.OrgCode,
		&org.Name,
		&org.AdminID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("organization: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}
