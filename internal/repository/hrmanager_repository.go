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

// PostgresHRManagerRepository implements domain.HRManagerRepository using PostgreSQL
type PostgresHRManagerRepository struct {
	db     database.Queryer
	logger *slog.Logger
}

// NewPostgresHRManagerRepository creates a new HR manager repository
func NewPostgresHRManagerRepository(db database.Queryer, logger *slog.Logger) *PostgresHRManagerRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresHRManagerRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new HR manager record
func (r *PostgresHRManagerRepository) Create(ctx context.Context, hr *domain.HRManager) error {
	query := `
		INSERT INTO hr_managers (id, user_id, organization_id, hr_code)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		hr.ID,
		hr.UserID,
		hr.OrganizationID,
		hr.HRCode,
	).Scan(&hr.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("hr code %s already assigned: %w", hr.HRCode, domain.ErrConflict)
		}
		r.logger.Error("failed to create hr manager",
			slog.String("hr_code", hr.HRCode),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create hr manager: %w", err)
	}

	return nil
}

// GetByUserID retrieves the HR manager record owned by a user
func (r *PostgresHRManagerRepository) GetByUserID(ctx context.Context, userID string) (*domain.HRManager, error) {
	query := `
		SELECT id, user_id, organization_id, hr_code, created_at
		FROM hr_managers
		WHERE user_id = $1
	`
	return r.scanHRManager(r.db.QueryRowContext(ctx, query, userID))
}

// GetByCode retrieves an HR manager by their HR###-ORG### code
func (r *PostgresHRManagerRepository) GetByCode(ctx context.Context, hrCode string) (*domain.HRManager, error) {
	query := `
		SELECT id, user_id, organization_id, hr_code, created_at
		FROM hr_managers
		WHERE hr_code = $1
	`
	return r.scanHRManager(r.db.QueryRowContext(ctx, query, hrCode))
}

// CountByOrganization counts HR managers within an organization
func (r *PostgresHRManagerRepository) CountByOrganization(ctx context.Context, organizationID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM hr_managers WHERE organization_id = $1`
	if err := r.db.QueryRowContext(ctx, query, organizationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count hr managers: %w", err)
	}
	return count, nil
}

func (r *PostgresHRManagerRepository) scanHRManager(row *sql.Row) (*domain.HRManager, error) {
	hr := &domain.HRManager{}

	err := row.Scan(
		&hr.ID,
		&hr.UserID,
		&hr.OrganizationID,
		&hr.HRCode,
		&hr.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("hr manager: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get hr manager: %w", err)
	}

	return hr, nil
}
