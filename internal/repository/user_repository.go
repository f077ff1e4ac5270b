package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/pkg/database"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique-constraint error
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     database.Queryer
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db database.Queryer, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, name, email, password_hash, role, status,
		COALESCE(organization_id::text, ''), org_code, hr_code, COALESCE(employee_id, ''),
		is_assigned, department, designation, date_of_joining,
		login_attempts, lock_until, created_at, updated_at`

// Create inserts a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, status, organization_id,
			org_code, hr_code, employee_id, is_assigned, department, designation,
			date_of_joining, login_attempts, lock_until)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, $8, $9, NULLIF($10, ''),
			$11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.OrganizationID,
		user.OrgCode,
		user.HRCode,
		user.EmployeeID,
		user.IsAssigned,
		user.Department,
		user.Designation,
		user.DateOfJoining,
		user.LoginAttempts,
		user.LockUntil,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// Update persists every mutable field of an existing user
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, role = $4, status = $5,
			organization_id = NULLIF($6, '')::uuid, org_code = $7, hr_code = $8,
			employee_id = NULLIF($9, ''), is_assigned = $10, department = $11,
			designation = $12, date_of_joining = $13, login_attempts = $14,
			lock_until = $15, updated_at = now()
		WHERE id = $16
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.OrganizationID,
		user.OrgCode,
		user.HRCode,
		user.EmployeeID,
		user.IsAssigned,
		user.Department,
		user.Designation,
		user.DateOfJoining,
		user.LoginAttempts,
		user.LockUntil,
		user.ID,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %s: %w", user.ID, domain.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("employee id %s already taken: %w", user.EmployeeID, domain.ErrConflict)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// EmployeeIDExists reports whether an employee ID is already assigned
func (r *PostgresUserRepository) EmployeeIDExists(ctx context.Context, employeeID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE employee_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, employeeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check employee id: %w", err)
	}
	return exists, nil
}

// CountEmployeesByYear counts users whose employee ID was issued in a year
func (r *PostgresUserRepository) CountEmployeesByYear(ctx context.Context, year int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE employee_id LIKE 'EMP' || $1::text || '%'`
	if err := r.db.QueryRowContext(ctx, query, year).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return count, nil
}

func (r *PostgresUserRepository) scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.OrganizationID,
		&user.OrgCode,
		&user.HRCode,
		&user.EmployeeID,
		&user.IsAssigned,
		&user.Department,
		&user.Designation,
		&user.DateOfJoining,
		&user.LoginAttempts,
		&user.LockUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
