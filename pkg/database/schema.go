package database

import (
	"context"
	"fmt"
	"log/slog"
)

// schema holds the bootstrap DDL. Every statement is idempotent so the
// service can run it on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		organization_id UUID,
		org_code TEXT NOT NULL DEFAULT '',
		hr_code TEXT NOT NULL DEFAULT '',
		employee_id TEXT,
		is_assigned BOOLEAN NOT NULL DEFAULT FALSE,
		department TEXT NOT NULL DEFAULT '',
		designation TEXT NOT NULL DEFAULT '',
		date_of_joining TIMESTAMPTZ,
		login_attempts INT NOT NULL DEFAULT 0,
		lock_until TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// employee_id stays NULL until approval; uniqueness only applies once set
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_employee_id ON users (employee_id) WHERE employee_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS organizations (
		id UUID PRIMARY KEY,
		org_code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		admin_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS hr_managers (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL UNIQUE REFERENCES users (id),
		organization_id UUID NOT NULL REFERENCES organizations (id),
		hr_code TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS join_requests (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users (id),
		request_type TEXT NOT NULL,
		requested_role TEXT NOT NULL,
		requested_org_code TEXT NOT NULL,
		requested_hr_code TEXT NOT NULL DEFAULT '',
		organization_id UUID NOT NULL REFERENCES organizations (id),
		status TEXT NOT NULL DEFAULT 'pending',
		approved_by UUID,
		responded_at TIMESTAMPTZ,
		response_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_join_requests_org_status ON join_requests (organization_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_join_requests_hr_code ON join_requests (requested_hr_code) WHERE status = 'pending'`,
	// org codes come from a sequence, not a row count, so concurrent admin
	// registrations cannot mint the same ORG number
	`CREATE SEQUENCE IF NOT EXISTS org_code_seq START 1`,
}

// Bootstrap creates the schema if it does not exist yet.
func (cp *ConnectionPool) Bootstrap(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema bootstrap failed: %w", err)
		}
	}
	cp.logger.Info("schema bootstrap complete", slog.Int("statements", len(schema)))
	return nil
}
