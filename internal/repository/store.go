package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/workorbit/workorbit/internal/domain"
	"github.com/workorbit/workorbit/pkg/database"
)

// PostgresStore bundles the hierarchy repositories over a single database
// handle and implements domain.Store.
type PostgresStore struct {
	db     *sql.DB
	users  *PostgresUserRepository
	orgs   *PostgresOrganizationRepository
	hrs    *PostgresHRManagerRepository
	reqs   *PostgresJoinRequestRepository
	logger *slog.Logger
}

// NewPostgresStore creates a store backed by the connection pool
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		db:     db,
		users:  NewPostgresUserRepository(db, logger),
		orgs:   NewPostgresOrganizationRepository(db, logger),
		hrs:    NewPostgresHRManagerRepository(db, logger),
		reqs:   NewPostgresJoinRequestRepository(db, logger),
		logger: logger,
	}
}

// Users returns the user repository
func (s *PostgresStore) Users() domain.UserRepository { return s.users }

// Organizations returns the organization repository
func (s *PostgresStore) Organizations() domain.OrganizationRepository { return s.orgs }

// HRManagers returns the HR manager repository
func (s *PostgresStore) HRManagers() domain.HRManagerRepository { return s.hrs }

// JoinRequests returns the join request repository
func (s *PostgresStore) JoinRequests() domain.JoinRequestRepository { return s.reqs }

// txStore is the transaction-scoped view handed to InTransaction callbacks.
// It satisfies domain.Store but refuses nesting.
type txStore struct {
	users *PostgresUserRepository
	orgs  *PostgresOrganizationRepository
	hrs   *PostgresHRManagerRepository
	reqs  *PostgresJoinRequestRepository
}

func newTxStore(q database.Queryer, logger *slog.Logger) *txStore {
	return &txStore{
		users: NewPostgresUserRepository(q, logger),
		orgs:  NewPostgresOrganizationRepository(q, logger),
		hrs:   NewPostgresHRManagerRepository(q, logger),
		reqs:  NewPostgresJoinRequestRepository(q, logger),
	}
}

func (s *txStore) Users() domain.UserRepository                 { return s.users }
func (s *txStore) Organizations() domain.OrganizationRepository { return s.orgs }
func (s *txStore) HRManagers() domain.HRManagerRepository       { return s.hrs }
func (s *txStore) JoinRequests() domain.JoinRequestRepository   { return s.reqs }

func (s *txStore) InTransaction(ctx context.Context, fn func(tx domain.Store) error) error {
	return fmt.Errorf("nested transactions are not supported")
}

// InTransaction runs fn against a transaction-scoped store. The transaction
// commits when fn returns nil and rolls back on error or panic, so no
// partial write of the request/user/hr-manager triple is ever observable.
func (s *PostgresStore) InTransaction(ctx context.Context, fn func(tx domain.Store) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newTxStore(tx, s.logger)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Error("rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		// Deferred unique checks surface at commit when two transactions
		// raced on the same generated identifier.
		if isUniqueViolation(err) {
			return fmt.Errorf("commit hit unique constraint: %w", domain.ErrConflict)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
