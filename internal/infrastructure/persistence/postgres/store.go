// Package postgres stores vouchers in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/domain/workflow"
	"github.com/garyjia/voucher-approval/migrations"
	"github.com/garyjia/voucher-approval/pkg/database"
)

type contextKey string

const txKey contextKey = "pgx-tx"

// Store owns the pool and implements port.TransactionManager
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPool constructs a pgx connection pool from a connection string
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, fmt.Errorf("postgres: empty connection string")
	}
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// NewStore wraps an open pool
func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Close releases the pool
func (s *Store) Close() {
	s.pool.Close()
}

// WithTransaction runs fn in a READ COMMITTED transaction carried in ctx.
// Vouchers are serialized with SELECT ... FOR UPDATE.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		s.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Migrate applies the embedded PostgreSQL schema
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	all, err := database.LoadMigrations(migrations.Postgres)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	for _, m := range all {
		err := s.WithTransaction(ctx, func(ctx context.Context) error {
			q := s.querier(ctx)
			var applied bool
			if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version).Scan(&applied); err != nil {
				return err
			}
			if applied {
				return nil
			}
			s.logger.Info("Applying migration", zap.Int("version", m.Version), zap.String("name", m.Name))
			if _, err := q.Exec(ctx, m.SQL); err != nil {
				return fmt.Errorf("failed to execute migration SQL: %w", err)
			}
			_, err := q.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// Repositories builds every port backed by this store
func (s *Store) Repositories() port.Repositories {
	return port.Repositories{
		Vouchers:  &VoucherRepository{s},
		Facts:     &ApprovalFactRepository{s},
		Reviews:   &QuorumReviewRepository{s},
		Audit:     &AuditEventRepository{s},
		Settings:  &SettingsRepository{s},
		TxManager: s,
	}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) querier(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func mapInsertError(err error, what string) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s already recorded", workflow.ErrDuplicateAction, what)
	}
	return fmt.Errorf("failed to insert %s: %w", what, err)
}

var _ port.TransactionManager = (*Store)(nil)
