package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/domain/entity"
)

// AuditEventRepository implements port.AuditEventRepository
type AuditEventRepository struct {
	db *DB
}

// NewAuditEventRepository creates a new audit event repository
func NewAuditEventRepository(db *DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

// Append adds an event; rows are never updated or deleted
func (r *AuditEventRepository) Append(ctx context.Context, e *entity.AuditEvent) error {
	result, err := r.db.getExecutor(ctx).ExecContext(ctx, `
		INSERT INTO audit_events (
			voucher_id, actor_id, actor_role, action, stage,
			before_state, after_state, remarks, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.VoucherID,
		e.ActorID,
		e.ActorRole,
		e.Action,
		e.Stage,
		e.Before,
		e.After,
		e.Remarks,
		e.Timestamp.UTC(),
	)
	if err != nil {
		r.db.logger.Error("Failed to append audit event", zap.String("voucher_id", e.VoucherID), zap.Error(err))
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// ListByVoucher returns a voucher's events in append order
func (r *AuditEventRepository) ListByVoucher(ctx context.Context, voucherID string) ([]*entity.AuditEvent, error) {
	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, voucher_id, actor_id, actor_role, action, stage,
			before_state, after_state, remarks, created_at
		FROM audit_events
		WHERE voucher_id = ?
		ORDER BY id ASC`, voucherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var out []*entity.AuditEvent
	for rows.Next() {
		var e entity.AuditEvent
		if err := rows.Scan(
			&e.ID, &e.VoucherID, &e.ActorID, &e.ActorRole, &e.Action, &e.Stage,
			&e.Before, &e.After, &e.Remarks, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// SettingsRepository implements port.SettingsRepository over system_config
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get reads one config key
func (r *SettingsRepository) Get(ctx context.Context, key string) (*entity.SystemConfig, bool, error) {
	var cfg entity.SystemConfig
	err := r.db.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT key, value, description, updated_at FROM system_config WHERE key = ?`, key).
		Scan(&cfg.Key, &cfg.Value, &cfg.Description, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get config %s: %w", key, err)
	}
	return &cfg, true, nil
}

// Set upserts one config key
func (r *SettingsRepository) Set(ctx context.Context, cfg *entity.SystemConfig) error {
	_, err := r.db.getExecutor(ctx).ExecContext(ctx, `
		INSERT INTO system_config (key, value, description, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		cfg.Key, cfg.Value, cfg.Description, cfg.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to set config %s: %w", cfg.Key, err)
	}
	return nil
}

var (
	_ port.AuditEventRepository = (*AuditEventRepository)(nil)
	_ port.SettingsRepository   = (*SettingsRepository)(nil)
)
