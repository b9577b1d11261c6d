package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/domain/entity"
	"github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// VoucherRepository implements port.VoucherRepository
type VoucherRepository struct {
	db *DB
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *DB) *VoucherRepository {
	return &VoucherRepository{db: db}
}

const voucherColumns = `id, owner_id, origin_role, variant, status, payee, particulars,
	amount_cents, submitted_at, created_at, updated_at`

// Create inserts a new voucher
func (r *VoucherRepository) Create(ctx context.Context, v *entity.Voucher) error {
	query := `INSERT INTO vouchers (` + voucherColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.getExecutor(ctx).ExecContext(ctx, query,
		v.ID,
		v.OwnerID,
		string(v.OriginRole),
		string(v.Variant),
		string(v.Status),
		v.Payee,
		v.Particulars,
		v.AmountCents,
		v.SubmittedAt,
		v.CreatedAt.UTC(),
		v.UpdatedAt.UTC(),
	)
	if err != nil {
		r.db.logger.Error("Failed to create voucher", zap.String("voucher_id", v.ID), zap.Error(err))
		return mapInsertError(err, "voucher")
	}
	return nil
}

// GetByID retrieves a voucher by ID
func (r *VoucherRepository) GetByID(ctx context.Context, id string) (*entity.Voucher, error) {
	row := r.db.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE id = ?`, id)

	v, err := scanVoucher(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", workflow.ErrVoucherNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return v, nil
}

// GetForUpdate reads the voucher inside the current transaction.
// Transactions begin IMMEDIATE, so the write lock is already held.
func (r *VoucherRepository) GetForUpdate(ctx context.Context, id string) (*entity.Voucher, error) {
	return r.GetByID(ctx, id)
}

// CompareAndSetStatus updates the status only if it still equals from
func (r *VoucherRepository) CompareAndSetStatus(ctx context.Context, id string, from, to workflow.State) (bool, error) {
	now := time.Now().UTC()
	query := `UPDATE vouchers SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	args := []interface{}{string(to), now, id, string(from)}
	if from == workflow.StateDraft && to == workflow.StatePending {
		query = `UPDATE vouchers SET status = ?, updated_at = ?, submitted_at = ? WHERE id = ? AND status = ?`
		args = []interface{}{string(to), now, now, id, string(from)}
	}

	result, err := r.db.getExecutor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.db.logger.Error("Failed to update voucher status",
			zap.String("voucher_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
		return false, fmt.Errorf("failed to update voucher status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// ListByStatus returns vouchers in status, oldest first
func (r *VoucherRepository) ListByStatus(ctx context.Context, status workflow.State, limit, offset int) ([]*entity.Voucher, error) {
	rows, err := r.db.getExecutor(ctx).QueryContext(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`,
		string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	defer rows.Close()

	var out []*entity.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanVoucher(s scanner) (*entity.Voucher, error) {
	var (
		v                          entity.Voucher
		originRole, variant, state string
		submitted                  sql.NullTime
	)
	err := s.Scan(
		&v.ID,
		&v.OwnerID,
		&originRole,
		&variant,
		&state,
		&v.Payee,
		&v.Particulars,
		&v.AmountCents,
		&submitted,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.OriginRole = workflow.Role(originRole)
	v.Variant = workflow.Variant(variant)
	v.Status = workflow.State(state)
	if submitted.Valid {
		t := submitted.Time
		v.SubmittedAt = &t
	}
	return &v, nil
}

var _ port.VoucherRepository = (*VoucherRepository)(nil)
