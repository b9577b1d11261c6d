package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/domain/entity"
	"github.com/garyjia/voucher-approval/internal/domain/workflow"
)

const voucherColumns = `id, owner_id, origin_role, variant, status, payee, particulars,
	amount_cents, submitted_at, created_at, updated_at`

// VoucherRepository implements port.VoucherRepository
type VoucherRepository struct {
	s *Store
}

func (r *VoucherRepository) Create(ctx context.Context, v *entity.Voucher) error {
	_, err := r.s.querier(ctx).Exec(ctx,
		`INSERT INTO vouchers (`+voucherColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		v.ID, v.OwnerID, string(v.OriginRole), string(v.Variant), string(v.Status),
		v.Payee, v.Particulars, v.AmountCents, v.SubmittedAt, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		r.s.logger.Error("Failed to create voucher", zap.String("voucher_id", v.ID), zap.Error(err))
		return mapInsertError(err, "voucher")
	}
	return nil
}

func (r *VoucherRepository) GetByID(ctx context.Context, id string) (*entity.Voucher, error) {
	return r.get(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, id)
}

// GetForUpdate locks the voucher row until the enclosing transaction ends
func (r *VoucherRepository) GetForUpdate(ctx context.Context, id string) (*entity.Voucher, error) {
	return r.get(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id = $1 FOR UPDATE`, id)
}

func (r *VoucherRepository) get(ctx context.Context, query, id string) (*entity.Voucher, error) {
	v, err := scanVoucher(r.s.querier(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", workflow.ErrVoucherNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return v, nil
}

func (r *VoucherRepository) CompareAndSetStatus(ctx context.Context, id string, from, to workflow.State) (bool, error) {
	now := time.Now().UTC()
	tag, err := r.s.querier(ctx).Exec(ctx, `
		UPDATE vouchers
		SET status = $1,
			updated_at = $2,
			submitted_at = CASE WHEN $5 THEN $2 ELSE submitted_at END
		WHERE id = $3 AND status = $4`,
		string(to), now, id, string(from),
		from == workflow.StateDraft && to == workflow.StatePending)
	if err != nil {
		r.s.logger.Error("Failed to update voucher status", zap.String("voucher_id", id), zap.Error(err))
		return false, fmt.Errorf("failed to update voucher status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *VoucherRepository) ListByStatus(ctx context.Context, status workflow.State, limit, offset int) ([]*entity.Voucher, error) {
	rows, err := r.s.querier(ctx).Query(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE status = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
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

func scanVoucher(row pgx.Row) (*entity.Voucher, error) {
	var (
		v                          entity.Voucher
		originRole, variant, state string
	)
	if err := row.Scan(&v.ID, &v.OwnerID, &originRole, &variant, &state,
		&v.Payee, &v.Particulars, &v.AmountCents, &v.SubmittedAt, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.OriginRole = workflow.Role(originRole)
	v.Variant = workflow.Variant(variant)
	v.Status = workflow.State(state)
	return &v, nil
}

// ApprovalFactRepository implements port.ApprovalFactRepository
type ApprovalFactRepository struct {
	s *Store
}

func (r *ApprovalFactRepository) Create(ctx context.Context, f *entity.ApprovalFact) error {
	err := r.s.querier(ctx).QueryRow(ctx, `
		INSERT INTO approval_facts (voucher_id, stage, actor_id, actor_role, decision, remarks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		f.VoucherID, f.Stage, f.ActorID, string(f.ActorRole), string(f.Decision), f.Remarks, f.CreatedAt).
		Scan(&f.ID)
	if err != nil {
		return mapInsertError(err, fmt.Sprintf("stage %d decision", f.Stage))
	}
	return nil
}

func (r *ApprovalFactRepository) ListByVoucher(ctx context.Context, voucherID string) ([]*entity.ApprovalFact, error) {
	rows, err := r.s.querier(ctx).Query(ctx, `
		SELECT id, voucher_id, stage, actor_id, actor_role, decision, remarks, created_at
		FROM approval_facts WHERE voucher_id = $1 ORDER BY stage`, voucherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval facts: %w", err)
	}
	defer rows.Close()

	var out []*entity.ApprovalFact
	for rows.Next() {
		var (
			f              entity.ApprovalFact
			role, decision string
		)
		if err := rows.Scan(&f.ID, &f.VoucherID, &f.Stage, &f.ActorID, &role, &decision, &f.Remarks, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval fact: %w", err)
		}
		f.ActorRole = workflow.Role(role)
		f.Decision = workflow.Decision(decision)
		out = append(out, &f)
	}
	return out, rows.Err()
}

// QuorumReviewRepository implements port.QuorumReviewRepository
type QuorumReviewRepository struct {
	s *Store
}

func (r *QuorumReviewRepository) Create(ctx context.Context, q *entity.QuorumReview) error {
	err := r.s.querier(ctx).QueryRow(ctx,
		`INSERT INTO quorum_reviews (voucher_id, reviewer_id, created_at) VALUES ($1, $2, $3) RETURNING id`,
		q.VoucherID, q.ReviewerID, q.CreatedAt).Scan(&q.ID)
	if err != nil {
		return mapInsertError(err, "quorum vote")
	}
	return nil
}

func (r *QuorumReviewRepository) HasVoted(ctx context.Context, voucherID, reviewerID string) (bool, error) {
	var exists bool
	err := r.s.querier(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quorum_reviews WHERE voucher_id = $1 AND reviewer_id = $2)`,
		voucherID, reviewerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check quorum vote: %w", err)
	}
	return exists, nil
}

func (r *QuorumReviewRepository) Count(ctx context.Context, voucherID string) (int, error) {
	var n int
	err := r.s.querier(ctx).QueryRow(ctx,
		`SELECT COUNT(DISTINCT reviewer_id) FROM quorum_reviews WHERE voucher_id = $1`, voucherID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count quorum votes: %w", err)
	}
	return n, nil
}

func (r *QuorumReviewRepository) ListByVoucher(ctx context.Context, voucherID string) ([]*entity.QuorumReview, error) {
	rows, err := r.s.querier(ctx).Query(ctx,
		`SELECT id, voucher_id, reviewer_id, created_at FROM quorum_reviews WHERE voucher_id = $1 ORDER BY id`, voucherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quorum votes: %w", err)
	}
	defer rows.Close()

	var out []*entity.QuorumReview
	for rows.Next() {
		var q entity.QuorumReview
		if err := rows.Scan(&q.ID, &q.VoucherID, &q.ReviewerID, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quorum vote: %w", err)
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

// AuditEventRepository implements port.AuditEventRepository
type AuditEventRepository struct {
	s *Store
}

func (r *AuditEventRepository) Append(ctx context.Context, e *entity.AuditEvent) error {
	err := r.s.querier(ctx).QueryRow(ctx, `
		INSERT INTO audit_events (
			voucher_id, actor_id, actor_role, action, stage,
			before_state, after_state, remarks, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		e.VoucherID, e.ActorID, e.ActorRole, e.Action, e.Stage,
		e.Before, e.After, e.Remarks, e.Timestamp).Scan(&e.ID)
	if err != nil {
		r.s.logger.Error("Failed to append audit event", zap.String("voucher_id", e.VoucherID), zap.Error(err))
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

func (r *AuditEventRepository) ListByVoucher(ctx context.Context, voucherID string) ([]*entity.AuditEvent, error) {
	rows, err := r.s.querier(ctx).Query(ctx, `
		SELECT id, voucher_id, actor_id, actor_role, action, stage,
			before_state, after_state, remarks, created_at
		FROM audit_events WHERE voucher_id = $1 ORDER BY id`, voucherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var out []*entity.AuditEvent
	for rows.Next() {
		var e entity.AuditEvent
		if err := rows.Scan(&e.ID, &e.VoucherID, &e.ActorID, &e.ActorRole, &e.Action, &e.Stage,
			&e.Before, &e.After, &e.Remarks, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// SettingsRepository implements port.SettingsRepository
type SettingsRepository struct {
	s *Store
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (*entity.SystemConfig, bool, error) {
	var cfg entity.SystemConfig
	err := r.s.querier(ctx).QueryRow(ctx,
		`SELECT key, value, description, updated_at FROM system_config WHERE key = $1`, key).
		Scan(&cfg.Key, &cfg.Value, &cfg.Description, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get config %s: %w", key, err)
	}
	return &cfg, true, nil
}

func (r *SettingsRepository) Set(ctx context.Context, cfg *entity.SystemConfig) error {
	_, err := r.s.querier(ctx).Exec(ctx, `
		INSERT INTO system_config (key, value, description, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			description = EXCLUDED.description,
			updated_at = EXCLUDED.updated_at`,
		cfg.Key, cfg.Value, cfg.Description, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to set config %s: %w", cfg.Key, err)
	}
	return nil
}

var (
	_ port.VoucherRepository      = (*VoucherRepository)(nil)
	_ port.ApprovalFactRepository = (*ApprovalFactRepository)(nil)
	_ port.QuorumReviewRepository = (*QuorumReviewRepository)(nil)
	_ port.AuditEventRepository   = (*AuditEventRepository)(nil)
	_ port.SettingsRepository     = (*SettingsRepository)(nil)
)
