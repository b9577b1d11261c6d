package sqlite

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/domain/entity"
	"github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// ApprovalFactRepository implements port.ApprovalFactRepository
type ApprovalFactRepository struct {
	db *DB
}

// NewApprovalFactRepository creates a new approval fact repository
func NewApprovalFactRepository(db *DB) *ApprovalFactRepository {
	return &ApprovalFactRepository{db: db}
}

// Create inserts a fact; UNIQUE(voucher_id, stage) admits one winner per stage
func (r *ApprovalFactRepository) Create(ctx context.Context, f *entity.ApprovalFact) error {
	result, err := r.db.getExecutor(ctx).ExecContext(ctx, `
		INSERT INTO approval_facts (voucher_id, stage, actor_id, actor_role, decision, remarks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.VoucherID,
		f.Stage,
		f.ActorID,
		string(f.ActorRole),
		string(f.Decision),
		f.Remarks,
		f.CreatedAt.UTC(),
	)
	if err != nil {
		if !isUniqueViolation(err) {
			r.db.logger.Error("Failed to create approval fact",
				zap.String("voucher_id", f.VoucherID),
				zap.Int("stage", f.Stage),
				zap.Error(err))
		}
		return mapInsertError(err, fmt.Sprintf("stage %d decision", f.Stage))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	f.ID = id
	return nil
}

// ListByVoucher returns the voucher's facts ordered by stage
func (r *ApprovalFactRepository) ListByVoucher(ctx context.Context, voucherID string) ([]*entity.ApprovalFact, error) {
	rows, err := r.db.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, voucher_id, stage, actor_id, actor_role, decision, remarks, created_at
		FROM approval_facts
		WHERE voucher_id = ?
		ORDER BY stage ASC`, voucherID)
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
	db *DB
}

// NewQuorumReviewRepository creates a new quorum review repository
func NewQuorumReviewRepository(db *DB) *QuorumReviewRepository {
	return &QuorumReviewRepository{db: db}
}

// Create inserts a vote; UNIQUE(voucher_id, reviewer_id) rejects a second vote
func (r *QuorumReviewRepository) Create(ctx context.Context, q *entity.QuorumReview) error {
	result, err := r.db.getExecutor(ctx).ExecContext(ctx,
		`INSERT INTO quorum_reviews (voucher_id, reviewer_id, created_at) VALUES (?, ?, ?)`,
		q.VoucherID, q.ReviewerID, q.CreatedAt.UTC())
	if err != nil {
		return mapInsertError(err, "quorum vote")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	q.ID = id
	return nil
}

// HasVoted reports whether the reviewer already voted on the voucher
func (r *QuorumReviewRepository) HasVoted(ctx context.Context, voucherID, reviewerID string) (bool, error) {
	var exists int
	err := r.db.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM quorum_reviews WHERE voucher_id = ? AND reviewer_id = ?)`,
		voucherID, reviewerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check quorum vote: %w", err)
	}
	return exists == 1, nil
}

// Count returns the number of distinct reviewers who voted
func (r *QuorumReviewRepository) Count(ctx context.Context, voucherID string) (int, error) {
	var n int
	err := r.db.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT reviewer_id) FROM quorum_reviews WHERE voucher_id = ?`, voucherID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count quorum votes: %w", err)
	}
	return n, nil
}

// ListByVoucher returns votes in the order they were cast
func (r *QuorumReviewRepository) ListByVoucher(ctx context.Context, voucherID string) ([]*entity.QuorumReview, error) {
	rows, err := r.db.getExecutor(ctx).QueryContext(ctx,
		`SELECT id, voucher_id, reviewer_id, created_at FROM quorum_reviews WHERE voucher_id = ? ORDER BY id ASC`,
		voucherID)
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

var (
	_ port.ApprovalFactRepository = (*ApprovalFactRepository)(nil)
	_ port.QuorumReviewRepository = (*QuorumReviewRepository)(nil)
)
