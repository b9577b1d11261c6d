package port

import (
	"context"

	"github.com/garyjia/voucher-approval/internal/domain/entity"
	"github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// VoucherRepository defines persistence operations for Voucher
type VoucherRepository interface {
	Create(ctx context.Context, voucher *entity.Voucher) error
	// GetByID returns workflow.ErrVoucherNotFound when no row matches
	GetByID(ctx context.Context, id string) (*entity.Voucher, error)
	// GetForUpdate reads the voucher and locks it for the enclosing transaction
	GetForUpdate(ctx context.Context, id string) (*entity.Voucher, error)
	// CompareAndSetStatus moves the voucher from one status to another.
	// It reports false when the stored status is no longer from.
	CompareAndSetStatus(ctx context.Context, id string, from, to workflow.State) (bool, error)
	ListByStatus(ctx context.Context, status workflow.State, limit, offset int) ([]*entity.Voucher, error)
}

// ApprovalFactRepository defines persistence operations for ApprovalFact
type ApprovalFactRepository interface {
	// Create returns workflow.ErrDuplicateAction if the stage already has a fact
	Create(ctx context.Context, fact *entity.ApprovalFact) error
	ListByVoucher(ctx context.Context, voucherID string) ([]*entity.ApprovalFact, error)
}

// QuorumReviewRepository defines persistence operations for QuorumReview
type QuorumReviewRepository interface {
	// Create returns workflow.ErrDuplicateAction if the reviewer already voted
	Create(ctx context.Context, review *entity.QuorumReview) error
	HasVoted(ctx context.Context, voucherID, reviewerID string) (bool, error)
	Count(ctx context.Context, voucherID string) (int, error)
	ListByVoucher(ctx context.Context, voucherID string) ([]*entity.QuorumReview, error)
}

// AuditEventRepository defines the append-only audit log
type AuditEventRepository interface {
	Append(ctx context.Context, evt *entity.AuditEvent) error
	ListByVoucher(ctx context.Context, voucherID string) ([]*entity.AuditEvent, error)
}

// SettingsRepository defines persistence operations for SystemConfig
type SettingsRepository interface {
	// Get reports false when the key has never been set
	Get(ctx context.Context, key string) (*entity.SystemConfig, bool, error)
	Set(ctx context.Context, cfg *entity.SystemConfig) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repositories groups the ports one storage backend provides
type Repositories struct {
	Vouchers  VoucherRepository
	Facts     ApprovalFactRepository
	Reviews   QuorumReviewRepository
	Audit     AuditEventRepository
	Settings  SettingsRepository
	TxManager TransactionManager
}
