package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/voucher-approval/internal/application/dispatcher"
	"github.com/garyjia/voucher-approval/internal/application/port"
	appwf "github.com/garyjia/voucher-approval/internal/application/workflow"
	"github.com/garyjia/voucher-approval/internal/domain/entity"
	"github.com/garyjia/voucher-approval/internal/domain/event"
	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
	"github.com/garyjia/voucher-approval/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateVoucherInput carries the requester-entered fields of a new voucher
type CreateVoucherInput struct {
	Payee       string `json:"payee"`
	Particulars string `json:"particulars"`
	AmountCents int64  `json:"amount_cents"`
}

// VoucherService manages the voucher record outside the approval chain
type VoucherService interface {
	Create(ctx context.Context, owner appwf.Actor, input CreateVoucherInput) (*entity.Voucher, error)
	Submit(ctx context.Context, voucherID string, actor appwf.Actor) (*entity.Voucher, error)
	Get(ctx context.Context, voucherID string) (*entity.Voucher, error)
	ListByStatus(ctx context.Context, status domainwf.State, limit, offset int) ([]*entity.Voucher, error)
}

type voucherServiceImpl struct {
	vouchers   port.VoucherRepository
	audit      port.AuditEventRepository
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(
	vouchers port.VoucherRepository,
	audit port.AuditEventRepository,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	logger Logger,
) VoucherService {
	return &voucherServiceImpl{
		vouchers:   vouchers,
		audit:      audit,
		txManager:  txManager,
		dispatcher: d,
		logger:     logger,
	}
}

// Create stores a DRAFT voucher whose variant follows the owner's role
func (s *voucherServiceImpl) Create(ctx context.Context, owner appwf.Actor, input CreateVoucherInput) (*entity.Voucher, error) {
	if owner.ID == "" || !owner.Role.IsValid() {
		return nil, fmt.Errorf("%w: unknown actor", domainwf.ErrUnauthorized)
	}

	input.Payee = utils.SanitizeString(input.Payee)
	input.Particulars = utils.SanitizeString(input.Particulars)
	if err := utils.ValidateRequiredText("payee", input.Payee); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := utils.ValidateRequiredText("particulars", input.Particulars); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := utils.ValidateAmountCents(input.AmountCents); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := time.Now()
	voucher := &entity.Voucher{
		ID:          uuid.NewString(),
		OwnerID:     owner.ID,
		OriginRole:  owner.Role,
		Variant:     domainwf.SelectVariant(owner.Role),
		Status:      domainwf.StateDraft,
		Payee:       input.Payee,
		Particulars: input.Particulars,
		AmountCents: input.AmountCents,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.vouchers.Create(txCtx, voucher); err != nil {
			return fmt.Errorf("create voucher: %w", err)
		}
		return s.audit.Append(txCtx, &entity.AuditEvent{
			VoucherID: voucher.ID,
			ActorID:   owner.ID,
			ActorRole: string(owner.Role),
			Action:    entity.ActionCreated,
			After:     statusJSON(voucher.Status),
			Timestamp: now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to create voucher", "error", err, "owner_id", owner.ID)
		return nil, domainwf.Classify(err)
	}

	s.logger.Info("Voucher created", "voucher_id", voucher.ID, "variant", voucher.Variant, "owner_id", owner.ID)
	s.publish(ctx, event.TypeVoucherCreated, voucher)
	return voucher, nil
}

// Submit moves the owner's DRAFT voucher to PENDING
func (s *voucherServiceImpl) Submit(ctx context.Context, voucherID string, actor appwf.Actor) (*entity.Voucher, error) {
	var submitted *entity.Voucher
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		v, err := s.vouchers.GetForUpdate(txCtx, voucherID)
		if err != nil {
			return err
		}
		if !v.IsOwnedBy(actor.ID) {
			return fmt.Errorf("%w: only the owner may submit", domainwf.ErrUnauthorized)
		}
		if err := domainwf.CanSubmit(txCtx, v.Status); err != nil {
			return err
		}

		ok, err := s.vouchers.CompareAndSetStatus(txCtx, v.ID, domainwf.StateDraft, domainwf.StatePending)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !ok {
			return &domainwf.BlockedError{Reason: domainwf.ReasonWrongLifecycleStatus, Status: v.Status}
		}

		if err := s.audit.Append(txCtx, &entity.AuditEvent{
			VoucherID: v.ID,
			ActorID:   actor.ID,
			ActorRole: string(actor.Role),
			Action:    entity.ActionSubmitted,
			Before:    statusJSON(domainwf.StateDraft),
			After:     statusJSON(domainwf.StatePending),
			Timestamp: time.Now(),
		}); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}

		v.Status = domainwf.StatePending
		submitted = v
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit voucher", "error", err, "voucher_id", voucherID)
		return nil, domainwf.Classify(err)
	}

	s.logger.Info("Voucher submitted", "voucher_id", voucherID)
	s.publish(ctx, event.TypeVoucherSubmitted, submitted)
	return submitted, nil
}

// Get retrieves a voucher by ID
func (s *voucherServiceImpl) Get(ctx context.Context, voucherID string) (*entity.Voucher, error) {
	v, err := s.vouchers.GetByID(ctx, voucherID)
	if err != nil {
		s.logger.Error("Failed to get voucher", "error", err, "voucher_id", voucherID)
		return nil, domainwf.Classify(err)
	}
	return v, nil
}

// ListByStatus retrieves a page of vouchers in one status
func (s *voucherServiceImpl) ListByStatus(ctx context.Context, status domainwf.State, limit, offset int) ([]*entity.Voucher, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	vouchers, err := s.vouchers.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list vouchers", "error", err, "status", status)
		return nil, domainwf.Classify(err)
	}
	return vouchers, nil
}

func (s *voucherServiceImpl) publish(ctx context.Context, t event.Type, v *entity.Voucher) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(t, v.ID, map[string]interface{}{
		event.PayloadStatus:  string(v.Status),
		event.PayloadVariant: string(v.Variant),
	}))
}

func statusJSON(s domainwf.State) string {
	b, _ := json.Marshal(map[string]domainwf.State{"status": s})
	return string(b)
}
