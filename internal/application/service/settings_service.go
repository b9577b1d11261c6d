package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/garyjia/voucher-approval/internal/application/dispatcher"
	"github.com/garyjia/voucher-approval/internal/application/port"
	appwf "github.com/garyjia/voucher-approval/internal/application/workflow"
	"github.com/garyjia/voucher-approval/internal/domain/entity"
	"github.com/garyjia/voucher-approval/internal/domain/event"
	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// SettingsService manages runtime workflow settings
type SettingsService interface {
	QuorumThreshold(ctx context.Context) (int, error)
	UpdateQuorumThreshold(ctx context.Context, actor appwf.Actor, n int) (int, error)
}

type settingsServiceImpl struct {
	settings         port.SettingsRepository
	audit            port.AuditEventRepository
	txManager        port.TransactionManager
	dispatcher       dispatcher.Dispatcher
	logger           Logger
	defaultThreshold int
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(
	settings port.SettingsRepository,
	audit port.AuditEventRepository,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	logger Logger,
	defaultThreshold int,
) SettingsService {
	return &settingsServiceImpl{
		settings:         settings,
		audit:            audit,
		txManager:        txManager,
		dispatcher:       d,
		logger:           logger,
		defaultThreshold: defaultThreshold,
	}
}

// QuorumThreshold returns the threshold in effect right now
func (s *settingsServiceImpl) QuorumThreshold(ctx context.Context) (int, error) {
	n, err := appwf.ReadQuorumThreshold(ctx, s.settings, s.defaultThreshold)
	if err != nil {
		s.logger.Error("Failed to read quorum threshold", "error", err)
		return 0, domainwf.Classify(err)
	}
	return n, nil
}

// UpdateQuorumThreshold stores a new threshold. Out-of-range values fail
// without being clamped. In-flight vouchers see the new value on their next check.
func (s *settingsServiceImpl) UpdateQuorumThreshold(ctx context.Context, actor appwf.Actor, n int) (int, error) {
	if actor.Role != domainwf.RoleAdmin {
		return 0, fmt.Errorf("%w: updating settings requires %s", domainwf.ErrUnauthorized, domainwf.RoleAdmin)
	}
	if err := domainwf.ValidateQuorumThreshold(n); err != nil {
		return 0, err
	}

	var previous int
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		prev, err := appwf.ReadQuorumThreshold(txCtx, s.settings, s.defaultThreshold)
		if err != nil {
			// A corrupt stored value is replaced rather than blocking the fix.
			prev = 0
		}
		previous = prev

		now := time.Now()
		if err := s.settings.Set(txCtx, &entity.SystemConfig{
			Key:         entity.ConfigKeyQuorumThreshold,
			Value:       strconv.Itoa(n),
			Description: "Distinct reviewer votes required at the quorum stage",
			UpdatedAt:   now,
		}); err != nil {
			return fmt.Errorf("store threshold: %w", err)
		}

		return s.audit.Append(txCtx, &entity.AuditEvent{
			VoucherID: entity.SettingsAuditID,
			ActorID:   actor.ID,
			ActorRole: string(actor.Role),
			Action:    entity.ActionQuorumThresholdUpdated,
			Before:    fmt.Sprintf(`{"quorum_threshold":%d}`, prev),
			After:     fmt.Sprintf(`{"quorum_threshold":%d}`, n),
			Timestamp: now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to update quorum threshold", "error", err, "value", n)
		return 0, domainwf.Classify(err)
	}

	s.logger.Info("Quorum threshold updated", "previous", previous, "value", n, "actor_id", actor.ID)
	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeSettingsUpdated, entity.SettingsAuditID, map[string]interface{}{
			event.PayloadActorID: actor.ID,
			"quorum_threshold":   n,
		}))
	}
	return n, nil
}
