package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/voucher-approval/internal/application/dispatcher"
	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/domain/event"
)

// NextStageNotifier tells the next responsible role that a voucher is waiting on them
type NextStageNotifier struct {
	engine   WorkflowEngine
	notifier port.Notifier
	logger   Logger
}

// NewNextStageNotifier creates a NextStageNotifier
func NewNextStageNotifier(engine WorkflowEngine, notifier port.Notifier, logger Logger) *NextStageNotifier {
	if logger == nil {
		logger = nopLogger{}
	}
	return &NextStageNotifier{engine: engine, notifier: notifier, logger: logger}
}

// Register subscribes the notifier to every event that can open a new stage
func (n *NextStageNotifier) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed("next-stage-notifier", n.Handle,
		event.TypeVoucherSubmitted,
		event.TypeStageDecided,
		event.TypeQuorumVoted,
	)
}

// Handle projects the voucher's progress and notifies the current stage's role.
// Votes that leave the quorum stage open send nothing.
func (n *NextStageNotifier) Handle(ctx context.Context, evt *event.Event) error {
	if !evt.Type.AdvancesWorkflow() {
		return nil
	}
	if evt.Type == event.TypeQuorumVoted && !evt.GetPayloadBool("reached") {
		return nil
	}

	progress, err := n.engine.GetProgress(ctx, evt.VoucherID)
	if err != nil {
		return fmt.Errorf("failed to project progress for %s: %w", evt.VoucherID, err)
	}

	current, ok := progress.Current()
	if !ok {
		return nil
	}

	notification := port.Notification{
		VoucherID: progress.VoucherID,
		Variant:   progress.Variant,
		Stage:     current.Stage,
		Label:     current.Label,
		Role:      current.Role,
		Quorum:    current.Quorum,
	}
	if err := n.notifier.Notify(ctx, notification); err != nil {
		return fmt.Errorf("failed to notify %s for voucher %s: %w", current.Role, evt.VoucherID, err)
	}

	n.logger.Info("Next stage notified",
		"voucher_id", evt.VoucherID,
		"stage", current.Stage,
		"role", current.Role,
	)
	return nil
}
