package port

import (
	"context"

	"github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// Notification tells the holder of a role that a stage is ready for them
type Notification struct {
	VoucherID string
	Variant   workflow.Variant
	Stage     int
	Label     string
	Role      workflow.Role
	Quorum    bool
}

// Notifier delivers next-stage notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
