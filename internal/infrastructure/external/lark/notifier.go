package lark

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// Recipient is where a role's notifications are delivered
type Recipient struct {
	ReceiveIDType string
	ReceiveID     string
}

// RoleNotifier sends next-stage notifications to the chat or user configured per role
type RoleNotifier struct {
	sender     MessageSender
	recipients map[workflow.Role]Recipient
	logger     *zap.Logger
}

// NewRoleNotifier creates a notifier. Roles without a recipient are skipped.
func NewRoleNotifier(sender MessageSender, recipients map[workflow.Role]Recipient, logger *zap.Logger) *RoleNotifier {
	return &RoleNotifier{
		sender:     sender,
		recipients: recipients,
		logger:     logger,
	}
}

// Notify implements port.Notifier
func (n *RoleNotifier) Notify(ctx context.Context, note port.Notification) error {
	r, ok := n.recipients[note.Role]
	if !ok || r.ReceiveID == "" {
		n.logger.Warn("No Lark recipient configured for role",
			zap.String("role", string(note.Role)),
			zap.String("voucher_id", note.VoucherID))
		return nil
	}

	idType := r.ReceiveIDType
	if idType == "" {
		idType = ReceiveIDChatID
	}

	if _, err := n.sender.SendText(ctx, idType, r.ReceiveID, FormatNotification(note)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", note.Role, err)
	}
	return nil
}

// FormatNotification renders the message text for a notification
func FormatNotification(note port.Notification) string {
	if note.Quorum {
		return fmt.Sprintf("Voucher %s (%s) is awaiting committee review at stage %d: %s. Please cast your vote.",
			note.VoucherID, note.Variant, note.Stage, note.Label)
	}
	return fmt.Sprintf("Voucher %s (%s) is ready for your action at stage %d: %s.",
		note.VoucherID, note.Variant, note.Stage, note.Label)
}

// LogNotifier writes notifications to the log; used when Lark is disabled
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements port.Notifier
func (n *LogNotifier) Notify(ctx context.Context, note port.Notification) error {
	n.logger.Info("Next stage notification",
		zap.String("voucher_id", note.VoucherID),
		zap.String("variant", string(note.Variant)),
		zap.Int("stage", note.Stage),
		zap.String("role", string(note.Role)),
		zap.String("message", FormatNotification(note)))
	return nil
}

var (
	_ port.Notifier = (*RoleNotifier)(nil)
	_ port.Notifier = (*LogNotifier)(nil)
	_ MessageSender = (*Messenger)(nil)
)
