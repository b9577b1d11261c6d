package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/domain/workflow"
)

type sentMessage struct {
	idType, id, text string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendText(ctx context.Context, receiveIDType, receiveID, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMessage{receiveIDType, receiveID, text})
	return "om_1", nil
}

func TestRoleNotifier_Notify(t *testing.T) {
	sender := &fakeSender{}
	n := NewRoleNotifier(sender, map[workflow.Role]Recipient{
		workflow.RoleBudget:    {ReceiveID: "oc_budget"},
		workflow.RoleBACMember: {ReceiveIDType: ReceiveIDEmail, ReceiveID: "bac@example.com"},
	}, zap.NewNop())

	err := n.Notify(context.Background(), port.Notification{
		VoucherID: "v-1", Variant: workflow.VariantStandard, Stage: 3,
		Label: "Budget Certification", Role: workflow.RoleBudget,
	})
	require.NoError(t, err)

	err = n.Notify(context.Background(), port.Notification{
		VoucherID: "v-2", Variant: workflow.VariantGSO, Stage: 3,
		Label: "Bids and Awards Committee Review", Role: workflow.RoleBACMember, Quorum: true,
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, ReceiveIDChatID, sender.sent[0].idType)
	assert.Equal(t, "oc_budget", sender.sent[0].id)
	assert.Contains(t, sender.sent[0].text, "stage 3: Budget Certification")
	assert.Equal(t, ReceiveIDEmail, sender.sent[1].idType)
	assert.Contains(t, sender.sent[1].text, "cast your vote")
}

func TestRoleNotifier_UnconfiguredRoleIsSkipped(t *testing.T) {
	sender := &fakeSender{}
	n := NewRoleNotifier(sender, nil, zap.NewNop())

	err := n.Notify(context.Background(), port.Notification{VoucherID: "v-1", Role: workflow.RoleMayor})
	assert.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestRoleNotifier_SendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("API error: code=99991663")}
	n := NewRoleNotifier(sender, map[workflow.Role]Recipient{
		workflow.RoleMayor: {ReceiveID: "oc_mayor"},
	}, zap.NewNop())

	err := n.Notify(context.Background(), port.Notification{VoucherID: "v-1", Role: workflow.RoleMayor})
	assert.ErrorContains(t, err, "failed to notify MAYOR")
}

func TestTextContent_EscapesSpecialCharacters(t *testing.T) {
	content, err := textContent("line \"one\"\nline two")
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(content), &decoded))
	assert.Equal(t, "line \"one\"\nline two", decoded["text"])
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(zap.NewNop()).Notify(context.Background(), port.Notification{VoucherID: "v-1"}))
}
