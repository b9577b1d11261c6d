package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appwf "github.com/garyjia/voucher-approval/internal/application/workflow"
	"github.com/garyjia/voucher-approval/internal/domain/entity"
	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
)

var admin = appwf.Actor{ID: "admin-1", Role: domainwf.RoleAdmin}

func TestSettingsService_QuorumThresholdDefault(t *testing.T) {
	svc := NewSettingsService(&mockSettingsRepo{}, &mockAuditRepo{}, &mockTxManager{}, nil, &mockLogger{}, 3)

	n, err := svc.QuorumThreshold(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSettingsService_UpdateQuorumThreshold(t *testing.T) {
	tests := []struct {
		name    string
		actor   appwf.Actor
		value   int
		wantErr error
	}{
		{name: "lower bound", actor: admin, value: 1},
		{name: "upper bound", actor: admin, value: 10},
		{name: "zero", actor: admin, value: 0, wantErr: domainwf.ErrConfiguration},
		{name: "above range", actor: admin, value: 11, wantErr: domainwf.ErrConfiguration},
		{name: "negative", actor: admin, value: -2, wantErr: domainwf.ErrConfiguration},
		{name: "not an administrator", actor: appwf.Actor{ID: "m-1", Role: domainwf.RoleMayor}, value: 4, wantErr: domainwf.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := &mockSettingsRepo{}
			audit := &mockAuditRepo{}
			d := &mockDispatcher{}
			svc := NewSettingsService(settings, audit, &mockTxManager{}, d, &mockLogger{}, 3)

			n, err := svc.UpdateQuorumThreshold(context.Background(), tt.actor, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, settings.values, "invalid values are never stored or clamped")
				assert.Empty(t, audit.events)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.value, n)

			current, err := svc.QuorumThreshold(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.value, current)

			require.Len(t, audit.events, 1)
			assert.Equal(t, entity.SettingsAuditID, audit.events[0].VoucherID)
			assert.Equal(t, entity.ActionQuorumThresholdUpdated, audit.events[0].Action)
			assert.Equal(t, `{"quorum_threshold":3}`, audit.events[0].Before)
			assert.Len(t, d.events, 1)
		})
	}
}

func TestSettingsService_UpdateStorageFailure(t *testing.T) {
	settings := &mockSettingsRepo{setErr: errors.New("readonly database")}
	svc := NewSettingsService(settings, &mockAuditRepo{}, &mockTxManager{}, nil, &mockLogger{}, 3)

	_, err := svc.UpdateQuorumThreshold(context.Background(), admin, 5)
	assert.ErrorIs(t, err, domainwf.ErrTransient)
}
