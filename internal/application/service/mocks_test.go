package service

import (
	"context"
	"sync"

	"github.com/garyjia/voucher-approval/internal/application/dispatcher"
	"github.com/garyjia/voucher-approval/internal/domain/entity"
	"github.com/garyjia/voucher-approval/internal/domain/event"
	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
)

type mockVoucherRepo struct {
	createFunc       func(ctx context.Context, v *entity.Voucher) error
	getByIDFunc      func(ctx context.Context, id string) (*entity.Voucher, error)
	getForUpdateFunc func(ctx context.Context, id string) (*entity.Voucher, error)
	casFunc          func(ctx context.Context, id string, from, to domainwf.State) (bool, error)
	listFunc         func(ctx context.Context, status domainwf.State, limit, offset int) ([]*entity.Voucher, error)
}

func (m *mockVoucherRepo) Create(ctx context.Context, v *entity.Voucher) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, v)
	}
	return nil
}

func (m *mockVoucherRepo) GetByID(ctx context.Context, id string) (*entity.Voucher, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, domainwf.ErrVoucherNotFound
}

func (m *mockVoucherRepo) GetForUpdate(ctx context.Context, id string) (*entity.Voucher, error) {
	if m.getForUpdateFunc != nil {
		return m.getForUpdateFunc(ctx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *mockVoucherRepo) CompareAndSetStatus(ctx context.Context, id string, from, to domainwf.State) (bool, error) {
	if m.casFunc != nil {
		return m.casFunc(ctx, id, from, to)
	}
	return true, nil
}

func (m *mockVoucherRepo) ListByStatus(ctx context.Context, status domainwf.State, limit, offset int) ([]*entity.Voucher, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, status, limit, offset)
	}
	return []*entity.Voucher{}, nil
}

type mockAuditRepo struct {
	appendFunc func(ctx context.Context, e *entity.AuditEvent) error
	events     []*entity.AuditEvent
}

func (m *mockAuditRepo) Append(ctx context.Context, e *entity.AuditEvent) error {
	if m.appendFunc != nil {
		if err := m.appendFunc(ctx, e); err != nil {
			return err
		}
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockAuditRepo) ListByVoucher(ctx context.Context, voucherID string) ([]*entity.AuditEvent, error) {
	return m.events, nil
}

type mockSettingsRepo struct {
	values map[string]*entity.SystemConfig
	setErr error
}

func (m *mockSettingsRepo) Get(ctx context.Context, key string) (*entity.SystemConfig, bool, error) {
	cfg, ok := m.values[key]
	return cfg, ok, nil
}

func (m *mockSettingsRepo) Set(ctx context.Context, cfg *entity.SystemConfig) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = make(map[string]*entity.SystemConfig)
	}
	m.values[cfg.Key] = cfg
	return nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) SubscribeNamed(string, dispatcher.Handler, ...event.Type) {}
func (m *mockDispatcher) Unsubscribe(string)                                        {}
func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.DispatchAsync(ctx, evt)
	return nil
}
func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}
func (m *mockDispatcher) ListHandlers(event.Type) []dispatcher.HandlerInfo { return nil }
func (m *mockDispatcher) Close() error                                     { return nil }

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
