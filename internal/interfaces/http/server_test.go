package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-approval/internal/application/service"
	"github.com/garyjia/voucher-approval/internal/application/workflow"
	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
	"github.com/garyjia/voucher-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/voucher-approval/migrations"
	"github.com/garyjia/voucher-approval/pkg/database"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	conn, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "http.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, database.NewMigrator(conn, logger).Run(context.Background(), migrations.SQLite))

	repos := sqlite.NewDB(conn.DB, logger).Repositories()
	engine := workflow.NewEngine(repos, domainwf.DefaultCatalog())
	vouchers := service.NewVoucherService(repos.Vouchers, repos.Audit, repos.TxManager, nil, nopLogger{})
	settings := service.NewSettingsService(repos.Settings, repos.Audit, repos.TxManager, nil, nopLogger{}, domainwf.DefaultQuorumThreshold)

	return NewServer(DefaultServerConfig(), engine, vouchers, settings, nopLogger{})
}

type call struct {
	method, path string
	role         domainwf.Role
	actorID      string
	body         interface{}
}

func do(t *testing.T, s *Server, c call) (int, Response) {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.role != "" {
		id := c.actorID
		if id == "" {
			id = "user-" + string(c.role)
		}
		req.Header.Set(HeaderActorID, id)
		req.Header.Set(HeaderActorRole, string(c.role))
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func createSubmitted(t *testing.T, s *Server, role domainwf.Role) string {
	t.Helper()
	code, resp := do(t, s, call{method: http.MethodPost, path: "/api/vouchers", role: role, body: map[string]interface{}{
		"payee": "Acme Supplies", "particulars": "Office chairs", "amount_cents": 4500000,
	}})
	require.Equal(t, http.StatusCreated, code, resp.Error)
	id := resp.Data.(map[string]interface{})["id"].(string)

	code, resp = do(t, s, call{method: http.MethodPost, path: "/api/vouchers/" + id + "/submit", role: role})
	require.Equal(t, http.StatusOK, code, resp.Error)
	return id
}

func TestServer_HealthCheck(t *testing.T) {
	s := newTestServer(t)
	code, resp := do(t, s, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
}

func TestServer_RequestID(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
}

func TestServer_GSOWorkflow(t *testing.T) {
	s := newTestServer(t)
	id := createSubmitted(t, s, domainwf.RoleGSO)
	base := "/api/vouchers/" + id

	act := func(role domainwf.Role) (int, Response) {
		return do(t, s, call{method: http.MethodPost, path: base + "/actions", role: role,
			body: ActionRequest{Decision: domainwf.DecisionApproved}})
	}

	code, _ := act(domainwf.RoleDepartmentHead)
	require.Equal(t, http.StatusOK, code)
	code, _ = act(domainwf.RoleMayor)
	require.Equal(t, http.StatusOK, code)

	code, resp := act(domainwf.RoleBudget)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(domainwf.ReasonPrerequisiteUnsatisfied), resp.Reason)
	assert.Equal(t, 3, resp.Stage)

	code, _ = act(domainwf.RoleBACMember)
	assert.Equal(t, http.StatusConflict, code, "quorum stage takes votes")

	for i := 1; i <= 3; i++ {
		code, resp := do(t, s, call{method: http.MethodPost, path: base + "/quorum-votes",
			role: domainwf.RoleBACMember, actorID: fmt.Sprintf("bac-%d", i)})
		require.Equal(t, http.StatusOK, code, resp.Error)
		assert.Equal(t, string(domainwf.VoteAccepted), resp.Data.(map[string]interface{})["result"])
	}

	code, resp = do(t, s, call{method: http.MethodPost, path: base + "/quorum-votes",
		role: domainwf.RoleBACMember, actorID: "bac-1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(domainwf.VoteDuplicate), resp.Data.(map[string]interface{})["result"])

	for _, role := range []domainwf.Role{domainwf.RoleBudget, domainwf.RoleAccounting, domainwf.RoleTreasury} {
		code, resp := act(role)
		require.Equal(t, http.StatusOK, code, resp.Error)
	}

	code, resp = do(t, s, call{method: http.MethodGet, path: base + "/progress"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(domainwf.StateReleased), resp.Data.(map[string]interface{})["status"])

	code, resp = do(t, s, call{method: http.MethodGet, path: base + "/audit"})
	require.Equal(t, http.StatusOK, code)
	// CREATED, SUBMITTED, five stage approvals and three votes
	assert.Len(t, resp.Data.([]interface{}), 10)
}

func TestServer_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	id := createSubmitted(t, s, domainwf.RoleRequester)
	base := "/api/vouchers/" + id

	tests := []struct {
		name string
		call call
		want int
	}{
		{"missing actor", call{method: http.MethodPost, path: base + "/actions", body: ActionRequest{Decision: domainwf.DecisionApproved}}, http.StatusUnauthorized},
		{"unknown role", call{method: http.MethodPost, path: base + "/actions", role: "JANITOR", body: ActionRequest{Decision: domainwf.DecisionApproved}}, http.StatusBadRequest},
		{"role without a seat", call{method: http.MethodPost, path: base + "/actions", role: domainwf.RoleBACMember, body: ActionRequest{Decision: domainwf.DecisionApproved}}, http.StatusForbidden},
		{"stage out of order", call{method: http.MethodPost, path: base + "/actions", role: domainwf.RoleBudget, body: ActionRequest{Decision: domainwf.DecisionApproved}}, http.StatusConflict},
		{"invalid decision", call{method: http.MethodPost, path: base + "/actions", role: domainwf.RoleDepartmentHead, body: ActionRequest{Decision: "MAYBE"}}, http.StatusBadRequest},
		{"unknown voucher", call{method: http.MethodGet, path: "/api/vouchers/missing/progress"}, http.StatusNotFound},
		{"cancel by non-admin", call{method: http.MethodPost, path: base + "/cancel", role: domainwf.RoleMayor}, http.StatusForbidden},
		{"threshold out of range", call{method: http.MethodPut, path: "/api/settings/quorum-threshold", role: domainwf.RoleAdmin, body: ThresholdRequest{Value: 42}}, http.StatusBadRequest},
		{"threshold by non-admin", call{method: http.MethodPut, path: "/api/settings/quorum-threshold", role: domainwf.RoleMayor, body: ThresholdRequest{Value: 4}}, http.StatusForbidden},
		{"invalid status filter", call{method: http.MethodGet, path: "/api/vouchers?status=LOST"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := do(t, s, tt.call)
			assert.Equal(t, tt.want, code, resp.Error)
			assert.False(t, resp.Success)
		})
	}
}

func TestServer_CancelAndSettings(t *testing.T) {
	s := newTestServer(t)
	id := createSubmitted(t, s, domainwf.RoleHR)

	code, resp := do(t, s, call{method: http.MethodPost, path: "/api/vouchers/" + id + "/cancel",
		role: domainwf.RoleAdmin, body: CancelRequest{Reason: "duplicate request"}})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, string(domainwf.StateCancelled), resp.Data.(map[string]interface{})["status"])

	code, resp = do(t, s, call{method: http.MethodPost, path: "/api/vouchers/" + id + "/actions",
		role: domainwf.RoleDepartmentHead, body: ActionRequest{Decision: domainwf.DecisionApproved}})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(domainwf.ReasonWrongLifecycleStatus), resp.Reason)

	code, resp = do(t, s, call{method: http.MethodPut, path: "/api/settings/quorum-threshold",
		role: domainwf.RoleAdmin, body: ThresholdRequest{Value: 5}})
	require.Equal(t, http.StatusOK, code, resp.Error)

	code, resp = do(t, s, call{method: http.MethodGet, path: "/api/settings/quorum-threshold"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(5), resp.Data.(map[string]interface{})["value"])

	code, resp = do(t, s, call{method: http.MethodGet, path: "/api/vouchers?status=CANCELLED"})
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Data.([]interface{}), 1)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domainwf.ErrUnauthorized, http.StatusForbidden},
		{&domainwf.BlockedError{Reason: domainwf.ReasonDuplicateAction, Stage: 2}, http.StatusConflict},
		{&domainwf.BlockedError{Reason: domainwf.ReasonPrerequisiteUnsatisfied, Stage: 1}, http.StatusConflict},
		{&domainwf.BlockedError{Reason: domainwf.ReasonWrongLifecycleStatus}, http.StatusConflict},
		{domainwf.ErrQuorumVoteRequired, http.StatusConflict},
		{domainwf.ErrConfiguration, http.StatusBadRequest},
		{fmt.Errorf("%w: payee", service.ErrInvalidInput), http.StatusBadRequest},
		{domainwf.ErrVoucherNotFound, http.StatusNotFound},
		{domainwf.Classify(errors.New("disk I/O error")), http.StatusServiceUnavailable},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
