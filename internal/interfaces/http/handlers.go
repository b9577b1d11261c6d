package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/voucher-approval/internal/application/service"
	"github.com/garyjia/voucher-approval/internal/application/workflow"
	"github.com/garyjia/voucher-approval/internal/domain/entity"
	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// Actor identity headers, set by the upstream gateway
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine          workflow.WorkflowEngine
	voucherService  service.VoucherService
	settingsService service.SettingsService
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine workflow.WorkflowEngine,
	voucherService service.VoucherService,
	settingsService service.SettingsService,
	logger Logger,
) *Handlers {
	return &Handlers{
		engine:          engine,
		voucherService:  voucherService,
		settingsService: settingsService,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	// Reason, Stage and Status are set when an action is blocked
	Reason string         `json:"reason,omitempty"`
	Stage  int            `json:"stage,omitempty"`
	Status domainwf.State `json:"status,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ActionRequest is the body of POST /api/vouchers/:id/actions
type ActionRequest struct {
	Decision domainwf.Decision `json:"decision" binding:"required"`
	Remarks  string            `json:"remarks"`
}

// CancelRequest is the body of POST /api/vouchers/:id/cancel
type CancelRequest struct {
	Reason string `json:"reason"`
}

// ThresholdRequest is the body of PUT /api/settings/quorum-threshold
type ThresholdRequest struct {
	Value int `json:"value" binding:"required"`
}

// ThresholdResponse reports the quorum threshold
type ThresholdResponse struct {
	Value int `json:"value"`
}

// ListVouchersRequest represents query parameters for listing vouchers
type ListVouchersRequest struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateVoucher handles POST /api/vouchers
func (h *Handlers) CreateVoucher(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var input service.CreateVoucherInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	v, err := h.voucherService.Create(c.Request.Context(), actor, input)
	if err != nil {
		h.fail(c, "Failed to create voucher", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: v})
}

// ListVouchers handles GET /api/vouchers?status=
func (h *Handlers) ListVouchers(c *gin.Context) {
	var req ListVouchersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}
	if req.Status == "" {
		req.Status = string(domainwf.StatePending)
	}

	vouchers, err := h.voucherService.ListByStatus(c.Request.Context(), domainwf.State(req.Status), req.Limit, req.Offset)
	if err != nil {
		h.fail(c, "Failed to list vouchers", err)
		return
	}
	if vouchers == nil {
		vouchers = []*entity.Voucher{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: vouchers})
}

// GetVoucher handles GET /api/vouchers/:id
func (h *Handlers) GetVoucher(c *gin.Context) {
	v, err := h.voucherService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get voucher", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: v})
}

// SubmitVoucher handles POST /api/vouchers/:id/submit
func (h *Handlers) SubmitVoucher(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	v, err := h.voucherService.Submit(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.fail(c, "Failed to submit voucher", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: v})
}

// Act handles POST /api/vouchers/:id/actions
func (h *Handlers) Act(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	result, err := h.engine.Act(c.Request.Context(), c.Param("id"), actor, req.Decision, req.Remarks)
	if err != nil {
		h.fail(c, "Stage action failed", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// CastQuorumVote handles POST /api/vouchers/:id/quorum-votes.
// A repeated vote is reported with result DUPLICATE and status 200.
func (h *Handlers) CastQuorumVote(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.engine.CastQuorumVote(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.fail(c, "Quorum vote failed", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// CancelVoucher handles POST /api/vouchers/:id/cancel
func (h *Handlers) CancelVoucher(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "invalid request body", err)
			return
		}
	}

	v, err := h.engine.Cancel(c.Request.Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		h.fail(c, "Cancel failed", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: v})
}

// GetProgress handles GET /api/vouchers/:id/progress
func (h *Handlers) GetProgress(c *gin.Context) {
	p, err := h.engine.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get progress", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: p})
}

// GetAuditTrail handles GET /api/vouchers/:id/audit
func (h *Handlers) GetAuditTrail(c *gin.Context) {
	trail, err := h.engine.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get audit trail", err)
		return
	}
	if trail == nil {
		trail = []*entity.AuditEvent{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: trail})
}

// GetQuorumThreshold handles GET /api/settings/quorum-threshold
func (h *Handlers) GetQuorumThreshold(c *gin.Context) {
	n, err := h.settingsService.QuorumThreshold(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to read quorum threshold", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ThresholdResponse{Value: n}})
}

// UpdateQuorumThreshold handles PUT /api/settings/quorum-threshold
func (h *Handlers) UpdateQuorumThreshold(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	n, err := h.settingsService.UpdateQuorumThreshold(c.Request.Context(), actor, req.Value)
	if err != nil {
		h.fail(c, "Failed to update quorum threshold", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ThresholdResponse{Value: n}})
}

// actor reads the caller identity, writing 401 when it is missing
func (h *Handlers) actor(c *gin.Context) (workflow.Actor, bool) {
	id := c.GetHeader(HeaderActorID)
	role := domainwf.Role(c.GetHeader(HeaderActorRole))
	if id == "" || role == "" {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "missing " + HeaderActorID + " or " + HeaderActorRole + " header",
		})
		return workflow.Actor{}, false
	}
	if !role.IsValid() {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "unknown role " + strconv.Quote(string(role)),
		})
		return workflow.Actor{}, false
	}
	return workflow.Actor{ID: id, Role: role}, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "error", err)
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// fail maps the error taxonomy onto HTTP status codes
func (h *Handlers) fail(c *gin.Context, msg string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err, "path", c.Request.URL.Path)
	} else {
		h.logger.Info(msg, "error", err, "path", c.Request.URL.Path)
	}

	resp := Response{Success: false, Error: err.Error()}
	var blocked *domainwf.BlockedError
	if errors.As(err, &blocked) {
		resp.Reason = string(blocked.Reason)
		resp.Stage = blocked.Stage
		resp.Status = blocked.Status
	}
	c.JSON(status, resp)
}

// StatusFor returns the HTTP status for an engine or service error
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domainwf.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domainwf.ErrDuplicateAction),
		errors.Is(err, domainwf.ErrPrerequisiteUnsatisfied),
		errors.Is(err, domainwf.ErrWrongLifecycleStatus),
		errors.Is(err, domainwf.ErrQuorumVoteRequired):
		return http.StatusConflict
	case errors.Is(err, domainwf.ErrVoucherNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainwf.ErrConfiguration),
		errors.Is(err, domainwf.ErrInvalidDecision),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domainwf.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
