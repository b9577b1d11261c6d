package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/voucher-approval/internal/application/dispatcher"
	"github.com/garyjia/voucher-approval/internal/application/port"
	"github.com/garyjia/voucher-approval/internal/domain/entity"
	"github.com/garyjia/voucher-approval/internal/domain/event"
	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	vouchers  port.VoucherRepository
	facts     port.ApprovalFactRepository
	reviews   port.QuorumReviewRepository
	audit     port.AuditEventRepository
	settings  port.SettingsRepository
	txManager port.TransactionManager

	catalog          *domainwf.Catalog
	dispatcher       dispatcher.Dispatcher
	logger           Logger
	defaultThreshold int
	now              func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithDefaultQuorumThreshold sets the threshold used until an administrator stores one
func WithDefaultQuorumThreshold(n int) EngineOption {
	return func(e *engineImpl) {
		e.defaultThreshold = n
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(repos port.Repositories, catalog *domainwf.Catalog, opts ...EngineOption) WorkflowEngine {
	e := &engineImpl{
		vouchers:         repos.Vouchers,
		facts:            repos.Facts,
		reviews:          repos.Reviews,
		audit:            repos.Audit,
		settings:         repos.Settings,
		txManager:        repos.TxManager,
		catalog:          catalog,
		logger:           nopLogger{},
		defaultThreshold: domainwf.DefaultQuorumThreshold,
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engineImpl) Act(ctx context.Context, voucherID string, actor Actor, decision domainwf.Decision, remarks string) (*ActionResult, error) {
	if !decision.IsValid() {
		return nil, fmt.Errorf("%w: %q", domainwf.ErrInvalidDecision, decision)
	}

	var (
		result  *ActionResult
		variant domainwf.Variant
	)
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		v, def, err := e.loadVoucher(txCtx, voucherID, true)
		if err != nil {
			return err
		}
		variant = v.Variant

		stage, ok := domainwf.ResolveStage(def, actor.Role)
		if !ok {
			return fmt.Errorf("%w: role %s has no stage in variant %s", domainwf.ErrUnauthorized, actor.Role, def.Variant)
		}

		facts, err := e.loadFacts(txCtx, v)
		if err != nil {
			return err
		}

		outcome, err := domainwf.Apply(txCtx, def, facts, stage.Number, decision)
		if err != nil {
			return err
		}

		now := e.now()
		if err := e.facts.Create(txCtx, &entity.ApprovalFact{
			VoucherID: v.ID,
			Stage:     stage.Number,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Decision:  decision,
			Remarks:   remarks,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if outcome.NewStatus != outcome.PreviousStatus {
			if err := e.setStatus(txCtx, v.ID, outcome.PreviousStatus, outcome.NewStatus); err != nil {
				return err
			}
		}

		after := facts
		after.Status = outcome.NewStatus
		after.Decisions = withDecision(facts.Decisions, stage.Number, decision)

		action := entity.ActionApproved
		if decision == domainwf.DecisionRejected {
			action = entity.ActionRejected
		}
		if err := e.appendAudit(txCtx, v.ID, actor, action, stage.Number, facts, after, remarks); err != nil {
			return err
		}

		result = &ActionResult{
			VoucherID:      v.ID,
			Stage:          stage.Number,
			Decision:       decision,
			PreviousStatus: outcome.PreviousStatus,
			Status:         outcome.NewStatus,
		}
		return nil
	})
	if err != nil {
		return nil, domainwf.Classify(err)
	}

	e.logger.Info("Stage decision recorded",
		"voucher_id", result.VoucherID,
		"stage", result.Stage,
		"decision", result.Decision,
		"actor_id", actor.ID,
		"status", result.Status,
	)

	evtType := event.TypeStageDecided
	switch result.Status {
	case domainwf.StateReleased:
		evtType = event.TypeVoucherReleased
	case domainwf.StateRejected:
		evtType = event.TypeVoucherRejected
	}
	e.publish(ctx, evtType, result.VoucherID, map[string]interface{}{
		event.PayloadStage:     result.Stage,
		event.PayloadActorID:   actor.ID,
		event.PayloadActorRole: string(actor.Role),
		event.PayloadStatus:    string(result.Status),
		event.PayloadVariant:   string(variant),
	})

	return result, nil
}

func (e *engineImpl) CastQuorumVote(ctx context.Context, voucherID string, reviewer Actor) (*VoteResult, error) {
	var (
		result  *VoteResult
		variant domainwf.Variant
	)
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		v, def, err := e.loadVoucher(txCtx, voucherID, true)
		if err != nil {
			return err
		}
		variant = v.Variant

		stage, ok := domainwf.ResolveStage(def, reviewer.Role)
		if !ok || !stage.Quorum {
			return fmt.Errorf("%w: role %s does not review at a quorum stage in variant %s", domainwf.ErrUnauthorized, reviewer.Role, def.Variant)
		}

		voted, err := e.reviews.HasVoted(txCtx, v.ID, reviewer.ID)
		if err != nil {
			return fmt.Errorf("failed to check quorum vote: %w", err)
		}

		facts, err := e.loadFacts(txCtx, v)
		if err != nil {
			return err
		}

		_, readiness := domainwf.CanVote(def, facts, voted)
		if err := readiness.Err(); err != nil {
			if errors.Is(err, domainwf.ErrDuplicateAction) {
				result = &VoteResult{
					VoucherID: v.ID,
					Result:    domainwf.VoteDuplicate,
					Votes:     facts.QuorumVotes,
					Required:  facts.QuorumThreshold,
				}
				return nil
			}
			return err
		}

		if err := e.reviews.Create(txCtx, &entity.QuorumReview{
			VoucherID:  v.ID,
			ReviewerID: reviewer.ID,
			CreatedAt:  e.now(),
		}); err != nil {
			return err
		}

		after := facts
		after.QuorumVotes++
		if err := e.appendAudit(txCtx, v.ID, reviewer, entity.ActionQuorumVote, stage.Number, facts, after, ""); err != nil {
			return err
		}

		result = &VoteResult{
			VoucherID: v.ID,
			Result:    domainwf.VoteAccepted,
			Votes:     after.QuorumVotes,
			Required:  after.QuorumThreshold,
			Reached: !domainwf.QuorumSatisfied(facts.QuorumVotes, facts.QuorumThreshold) &&
				domainwf.QuorumSatisfied(after.QuorumVotes, after.QuorumThreshold),
		}
		return nil
	})

	// A concurrent insert by the same reviewer lost the race on the unique key.
	if errors.Is(err, domainwf.ErrDuplicateAction) {
		return e.duplicateVote(ctx, voucherID)
	}
	if err != nil {
		return nil, domainwf.Classify(err)
	}

	if result.Result == domainwf.VoteAccepted {
		e.logger.Info("Quorum vote recorded",
			"voucher_id", result.VoucherID,
			"reviewer_id", reviewer.ID,
			"votes", result.Votes,
			"required", result.Required,
		)
		e.publish(ctx, event.TypeQuorumVoted, result.VoucherID, map[string]interface{}{
			event.PayloadActorID:   reviewer.ID,
			event.PayloadActorRole: string(reviewer.Role),
			event.PayloadVotes:     result.Votes,
			event.PayloadVariant:   string(variant),
			"reached":              result.Reached,
		})
	}

	return result, nil
}

func (e *engineImpl) duplicateVote(ctx context.Context, voucherID string) (*VoteResult, error) {
	count, err := e.reviews.Count(ctx, voucherID)
	if err != nil {
		return nil, domainwf.Classify(err)
	}
	threshold, err := ReadQuorumThreshold(ctx, e.settings, e.defaultThreshold)
	if err != nil {
		return nil, domainwf.Classify(err)
	}
	return &VoteResult{
		VoucherID: voucherID,
		Result:    domainwf.VoteDuplicate,
		Votes:     count,
		Required:  threshold,
	}, nil
}

func (e *engineImpl) Cancel(ctx context.Context, voucherID string, actor Actor, reason string) (*entity.Voucher, error) {
	if actor.Role != domainwf.RoleAdmin {
		return nil, fmt.Errorf("%w: cancellation requires %s", domainwf.ErrUnauthorized, domainwf.RoleAdmin)
	}

	var cancelled *entity.Voucher
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		v, err := e.vouchers.GetForUpdate(txCtx, voucherID)
		if err != nil {
			return err
		}

		if err := domainwf.CanCancel(txCtx, v.Status); err != nil {
			return err
		}
		if err := e.setStatus(txCtx, v.ID, v.Status, domainwf.StateCancelled); err != nil {
			return err
		}

		if err := e.audit.Append(txCtx, &entity.AuditEvent{
			VoucherID: v.ID,
			ActorID:   actor.ID,
			ActorRole: string(actor.Role),
			Action:    entity.ActionCancelled,
			Before:    statusSnapshot(v.Status),
			After:     statusSnapshot(domainwf.StateCancelled),
			Remarks:   reason,
			Timestamp: e.now(),
		}); err != nil {
			return fmt.Errorf("failed to append audit event: %w", err)
		}

		v.Status = domainwf.StateCancelled
		cancelled = v
		return nil
	})
	if err != nil {
		return nil, domainwf.Classify(err)
	}

	e.logger.Info("Voucher cancelled", "voucher_id", cancelled.ID, "actor_id", actor.ID, "reason", reason)
	e.publish(ctx, event.TypeVoucherCancelled, cancelled.ID, map[string]interface{}{
		event.PayloadActorID: actor.ID,
		event.PayloadStatus:  string(domainwf.StateCancelled),
	})

	return cancelled, nil
}

func (e *engineImpl) GetProgress(ctx context.Context, voucherID string) (*Progress, error) {
	var progress *Progress
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		v, def, err := e.loadVoucher(txCtx, voucherID, false)
		if err != nil {
			return err
		}
		facts, err := e.loadFacts(txCtx, v)
		if err != nil {
			return err
		}

		progress = &Progress{
			VoucherID: v.ID,
			Variant:   v.Variant,
			Status:    v.Status,
			Stages:    domainwf.Project(def, facts),
		}
		return nil
	})
	if err != nil {
		return nil, domainwf.Classify(err)
	}
	return progress, nil
}

func (e *engineImpl) AuditTrail(ctx context.Context, voucherID string) ([]*entity.AuditEvent, error) {
	if voucherID != entity.SettingsAuditID {
		if _, err := e.vouchers.GetByID(ctx, voucherID); err != nil {
			return nil, domainwf.Classify(err)
		}
	}
	events, err := e.audit.ListByVoucher(ctx, voucherID)
	if err != nil {
		return nil, domainwf.Classify(fmt.Errorf("failed to list audit events: %w", err))
	}
	return events, nil
}

func (e *engineImpl) loadVoucher(ctx context.Context, id string, forUpdate bool) (*entity.Voucher, *domainwf.Definition, error) {
	var (
		v   *entity.Voucher
		err error
	)
	if forUpdate {
		v, err = e.vouchers.GetForUpdate(ctx, id)
	} else {
		v, err = e.vouchers.GetByID(ctx, id)
	}
	if err != nil {
		return nil, nil, err
	}

	def, err := e.catalog.Definition(v.Variant)
	if err != nil {
		return nil, nil, err
	}
	return v, def, nil
}

// loadFacts reads approval facts, the vote count and the current threshold.
// The audit log is never consulted.
func (e *engineImpl) loadFacts(ctx context.Context, v *entity.Voucher) (domainwf.Facts, error) {
	records, err := e.facts.ListByVoucher(ctx, v.ID)
	if err != nil {
		return domainwf.Facts{}, fmt.Errorf("failed to list approval facts: %w", err)
	}
	votes, err := e.reviews.Count(ctx, v.ID)
	if err != nil {
		return domainwf.Facts{}, fmt.Errorf("failed to count quorum votes: %w", err)
	}
	threshold, err := ReadQuorumThreshold(ctx, e.settings, e.defaultThreshold)
	if err != nil {
		return domainwf.Facts{}, err
	}

	return domainwf.Facts{
		Status:          v.Status,
		Decisions:       entity.DecisionMap(records),
		QuorumVotes:     votes,
		QuorumThreshold: threshold,
	}, nil
}

// setStatus performs the compare-and-swap; a lost swap reports the status that won
func (e *engineImpl) setStatus(ctx context.Context, id string, from, to domainwf.State) error {
	ok, err := e.vouchers.CompareAndSetStatus(ctx, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update voucher status: %w", err)
	}
	if ok {
		return nil
	}

	current, err := e.vouchers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return &domainwf.BlockedError{Reason: domainwf.ReasonWrongLifecycleStatus, Status: current.Status}
}

func (e *engineImpl) appendAudit(ctx context.Context, voucherID string, actor Actor, action string, stage int, before, after domainwf.Facts, remarks string) error {
	err := e.audit.Append(ctx, &entity.AuditEvent{
		VoucherID: voucherID,
		ActorID:   actor.ID,
		ActorRole: string(actor.Role),
		Action:    action,
		Stage:     stage,
		Before:    factsSnapshot(before),
		After:     factsSnapshot(after),
		Remarks:   remarks,
		Timestamp: e.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

func (e *engineImpl) publish(ctx context.Context, t event.Type, voucherID string, payload map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.DispatchAsync(ctx, event.NewEvent(t, voucherID, payload))
}

func withDecision(m map[int]domainwf.Decision, stage int, d domainwf.Decision) map[int]domainwf.Decision {
	out := make(map[int]domainwf.Decision, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[stage] = d
	return out
}

type snapshot struct {
	Status      domainwf.State            `json:"status"`
	Decisions   map[int]domainwf.Decision `json:"decisions,omitempty"`
	QuorumVotes int                       `json:"quorum_votes,omitempty"`
}

func factsSnapshot(f domainwf.Facts) string {
	b, _ := json.Marshal(snapshot{Status: f.Status, Decisions: f.Decisions, QuorumVotes: f.QuorumVotes})
	return string(b)
}

func statusSnapshot(s domainwf.State) string {
	b, _ := json.Marshal(snapshot{Status: s})
	return string(b)
}
