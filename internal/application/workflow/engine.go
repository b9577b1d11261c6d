package workflow

import (
	"context"

	"github.com/garyjia/voucher-approval/internal/domain/entity"
	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// Actor identifies who performs an operation
type Actor struct {
	ID   string
	Role domainwf.Role
}

// ActionResult is returned by a successful stage action
type ActionResult struct {
	VoucherID      string            `json:"voucher_id"`
	Stage          int               `json:"stage"`
	Decision       domainwf.Decision `json:"decision"`
	PreviousStatus domainwf.State    `json:"previous_status"`
	Status         domainwf.State    `json:"status"`
}

// VoteResult is returned by CastQuorumVote
type VoteResult struct {
	VoucherID string              `json:"voucher_id"`
	Result    domainwf.VoteResult `json:"result"`
	Votes     int                 `json:"votes"`
	Required  int                 `json:"required"`
	// Reached is true when this vote completed the quorum
	Reached bool `json:"reached"`
}

// Progress is the projected stage list of one voucher
type Progress struct {
	VoucherID string                   `json:"voucher_id"`
	Variant   domainwf.Variant         `json:"variant"`
	Status    domainwf.State           `json:"status"`
	Stages    []domainwf.StageProgress `json:"stages"`
}

// Current returns the current stage, if any
func (p *Progress) Current() (domainwf.StageProgress, bool) {
	for _, s := range p.Stages {
		if s.State == domainwf.StageCurrent {
			return s, true
		}
	}
	return domainwf.StageProgress{}, false
}

// WorkflowEngine orchestrates voucher approval
type WorkflowEngine interface {
	// Act records a stage decision by the actor's role
	Act(ctx context.Context, voucherID string, actor Actor, decision domainwf.Decision, remarks string) (*ActionResult, error)

	// CastQuorumVote records one reviewer's vote at the quorum stage
	CastQuorumVote(ctx context.Context, voucherID string, reviewer Actor) (*VoteResult, error)

	// Cancel moves a non-terminal voucher to CANCELLED; administrators only
	Cancel(ctx context.Context, voucherID string, actor Actor, reason string) (*entity.Voucher, error)

	// GetProgress projects the voucher's stages from recorded facts
	GetProgress(ctx context.Context, voucherID string) (*Progress, error)

	// AuditTrail returns the voucher's append-only audit events
	AuditTrail(ctx context.Context, voucherID string) ([]*entity.AuditEvent, error)
}
