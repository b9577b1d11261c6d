package entity

import (
	"time"

	"github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// ApprovalFact records one decision at one stage.
// At most one fact exists per (voucher, stage).
type ApprovalFact struct {
	ID        int64             `json:"id"`
	VoucherID string            `json:"voucher_id"`
	Stage     int               `json:"stage"`
	ActorID   string            `json:"actor_id"`
	ActorRole workflow.Role     `json:"actor_role"`
	Decision  workflow.Decision `json:"decision"`
	Remarks   string            `json:"remarks,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// QuorumReview records one reviewer's affirmative vote.
// At most one review exists per (voucher, reviewer).
type QuorumReview struct {
	ID         int64     `json:"id"`
	VoucherID  string    `json:"voucher_id"`
	ReviewerID string    `json:"reviewer_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// DecisionMap collapses facts into the stage-to-decision view used by the workflow
func DecisionMap(facts []*ApprovalFact) map[int]workflow.Decision {
	m := make(map[int]workflow.Decision, len(facts))
	for _, f := range facts {
		m[f.Stage] = f.Decision
	}
	return m
}
