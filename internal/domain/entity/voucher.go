package entity

import (
	"time"

	"github.com/garyjia/voucher-approval/internal/domain/workflow"
)

// Voucher represents a disbursement voucher moving through approval
type Voucher struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	OriginRole  workflow.Role    `json:"origin_role"`
	Variant     workflow.Variant `json:"variant"`
	Status      workflow.State   `json:"status"`
	Payee       string           `json:"payee"`
	Particulars string           `json:"particulars"`
	// AmountCents is carried as entered and never computed on
	AmountCents int64      `json:"amount_cents"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsOwnedBy reports whether actorID created the voucher
func (v *Voucher) IsOwnedBy(actorID string) bool {
	return v.OwnerID != "" && v.OwnerID == actorID
}
