package entity

import "time"

// AuditEvent is an append-only record of an action against a voucher.
// It is for display only; workflow decisions never read it.
type AuditEvent struct {
	ID        int64     `json:"id"`
	VoucherID string    `json:"voucher_id"`
	ActorID   string    `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	Action    string    `json:"action"`
	Stage     int       `json:"stage,omitempty"`
	Before    string    `json:"before,omitempty"`
	After     string    `json:"after,omitempty"`
	Remarks   string    `json:"remarks,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SystemConfig represents system configuration key-value pairs
type SystemConfig struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}
