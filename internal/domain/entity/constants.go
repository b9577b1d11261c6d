package entity

// Audit actions
const (
	ActionCreated                = "CREATED"
	ActionSubmitted              = "SUBMITTED"
	ActionApproved               = "APPROVED"
	ActionRejected               = "REJECTED"
	ActionQuorumVote             = "QUORUM_VOTE"
	ActionCancelled              = "CANCELLED"
	ActionQuorumThresholdUpdated = "QUORUM_THRESHOLD_UPDATED"
)

// SettingsAuditID is the voucher id under which settings changes are audited
const SettingsAuditID = "settings"

// System config keys
const (
	ConfigKeyQuorumThreshold = "quorum_threshold"
)
