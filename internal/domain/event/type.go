package event

// Type identifies the type of domain event
type Type string

const (
	TypeVoucherCreated   Type = "voucher.created"
	TypeVoucherSubmitted Type = "voucher.submitted"
	TypeStageDecided     Type = "voucher.stage_decided"
	TypeQuorumVoted      Type = "voucher.quorum_voted"
	TypeVoucherReleased  Type = "voucher.released"
	TypeVoucherRejected  Type = "voucher.rejected"
	TypeVoucherCancelled Type = "voucher.cancelled"
	TypeSettingsUpdated  Type = "settings.updated"
)

// Payload keys shared by publishers and handlers
const (
	PayloadStage     = "stage"
	PayloadActorID   = "actor_id"
	PayloadActorRole = "actor_role"
	PayloadStatus    = "status"
	PayloadVariant   = "variant"
	PayloadVotes     = "votes"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeVoucherCreated,
		TypeVoucherSubmitted,
		TypeStageDecided,
		TypeQuorumVoted,
		TypeVoucherReleased,
		TypeVoucherRejected,
		TypeVoucherCancelled,
		TypeSettingsUpdated:
		return true
	default:
		return false
	}
}

// AdvancesWorkflow reports whether the event may make a new stage actionable
func (t Type) AdvancesWorkflow() bool {
	switch t {
	case TypeVoucherSubmitted, TypeStageDecided, TypeQuorumVoted:
		return true
	default:
		return false
	}
}
