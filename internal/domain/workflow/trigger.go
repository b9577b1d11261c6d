package workflow

// Trigger represents an event that can cause a status transition
type Trigger string

const (
	TriggerSubmit   Trigger = "SUBMIT"
	TriggerValidate Trigger = "VALIDATE"
	TriggerApprove  Trigger = "APPROVE"
	TriggerRelease  Trigger = "RELEASE"
	TriggerReject   Trigger = "REJECT"
	TriggerCancel   Trigger = "CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// triggerFor returns the trigger that moves a voucher into target
func triggerFor(target State) (Trigger, bool) {
	switch target {
	case StatePending:
		return TriggerSubmit, true
	case StateValidated:
		return TriggerValidate, true
	case StateApproved:
		return TriggerApprove, true
	case StateReleased:
		return TriggerRelease, true
	case StateRejected:
		return TriggerReject, true
	case StateCancelled:
		return TriggerCancel, true
	default:
		return "", false
	}
}
