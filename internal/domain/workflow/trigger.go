package workflow

// Trigger is an event that moves a request between states
type Trigger string

const (
	TriggerSubmit      Trigger = "SUBMIT"
	TriggerAutoApprove Trigger = "AUTO_APPROVE"
	TriggerApprove     Trigger = "APPROVE"
	TriggerReject      Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
