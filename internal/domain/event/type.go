package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestSubmitted    Type = "request.submitted"
	TypeRequestAutoApproved Type = "request.auto_approved"
	TypeRequestUnrouted     Type = "request.unrouted"
	TypeApprovalDecided     Type = "approval.decided"
	TypeRequestApproved     Type = "request.approved"
	TypeRequestRejected     Type = "request.rejected"
)

// AllTypes lists every event type the engine publishes
var AllTypes = []Type{
	TypeRequestSubmitted,
	TypeRequestAutoApproved,
	TypeRequestUnrouted,
	TypeApprovalDecided,
	TypeRequestApproved,
	TypeRequestRejected,
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}
