package entity

// ApproverRef identifies a resolved approver
type ApproverRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// RouteLevel is one stage of a resolved approval chain
type RouteLevel struct {
	Level     int            `json:"level"`
	Role      string         `json:"role"`
	Approvers []ApproverRef  `json:"approvers"`
	Required  bool           `json:"required"`
	Status    ApprovalStatus `json:"status"`
}

// ApprovalRoute is the transient outcome of route resolution. It is never persisted.
type ApprovalRoute struct {
	Levels        []RouteLevel `json:"levels"`
	EstimatedDays float64      `json:"estimated_days"`
	AutoApprove   bool         `json:"auto_approve"`
	Reason        string       `json:"reason"`
	RuleID        string       `json:"rule_id,omitempty"`
	PolicyID      *int64       `json:"policy_id,omitempty"`
}

// Unrouted reports a route that neither auto-approves nor has any level
func (r *ApprovalRoute) Unrouted() bool {
	return !r.AutoApprove && len(r.Levels) == 0
}

// ApproverCount is the number of (level, approver) pairs in the route
func (r *ApprovalRoute) ApproverCount() int {
	n := 0
	for _, l := range r.Levels {
		n += len(l.Approvers)
	}
	return n
}
