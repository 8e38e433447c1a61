// Package rule holds the static, priority-ranked routing table.
// Rules are plain data matched by an ordered scan.
package rule

// Conditions are conjunctive. A nil or empty field matches anything.
// AmountMin and AmountMax are inclusive; AmountAbove is an exclusive lower
// bound so adjacent ranges can share an edge without leaving a gap.
type Conditions struct {
	AmountMin       *float64 `yaml:"amount_min,omitempty" json:"amount_min,omitempty"`
	AmountAbove     *float64 `yaml:"amount_above,omitempty" json:"amount_above,omitempty"`
	AmountMax       *float64 `yaml:"amount_max,omitempty" json:"amount_max,omitempty"`
	Categories      []string `yaml:"categories,omitempty" json:"categories,omitempty"`
	Departments     []string `yaml:"departments,omitempty" json:"departments,omitempty"`
	RequiresReceipt *bool    `yaml:"requires_receipt,omitempty" json:"requires_receipt,omitempty"`
	RequisitionType *string  `yaml:"requisition_type,omitempty" json:"requisition_type,omitempty"`
}

// ApproverLevel is the template for one approval stage
type ApproverLevel struct {
	Level    int    `yaml:"level" json:"level"`
	Role     string `yaml:"role" json:"role"`
	Required bool   `yaml:"required" json:"required"`
}

// StaticRule is a built-in routing rule. Lower Priority wins.
// A matched rule with no ApproverLevels auto-approves.
type StaticRule struct {
	ID             string          `yaml:"id" json:"id"`
	Name           string          `yaml:"name" json:"name"`
	Priority       int             `yaml:"priority" json:"priority"`
	Conditions     Conditions      `yaml:"conditions" json:"conditions"`
	ApproverLevels []ApproverLevel `yaml:"approver_levels" json:"approver_levels"`
}

// Input is the request context a rule is matched against
type Input struct {
	Amount          float64
	Category        string
	Department      string
	HasReceipt      bool
	RequisitionType string
}

// AutoApproves reports whether matching this rule skips human approval
func (r *StaticRule) AutoApproves() bool {
	return len(r.ApproverLevels) == 0
}

// Matches evaluates every specified condition against in
func (r *StaticRule) Matches(in Input) bool {
	c := r.Conditions
	if c.AmountMin != nil && in.Amount < *c.AmountMin {
		return false
	}
	if c.AmountAbove != nil && in.Amount <= *c.AmountAbove {
		return false
	}
	if c.AmountMax != nil && in.Amount > *c.AmountMax {
		return false
	}
	if len(c.Categories) > 0 && !contains(c.Categories, in.Category) {
		return false
	}
	if len(c.Departments) > 0 && !contains(c.Departments, in.Department) {
		return false
	}
	if c.RequiresReceipt != nil && *c.RequiresReceipt != in.HasReceipt {
		return false
	}
	if c.RequisitionType != nil && *c.RequisitionType != in.RequisitionType {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
