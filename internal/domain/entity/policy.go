package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Policy is an externally managed dynamic routing policy
type Policy struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	IsActive  bool      `json:"is_active"`
	RulesJSON string    `json:"rules_json"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// AutoApprovalRules is the decoded rules_json of an AUTO_APPROVAL policy
type AutoApprovalRules struct {
	AmountMax *float64 `json:"amountMax"`
}

// ParseAutoApprovalRules decodes and validates RulesJSON
func (p *Policy) ParseAutoApprovalRules() (*AutoApprovalRules, error) {
	var rules AutoApprovalRules
	if err := json.Unmarshal([]byte(p.RulesJSON), &rules); err != nil {
		return nil, fmt.Errorf("invalid rules_json: %w", err)
	}
	if rules.AmountMax == nil {
		return nil, fmt.Errorf("rules_json missing amountMax")
	}
	if *rules.AmountMax < 0 {
		return nil, fmt.Errorf("rules_json amountMax must not be negative: %.2f", *rules.AmountMax)
	}
	return &rules, nil
}
