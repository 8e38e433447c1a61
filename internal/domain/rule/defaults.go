package rule

import "github.com/garyjia/spend-approval/internal/domain/entity"

func amount(v float64) *float64 { return &v }
func flag(v bool) *bool         { return &v }
func text(v string) *string     { return &v }

// DefaultRules is the built-in routing table used when no rules file is configured
func DefaultRules() []StaticRule {
	return []StaticRule{
		{
			ID:       "petty-cash-with-receipt",
			Name:     "Petty cash with receipt",
			Priority: 10,
			Conditions: Conditions{
				AmountMax:       amount(100),
				RequiresReceipt: flag(true),
			},
		},
		{
			ID:       "capital-expenditure",
			Name:     "Capital expenditure requisition",
			Priority: 20,
			Conditions: Conditions{
				RequisitionType: text("CAPEX"),
			},
			ApproverLevels: []ApproverLevel{
				{Level: 1, Role: entity.RoleManager, Required: true},
				{Level: 2, Role: entity.RoleFinanceManager, Required: true},
				{Level: 3, Role: entity.RoleCFO, Required: true},
			},
		},
		{
			ID:       "travel-and-entertainment",
			Name:     "Travel and entertainment",
			Priority: 30,
			Conditions: Conditions{
				AmountAbove: amount(500),
				AmountMax:   amount(5000),
				Categories:  []string{"Travel", "Entertainment"},
			},
			ApproverLevels: []ApproverLevel{
				{Level: 1, Role: entity.RoleManager, Required: true},
				{Level: 2, Role: entity.RoleFinanceTeam, Required: true},
			},
		},
		{
			ID:       "manager-approval",
			Name:     "Manager approval",
			Priority: 40,
			Conditions: Conditions{
				AmountAbove: amount(50),
				AmountMax:   amount(1000),
			},
			ApproverLevels: []ApproverLevel{
				{Level: 1, Role: entity.RoleManager, Required: true},
			},
		},
		{
			ID:       "finance-review",
			Name:     "Manager and finance review",
			Priority: 50,
			Conditions: Conditions{
				AmountAbove: amount(1000),
				AmountMax:   amount(10000),
			},
			ApproverLevels: []ApproverLevel{
				{Level: 1, Role: entity.RoleManager, Required: true},
				{Level: 2, Role: entity.RoleFinanceTeam, Required: true},
			},
		},
		{
			ID:       "executive-approval",
			Name:     "Executive approval",
			Priority: 60,
			Conditions: Conditions{
				AmountAbove: amount(10000),
			},
			ApproverLevels: []ApproverLevel{
				{Level: 1, Role: entity.RoleManager, Required: true},
				{Level: 2, Role: entity.RoleFinanceManager, Required: true},
				{Level: 3, Role: entity.RoleCFO, Required: true},
			},
		},
	}
}
