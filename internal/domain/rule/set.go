package rule

import (
	"errors"
	"fmt"
	"sort"
)

// Set is an immutable, priority-ordered rule table, safe for concurrent readers
type Set struct {
	rules []StaticRule
}

// NewSet copies and sorts rules by ascending priority. Rules with equal
// priority keep their declaration order.
func NewSet(rules []StaticRule) (*Set, error) {
	sorted := make([]StaticRule, len(rules))
	for i, r := range rules {
		sorted[i] = cloneRule(r)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	s := &Set{rules: sorted}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNewSet is NewSet for tables known to be valid
func MustNewSet(rules []StaticRule) *Set {
	s, err := NewSet(rules)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks the table for duplicate ids, inverted ranges and bad levels
func (s *Set) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(s.rules))
	for _, r := range s.rules {
		if r.ID == "" {
			errs = append(errs, errors.New("rule id is required"))
			continue
		}
		if seen[r.ID] {
			errs = append(errs, fmt.Errorf("duplicate rule id: %s", r.ID))
		}
		seen[r.ID] = true

		c := r.Conditions
		if c.AmountMin != nil && c.AmountMax != nil && *c.AmountMin > *c.AmountMax {
			errs = append(errs, fmt.Errorf("rule %s: amount_min %.2f exceeds amount_max %.2f", r.ID, *c.AmountMin, *c.AmountMax))
		}
		if c.AmountAbove != nil && c.AmountMax != nil && *c.AmountAbove >= *c.AmountMax {
			errs = append(errs, fmt.Errorf("rule %s: amount_above %.2f leaves no room below amount_max %.2f", r.ID, *c.AmountAbove, *c.AmountMax))
		}
		for _, l := range r.ApproverLevels {
			if l.Level <= 0 {
				errs = append(errs, fmt.Errorf("rule %s: level must be positive, got %d", r.ID, l.Level))
			}
			if l.Role == "" {
				errs = append(errs, fmt.Errorf("rule %s: level %d has no role", r.ID, l.Level))
			}
		}
	}
	return errors.Join(errs...)
}

// Match returns the first rule, in priority order, whose conditions all hold
func (s *Set) Match(in Input) (*StaticRule, bool) {
	for i := range s.rules {
		if s.rules[i].Matches(in) {
			r := cloneRule(s.rules[i])
			return &r, true
		}
	}
	return nil, false
}

// Rules returns a copy of the ordered table
func (s *Set) Rules() []StaticRule {
	out := make([]StaticRule, len(s.rules))
	for i, r := range s.rules {
		out[i] = cloneRule(r)
	}
	return out
}

// UsesDepartments reports whether any rule filters on the requester's department
func (s *Set) UsesDepartments() bool {
	for _, r := range s.rules {
		if len(r.Conditions.Departments) > 0 {
			return true
		}
	}
	return false
}

// Len returns the number of rules
func (s *Set) Len() int {
	return len(s.rules)
}

func cloneRule(r StaticRule) StaticRule {
	out := r
	out.Conditions.Categories = append([]string(nil), r.Conditions.Categories...)
	out.Conditions.Departments = append([]string(nil), r.Conditions.Departments...)
	out.ApproverLevels = append([]ApproverLevel(nil), r.ApproverLevels...)
	return out
}
