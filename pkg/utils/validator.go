package utils

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// ValidateAmount validates a request amount
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("amount must be a finite number")
	}
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %.2f", amount)
	}
	return nil
}

// ValidateID validates a database identifier
func ValidateID(name string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

// SanitizeString removes control characters other than tab and newline and trims whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
