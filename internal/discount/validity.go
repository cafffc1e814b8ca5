package discount

import (
	"time"

	"pharmalink/m/domain"
)

// IsDiscountValid reports whether rule is active and now falls inside its
// optional [StartDate, EndDate] window. Both bounds are inclusive.
func IsDiscountValid(rule domain.DiscountRule, now time.Time) bool {
	_, ok := validity(rule, now)
	return ok
}

func validity(rule domain.DiscountRule, now time.Time) (string, bool) {
	if !rule.IsActive {
		return "inactive", false
	}
	if rule.StartDate != nil && now.Before(*rule.StartDate) {
		return "not started", false
	}
	if rule.EndDate != nil && now.After(*rule.EndDate) {
		return "expired", false
	}
	return "", true
}
