package domain

import (
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/rental-billing/pkg/errors"
)

// BusinessRules holds the late-fee terms of a room or lease.
// It is a value type: pass it by value, never share a pointer to it.
type BusinessRules struct {
	LateFeeAmount   decimal.Decimal `json:"late_fee_amount"`
	LateFeeStartDay int             `json:"late_fee_start_day"`
	GracePeriodDays int             `json:"grace_period_days"`
	ChildSurcharge  decimal.Decimal `json:"child_surcharge"`
	PaymentMethods  []string        `json:"payment_methods,omitempty"`
}

// Validate checks that every numeric rule is non-negative.
func (r BusinessRules) Validate() error {
	switch {
	case r.LateFeeAmount.IsNegative():
		return customError.WrapInvalidBusinessRules("late fee amount must not be negative")
	case r.LateFeeStartDay < 0:
		return customError.WrapInvalidBusinessRules("late fee start day must not be negative")
	case r.GracePeriodDays < 0:
		return customError.WrapInvalidBusinessRules("grace period days must not be negative")
	case r.ChildSurcharge.IsNegative():
		return customError.WrapInvalidBusinessRules("child surcharge must not be negative")
	}
	return nil
}

// AllowsMethod reports whether method may be used to pay. An empty method set accepts anything.
func (r BusinessRules) AllowsMethod(method string) bool {
	if len(r.PaymentMethods) == 0 {
		return true
	}
	for _, m := range r.PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}
