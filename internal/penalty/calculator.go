// Package penalty decides whether a payment is late and how much penalty it accrues.
package penalty

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/rental-billing/internal/domain"
	"github.com/segyhp/rental-billing/pkg/utils"
)

// Breakdown shows the figures the penalty was computed from.
type Breakdown struct {
	BaseAmount       decimal.Decimal `json:"base_amount"`
	PenaltyRate      decimal.Decimal `json:"penalty_rate"`
	DaysOverdue      int             `json:"days_overdue"`
	CalculatedAmount decimal.Decimal `json:"calculated_amount"`
}

// Calculation is the outcome of Calculate.
type Calculation struct {
	IsLate          bool            `json:"is_late"`
	DaysLate        int             `json:"days_late"`
	PenaltyAmount   decimal.Decimal `json:"penalty_amount"`
	GracePeriodUsed bool            `json:"grace_period_used"`
	Calculation     Breakdown       `json:"calculation"`
}

// Calculate computes lateness and penalty for a payment due on dueDate and paid
// (or evaluated) on paidDate. Only calendar dates are compared.
//
// The grace period is checked on its own: when daysLate <= GracePeriodDays the
// payment is never late, even if daysLate already exceeds LateFeeStartDay.
// LateFeeAmount is a flat per-day amount; baseAmount is informational.
func Calculate(dueDate, paidDate time.Time, rules domain.BusinessRules, baseAmount decimal.Decimal) Calculation {
	daysLate := utils.WholeDaysBetween(dueDate, paidDate)
	graceUsed := daysLate <= rules.GracePeriodDays
	isLate := daysLate > rules.LateFeeStartDay && !graceUsed

	daysOverdue := daysLate - rules.LateFeeStartDay
	if daysOverdue < 0 {
		daysOverdue = 0
	}

	amount := decimal.Zero
	if isLate {
		amount = rules.LateFeeAmount.Mul(decimal.NewFromInt(int64(daysOverdue)))
	}

	return Calculation{
		IsLate:          isLate,
		DaysLate:        daysLate,
		PenaltyAmount:   amount,
		GracePeriodUsed: graceUsed,
		Calculation: Breakdown{
			BaseAmount:       baseAmount,
			PenaltyRate:      rules.LateFeeAmount,
			DaysOverdue:      daysOverdue,
			CalculatedAmount: amount,
		},
	}
}
