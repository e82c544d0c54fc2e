// Package schedule builds the full payment schedule of a lease from its terms.
package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/rental-billing/internal/domain"
	"github.com/segyhp/rental-billing/pkg/utils"
)

// DueDatePolicy picks the day of month rent is due on.
type DueDatePolicy string

const (
	DueFirstDay DueDatePolicy = "first_day"
	DueLastDay  DueDatePolicy = "last_day"
)

// ParseDueDatePolicy accepts "first_day" or "last_day". Empty means first_day.
func ParseDueDatePolicy(s string) (DueDatePolicy, error) {
	switch DueDatePolicy(s) {
	case "", DueFirstDay:
		return DueFirstDay, nil
	case DueLastDay:
		return DueLastDay, nil
	default:
		return "", fmt.Errorf("unknown due date policy %q", s)
	}
}

// Options controls schedule generation.
type Options struct {
	IncludeDeposit bool
	DueDatePolicy  DueDatePolicy
}

// DueDate returns the rent due date of the given month under policy.
func DueDate(year int, month time.Month, policy DueDatePolicy) time.Time {
	if policy == DueLastDay {
		return utils.LastDayOfMonth(year, month)
	}
	return utils.FirstDayOfMonth(year, month)
}

// DepositKey is the month key of the deposit entry for a lease starting on start.
func DepositKey(start time.Time) string {
	return utils.MonthKey(start.Year(), start.Month()) + "-deposit"
}

// Generate builds the schedule for lease: an optional deposit entry followed by
// one rent entry per calendar month from the start month to the end month
// inclusive. A lease ending before it starts gets no rent entries; callers
// validate the term first.
func Generate(lease domain.Lease, opts Options) *domain.PaymentSchedule {
	start := utils.DateOnly(lease.StartDate)
	end := utils.DateOnly(lease.EndDate)

	payments := make([]domain.ScheduledPayment, 0, monthsBetween(start, end)+1)

	if opts.IncludeDeposit {
		payments = append(payments, depositEntry(lease, start))
	}

	cursor := utils.FirstDayOfMonth(start.Year(), start.Month())
	last := utils.FirstDayOfMonth(end.Year(), end.Month())
	for !cursor.After(last) {
		payments = append(payments, domain.ScheduledPayment{
			ID:         uuid.New(),
			Month:      utils.MonthKey(cursor.Year(), cursor.Month()),
			DueDate:    DueDate(cursor.Year(), cursor.Month(), opts.DueDatePolicy),
			Amount:     lease.MonthlyRent,
			Type:       domain.PaymentTypeRent,
			Status:     domain.PaymentStatusPending,
			PaidAmount: decimal.Zero,
			LateFee:    decimal.Zero,
		})
		cursor = cursor.AddDate(0, 1, 0)
	}

	s := &domain.PaymentSchedule{
		ID:         uuid.New(),
		LeaseID:    lease.LeaseID,
		FacilityID: lease.FacilityID,
		RoomID:     lease.RoomID,
		RenterID:   lease.RenterID,
		Payments:   payments,
	}
	s.RecalculateTotals()
	return s
}

func depositEntry(lease domain.Lease, start time.Time) domain.ScheduledPayment {
	p := domain.ScheduledPayment{
		ID:         uuid.New(),
		Month:      DepositKey(start),
		DueDate:    start,
		Amount:     lease.DepositAmount,
		Type:       domain.PaymentTypeDeposit,
		Status:     domain.PaymentStatusPending,
		PaidAmount: decimal.Zero,
		LateFee:    decimal.Zero,
	}
	if lease.DepositPaid {
		paidDate := start
		if lease.DepositPaidDate != nil {
			paidDate = utils.DateOnly(*lease.DepositPaidDate)
		}
		p.Status = domain.PaymentStatusPaid
		p.PaidAmount = lease.DepositAmount
		p.PaidDate = &paidDate
		p.PaymentMethod = lease.DepositPaymentMethod
	}
	return p
}

func monthsBetween(start, end time.Time) int {
	n := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
	if n < 0 {
		return 0
	}
	return n
}
