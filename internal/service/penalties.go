package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/rental-billing/internal/domain"
	customError "github.com/segyhp/rental-billing/pkg/errors"
	"github.com/segyhp/rental-billing/pkg/utils"
)

// GetPenaltySummary returns the penalty ledger of a lease. A lease that was
// never charged reports zeros.
func (s *BillingService) GetPenaltySummary(ctx context.Context, leaseID string) (*domain.PenaltySummary, error) {
	sched, err := s.GetSchedule(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	summary := penaltySummary(sched)
	return &summary, nil
}

// ApplyPenaltyPayment pays down the penalty ledger. Anything above the
// outstanding penalty is not applied.
func (s *BillingService) ApplyPenaltyPayment(ctx context.Context, leaseID string, req *domain.PenaltyPaymentRequest) (*domain.PenaltyPaymentResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, customError.WrapInvalidAmount(req.Amount.String())
	}

	rules, err := s.leases.GetBusinessRules(ctx, leaseID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	if !rules.AllowsMethod(req.PaymentMethod) {
		return nil, customError.WrapPaymentMethodNotAllowed(req.PaymentMethod)
	}

	today := s.Today()
	now := s.now()
	applied := decimal.Zero
	sched, err := s.update(ctx, leaseID, func(sched *domain.PaymentSchedule) error {
		applied = receiptPenaltyPayment(sched, utils.MonthKey(today.Year(), today.Month()), req.Amount, today, req.PaymentMethod, req.Notes, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lease_id":  leaseID,
		"requested": req.Amount.String(),
		"applied":   applied.String(),
	}).Info("Penalty payment applied")

	return &domain.PenaltyPaymentResponse{Applied: applied, Penalty: penaltySummary(sched)}, nil
}

// PostPenaltyCharge adds a manual charge to the ledger. Manual charges are not
// deduplicated against automatic ones.
func (s *BillingService) PostPenaltyCharge(ctx context.Context, leaseID string, req *domain.PenaltyChargeRequest) (*domain.PenaltySummary, error) {
	if !req.Amount.IsPositive() {
		return nil, customError.WrapInvalidAmount(req.Amount.String())
	}

	now := s.now()
	sched, err := s.update(ctx, leaseID, func(sched *domain.PaymentSchedule) error {
		sched.Penalty().PostCharge(req.PaymentMonth, req.Amount, req.Reason, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lease_id": leaseID,
		"month":    req.PaymentMonth,
		"amount":   req.Amount.String(),
	}).Info("Manual penalty charge posted")

	summary := penaltySummary(sched)
	return &summary, nil
}

// UpcomingPayments lists unsettled payments due between today and today+days
// inclusive, earliest first.
func (s *BillingService) UpcomingPayments(ctx context.Context, today time.Time, days int) ([]domain.UpcomingPayment, error) {
	if days < 0 {
		days = 0
	}
	from := utils.DateOnly(today)
	to := from.AddDate(0, 0, days)

	list, err := s.schedules.ListWithOutstandingBalance(ctx)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}

	upcoming := make([]domain.UpcomingPayment, 0)
	for _, sched := range list {
		for _, p := range sched.Payments {
			if p.Status != domain.PaymentStatusPending && p.Status != domain.PaymentStatusPartial {
				continue
			}
			due := utils.DateOnly(p.DueDate)
			if due.Before(from) || due.After(to) {
				continue
			}
			upcoming = append(upcoming, domain.UpcomingPayment{
				LeaseID:  sched.LeaseID,
				RenterID: sched.RenterID,
				RoomID:   sched.RoomID,
				Month:    p.Month,
				DueDate:  due,
				Amount:   p.Remaining(),
				Status:   p.Status,
			})
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		if !upcoming[i].DueDate.Equal(upcoming[j].DueDate) {
			return upcoming[i].DueDate.Before(upcoming[j].DueDate)
		}
		return upcoming[i].LeaseID < upcoming[j].LeaseID
	})
	return upcoming, nil
}

// ScanOverdue runs the overdue penalty scan for today and refreshes the
// cached copy of every schedule it wrote.
func (s *BillingService) ScanOverdue(ctx context.Context, today time.Time) (*domain.ScanResponse, error) {
	result, err := s.scanner.Scan(ctx, today)
	for _, sched := range result.Updated {
		s.refresh(ctx, sched)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.ScanResponse{
		Date:            result.Date.Format(utils.DateLayout),
		Scanned:         result.Scanned,
		ChargesPosted:   result.ChargesPosted,
		SchedulesFailed: result.SchedulesFailed,
	}, nil
}

func penaltySummary(sched *domain.PaymentSchedule) domain.PenaltySummary {
	summary := domain.PenaltySummary{
		LeaseID:           sched.LeaseID,
		TotalAmount:       decimal.Zero,
		PaidAmount:        decimal.Zero,
		OutstandingAmount: decimal.Zero,
		History:           []domain.PenaltyEntry{},
		ByMonth:           map[string]decimal.Decimal{},
	}
	if l := sched.AggregatedPenalty; l != nil {
		summary.TotalAmount = l.TotalAmount
		summary.PaidAmount = l.PaidAmount
		summary.OutstandingAmount = l.OutstandingAmount
		summary.LastCalculated = l.LastCalculated
		summary.History = append(summary.History, l.CalculationHistory...)

		for _, e := range l.CalculationHistory {
			if _, done := summary.ByMonth[e.PaymentMonth]; done {
				continue
			}
			total := decimal.Zero
			for _, charge := range l.ChargesFor(e.PaymentMonth) {
				total = total.Add(charge.Amount)
			}
			summary.ByMonth[e.PaymentMonth] = total
		}
	}
	return summary
}
