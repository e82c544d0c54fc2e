// Package scanner posts daily late penalties for overdue scheduled payments.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/segyhp/rental-billing/internal/domain"
	"github.com/segyhp/rental-billing/internal/penalty"
	"github.com/segyhp/rental-billing/internal/repository"
	customError "github.com/segyhp/rental-billing/pkg/errors"
	"github.com/segyhp/rental-billing/pkg/utils"
)

// ApplyOverduePenalties evaluates every open payment of schedule against today
// and posts at most one charge per payment month. Payments one or more days
// past due are marked overdue. It returns the charges posted by this call.
//
// The charge amount is fixed on first detection; later runs never adjust it.
func ApplyOverduePenalties(schedule *domain.PaymentSchedule, rules domain.BusinessRules, today, now time.Time) ([]domain.PenaltyEntry, error) {
	today = utils.DateOnly(today)
	var posted []domain.PenaltyEntry

	for _, p := range schedule.Payments {
		if !p.IsOpen() || !utils.IsDateOverdue(p.DueDate, today) {
			continue
		}

		calc := penalty.Calculate(p.DueDate, today, rules, p.Amount)
		month := p.Month
		chargeable := calc.IsLate && calc.PenaltyAmount.IsPositive() && !schedule.AggregatedPenalty.HasCharge(month)

		err := schedule.UpdatePayment(month, func(sp *domain.ScheduledPayment) {
			sp.Status = domain.PaymentStatusOverdue
			if chargeable {
				sp.LateFee = calc.PenaltyAmount
			}
		})
		if err != nil {
			return posted, err
		}

		if chargeable {
			reason := fmt.Sprintf("Daily penalty for %s - %d days overdue", month, calc.DaysLate)
			posted = append(posted, schedule.Penalty().PostCharge(month, calc.PenaltyAmount, reason, now))
		}
	}

	return posted, nil
}

// Result summarizes one scan run.
type Result struct {
	Date            time.Time
	Scanned         int
	ChargesPosted   int
	SchedulesFailed int
	// Updated holds the schedules as written by this scan.
	Updated []*domain.PaymentSchedule
}

// UpdatedLeases returns the lease IDs of Updated.
func (r Result) UpdatedLeases() []string {
	ids := make([]string, 0, len(r.Updated))
	for _, s := range r.Updated {
		ids = append(ids, s.LeaseID)
	}
	return ids
}

// Scanner runs ApplyOverduePenalties over every schedule with an outstanding balance.
type Scanner struct {
	schedules repository.ScheduleRepository
	leases    repository.LeaseRepository
	logger    logrus.FieldLogger
	now       func() time.Time
}

func New(schedules repository.ScheduleRepository, leases repository.LeaseRepository, logger logrus.FieldLogger) *Scanner {
	return &Scanner{
		schedules: schedules,
		leases:    leases,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock used for ledger timestamps.
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// Scan processes each schedule in its own transaction. A failing schedule is
// logged and counted; it never undoes work done on the others. Only a failure
// to list schedules fails the scan.
func (s *Scanner) Scan(ctx context.Context, today time.Time) (Result, error) {
	today = utils.DateOnly(today)
	result := Result{Date: today}

	list, err := s.schedules.ListWithOutstandingBalance(ctx)
	if err != nil {
		return result, fmt.Errorf("list schedules with outstanding balance: %w", err)
	}

	for _, item := range list {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++
		log := s.logger.WithField("lease_id", item.LeaseID)

		rules, err := s.leases.GetBusinessRules(ctx, item.LeaseID)
		if err != nil {
			if errors.Is(err, customError.ErrLeaseNotFound) {
				log.Warn("Lease not found for schedule, skipping")
				continue
			}
			log.WithError(err).Error("Failed to load business rules")
			result.SchedulesFailed++
			continue
		}

		var (
			posted  []domain.PenaltyEntry
			written bool
		)
		saved, err := s.schedules.Update(ctx, item.LeaseID, func(schedule *domain.PaymentSchedule) error {
			before := statuses(schedule)
			var err error
			if posted, err = ApplyOverduePenalties(schedule, rules, today, s.now()); err != nil {
				return err
			}
			written = len(posted) > 0 || statusChanged(before, schedule)
			if !written {
				return repository.ErrSkipUpdate
			}
			return nil
		})
		if err != nil {
			log.WithError(err).Error("Failed to apply overdue penalties")
			result.SchedulesFailed++
			continue
		}

		for _, e := range posted {
			log.WithFields(logrus.Fields{
				"month":  e.PaymentMonth,
				"amount": e.Amount.String(),
			}).Info("Penalty charge posted")
		}
		if written {
			result.Updated = append(result.Updated, saved)
		}
		result.ChargesPosted += len(posted)
	}

	s.logger.WithFields(logrus.Fields{
		"date":             today.Format(utils.DateLayout),
		"scanned":          result.Scanned,
		"charges_posted":   result.ChargesPosted,
		"schedules_failed": result.SchedulesFailed,
	}).Info("Overdue scan finished")

	return result, nil
}

func statuses(s *domain.PaymentSchedule) []domain.PaymentStatus {
	out := make([]domain.PaymentStatus, len(s.Payments))
	for i, p := range s.Payments {
		out[i] = p.Status
	}
	return out
}

func statusChanged(before []domain.PaymentStatus, s *domain.PaymentSchedule) bool {
	for i, p := range s.Payments {
		if i >= len(before) || before[i] != p.Status {
			return true
		}
	}
	return false
}
