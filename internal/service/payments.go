package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/rental-billing/internal/domain"
	"github.com/segyhp/rental-billing/internal/penalty"
	customError "github.com/segyhp/rental-billing/pkg/errors"
	"github.com/segyhp/rental-billing/pkg/utils"
)

// CapturePayment records money received against one scheduled payment. The
// entry becomes paid once fully covered and partial otherwise; amounts above
// the remaining balance are rejected. When the
// request carries a penalty amount it is applied to the penalty ledger in the
// same transaction and receipted as a paid late_fee entry.
func (s *BillingService) CapturePayment(ctx context.Context, leaseID string, req *domain.CapturePaymentRequest) (*domain.PaymentSchedule, error) {
	if !req.Amount.IsPositive() {
		return nil, customError.WrapInvalidAmount(req.Amount.String())
	}
	if req.PenaltyAmount.IsNegative() {
		return nil, customError.WrapInvalidAmount(req.PenaltyAmount.String())
	}

	rules, err := s.leases.GetBusinessRules(ctx, leaseID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	if !rules.AllowsMethod(req.PaymentMethod) {
		return nil, customError.WrapPaymentMethodNotAllowed(req.PaymentMethod)
	}

	paidDate := s.Today()
	if !req.PaidDate.IsZero() {
		paidDate = utils.DateOnly(req.PaidDate.Time)
	}
	now := s.now()

	var lateFee decimal.Decimal
	sched, err := s.update(ctx, leaseID, func(sched *domain.PaymentSchedule) error {
		current, ok := sched.Payment(req.Month)
		if !ok {
			return customError.WrapPaymentNotFound(leaseID, req.Month)
		}
		if current.Status == domain.PaymentStatusPendingApproval {
			return customError.WrapAmendmentPending(req.Month)
		}
		// an overpaid entry would hide the other months from the overdue scan
		if remaining := current.Remaining(); req.Amount.GreaterThan(remaining) {
			return customError.WrapAmountExceedsBalance(req.Amount.String(), remaining.String())
		}

		err := sched.UpdatePayment(req.Month, func(p *domain.ScheduledPayment) {
			p.PaidAmount = p.PaidAmount.Add(req.Amount)
			p.PaidDate = &paidDate
			p.PaymentMethod = req.PaymentMethod
			if req.Notes != "" {
				p.Notes = req.Notes
			}
			p.Status = p.SettledStatus()

			// a fee already fixed by the overdue scan is kept as is
			if calc := penalty.Calculate(p.DueDate, paidDate, rules, p.Amount); calc.IsLate && p.LateFee.IsZero() {
				p.LateFee = calc.PenaltyAmount
			}
			lateFee = p.LateFee
		})
		if err != nil {
			return err
		}

		if req.PenaltyAmount.IsPositive() {
			receiptPenaltyPayment(sched, baseMonth(req.Month), req.PenaltyAmount, paidDate, req.PaymentMethod, req.Notes, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lease_id": leaseID,
		"month":    req.Month,
		"amount":   req.Amount.String(),
		"late_fee": lateFee.String(),
	}).Info("Payment captured")

	return sched, nil
}

// ReversePayment undoes a capture: the entry returns to pending with every
// paid field zeroed. Posted penalty charges stay in the ledger. Late fee
// receipts mirror a ledger payment and cannot be reversed here.
func (s *BillingService) ReversePayment(ctx context.Context, leaseID, month string) (*domain.PaymentSchedule, error) {
	sched, err := s.update(ctx, leaseID, func(sched *domain.PaymentSchedule) error {
		p, ok := sched.Payment(month)
		if !ok {
			return customError.WrapPaymentNotFound(leaseID, month)
		}
		if p.Type == domain.PaymentTypeLateFee {
			return customError.WrapReceiptNotReversible(month)
		}
		if p.Status == domain.PaymentStatusPendingApproval {
			return customError.WrapAmendmentPending(month)
		}
		if p.PaidAmount.IsZero() && p.PaidDate == nil {
			return customError.WrapPaymentNotCaptured(month)
		}
		return sched.UpdatePayment(month, func(p *domain.ScheduledPayment) {
			p.ResetCapture()
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"lease_id": leaseID, "month": month}).Info("Payment reversed")
	return sched, nil
}

// AmendPayment edits a payment and parks it in pending_approval. The values
// before the first unapproved edit are kept in OriginalValues so a rejection
// can restore them; further edits stack on the same snapshot.
func (s *BillingService) AmendPayment(ctx context.Context, leaseID, month string, req *domain.AmendPaymentRequest) (*domain.PaymentSchedule, error) {
	patch := req.Patch
	if patch.Amount != nil && !patch.Amount.IsPositive() {
		return nil, customError.WrapInvalidAmount(patch.Amount.String())
	}
	if patch.PaidAmount != nil && patch.PaidAmount.IsNegative() {
		return nil, customError.WrapInvalidAmount(patch.PaidAmount.String())
	}
	if patch.LateFee != nil && patch.LateFee.IsNegative() {
		return nil, customError.WrapInvalidAmount(patch.LateFee.String())
	}
	if patch.PaymentMethod != nil && *patch.PaymentMethod != "" {
		rules, err := s.leases.GetBusinessRules(ctx, leaseID)
		if err != nil {
			return nil, wrapRepositoryError(err)
		}
		if !rules.AllowsMethod(*patch.PaymentMethod) {
			return nil, customError.WrapPaymentMethodNotAllowed(*patch.PaymentMethod)
		}
	}

	now := s.now()
	sched, err := s.update(ctx, leaseID, func(sched *domain.PaymentSchedule) error {
		current, ok := sched.Payment(month)
		if !ok {
			return customError.WrapPaymentNotFound(leaseID, month)
		}
		amount, paid := current.Amount, current.PaidAmount
		if patch.Amount != nil {
			amount = *patch.Amount
		}
		if patch.PaidAmount != nil {
			paid = *patch.PaidAmount
		}
		if paid.GreaterThan(amount) {
			return customError.WrapAmountExceedsBalance(paid.String(), amount.String())
		}

		return sched.UpdatePayment(month, func(p *domain.ScheduledPayment) {
			if p.OriginalValues == nil {
				snap := p.Snapshot()
				p.OriginalValues = &snap
			}
			patch.Apply(p)
			p.Status = domain.PaymentStatusPendingApproval
			p.EditedBy = req.EditedBy
			p.EditedAt = &now
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lease_id":  leaseID,
		"month":     month,
		"edited_by": req.EditedBy,
	}).Info("Payment amendment submitted")
	return sched, nil
}

// ApproveAmendment accepts the pending edit. The status is derived from the
// amended paid amount.
func (s *BillingService) ApproveAmendment(ctx context.Context, leaseID, month string) (*domain.PaymentSchedule, error) {
	sched, err := s.update(ctx, leaseID, func(sched *domain.PaymentSchedule) error {
		if err := requirePendingAmendment(sched, leaseID, month); err != nil {
			return err
		}
		return sched.UpdatePayment(month, func(p *domain.ScheduledPayment) {
			p.OriginalValues = nil
			p.Status = p.SettledStatus()
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"lease_id": leaseID, "month": month}).Info("Payment amendment approved")
	return sched, nil
}

// RejectAmendment restores the payment to its values before the edit.
func (s *BillingService) RejectAmendment(ctx context.Context, leaseID, month string) (*domain.PaymentSchedule, error) {
	sched, err := s.update(ctx, leaseID, func(sched *domain.PaymentSchedule) error {
		if err := requirePendingAmendment(sched, leaseID, month); err != nil {
			return err
		}
		return sched.UpdatePayment(month, func(p *domain.ScheduledPayment) {
			p.Restore(*p.OriginalValues)
			p.OriginalValues = nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"lease_id": leaseID, "month": month}).Info("Payment amendment rejected")
	return sched, nil
}

func requirePendingAmendment(sched *domain.PaymentSchedule, leaseID, month string) error {
	p, ok := sched.Payment(month)
	if !ok {
		return customError.WrapPaymentNotFound(leaseID, month)
	}
	if p.Status != domain.PaymentStatusPendingApproval || p.OriginalValues == nil {
		return customError.WrapNoPendingAmendment(month)
	}
	return nil
}

// receiptPenaltyPayment applies amount to the ledger and, when anything was
// applied, appends a settled late_fee entry keyed "<month>-late-fee-<n>".
// The entry is paid in full so the schedule's outstanding balance is unchanged.
func receiptPenaltyPayment(sched *domain.PaymentSchedule, month string, amount decimal.Decimal, paidDate time.Time, method, notes string, now time.Time) decimal.Decimal {
	applied, err := sched.Penalty().ApplyPayment(amount, now)
	if err != nil || applied.IsZero() {
		return decimal.Zero
	}

	paid := paidDate
	sched.AppendPayment(domain.ScheduledPayment{
		Month:         lateFeeKey(sched, month),
		DueDate:       paidDate,
		Amount:        applied,
		Type:          domain.PaymentTypeLateFee,
		Status:        domain.PaymentStatusPaid,
		PaidAmount:    applied,
		PaidDate:      &paid,
		PaymentMethod: method,
		LateFee:       decimal.Zero,
		Notes:         notes,
	})
	return applied
}

func lateFeeKey(sched *domain.PaymentSchedule, month string) string {
	prefix := month + "-late-fee-"
	n := 1
	for _, p := range sched.Payments {
		if strings.HasPrefix(p.Month, prefix) {
			n++
		}
	}
	return fmt.Sprintf("%s%d", prefix, n)
}

// baseMonth trims a synthetic key such as "2025-01-deposit" to "2025-01".
func baseMonth(key string) string {
	if len(key) > 7 {
		return key[:7]
	}
	return key
}
