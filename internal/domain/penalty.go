package domain

import (
	"time"

	"github.com/shopspring/decimal"

	customError "github.com/segyhp/rental-billing/pkg/errors"
	"github.com/segyhp/rental-billing/pkg/utils"
)

// PenaltyEntry is one posted penalty charge.
type PenaltyEntry struct {
	Date         time.Time       `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason"`
	PaymentMonth string          `json:"payment_month"`
}

// AggregatedPenalty is the running penalty ledger of one lease.
//
// Invariants after every operation:
//   - 0 <= PaidAmount <= TotalAmount
//   - OutstandingAmount == TotalAmount - PaidAmount
//   - CalculationHistory is append-only, one entry per posted charge
type AggregatedPenalty struct {
	TotalAmount        decimal.Decimal `json:"total_amount"`
	PaidAmount         decimal.Decimal `json:"paid_amount"`
	OutstandingAmount  decimal.Decimal `json:"outstanding_amount"`
	LastCalculated     time.Time       `json:"last_calculated"`
	CalculationHistory []PenaltyEntry  `json:"calculation_history"`

	// charged indexes CalculationHistory by PaymentMonth. Built lazily since
	// it is not persisted.
	charged map[string]struct{}
}

func NewAggregatedPenalty() *AggregatedPenalty {
	return &AggregatedPenalty{
		TotalAmount:        decimal.Zero,
		PaidAmount:         decimal.Zero,
		OutstandingAmount:  decimal.Zero,
		CalculationHistory: []PenaltyEntry{},
	}
}

// PostCharge appends a charge for paymentMonth and grows the total.
// It does not deduplicate; callers check HasCharge first.
func (l *AggregatedPenalty) PostCharge(paymentMonth string, amount decimal.Decimal, reason string, now time.Time) PenaltyEntry {
	entry := PenaltyEntry{
		Date:         now,
		Amount:       amount,
		Reason:       reason,
		PaymentMonth: paymentMonth,
	}
	l.ensureIndex()
	l.CalculationHistory = append(l.CalculationHistory, entry)
	l.charged[paymentMonth] = struct{}{}

	l.TotalAmount = l.TotalAmount.Add(amount)
	l.OutstandingAmount = l.TotalAmount.Sub(l.PaidAmount)
	l.LastCalculated = now
	return entry
}

// ApplyPayment records a penalty payment and returns the amount actually applied.
// Payments beyond the outstanding balance are capped, not carried as credit.
// Payments are not written to CalculationHistory.
func (l *AggregatedPenalty) ApplyPayment(amount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, customError.WrapInvalidAmount(amount.String())
	}

	newPaid := utils.MinDecimal(l.PaidAmount.Add(amount), l.TotalAmount)
	applied := newPaid.Sub(l.PaidAmount)

	l.PaidAmount = newPaid
	l.OutstandingAmount = l.TotalAmount.Sub(newPaid)
	l.LastCalculated = now
	return applied, nil
}

// HasCharge reports whether a charge was ever posted for paymentMonth.
func (l *AggregatedPenalty) HasCharge(paymentMonth string) bool {
	if l == nil {
		return false
	}
	l.ensureIndex()
	_, ok := l.charged[paymentMonth]
	return ok
}

// ChargesFor returns the history entries posted for paymentMonth.
func (l *AggregatedPenalty) ChargesFor(paymentMonth string) []PenaltyEntry {
	if l == nil {
		return nil
	}
	var out []PenaltyEntry
	for _, e := range l.CalculationHistory {
		if e.PaymentMonth == paymentMonth {
			out = append(out, e)
		}
	}
	return out
}

func (l *AggregatedPenalty) Clone() *AggregatedPenalty {
	if l == nil {
		return nil
	}
	c := *l
	c.CalculationHistory = append([]PenaltyEntry(nil), l.CalculationHistory...)
	c.charged = nil
	return &c
}

func (l *AggregatedPenalty) ensureIndex() {
	if l.charged != nil {
		return
	}
	l.charged = make(map[string]struct{}, len(l.CalculationHistory))
	for _, e := range l.CalculationHistory {
		l.charged[e.PaymentMonth] = struct{}{}
	}
}
