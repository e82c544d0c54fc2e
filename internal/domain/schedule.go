package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/rental-billing/pkg/errors"
)

type PaymentType string

const (
	PaymentTypeRent          PaymentType = "rent"
	PaymentTypeDeposit       PaymentType = "deposit"
	PaymentTypeLateFee       PaymentType = "late_fee"
	PaymentTypeMaintenance   PaymentType = "maintenance"
	PaymentTypeDepositPayout PaymentType = "deposit_payout"
)

type PaymentStatus string

// Business logic constants
const (
	PaymentStatusPending         PaymentStatus = "pending"
	PaymentStatusPaid            PaymentStatus = "paid"
	PaymentStatusOverdue         PaymentStatus = "overdue"
	PaymentStatusPartial         PaymentStatus = "partial"
	PaymentStatusPendingApproval PaymentStatus = "pending_approval"
)

// ScheduledPayment is one obligation in a lease's payment schedule.
// Month is the stable key: "2025-01", "2025-01-deposit" or "2025-01-late-fee-1".
type ScheduledPayment struct {
	ID             uuid.UUID        `json:"id"`
	Month          string           `json:"month"`
	DueDate        time.Time        `json:"due_date"`
	Amount         decimal.Decimal  `json:"amount"`
	Type           PaymentType      `json:"type"`
	Status         PaymentStatus    `json:"status"`
	PaidAmount     decimal.Decimal  `json:"paid_amount"`
	PaidDate       *time.Time       `json:"paid_date,omitempty"`
	PaymentMethod  string           `json:"payment_method,omitempty"`
	LateFee        decimal.Decimal  `json:"late_fee"`
	Notes          string           `json:"notes,omitempty"`
	EditedBy       string           `json:"edited_by,omitempty"`
	EditedAt       *time.Time       `json:"edited_at,omitempty"`
	OriginalValues *PaymentSnapshot `json:"original_values,omitempty"`
}

// PaymentSnapshot captures the editable fields of a payment before an amendment.
type PaymentSnapshot struct {
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	Status        PaymentStatus   `json:"status"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaidDate      *time.Time      `json:"paid_date,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	LateFee       decimal.Decimal `json:"late_fee"`
	Notes         string          `json:"notes,omitempty"`
}

// Snapshot returns the editable fields of p.
func (p *ScheduledPayment) Snapshot() PaymentSnapshot {
	return PaymentSnapshot{
		Amount:        p.Amount,
		DueDate:       p.DueDate,
		Status:        p.Status,
		PaidAmount:    p.PaidAmount,
		PaidDate:      copyTime(p.PaidDate),
		PaymentMethod: p.PaymentMethod,
		LateFee:       p.LateFee,
		Notes:         p.Notes,
	}
}

// Restore puts the snapshot values back onto p.
func (p *ScheduledPayment) Restore(s PaymentSnapshot) {
	p.Amount = s.Amount
	p.DueDate = s.DueDate
	p.Status = s.Status
	p.PaidAmount = s.PaidAmount
	p.PaidDate = copyTime(s.PaidDate)
	p.PaymentMethod = s.PaymentMethod
	p.LateFee = s.LateFee
	p.Notes = s.Notes
}

// ResetCapture returns p to pending with all paid fields zeroed.
func (p *ScheduledPayment) ResetCapture() {
	p.Status = PaymentStatusPending
	p.PaidAmount = decimal.Zero
	p.PaidDate = nil
	p.PaymentMethod = ""
	p.LateFee = decimal.Zero
}

// Remaining is the part of Amount not yet paid, never negative.
func (p *ScheduledPayment) Remaining() decimal.Decimal {
	rest := p.Amount.Sub(p.PaidAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// SettledStatus derives paid/partial/pending from the paid amount.
func (p *ScheduledPayment) SettledStatus() PaymentStatus {
	switch {
	case p.PaidAmount.GreaterThanOrEqual(p.Amount) && p.Amount.IsPositive():
		return PaymentStatusPaid
	case p.PaidAmount.IsPositive():
		return PaymentStatusPartial
	default:
		return PaymentStatusPending
	}
}

// IsOpen reports whether the overdue scan should look at p. Late fee
// receipts never accrue a penalty of their own.
func (p *ScheduledPayment) IsOpen() bool {
	if p.Type == PaymentTypeLateFee {
		return false
	}
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusOverdue
}

// PaymentPatch lists the fields an amendment may change. Nil fields are left alone.
type PaymentPatch struct {
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	DueDate       *time.Time       `json:"due_date,omitempty"`
	PaidAmount    *decimal.Decimal `json:"paid_amount,omitempty"`
	PaidDate      *time.Time       `json:"paid_date,omitempty"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	LateFee       *decimal.Decimal `json:"late_fee,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}

// Apply copies the non-nil patch fields onto p.
func (patch PaymentPatch) Apply(p *ScheduledPayment) {
	if patch.Amount != nil {
		p.Amount = *patch.Amount
	}
	if patch.DueDate != nil {
		p.DueDate = *patch.DueDate
	}
	if patch.PaidAmount != nil {
		p.PaidAmount = *patch.PaidAmount
	}
	if patch.PaidDate != nil {
		p.PaidDate = copyTime(patch.PaidDate)
	}
	if patch.PaymentMethod != nil {
		p.PaymentMethod = *patch.PaymentMethod
	}
	if patch.LateFee != nil {
		p.LateFee = *patch.LateFee
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
}

// PaymentSchedule is the aggregate root holding every obligation of one lease.
// TotalAmount/TotalPaid/OutstandingAmount cover Payments only; the penalty
// ledger keeps its own balance.
type PaymentSchedule struct {
	ID                uuid.UUID          `json:"id"`
	LeaseID           string             `json:"lease_id"`
	FacilityID        string             `json:"facility_id"`
	RoomID            string             `json:"room_id"`
	RenterID          string             `json:"renter_id"`
	Payments          []ScheduledPayment `json:"payments"`
	AggregatedPenalty *AggregatedPenalty `json:"aggregated_penalty,omitempty"`
	TotalAmount       decimal.Decimal    `json:"total_amount"`
	TotalPaid         decimal.Decimal    `json:"total_paid"`
	OutstandingAmount decimal.Decimal    `json:"outstanding_amount"`
	Version           int64              `json:"version"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Payment returns a copy of the payment stored under month.
func (s *PaymentSchedule) Payment(month string) (ScheduledPayment, bool) {
	if i := s.indexOf(month); i >= 0 {
		return s.Payments[i], true
	}
	return ScheduledPayment{}, false
}

// UpdatePayment is the only way to mutate an existing payment. Totals are
// recomputed after mutate returns.
func (s *PaymentSchedule) UpdatePayment(month string, mutate func(p *ScheduledPayment)) error {
	i := s.indexOf(month)
	if i < 0 {
		return customError.WrapPaymentNotFound(s.LeaseID, month)
	}
	mutate(&s.Payments[i])
	s.RecalculateTotals()
	return nil
}

// AppendPayment adds a new payment. The month key must not exist yet.
func (s *PaymentSchedule) AppendPayment(p ScheduledPayment) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.Payments = append(s.Payments, p)
	s.RecalculateTotals()
}

// RecalculateTotals recomputes the running rent/deposit totals from Payments.
func (s *PaymentSchedule) RecalculateTotals() {
	total := decimal.Zero
	paid := decimal.Zero
	for _, p := range s.Payments {
		total = total.Add(p.Amount)
		paid = paid.Add(p.PaidAmount)
	}
	s.TotalAmount = total
	s.TotalPaid = paid
	s.OutstandingAmount = total.Sub(paid)
}

// Penalty returns the schedule's penalty ledger, creating an empty one on first use.
func (s *PaymentSchedule) Penalty() *AggregatedPenalty {
	if s.AggregatedPenalty == nil {
		s.AggregatedPenalty = NewAggregatedPenalty()
	}
	return s.AggregatedPenalty
}

// Clone returns a deep copy safe to mutate independently.
func (s *PaymentSchedule) Clone() *PaymentSchedule {
	if s == nil {
		return nil
	}
	c := *s
	c.Payments = make([]ScheduledPayment, len(s.Payments))
	for i, p := range s.Payments {
		p.PaidDate = copyTime(p.PaidDate)
		p.EditedAt = copyTime(p.EditedAt)
		if p.OriginalValues != nil {
			snap := *p.OriginalValues
			snap.PaidDate = copyTime(snap.PaidDate)
			p.OriginalValues = &snap
		}
		c.Payments[i] = p
	}
	c.AggregatedPenalty = s.AggregatedPenalty.Clone()
	return &c
}

func (s *PaymentSchedule) indexOf(month string) int {
	for i := range s.Payments {
		if s.Payments[i].Month == month {
			return i
		}
	}
	return -1
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
