package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/rental-billing/pkg/utils"
)

// Date is a calendar date carried as "YYYY-MM-DD" in JSON payloads.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(utils.DateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := utils.ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Ptr returns nil for the zero date.
func (d Date) Ptr() *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// DTOs for requests and responses

type BusinessRulesRequest struct {
	LateFeeAmount   decimal.Decimal `json:"late_fee_amount" validate:"decimal_gte=0"`
	LateFeeStartDay int             `json:"late_fee_start_day" validate:"gte=0"`
	GracePeriodDays int             `json:"grace_period_days" validate:"gte=0"`
	ChildSurcharge  decimal.Decimal `json:"child_surcharge" validate:"decimal_gte=0"`
	PaymentMethods  []string        `json:"payment_methods" validate:"dive,required"`
}

func (r BusinessRulesRequest) Rules() BusinessRules {
	return BusinessRules{
		LateFeeAmount:   r.LateFeeAmount,
		LateFeeStartDay: r.LateFeeStartDay,
		GracePeriodDays: r.GracePeriodDays,
		ChildSurcharge:  r.ChildSurcharge,
		PaymentMethods:  append([]string(nil), r.PaymentMethods...),
	}
}

type CreateLeaseRequest struct {
	LeaseID              string               `json:"lease_id" validate:"required"`
	FacilityID           string               `json:"facility_id" validate:"required"`
	RoomID               string               `json:"room_id" validate:"required"`
	RenterID             string               `json:"renter_id" validate:"required"`
	StartDate            Date                 `json:"start_date"`
	EndDate              Date                 `json:"end_date"`
	MonthlyRent          decimal.Decimal      `json:"monthly_rent" validate:"decimal_gt=0"`
	DepositAmount        decimal.Decimal      `json:"deposit_amount" validate:"decimal_gte=0"`
	DepositPaid          bool                 `json:"deposit_paid"`
	DepositPaidDate      Date                 `json:"deposit_paid_date"`
	DepositPaymentMethod string               `json:"deposit_payment_method"`
	BusinessRules        BusinessRulesRequest `json:"business_rules"`
	IncludeDeposit       *bool                `json:"include_deposit,omitempty"`
	DueDatePolicy        string               `json:"due_date_policy,omitempty" validate:"omitempty,oneof=first_day last_day"`
}

type CreateLeaseResponse struct {
	Lease    *Lease           `json:"lease"`
	Schedule *PaymentSchedule `json:"schedule"`
}

// CapturePaymentRequest records money received against one scheduled payment
// and, optionally, against the penalty ledger in the same operation.
type CapturePaymentRequest struct {
	Month         string          `json:"month" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	PaidDate      Date            `json:"paid_date"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	PenaltyAmount decimal.Decimal `json:"penalty_amount" validate:"decimal_gte=0"`
	Notes         string          `json:"notes"`
}

type PenaltyPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Notes         string          `json:"notes"`
}

type PenaltyChargeRequest struct {
	PaymentMonth string          `json:"payment_month" validate:"required"`
	Amount       decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	Reason       string          `json:"reason" validate:"required"`
}

type AmendPaymentRequest struct {
	EditedBy string       `json:"edited_by" validate:"required"`
	Patch    PaymentPatch `json:"patch"`
}

type PenaltySummary struct {
	LeaseID           string          `json:"lease_id"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	LastCalculated    time.Time       `json:"last_calculated"`
	History           []PenaltyEntry  `json:"history"`
	// ByMonth totals the charges posted against each payment month.
	ByMonth map[string]decimal.Decimal `json:"by_month"`
}

// PenaltyPaymentResponse reports how much of a penalty payment the ledger took.
type PenaltyPaymentResponse struct {
	Applied decimal.Decimal `json:"applied"`
	Penalty PenaltySummary  `json:"penalty"`
}

type UpcomingPayment struct {
	LeaseID  string          `json:"lease_id"`
	RenterID string          `json:"renter_id"`
	RoomID   string          `json:"room_id"`
	Month    string          `json:"month"`
	DueDate  time.Time       `json:"due_date"`
	Amount   decimal.Decimal `json:"amount"`
	Status   PaymentStatus   `json:"status"`
}

type ScanResponse struct {
	Date            string `json:"date"`
	Scanned         int    `json:"scanned"`
	ChargesPosted   int    `json:"charges_posted"`
	SchedulesFailed int    `json:"schedules_failed"`
}
