package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LeaseStatusActive     = "active"
	LeaseStatusEnded      = "ended"
	LeaseStatusTerminated = "terminated"
)

// Lease represents the contract between a facility and a renter for a room
type Lease struct {
	LeaseID              string          `json:"lease_id" db:"lease_id"`
	FacilityID           string          `json:"facility_id" db:"facility_id"`
	RoomID               string          `json:"room_id" db:"room_id"`
	RenterID             string          `json:"renter_id" db:"renter_id"`
	StartDate            time.Time       `json:"start_date" db:"start_date"`
	EndDate              time.Time       `json:"end_date" db:"end_date"`
	MonthlyRent          decimal.Decimal `json:"monthly_rent" db:"monthly_rent"`
	DepositAmount        decimal.Decimal `json:"deposit_amount" db:"deposit_amount"`
	DepositPaid          bool            `json:"deposit_paid" db:"deposit_paid"`
	DepositPaidDate      *time.Time      `json:"deposit_paid_date,omitempty" db:"deposit_paid_date"`
	DepositPaymentMethod string          `json:"deposit_payment_method,omitempty" db:"deposit_payment_method"`
	BusinessRules        BusinessRules   `json:"business_rules" db:"-"`
	Status               string          `json:"status" db:"status"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}
