package repository

import (
	"context"
	"errors"

	"github.com/segyhp/rental-billing/internal/domain"
)

// ErrSkipUpdate may be returned by an UpdateFunc to end the transaction
// without writing. Update then returns nil.
var ErrSkipUpdate = errors.New("skip update")

// UpdateFunc mutates a schedule loaded inside an Update transaction.
type UpdateFunc func(schedule *domain.PaymentSchedule) error

// LeaseRepository defines the interface for lease data operations
type LeaseRepository interface {
	// Create stores a new lease
	Create(ctx context.Context, lease *domain.Lease) error

	// GetByLeaseID retrieves a lease by its lease ID
	GetByLeaseID(ctx context.Context, leaseID string) (*domain.Lease, error)

	// GetBusinessRules retrieves the late-fee rules attached to a lease
	GetBusinessRules(ctx context.Context, leaseID string) (domain.BusinessRules, error)
}

// ScheduleRepository defines the interface for payment schedule data operations.
// A schedule is read and written as a whole document.
type ScheduleRepository interface {
	// Create stores a freshly generated schedule
	Create(ctx context.Context, schedule *domain.PaymentSchedule) error

	// GetByLeaseID retrieves the schedule of a lease
	GetByLeaseID(ctx context.Context, leaseID string) (*domain.PaymentSchedule, error)

	// Update loads, mutates and saves one schedule as a single transaction
	Update(ctx context.Context, leaseID string, fn UpdateFunc) (*domain.PaymentSchedule, error)

	// ListWithOutstandingBalance returns every schedule whose OutstandingAmount is above zero
	ListWithOutstandingBalance(ctx context.Context) ([]*domain.PaymentSchedule, error)
}
