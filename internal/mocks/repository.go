package mocks

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/rental-billing/internal/domain"
	"github.com/segyhp/rental-billing/internal/repository"
)

type MockLeaseRepository struct {
	mock.Mock
}

func (m *MockLeaseRepository) Create(ctx context.Context, lease *domain.Lease) error {
	args := m.Called(ctx, lease)
	return args.Error(0)
}

func (m *MockLeaseRepository) GetByLeaseID(ctx context.Context, leaseID string) (*domain.Lease, error) {
	args := m.Called(ctx, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lease), args.Error(1)
}

func (m *MockLeaseRepository) GetBusinessRules(ctx context.Context, leaseID string) (domain.BusinessRules, error) {
	args := m.Called(ctx, leaseID)
	return args.Get(0).(domain.BusinessRules), args.Error(1)
}

type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) Create(ctx context.Context, schedule *domain.PaymentSchedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockScheduleRepository) GetByLeaseID(ctx context.Context, leaseID string) (*domain.PaymentSchedule, error) {
	args := m.Called(ctx, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentSchedule), args.Error(1)
}

// Update runs fn against a copy of the schedule given as the first return
// value. A nil schedule returns the configured error without calling fn.
func (m *MockScheduleRepository) Update(ctx context.Context, leaseID string, fn repository.UpdateFunc) (*domain.PaymentSchedule, error) {
	args := m.Called(ctx, leaseID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if err := args.Error(1); err != nil {
		return nil, err
	}

	stored := args.Get(0).(*domain.PaymentSchedule)
	working := stored.Clone()
	if err := fn(working); err != nil {
		if errors.Is(err, repository.ErrSkipUpdate) {
			return stored.Clone(), nil
		}
		return nil, err
	}
	working.Version++
	return working, nil
}

func (m *MockScheduleRepository) ListWithOutstandingBalance(ctx context.Context) ([]*domain.PaymentSchedule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentSchedule), args.Error(1)
}
