package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/rental-billing/internal/domain"
)

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) Today() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

func (m *MockBillingService) CreateLease(ctx context.Context, req *domain.CreateLeaseRequest) (*domain.CreateLeaseResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreateLeaseResponse), args.Error(1)
}

func (m *MockBillingService) GetSchedule(ctx context.Context, leaseID string) (*domain.PaymentSchedule, error) {
	args := m.Called(ctx, leaseID)
	return scheduleResult(args)
}

func (m *MockBillingService) CapturePayment(ctx context.Context, leaseID string, req *domain.CapturePaymentRequest) (*domain.PaymentSchedule, error) {
	args := m.Called(ctx, leaseID, req)
	return scheduleResult(args)
}

func (m *MockBillingService) ReversePayment(ctx context.Context, leaseID, month string) (*domain.PaymentSchedule, error) {
	args := m.Called(ctx, leaseID, month)
	return scheduleResult(args)
}

func (m *MockBillingService) AmendPayment(ctx context.Context, leaseID, month string, req *domain.AmendPaymentRequest) (*domain.PaymentSchedule, error) {
	args := m.Called(ctx, leaseID, month, req)
	return scheduleResult(args)
}

func (m *MockBillingService) ApproveAmendment(ctx context.Context, leaseID, month string) (*domain.PaymentSchedule, error) {
	args := m.Called(ctx, leaseID, month)
	return scheduleResult(args)
}

func (m *MockBillingService) RejectAmendment(ctx context.Context, leaseID, month string) (*domain.PaymentSchedule, error) {
	args := m.Called(ctx, leaseID, month)
	return scheduleResult(args)
}

func (m *MockBillingService) GetPenaltySummary(ctx context.Context, leaseID string) (*domain.PenaltySummary, error) {
	args := m.Called(ctx, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PenaltySummary), args.Error(1)
}

func (m *MockBillingService) ApplyPenaltyPayment(ctx context.Context, leaseID string, req *domain.PenaltyPaymentRequest) (*domain.PenaltyPaymentResponse, error) {
	args := m.Called(ctx, leaseID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PenaltyPaymentResponse), args.Error(1)
}

func (m *MockBillingService) PostPenaltyCharge(ctx context.Context, leaseID string, req *domain.PenaltyChargeRequest) (*domain.PenaltySummary, error) {
	args := m.Called(ctx, leaseID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PenaltySummary), args.Error(1)
}

func (m *MockBillingService) UpcomingPayments(ctx context.Context, today time.Time, days int) ([]domain.UpcomingPayment, error) {
	args := m.Called(ctx, today, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UpcomingPayment), args.Error(1)
}

func (m *MockBillingService) ScanOverdue(ctx context.Context, today time.Time) (*domain.ScanResponse, error) {
	args := m.Called(ctx, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanResponse), args.Error(1)
}

func scheduleResult(args mock.Arguments) (*domain.PaymentSchedule, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentSchedule), args.Error(1)
}
