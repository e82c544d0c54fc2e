package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/segyhp/rental-billing/internal/domain"
	customError "github.com/segyhp/rental-billing/pkg/errors"
)

// Memory is an in-process LeaseRepository and ScheduleRepository for
// development and tests. Stored values are deep copies; callers never share
// state with the store.
type Memory struct {
	mu        sync.Mutex
	leases    map[string]domain.Lease
	schedules map[string]*domain.PaymentSchedule
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		leases:    make(map[string]domain.Lease),
		schedules: make(map[string]*domain.PaymentSchedule),
		now:       time.Now,
	}
}

// Leases returns the lease half of the store.
func (m *Memory) Leases() LeaseRepository { return memoryLeases{m} }

// Schedules returns the schedule half of the store.
func (m *Memory) Schedules() ScheduleRepository { return memorySchedules{m} }

type memoryLeases struct{ m *Memory }

func (r memoryLeases) Create(_ context.Context, lease *domain.Lease) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.leases[lease.LeaseID]; ok {
		return customError.WrapLeaseAlreadyExists(lease.LeaseID)
	}
	stored := *lease
	stored.BusinessRules.PaymentMethods = append([]string(nil), lease.BusinessRules.PaymentMethods...)
	r.m.leases[lease.LeaseID] = stored
	return nil
}

func (r memoryLeases) GetByLeaseID(_ context.Context, leaseID string) (*domain.Lease, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	lease, ok := r.m.leases[leaseID]
	if !ok {
		return nil, customError.WrapLeaseNotFound(leaseID)
	}
	return &lease, nil
}

func (r memoryLeases) GetBusinessRules(ctx context.Context, leaseID string) (domain.BusinessRules, error) {
	lease, err := r.GetByLeaseID(ctx, leaseID)
	if err != nil {
		return domain.BusinessRules{}, err
	}
	return lease.BusinessRules, nil
}

type memorySchedules struct{ m *Memory }

func (r memorySchedules) Create(_ context.Context, schedule *domain.PaymentSchedule) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.schedules[schedule.LeaseID]; ok {
		return customError.WrapLeaseAlreadyExists(schedule.LeaseID)
	}
	now := r.m.now()
	schedule.Version = 1
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	r.m.schedules[schedule.LeaseID] = schedule.Clone()
	return nil
}

func (r memorySchedules) GetByLeaseID(_ context.Context, leaseID string) (*domain.PaymentSchedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.schedules[leaseID]
	if !ok {
		return nil, customError.WrapScheduleNotFound(leaseID)
	}
	return s.Clone(), nil
}

func (r memorySchedules) Update(_ context.Context, leaseID string, fn UpdateFunc) (*domain.PaymentSchedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.schedules[leaseID]
	if !ok {
		return nil, customError.WrapScheduleNotFound(leaseID)
	}

	working := stored.Clone()
	if err := fn(working); err != nil {
		if errors.Is(err, ErrSkipUpdate) {
			return stored.Clone(), nil
		}
		return nil, err
	}

	working.Version++
	working.UpdatedAt = r.m.now()
	r.m.schedules[leaseID] = working.Clone()
	return working, nil
}

func (r memorySchedules) ListWithOutstandingBalance(_ context.Context) ([]*domain.PaymentSchedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := make([]*domain.PaymentSchedule, 0, len(r.m.schedules))
	for _, s := range r.m.schedules {
		if s.OutstandingAmount.IsPositive() {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeaseID < out[j].LeaseID })
	return out, nil
}
