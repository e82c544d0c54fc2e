package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/segyhp/rental-billing/internal/config"
	"github.com/segyhp/rental-billing/internal/domain"
	"github.com/segyhp/rental-billing/internal/repository"
	"github.com/segyhp/rental-billing/internal/scanner"
	"github.com/segyhp/rental-billing/internal/schedule"
	customError "github.com/segyhp/rental-billing/pkg/errors"
	"github.com/segyhp/rental-billing/pkg/utils"
)

// ScheduleCache is the read-through cache in front of the schedule repository.
type ScheduleCache interface {
	Get(ctx context.Context, leaseID string) (*domain.PaymentSchedule, error)
	Set(ctx context.Context, schedule *domain.PaymentSchedule) error
	Delete(ctx context.Context, leaseID string) error
}

type BillingService struct {
	leases    repository.LeaseRepository
	schedules repository.ScheduleRepository
	cache     ScheduleCache
	scanner   *scanner.Scanner
	config    *config.Config
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewBillingService wires the service. cache may be nil to run without Redis.
func NewBillingService(
	leases repository.LeaseRepository,
	schedules repository.ScheduleRepository,
	cache ScheduleCache,
	config *config.Config,
	logger logrus.FieldLogger,
) *BillingService {
	return &BillingService{
		leases:    leases,
		schedules: schedules,
		cache:     cache,
		scanner:   scanner.New(schedules, leases, logger),
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock, for tests and replays.
func (s *BillingService) WithClock(now func() time.Time) *BillingService {
	s.now = now
	s.scanner.WithClock(now)
	return s
}

// Today is the current calendar date in the configured timezone.
func (s *BillingService) Today() time.Time {
	return utils.DateOnly(s.now().In(s.config.Location()))
}

// CreateLease stores a lease and its generated payment schedule
func (s *BillingService) CreateLease(ctx context.Context, req *domain.CreateLeaseRequest) (*domain.CreateLeaseResponse, error) {
	if req.StartDate.IsZero() || req.EndDate.IsZero() || req.EndDate.Before(req.StartDate.Time) {
		return nil, customError.WrapInvalidLeaseTerm(req.StartDate.Format(utils.DateLayout), req.EndDate.Format(utils.DateLayout))
	}
	if !req.MonthlyRent.IsPositive() {
		return nil, customError.WrapInvalidAmount(req.MonthlyRent.String())
	}
	if req.DepositAmount.IsNegative() {
		return nil, customError.WrapInvalidAmount(req.DepositAmount.String())
	}

	rules := req.BusinessRules.Rules()
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	opts, err := s.scheduleOptions(req)
	if err != nil {
		return nil, err
	}

	// Check if lease already exists
	_, err = s.leases.GetByLeaseID(ctx, req.LeaseID)
	if err == nil {
		return nil, customError.WrapLeaseAlreadyExists(req.LeaseID)
	}
	if !errors.Is(err, customError.ErrLeaseNotFound) {
		return nil, customError.WrapDatabaseError(err)
	}

	now := s.now()
	lease := &domain.Lease{
		LeaseID:              req.LeaseID,
		FacilityID:           req.FacilityID,
		RoomID:               req.RoomID,
		RenterID:             req.RenterID,
		StartDate:            utils.DateOnly(req.StartDate.Time),
		EndDate:              utils.DateOnly(req.EndDate.Time),
		MonthlyRent:          req.MonthlyRent,
		DepositAmount:        req.DepositAmount,
		DepositPaid:          req.DepositPaid,
		DepositPaidDate:      req.DepositPaidDate.Ptr(),
		DepositPaymentMethod: req.DepositPaymentMethod,
		BusinessRules:        rules,
		Status:               domain.LeaseStatusActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	sched := schedule.Generate(*lease, opts)

	if err := s.leases.Create(ctx, lease); err != nil {
		return nil, wrapRepositoryError(err)
	}
	// The lease row is not rolled back if this fails; a retry reports the lease as existing.
	if err := s.schedules.Create(ctx, sched); err != nil {
		return nil, wrapRepositoryError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"lease_id": lease.LeaseID,
		"payments": len(sched.Payments),
		"total":    sched.TotalAmount.String(),
	}).Info("Lease created")

	return &domain.CreateLeaseResponse{Lease: lease, Schedule: sched}, nil
}

func (s *BillingService) scheduleOptions(req *domain.CreateLeaseRequest) (schedule.Options, error) {
	policy := s.config.DueDatePolicy()
	if req.DueDatePolicy != "" {
		p, err := schedule.ParseDueDatePolicy(req.DueDatePolicy)
		if err != nil {
			return schedule.Options{}, customError.WrapInvalidBusinessRules(err.Error())
		}
		policy = p
	}

	includeDeposit := s.config.Business.IncludeDeposit
	if req.IncludeDeposit != nil {
		includeDeposit = *req.IncludeDeposit
	}
	// a zero deposit has nothing to collect
	if !req.DepositAmount.IsPositive() {
		includeDeposit = false
	}

	return schedule.Options{IncludeDeposit: includeDeposit, DueDatePolicy: policy}, nil
}

// GetSchedule returns the payment schedule of a lease, served from cache when possible
func (s *BillingService) GetSchedule(ctx context.Context, leaseID string) (*domain.PaymentSchedule, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, leaseID)
		if err != nil {
			s.logger.WithError(customError.WrapCacheError(err)).WithField("lease_id", leaseID).Warn("Schedule cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	sched, err := s.schedules.GetByLeaseID(ctx, leaseID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, sched); err != nil {
			s.logger.WithError(customError.WrapCacheError(err)).WithField("lease_id", leaseID).Warn("Schedule cache write failed")
		}
	}
	return sched, nil
}

// update runs fn inside the repository's read-modify-write and caches the
// committed schedule.
func (s *BillingService) update(ctx context.Context, leaseID string, fn repository.UpdateFunc) (*domain.PaymentSchedule, error) {
	sched, err := s.schedules.Update(ctx, leaseID, fn)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	s.refresh(ctx, sched)
	return sched, nil
}

// refresh replaces the cached copy with a committed write. The cache rejects
// versions older than the one it holds, so a concurrent read-through of the
// previous version cannot overwrite it. If the write fails the entry is dropped.
func (s *BillingService) refresh(ctx context.Context, sched *domain.PaymentSchedule) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, sched); err != nil {
		s.logger.WithError(customError.WrapCacheError(err)).WithField("lease_id", sched.LeaseID).Warn("Schedule cache refresh failed")
		s.invalidate(ctx, sched.LeaseID)
	}
}

func (s *BillingService) invalidate(ctx context.Context, leaseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, leaseID); err != nil {
		s.logger.WithError(customError.WrapCacheError(err)).WithField("lease_id", leaseID).Warn("Schedule cache invalidation failed")
	}
}

// wrapRepositoryError keeps business errors as they are and wraps anything
// else as a database failure.
func wrapRepositoryError(err error) error {
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return err
	}
	return customError.WrapDatabaseError(err)
}
