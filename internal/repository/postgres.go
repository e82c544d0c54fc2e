package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/segyhp/rental-billing/internal/domain"
	customError "github.com/segyhp/rental-billing/pkg/errors"
)

const pgUniqueViolation = "23505"

type leaseRepository struct {
	db *sqlx.DB
}

func NewLeaseRepository(db *sqlx.DB) LeaseRepository {
	return &leaseRepository{db: db}
}

type leaseRow struct {
	domain.Lease
	Rules []byte `db:"business_rules"`
}

func (r *leaseRepository) Create(ctx context.Context, lease *domain.Lease) error {
	query := `
		INSERT INTO leases (lease_id, facility_id, room_id, renter_id, start_date, end_date, monthly_rent,
			deposit_amount, deposit_paid, deposit_paid_date, deposit_payment_method, business_rules, status,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	rules, err := json.Marshal(lease.BusinessRules)
	if err != nil {
		return fmt.Errorf("encode business rules: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		lease.LeaseID,
		lease.FacilityID,
		lease.RoomID,
		lease.RenterID,
		lease.StartDate,
		lease.EndDate,
		lease.MonthlyRent,
		lease.DepositAmount,
		lease.DepositPaid,
		lease.DepositPaidDate,
		lease.DepositPaymentMethod,
		string(rules),
		lease.Status,
		lease.CreatedAt,
		lease.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return customError.WrapLeaseAlreadyExists(lease.LeaseID)
	}
	return err
}

func (r *leaseRepository) GetByLeaseID(ctx context.Context, leaseID string) (*domain.Lease, error) {
	query := `
		SELECT lease_id, facility_id, room_id, renter_id, start_date, end_date, monthly_rent, deposit_amount,
			deposit_paid, deposit_paid_date, deposit_payment_method, business_rules, status, created_at, updated_at
		FROM leases
		WHERE lease_id = $1
	`

	var row leaseRow
	if err := r.db.GetContext(ctx, &row, query, leaseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLeaseNotFound(leaseID)
		}
		return nil, err
	}

	lease := row.Lease
	if err := json.Unmarshal(row.Rules, &lease.BusinessRules); err != nil {
		return nil, fmt.Errorf("decode business rules of lease %s: %w", leaseID, err)
	}
	return &lease, nil
}

func (r *leaseRepository) GetBusinessRules(ctx context.Context, leaseID string) (domain.BusinessRules, error) {
	query := `SELECT business_rules FROM leases WHERE lease_id = $1`

	var raw []byte
	if err := r.db.GetContext(ctx, &raw, query, leaseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.BusinessRules{}, customError.WrapLeaseNotFound(leaseID)
		}
		return domain.BusinessRules{}, err
	}

	var rules domain.BusinessRules
	if err := json.Unmarshal(raw, &rules); err != nil {
		return domain.BusinessRules{}, fmt.Errorf("decode business rules of lease %s: %w", leaseID, err)
	}
	return rules, nil
}

type scheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

// scheduleRow is the stored form of a schedule: payments and the penalty
// ledger live in JSONB columns, totals are kept as columns for querying.
type scheduleRow struct {
	ID                uuid.UUID       `db:"id"`
	LeaseID           string          `db:"lease_id"`
	FacilityID        string          `db:"facility_id"`
	RoomID            string          `db:"room_id"`
	RenterID          string          `db:"renter_id"`
	Payments          string          `db:"payments"`
	AggregatedPenalty sql.NullString  `db:"aggregated_penalty"`
	TotalAmount       decimal.Decimal `db:"total_amount"`
	TotalPaid         decimal.Decimal `db:"total_paid"`
	OutstandingAmount decimal.Decimal `db:"outstanding_amount"`
	Version           int64           `db:"version"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

const scheduleColumns = `id, lease_id, facility_id, room_id, renter_id, payments, aggregated_penalty,
	total_amount, total_paid, outstanding_amount, version, created_at, updated_at`

func toScheduleRow(s *domain.PaymentSchedule) (*scheduleRow, error) {
	payments, err := json.Marshal(s.Payments)
	if err != nil {
		return nil, fmt.Errorf("encode payments: %w", err)
	}

	var penalty sql.NullString
	if s.AggregatedPenalty != nil {
		raw, err := json.Marshal(s.AggregatedPenalty)
		if err != nil {
			return nil, fmt.Errorf("encode aggregated penalty: %w", err)
		}
		penalty = sql.NullString{String: string(raw), Valid: true}
	}

	return &scheduleRow{
		ID:                s.ID,
		LeaseID:           s.LeaseID,
		FacilityID:        s.FacilityID,
		RoomID:            s.RoomID,
		RenterID:          s.RenterID,
		Payments:          string(payments),
		AggregatedPenalty: penalty,
		TotalAmount:       s.TotalAmount,
		TotalPaid:         s.TotalPaid,
		OutstandingAmount: s.OutstandingAmount,
		Version:           s.Version,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}, nil
}

func (row *scheduleRow) toDomain() (*domain.PaymentSchedule, error) {
	s := &domain.PaymentSchedule{
		ID:                row.ID,
		LeaseID:           row.LeaseID,
		FacilityID:        row.FacilityID,
		RoomID:            row.RoomID,
		RenterID:          row.RenterID,
		TotalAmount:       row.TotalAmount,
		TotalPaid:         row.TotalPaid,
		OutstandingAmount: row.OutstandingAmount,
		Version:           row.Version,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.Payments), &s.Payments); err != nil {
		return nil, fmt.Errorf("decode payments of lease %s: %w", row.LeaseID, err)
	}
	if row.AggregatedPenalty.Valid {
		s.AggregatedPenalty = &domain.AggregatedPenalty{}
		if err := json.Unmarshal([]byte(row.AggregatedPenalty.String), s.AggregatedPenalty); err != nil {
			return nil, fmt.Errorf("decode aggregated penalty of lease %s: %w", row.LeaseID, err)
		}
	}
	return s, nil
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *domain.PaymentSchedule) error {
	query := `
		INSERT INTO payment_schedules (` + scheduleColumns + `)
		VALUES (:id, :lease_id, :facility_id, :room_id, :renter_id, :payments, :aggregated_penalty,
			:total_amount, :total_paid, :outstanding_amount, :version, :created_at, :updated_at)
	`

	now := time.Now()
	schedule.Version = 1
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	row, err := toScheduleRow(schedule)
	if err != nil {
		return err
	}

	if _, err = r.db.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return customError.WrapLeaseAlreadyExists(schedule.LeaseID)
		}
		return err
	}
	return nil
}

func (r *scheduleRepository) GetByLeaseID(ctx context.Context, leaseID string) (*domain.PaymentSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM payment_schedules WHERE lease_id = $1`
	return r.get(ctx, r.db, query, leaseID)
}

func (r *scheduleRepository) get(ctx context.Context, q sqlx.QueryerContext, query, leaseID string) (*domain.PaymentSchedule, error) {
	var row scheduleRow
	if err := sqlx.GetContext(ctx, q, &row, query, leaseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapScheduleNotFound(leaseID)
		}
		return nil, err
	}
	return row.toDomain()
}

// Update locks the schedule row for the duration of fn so concurrent
// captures and the overdue scan cannot overwrite each other.
func (r *scheduleRepository) Update(ctx context.Context, leaseID string, fn UpdateFunc) (*domain.PaymentSchedule, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `SELECT ` + scheduleColumns + ` FROM payment_schedules WHERE lease_id = $1 FOR UPDATE`
	schedule, err := r.get(ctx, tx, query, leaseID)
	if err != nil {
		return nil, err
	}

	if err := fn(schedule); err != nil {
		if errors.Is(err, ErrSkipUpdate) {
			return schedule, nil
		}
		return nil, err
	}

	schedule.Version++
	schedule.UpdatedAt = time.Now()
	row, err := toScheduleRow(schedule)
	if err != nil {
		return nil, err
	}

	update := `
		UPDATE payment_schedules
		SET payments = :payments, aggregated_penalty = :aggregated_penalty, total_amount = :total_amount,
			total_paid = :total_paid, outstanding_amount = :outstanding_amount, version = :version,
			updated_at = :updated_at
		WHERE lease_id = :lease_id AND version = :version - 1
	`
	result, err := tx.NamedExecContext(ctx, update, row)
	if err != nil {
		return nil, err
	}
	// only a writer that skipped the row lock can have moved the version
	if affected, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, customError.WrapConcurrentUpdate(leaseID)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (r *scheduleRepository) ListWithOutstandingBalance(ctx context.Context) ([]*domain.PaymentSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM payment_schedules
		WHERE outstanding_amount > 0
		ORDER BY lease_id
	`

	var rows []scheduleRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	schedules := make([]*domain.PaymentSchedule, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
