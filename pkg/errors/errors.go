package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrScheduleNotFound        = errors.New("payment schedule not found")
	ErrLeaseNotFound           = errors.New("lease not found")
	ErrLeaseAlreadyExists      = errors.New("lease already exists")
	ErrInvalidLeaseTerm        = errors.New("lease end date is before start date")
	ErrInvalidBusinessRules    = errors.New("invalid business rules")
	ErrPaymentNotFound         = errors.New("scheduled payment not found")
	ErrPaymentMethodNotAllowed = errors.New("payment method not allowed")
	ErrPaymentNotCaptured      = errors.New("scheduled payment has no captured amount")
	ErrNoPendingAmendment      = errors.New("no pending amendment")
	ErrConcurrentUpdate        = errors.New("schedule was modified concurrently")
	ErrAmendmentPending        = errors.New("amendment awaiting approval")
	ErrReceiptNotReversible    = errors.New("late fee receipt cannot be reversed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidAmount           = "INVALID_AMOUNT"
	ErrCodeScheduleNotFound        = "SCHEDULE_NOT_FOUND"
	ErrCodeLeaseNotFound           = "LEASE_NOT_FOUND"
	ErrCodeLeaseAlreadyExists      = "LEASE_ALREADY_EXISTS"
	ErrCodeInvalidLeaseTerm        = "INVALID_LEASE_TERM"
	ErrCodeInvalidBusinessRules    = "INVALID_BUSINESS_RULES"
	ErrCodePaymentNotFound         = "PAYMENT_NOT_FOUND"
	ErrCodePaymentMethodNotAllowed = "PAYMENT_METHOD_NOT_ALLOWED"
	ErrCodePaymentNotCaptured      = "PAYMENT_NOT_CAPTURED"
	ErrCodeNoPendingAmendment      = "NO_PENDING_AMENDMENT"
	ErrCodeConcurrentUpdate        = "CONCURRENT_UPDATE"
	ErrCodeAmendmentPending        = "AMENDMENT_PENDING"
	ErrCodeReceiptNotReversible    = "RECEIPT_NOT_REVERSIBLE"
	ErrCodeDatabaseError           = "DATABASE_ERROR"
	ErrCodeCacheError              = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapInvalidAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Amount must be greater than zero, got %s", amount),
		ErrInvalidAmount,
	)
}

func WrapAmountExceedsBalance(amount, remaining string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Amount %s exceeds the remaining balance of %s", amount, remaining),
		ErrInvalidAmount,
	)
}

func WrapScheduleNotFound(leaseID string) *BusinessError {
	return NewBusinessError(
		ErrCodeScheduleNotFound,
		fmt.Sprintf("Payment schedule for lease %s not found", leaseID),
		ErrScheduleNotFound,
	)
}

func WrapLeaseNotFound(leaseID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLeaseNotFound,
		fmt.Sprintf("Lease with ID %s not found", leaseID),
		ErrLeaseNotFound,
	)
}

func WrapLeaseAlreadyExists(leaseID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLeaseAlreadyExists,
		fmt.Sprintf("Lease with ID %s already exists", leaseID),
		ErrLeaseAlreadyExists,
	)
}

func WrapInvalidLeaseTerm(start, end string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLeaseTerm,
		fmt.Sprintf("Lease end date %s is before start date %s", end, start),
		ErrInvalidLeaseTerm,
	)
}

func WrapInvalidBusinessRules(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidBusinessRules,
		reason,
		ErrInvalidBusinessRules,
	)
}

func WrapPaymentNotFound(leaseID, month string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentNotFound,
		fmt.Sprintf("Lease %s has no scheduled payment for %s", leaseID, month),
		ErrPaymentNotFound,
	)
}

func WrapPaymentMethodNotAllowed(method string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentMethodNotAllowed,
		fmt.Sprintf("Payment method %q is not accepted for this lease", method),
		ErrPaymentMethodNotAllowed,
	)
}

func WrapPaymentNotCaptured(month string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentNotCaptured,
		fmt.Sprintf("Scheduled payment %s has nothing to reverse", month),
		ErrPaymentNotCaptured,
	)
}

func WrapNoPendingAmendment(month string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoPendingAmendment,
		fmt.Sprintf("Scheduled payment %s has no amendment awaiting approval", month),
		ErrNoPendingAmendment,
	)
}

func WrapAmendmentPending(month string) *BusinessError {
	return NewBusinessError(
		ErrCodeAmendmentPending,
		fmt.Sprintf("Scheduled payment %s has an amendment awaiting approval, approve or reject it first", month),
		ErrAmendmentPending,
	)
}

func WrapReceiptNotReversible(month string) *BusinessError {
	return NewBusinessError(
		ErrCodeReceiptNotReversible,
		fmt.Sprintf("Scheduled payment %s is a late fee receipt and cannot be reversed", month),
		ErrReceiptNotReversible,
	)
}

func WrapConcurrentUpdate(leaseID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrentUpdate,
		fmt.Sprintf("Payment schedule for lease %s was modified concurrently, retry the operation", leaseID),
		ErrConcurrentUpdate,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// HTTPStatus maps an error to the status code handlers should answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrScheduleNotFound),
		errors.Is(err, ErrLeaseNotFound),
		errors.Is(err, ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrLeaseAlreadyExists),
		errors.Is(err, ErrConcurrentUpdate),
		errors.Is(err, ErrNoPendingAmendment),
		errors.Is(err, ErrAmendmentPending),
		errors.Is(err, ErrReceiptNotReversible),
		errors.Is(err, ErrPaymentNotCaptured):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidLeaseTerm),
		errors.Is(err, ErrInvalidBusinessRules),
		errors.Is(err, ErrPaymentMethodNotAllowed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
