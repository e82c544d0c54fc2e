package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/rental-billing/internal/config"
	"github.com/segyhp/rental-billing/internal/domain"
	customError "github.com/segyhp/rental-billing/pkg/errors"
	"github.com/segyhp/rental-billing/pkg/response"
	"github.com/segyhp/rental-billing/pkg/utils"
)

// BillingService is the part of service.BillingService the HTTP layer uses.
type BillingService interface {
	Today() time.Time
	CreateLease(ctx context.Context, req *domain.CreateLeaseRequest) (*domain.CreateLeaseResponse, error)
	GetSchedule(ctx context.Context, leaseID string) (*domain.PaymentSchedule, error)
	CapturePayment(ctx context.Context, leaseID string, req *domain.CapturePaymentRequest) (*domain.PaymentSchedule, error)
	ReversePayment(ctx context.Context, leaseID, month string) (*domain.PaymentSchedule, error)
	AmendPayment(ctx context.Context, leaseID, month string, req *domain.AmendPaymentRequest) (*domain.PaymentSchedule, error)
	ApproveAmendment(ctx context.Context, leaseID, month string) (*domain.PaymentSchedule, error)
	RejectAmendment(ctx context.Context, leaseID, month string) (*domain.PaymentSchedule, error)
	GetPenaltySummary(ctx context.Context, leaseID string) (*domain.PenaltySummary, error)
	ApplyPenaltyPayment(ctx context.Context, leaseID string, req *domain.PenaltyPaymentRequest) (*domain.PenaltyPaymentResponse, error)
	PostPenaltyCharge(ctx context.Context, leaseID string, req *domain.PenaltyChargeRequest) (*domain.PenaltySummary, error)
	UpcomingPayments(ctx context.Context, today time.Time, days int) ([]domain.UpcomingPayment, error)
	ScanOverdue(ctx context.Context, today time.Time) (*domain.ScanResponse, error)
}

type BillingHandler struct {
	service      BillingService
	validator    *validator.Validate
	logger       logrus.FieldLogger
	reminderDays int
}

func NewBillingHandler(service BillingService, cfg *config.Config, logger logrus.FieldLogger) *BillingHandler {
	return &BillingHandler{
		service:      service,
		validator:    newValidator(),
		logger:       logger,
		reminderDays: cfg.Business.ReminderWindowDays,
	}
}

// CreateLease handles POST /api/v1/leases
func (h *BillingHandler) CreateLease(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLeaseRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.CreateLease(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, resp)
}

// GetSchedule handles GET /api/v1/leases/{leaseId}/schedule
func (h *BillingHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.service.GetSchedule(r.Context(), mux.Vars(r)["leaseId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, schedule)
}

// CapturePayment handles POST /api/v1/leases/{leaseId}/payments
func (h *BillingHandler) CapturePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.CapturePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	schedule, err := h.service.CapturePayment(r.Context(), mux.Vars(r)["leaseId"], &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, schedule)
}

// ReversePayment handles DELETE /api/v1/leases/{leaseId}/payments/{month}
func (h *BillingHandler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	schedule, err := h.service.ReversePayment(r.Context(), vars["leaseId"], vars["month"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, schedule)
}

// AmendPayment handles PUT /api/v1/leases/{leaseId}/payments/{month}
func (h *BillingHandler) AmendPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.AmendPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	vars := mux.Vars(r)
	schedule, err := h.service.AmendPayment(r.Context(), vars["leaseId"], vars["month"], &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusAccepted, schedule)
}

// ApproveAmendment handles POST /api/v1/leases/{leaseId}/payments/{month}/approve
func (h *BillingHandler) ApproveAmendment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	schedule, err := h.service.ApproveAmendment(r.Context(), vars["leaseId"], vars["month"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, schedule)
}

// RejectAmendment handles POST /api/v1/leases/{leaseId}/payments/{month}/reject
func (h *BillingHandler) RejectAmendment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	schedule, err := h.service.RejectAmendment(r.Context(), vars["leaseId"], vars["month"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, schedule)
}

// GetPenaltySummary handles GET /api/v1/leases/{leaseId}/penalties
func (h *BillingHandler) GetPenaltySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetPenaltySummary(r.Context(), mux.Vars(r)["leaseId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, summary)
}

// PostPenaltyCharge handles POST /api/v1/leases/{leaseId}/penalties/charges
func (h *BillingHandler) PostPenaltyCharge(w http.ResponseWriter, r *http.Request) {
	var req domain.PenaltyChargeRequest
	if !h.decode(w, r, &req) {
		return
	}

	summary, err := h.service.PostPenaltyCharge(r.Context(), mux.Vars(r)["leaseId"], &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, summary)
}

// ApplyPenaltyPayment handles POST /api/v1/leases/{leaseId}/penalties/payments
func (h *BillingHandler) ApplyPenaltyPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.PenaltyPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.ApplyPenaltyPayment(r.Context(), mux.Vars(r)["leaseId"], &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, resp)
}

// UpcomingPayments handles GET /api/v1/payments/upcoming?days=N
func (h *BillingHandler) UpcomingPayments(w http.ResponseWriter, r *http.Request) {
	days := h.reminderDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(w, "days must be a non-negative integer", err)
			return
		}
		days = n
	}

	upcoming, err := h.service.UpcomingPayments(r.Context(), h.service.Today(), days)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, upcoming)
}

// ScanOverdue handles POST /api/v1/penalties/scan?date=YYYY-MM-DD
func (h *BillingHandler) ScanOverdue(w http.ResponseWriter, r *http.Request) {
	today := h.service.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			response.BadRequest(w, "date must be formatted as YYYY-MM-DD", err)
			return
		}
		today = d
	}

	result, err := h.service.ScanOverdue(r.Context(), today)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, result)
}

// decode reads and validates a JSON body. It writes the 400 response itself
// and reports false when the request cannot be used.
func (h *BillingHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return false
	}
	return true
}

func (h *BillingHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := customError.HTTPStatus(err)
	log := h.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Debug("Request rejected")
	}
	response.FromError(w, err)
}
