package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/rental-billing/internal/config"
	"github.com/segyhp/rental-billing/internal/domain"
	"github.com/segyhp/rental-billing/internal/mocks"
	customError "github.com/segyhp/rental-billing/pkg/errors"
	"github.com/segyhp/rental-billing/pkg/response"
)

var today = time.Date(2025, 1, 29, 0, 0, 0, 0, time.UTC)

func setupRouter(t *testing.T) (http.Handler, *mocks.MockBillingService) {
	t.Helper()
	svc := &mocks.MockBillingService{}
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{Business: config.BusinessConfig{ReminderWindowDays: 3}}

	router := NewRouter(
		NewBillingHandler(svc, cfg, logger),
		NewHealthHandler(fakePinger{}, nil, time.Second),
		logger,
	)
	return router, svc
}

func do(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const createLeaseBody = `{
	"lease_id": "LEASE-1",
	"facility_id": "FAC-1",
	"room_id": "ROOM-1",
	"renter_id": "RENTER-1",
	"start_date": "2025-01-01",
	"end_date": "2025-03-31",
	"monthly_rent": "1000",
	"deposit_amount": 500,
	"business_rules": {
		"late_fee_amount": "10",
		"late_fee_start_day": 4,
		"grace_period_days": 7,
		"payment_methods": ["transfer", "cash"]
	}
}`

func TestCreateLease_Success(t *testing.T) {
	router, svc := setupRouter(t)

	svc.On("CreateLease", mock.Anything, mock.MatchedBy(func(req *domain.CreateLeaseRequest) bool {
		return req.LeaseID == "LEASE-1" &&
			req.MonthlyRent.Equal(decimal.NewFromInt(1000)) &&
			req.StartDate.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) &&
			req.BusinessRules.GracePeriodDays == 7
	})).Return(&domain.CreateLeaseResponse{Lease: &domain.Lease{LeaseID: "LEASE-1"}, Schedule: &domain.PaymentSchedule{LeaseID: "LEASE-1"}}, nil)

	rec := do(router, http.MethodPost, "/api/v1/leases", createLeaseBody)

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateLease_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"lease_id":`},
		{name: "missing lease id", body: `{"facility_id":"F","room_id":"R","renter_id":"T","monthly_rent":"1000"}`},
		{name: "zero rent", body: `{"lease_id":"L","facility_id":"F","room_id":"R","renter_id":"T","monthly_rent":"0"}`},
		{name: "negative deposit", body: `{"lease_id":"L","facility_id":"F","room_id":"R","renter_id":"T","monthly_rent":"1000","deposit_amount":"-1"}`},
		{name: "bad policy", body: `{"lease_id":"L","facility_id":"F","room_id":"R","renter_id":"T","monthly_rent":"1000","due_date_policy":"mid"}`},
		{name: "bad date", body: `{"lease_id":"L","facility_id":"F","room_id":"R","renter_id":"T","monthly_rent":"1000","start_date":"01/02/2025"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, svc := setupRouter(t)

			rec := do(router, http.MethodPost, "/api/v1/leases", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertNotCalled(t, "CreateLease", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateLease_Conflict(t *testing.T) {
	router, svc := setupRouter(t)
	svc.On("CreateLease", mock.Anything, mock.Anything).Return(nil, customError.WrapLeaseAlreadyExists("LEASE-1"))

	rec := do(router, http.MethodPost, "/api/v1/leases", createLeaseBody)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, customError.ErrCodeLeaseAlreadyExists, decodeErrorBody(t, rec).Code)
}

func TestGetSchedule(t *testing.T) {
	router, svc := setupRouter(t)
	svc.On("GetSchedule", mock.Anything, "LEASE-1").Return(&domain.PaymentSchedule{LeaseID: "LEASE-1"}, nil)
	svc.On("GetSchedule", mock.Anything, "missing").Return(nil, customError.WrapScheduleNotFound("missing"))

	rec := do(router, http.MethodGet, "/api/v1/leases/LEASE-1/schedule", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/leases/missing/schedule", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCapturePayment(t *testing.T) {
	router, svc := setupRouter(t)
	svc.On("CapturePayment", mock.Anything, "LEASE-1", mock.MatchedBy(func(req *domain.CapturePaymentRequest) bool {
		return req.Month == "2025-01" && req.Amount.Equal(decimal.NewFromInt(1000)) && req.PenaltyAmount.Equal(decimal.NewFromInt(40))
	})).Return(&domain.PaymentSchedule{LeaseID: "LEASE-1"}, nil)

	rec := do(router, http.MethodPost, "/api/v1/leases/LEASE-1/payments", map[string]interface{}{
		"month":          "2025-01",
		"amount":         "1000",
		"paid_date":      "2025-01-12",
		"payment_method": "cash",
		"penalty_amount": "40",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestCapturePayment_BusinessErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "method not allowed", err: customError.WrapPaymentMethodNotAllowed("crypto"), status: http.StatusUnprocessableEntity},
		{name: "unknown month", err: customError.WrapPaymentNotFound("LEASE-1", "2030-01"), status: http.StatusNotFound},
		{name: "concurrent update", err: customError.WrapConcurrentUpdate("LEASE-1"), status: http.StatusConflict},
		{name: "database down", err: customError.WrapDatabaseError(errors.New("dial tcp")), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, svc := setupRouter(t)
			svc.On("CapturePayment", mock.Anything, "LEASE-1", mock.Anything).Return(nil, tt.err)

			rec := do(router, http.MethodPost, "/api/v1/leases/LEASE-1/payments", map[string]interface{}{
				"month": "2025-01", "amount": "1000", "payment_method": "cash",
			})

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestPaymentRoutes(t *testing.T) {
	router, svc := setupRouter(t)
	s := &domain.PaymentSchedule{LeaseID: "LEASE-1"}
	svc.On("ReversePayment", mock.Anything, "LEASE-1", "2025-01").Return(s, nil)
	svc.On("AmendPayment", mock.Anything, "LEASE-1", "2025-02", mock.MatchedBy(func(req *domain.AmendPaymentRequest) bool {
		return req.EditedBy == "manager-1" && req.Patch.Amount != nil && req.Patch.Amount.Equal(decimal.NewFromInt(900))
	})).Return(s, nil)
	svc.On("ApproveAmendment", mock.Anything, "LEASE-1", "2025-02").Return(s, nil)
	svc.On("RejectAmendment", mock.Anything, "LEASE-1", "2025-03").Return(nil, customError.WrapNoPendingAmendment("2025-03"))

	rec := do(router, http.MethodDelete, "/api/v1/leases/LEASE-1/payments/2025-01", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodPut, "/api/v1/leases/LEASE-1/payments/2025-02", `{"edited_by":"manager-1","patch":{"amount":"900"}}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(router, http.MethodPut, "/api/v1/leases/LEASE-1/payments/2025-02", `{"patch":{"amount":"900"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/leases/LEASE-1/payments/2025-02/approve", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/leases/LEASE-1/payments/2025-03/reject", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	svc.AssertExpectations(t)
}

func TestPenaltyRoutes(t *testing.T) {
	router, svc := setupRouter(t)
	summary := &domain.PenaltySummary{LeaseID: "LEASE-1", TotalAmount: decimal.NewFromInt(40)}
	svc.On("GetPenaltySummary", mock.Anything, "LEASE-1").Return(summary, nil)
	svc.On("PostPenaltyCharge", mock.Anything, "LEASE-1", mock.Anything).Return(summary, nil)
	svc.On("ApplyPenaltyPayment", mock.Anything, "LEASE-1", mock.Anything).
		Return(&domain.PenaltyPaymentResponse{Applied: decimal.NewFromInt(40), Penalty: *summary}, nil)

	rec := do(router, http.MethodGet, "/api/v1/leases/LEASE-1/penalties", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/leases/LEASE-1/penalties/charges", `{"payment_month":"2025-01","amount":"40","reason":"manual"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/leases/LEASE-1/penalties/charges", `{"payment_month":"2025-01","amount":"0","reason":"manual"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/leases/LEASE-1/penalties/payments", `{"amount":"100","payment_method":"cash"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data domain.PenaltyPaymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Applied.Equal(decimal.NewFromInt(40)))

	svc.AssertExpectations(t)
}

func TestUpcomingPayments(t *testing.T) {
	router, svc := setupRouter(t)
	svc.On("Today").Return(today)
	svc.On("UpcomingPayments", mock.Anything, today, 3).Return([]domain.UpcomingPayment{{LeaseID: "LEASE-1", Month: "2025-02"}}, nil)
	svc.On("UpcomingPayments", mock.Anything, today, 7).Return([]domain.UpcomingPayment{}, nil)

	rec := do(router, http.MethodGet, "/api/v1/payments/upcoming", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/payments/upcoming?days=7", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/payments/upcoming?days=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}

func TestScanOverdue(t *testing.T) {
	router, svc := setupRouter(t)
	svc.On("Today").Return(today)
	svc.On("ScanOverdue", mock.Anything, today).Return(&domain.ScanResponse{Date: "2025-01-29", Scanned: 2, ChargesPosted: 1}, nil)
	explicit := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	svc.On("ScanOverdue", mock.Anything, explicit).Return(&domain.ScanResponse{Date: "2025-01-09"}, nil)

	rec := do(router, http.MethodPost, "/api/v1/penalties/scan", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/penalties/scan?date=2025-01-09", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/penalties/scan?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}
