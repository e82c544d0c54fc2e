package handler

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/rental-billing/pkg/response"
)

// NewRouter registers every HTTP route of the billing API.
func NewRouter(billingHandler *BillingHandler, healthHandler *HealthHandler, logger logrus.FieldLogger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(logger))
	router.Use(response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/leases", billingHandler.CreateLease).Methods("POST")
	api.HandleFunc("/leases/{leaseId}/schedule", billingHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/leases/{leaseId}/payments", billingHandler.CapturePayment).Methods("POST")
	api.HandleFunc("/leases/{leaseId}/payments/{month}", billingHandler.ReversePayment).Methods("DELETE")
	api.HandleFunc("/leases/{leaseId}/payments/{month}", billingHandler.AmendPayment).Methods("PUT")
	api.HandleFunc("/leases/{leaseId}/payments/{month}/approve", billingHandler.ApproveAmendment).Methods("POST")
	api.HandleFunc("/leases/{leaseId}/payments/{month}/reject", billingHandler.RejectAmendment).Methods("POST")
	api.HandleFunc("/leases/{leaseId}/penalties", billingHandler.GetPenaltySummary).Methods("GET")
	api.HandleFunc("/leases/{leaseId}/penalties/charges", billingHandler.PostPenaltyCharge).Methods("POST")
	api.HandleFunc("/leases/{leaseId}/penalties/payments", billingHandler.ApplyPenaltyPayment).Methods("POST")
	api.HandleFunc("/payments/upcoming", billingHandler.UpcomingPayments).Methods("GET")
	api.HandleFunc("/penalties/scan", billingHandler.ScanOverdue).Methods("POST")

	return router
}
