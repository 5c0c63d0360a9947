package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/pkg/response"
)

// NewRouter mounts the lending API under /api/v1 next to the health checks.
// CORS wraps the whole router so preflight requests reach it.
func NewRouter(lending *LendingHandler, health *HealthHandler, log logrus.FieldLogger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(log))

	if health != nil {
		router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
		router.HandleFunc("/health/ready", health.Ready).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/applications", lending.CreateApplication).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}", lending.GetApplication).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/review", lending.ReviewApplication).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/approve", lending.ApproveApplication).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/reject", lending.RejectApplication).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/disburse", lending.Disburse).Methods(http.MethodPost)

	api.HandleFunc("/loans/{loanId}", lending.GetLoanSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/penalties", lending.GetPenalties).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/payments", lending.RecordPayment).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}/waivers", lending.RequestWaiver).Methods(http.MethodPost)

	api.HandleFunc("/waivers/{waiverId}/decision", lending.DecideWaiver).Methods(http.MethodPost)
	api.HandleFunc("/quotes", lending.Quote).Methods(http.MethodPost)

	return router
}
