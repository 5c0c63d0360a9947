package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/service"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/response"
)

const (
	headerActorID        = "X-Actor-ID"
	headerIdempotencyKey = "Idempotency-Key"
)

// LendingService is the part of service.LendingService the HTTP layer uses.
type LendingService interface {
	ActorLimits(ctx context.Context, actorID string) (*domain.CollectorLimits, error)
	CreateApplication(ctx context.Context, request *domain.CreateApplicationRequest) (*domain.LoanApplication, error)
	GetApplication(ctx context.Context, applicationID uuid.UUID) (*domain.LoanApplication, error)
	ReviewApplication(ctx context.Context, applicationID uuid.UUID) (*domain.LoanApplication, error)
	ApproveApplication(ctx context.Context, applicationID uuid.UUID, request *domain.ApproveApplicationRequest, limits *domain.CollectorLimits) (*domain.ApplicationDecisionResponse, error)
	RejectApplication(ctx context.Context, applicationID uuid.UUID, request *domain.RejectApplicationRequest) (*domain.ApplicationDecisionResponse, error)
	Disburse(ctx context.Context, applicationID uuid.UUID, request *domain.DisburseRequest, limits *domain.CollectorLimits) (*domain.DisburseResponse, error)
	RecordPayment(ctx context.Context, loanID uuid.UUID, request *domain.RecordPaymentRequest) (*domain.RecordPaymentResponse, error)
	RequestWaiver(ctx context.Context, loanID uuid.UUID, request *domain.RequestWaiverRequest, limits *domain.CollectorLimits) (*domain.RequestWaiverResponse, error)
	DecideWaiver(ctx context.Context, waiverID uuid.UUID, request *domain.DecideWaiverRequest) (*domain.DecideWaiverResponse, error)
	GetLoanSnapshot(ctx context.Context, loanID uuid.UUID) (*domain.LoanSnapshot, error)
	GetPenalties(ctx context.Context, loanID uuid.UUID) (*domain.PenaltySummary, error)
	Quote(ctx context.Context, request *domain.QuoteRequest) (*service.Quote, error)
}

type LendingHandler struct {
	service   LendingService
	validator *validator.Validate
	log       logrus.FieldLogger
}

func NewLendingHandler(service LendingService, log logrus.FieldLogger) *LendingHandler {
	return &LendingHandler{
		service:   service,
		validator: newValidator(),
		log:       log,
	}
}

// CreateApplication handles POST /applications
func (h *LendingHandler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateApplicationRequest
	if !h.decode(w, r, &request) {
		return
	}

	app, err := h.service.CreateApplication(r.Context(), &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, app)
}

// GetApplication handles GET /applications/{id}
func (h *LendingHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	app, err := h.service.GetApplication(r.Context(), id)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, app)
}

// ReviewApplication handles POST /applications/{id}/review
func (h *LendingHandler) ReviewApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	app, err := h.service.ReviewApplication(r.Context(), id)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, app)
}

// ApproveApplication handles POST /applications/{id}/approve
func (h *LendingHandler) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request domain.ApproveApplicationRequest
	if !h.decode(w, r, &request) {
		return
	}
	limits, ok := h.actorLimits(w, r)
	if !ok {
		return
	}

	result, err := h.service.ApproveApplication(r.Context(), id, &request, limits)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, result)
}

// RejectApplication handles POST /applications/{id}/reject
func (h *LendingHandler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request domain.RejectApplicationRequest
	if !h.decode(w, r, &request) {
		return
	}

	result, err := h.service.RejectApplication(r.Context(), id, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, result)
}

// Disburse handles POST /applications/{id}/disburse. A repeated disbursement
// answers 200 with the existing loan instead of 201.
func (h *LendingHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request domain.DisburseRequest
	if !h.decode(w, r, &request) {
		return
	}
	limits, ok := h.actorLimits(w, r)
	if !ok {
		return
	}

	result, err := h.service.Disburse(r.Context(), id, &request, limits)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	if result.Replayed {
		response.Success(w, result)
		return
	}
	response.Created(w, result)
}

// RecordPayment handles POST /loans/{loanId}/payments. The idempotency key
// comes from the Idempotency-Key header or the body; when both are given
// they must agree.
func (h *LendingHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}
	var request domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid JSON payload", err)
		return
	}

	if key := r.Header.Get(headerIdempotencyKey); key != "" {
		if request.IdempotencyKey != "" && request.IdempotencyKey != key {
			response.BusinessError(w, customError.WrapInvalidRequest("idempotency_key", "Idempotency-Key header and body disagree"))
			return
		}
		request.IdempotencyKey = key
	}
	if !h.validate(w, &request) {
		return
	}

	result, err := h.service.RecordPayment(r.Context(), loanID, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	if result.Replayed {
		response.Success(w, result)
		return
	}
	response.Created(w, result)
}

// RequestWaiver handles POST /loans/{loanId}/waivers
func (h *LendingHandler) RequestWaiver(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}
	var request domain.RequestWaiverRequest
	if !h.decode(w, r, &request) {
		return
	}
	limits, ok := h.actorLimits(w, r)
	if !ok {
		return
	}

	result, err := h.service.RequestWaiver(r.Context(), loanID, &request, limits)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, result)
}

// DecideWaiver handles POST /waivers/{waiverId}/decision
func (h *LendingHandler) DecideWaiver(w http.ResponseWriter, r *http.Request) {
	waiverID, ok := pathID(w, r, "waiverId")
	if !ok {
		return
	}
	var request domain.DecideWaiverRequest
	if !h.decode(w, r, &request) {
		return
	}

	result, err := h.service.DecideWaiver(r.Context(), waiverID, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, result)
}

// GetLoanSnapshot handles GET /loans/{loanId}
func (h *LendingHandler) GetLoanSnapshot(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	snapshot, err := h.service.GetLoanSnapshot(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, snapshot)
}

// GetPenalties handles GET /loans/{loanId}/penalties
func (h *LendingHandler) GetPenalties(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loanId")
	if !ok {
		return
	}

	summary, err := h.service.GetPenalties(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, summary)
}

// Quote handles POST /quotes
func (h *LendingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var request domain.QuoteRequest
	if !h.decode(w, r, &request) {
		return
	}

	quote, err := h.service.Quote(r.Context(), &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, quote)
}

// decode reads a JSON body into dst and validates it, writing the error
// response itself when either step fails.
func (h *LendingHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid JSON payload", err)
		return false
	}
	return h.validate(w, dst)
}

func (h *LendingHandler) validate(w http.ResponseWriter, dst interface{}) bool {
	err := h.validator.Struct(dst)
	if err == nil {
		return true
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		response.BusinessError(w, customError.WrapInvalidRequest(fe.Field(), validationMessage(fe)))
		return false
	}

	h.log.WithError(err).Warn("request validation failed")
	response.BadRequest(w, "Validation failed", err)
	return false
}

func (h *LendingHandler) actorLimits(w http.ResponseWriter, r *http.Request) (*domain.CollectorLimits, bool) {
	limits, err := h.service.ActorLimits(r.Context(), r.Header.Get(headerActorID))
	if err != nil {
		response.BusinessError(w, err)
		return nil, false
	}
	return limits, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BusinessError(w, customError.WrapInvalidRequest(name, name+" must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
