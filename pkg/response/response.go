package response

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	customError "github.com/segyhp/lending-engine/pkg/errors"
)

type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type ErrorResponse struct {
	Success   bool      `json:"success"`
	Code      string    `json:"code,omitempty"`
	Field     string    `json:"field,omitempty"`
	Error     string    `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response := Response{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logrus.WithError(err).Error("Error encoding JSON response")
	}
}

// Success sends a successful JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created sends a created JSON response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	response := ErrorResponse{
		Success:   false,
		Message:   message,
		Timestamp: time.Now(),
	}

	if err != nil {
		response.Error = err.Error()
	}

	write(w, statusCode, response)
}

// BusinessError sends the status, code and field of a business error.
// Anything that is not a business error is reported as an internal error
// without leaking its text.
func BusinessError(w http.ResponseWriter, err error) {
	be, ok := customError.AsBusinessError(err)
	if !ok {
		logrus.WithError(err).Error("unhandled error")
		Error(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	status := StatusFor(be)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("code", be.Code).Error("request failed")
		write(w, status, ErrorResponse{Code: be.Code, Message: be.Message, Timestamp: time.Now()})
		return
	}

	write(w, status, ErrorResponse{
		Code:      be.Code,
		Field:     be.Field,
		Message:   be.Message,
		Timestamp: time.Now(),
	})
}

var statusByCode = map[string]int{
	customError.ErrCodeInvalidAmountRange:        http.StatusUnprocessableEntity,
	customError.ErrCodeInvalidTerm:               http.StatusUnprocessableEntity,
	customError.ErrCodeUnrecognizedInterestType:  http.StatusUnprocessableEntity,
	customError.ErrCodeMissingReference:          http.StatusUnprocessableEntity,
	customError.ErrCodePaymentExceedsOutstanding: http.StatusUnprocessableEntity,
	customError.ErrCodeInvalidRequest:            http.StatusBadRequest,
	customError.ErrCodeApplicationNotPending:     http.StatusConflict,
	customError.ErrCodeAlreadyPaidInstallment:    http.StatusConflict,
	customError.ErrCodeDuplicatePaymentReplay:    http.StatusConflict,
	customError.ErrCodeWaiverNotPending:          http.StatusConflict,
	customError.ErrCodeEscalationRequired:        http.StatusForbidden,
	customError.ErrCodeLimitsNotFound:            http.StatusForbidden,
	customError.ErrCodeProductNotFound:           http.StatusNotFound,
	customError.ErrCodeLoanNotFound:              http.StatusNotFound,
	customError.ErrCodeApplicationNotFound:       http.StatusNotFound,
	customError.ErrCodeInstallmentNotFound:       http.StatusNotFound,
	customError.ErrCodeWaiverNotFound:            http.StatusNotFound,
	customError.ErrCodeCacheError:                http.StatusInternalServerError,
	customError.ErrCodeDatabaseError:             http.StatusInternalServerError,
}

// StatusFor maps a business error code to an HTTP status.
func StatusFor(be *customError.BusinessError) int {
	if status, ok := statusByCode[be.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func write(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		logrus.WithError(encodeErr).Error("Error encoding error response")
	}
}

// BadRequest sends a 400 bad request response
func BadRequest(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusBadRequest, message, err)
}

// NotFound sends a 404 not found response
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message, nil)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusInternalServerError, message, err)
}

// CORSMiddleware adds CORS headers
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Idempotency-Key, X-Actor-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response recorder to capture the status code
			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(recorder, r)

			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   recorder.statusCode,
				"duration": time.Since(start).String(),
			}).Info("http request")
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *responseRecorder) WriteHeader(statusCode int) {
	rec.statusCode = statusCode
	rec.ResponseWriter.WriteHeader(statusCode)
}
