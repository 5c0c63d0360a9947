package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidAmountRange         = errors.New("amount outside allowed range")
	ErrInvalidTerm                = errors.New("invalid term")
	ErrApplicationNotPending      = errors.New("application is not pending")
	ErrEscalationRequired         = errors.New("escalation required")
	ErrAlreadyPaidInstallment     = errors.New("installment already paid")
	ErrPaymentExceedsOutstanding  = errors.New("payment exceeds outstanding amount")
	ErrMissingReferenceForNonCash = errors.New("reference required for non-cash method")
	ErrDuplicatePaymentReplay     = errors.New("idempotency key reused with different payment")
	ErrWaiverNotPending           = errors.New("waiver is not pending")
	ErrUnrecognizedInterestType   = errors.New("unrecognized interest type")
	ErrProductNotFound            = errors.New("product not found")
	ErrLoanNotFound               = errors.New("loan not found")
	ErrApplicationNotFound        = errors.New("application not found")
	ErrInstallmentNotFound        = errors.New("installment not found")
	ErrWaiverNotFound             = errors.New("waiver not found")
	ErrLimitsNotFound             = errors.New("collector limits not found")
	ErrInvalidRequest             = errors.New("invalid request")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Field   string
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

// WithField records the request field the error refers to.
func (e *BusinessError) WithField(field string) *BusinessError {
	e.Field = field
	return e
}

// Error codes
const (
	ErrCodeInvalidAmountRange        = "INVALID_AMOUNT_RANGE"
	ErrCodeInvalidTerm               = "INVALID_TERM"
	ErrCodeApplicationNotPending     = "APPLICATION_NOT_PENDING"
	ErrCodeEscalationRequired        = "ESCALATION_REQUIRED"
	ErrCodeAlreadyPaidInstallment    = "ALREADY_PAID_INSTALLMENT"
	ErrCodePaymentExceedsOutstanding = "PAYMENT_EXCEEDS_OUTSTANDING"
	ErrCodeMissingReference          = "MISSING_REFERENCE_FOR_NON_CASH"
	ErrCodeDuplicatePaymentReplay    = "DUPLICATE_PAYMENT_REPLAY"
	ErrCodeWaiverNotPending          = "WAIVER_NOT_PENDING"
	ErrCodeUnrecognizedInterestType  = "UNRECOGNIZED_INTEREST_TYPE"
	ErrCodeProductNotFound           = "PRODUCT_NOT_FOUND"
	ErrCodeLoanNotFound              = "LOAN_NOT_FOUND"
	ErrCodeApplicationNotFound       = "APPLICATION_NOT_FOUND"
	ErrCodeInstallmentNotFound       = "INSTALLMENT_NOT_FOUND"
	ErrCodeWaiverNotFound            = "WAIVER_NOT_FOUND"
	ErrCodeLimitsNotFound            = "LIMITS_NOT_FOUND"
	ErrCodeInvalidRequest            = "INVALID_REQUEST"
	ErrCodeDatabaseError             = "DATABASE_ERROR"
	ErrCodeCacheError                = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapInvalidAmountRange(field, amount, min, max string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmountRange,
		fmt.Sprintf("%s %s must be between %s and %s", field, amount, min, max),
		ErrInvalidAmountRange,
	).WithField(field)
}

func WrapInvalidAmount(field, message string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidAmountRange, message, ErrInvalidAmountRange).WithField(field)
}

func WrapInvalidTerm(field, message string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidTerm, message, ErrInvalidTerm).WithField(field)
}

func WrapApplicationNotPending(applicationID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeApplicationNotPending,
		fmt.Sprintf("Application %s is %s", applicationID, status),
		ErrApplicationNotPending,
	).WithField("status")
}

func WrapEscalationRequired(field, message string) *BusinessError {
	return NewBusinessError(ErrCodeEscalationRequired, message, ErrEscalationRequired).WithField(field)
}

func WrapAlreadyPaidInstallment(installmentNumber int) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyPaidInstallment,
		fmt.Sprintf("Installment %d is already paid", installmentNumber),
		ErrAlreadyPaidInstallment,
	).WithField("installment_id")
}

func WrapPaymentExceedsOutstanding(amount, outstanding string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentExceedsOutstanding,
		fmt.Sprintf("Payment amount %s exceeds outstanding amount %s", amount, outstanding),
		ErrPaymentExceedsOutstanding,
	).WithField("amount")
}

func WrapMissingReference(method string) *BusinessError {
	return NewBusinessError(
		ErrCodeMissingReference,
		fmt.Sprintf("Method %s requires a reference", method),
		ErrMissingReferenceForNonCash,
	).WithField("reference")
}

func WrapDuplicatePaymentReplay(key string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicatePaymentReplay,
		fmt.Sprintf("Idempotency key %s was already used for a different payment", key),
		ErrDuplicatePaymentReplay,
	).WithField("idempotency_key")
}

func WrapWaiverNotPending(waiverID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeWaiverNotPending,
		fmt.Sprintf("Waiver %s is %s", waiverID, status),
		ErrWaiverNotPending,
	).WithField("status")
}

func WrapUnrecognizedInterestType(interestType string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnrecognizedInterestType,
		fmt.Sprintf("Interest type %q is not supported", interestType),
		ErrUnrecognizedInterestType,
	).WithField("interest_type")
}

func WrapProductNotFound(productID string) *BusinessError {
	return NewBusinessError(
		ErrCodeProductNotFound,
		fmt.Sprintf("Product with ID %s not found", productID),
		ErrProductNotFound,
	).WithField("product_id")
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	).WithField("loan_id")
}

func WrapApplicationNotFound(applicationID string) *BusinessError {
	return NewBusinessError(
		ErrCodeApplicationNotFound,
		fmt.Sprintf("Application with ID %s not found", applicationID),
		ErrApplicationNotFound,
	).WithField("application_id")
}

func WrapInstallmentNotFound(installmentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentNotFound,
		fmt.Sprintf("Installment with ID %s not found", installmentID),
		ErrInstallmentNotFound,
	).WithField("installment_id")
}

func WrapWaiverNotFound(waiverID string) *BusinessError {
	return NewBusinessError(
		ErrCodeWaiverNotFound,
		fmt.Sprintf("Waiver with ID %s not found", waiverID),
		ErrWaiverNotFound,
	).WithField("waiver_id")
}

func WrapLimitsNotFound(actorID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLimitsNotFound,
		fmt.Sprintf("No collector limits configured for actor %s", actorID),
		ErrLimitsNotFound,
	).WithField("actor_id")
}

func WrapInvalidRequest(field, message string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidRequest, message, ErrInvalidRequest).WithField(field)
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

// AsBusinessError extracts a *BusinessError from err's chain.
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
