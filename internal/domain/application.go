package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/lending-engine/pkg/errors"
)

const (
	ApplicationStatusSubmitted   = "submitted"
	ApplicationStatusUnderReview = "under_review"
	ApplicationStatusApproved    = "approved"
	ApplicationStatusRejected    = "rejected"
	ApplicationStatusDisbursed   = "disbursed"
)

// Rejection reasons accepted by Reject.
const (
	RejectionInsufficientIncome  = "insufficient_income"
	RejectionPoorCreditHistory   = "poor_credit_history"
	RejectionIncompleteDocuments = "incomplete_documents"
	RejectionExceedsCapacity     = "exceeds_capacity"
	RejectionSuspectedFraud      = "suspected_fraud"
	RejectionOther               = "other"
)

var rejectionReasons = map[string]bool{
	RejectionInsufficientIncome:  true,
	RejectionPoorCreditHistory:   true,
	RejectionIncompleteDocuments: true,
	RejectionExceedsCapacity:     true,
	RejectionSuspectedFraud:      true,
	RejectionOther:               true,
}

// ValidRejectionReason reports whether reason belongs to the fixed enumeration.
func ValidRejectionReason(reason string) bool {
	return rejectionReasons[reason]
}

// LoanApplication represents a customer's request for a loan
type LoanApplication struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	CustomerID        string           `json:"customer_id" db:"customer_id"`
	ProductID         string           `json:"product_id" db:"product_id"`
	RequestedAmount   decimal.Decimal  `json:"requested_amount" db:"requested_amount"`
	RequestedTermDays int              `json:"requested_term_days" db:"requested_term_days"`
	Purpose           string           `json:"purpose" db:"purpose"`
	Status            string           `json:"status" db:"status"`
	ApprovedAmount    *decimal.Decimal `json:"approved_amount,omitempty" db:"approved_amount"`
	ApprovedTermDays  *int             `json:"approved_term_days,omitempty" db:"approved_term_days"`
	ApprovedRate      *decimal.Decimal `json:"approved_rate,omitempty" db:"approved_rate"`
	ApprovedBy        *string          `json:"approved_by,omitempty" db:"approved_by"`
	DecisionNotes     string           `json:"decision_notes,omitempty" db:"decision_notes"`
	RejectionReason   *string          `json:"rejection_reason,omitempty" db:"rejection_reason"`
	LoanID            uuid.NullUUID    `json:"loan_id" db:"loan_id"`
	SubmittedAt       time.Time        `json:"submitted_at" db:"submitted_at"`
	ReviewedAt        *time.Time       `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ApprovedAt        *time.Time       `json:"approved_at,omitempty" db:"approved_at"`
	RejectedAt        *time.Time       `json:"rejected_at,omitempty" db:"rejected_at"`
	DisbursedAt       *time.Time       `json:"disbursed_at,omitempty" db:"disbursed_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

// IsPending reports whether a decision can still be taken on the application.
func (a *LoanApplication) IsPending() bool {
	return a.Status == ApplicationStatusSubmitted || a.Status == ApplicationStatusUnderReview
}

// StartReview moves a submitted application under review.
func (a *LoanApplication) StartReview(now time.Time) error {
	if a.Status != ApplicationStatusSubmitted {
		return customError.WrapApplicationNotPending(a.ID.String(), a.Status)
	}
	a.Status = ApplicationStatusUnderReview
	a.ReviewedAt = &now
	a.UpdatedAt = now
	return nil
}

// Approve records the approved terms. Range and limit checks are done by the caller.
func (a *LoanApplication) Approve(amount decimal.Decimal, termDays int, rate decimal.Decimal, actorID, notes string, now time.Time) error {
	if !a.IsPending() {
		return customError.WrapApplicationNotPending(a.ID.String(), a.Status)
	}
	a.Status = ApplicationStatusApproved
	a.ApprovedAmount = &amount
	a.ApprovedTermDays = &termDays
	a.ApprovedRate = &rate
	a.ApprovedBy = &actorID
	a.DecisionNotes = notes
	a.ApprovedAt = &now
	a.UpdatedAt = now
	return nil
}

// Reject closes the application with a reason from the fixed enumeration.
func (a *LoanApplication) Reject(reason, notes string, now time.Time) error {
	if !a.IsPending() {
		return customError.WrapApplicationNotPending(a.ID.String(), a.Status)
	}
	if !ValidRejectionReason(reason) {
		return customError.WrapInvalidRequest("reason", "rejection reason "+reason+" is not recognized")
	}
	a.Status = ApplicationStatusRejected
	a.RejectionReason = &reason
	a.DecisionNotes = notes
	a.RejectedAt = &now
	a.UpdatedAt = now
	return nil
}

// MarkDisbursed consumes the approved trigger state.
func (a *LoanApplication) MarkDisbursed(loanID uuid.UUID, now time.Time) error {
	if a.Status != ApplicationStatusApproved {
		return customError.WrapApplicationNotPending(a.ID.String(), a.Status)
	}
	a.Status = ApplicationStatusDisbursed
	a.LoanID = uuid.NullUUID{UUID: loanID, Valid: true}
	a.DisbursedAt = &now
	a.UpdatedAt = now
	return nil
}

type CreateApplicationRequest struct {
	CustomerID        string          `json:"customer_id" validate:"required"`
	ProductID         string          `json:"product_id" validate:"required"`
	RequestedAmount   decimal.Decimal `json:"requested_amount" validate:"decimal_gt=0"`
	RequestedTermDays int             `json:"requested_term_days" validate:"required,gt=0"`
	Purpose           string          `json:"purpose"`
}

type ApproveApplicationRequest struct {
	ApprovedAmount   decimal.Decimal `json:"approved_amount" validate:"decimal_gt=0"`
	ApprovedTermDays int             `json:"approved_term_days" validate:"required,gt=0"`
	ApprovedRate     decimal.Decimal `json:"approved_rate" validate:"decimal_gte=0"`
	Notes            string          `json:"notes"`
}

type RejectApplicationRequest struct {
	Reason string `json:"reason" validate:"required"`
	Notes  string `json:"notes"`
}

type ApplicationDecisionResponse struct {
	ApplicationID uuid.UUID `json:"application_id"`
	Status        string    `json:"status"`
}
