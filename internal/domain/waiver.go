package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WaiveTypeFull    = "full"
	WaiveTypePartial = "partial"
)

const (
	WaiverStatusPending      = "pending"
	WaiverStatusAutoApproved = "auto_approved"
	WaiverStatusApproved     = "approved"
	WaiverStatusRejected     = "rejected"
)

const (
	WaiverDecisionApprove = "approve"
	WaiverDecisionReject  = "reject"
)

// PenaltyWaiver is a request to waive accrued late penalty on a loan or one
// of its installments.
type PenaltyWaiver struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	LoanID          uuid.UUID        `json:"loan_id" db:"loan_id"`
	InstallmentID   uuid.NullUUID    `json:"installment_id" db:"installment_id"`
	WaiveType       string           `json:"waive_type" db:"waive_type"`
	RequestedAmount decimal.Decimal  `json:"requested_amount" db:"requested_amount"`
	Reason          string           `json:"reason" db:"reason"`
	Notes           string           `json:"notes" db:"notes"`
	Status          string           `json:"status" db:"status"`
	ApprovedAmount  *decimal.Decimal `json:"approved_amount,omitempty" db:"approved_amount"`
	RequestedBy     string           `json:"requested_by" db:"requested_by"`
	RequestedAt     time.Time        `json:"requested_at" db:"requested_at"`
	DecidedAt       *time.Time       `json:"decided_at,omitempty" db:"decided_at"`
}

// IsPending reports whether the waiver still awaits a manual decision.
func (w *PenaltyWaiver) IsPending() bool {
	return w.Status == WaiverStatusPending
}

type RequestWaiverRequest struct {
	InstallmentID   *uuid.UUID      `json:"installment_id"`
	WaiveType       string          `json:"waive_type" validate:"required,oneof=full partial"`
	RequestedAmount decimal.Decimal `json:"requested_amount" validate:"decimal_gte=0"`
	Reason          string          `json:"reason" validate:"required"`
	Notes           string          `json:"notes"`
}

type RequestWaiverResponse struct {
	WaiverID       uuid.UUID        `json:"waiver_id"`
	Status         string           `json:"status"`
	AutoApproved   bool             `json:"auto_approved"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount,omitempty"`
}

type DecideWaiverRequest struct {
	Decision       string           `json:"decision" validate:"required,oneof=approve reject"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount"`
}

type DecideWaiverResponse struct {
	WaiverID       uuid.UUID        `json:"waiver_id"`
	Status         string           `json:"status"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount,omitempty"`
}

// PenaltyLine is the penalty position of one installment at a point in time.
type PenaltyLine struct {
	InstallmentID     uuid.UUID       `json:"installment_id"`
	InstallmentNumber int             `json:"installment_number"`
	DaysLate          int             `json:"days_late"`
	Base              decimal.Decimal `json:"base"`
	Accrued           decimal.Decimal `json:"accrued"`
	Waived            decimal.Decimal `json:"waived"`
	Outstanding       decimal.Decimal `json:"outstanding"`
}

type PenaltySummary struct {
	LoanID      uuid.UUID       `json:"loan_id"`
	AsOf        time.Time       `json:"as_of"`
	Lines       []*PenaltyLine  `json:"lines"`
	Outstanding decimal.Decimal `json:"outstanding"`
}
