package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Business logic constants
const (
	InstallmentStatusPending       = "pending"
	InstallmentStatusPartiallyPaid = "partially_paid"
	InstallmentStatusPaid          = "paid"
	// InstallmentStatusOverdue is derived at read time and never stored.
	InstallmentStatusOverdue = "overdue"
)

// RepaymentInstallment is one scheduled repayment of a loan
type RepaymentInstallment struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	LoanID            uuid.UUID       `json:"loan_id" db:"loan_id"`
	InstallmentNumber int             `json:"installment_number" db:"installment_number"`
	DueDate           time.Time       `json:"due_date" db:"due_date"`
	PrincipalAmount   decimal.Decimal `json:"principal_amount" db:"principal_amount"`
	InterestAmount    decimal.Decimal `json:"interest_amount" db:"interest_amount"`
	FeeAmount         decimal.Decimal `json:"fee_amount" db:"fee_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount" db:"outstanding_amount"`
	Status            string          `json:"status" db:"status"` // pending, partially_paid, paid
	Overdue           bool            `json:"overdue" db:"overdue"`
	PenaltyWaived     decimal.Decimal `json:"penalty_waived" db:"penalty_waived"`
	// PenaltyAccrued is penalty settled on earlier bases, up to PenaltyAccruedThrough.
	PenaltyAccrued        decimal.Decimal `json:"penalty_accrued" db:"penalty_accrued"`
	PenaltyAccruedThrough *time.Time      `json:"penalty_accrued_through,omitempty" db:"penalty_accrued_through"`
	PaidAt                *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
}

// IsPaid reports whether nothing is owed on the installment.
func (i *RepaymentInstallment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

// IsOverdue reports whether the installment is past due and still owed at now.
func (i *RepaymentInstallment) IsOverdue(now time.Time) bool {
	return !i.IsPaid() && i.DueDate.Before(now)
}

// EffectiveStatus returns the stored status, or overdue when it applies at now.
func (i *RepaymentInstallment) EffectiveStatus(now time.Time) string {
	if i.IsOverdue(now) {
		return InstallmentStatusOverdue
	}
	return i.Status
}

// ApplyPayment reduces the outstanding amount. Callers validate the amount
// against the outstanding amount first; the status only ever moves forward.
func (i *RepaymentInstallment) ApplyPayment(amount decimal.Decimal, now time.Time) {
	i.OutstandingAmount = i.OutstandingAmount.Sub(amount)
	if i.OutstandingAmount.IsZero() {
		i.Status = InstallmentStatusPaid
		i.Overdue = false
		i.PaidAt = &now
		return
	}
	i.Status = InstallmentStatusPartiallyPaid
}

// InstallmentView is an installment as seen at a point in time.
type InstallmentView struct {
	*RepaymentInstallment
	EffectiveStatus string          `json:"effective_status"`
	AccruedPenalty  decimal.Decimal `json:"accrued_penalty"`
}

type ScheduleSummary struct {
	NumPayments       int             `json:"num_payments"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	TotalRepayable    decimal.Decimal `json:"total_repayable"`
	FirstDueDate      time.Time       `json:"first_due_date"`
	LastDueDate       time.Time       `json:"last_due_date"`
}
