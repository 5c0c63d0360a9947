package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive     = "active"
	LoanStatusCompleted  = "completed"
	LoanStatusWrittenOff = "written_off"
)

// Loan represents a disbursed loan entity
type Loan struct {
	ID                    uuid.UUID        `json:"id" db:"id"`
	ApplicationID         uuid.UUID        `json:"application_id" db:"application_id"`
	ProductID             string           `json:"product_id" db:"product_id"`
	CustomerID            string           `json:"customer_id" db:"customer_id"`
	PrincipalAmount       decimal.Decimal  `json:"principal_amount" db:"principal_amount"`
	InterestType          InterestType     `json:"interest_type" db:"interest_type"`
	InterestRate          decimal.Decimal  `json:"interest_rate" db:"interest_rate"`
	TermMonths            int              `json:"term_months" db:"term_months"`
	PaymentFrequency      PaymentFrequency `json:"payment_frequency" db:"payment_frequency"`
	LatePenaltyRate       decimal.Decimal  `json:"late_penalty_rate" db:"late_penalty_rate"`
	GracePeriodDays       int              `json:"grace_period_days" db:"grace_period_days"`
	PenaltyBase           PenaltyBase      `json:"penalty_base" db:"penalty_base"`
	InterestAmount        decimal.Decimal  `json:"interest_amount" db:"interest_amount"`
	ProcessingFeeAmount   decimal.Decimal  `json:"processing_fee_amount" db:"processing_fee_amount"`
	PlatformFeeTotal      decimal.Decimal  `json:"platform_fee_total" db:"platform_fee_total"`
	TotalRepayable        decimal.Decimal  `json:"total_repayable" db:"total_repayable"`
	OutstandingBalance    decimal.Decimal  `json:"outstanding_balance" db:"outstanding_balance"`
	NetDisbursement       decimal.Decimal  `json:"net_disbursement" db:"net_disbursement"`
	Status                string           `json:"status" db:"status"`
	DisbursementMethod    string           `json:"disbursement_method" db:"disbursement_method"`
	DisbursementReference string           `json:"disbursement_reference" db:"disbursement_reference"`
	DisbursementNotes     string           `json:"disbursement_notes" db:"disbursement_notes"`
	DisbursedAt           time.Time        `json:"disbursed_at" db:"disbursed_at"`
	CompletedAt           *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt             time.Time        `json:"updated_at" db:"updated_at"`
}

// Refresh recomputes the outstanding balance from the installments and
// completes the loan once every installment is paid. It reports whether the
// loan transitioned to completed.
func (l *Loan) Refresh(installments []*RepaymentInstallment, now time.Time) bool {
	balance := decimal.Zero
	allPaid := len(installments) > 0
	for _, inst := range installments {
		balance = balance.Add(inst.OutstandingAmount)
		if !inst.IsPaid() {
			allPaid = false
		}
	}
	l.OutstandingBalance = balance
	l.UpdatedAt = now

	if allPaid && l.Status == LoanStatusActive {
		l.Status = LoanStatusCompleted
		l.CompletedAt = &now
		return true
	}
	return false
}

type DisburseRequest struct {
	Method    string `json:"method" validate:"required,oneof=cash bank_transfer mobile_money"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
}

type DisburseResponse struct {
	LoanID          uuid.UUID       `json:"loan_id"`
	NetDisbursement decimal.Decimal `json:"net_disbursement"`
	Schedule        ScheduleSummary `json:"schedule"`
	Replayed        bool            `json:"replayed"`
}

type LoanBalances struct {
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	TotalRepayable     decimal.Decimal `json:"total_repayable"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	Status             string          `json:"status"`
}

type LoanSnapshot struct {
	Loan         *Loan              `json:"loan"`
	Installments []*InstallmentView `json:"installments"`
	Payments     []*Payment         `json:"payments"`
	Waivers      []*PenaltyWaiver   `json:"waivers"`
	AsOf         time.Time          `json:"as_of"`
}

// LoanRecord is the stored state of a loan aggregate. Views that depend on
// the clock are derived from it on every read.
type LoanRecord struct {
	Loan         *Loan                   `json:"loan"`
	Installments []*RepaymentInstallment `json:"installments"`
	Payments     []*Payment              `json:"payments"`
	Waivers      []*PenaltyWaiver        `json:"waivers"`
}
