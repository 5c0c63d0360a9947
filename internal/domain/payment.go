package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodMobileMoney  = "mobile_money"
)

// RequiresReference reports whether method needs an external reference.
func RequiresReference(method string) bool {
	return method != PaymentMethodCash
}

// Payment is an append-only ledger entry
type Payment struct {
	ID                     uuid.UUID       `json:"id" db:"id"`
	LoanID                 uuid.UUID       `json:"loan_id" db:"loan_id"`
	InstallmentID          uuid.UUID       `json:"installment_id" db:"installment_id"`
	RequestedInstallmentID uuid.NullUUID   `json:"requested_installment_id" db:"requested_installment_id"`
	Amount                 decimal.Decimal `json:"amount" db:"amount"`
	Method                 string          `json:"method" db:"method"`
	Reference              string          `json:"reference" db:"reference"`
	Notes                  string          `json:"notes" db:"notes"`
	IdempotencyKey         string          `json:"idempotency_key" db:"idempotency_key"`
	AppliedAt              time.Time       `json:"applied_at" db:"applied_at"`
}

type RecordPaymentRequest struct {
	InstallmentID  *uuid.UUID      `json:"installment_id"`
	Amount         decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	Method         string          `json:"method" validate:"required,oneof=cash bank_transfer mobile_money"`
	Reference      string          `json:"reference"`
	Notes          string          `json:"notes"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required,max=128"`
}

type RecordPaymentResponse struct {
	Payment     *Payment              `json:"payment"`
	Installment *RepaymentInstallment `json:"installment"`
	Balances    LoanBalances          `json:"balances"`
	Replayed    bool                  `json:"replayed"`
}
