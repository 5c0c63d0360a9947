package domain

import (
	"github.com/shopspring/decimal"
)

// CollectorLimits are the authorization limits of one actor. A zero
// MaxApprovalPerDay means no daily cap.
type CollectorLimits struct {
	ActorID                 string          `json:"actor_id" db:"actor_id"`
	MaxApprovalAmount       decimal.Decimal `json:"max_approval_amount" db:"max_approval_amount"`
	MaxApprovalPerDay       int             `json:"max_approval_per_day" db:"max_approval_per_day"`
	MaxDisbursementAmount   decimal.Decimal `json:"max_disbursement_amount" db:"max_disbursement_amount"`
	MaxPenaltyWaiverAmount  decimal.Decimal `json:"max_penalty_waiver_amount" db:"max_penalty_waiver_amount"`
	MaxPenaltyWaiverPercent decimal.Decimal `json:"max_penalty_waiver_percent" db:"max_penalty_waiver_percent"`
}

type QuoteRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	TermDays  int             `json:"term_days" validate:"required,gt=0"`
}
