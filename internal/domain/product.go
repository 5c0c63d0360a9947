package domain

import (
	"github.com/shopspring/decimal"
)

type InterestType string

const (
	InterestTypeFlat     InterestType = "flat"
	InterestTypeReducing InterestType = "reducing"
	InterestTypeCompound InterestType = "compound"
)

// Valid reports whether t is one of the supported interest calculations.
func (t InterestType) Valid() bool {
	switch t {
	case InterestTypeFlat, InterestTypeReducing, InterestTypeCompound:
		return true
	}
	return false
}

type TermType string

const (
	TermTypeFixed    TermType = "fixed"
	TermTypeFlexible TermType = "flexible"
)

type PaymentFrequency string

const (
	FrequencyDaily    PaymentFrequency = "daily"
	FrequencyWeekly   PaymentFrequency = "weekly"
	FrequencyBiweekly PaymentFrequency = "biweekly"
	FrequencyMonthly  PaymentFrequency = "monthly"
)

// PeriodDays returns the nominal length of one repayment period in days.
// Monthly periods are nominally 30 days; due dates still step by calendar month.
func (f PaymentFrequency) PeriodDays() (int, bool) {
	switch f {
	case FrequencyDaily:
		return 1, true
	case FrequencyWeekly:
		return 7, true
	case FrequencyBiweekly:
		return 14, true
	case FrequencyMonthly:
		return 30, true
	}
	return 0, false
}

// PenaltyBase selects the amount late penalty accrues on.
type PenaltyBase string

const (
	// PenaltyBaseOutstanding accrues on what is still owed on the installment.
	PenaltyBaseOutstanding PenaltyBase = "outstanding"
	PenaltyBaseTotal       PenaltyBase = "total"
)

// Valid reports whether b is a known penalty base. Empty means outstanding.
func (b PenaltyBase) Valid() bool {
	switch b {
	case "", PenaltyBaseOutstanding, PenaltyBaseTotal:
		return true
	}
	return false
}

// LoanProduct holds the commercial terms of a product. Rates and percentages
// are fractions: 0.05 means 5%.
type LoanProduct struct {
	ID                          string           `json:"id" db:"id"`
	Name                        string           `json:"name" db:"name"`
	MinAmount                   decimal.Decimal  `json:"min_amount" db:"min_amount"`
	MaxAmount                   decimal.Decimal  `json:"max_amount" db:"max_amount"`
	InterestRate                decimal.Decimal  `json:"interest_rate" db:"interest_rate"`
	InterestType                InterestType     `json:"interest_type" db:"interest_type"`
	TermType                    TermType         `json:"term_type" db:"term_type"`
	FixedTermDays               int              `json:"fixed_term_days" db:"fixed_term_days"`
	MinTermDays                 int              `json:"min_term_days" db:"min_term_days"`
	MaxTermDays                 int              `json:"max_term_days" db:"max_term_days"`
	PaymentFrequency            PaymentFrequency `json:"payment_frequency" db:"payment_frequency"`
	ProcessingFeePercentage     decimal.Decimal  `json:"processing_fee_percentage" db:"processing_fee_percentage"`
	PlatformFeePerMonth         decimal.Decimal  `json:"platform_fee_per_month" db:"platform_fee_per_month"`
	LatePenaltyPercentagePerDay decimal.Decimal  `json:"late_penalty_percentage_per_day" db:"late_penalty_percentage_per_day"`
	GracePeriodDays             int              `json:"grace_period_days" db:"grace_period_days"`
	PenaltyBase                 PenaltyBase      `json:"penalty_base" db:"penalty_base"`
	FirstDueAfterDays           int              `json:"first_due_after_days" db:"first_due_after_days"`
	DeductFirstPlatformFee      bool             `json:"deduct_first_platform_fee" db:"deduct_first_platform_fee"`
}

// AmountInRange reports whether amount lies within [MinAmount, MaxAmount].
func (p *LoanProduct) AmountInRange(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(p.MinAmount) && amount.LessThanOrEqual(p.MaxAmount)
}

// TermAllowed reports whether termDays is acceptable for the product.
// Fixed-term products accept only their exact term.
func (p *LoanProduct) TermAllowed(termDays int) bool {
	if termDays <= 0 {
		return false
	}
	if p.TermType == TermTypeFixed {
		return termDays == p.FixedTermDays
	}
	return termDays >= p.MinTermDays && termDays <= p.MaxTermDays
}
