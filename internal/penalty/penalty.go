// Package penalty computes late penalties and evaluates waiver requests
// against collector limits. It holds no state.
package penalty

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/amortization"
	"github.com/segyhp/lending-engine/internal/domain"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

const day = 24 * time.Hour

// Terms are the penalty terms captured on a loan at disbursement.
type Terms struct {
	RatePerDay      decimal.Decimal
	GracePeriodDays int
	Base            domain.PenaltyBase
}

// TermsOf returns the penalty terms of a loan.
func TermsOf(loan *domain.Loan) Terms {
	return Terms{
		RatePerDay:      loan.LatePenaltyRate,
		GracePeriodDays: loan.GracePeriodDays,
		Base:            loan.PenaltyBase,
	}
}

// BaseOf returns the amount inst currently accrues penalty on.
func (t Terms) BaseOf(inst *domain.RepaymentInstallment) decimal.Decimal {
	if t.Base == domain.PenaltyBaseTotal {
		return inst.TotalAmount
	}
	return inst.OutstandingAmount
}

// DaysLate counts whole days between the end of the grace period and asOf.
func DaysLate(dueDate time.Time, graceDays int, asOf time.Time) int {
	return wholeDays(dueDate.AddDate(0, 0, graceDays), asOf)
}

func wholeDays(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / day)
}

// Accrued is base compounded daily at ratePerDay for days, minus base,
// rounded once to the minor unit.
func Accrued(base, ratePerDay decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 || !base.IsPositive() || !ratePerDay.IsPositive() {
		return decimal.Zero
	}
	growth := amortization.Pow(one.Add(ratePerDay), days)
	return base.Mul(growth.Sub(one)).Round(amortization.MoneyPlaces)
}

// pending is the penalty accrued on the current base since the last
// settlement, and the instant that accrual runs to in whole days.
func pending(inst *domain.RepaymentInstallment, terms Terms, asOf time.Time) (decimal.Decimal, time.Time, int) {
	from := inst.DueDate.AddDate(0, 0, terms.GracePeriodDays)
	if inst.PenaltyAccruedThrough != nil && inst.PenaltyAccruedThrough.After(from) {
		from = *inst.PenaltyAccruedThrough
	}
	until := asOf
	if inst.PaidAt != nil && inst.PaidAt.Before(until) {
		until = *inst.PaidAt
	}
	days := wholeDays(from, until)
	return Accrued(terms.BaseOf(inst), terms.RatePerDay, days), from.Add(time.Duration(days) * day), days
}

// Settle moves the penalty accrued on the current base into
// inst.PenaltyAccrued. Call it before anything changes the base, so penalty
// already earned is kept and later days accrue on the new base.
func Settle(inst *domain.RepaymentInstallment, terms Terms, asOf time.Time) {
	accrued, through, days := pending(inst, terms, asOf)
	if days <= 0 {
		return
	}
	inst.PenaltyAccrued = inst.PenaltyAccrued.Add(accrued)
	inst.PenaltyAccruedThrough = &through
}

// Line computes the penalty position of inst at asOf. Accrual stops on the
// day the installment is paid.
func Line(inst *domain.RepaymentInstallment, terms Terms, asOf time.Time) *domain.PenaltyLine {
	until := asOf
	if inst.PaidAt != nil && inst.PaidAt.Before(until) {
		until = *inst.PaidAt
	}
	accrued, _, _ := pending(inst, terms, asOf)
	accrued = accrued.Add(inst.PenaltyAccrued)

	outstanding := accrued.Sub(inst.PenaltyWaived)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	return &domain.PenaltyLine{
		InstallmentID:     inst.ID,
		InstallmentNumber: inst.InstallmentNumber,
		DaysLate:          DaysLate(inst.DueDate, terms.GracePeriodDays, until),
		Base:              terms.BaseOf(inst),
		Accrued:           accrued,
		Waived:            inst.PenaltyWaived,
		Outstanding:       outstanding,
	}
}

// Summarize computes the penalty lines of every installment with accrued
// penalty at asOf.
func Summarize(loan *domain.Loan, installments []*domain.RepaymentInstallment, asOf time.Time) *domain.PenaltySummary {
	terms := TermsOf(loan)
	summary := &domain.PenaltySummary{
		LoanID:      loan.ID,
		AsOf:        asOf,
		Lines:       []*domain.PenaltyLine{},
		Outstanding: decimal.Zero,
	}
	for _, inst := range installments {
		line := Line(inst, terms, asOf)
		if line.Accrued.IsZero() {
			continue
		}
		summary.Lines = append(summary.Lines, line)
		summary.Outstanding = summary.Outstanding.Add(line.Outstanding)
	}
	return summary
}

// Evaluation is the outcome of checking a waiver amount against limits.
type Evaluation struct {
	AutoApprove bool
	Percent     decimal.Decimal
}

// EvaluateWaiver auto-approves only when the amount is within the actor's
// absolute cap and the waived share of the owed penalty is within the percentage cap.
// Both limits must hold.
func EvaluateWaiver(amount, owed decimal.Decimal, limits *domain.CollectorLimits) Evaluation {
	if !owed.IsPositive() || limits == nil {
		return Evaluation{}
	}
	percent := amount.Mul(hundred).Div(owed)
	withinAmount := amount.LessThanOrEqual(limits.MaxPenaltyWaiverAmount)
	withinPercent := percent.LessThanOrEqual(limits.MaxPenaltyWaiverPercent)
	return Evaluation{
		AutoApprove: withinAmount && withinPercent,
		Percent:     percent,
	}
}

// Allocation is the part of a waiver applied to one installment.
type Allocation struct {
	Installment *domain.RepaymentInstallment
	Amount      decimal.Decimal
}

// Allocate spreads amount over the outstanding penalty of the given lines,
// oldest installment first. Lines and installments are matched by ID.
func Allocate(amount decimal.Decimal, lines []*domain.PenaltyLine, installments []*domain.RepaymentInstallment) []Allocation {
	byID := make(map[string]*domain.RepaymentInstallment, len(installments))
	for _, inst := range installments {
		byID[inst.ID.String()] = inst
	}

	var out []Allocation
	remaining := amount
	for _, line := range lines {
		if !remaining.IsPositive() {
			break
		}
		if !line.Outstanding.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, line.Outstanding)
		out = append(out, Allocation{Installment: byID[line.InstallmentID.String()], Amount: take})
		remaining = remaining.Sub(take)
	}
	return out
}
