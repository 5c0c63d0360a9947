// Package amortization turns product terms into repayment figures and
// schedules. Everything here is pure and safe for concurrent use.
package amortization

import (
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// MoneyPlaces is the number of decimal places of the minor currency unit.
const MoneyPlaces = 2

const daysPerMonth = 30

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

// Input holds the terms a calculation runs on. Rates and percentages are
// fractions; InterestRate is monthly.
type Input struct {
	Principal               decimal.Decimal
	TermMonths              int
	Frequency               domain.PaymentFrequency
	InterestRate            decimal.Decimal
	InterestType            domain.InterestType
	ProcessingFeePercentage decimal.Decimal
	PlatformFeePerMonth     decimal.Decimal
	LatePenaltyPercentage   decimal.Decimal
}

// Step is one equal-principal step of a declining balance. Values are unrounded.
type Step struct {
	Number         int
	OpeningBalance decimal.Decimal
	Principal      decimal.Decimal
	Interest       decimal.Decimal
}

// Result holds the financial totals of a loan. Every monetary figure is
// rounded exactly once, to MoneyPlaces.
type Result struct {
	Principal             decimal.Decimal         `json:"principal"`
	TermMonths            int                     `json:"term_months"`
	Frequency             domain.PaymentFrequency `json:"payment_frequency"`
	InterestType          domain.InterestType     `json:"interest_type"`
	InterestRate          decimal.Decimal         `json:"interest_rate"`
	LatePenaltyPercentage decimal.Decimal         `json:"late_penalty_percentage"`
	InterestAmount        decimal.Decimal         `json:"interest_amount"`
	ProcessingFeeAmount   decimal.Decimal         `json:"processing_fee_amount"`
	PlatformFeeTotal      decimal.Decimal         `json:"platform_fee_total"`
	TotalRepayable        decimal.Decimal         `json:"total_repayable"`
	NetProceeds           decimal.Decimal         `json:"net_proceeds"`
	NumPayments           int                     `json:"num_payments"`
	InstallmentAmount     decimal.Decimal         `json:"installment_amount"`
	// Steps is only populated for reducing-balance interest.
	Steps []Step `json:"-"`
}

// Calculate computes the totals for in. It never substitutes an interest
// type: unknown values fail with UnrecognizedInterestType.
func Calculate(in Input) (*Result, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	n, err := NumPayments(in.TermMonths, in.Frequency)
	if err != nil {
		return nil, err
	}

	months := decimal.NewFromInt(int64(in.TermMonths))
	res := &Result{
		Principal:             in.Principal,
		TermMonths:            in.TermMonths,
		Frequency:             in.Frequency,
		InterestType:          in.InterestType,
		InterestRate:          in.InterestRate,
		LatePenaltyPercentage: in.LatePenaltyPercentage,
		NumPayments:           n,
	}

	switch in.InterestType {
	case domain.InterestTypeFlat:
		res.InterestAmount = roundMoney(in.Principal.Mul(in.InterestRate).Mul(months))
	case domain.InterestTypeReducing:
		res.Steps = decliningSteps(in.Principal, in.InterestRate, in.TermMonths, n)
		res.InterestAmount = roundMoney(reducingInterest(in.Principal, in.InterestRate, in.TermMonths, n))
	case domain.InterestTypeCompound:
		growth := Pow(one.Add(in.InterestRate), in.TermMonths)
		res.InterestAmount = roundMoney(in.Principal.Mul(growth.Sub(one)))
	default:
		return nil, customError.WrapUnrecognizedInterestType(string(in.InterestType))
	}

	res.ProcessingFeeAmount = roundMoney(in.Principal.Mul(in.ProcessingFeePercentage))
	res.PlatformFeeTotal = roundMoney(in.PlatformFeePerMonth.Mul(months))
	res.TotalRepayable = in.Principal.Add(res.InterestAmount).Add(res.PlatformFeeTotal)
	res.NetProceeds = in.Principal.Sub(res.ProcessingFeeAmount)
	res.InstallmentAmount = roundMoney(res.TotalRepayable.Div(decimal.NewFromInt(int64(n))))

	return res, nil
}

// NumPayments returns the number of periods covering termMonths at the given
// frequency, rounded to the nearest whole period and at least one.
func NumPayments(termMonths int, frequency domain.PaymentFrequency) (int, error) {
	periodDays, ok := frequency.PeriodDays()
	if !ok {
		return 0, customError.WrapInvalidRequest("payment_frequency", "unsupported payment frequency "+string(frequency))
	}
	days := decimal.NewFromInt(int64(termMonths * daysPerMonth))
	n := int(days.Div(decimal.NewFromInt(int64(periodDays))).Round(0).IntPart())
	if n < 1 {
		n = 1
	}
	return n, nil
}

// TermMonthsFromDays converts a term in days to whole months, at least one.
func TermMonthsFromDays(days int) int {
	months := int(decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(daysPerMonth)).Round(0).IntPart())
	if months < 1 {
		return 1
	}
	return months
}

func validate(in Input) error {
	if !in.Principal.IsPositive() {
		return customError.WrapInvalidAmount("principal", "principal must be greater than zero")
	}
	if !in.Principal.Equal(roundMoney(in.Principal)) {
		return customError.WrapInvalidAmount("principal", "principal has more than two decimal places")
	}
	if in.TermMonths < 1 {
		return customError.WrapInvalidTerm("term_months", "term must be at least one month")
	}
	if in.InterestRate.IsNegative() {
		return customError.WrapInvalidAmount("interest_rate", "interest rate must not be negative")
	}
	if in.ProcessingFeePercentage.IsNegative() {
		return customError.WrapInvalidAmount("processing_fee_percentage", "processing fee must not be negative")
	}
	if in.PlatformFeePerMonth.IsNegative() {
		return customError.WrapInvalidAmount("platform_fee_per_month", "platform fee must not be negative")
	}
	if in.LatePenaltyPercentage.IsNegative() {
		return customError.WrapInvalidAmount("late_penalty_percentage", "late penalty must not be negative")
	}
	return nil
}

// reducingInterest is the closed form of the summed step interest:
// P * r * T * (n+1) / (2n).
func reducingInterest(principal, rate decimal.Decimal, termMonths, n int) decimal.Decimal {
	num := principal.Mul(rate).Mul(decimal.NewFromInt(int64(termMonths))).Mul(decimal.NewFromInt(int64(n + 1)))
	return num.Div(two.Mul(decimal.NewFromInt(int64(n))))
}

// decliningSteps splits principal into n equal steps; step k (1-based) earns
// P * r * T * (n-k+1) / n^2 on its opening balance.
func decliningSteps(principal, rate decimal.Decimal, termMonths, n int) []Step {
	nDec := decimal.NewFromInt(int64(n))
	scaled := principal.Mul(rate).Mul(decimal.NewFromInt(int64(termMonths)))
	steps := make([]Step, 0, n)
	for k := 1; k <= n; k++ {
		remaining := decimal.NewFromInt(int64(n - k + 1))
		steps = append(steps, Step{
			Number:         k,
			OpeningBalance: principal.Mul(remaining).Div(nDec),
			Principal:      principal.Div(nDec),
			Interest:       scaled.Mul(remaining).Div(nDec.Mul(nDec)),
		})
	}
	return steps
}

// Pow raises base to a non-negative integer power by repeated multiplication,
// which keeps the result exact.
func Pow(base decimal.Decimal, exp int) decimal.Decimal {
	result := one
	for i := 0; i < exp; i++ {
		result = result.Mul(base)
	}
	return result
}

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
