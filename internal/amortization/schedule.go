package amortization

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// SchedulePolicy anchors a schedule in time. A zero FirstDueAfterDays puts the
// first due date one period after the anchor.
type SchedulePolicy struct {
	Anchor            time.Time
	FirstDueAfterDays int
}

// Entry is one generated installment.
type Entry struct {
	Number    int             `json:"installment_number"`
	DueDate   time.Time       `json:"due_date"`
	Principal decimal.Decimal `json:"principal_amount"`
	Interest  decimal.Decimal `json:"interest_amount"`
	Fee       decimal.Decimal `json:"fee_amount"`
	Total     decimal.Decimal `json:"total_amount"`
}

// GenerateSchedule lays res out as NumPayments installments. Every installment
// but the last is res.InstallmentAmount; the last absorbs the rounding
// remainder so the totals sum to res.TotalRepayable exactly. Principal,
// interest and fee columns also sum to their aggregates exactly.
func GenerateSchedule(res *Result, policy SchedulePolicy) ([]Entry, error) {
	n := res.NumPayments
	if n < 1 {
		return nil, customError.WrapInvalidTerm("num_payments", "schedule needs at least one payment")
	}
	if !res.InstallmentAmount.IsPositive() {
		return nil, customError.WrapInvalidAmount("principal", "amount is too small to spread over the schedule")
	}

	totals := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		totals[i] = res.InstallmentAmount
		allocated = allocated.Add(res.InstallmentAmount)
	}
	totals[n-1] = res.TotalRepayable.Sub(allocated)
	if !totals[n-1].IsPositive() {
		return nil, customError.WrapInvalidAmount("principal", "amount is too small to spread over the schedule")
	}

	var interests []decimal.Decimal
	if res.InterestType == domain.InterestTypeReducing && len(res.Steps) == n {
		interests = stepInterests(res)
	} else {
		interests = proportional(totals, res.InterestAmount, res.TotalRepayable)
	}
	fees := proportional(totals, res.PlatformFeeTotal, res.TotalRepayable)
	if res.InterestType == domain.InterestTypeReducing {
		fees = even(res.PlatformFeeTotal, n)
	}
	carryInterest(interests, totals, fees)

	dueDates, err := DueDates(res.Frequency, policy, n)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, n)
	for i := 0; i < n; i++ {
		entries[i] = Entry{
			Number:    i + 1,
			DueDate:   dueDates[i],
			Interest:  interests[i],
			Fee:       fees[i],
			Total:     totals[i],
			Principal: totals[i].Sub(interests[i]).Sub(fees[i]),
		}
	}
	return entries, nil
}

// carryInterest keeps every installment's principal non-negative. Interest
// that does not fit in an installment after its fee moves to the next one;
// the interest column still sums to the same aggregate.
func carryInterest(interests, totals, fees []decimal.Decimal) {
	carry := decimal.Zero
	last := len(interests) - 1
	for i := range interests {
		want := interests[i].Add(carry)
		room := decimal.Max(totals[i].Sub(fees[i]), decimal.Zero)
		if i == last || want.LessThanOrEqual(room) {
			interests[i], carry = want, decimal.Zero
			continue
		}
		interests[i], carry = room, want.Sub(room)
	}
}

// DueDates returns n due dates spaced one period apart. Monthly schedules step
// by calendar month from the first due date.
func DueDates(frequency domain.PaymentFrequency, policy SchedulePolicy, n int) ([]time.Time, error) {
	periodDays, ok := frequency.PeriodDays()
	if !ok {
		return nil, customError.WrapInvalidRequest("payment_frequency", "unsupported payment frequency "+string(frequency))
	}

	step := func(from time.Time, periods int) time.Time {
		if frequency == domain.FrequencyMonthly {
			return from.AddDate(0, periods, 0)
		}
		return from.AddDate(0, 0, periods*periodDays)
	}

	first := step(policy.Anchor, 1)
	if policy.FirstDueAfterDays > 0 {
		first = policy.Anchor.AddDate(0, 0, policy.FirstDueAfterDays)
	}

	dates := make([]time.Time, n)
	for i := 0; i < n; i++ {
		dates[i] = step(first, i)
	}
	return dates, nil
}

// proportional allocates amount over totals by cumulative share, rounding
// the running sum so that each slice is non-negative and the slices add up
// to amount.
func proportional(totals []decimal.Decimal, amount, grand decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(totals))
	if amount.IsZero() || grand.IsZero() {
		for i := range out {
			out[i] = decimal.Zero
		}
		return out
	}
	cumulative := decimal.Zero
	previous := decimal.Zero
	for i, total := range totals {
		cumulative = cumulative.Add(total)
		share := roundMoney(cumulative.Mul(amount).Div(grand))
		if i == len(totals)-1 {
			share = amount
		}
		out[i] = share.Sub(previous)
		previous = share
	}
	return out
}

// even spreads amount evenly over n slices using the same cumulative rounding.
func even(amount decimal.Decimal, n int) []decimal.Decimal {
	totals := make([]decimal.Decimal, n)
	for i := range totals {
		totals[i] = one
	}
	return proportional(totals, amount, decimal.NewFromInt(int64(n)))
}

// stepInterests rounds the declining-balance step interest cumulatively; the
// last installment closes the rounded aggregate.
func stepInterests(res *Result) []decimal.Decimal {
	out := make([]decimal.Decimal, len(res.Steps))
	cumulative := decimal.Zero
	previous := decimal.Zero
	for i, step := range res.Steps {
		cumulative = cumulative.Add(step.Interest)
		share := roundMoney(cumulative)
		if i == len(res.Steps)-1 {
			share = res.InterestAmount
		}
		out[i] = share.Sub(previous)
		previous = share
	}
	return out
}
