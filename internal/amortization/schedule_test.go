package amortization

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/domain"
)

func TestGenerateSchedule_RoundTrip(t *testing.T) {
	res, err := Calculate(Input{
		Principal:               dec("100000"),
		TermMonths:              3,
		Frequency:               domain.FrequencyMonthly,
		InterestRate:            dec("0.05"),
		InterestType:            domain.InterestTypeFlat,
		ProcessingFeePercentage: dec("0.05"),
		PlatformFeePerMonth:     dec("50"),
	})
	require.NoError(t, err)

	anchor := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	entries, err := GenerateSchedule(res, SchedulePolicy{Anchor: anchor})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	expected := []string{"38383.33", "38383.33", "38383.34"}
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Number)
		assert.True(t, entry.Total.Equal(dec(expected[i])), "installment %d total %s", i+1, entry.Total)
		assert.True(t, entry.Interest.Equal(dec("5000")), "installment %d interest %s", i+1, entry.Interest)
		assert.True(t, entry.Fee.Equal(dec("50")), "installment %d fee %s", i+1, entry.Fee)
	}
	assert.True(t, entries[2].Principal.Equal(dec("33333.34")))

	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), entries[0].DueDate)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), entries[1].DueDate)
	assert.Equal(t, time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), entries[2].DueDate)
}

func TestGenerateSchedule_ReducingSplit(t *testing.T) {
	res, err := Calculate(Input{
		Principal:    dec("12000"),
		TermMonths:   12,
		Frequency:    domain.FrequencyMonthly,
		InterestRate: dec("0.01"),
		InterestType: domain.InterestTypeReducing,
	})
	require.NoError(t, err)

	entries, err := GenerateSchedule(res, SchedulePolicy{Anchor: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, entries, 12)

	assert.True(t, entries[0].Interest.Equal(dec("120")), "first interest %s", entries[0].Interest)
	assert.True(t, entries[0].Principal.Equal(dec("945")), "first principal %s", entries[0].Principal)
	assert.True(t, entries[11].Interest.Equal(dec("10")), "last interest %s", entries[11].Interest)
	assert.True(t, entries[11].Principal.Equal(dec("1055")), "last principal %s", entries[11].Principal)
}

func TestGenerateSchedule_ReducingInterestNeverExceedsInstallment(t *testing.T) {
	// rate x term = 3: the first step interest of 3000 is more than the
	// 2625 installment
	res, err := Calculate(Input{
		Principal:    dec("12000"),
		TermMonths:   12,
		Frequency:    domain.FrequencyMonthly,
		InterestRate: dec("0.25"),
		InterestType: domain.InterestTypeReducing,
	})
	require.NoError(t, err)
	require.True(t, res.InterestAmount.Equal(dec("19500")))
	require.True(t, res.InstallmentAmount.Equal(dec("2625")))

	entries, err := GenerateSchedule(res, SchedulePolicy{Anchor: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, entries, 12)

	principal, interest := decimal.Zero, decimal.Zero
	for _, entry := range entries {
		assert.False(t, entry.Principal.IsNegative(), "installment %d principal %s", entry.Number, entry.Principal)
		assert.True(t, entry.Principal.Add(entry.Interest).Add(entry.Fee).Equal(entry.Total))
		principal = principal.Add(entry.Principal)
		interest = interest.Add(entry.Interest)
	}
	assert.True(t, principal.Equal(dec("12000")), principal.String())
	assert.True(t, interest.Equal(dec("19500")), interest.String())

	// the overflow of the first three steps is absorbed by the fourth
	assert.True(t, entries[0].Principal.IsZero())
	assert.True(t, entries[3].Interest.Equal(dec("2625")), entries[3].Interest.String())
	assert.True(t, entries[4].Interest.Equal(dec("2000")), entries[4].Interest.String())
}

func TestGenerateSchedule_FirstDuePolicy(t *testing.T) {
	res, err := Calculate(Input{
		Principal:    dec("700"),
		TermMonths:   1,
		Frequency:    domain.FrequencyWeekly,
		InterestRate: dec("0"),
		InterestType: domain.InterestTypeFlat,
	})
	require.NoError(t, err)

	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries, err := GenerateSchedule(res, SchedulePolicy{Anchor: anchor, FirstDueAfterDays: 3})
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, anchor.AddDate(0, 0, 3), entries[0].DueDate)
	assert.Equal(t, anchor.AddDate(0, 0, 10), entries[1].DueDate)
	assert.Equal(t, anchor.AddDate(0, 0, 24), entries[3].DueDate)
}

func TestGenerateSchedule_SumsMatchAggregates(t *testing.T) {
	principals := []string{"5000", "9999.99", "123456.78", "1000000"}
	rates := []string{"0", "0.015", "0.05", "0.3333"}
	months := []int{1, 2, 3, 7, 12}
	frequencies := []domain.PaymentFrequency{
		domain.FrequencyDaily, domain.FrequencyWeekly, domain.FrequencyBiweekly, domain.FrequencyMonthly,
	}
	types := []domain.InterestType{domain.InterestTypeFlat, domain.InterestTypeReducing, domain.InterestTypeCompound}

	anchor := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	for _, p := range principals {
		for _, r := range rates {
			for _, m := range months {
				for _, f := range frequencies {
					for _, it := range types {
						name := fmt.Sprintf("%s/%s/%d/%s/%s", p, r, m, f, it)
						res, err := Calculate(Input{
							Principal:           dec(p),
							TermMonths:          m,
							Frequency:           f,
							InterestRate:        dec(r),
							InterestType:        it,
							PlatformFeePerMonth: dec("1.07"),
						})
						require.NoError(t, err, name)

						entries, err := GenerateSchedule(res, SchedulePolicy{Anchor: anchor})
						require.NoError(t, err, name)
						require.Len(t, entries, res.NumPayments, name)

						total, principal, interest, fee := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
						for _, e := range entries {
							total = total.Add(e.Total)
							principal = principal.Add(e.Principal)
							interest = interest.Add(e.Interest)
							fee = fee.Add(e.Fee)
							assert.False(t, e.Interest.IsNegative(), name)
							assert.False(t, e.Fee.IsNegative(), name)
							assert.True(t, e.Total.Equal(e.Principal.Add(e.Interest).Add(e.Fee)), name)
						}
						assert.True(t, total.Equal(res.TotalRepayable), "%s: total %s != %s", name, total, res.TotalRepayable)
						assert.True(t, principal.Equal(res.Principal), "%s: principal %s", name, principal)
						assert.True(t, interest.Equal(res.InterestAmount), "%s: interest %s", name, interest)
						assert.True(t, fee.Equal(res.PlatformFeeTotal), "%s: fee %s", name, fee)
					}
				}
			}
		}
	}
}

func TestGenerateSchedule_TooSmallToSpread(t *testing.T) {
	res, err := Calculate(Input{
		Principal:    dec("2"),
		TermMonths:   12,
		Frequency:    domain.FrequencyDaily,
		InterestRate: dec("0"),
		InterestType: domain.InterestTypeFlat,
	})
	require.NoError(t, err)

	_, err = GenerateSchedule(res, SchedulePolicy{Anchor: time.Now()})
	assert.Error(t, err)
}
