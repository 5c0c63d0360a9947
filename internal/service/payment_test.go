package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/testutil"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

func cashPayment(amount, key string) *domain.RecordPaymentRequest {
	return &domain.RecordPaymentRequest{
		Amount:         dec(amount),
		Method:         domain.PaymentMethodCash,
		IdempotencyKey: key,
	}
}

func TestRecordPayment_EarliestUnpaidFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.disburse(t, "flat-monthly", "100000", "0.05", 90)

	resp, err := f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("10000", "k-1"))
	require.NoError(t, err)
	assert.False(t, resp.Replayed)
	assert.Equal(t, 1, resp.Installment.InstallmentNumber)
	assert.Equal(t, domain.InstallmentStatusPartiallyPaid, resp.Installment.Status)
	assert.True(t, resp.Installment.OutstandingAmount.Equal(dec("28383.33")))
	assert.True(t, resp.Balances.OutstandingBalance.Equal(dec("105150")))
	assert.True(t, resp.Balances.TotalPaid.Equal(dec("10000")))
	assert.False(t, resp.Payment.RequestedInstallmentID.Valid)

	resp, err = f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("28383.33", "k-2"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Installment.InstallmentNumber)
	assert.Equal(t, domain.InstallmentStatusPaid, resp.Installment.Status)
	require.NotNil(t, resp.Installment.PaidAt)

	resp, err = f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("100", "k-3"))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Installment.InstallmentNumber)
}

func TestRecordPayment_RequestedInstallment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.disburse(t, "flat-monthly", "100000", "0.05", 90)
	insts := f.installments(t, loan.LoanID)

	request := cashPayment("38383.34", "k-1")
	request.InstallmentID = &insts[2].ID
	resp, err := f.svc.RecordPayment(ctx, loan.LoanID, request)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Installment.InstallmentNumber)
	assert.Equal(t, domain.InstallmentStatusPaid, resp.Installment.Status)
	assert.Equal(t, insts[2].ID, resp.Payment.RequestedInstallmentID.UUID)

	request = cashPayment("1", "k-2")
	request.InstallmentID = &insts[2].ID
	_, err = f.svc.RecordPayment(ctx, loan.LoanID, request)
	requireCode(t, err, customError.ErrCodeAlreadyPaidInstallment)

	missing := uuid.New()
	request = cashPayment("1", "k-3")
	request.InstallmentID = &missing
	_, err = f.svc.RecordPayment(ctx, loan.LoanID, request)
	requireCode(t, err, customError.ErrCodeInstallmentNotFound)
}

func TestRecordPayment_Refused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.disburse(t, "flat-monthly", "100000", "0.05", 90)

	tests := []struct {
		name    string
		request *domain.RecordPaymentRequest
		code    string
	}{
		{"exceeds installment", cashPayment("38383.34", "k-1"), customError.ErrCodePaymentExceedsOutstanding},
		{"zero amount", cashPayment("0", "k-2"), customError.ErrCodeInvalidAmountRange},
		{"sub-cent amount", cashPayment("10.005", "k-3"), customError.ErrCodeInvalidAmountRange},
		{"missing key", cashPayment("100", ""), customError.ErrCodeInvalidRequest},
		{"missing reference", &domain.RecordPaymentRequest{
			Amount:         dec("100"),
			Method:         domain.PaymentMethodBankTransfer,
			IdempotencyKey: "k-4",
		}, customError.ErrCodeMissingReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordPayment(ctx, loan.LoanID, tt.request)
			requireCode(t, err, tt.code)
		})
	}

	_, err := f.svc.RecordPayment(ctx, uuid.New(), cashPayment("100", "k-5"))
	requireCode(t, err, customError.ErrCodeLoanNotFound)

	payments, err := f.store.Repositories().Payments.ListByLoanID(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestRecordPayment_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.disburse(t, "flat-monthly", "100000", "0.05", 90)

	first, err := f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("5000", "key-1"))
	require.NoError(t, err)

	replay, err := f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("5000", "key-1"))
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Payment.ID, replay.Payment.ID)
	assert.True(t, replay.Balances.OutstandingBalance.Equal(first.Balances.OutstandingBalance))

	_, err = f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("6000", "key-1"))
	requireCode(t, err, customError.ErrCodeDuplicatePaymentReplay)

	payments, err := f.store.Repositories().Payments.ListByLoanID(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	// keys are scoped to a loan
	other := f.disburse(t, "flat-monthly", "100000", "0.05", 90)
	resp, err := f.svc.RecordPayment(ctx, other.LoanID, cashPayment("5000", "key-1"))
	require.NoError(t, err)
	assert.False(t, resp.Replayed)
}

func TestRecordPayment_CompletesLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.disburse(t, "flat-monthly", "100000", "0.05", 90)

	previous := dec("115150")
	for i, amount := range []string{"38383.33", "38383.33", "38383.34"} {
		resp, err := f.svc.RecordPayment(ctx, loan.LoanID, cashPayment(amount, fmt.Sprintf("k-%d", i)))
		require.NoError(t, err)
		assert.True(t, resp.Balances.OutstandingBalance.LessThan(previous))
		previous = resp.Balances.OutstandingBalance
	}

	snapshot, err := f.svc.GetLoanSnapshot(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCompleted, snapshot.Loan.Status)
	assert.True(t, snapshot.Loan.OutstandingBalance.IsZero())
	require.NotNil(t, snapshot.Loan.CompletedAt)
	assert.Len(t, snapshot.Payments, 3)
	for _, view := range snapshot.Installments {
		assert.Equal(t, domain.InstallmentStatusPaid, view.EffectiveStatus)
	}

	_, err = f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("1", "k-late"))
	requireCode(t, err, customError.ErrCodeAlreadyPaidInstallment)
}

func TestRecordPayment_PaidLateStopsPenalty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.disburse(t, "flat-monthly", "100000", "0.05", 90)

	f.now = f.now.AddDate(0, 1, 5)
	_, err := f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("38383.33", "k-1"))
	require.NoError(t, err)

	f.now = f.now.AddDate(0, 0, 10)
	summary, err := f.svc.GetPenalties(ctx, loan.LoanID)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, 1, summary.Lines[0].InstallmentNumber)
	assert.Equal(t, 2, summary.Lines[0].DaysLate)
	assert.True(t, summary.Lines[0].Accrued.Equal(dec("771.50")))
}

func TestRecordPayment_PenaltyFollowsOutstandingAmount(t *testing.T) {
	ctx := context.Background()

	t.Run("paid down before due", func(t *testing.T) {
		f := newFixture(t, lateProduct())
		loan := f.disburse(t, "late-heavy", "1000", "0", 30)

		_, err := f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("990", "k-1"))
		require.NoError(t, err)

		f.now = f.now.AddDate(0, 1, 1)
		summary, err := f.svc.GetPenalties(ctx, loan.LoanID)
		require.NoError(t, err)
		require.Len(t, summary.Lines, 1)
		assert.True(t, summary.Lines[0].Base.Equal(dec("10")))
		assert.True(t, summary.Outstanding.Equal(dec("4")), summary.Outstanding.String())
	})

	t.Run("paid down while late", func(t *testing.T) {
		f := newFixture(t, lateProduct())
		loan := f.disburse(t, "late-heavy", "1000", "0", 30)

		// one day late on 1000 earns 400 before the payment lands
		f.now = f.now.AddDate(0, 1, 1)
		_, err := f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("500", "k-1"))
		require.NoError(t, err)

		insts := f.installments(t, loan.LoanID)
		require.Len(t, insts, 1)
		assert.True(t, insts[0].PenaltyAccrued.Equal(dec("400")))
		require.NotNil(t, insts[0].PenaltyAccruedThrough)

		// another day on the remaining 500 adds 200
		f.now = f.now.AddDate(0, 0, 1)
		summary, err := f.svc.GetPenalties(ctx, loan.LoanID)
		require.NoError(t, err)
		require.Len(t, summary.Lines, 1)
		assert.Equal(t, 2, summary.Lines[0].DaysLate)
		assert.True(t, summary.Lines[0].Base.Equal(dec("500")))
		assert.True(t, summary.Outstanding.Equal(dec("600")), summary.Outstanding.String())

		_, err = f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("500", "k-2"))
		require.NoError(t, err)

		// paid off: nothing more accrues, nothing earned is lost
		f.now = f.now.AddDate(0, 0, 5)
		summary, err = f.svc.GetPenalties(ctx, loan.LoanID)
		require.NoError(t, err)
		assert.True(t, summary.Outstanding.Equal(dec("600")), summary.Outstanding.String())
	})

	t.Run("product accruing on the installment total", func(t *testing.T) {
		product := lateProduct()
		product.PenaltyBase = domain.PenaltyBaseTotal
		f := newFixture(t, product)
		loan := f.disburse(t, "late-heavy", "1000", "0", 30)

		_, err := f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("990", "k-1"))
		require.NoError(t, err)

		f.now = f.now.AddDate(0, 1, 1)
		summary, err := f.svc.GetPenalties(ctx, loan.LoanID)
		require.NoError(t, err)
		assert.True(t, summary.Outstanding.Equal(dec("400")), summary.Outstanding.String())

		snapshot, err := f.svc.GetLoanSnapshot(ctx, loan.LoanID)
		require.NoError(t, err)
		assert.Equal(t, domain.PenaltyBaseTotal, snapshot.Loan.PenaltyBase)
	})
}

func TestRecordPayment_ConcurrentMutationsSerialize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.disburse(t, "flat-monthly", "100000", "0.05", 90)

	// first installment is late and owes 771.50 penalty
	f.now = f.now.AddDate(0, 1, 5)

	const payments = 8
	errs := make([]error, payments+1)
	var wg sync.WaitGroup
	for i := 0; i < payments; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.RecordPayment(ctx, loan.LoanID, cashPayment("1000", fmt.Sprintf("c-%d", i)))
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[payments] = f.svc.RequestWaiver(ctx, loan.LoanID, &domain.RequestWaiverRequest{
			WaiveType:       domain.WaiveTypePartial,
			RequestedAmount: dec("100"),
			Reason:          "goodwill",
		}, testutil.SeniorLimits(officer))
	}()
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "call %d", i)
	}

	snapshot, err := f.svc.GetLoanSnapshot(ctx, loan.LoanID)
	require.NoError(t, err)
	require.Len(t, snapshot.Payments, payments)
	require.Len(t, snapshot.Waivers, 1)

	sum := decimal.Zero
	for _, inst := range snapshot.Installments {
		sum = sum.Add(inst.OutstandingAmount)
	}
	assert.True(t, snapshot.Loan.OutstandingBalance.Equal(sum))
	assert.True(t, snapshot.Loan.OutstandingBalance.Equal(dec("107150")), snapshot.Loan.OutstandingBalance.String())
	assert.True(t, snapshot.Installments[0].OutstandingAmount.Equal(dec("30383.33")))
	assert.Equal(t, domain.InstallmentStatusPartiallyPaid, snapshot.Installments[0].Status)

	summary, err := f.svc.GetPenalties(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.True(t, summary.Outstanding.Equal(dec("671.50")), summary.Outstanding.String())
}
