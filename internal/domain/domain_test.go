package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/segyhp/lending-engine/pkg/errors"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func code(err error) string {
	be, ok := customError.AsBusinessError(err)
	if !ok {
		return ""
	}
	return be.Code
}

func TestApplicationTransitions(t *testing.T) {
	app := &LoanApplication{ID: uuid.New(), Status: ApplicationStatusSubmitted}

	require.NoError(t, app.StartReview(now))
	assert.Equal(t, ApplicationStatusUnderReview, app.Status)
	assert.Equal(t, customError.ErrCodeApplicationNotPending, code(app.StartReview(now)))

	require.NoError(t, app.Approve(decimal.NewFromInt(5000), 60, decimal.RequireFromString("0.05"), "officer-1", "", now))
	assert.Equal(t, ApplicationStatusApproved, app.Status)
	assert.False(t, app.IsPending())
	assert.Equal(t, customError.ErrCodeApplicationNotPending, code(app.Reject(RejectionOther, "", now)))

	loanID := uuid.New()
	require.NoError(t, app.MarkDisbursed(loanID, now))
	assert.Equal(t, ApplicationStatusDisbursed, app.Status)
	assert.Equal(t, loanID, app.LoanID.UUID)
	assert.Equal(t, customError.ErrCodeApplicationNotPending, code(app.MarkDisbursed(uuid.New(), now)))
}

func TestApplicationReject(t *testing.T) {
	app := &LoanApplication{ID: uuid.New(), Status: ApplicationStatusUnderReview}

	assert.Equal(t, customError.ErrCodeInvalidRequest, code(app.Reject("dislike", "", now)))
	require.NoError(t, app.Reject(RejectionIncompleteDocuments, "no payslip", now))
	assert.Equal(t, ApplicationStatusRejected, app.Status)
	assert.Equal(t, "no payslip", app.DecisionNotes)

	// an application that was never approved cannot be disbursed
	assert.Equal(t, customError.ErrCodeApplicationNotPending, code(app.MarkDisbursed(uuid.New(), now)))
}

func TestInstallmentPayments(t *testing.T) {
	inst := &RepaymentInstallment{
		DueDate:           now,
		TotalAmount:       decimal.NewFromInt(1000),
		OutstandingAmount: decimal.NewFromInt(1000),
		Status:            InstallmentStatusPending,
		Overdue:           true,
	}

	assert.False(t, inst.IsOverdue(now))
	assert.True(t, inst.IsOverdue(now.Add(time.Second)))
	assert.Equal(t, InstallmentStatusOverdue, inst.EffectiveStatus(now.Add(time.Hour)))

	inst.ApplyPayment(decimal.NewFromInt(400), now)
	assert.Equal(t, InstallmentStatusPartiallyPaid, inst.Status)
	assert.Nil(t, inst.PaidAt)

	inst.ApplyPayment(decimal.NewFromInt(600), now)
	assert.Equal(t, InstallmentStatusPaid, inst.Status)
	assert.False(t, inst.Overdue)
	require.NotNil(t, inst.PaidAt)
	assert.Equal(t, InstallmentStatusPaid, inst.EffectiveStatus(now.AddDate(1, 0, 0)))
}

func TestLoanRefresh(t *testing.T) {
	loan := &Loan{Status: LoanStatusActive, OutstandingBalance: decimal.NewFromInt(300)}
	installments := []*RepaymentInstallment{
		{OutstandingAmount: decimal.Zero, Status: InstallmentStatusPaid},
		{OutstandingAmount: decimal.NewFromInt(100), Status: InstallmentStatusPartiallyPaid},
	}

	assert.False(t, loan.Refresh(installments, now))
	assert.True(t, loan.OutstandingBalance.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, LoanStatusActive, loan.Status)

	installments[1].ApplyPayment(decimal.NewFromInt(100), now)
	assert.True(t, loan.Refresh(installments, now))
	assert.Equal(t, LoanStatusCompleted, loan.Status)
	require.NotNil(t, loan.CompletedAt)

	// completion happens once
	assert.False(t, loan.Refresh(installments, now))
}

func TestProductTerms(t *testing.T) {
	flexible := &LoanProduct{
		MinAmount:   decimal.NewFromInt(1000),
		MaxAmount:   decimal.NewFromInt(5000),
		TermType:    TermTypeFlexible,
		MinTermDays: 30,
		MaxTermDays: 90,
	}
	fixed := &LoanProduct{TermType: TermTypeFixed, FixedTermDays: 60}

	tests := []struct {
		name     string
		product  *LoanProduct
		termDays int
		allowed  bool
	}{
		{"flexible lower bound", flexible, 30, true},
		{"flexible upper bound", flexible, 90, true},
		{"flexible below", flexible, 29, false},
		{"flexible above", flexible, 91, false},
		{"fixed exact", fixed, 60, true},
		{"fixed other", fixed, 61, false},
		{"zero", fixed, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.product.TermAllowed(tt.termDays))
		})
	}

	assert.True(t, flexible.AmountInRange(decimal.NewFromInt(1000)))
	assert.True(t, flexible.AmountInRange(decimal.NewFromInt(5000)))
	assert.False(t, flexible.AmountInRange(decimal.RequireFromString("999.99")))
	assert.False(t, flexible.AmountInRange(decimal.RequireFromString("5000.01")))

	assert.True(t, InterestTypeCompound.Valid())
	assert.False(t, InterestType("").Valid())
	assert.True(t, RequiresReference(PaymentMethodMobileMoney))
	assert.False(t, RequiresReference(PaymentMethodCash))
}
