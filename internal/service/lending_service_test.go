package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/testutil"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/logger"
)

var dec = testutil.Dec

const officer = "officer-1"

type fixture struct {
	svc   *LendingService
	store repository.Store
	now   time.Time
}

func newFixture(t *testing.T, products ...*domain.LoanProduct) *fixture {
	t.Helper()

	store, _ := testutil.NewStore(t)
	if len(products) == 0 {
		products = []*domain.LoanProduct{testutil.FlatProduct()}
	}
	testutil.Seed(t, store, products, []*domain.CollectorLimits{testutil.SeniorLimits(officer)})

	cfg := &config.Config{Lending: config.LendingConfig{DefaultInterestType: "flat"}}
	f := &fixture{
		svc:   NewLendingService(store, nil, nil, cfg, logger.Discard()),
		store: store,
		now:   time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) submit(t *testing.T, productID, amount string, termDays int) *domain.LoanApplication {
	t.Helper()
	app, err := f.svc.CreateApplication(context.Background(), &domain.CreateApplicationRequest{
		CustomerID:        "cust-1",
		ProductID:         productID,
		RequestedAmount:   dec(amount),
		RequestedTermDays: termDays,
		Purpose:           "stock",
	})
	require.NoError(t, err)
	return app
}

func (f *fixture) approve(t *testing.T, productID, amount, rate string, termDays int) *domain.LoanApplication {
	t.Helper()
	app := f.submit(t, productID, amount, termDays)
	_, err := f.svc.ApproveApplication(context.Background(), app.ID, &domain.ApproveApplicationRequest{
		ApprovedAmount:   dec(amount),
		ApprovedTermDays: termDays,
		ApprovedRate:     dec(rate),
	}, testutil.SeniorLimits(officer))
	require.NoError(t, err)
	return app
}

func (f *fixture) disburse(t *testing.T, productID, amount, rate string, termDays int) *domain.DisburseResponse {
	t.Helper()
	app := f.approve(t, productID, amount, rate, termDays)
	resp, err := f.svc.Disburse(context.Background(), app.ID, &domain.DisburseRequest{Method: domain.PaymentMethodCash}, testutil.SeniorLimits(officer))
	require.NoError(t, err)
	return resp
}

func (f *fixture) installments(t *testing.T, loanID uuid.UUID) []*domain.RepaymentInstallment {
	t.Helper()
	insts, err := f.store.Repositories().Installments.ListByLoanID(context.Background(), loanID)
	require.NoError(t, err)
	return insts
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	be, ok := customError.AsBusinessError(err)
	require.True(t, ok, "expected a business error, got %v", err)
	assert.Equal(t, code, be.Code)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, loanID uuid.UUID) (*domain.LoanRecord, error) {
	args := m.Called(ctx, loanID)
	record, _ := args.Get(0).(*domain.LoanRecord)
	return record, args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, record *domain.LoanRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context, loanID uuid.UUID) error {
	return m.Called(ctx, loanID).Error(0)
}

func TestActorLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	limits, err := f.svc.ActorLimits(ctx, officer)
	require.NoError(t, err)
	assert.True(t, limits.MaxApprovalAmount.Equal(dec("1000000")))

	_, err = f.svc.ActorLimits(ctx, "nobody")
	requireCode(t, err, customError.ErrCodeLimitsNotFound)

	_, err = f.svc.ActorLimits(ctx, "")
	requireCode(t, err, customError.ErrCodeInvalidRequest)
}

func TestGetLoanSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.disburse(t, "flat-monthly", "100000", "0.05", 90)

	snapshot, err := f.svc.GetLoanSnapshot(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, snapshot.Loan.Status)
	require.Len(t, snapshot.Installments, 3)
	assert.Empty(t, snapshot.Payments)
	assert.Empty(t, snapshot.Waivers)
	for _, view := range snapshot.Installments {
		assert.Equal(t, domain.InstallmentStatusPending, view.EffectiveStatus)
		assert.True(t, view.AccruedPenalty.IsZero())
	}

	_, err = f.svc.GetLoanSnapshot(ctx, uuid.New())
	requireCode(t, err, customError.ErrCodeLoanNotFound)
}

func TestGetLoanSnapshot_ThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.disburse(t, "flat-monthly", "100000", "0.05", 90)

	cache := &mockCache{}
	f.svc.cache = cache

	cache.On("Get", mock.Anything, loan.LoanID).Return(nil, nil).Once()
	cache.On("Set", mock.Anything, mock.MatchedBy(func(record *domain.LoanRecord) bool {
		return record.Loan.ID == loan.LoanID && len(record.Installments) == 3
	})).Return(nil).Once()

	_, err := f.svc.GetLoanSnapshot(ctx, loan.LoanID)
	require.NoError(t, err)

	cached := &domain.LoanRecord{
		Loan: &domain.Loan{ID: loan.LoanID, Status: domain.LoanStatusCompleted},
	}
	cache.On("Get", mock.Anything, loan.LoanID).Return(cached, nil).Once()

	snapshot, err := f.svc.GetLoanSnapshot(ctx, loan.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCompleted, snapshot.Loan.Status)
	assert.Empty(t, snapshot.Installments)

	cache.On("Invalidate", mock.Anything, loan.LoanID).Return(nil).Once()
	_, err = f.svc.RecordPayment(ctx, loan.LoanID, &domain.RecordPaymentRequest{
		Amount:         dec("1000"),
		Method:         domain.PaymentMethodCash,
		IdempotencyKey: "k-1",
	})
	require.NoError(t, err)

	cache.AssertExpectations(t)
}

func TestQuote(t *testing.T) {
	f := newFixture(t)

	quote, err := f.svc.Quote(context.Background(), &domain.QuoteRequest{
		ProductID: "flat-monthly",
		Amount:    dec("100000"),
		TermDays:  90,
	})
	require.NoError(t, err)

	assert.True(t, quote.TotalRepayable.Equal(dec("115150")))
	assert.True(t, quote.NetDisbursement.Equal(dec("95000")))
	require.Len(t, quote.Schedule, 3)
	assert.True(t, f.now.AddDate(0, 1, 0).Equal(quote.Schedule[0].DueDate))

	ids, err := f.store.Repositories().Loans.ListActiveIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = f.svc.Quote(context.Background(), &domain.QuoteRequest{ProductID: "flat-monthly", Amount: dec("10"), TermDays: 90})
	requireCode(t, err, customError.ErrCodeInvalidAmountRange)

	_, err = f.svc.Quote(context.Background(), &domain.QuoteRequest{ProductID: "missing", Amount: dec("10000"), TermDays: 90})
	requireCode(t, err, customError.ErrCodeProductNotFound)
}

func TestSweepOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.disburse(t, "flat-monthly", "100000", "0.05", 90)

	result, err := f.svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.MarkedOverdue)
	assert.Equal(t, 1, result.LoansScanned)
	assert.Equal(t, 0, result.PenalisedInstallments)

	// two days past the three day grace period of the first installment
	f.now = f.now.AddDate(0, 1, 5)

	result, err = f.svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.MarkedOverdue)
	assert.Equal(t, 1, result.PenalisedInstallments)
	// 38383.33 * (1.01^2 - 1)
	assert.True(t, result.OutstandingPenalty.Equal(dec("771.50")), result.OutstandingPenalty.String())

	result, err = f.svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.MarkedOverdue)

	snapshot, err := f.svc.GetLoanSnapshot(ctx, loan.LoanID)
	require.NoError(t, err)
	first, second := snapshot.Installments[0], snapshot.Installments[1]
	assert.True(t, first.Overdue)
	assert.Equal(t, domain.InstallmentStatusPending, first.Status)
	assert.Equal(t, domain.InstallmentStatusOverdue, first.EffectiveStatus)
	assert.True(t, first.AccruedPenalty.Equal(dec("771.50")))
	assert.False(t, second.Overdue)
	assert.Equal(t, domain.InstallmentStatusPending, second.EffectiveStatus)

	summary, err := f.svc.GetPenalties(ctx, loan.LoanID)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, 2, summary.Lines[0].DaysLate)
	assert.True(t, summary.Outstanding.Equal(dec("771.50")))
}
