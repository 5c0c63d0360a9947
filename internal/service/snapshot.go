package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/amortization"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/penalty"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// GetLoanSnapshot returns the loan with its schedule, payments and waivers.
// Installment status and accrued penalty are evaluated at the time of the call.
func (s *LendingService) GetLoanSnapshot(ctx context.Context, loanID uuid.UUID) (*domain.LoanSnapshot, error) {
	record, err := s.record(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return snapshotOf(record, s.clock()), nil
}

// GetPenalties returns the penalty position of a loan now.
func (s *LendingService) GetPenalties(ctx context.Context, loanID uuid.UUID) (*domain.PenaltySummary, error) {
	record, err := s.record(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return penalty.Summarize(record.Loan, record.Installments, s.clock()), nil
}

// record reads a full loan record, through the cache when there is one.
// A record loaded from the database comes from a single snapshot.
func (s *LendingService) record(ctx context.Context, loanID uuid.UUID) (*domain.LoanRecord, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, loanID)
		if err != nil {
			s.log.WithError(err).WithField("loan_id", loanID).Warn("loan cache read failed")
		}
		if cached != nil {
			return cached, nil
		}
	}

	var record *domain.LoanRecord
	err := s.store.Read(ctx, func(repos repository.Repositories) error {
		var err error
		record, err = s.loadRecord(ctx, repos, loanID, false)
		if err != nil {
			return err
		}
		record.Payments, err = repos.Payments.ListByLoanID(ctx, loanID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		record.Waivers, err = repos.Waivers.ListByLoanID(ctx, loanID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, record); err != nil {
			s.log.WithError(err).WithField("loan_id", loanID).Warn("loan cache write failed")
		}
	}

	return record, nil
}

func snapshotOf(record *domain.LoanRecord, asOf time.Time) *domain.LoanSnapshot {
	terms := penalty.TermsOf(record.Loan)
	views := make([]*domain.InstallmentView, 0, len(record.Installments))
	for _, inst := range record.Installments {
		views = append(views, &domain.InstallmentView{
			RepaymentInstallment: inst,
			EffectiveStatus:      inst.EffectiveStatus(asOf),
			AccruedPenalty:       penalty.Line(inst, terms, asOf).Accrued,
		})
	}

	return &domain.LoanSnapshot{
		Loan:         record.Loan,
		Installments: views,
		Payments:     record.Payments,
		Waivers:      record.Waivers,
		AsOf:         asOf,
	}
}

// Quote is a preview of the loan a product would produce. Nothing is stored.
type Quote struct {
	*amortization.Result
	NetDisbursement decimal.Decimal      `json:"net_disbursement"`
	Schedule        []amortization.Entry `json:"schedule"`
}

// Quote prices amount over termDays with the product's terms, as if it were
// disbursed now.
func (s *LendingService) Quote(ctx context.Context, request *domain.QuoteRequest) (*Quote, error) {
	product, err := s.store.Repositories().Products.GetByID(ctx, request.ProductID)
	if err != nil {
		return nil, lookupError(err, customError.WrapProductNotFound(request.ProductID))
	}

	if err := checkTerms(product, "amount", request.Amount, "term_days", request.TermDays); err != nil {
		return nil, err
	}

	result, err := s.calculate(product, request.Amount, request.TermDays, product.InterestRate)
	if err != nil {
		return nil, err
	}

	entries, err := amortization.GenerateSchedule(result, amortization.SchedulePolicy{
		Anchor:            s.clock(),
		FirstDueAfterDays: product.FirstDueAfterDays,
	})
	if err != nil {
		return nil, err
	}

	net := result.NetProceeds
	if product.DeductFirstPlatformFee {
		net = net.Sub(product.PlatformFeePerMonth.Round(amortization.MoneyPlaces))
	}

	return &Quote{Result: result, NetDisbursement: net, Schedule: entries}, nil
}
