package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/amortization"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/notify"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

const notifyTimeout = 5 * time.Second

// SnapshotCache stores loan records between reads. Get returns nil on a miss.
type SnapshotCache interface {
	Get(ctx context.Context, loanID uuid.UUID) (*domain.LoanRecord, error)
	Set(ctx context.Context, record *domain.LoanRecord) error
	Invalidate(ctx context.Context, loanID uuid.UUID) error
}

// LendingService runs the loan lifecycle: applications, disbursement,
// payments and penalty waivers. Every mutation of a loan happens inside one
// transaction holding the loan row.
type LendingService struct {
	store    repository.Store
	cache    SnapshotCache
	notifier notify.Notifier
	config   *config.Config
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewLendingService wires the service. cache and notifier may be nil.
func NewLendingService(
	store repository.Store,
	cache SnapshotCache,
	notifier notify.Notifier,
	config *config.Config,
	log logrus.FieldLogger,
) *LendingService {
	return &LendingService{
		store:    store,
		cache:    cache,
		notifier: notifier,
		config:   config,
		log:      log,
		now:      time.Now,
	}
}

func (s *LendingService) clock() time.Time {
	return s.now().UTC()
}

// ActorLimits looks up the collector limits of an actor.
func (s *LendingService) ActorLimits(ctx context.Context, actorID string) (*domain.CollectorLimits, error) {
	if actorID == "" {
		return nil, customError.WrapInvalidRequest("actor_id", "actor id is required")
	}

	limits, err := s.store.Repositories().Limits.GetByActor(ctx, actorID)
	if err != nil {
		return nil, lookupError(err, customError.WrapLimitsNotFound(actorID))
	}

	return limits, nil
}

func (s *LendingService) resolveInterestType(product *domain.LoanProduct) (domain.InterestType, error) {
	interestType := product.InterestType
	if interestType == "" {
		interestType = s.config.GetDefaultInterestType()
	}
	if !interestType.Valid() {
		return "", customError.WrapUnrecognizedInterestType(string(interestType))
	}
	return interestType, nil
}

func (s *LendingService) calculate(product *domain.LoanProduct, amount decimal.Decimal, termDays int, rate decimal.Decimal) (*amortization.Result, error) {
	interestType, err := s.resolveInterestType(product)
	if err != nil {
		return nil, err
	}

	return amortization.Calculate(amortization.Input{
		Principal:               amount,
		TermMonths:              amortization.TermMonthsFromDays(termDays),
		Frequency:               product.PaymentFrequency,
		InterestRate:            rate,
		InterestType:            interestType,
		ProcessingFeePercentage: product.ProcessingFeePercentage,
		PlatformFeePerMonth:     product.PlatformFeePerMonth,
		LatePenaltyPercentage:   product.LatePenaltyPercentagePerDay,
	})
}

// checkTerms validates an amount and term against the product.
func checkTerms(product *domain.LoanProduct, amountField string, amount decimal.Decimal, termField string, termDays int) error {
	if err := checkMoney(amountField, amount); err != nil {
		return err
	}
	if !product.AmountInRange(amount) {
		return customError.WrapInvalidAmountRange(amountField, amount.String(), product.MinAmount.String(), product.MaxAmount.String())
	}
	if !product.TermAllowed(termDays) {
		if product.TermType == domain.TermTypeFixed {
			return customError.WrapInvalidTerm(termField, fmt.Sprintf("term must be exactly %d days for this product", product.FixedTermDays))
		}
		return customError.WrapInvalidTerm(termField, fmt.Sprintf("term must be between %d and %d days", product.MinTermDays, product.MaxTermDays))
	}
	return nil
}

// checkMoney rejects non-positive amounts and amounts below the minor unit.
func checkMoney(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return customError.WrapInvalidAmount(field, field+" must be greater than 0")
	}
	if !amount.Equal(amount.Round(amortization.MoneyPlaces)) {
		return customError.WrapInvalidAmount(field, field+" has more than 2 decimal places")
	}
	return nil
}

// lookupError turns a missing row into notFound and anything else into a database error.
func lookupError(err error, notFound *customError.BusinessError) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return customError.WrapDatabaseError(err)
}

// storeError passes business errors through and wraps the rest.
func storeError(err error) error {
	if _, ok := customError.AsBusinessError(err); ok {
		return err
	}
	return customError.WrapDatabaseError(err)
}

func (s *LendingService) loadRecord(ctx context.Context, repos repository.Repositories, loanID uuid.UUID, lock bool) (*domain.LoanRecord, error) {
	var (
		loan *domain.Loan
		err  error
	)
	if lock {
		loan, err = repos.Loans.GetForUpdate(ctx, loanID)
	} else {
		loan, err = repos.Loans.GetByID(ctx, loanID)
	}
	if err != nil {
		return nil, lookupError(err, customError.WrapLoanNotFound(loanID.String()))
	}

	installments, err := repos.Installments.ListByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.LoanRecord{Loan: loan, Installments: installments}, nil
}

func (s *LendingService) invalidate(ctx context.Context, loanID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, loanID); err != nil {
		s.log.WithError(err).WithField("loan_id", loanID).Warn("failed to invalidate loan cache")
	}
}

// publish sends events without waiting; a failed notification never affects the caller.
func (s *LendingService) publish(events ...notify.Event) {
	if s.notifier == nil || len(events) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		for _, event := range events {
			if err := s.notifier.Notify(ctx, event); err != nil {
				s.log.WithError(err).WithField("event", event.Type).Warn("notification failed")
			}
		}
	}()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func findInstallment(installments []*domain.RepaymentInstallment, id uuid.UUID) *domain.RepaymentInstallment {
	for _, inst := range installments {
		if inst.ID == id {
			return inst
		}
	}
	return nil
}

func balancesOf(loan *domain.Loan) domain.LoanBalances {
	return domain.LoanBalances{
		OutstandingBalance: loan.OutstandingBalance,
		TotalRepayable:     loan.TotalRepayable,
		TotalPaid:          loan.TotalRepayable.Sub(loan.OutstandingBalance),
		Status:             loan.Status,
	}
}
