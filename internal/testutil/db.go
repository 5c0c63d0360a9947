// Package testutil builds throwaway stores and fixtures for tests.
package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
)

// NewDB opens a migrated in-memory SQLite database that lives as long as the test.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, repository.Migrate(context.Background(), db))
	return db
}

// NewStore returns a Store over a fresh database.
func NewStore(t *testing.T) (repository.Store, *sqlx.DB) {
	t.Helper()
	db := NewDB(t)
	return repository.NewStore(db), db
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// FlatProduct is a monthly flat-interest product: 5% a month, 5% processing
// fee, 50 platform fee a month and 1% daily late penalty after 3 days grace.
func FlatProduct() *domain.LoanProduct {
	return &domain.LoanProduct{
		ID:                          "flat-monthly",
		Name:                        "Flat monthly",
		MinAmount:                   Dec("1000"),
		MaxAmount:                   Dec("500000"),
		InterestRate:                Dec("0.05"),
		InterestType:                domain.InterestTypeFlat,
		TermType:                    domain.TermTypeFlexible,
		MinTermDays:                 30,
		MaxTermDays:                 360,
		PaymentFrequency:            domain.FrequencyMonthly,
		ProcessingFeePercentage:     Dec("0.05"),
		PlatformFeePerMonth:         Dec("50"),
		LatePenaltyPercentagePerDay: Dec("0.01"),
		GracePeriodDays:             3,
	}
}

// SeniorLimits are generous limits for an actor allowed to do everything.
func SeniorLimits(actorID string) *domain.CollectorLimits {
	return &domain.CollectorLimits{
		ActorID:                 actorID,
		MaxApprovalAmount:       Dec("1000000"),
		MaxApprovalPerDay:       0,
		MaxDisbursementAmount:   Dec("1000000"),
		MaxPenaltyWaiverAmount:  Dec("1000"),
		MaxPenaltyWaiverPercent: Dec("50"),
	}
}

// Seed stores products and limits directly.
func Seed(t *testing.T, store repository.Store, products []*domain.LoanProduct, limits []*domain.CollectorLimits) {
	t.Helper()
	ctx := context.Background()
	repos := store.Repositories()
	for _, p := range products {
		require.NoError(t, repos.Products.Create(ctx, p))
	}
	for _, l := range limits {
		require.NoError(t, repos.Limits.Save(ctx, l))
	}
}
