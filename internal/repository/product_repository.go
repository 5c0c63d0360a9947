package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
)

const productColumns = `id, name, min_amount, max_amount, interest_rate, interest_type, term_type, fixed_term_days,
		min_term_days, max_term_days, payment_frequency, processing_fee_percentage, platform_fee_per_month,
		late_penalty_percentage_per_day, grace_period_days, penalty_base, first_due_after_days, deduct_first_platform_fee`

const limitsColumns = `actor_id, max_approval_amount, max_approval_per_day, max_disbursement_amount,
		max_penalty_waiver_amount, max_penalty_waiver_percent`

type productRepository struct {
	db sqlx.ExtContext
}

func NewProductRepository(db sqlx.ExtContext) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.LoanProduct, error) {
	query := `SELECT ` + productColumns + ` FROM loan_products WHERE id = ?`

	var product domain.LoanProduct
	err := sqlx.GetContext(ctx, r.db, &product, r.db.Rebind(query), id)
	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepository) Create(ctx context.Context, product *domain.LoanProduct) error {
	query := `
		INSERT INTO loan_products (` + productColumns + `)
		VALUES (:id, :name, :min_amount, :max_amount, :interest_rate, :interest_type, :term_type, :fixed_term_days,
			:min_term_days, :max_term_days, :payment_frequency, :processing_fee_percentage, :platform_fee_per_month,
			:late_penalty_percentage_per_day, :grace_period_days, :penalty_base, :first_due_after_days, :deduct_first_platform_fee)
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, product)
	return err
}

type limitsRepository struct {
	db sqlx.ExtContext
}

func NewLimitsRepository(db sqlx.ExtContext) LimitsRepository {
	return &limitsRepository{db: db}
}

func (r *limitsRepository) GetByActor(ctx context.Context, actorID string) (*domain.CollectorLimits, error) {
	query := `SELECT ` + limitsColumns + ` FROM collector_limits WHERE actor_id = ?`

	var limits domain.CollectorLimits
	err := sqlx.GetContext(ctx, r.db, &limits, r.db.Rebind(query), actorID)
	if err != nil {
		return nil, err
	}

	return &limits, nil
}

func (r *limitsRepository) Save(ctx context.Context, limits *domain.CollectorLimits) error {
	query := `
		INSERT INTO collector_limits (` + limitsColumns + `)
		VALUES (:actor_id, :max_approval_amount, :max_approval_per_day, :max_disbursement_amount,
			:max_penalty_waiver_amount, :max_penalty_waiver_percent)
		ON CONFLICT (actor_id) DO UPDATE SET
			max_approval_amount = excluded.max_approval_amount,
			max_approval_per_day = excluded.max_approval_per_day,
			max_disbursement_amount = excluded.max_disbursement_amount,
			max_penalty_waiver_amount = excluded.max_penalty_waiver_amount,
			max_penalty_waiver_percent = excluded.max_penalty_waiver_percent
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, limits)
	return err
}
