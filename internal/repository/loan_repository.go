package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
)

const loanColumns = `id, application_id, product_id, customer_id, principal_amount, interest_type, interest_rate,
		term_months, payment_frequency, late_penalty_rate, grace_period_days, penalty_base, interest_amount,
		processing_fee_amount, platform_fee_total, total_repayable, outstanding_balance, net_disbursement,
		status, disbursement_method, disbursement_reference, disbursement_notes, disbursed_at, completed_at, updated_at`

type loanRepository struct {
	db sqlx.ExtContext
}

func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (:id, :application_id, :product_id, :customer_id, :principal_amount, :interest_type, :interest_rate,
			:term_months, :payment_frequency, :late_penalty_rate, :grace_period_days, :penalty_base, :interest_amount,
			:processing_fee_amount, :platform_fee_total, :total_repayable, :outstanding_balance, :net_disbursement,
			:status, :disbursement_method, :disbursement_reference, :disbursement_notes, :disbursed_at, :completed_at, :updated_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, loan)
	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `WHERE id = ?`, id)
}

func (r *loanRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `WHERE id = ?`+forUpdate(r.db), id)
}

func (r *loanRepository) GetByApplicationID(ctx context.Context, applicationID uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `WHERE application_id = ?`, applicationID)
}

func (r *loanRepository) get(ctx context.Context, where string, args ...interface{}) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans ` + where

	var loan domain.Loan
	err := sqlx.GetContext(ctx, r.db, &loan, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET outstanding_balance = :outstanding_balance, status = :status, completed_at = :completed_at, updated_at = :updated_at
		WHERE id = :id
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, loan)
	return err
}

func (r *loanRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT id FROM loans WHERE status = ? ORDER BY disbursed_at`

	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, r.db, &ids, r.db.Rebind(query), domain.LoanStatusActive)
	if err != nil {
		return nil, err
	}

	return ids, nil
}
