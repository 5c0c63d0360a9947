package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
)

const installmentColumns = `id, loan_id, installment_number, due_date, principal_amount, interest_amount, fee_amount,
		total_amount, outstanding_amount, status, overdue, penalty_waived, penalty_accrued, penalty_accrued_through,
		paid_at, created_at`

type installmentRepository struct {
	db sqlx.ExtContext
}

func NewInstallmentRepository(db sqlx.ExtContext) InstallmentRepository {
	return &installmentRepository{db: db}
}

// CreateBatch must run inside the caller's transaction so a schedule is never
// partially written.
func (r *installmentRepository) CreateBatch(ctx context.Context, installments []*domain.RepaymentInstallment) error {
	query := `
		INSERT INTO repayment_installments (` + installmentColumns + `)
		VALUES (:id, :loan_id, :installment_number, :due_date, :principal_amount, :interest_amount, :fee_amount,
			:total_amount, :outstanding_amount, :status, :overdue, :penalty_waived, :penalty_accrued, :penalty_accrued_through,
			:paid_at, :created_at)
	`

	for _, installment := range installments {
		if _, err := sqlx.NamedExecContext(ctx, r.db, query, installment); err != nil {
			return err
		}
	}

	return nil
}

func (r *installmentRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.RepaymentInstallment, error) {
	query := `
		SELECT ` + installmentColumns + `
		FROM repayment_installments
		WHERE loan_id = ?
		ORDER BY installment_number
	`

	var installments []*domain.RepaymentInstallment
	err := sqlx.SelectContext(ctx, r.db, &installments, r.db.Rebind(query), loanID)
	if err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) Update(ctx context.Context, installment *domain.RepaymentInstallment) error {
	query := `
		UPDATE repayment_installments
		SET outstanding_amount = :outstanding_amount, status = :status, overdue = :overdue,
			penalty_waived = :penalty_waived, penalty_accrued = :penalty_accrued,
			penalty_accrued_through = :penalty_accrued_through, paid_at = :paid_at
		WHERE id = :id
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, installment)
	return err
}

func (r *installmentRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE repayment_installments
		SET overdue = TRUE
		WHERE status <> ? AND due_date < ? AND overdue = FALSE
	`

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), domain.InstallmentStatusPaid, asOf.UTC())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
