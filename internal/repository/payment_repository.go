package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
)

const paymentColumns = `id, loan_id, installment_id, requested_installment_id, amount, method, reference, notes, idempotency_key, applied_at`

type paymentRepository struct {
	db sqlx.ExtContext
}

func NewPaymentRepository(db sqlx.ExtContext) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (:id, :loan_id, :installment_id, :requested_installment_id, :amount, :method, :reference, :notes, :idempotency_key, :applied_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, payment)
	return err
}

func (r *paymentRepository) GetByIdempotencyKey(ctx context.Context, loanID uuid.UUID, key string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE loan_id = ? AND idempotency_key = ?
	`

	var payment domain.Payment
	err := sqlx.GetContext(ctx, r.db, &payment, r.db.Rebind(query), loanID, key)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE loan_id = ?
		ORDER BY applied_at, id
	`

	payments := []*domain.Payment{}
	err := sqlx.SelectContext(ctx, r.db, &payments, r.db.Rebind(query), loanID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}
