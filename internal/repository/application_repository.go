package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
)

const applicationColumns = `id, customer_id, product_id, requested_amount, requested_term_days, purpose, status,
		approved_amount, approved_term_days, approved_rate, approved_by, decision_notes, rejection_reason, loan_id,
		submitted_at, reviewed_at, approved_at, rejected_at, disbursed_at, updated_at`

type applicationRepository struct {
	db sqlx.ExtContext
}

func NewApplicationRepository(db sqlx.ExtContext) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.LoanApplication) error {
	query := `
		INSERT INTO loan_applications (` + applicationColumns + `)
		VALUES (:id, :customer_id, :product_id, :requested_amount, :requested_term_days, :purpose, :status,
			:approved_amount, :approved_term_days, :approved_rate, :approved_by, :decision_notes, :rejection_reason, :loan_id,
			:submitted_at, :reviewed_at, :approved_at, :rejected_at, :disbursed_at, :updated_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, app)
	return err
}

func (r *applicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	return r.get(ctx, id, "")
}

func (r *applicationRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	return r.get(ctx, id, forUpdate(r.db))
}

func (r *applicationRepository) get(ctx context.Context, id uuid.UUID, lock string) (*domain.LoanApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE id = ?` + lock

	var app domain.LoanApplication
	err := sqlx.GetContext(ctx, r.db, &app, r.db.Rebind(query), id)
	if err != nil {
		return nil, err
	}

	return &app, nil
}

func (r *applicationRepository) Update(ctx context.Context, app *domain.LoanApplication) error {
	query := `
		UPDATE loan_applications
		SET status = :status, approved_amount = :approved_amount, approved_term_days = :approved_term_days,
			approved_rate = :approved_rate, approved_by = :approved_by, decision_notes = :decision_notes,
			rejection_reason = :rejection_reason, loan_id = :loan_id, reviewed_at = :reviewed_at,
			approved_at = :approved_at, rejected_at = :rejected_at, disbursed_at = :disbursed_at, updated_at = :updated_at
		WHERE id = :id
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, app)
	return err
}

func (r *applicationRepository) CountApprovedBy(ctx context.Context, actorID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM loan_applications WHERE approved_by = ? AND approved_at >= ?`

	var count int
	err := sqlx.GetContext(ctx, r.db, &count, r.db.Rebind(query), actorID, since.UTC())
	if err != nil {
		return 0, err
	}

	return count, nil
}
