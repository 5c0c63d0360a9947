package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
)

const waiverColumns = `id, loan_id, installment_id, waive_type, requested_amount, reason, notes, status,
		approved_amount, requested_by, requested_at, decided_at`

type waiverRepository struct {
	db sqlx.ExtContext
}

func NewWaiverRepository(db sqlx.ExtContext) WaiverRepository {
	return &waiverRepository{db: db}
}

func (r *waiverRepository) Create(ctx context.Context, waiver *domain.PenaltyWaiver) error {
	query := `
		INSERT INTO penalty_waivers (` + waiverColumns + `)
		VALUES (:id, :loan_id, :installment_id, :waive_type, :requested_amount, :reason, :notes, :status,
			:approved_amount, :requested_by, :requested_at, :decided_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, waiver)
	return err
}

func (r *waiverRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PenaltyWaiver, error) {
	query := `SELECT ` + waiverColumns + ` FROM penalty_waivers WHERE id = ?`

	var waiver domain.PenaltyWaiver
	err := sqlx.GetContext(ctx, r.db, &waiver, r.db.Rebind(query), id)
	if err != nil {
		return nil, err
	}

	return &waiver, nil
}

func (r *waiverRepository) Update(ctx context.Context, waiver *domain.PenaltyWaiver) error {
	query := `
		UPDATE penalty_waivers
		SET status = :status, approved_amount = :approved_amount, decided_at = :decided_at
		WHERE id = :id
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, waiver)
	return err
}

func (r *waiverRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.PenaltyWaiver, error) {
	query := `
		SELECT ` + waiverColumns + `
		FROM penalty_waivers
		WHERE loan_id = ?
		ORDER BY requested_at, id
	`

	waivers := []*domain.PenaltyWaiver{}
	err := sqlx.SelectContext(ctx, r.db, &waivers, r.db.Rebind(query), loanID)
	if err != nil {
		return nil, err
	}

	return waivers, nil
}
