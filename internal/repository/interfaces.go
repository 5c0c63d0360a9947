package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/lending-engine/internal/domain"
)

// Lookups that find nothing return sql.ErrNoRows.

// ProductRepository is the read port for loan products
type ProductRepository interface {
	// GetByID retrieves a product by its ID
	GetByID(ctx context.Context, id string) (*domain.LoanProduct, error)

	// Create stores a product. Products are authored elsewhere; this is used for seeding.
	Create(ctx context.Context, product *domain.LoanProduct) error
}

// LimitsRepository is the read port for collector limits
type LimitsRepository interface {
	// GetByActor retrieves the limits configured for an actor
	GetByActor(ctx context.Context, actorID string) (*domain.CollectorLimits, error)

	// Save creates or replaces the limits of an actor
	Save(ctx context.Context, limits *domain.CollectorLimits) error
}

// ApplicationRepository defines the interface for loan application data operations
type ApplicationRepository interface {
	// Create creates a new application
	Create(ctx context.Context, app *domain.LoanApplication) error

	// GetByID retrieves an application by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error)

	// GetForUpdate retrieves an application and locks it for the current transaction
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error)

	// Update persists the mutable fields of an application
	Update(ctx context.Context, app *domain.LoanApplication) error

	// CountApprovedBy counts approvals made by an actor since the given time
	CountApprovedBy(ctx context.Context, actorID string, since time.Time) (int, error)
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetForUpdate retrieves a loan and locks it for the current transaction
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByApplicationID retrieves the loan created from an application
	GetByApplicationID(ctx context.Context, applicationID uuid.UUID) (*domain.Loan, error)

	// Update updates a loan
	Update(ctx context.Context, loan *domain.Loan) error

	// ListActiveIDs lists the IDs of all active loans
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

// InstallmentRepository defines the interface for repayment schedule operations
type InstallmentRepository interface {
	// CreateBatch creates the installments of a schedule
	CreateBatch(ctx context.Context, installments []*domain.RepaymentInstallment) error

	// ListByLoanID retrieves the schedule of a loan ordered by installment number
	ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.RepaymentInstallment, error)

	// Update persists outstanding amount, status and penalty fields of an installment
	Update(ctx context.Context, installment *domain.RepaymentInstallment) error

	// MarkOverdue flags unpaid installments due before asOf and returns how many changed
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByIdempotencyKey retrieves the payment recorded under a key for a loan
	GetByIdempotencyKey(ctx context.Context, loanID uuid.UUID, key string) (*domain.Payment, error)

	// ListByLoanID retrieves all payments for a loan in the order they were applied
	ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)
}

// WaiverRepository defines the interface for penalty waiver operations
type WaiverRepository interface {
	// Create creates a new waiver request
	Create(ctx context.Context, waiver *domain.PenaltyWaiver) error

	// GetByID retrieves a waiver by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PenaltyWaiver, error)

	// Update persists the decision fields of a waiver
	Update(ctx context.Context, waiver *domain.PenaltyWaiver) error

	// ListByLoanID retrieves the waivers of a loan
	ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.PenaltyWaiver, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Products     ProductRepository
	Limits       LimitsRepository
	Applications ApplicationRepository
	Loans        LoanRepository
	Installments InstallmentRepository
	Payments     PaymentRepository
	Waivers      WaiverRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	// Repositories returns repositories outside any transaction
	Repositories() Repositories

	// Atomic runs fn in a transaction; any error rolls back every write made through repos
	Atomic(ctx context.Context, fn func(repos Repositories) error) error

	// Read runs fn in a read-only transaction that sees a single committed state
	Read(ctx context.Context, fn func(repos Repositories) error) error
}
