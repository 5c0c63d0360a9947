package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/notify"
	"github.com/segyhp/lending-engine/internal/penalty"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// RecordPayment applies a payment to one installment of a loan: the one
// requested, or the earliest one still owed. Amounts above the installment's
// outstanding amount are refused, never capped.
//
// The idempotency key is scoped to the loan. Repeating a request with the
// same key, amount and method returns the original result with Replayed set
// and changes nothing; reusing the key for a different payment fails with
// DuplicatePaymentReplay.
func (s *LendingService) RecordPayment(ctx context.Context, loanID uuid.UUID, request *domain.RecordPaymentRequest) (*domain.RecordPaymentResponse, error) {
	if request.IdempotencyKey == "" {
		return nil, customError.WrapInvalidRequest("idempotency_key", "idempotency key is required")
	}
	if err := checkMoney("amount", request.Amount); err != nil {
		return nil, err
	}
	if err := checkMethod(request.Method, request.Reference); err != nil {
		return nil, err
	}

	var (
		response  *domain.RecordPaymentResponse
		completed bool
	)
	err := s.store.Atomic(ctx, func(repos repository.Repositories) error {
		record, err := s.loadRecord(ctx, repos, loanID, true)
		if err != nil {
			return err
		}
		loan, installments := record.Loan, record.Installments

		previous, err := repos.Payments.GetByIdempotencyKey(ctx, loan.ID, request.IdempotencyKey)
		switch {
		case err == nil:
			if !sameRequest(previous, request) {
				return customError.WrapDuplicatePaymentReplay(request.IdempotencyKey)
			}
			response = &domain.RecordPaymentResponse{
				Payment:     previous,
				Installment: findInstallment(installments, previous.InstallmentID),
				Balances:    balancesOf(loan),
				Replayed:    true,
			}
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return customError.WrapDatabaseError(err)
		}

		if loan.Status == domain.LoanStatusWrittenOff {
			return customError.WrapInvalidRequest("loan_id", "loan "+loan.ID.String()+" is written off")
		}

		target, err := paymentTarget(installments, request.InstallmentID)
		if err != nil {
			return err
		}
		if request.Amount.GreaterThan(target.OutstandingAmount) {
			return customError.WrapPaymentExceedsOutstanding(request.Amount.String(), target.OutstandingAmount.String())
		}

		now := s.clock()
		penalty.Settle(target, penalty.TermsOf(loan), now)
		target.ApplyPayment(request.Amount, now)
		if err := repos.Installments.Update(ctx, target); err != nil {
			return customError.WrapDatabaseError(err)
		}

		payment := &domain.Payment{
			ID:             uuid.New(),
			LoanID:         loan.ID,
			InstallmentID:  target.ID,
			Amount:         request.Amount,
			Method:         request.Method,
			Reference:      request.Reference,
			Notes:          request.Notes,
			IdempotencyKey: request.IdempotencyKey,
			AppliedAt:      now,
		}
		if request.InstallmentID != nil {
			payment.RequestedInstallmentID = uuid.NullUUID{UUID: *request.InstallmentID, Valid: true}
		}
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return customError.WrapDatabaseError(err)
		}

		completed = loan.Refresh(installments, now)
		if err := repos.Loans.Update(ctx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}

		response = &domain.RecordPaymentResponse{
			Payment:     payment,
			Installment: target,
			Balances:    balancesOf(loan),
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	if response.Replayed {
		s.log.WithFields(logrus.Fields{
			"loan_id":         loanID,
			"idempotency_key": request.IdempotencyKey,
		}).Info("payment replayed")
		return response, nil
	}

	s.invalidate(ctx, loanID)

	s.log.WithFields(logrus.Fields{
		"loan_id":            loanID,
		"installment_number": response.Installment.InstallmentNumber,
		"amount":             request.Amount.String(),
		"outstanding":        response.Balances.OutstandingBalance.String(),
	}).Info("payment recorded")

	events := []notify.Event{{
		Type:     notify.EventPaymentRecorded,
		LoanID:   loanID.String(),
		EntityID: response.Payment.ID.String(),
		Status:   response.Installment.Status,
		Attributes: map[string]string{
			"amount": request.Amount.String(),
			"method": request.Method,
		},
	}}
	if completed {
		s.log.WithField("loan_id", loanID).Info("loan completed")
		events = append(events, notify.Event{
			Type:     notify.EventLoanCompleted,
			LoanID:   loanID.String(),
			EntityID: loanID.String(),
			Status:   domain.LoanStatusCompleted,
		})
	}
	s.publish(events...)

	return response, nil
}

// sameRequest reports whether request repeats the payment already recorded.
// A request that names no installment matches whichever one was paid.
func sameRequest(previous *domain.Payment, request *domain.RecordPaymentRequest) bool {
	if !previous.Amount.Equal(request.Amount) || previous.Method != request.Method {
		return false
	}
	if request.InstallmentID == nil {
		return true
	}
	return *request.InstallmentID == previous.InstallmentID
}

// paymentTarget picks the requested installment, or the earliest unpaid one.
func paymentTarget(installments []*domain.RepaymentInstallment, requested *uuid.UUID) (*domain.RepaymentInstallment, error) {
	if requested != nil {
		target := findInstallment(installments, *requested)
		if target == nil {
			return nil, customError.WrapInstallmentNotFound(requested.String())
		}
		if target.IsPaid() {
			return nil, customError.WrapAlreadyPaidInstallment(target.InstallmentNumber)
		}
		return target, nil
	}

	for _, inst := range installments {
		if !inst.IsPaid() {
			return inst, nil
		}
	}
	if len(installments) == 0 {
		return nil, customError.WrapInstallmentNotFound("")
	}
	return nil, customError.WrapAlreadyPaidInstallment(installments[len(installments)-1].InstallmentNumber)
}
