package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/notify"
	"github.com/segyhp/lending-engine/internal/penalty"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// penaltyScope is the penalty a waiver can act on: one installment, or every
// penalised installment of the loan.
type penaltyScope struct {
	lines     []*domain.PenaltyLine
	available decimal.Decimal
}

func scopeOf(record *domain.LoanRecord, installmentID uuid.NullUUID, asOf time.Time) (*penaltyScope, error) {
	scope := &penaltyScope{}
	if installmentID.Valid {
		inst := findInstallment(record.Installments, installmentID.UUID)
		if inst == nil {
			return nil, customError.WrapInstallmentNotFound(installmentID.UUID.String())
		}
		scope.lines = []*domain.PenaltyLine{penalty.Line(inst, penalty.TermsOf(record.Loan), asOf)}
	} else {
		scope.lines = penalty.Summarize(record.Loan, record.Installments, asOf).Lines
	}

	for _, line := range scope.lines {
		scope.available = scope.available.Add(line.Outstanding)
	}
	return scope, nil
}

// apply records amount as waived penalty, oldest installment first.
func (p *penaltyScope) apply(ctx context.Context, repos repository.Repositories, amount decimal.Decimal, installments []*domain.RepaymentInstallment) error {
	for _, allocation := range penalty.Allocate(amount, p.lines, installments) {
		inst := allocation.Installment
		inst.PenaltyWaived = inst.PenaltyWaived.Add(allocation.Amount)
		if err := repos.Installments.Update(ctx, inst); err != nil {
			return customError.WrapDatabaseError(err)
		}
	}
	return nil
}

// RequestWaiver files a penalty waiver on behalf of the actor owning limits.
// A waiver within both of the actor's limits is approved and applied at once;
// anything else waits for DecideWaiver.
func (s *LendingService) RequestWaiver(ctx context.Context, loanID uuid.UUID, request *domain.RequestWaiverRequest, limits *domain.CollectorLimits) (*domain.RequestWaiverResponse, error) {
	if limits == nil {
		return nil, customError.WrapInvalidRequest("actor_id", "collector limits are required to request a waiver")
	}
	if request.WaiveType != domain.WaiveTypeFull && request.WaiveType != domain.WaiveTypePartial {
		return nil, customError.WrapInvalidRequest("waive_type", fmt.Sprintf("waive type %q is not supported", request.WaiveType))
	}
	if request.Reason == "" {
		return nil, customError.WrapInvalidRequest("reason", "reason is required")
	}

	var (
		waiver *domain.PenaltyWaiver
		eval   penalty.Evaluation
	)
	err := s.store.Atomic(ctx, func(repos repository.Repositories) error {
		record, err := s.loadRecord(ctx, repos, loanID, true)
		if err != nil {
			return err
		}

		var installmentID uuid.NullUUID
		if request.InstallmentID != nil {
			installmentID = uuid.NullUUID{UUID: *request.InstallmentID, Valid: true}
		}

		now := s.clock()
		scope, err := scopeOf(record, installmentID, now)
		if err != nil {
			return err
		}
		if !scope.available.IsPositive() {
			return customError.WrapInvalidAmount("requested_amount", "there is no outstanding penalty to waive")
		}

		amount, err := waiverAmount(request, scope.available)
		if err != nil {
			return err
		}

		waiver = &domain.PenaltyWaiver{
			ID:              uuid.New(),
			LoanID:          record.Loan.ID,
			InstallmentID:   installmentID,
			WaiveType:       request.WaiveType,
			RequestedAmount: amount,
			Reason:          request.Reason,
			Notes:           request.Notes,
			Status:          domain.WaiverStatusPending,
			RequestedBy:     limits.ActorID,
			RequestedAt:     now,
		}

		eval = penalty.EvaluateWaiver(amount, scope.available, limits)
		if eval.AutoApprove {
			if err := scope.apply(ctx, repos, amount, record.Installments); err != nil {
				return err
			}
			waiver.Status = domain.WaiverStatusAutoApproved
			waiver.ApprovedAmount = &amount
			waiver.DecidedAt = &now
		}

		if err := repos.Waivers.Create(ctx, waiver); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.invalidate(ctx, loanID)

	s.log.WithFields(logrus.Fields{
		"loan_id":   loanID,
		"waiver_id": waiver.ID,
		"amount":    waiver.RequestedAmount.String(),
		"percent":   eval.Percent.StringFixed(2),
		"status":    waiver.Status,
	}).Info("penalty waiver requested")
	s.publish(waiverEvent(notify.EventWaiverRequested, waiver))

	return &domain.RequestWaiverResponse{
		WaiverID:       waiver.ID,
		Status:         waiver.Status,
		AutoApproved:   eval.AutoApprove,
		ApprovedAmount: waiver.ApprovedAmount,
	}, nil
}

// waiverAmount settles the amount a request asks for. A full waiver takes
// the whole available penalty; an amount given with it must match.
func waiverAmount(request *domain.RequestWaiverRequest, available decimal.Decimal) (decimal.Decimal, error) {
	if request.WaiveType == domain.WaiveTypeFull {
		if !request.RequestedAmount.IsZero() && !request.RequestedAmount.Equal(available) {
			return decimal.Zero, customError.WrapInvalidAmount("requested_amount",
				fmt.Sprintf("a full waiver covers the whole penalty of %s", available))
		}
		return available, nil
	}

	if err := checkMoney("requested_amount", request.RequestedAmount); err != nil {
		return decimal.Zero, err
	}
	if request.RequestedAmount.GreaterThan(available) {
		return decimal.Zero, customError.WrapInvalidAmount("requested_amount",
			fmt.Sprintf("requested amount %s exceeds the outstanding penalty of %s", request.RequestedAmount, available))
	}
	return request.RequestedAmount, nil
}

// DecideWaiver resolves a pending waiver. An approval applies the approved
// amount, which defaults to the requested amount and is capped by the penalty
// still outstanding at decision time.
func (s *LendingService) DecideWaiver(ctx context.Context, waiverID uuid.UUID, request *domain.DecideWaiverRequest) (*domain.DecideWaiverResponse, error) {
	if request.Decision != domain.WaiverDecisionApprove && request.Decision != domain.WaiverDecisionReject {
		return nil, customError.WrapInvalidRequest("decision", fmt.Sprintf("decision %q is not supported", request.Decision))
	}

	var waiver *domain.PenaltyWaiver
	err := s.store.Atomic(ctx, func(repos repository.Repositories) error {
		found, err := repos.Waivers.GetByID(ctx, waiverID)
		if err != nil {
			return lookupError(err, customError.WrapWaiverNotFound(waiverID.String()))
		}

		record, err := s.loadRecord(ctx, repos, found.LoanID, true)
		if err != nil {
			return err
		}

		// read again now that the loan is held
		waiver, err = repos.Waivers.GetByID(ctx, waiverID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if !waiver.IsPending() {
			return customError.WrapWaiverNotPending(waiver.ID.String(), waiver.Status)
		}

		now := s.clock()
		waiver.DecidedAt = &now

		if request.Decision == domain.WaiverDecisionReject {
			waiver.Status = domain.WaiverStatusRejected
			return updateWaiver(ctx, repos, waiver)
		}

		amount := waiver.RequestedAmount
		if request.ApprovedAmount != nil {
			if err := checkMoney("approved_amount", *request.ApprovedAmount); err != nil {
				return err
			}
			if request.ApprovedAmount.GreaterThan(waiver.RequestedAmount) {
				return customError.WrapInvalidAmount("approved_amount", "approved amount exceeds the requested amount")
			}
			amount = *request.ApprovedAmount
		}

		scope, err := scopeOf(record, waiver.InstallmentID, now)
		if err != nil {
			return err
		}
		amount = decimal.Min(amount, scope.available)
		if err := scope.apply(ctx, repos, amount, record.Installments); err != nil {
			return err
		}

		waiver.Status = domain.WaiverStatusApproved
		waiver.ApprovedAmount = &amount
		return updateWaiver(ctx, repos, waiver)
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.invalidate(ctx, waiver.LoanID)

	s.log.WithFields(logrus.Fields{
		"loan_id":   waiver.LoanID,
		"waiver_id": waiver.ID,
		"status":    waiver.Status,
	}).Info("penalty waiver decided")
	s.publish(waiverEvent(notify.EventWaiverDecided, waiver))

	return &domain.DecideWaiverResponse{
		WaiverID:       waiver.ID,
		Status:         waiver.Status,
		ApprovedAmount: waiver.ApprovedAmount,
	}, nil
}

func updateWaiver(ctx context.Context, repos repository.Repositories, waiver *domain.PenaltyWaiver) error {
	if err := repos.Waivers.Update(ctx, waiver); err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

func waiverEvent(eventType string, waiver *domain.PenaltyWaiver) notify.Event {
	event := notify.Event{
		Type:     eventType,
		LoanID:   waiver.LoanID.String(),
		EntityID: waiver.ID.String(),
		Status:   waiver.Status,
		Attributes: map[string]string{
			"requested_amount": waiver.RequestedAmount.String(),
			"requested_by":     waiver.RequestedBy,
		},
	}
	if waiver.ApprovedAmount != nil {
		event.Attributes["approved_amount"] = waiver.ApprovedAmount.String()
	}
	return event
}
