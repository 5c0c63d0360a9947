package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/amortization"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/notify"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

var methods = map[string]bool{
	domain.PaymentMethodCash:         true,
	domain.PaymentMethodBankTransfer: true,
	domain.PaymentMethodMobileMoney:  true,
}

func checkMethod(method, reference string) error {
	if !methods[method] {
		return customError.WrapInvalidRequest("method", fmt.Sprintf("method %q is not supported", method))
	}
	if domain.RequiresReference(method) && strings.TrimSpace(reference) == "" {
		return customError.WrapMissingReference(method)
	}
	return nil
}

// Disburse turns an approved application into a loan with its repayment
// schedule. The loan, its installments and the application transition are
// written in one transaction. Disbursing an application that is already
// disbursed returns the existing loan with Replayed set.
func (s *LendingService) Disburse(ctx context.Context, applicationID uuid.UUID, request *domain.DisburseRequest, limits *domain.CollectorLimits) (*domain.DisburseResponse, error) {
	if limits == nil {
		return nil, customError.WrapInvalidRequest("actor_id", "collector limits are required to disburse")
	}
	if err := checkMethod(request.Method, request.Reference); err != nil {
		return nil, err
	}

	var response *domain.DisburseResponse
	err := s.store.Atomic(ctx, func(repos repository.Repositories) error {
		app, err := lockApplication(ctx, repos, applicationID)
		if err != nil {
			return err
		}

		if app.Status == domain.ApplicationStatusDisbursed && app.LoanID.Valid {
			record, err := s.loadRecord(ctx, repos, app.LoanID.UUID, false)
			if err != nil {
				return err
			}
			response = disburseResponse(record.Loan, record.Installments)
			response.Replayed = true
			return nil
		}
		if app.Status != domain.ApplicationStatusApproved {
			return customError.WrapApplicationNotPending(app.ID.String(), app.Status)
		}

		amount := *app.ApprovedAmount
		if amount.GreaterThan(limits.MaxDisbursementAmount) {
			return customError.WrapEscalationRequired("approved_amount", fmt.Sprintf(
				"amount %s exceeds the disbursement limit %s of actor %s",
				amount, limits.MaxDisbursementAmount, limits.ActorID))
		}

		product, err := repos.Products.GetByID(ctx, app.ProductID)
		if err != nil {
			return lookupError(err, customError.WrapProductNotFound(app.ProductID))
		}

		penaltyBase, err := resolvePenaltyBase(product)
		if err != nil {
			return err
		}

		result, err := s.calculate(product, amount, *app.ApprovedTermDays, *app.ApprovedRate)
		if err != nil {
			return err
		}

		now := s.clock()
		entries, err := amortization.GenerateSchedule(result, amortization.SchedulePolicy{
			Anchor:            now,
			FirstDueAfterDays: product.FirstDueAfterDays,
		})
		if err != nil {
			return err
		}

		net := result.NetProceeds
		if product.DeductFirstPlatformFee {
			net = net.Sub(product.PlatformFeePerMonth.Round(amortization.MoneyPlaces))
		}
		if !net.IsPositive() {
			return customError.WrapInvalidAmount("approved_amount", "fees leave nothing to disburse")
		}

		loan := &domain.Loan{
			ID:                    uuid.New(),
			ApplicationID:         app.ID,
			ProductID:             product.ID,
			CustomerID:            app.CustomerID,
			PrincipalAmount:       result.Principal,
			InterestType:          result.InterestType,
			InterestRate:          result.InterestRate,
			TermMonths:            result.TermMonths,
			PaymentFrequency:      result.Frequency,
			LatePenaltyRate:       product.LatePenaltyPercentagePerDay,
			GracePeriodDays:       product.GracePeriodDays,
			PenaltyBase:           penaltyBase,
			InterestAmount:        result.InterestAmount,
			ProcessingFeeAmount:   result.ProcessingFeeAmount,
			PlatformFeeTotal:      result.PlatformFeeTotal,
			TotalRepayable:        result.TotalRepayable,
			OutstandingBalance:    result.TotalRepayable,
			NetDisbursement:       net,
			Status:                domain.LoanStatusActive,
			DisbursementMethod:    request.Method,
			DisbursementReference: request.Reference,
			DisbursementNotes:     request.Notes,
			DisbursedAt:           now,
			UpdatedAt:             now,
		}

		installments := make([]*domain.RepaymentInstallment, 0, len(entries))
		for _, entry := range entries {
			installments = append(installments, &domain.RepaymentInstallment{
				ID:                uuid.New(),
				LoanID:            loan.ID,
				InstallmentNumber: entry.Number,
				DueDate:           entry.DueDate,
				PrincipalAmount:   entry.Principal,
				InterestAmount:    entry.Interest,
				FeeAmount:         entry.Fee,
				TotalAmount:       entry.Total,
				OutstandingAmount: entry.Total,
				Status:            domain.InstallmentStatusPending,
				PenaltyWaived:     decimal.Zero,
				CreatedAt:         now,
			})
		}

		if err := repos.Loans.Create(ctx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := repos.Installments.CreateBatch(ctx, installments); err != nil {
			return customError.WrapDatabaseError(err)
		}
		if err := app.MarkDisbursed(loan.ID, now); err != nil {
			return err
		}
		if err := repos.Applications.Update(ctx, app); err != nil {
			return customError.WrapDatabaseError(err)
		}

		response = disburseResponse(loan, installments)
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	if response.Replayed {
		s.log.WithFields(logrus.Fields{
			"application_id": applicationID,
			"loan_id":        response.LoanID,
		}).Info("disbursement replayed")
		return response, nil
	}

	s.log.WithFields(logrus.Fields{
		"application_id":   applicationID,
		"loan_id":          response.LoanID,
		"net_disbursement": response.NetDisbursement.String(),
		"installments":     response.Schedule.NumPayments,
	}).Info("loan disbursed")
	s.publish(notify.Event{
		Type:     notify.EventLoanDisbursed,
		LoanID:   response.LoanID.String(),
		EntityID: applicationID.String(),
		Status:   domain.LoanStatusActive,
		Attributes: map[string]string{
			"net_disbursement": response.NetDisbursement.String(),
			"method":           request.Method,
		},
	})

	return response, nil
}

func resolvePenaltyBase(product *domain.LoanProduct) (domain.PenaltyBase, error) {
	if !product.PenaltyBase.Valid() {
		return "", customError.WrapInvalidRequest("penalty_base",
			fmt.Sprintf("penalty base %q of product %s is not supported", product.PenaltyBase, product.ID))
	}
	if product.PenaltyBase == "" {
		return domain.PenaltyBaseOutstanding, nil
	}
	return product.PenaltyBase, nil
}

func disburseResponse(loan *domain.Loan, installments []*domain.RepaymentInstallment) *domain.DisburseResponse {
	summary := domain.ScheduleSummary{
		NumPayments:    len(installments),
		TotalRepayable: loan.TotalRepayable,
	}
	if len(installments) > 0 {
		summary.InstallmentAmount = installments[0].TotalAmount
		summary.FirstDueDate = installments[0].DueDate
		summary.LastDueDate = installments[len(installments)-1].DueDate
	}

	return &domain.DisburseResponse{
		LoanID:          loan.ID,
		NetDisbursement: loan.NetDisbursement,
		Schedule:        summary,
	}
}
