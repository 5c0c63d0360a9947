package service

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/notify"
	"github.com/segyhp/lending-engine/internal/penalty"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// SweepResult summarises one overdue sweep.
type SweepResult struct {
	MarkedOverdue         int64           `json:"marked_overdue"`
	LoansScanned          int             `json:"loans_scanned"`
	PenalisedInstallments int             `json:"penalised_installments"`
	OutstandingPenalty    decimal.Decimal `json:"outstanding_penalty"`
}

// SweepOverdue persists the overdue flag of every unpaid installment past its
// due date and reports the penalty accrued across active loans. Installment
// status is left alone; overdue is always derivable from the due date.
func (s *LendingService) SweepOverdue(ctx context.Context) (*SweepResult, error) {
	now := s.clock()
	repos := s.store.Repositories()

	marked, err := repos.Installments.MarkOverdue(ctx, now)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	loanIDs, err := repos.Loans.ListActiveIDs(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	result := &SweepResult{MarkedOverdue: marked, OutstandingPenalty: decimal.Zero}
	var events []notify.Event
	for _, loanID := range loanIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record, err := s.loadRecord(ctx, repos, loanID, false)
		if err != nil {
			return result, err
		}
		result.LoansScanned++

		overdue := 0
		for _, inst := range record.Installments {
			if inst.IsOverdue(now) {
				overdue++
			}
		}
		if overdue == 0 {
			continue
		}

		// the persisted overdue flags changed under any cached copy
		s.invalidate(ctx, loanID)

		summary := penalty.Summarize(record.Loan, record.Installments, now)
		result.PenalisedInstallments += len(summary.Lines)
		result.OutstandingPenalty = result.OutstandingPenalty.Add(summary.Outstanding)

		s.log.WithFields(logrus.Fields{
			"loan_id":             loanID,
			"overdue":             overdue,
			"outstanding_penalty": summary.Outstanding.String(),
		}).Debug("loan overdue")
		events = append(events, notify.Event{
			Type:     notify.EventInstallmentOverdue,
			LoanID:   loanID.String(),
			EntityID: loanID.String(),
			Status:   record.Loan.Status,
			Attributes: map[string]string{
				"overdue_installments": strconv.Itoa(overdue),
				"outstanding_penalty":  summary.Outstanding.String(),
			},
		})
	}

	s.log.WithFields(logrus.Fields{
		"marked_overdue":         result.MarkedOverdue,
		"loans_scanned":          result.LoansScanned,
		"penalised_installments": result.PenalisedInstallments,
		"outstanding_penalty":    result.OutstandingPenalty.String(),
	}).Info("overdue sweep finished")
	s.publish(events...)

	return result, nil
}
