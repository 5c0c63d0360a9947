// Package notify publishes status transitions to whoever delivers
// notifications. Delivery itself happens outside this service.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

const (
	EventApplicationSubmitted = "application.submitted"
	EventApplicationReviewed  = "application.under_review"
	EventApplicationApproved  = "application.approved"
	EventApplicationRejected  = "application.rejected"
	EventLoanDisbursed        = "loan.disbursed"
	EventPaymentRecorded      = "payment.recorded"
	EventLoanCompleted        = "loan.completed"
	EventWaiverRequested      = "waiver.requested"
	EventWaiverDecided        = "waiver.decided"
	EventInstallmentOverdue   = "installment.overdue"
)

// Event is one status transition.
type Event struct {
	Type       string
	LoanID     string
	EntityID   string
	Status     string
	Attributes map[string]string
}

// Notifier receives events after the transition has been committed.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// LogNotifier writes events to the log.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	fields := logrus.Fields{
		"event":     event.Type,
		"entity_id": event.EntityID,
		"status":    event.Status,
	}
	if event.LoanID != "" {
		fields["loan_id"] = event.LoanID
	}
	for k, v := range event.Attributes {
		fields[k] = v
	}
	n.log.WithFields(fields).Info("status transition")
	return nil
}
