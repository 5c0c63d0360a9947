package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/notify"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// CreateApplication validates the request against the product and stores a
// submitted application.
func (s *LendingService) CreateApplication(ctx context.Context, request *domain.CreateApplicationRequest) (*domain.LoanApplication, error) {
	repos := s.store.Repositories()

	product, err := repos.Products.GetByID(ctx, request.ProductID)
	if err != nil {
		return nil, lookupError(err, customError.WrapProductNotFound(request.ProductID))
	}

	if _, err := s.resolveInterestType(product); err != nil {
		return nil, err
	}

	if err := checkTerms(product, "requested_amount", request.RequestedAmount, "requested_term_days", request.RequestedTermDays); err != nil {
		return nil, err
	}

	now := s.clock()
	app := &domain.LoanApplication{
		ID:                uuid.New(),
		CustomerID:        request.CustomerID,
		ProductID:         product.ID,
		RequestedAmount:   request.RequestedAmount,
		RequestedTermDays: request.RequestedTermDays,
		Purpose:           request.Purpose,
		Status:            domain.ApplicationStatusSubmitted,
		SubmittedAt:       now,
		UpdatedAt:         now,
	}

	if err := repos.Applications.Create(ctx, app); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.log.WithFields(logrus.Fields{
		"application_id": app.ID,
		"product_id":     app.ProductID,
		"amount":         app.RequestedAmount.String(),
	}).Info("application submitted")
	s.publish(applicationEvent(notify.EventApplicationSubmitted, app))

	return app, nil
}

// GetApplication returns an application by id
func (s *LendingService) GetApplication(ctx context.Context, applicationID uuid.UUID) (*domain.LoanApplication, error) {
	app, err := s.store.Repositories().Applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, lookupError(err, customError.WrapApplicationNotFound(applicationID.String()))
	}
	return app, nil
}

// ReviewApplication moves a submitted application under review.
func (s *LendingService) ReviewApplication(ctx context.Context, applicationID uuid.UUID) (*domain.LoanApplication, error) {
	var app *domain.LoanApplication
	err := s.store.Atomic(ctx, func(repos repository.Repositories) error {
		var err error
		app, err = lockApplication(ctx, repos, applicationID)
		if err != nil {
			return err
		}
		if err := app.StartReview(s.clock()); err != nil {
			return err
		}
		return repos.Applications.Update(ctx, app)
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.log.WithField("application_id", app.ID).Info("application under review")
	s.publish(applicationEvent(notify.EventApplicationReviewed, app))

	return app, nil
}

// ApproveApplication approves a pending application on behalf of the actor
// owning limits. Approvals above the actor's amount limit, or beyond the
// actor's daily approval count, are refused with EscalationRequired.
func (s *LendingService) ApproveApplication(ctx context.Context, applicationID uuid.UUID, request *domain.ApproveApplicationRequest, limits *domain.CollectorLimits) (*domain.ApplicationDecisionResponse, error) {
	if limits == nil {
		return nil, customError.WrapInvalidRequest("actor_id", "collector limits are required to approve")
	}

	var app *domain.LoanApplication
	err := s.store.Atomic(ctx, func(repos repository.Repositories) error {
		var err error
		app, err = lockApplication(ctx, repos, applicationID)
		if err != nil {
			return err
		}
		if !app.IsPending() {
			return customError.WrapApplicationNotPending(app.ID.String(), app.Status)
		}

		product, err := repos.Products.GetByID(ctx, app.ProductID)
		if err != nil {
			return lookupError(err, customError.WrapProductNotFound(app.ProductID))
		}

		if err := checkTerms(product, "approved_amount", request.ApprovedAmount, "approved_term_days", request.ApprovedTermDays); err != nil {
			return err
		}
		if request.ApprovedRate.IsNegative() {
			return customError.WrapInvalidRequest("approved_rate", "approved rate must not be negative")
		}

		if request.ApprovedAmount.GreaterThan(limits.MaxApprovalAmount) {
			return customError.WrapEscalationRequired("approved_amount", fmt.Sprintf(
				"approved amount %s exceeds the approval limit %s of actor %s",
				request.ApprovedAmount, limits.MaxApprovalAmount, limits.ActorID))
		}

		now := s.clock()
		if limits.MaxApprovalPerDay > 0 {
			approvedToday, err := repos.Applications.CountApprovedBy(ctx, limits.ActorID, startOfDay(now))
			if err != nil {
				return customError.WrapDatabaseError(err)
			}
			if approvedToday >= limits.MaxApprovalPerDay {
				return customError.WrapEscalationRequired("actor_id", fmt.Sprintf(
					"actor %s already approved %d applications today", limits.ActorID, approvedToday))
			}
		}

		if err := app.Approve(request.ApprovedAmount, request.ApprovedTermDays, request.ApprovedRate, limits.ActorID, request.Notes, now); err != nil {
			return err
		}
		return repos.Applications.Update(ctx, app)
	})
	if err != nil {
		if be, ok := customError.AsBusinessError(err); ok && be.Code == customError.ErrCodeEscalationRequired {
			s.log.WithFields(logrus.Fields{
				"application_id": applicationID,
				"actor_id":       limits.ActorID,
			}).Info("approval needs escalation")
		}
		return nil, storeError(err)
	}

	s.log.WithFields(logrus.Fields{
		"application_id": app.ID,
		"actor_id":       limits.ActorID,
		"amount":         request.ApprovedAmount.String(),
	}).Info("application approved")
	s.publish(applicationEvent(notify.EventApplicationApproved, app))

	return &domain.ApplicationDecisionResponse{ApplicationID: app.ID, Status: app.Status}, nil
}

// RejectApplication closes a pending application with a reason.
func (s *LendingService) RejectApplication(ctx context.Context, applicationID uuid.UUID, request *domain.RejectApplicationRequest) (*domain.ApplicationDecisionResponse, error) {
	var app *domain.LoanApplication
	err := s.store.Atomic(ctx, func(repos repository.Repositories) error {
		var err error
		app, err = lockApplication(ctx, repos, applicationID)
		if err != nil {
			return err
		}
		if err := app.Reject(request.Reason, request.Notes, s.clock()); err != nil {
			return err
		}
		return repos.Applications.Update(ctx, app)
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.log.WithFields(logrus.Fields{
		"application_id": app.ID,
		"reason":         request.Reason,
	}).Info("application rejected")
	s.publish(applicationEvent(notify.EventApplicationRejected, app))

	return &domain.ApplicationDecisionResponse{ApplicationID: app.ID, Status: app.Status}, nil
}

func lockApplication(ctx context.Context, repos repository.Repositories, applicationID uuid.UUID) (*domain.LoanApplication, error) {
	app, err := repos.Applications.GetForUpdate(ctx, applicationID)
	if err != nil {
		return nil, lookupError(err, customError.WrapApplicationNotFound(applicationID.String()))
	}
	return app, nil
}

func applicationEvent(eventType string, app *domain.LoanApplication) notify.Event {
	event := notify.Event{
		Type:     eventType,
		EntityID: app.ID.String(),
		Status:   app.Status,
		Attributes: map[string]string{
			"customer_id": app.CustomerID,
			"product_id":  app.ProductID,
		},
	}
	if app.LoanID.Valid {
		event.LoanID = app.LoanID.UUID.String()
	}
	return event
}
