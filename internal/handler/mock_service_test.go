package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/service"
)

type mockLendingService struct {
	mock.Mock
}

func (m *mockLendingService) ActorLimits(ctx context.Context, actorID string) (*domain.CollectorLimits, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CollectorLimits), args.Error(1)
}

func (m *mockLendingService) CreateApplication(ctx context.Context, request *domain.CreateApplicationRequest) (*domain.LoanApplication, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}

func (m *mockLendingService) GetApplication(ctx context.Context, applicationID uuid.UUID) (*domain.LoanApplication, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}

func (m *mockLendingService) ReviewApplication(ctx context.Context, applicationID uuid.UUID) (*domain.LoanApplication, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}

func (m *mockLendingService) ApproveApplication(ctx context.Context, applicationID uuid.UUID, request *domain.ApproveApplicationRequest, limits *domain.CollectorLimits) (*domain.ApplicationDecisionResponse, error) {
	args := m.Called(ctx, applicationID, request, limits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApplicationDecisionResponse), args.Error(1)
}

func (m *mockLendingService) RejectApplication(ctx context.Context, applicationID uuid.UUID, request *domain.RejectApplicationRequest) (*domain.ApplicationDecisionResponse, error) {
	args := m.Called(ctx, applicationID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApplicationDecisionResponse), args.Error(1)
}

func (m *mockLendingService) Disburse(ctx context.Context, applicationID uuid.UUID, request *domain.DisburseRequest, limits *domain.CollectorLimits) (*domain.DisburseResponse, error) {
	args := m.Called(ctx, applicationID, request, limits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DisburseResponse), args.Error(1)
}

func (m *mockLendingService) RecordPayment(ctx context.Context, loanID uuid.UUID, request *domain.RecordPaymentRequest) (*domain.RecordPaymentResponse, error) {
	args := m.Called(ctx, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecordPaymentResponse), args.Error(1)
}

func (m *mockLendingService) RequestWaiver(ctx context.Context, loanID uuid.UUID, request *domain.RequestWaiverRequest, limits *domain.CollectorLimits) (*domain.RequestWaiverResponse, error) {
	args := m.Called(ctx, loanID, request, limits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RequestWaiverResponse), args.Error(1)
}

func (m *mockLendingService) DecideWaiver(ctx context.Context, waiverID uuid.UUID, request *domain.DecideWaiverRequest) (*domain.DecideWaiverResponse, error) {
	args := m.Called(ctx, waiverID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DecideWaiverResponse), args.Error(1)
}

func (m *mockLendingService) GetLoanSnapshot(ctx context.Context, loanID uuid.UUID) (*domain.LoanSnapshot, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanSnapshot), args.Error(1)
}

func (m *mockLendingService) GetPenalties(ctx context.Context, loanID uuid.UUID) (*domain.PenaltySummary, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PenaltySummary), args.Error(1)
}

func (m *mockLendingService) Quote(ctx context.Context, request *domain.QuoteRequest) (*service.Quote, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Quote), args.Error(1)
}
