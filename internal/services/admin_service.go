package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/honeynil/BizPromptService/internal/infrastructure/convertkit"
	"github.com/honeynil/BizPromptService/internal/models"
	"github.com/honeynil/BizPromptService/internal/repository"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

const recentWindow = 7 * 24 * time.Hour

var monthlyRevenueTarget = decimal.NewFromInt(925)

type AdminService interface {
	Dashboard(ctx context.Context) (*models.Dashboard, error)
	Users(ctx context.Context, limit int) ([]models.User, error)
	SurveyResponses(ctx context.Context, limit int) ([]models.SurveyResponse, error)
	Subscriber(ctx context.Context, email string) (*convertkit.Subscriber, error)
}

// SubscriberLookup finds an ESP subscriber by email. A nil subscriber with a
// nil error means no match.
type SubscriberLookup interface {
	GetSubscriber(ctx context.Context, email string) (*convertkit.Subscriber, error)
}

type adminService struct {
	userRepo        repository.UserRepository
	leadRepo        repository.LeadRepository
	responseRepo    repository.SurveyResponseRepository
	transactionRepo repository.TransactionRepository
	subscribers     SubscriberLookup
	now             func() time.Time
}

func NewAdminService(
	userRepo repository.UserRepository,
	leadRepo repository.LeadRepository,
	responseRepo repository.SurveyResponseRepository,
	transactionRepo repository.TransactionRepository,
) *adminService {
	return &adminService{
		userRepo:        userRepo,
		leadRepo:        leadRepo,
		responseRepo:    responseRepo,
		transactionRepo: transactionRepo,
		now:             time.Now,
	}
}

func (s *adminService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	ctx, span := otel.Tracer("admin-service").Start(ctx, "Dashboard")
	defer span.End()

	since := s.now().UTC().Add(-recentWindow)

	stats, err := s.userRepo.Stats(ctx, since)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load user stats: %w", err)
	}
	leads, err := s.leadRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}
	recentLeads, err := s.leadRepo.CountSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent leads: %w", err)
	}
	responses, err := s.responseRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count survey responses: %w", err)
	}
	revenue, err := s.transactionRepo.SumCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	var conversion float64
	if stats.Total > 0 {
		conversion = float64(stats.Paid) / float64(stats.Total) * 100
	}

	return &models.Dashboard{
		Users: models.DashboardUsers{
			Total:          stats.Total,
			Paid:           stats.Paid,
			RecentSignups:  stats.RecentSignups,
			ConversionRate: conversion,
		},
		Leads:   models.DashboardLeads{Total: leads, Recent: recentLeads},
		Surveys: models.DashboardSurveys{TotalResponses: responses},
		Revenue: models.DashboardRevenue{Total: revenue, MonthlyTarget: monthlyRevenueTarget},
	}, nil
}

func (s *adminService) Users(ctx context.Context, limit int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit)
}

func (s *adminService) SurveyResponses(ctx context.Context, limit int) ([]models.SurveyResponse, error) {
	return s.responseRepo.List(ctx, limit)
}

func (s *adminService) WithSubscriberLookup(lookup SubscriberLookup) *adminService {
	s.subscribers = lookup
	return s
}

// Subscriber returns the ESP record for an email.
func (s *adminService) Subscriber(ctx context.Context, email string) (*convertkit.Subscriber, error) {
	ctx, span := otel.Tracer("admin-service").Start(ctx, "Subscriber")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", pkgerrors.ErrInvalidInput)
	}
	if s.subscribers == nil {
		return nil, pkgerrors.ErrESPNotConfigured
	}

	sub, err := s.subscribers.GetSubscriber(ctx, email)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if sub == nil {
		return nil, pkgerrors.ErrSubscriberNotFound
	}
	return sub, nil
}
