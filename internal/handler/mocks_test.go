package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/honeynil/BizPromptService/internal/infrastructure/convertkit"
	"github.com/honeynil/BizPromptService/internal/models"
)

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthToken, error) {
	args := m.Called(ctx, req)
	t, _ := args.Get(0).(*models.AuthToken)
	return t, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*models.AuthToken, error) {
	args := m.Called(ctx, email, password)
	t, _ := args.Get(0).(*models.AuthToken)
	return t, args.Error(1)
}

func (m *mockAuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockAuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	return m.Called(ctx, email, password).Error(0)
}

type mockPaymentService struct{ mock.Mock }

func (m *mockPaymentService) CreateCheckout(ctx context.Context, in models.CheckoutInput) (*models.CheckoutResult, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*models.CheckoutResult)
	return r, args.Error(1)
}

func (m *mockPaymentService) GetStatus(ctx context.Context, sessionID string) (*models.PaymentStatusView, error) {
	args := m.Called(ctx, sessionID)
	v, _ := args.Get(0).(*models.PaymentStatusView)
	return v, args.Error(1)
}

func (m *mockPaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.Called(ctx, payload, signature).Error(0)
}

func (m *mockPaymentService) Refund(ctx context.Context, sessionID string) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, sessionID)
	tx, _ := args.Get(0).(*models.PaymentTransaction)
	return tx, args.Error(1)
}

func (m *mockPaymentService) ListTransactions(ctx context.Context, limit int) ([]models.PaymentTransaction, error) {
	args := m.Called(ctx, limit)
	txs, _ := args.Get(0).([]models.PaymentTransaction)
	return txs, args.Error(1)
}

type mockLeadService struct{ mock.Mock }

func (m *mockLeadService) Signup(ctx context.Context, req models.LeadSignupRequest) (*models.LeadSignupResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*models.LeadSignupResult)
	return r, args.Error(1)
}

type mockPromptService struct{ mock.Mock }

func (m *mockPromptService) List(category models.PromptCategory, premium *bool) []models.Prompt {
	args := m.Called(category, premium)
	p, _ := args.Get(0).([]models.Prompt)
	return p
}

func (m *mockPromptService) Categories() []models.CategoryCount {
	c, _ := m.Called().Get(0).([]models.CategoryCount)
	return c
}

func (m *mockPromptService) Premium(ctx context.Context, userID string) ([]models.Prompt, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).([]models.Prompt)
	return p, args.Error(1)
}

type mockSurveyService struct{ mock.Mock }

func (m *mockSurveyService) Active() []models.Survey {
	s, _ := m.Called().Get(0).([]models.Survey)
	return s
}

func (m *mockSurveyService) Submit(ctx context.Context, surveyID, email string, responses map[string]any) (*models.SurveyResponse, error) {
	args := m.Called(ctx, surveyID, email, responses)
	r, _ := args.Get(0).(*models.SurveyResponse)
	return r, args.Error(1)
}

type mockAdminService struct{ mock.Mock }

func (m *mockAdminService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	args := m.Called(ctx)
	d, _ := args.Get(0).(*models.Dashboard)
	return d, args.Error(1)
}

func (m *mockAdminService) Users(ctx context.Context, limit int) ([]models.User, error) {
	args := m.Called(ctx, limit)
	u, _ := args.Get(0).([]models.User)
	return u, args.Error(1)
}

func (m *mockAdminService) SurveyResponses(ctx context.Context, limit int) ([]models.SurveyResponse, error) {
	args := m.Called(ctx, limit)
	r, _ := args.Get(0).([]models.SurveyResponse)
	return r, args.Error(1)
}

func (m *mockAdminService) Subscriber(ctx context.Context, email string) (*convertkit.Subscriber, error) {
	args := m.Called(ctx, email)
	s, _ := args.Get(0).(*convertkit.Subscriber)
	return s, args.Error(1)
}
