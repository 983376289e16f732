package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/honeynil/BizPromptService/internal/marketing"
	"github.com/honeynil/BizPromptService/internal/models"
)

type mockUserRepository struct{ mock.Mock }

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockUserRepository) UpgradeEntitlement(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockUserRepository) List(ctx context.Context, limit int) ([]models.User, error) {
	args := m.Called(ctx, limit)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *mockUserRepository) Stats(ctx context.Context, since time.Time) (models.UserStats, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(models.UserStats), args.Error(1)
}

func (m *mockUserRepository) HasAdmin(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type mockTransactionRepository struct{ mock.Mock }

func (m *mockTransactionRepository) Create(ctx context.Context, tx *models.PaymentTransaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *mockTransactionRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, sessionID)
	tx, _ := args.Get(0).(*models.PaymentTransaction)
	return tx, args.Error(1)
}

func (m *mockTransactionRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, paymentIntentID)
	tx, _ := args.Get(0).(*models.PaymentTransaction)
	return tx, args.Error(1)
}

func (m *mockTransactionRepository) Transition(ctx context.Context, sessionID string, from, to models.PaymentStatus, upd models.TransitionUpdate) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, sessionID, from, to, upd)
	tx, _ := args.Get(0).(*models.PaymentTransaction)
	return tx, args.Error(1)
}

func (m *mockTransactionRepository) UpdateProviderFields(ctx context.Context, sessionID, paymentIntentID, providerStatus string) error {
	return m.Called(ctx, sessionID, paymentIntentID, providerStatus).Error(0)
}

func (m *mockTransactionRepository) List(ctx context.Context, limit int) ([]models.PaymentTransaction, error) {
	args := m.Called(ctx, limit)
	txs, _ := args.Get(0).([]models.PaymentTransaction)
	return txs, args.Error(1)
}

func (m *mockTransactionRepository) SumCompleted(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type mockLeadRepository struct{ mock.Mock }

func (m *mockLeadRepository) Create(ctx context.Context, lead *models.LeadMagnetSignup) error {
	return m.Called(ctx, lead).Error(0)
}

func (m *mockLeadRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLeadRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

type mockSurveyResponseRepository struct{ mock.Mock }

func (m *mockSurveyResponseRepository) Create(ctx context.Context, resp *models.SurveyResponse) error {
	return m.Called(ctx, resp).Error(0)
}

func (m *mockSurveyResponseRepository) List(ctx context.Context, limit int) ([]models.SurveyResponse, error) {
	args := m.Called(ctx, limit)
	out, _ := args.Get(0).([]models.SurveyResponse)
	return out, args.Error(1)
}

func (m *mockSurveyResponseRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockRedisClient struct{ mock.Mock }

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *mockRedisClient) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRedisClient) Close() error {
	return m.Called().Error(0)
}

type mockPaymentProvider struct{ mock.Mock }

func (m *mockPaymentProvider) CreateCheckoutSession(ctx context.Context, req models.CheckoutSessionRequest) (*models.ProviderSession, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*models.ProviderSession)
	return s, args.Error(1)
}

func (m *mockPaymentProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*models.ProviderSession, error) {
	args := m.Called(ctx, sessionID)
	s, _ := args.Get(0).(*models.ProviderSession)
	return s, args.Error(1)
}

func (m *mockPaymentProvider) ParseWebhook(payload []byte, signature string) (*models.ProviderEvent, error) {
	args := m.Called(payload, signature)
	e, _ := args.Get(0).(*models.ProviderEvent)
	return e, args.Error(1)
}

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Dispatch(ctx context.Context, tx *models.PaymentTransaction) error {
	return m.Called(ctx, tx).Error(0)
}

type mockQueue struct{ mock.Mock }

func (m *mockQueue) Enqueue(ctx context.Context, task marketing.Task) error {
	return m.Called(ctx, task).Error(0)
}
