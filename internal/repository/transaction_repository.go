package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/honeynil/BizPromptService/internal/models"
)

// TransactionRepository is the durable store for checkout attempts. Status
// changes go through Transition only, which applies them conditionally on the
// stored status.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.PaymentTransaction) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.PaymentTransaction, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.PaymentTransaction, error)
	Transition(ctx context.Context, sessionID string, from, to models.PaymentStatus, upd models.TransitionUpdate) (*models.PaymentTransaction, error)
	UpdateProviderFields(ctx context.Context, sessionID, paymentIntentID, providerStatus string) error
	List(ctx context.Context, limit int) ([]models.PaymentTransaction, error)
	SumCompleted(ctx context.Context) (decimal.Decimal, error)
}
