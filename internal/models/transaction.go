package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

type PaymentTransaction struct {
	ID              string            `json:"id"`
	SessionID       string            `json:"session_id"`
	UserID          *string           `json:"user_id,omitempty"`
	Email           string            `json:"email"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	ProductName     string            `json:"product_name"`
	PaymentStatus   PaymentStatus     `json:"payment_status"`
	PaymentIntentID *string           `json:"payment_intent_id,omitempty"`
	ProviderStatus  *string           `json:"provider_status,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

// allowedTransitions lists every edge of the payment state machine.
var allowedTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:   {PaymentCompleted, PaymentCancelled, PaymentFailed},
	PaymentCompleted: {PaymentRefunded},
}

// CheckTransition returns ErrInvalidTransition unless from -> to is an edge of
// the state machine. Same-state moves are rejected too; callers treat them as
// no-ops before asking.
func CheckTransition(from, to PaymentStatus) error {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", pkgerrors.ErrInvalidTransition, from, to)
}

// TransitionUpdate carries provider fields written together with a status change.
type TransitionUpdate struct {
	PaymentIntentID string
	ProviderStatus  string
	At              time.Time
}
