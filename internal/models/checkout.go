package models

import "github.com/shopspring/decimal"

// Provider-side checkout session states.
const (
	ProviderPaymentPaid    = "paid"
	ProviderSessionExpired = "expired"
)

type CheckoutSessionRequest struct {
	Product    Product
	Email      string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// ProviderSession is the provider's view of a checkout session.
type ProviderSession struct {
	ID              string
	URL             string
	PaymentStatus   string
	Status          string
	AmountTotal     int64
	Currency        string
	PaymentIntentID string
	Metadata        map[string]string
}

// ProviderEvent is a verified webhook event. Session is set for checkout
// session events, PaymentIntentID for charge events.
type ProviderEvent struct {
	ID              string
	Type            string
	Session         *ProviderSession
	PaymentIntentID string
}

type CheckoutInput struct {
	ProductType ProductType `json:"product_type" validate:"required"`
	Email       string      `json:"email" validate:"omitempty,email"`
	SuccessURL  string      `json:"success_url" validate:"required,url"`
	CancelURL   string      `json:"cancel_url" validate:"required,url"`
	UserID      string      `json:"-"`
}

type CheckoutResult struct {
	CheckoutURL string          `json:"checkout_url"`
	SessionID   string          `json:"session_id"`
	Amount      decimal.Decimal `json:"amount"`
	ProductName string          `json:"product_name"`
}

// PaymentStatusView merges provider state with the local record.
type PaymentStatusView struct {
	SessionID     string              `json:"session_id"`
	PaymentStatus string              `json:"payment_status"`
	Status        string              `json:"status"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	Transaction   *PaymentTransaction `json:"transaction"`
}
