package marketing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TaskKind string

const (
	KindLeadMagnetSignup TaskKind = "lead_magnet_signup"
	KindCustomerPurchase TaskKind = "customer_purchase"
)

// Task is one unit of email-marketing work, serialised onto the queue.
type Task struct {
	Kind        TaskKind        `json:"kind"`
	Email       string          `json:"email"`
	FirstName   string          `json:"first_name,omitempty"`
	ProductType string          `json:"product_type,omitempty"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
	MagnetType  string          `json:"magnet_type,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

type Queue interface {
	Enqueue(ctx context.Context, task Task) error
}
