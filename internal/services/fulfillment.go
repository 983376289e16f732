package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/honeynil/BizPromptService/internal/infrastructure/observability"
	"github.com/honeynil/BizPromptService/internal/marketing"
	"github.com/honeynil/BizPromptService/internal/models"
	"github.com/honeynil/BizPromptService/internal/repository"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

const (
	defaultEnqueueTimeout  = 2 * time.Second
	defaultUpgradeAttempts = 3
	defaultUpgradeBackoff  = 500 * time.Millisecond
)

// Fulfillment runs the side effects of a completed payment. It is invoked only
// by the caller whose status transition to completed succeeded.
type Fulfillment struct {
	userRepo        repository.UserRepository
	queue           marketing.Queue
	enqueueTimeout  time.Duration
	upgradeAttempts int
	upgradeBackoff  time.Duration
	now             func() time.Time
}

func NewFulfillment(userRepo repository.UserRepository, queue marketing.Queue) *Fulfillment {
	return &Fulfillment{
		userRepo:        userRepo,
		queue:           queue,
		enqueueTimeout:  defaultEnqueueTimeout,
		upgradeAttempts: defaultUpgradeAttempts,
		upgradeBackoff:  defaultUpgradeBackoff,
		now:             time.Now,
	}
}

// Dispatch upgrades the purchaser and queues the customer email flow. The
// returned error reports a failed upgrade; the payment status is never rolled
// back because of it. Queueing failures are only logged.
func (f *Fulfillment) Dispatch(ctx context.Context, tx *models.PaymentTransaction) error {
	ctx, span := otel.Tracer("fulfillment").Start(ctx, "Dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", tx.SessionID))

	var upgradeErr error
	firstName := ""
	if tx.UserID != nil && *tx.UserID != "" {
		if upgradeErr = f.upgrade(ctx, *tx.UserID); upgradeErr != nil {
			span.RecordError(upgradeErr)
			observability.Logger(ctx).Error("failed to upgrade purchaser", "session_id", tx.SessionID, "user_id", *tx.UserID, "error", upgradeErr)
		} else {
			observability.Logger(ctx).Info("purchaser upgraded", "session_id", tx.SessionID, "user_id", *tx.UserID)
		}
		if user, err := f.userRepo.GetByID(ctx, *tx.UserID); err == nil {
			firstName = user.FirstName
		}
	}

	f.enqueue(ctx, marketing.Task{
		Kind:        marketing.KindCustomerPurchase,
		Email:       tx.Email,
		FirstName:   firstName,
		ProductType: tx.Metadata["product_type"],
		Amount:      tx.Amount,
		EnqueuedAt:  f.now().UTC(),
	})
	return upgradeErr
}

// upgrade retries the entitlement write. The payment is already completed, so
// later deliveries will not bring the purchaser back here.
func (f *Fulfillment) upgrade(ctx context.Context, userID string) error {
	var err error
	for attempt := 1; attempt <= f.upgradeAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
			case <-time.After(time.Duration(attempt-1) * f.upgradeBackoff):
			}
		}
		err = f.userRepo.UpgradeEntitlement(ctx, userID, f.now().UTC())
		if err == nil || stderrors.Is(err, pkgerrors.ErrUserNotFound) {
			return err
		}
		observability.Logger(ctx).Warn("entitlement upgrade failed", "user_id", userID, "attempt", attempt, "error", err)
	}
	return err
}

func (f *Fulfillment) enqueue(ctx context.Context, task marketing.Task) {
	if f.queue == nil {
		return
	}
	// The request may finish before the enqueue does; keep the trace, drop the cancel.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.enqueueTimeout)
	defer cancel()
	if err := f.queue.Enqueue(ctx, task); err != nil {
		observability.Logger(ctx).Error("failed to enqueue marketing task", "kind", task.Kind, "email", task.Email, "error", err)
	}
}
