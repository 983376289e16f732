package marketing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/BizPromptService/internal/infrastructure/observability"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

// ESP is the email service provider the automation drives.
type ESP interface {
	AddSubscriber(ctx context.Context, email, firstName string, tags []string) (int64, error)
	EnrollInSequence(ctx context.Context, email, sequence string, fields map[string]string) error
	TagSubscriber(ctx context.Context, email, tag string) error
}

type Automation struct {
	esp         ESP
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

func NewAutomation(esp ESP) *Automation {
	return &Automation{esp: esp, maxAttempts: 3, backoff: time.Second, now: time.Now}
}

// WithRetry overrides the retry policy. The nth retry waits n*backoff.
func (a *Automation) WithRetry(maxAttempts int, backoff time.Duration) *Automation {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	a.maxAttempts = maxAttempts
	a.backoff = backoff
	return a
}

func (a *Automation) Handle(ctx context.Context, task Task) error {
	switch task.Kind {
	case KindLeadMagnetSignup:
		return a.leadMagnetSignup(ctx, task)
	case KindCustomerPurchase:
		return a.customerPurchase(ctx, task)
	default:
		return fmt.Errorf("%w: unknown marketing task kind %q", pkgerrors.ErrInvalidInput, task.Kind)
	}
}

// HandleWithRetry retries transient ESP failures. An unconfigured ESP or an
// unknown task kind is not retried.
func (a *Automation) HandleWithRetry(ctx context.Context, task Task) error {
	var err error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				observability.MarketingTasks.WithLabelValues(string(task.Kind), "cancelled").Inc()
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * a.backoff):
			}
		}

		err = a.Handle(ctx, task)
		if err == nil {
			observability.MarketingTasks.WithLabelValues(string(task.Kind), "success").Inc()
			return nil
		}
		if errors.Is(err, pkgerrors.ErrESPNotConfigured) {
			slog.Warn("ESP not configured, marketing task skipped", "kind", task.Kind, "email", task.Email)
			observability.MarketingTasks.WithLabelValues(string(task.Kind), "skipped").Inc()
			return nil
		}
		if !retryable(err) {
			break
		}
		slog.Warn("marketing task failed", "kind", task.Kind, "email", task.Email, "attempt", attempt, "error", err)
	}
	observability.MarketingTasks.WithLabelValues(string(task.Kind), "failed").Inc()
	return err
}

// HandleMessage decodes a queued task and processes it. Its signature matches
// kafka.MessageHandler.
func (a *Automation) HandleMessage(ctx context.Context, _, value []byte) error {
	var task Task
	if err := json.Unmarshal(value, &task); err != nil {
		observability.MarketingTasks.WithLabelValues("unknown", "invalid").Inc()
		return fmt.Errorf("failed to decode marketing task: %w", err)
	}
	return a.HandleWithRetry(ctx, task)
}

func (a *Automation) leadMagnetSignup(ctx context.Context, task Task) error {
	if _, err := a.esp.AddSubscriber(ctx, task.Email, task.FirstName, []string{"lead_magnet_subscriber"}); err != nil {
		return err
	}
	if err := a.esp.EnrollInSequence(ctx, task.Email, "lead_magnet", nil); err != nil {
		return err
	}
	if err := a.esp.EnrollInSequence(ctx, task.Email, "nurture", nil); err != nil {
		return err
	}
	slog.Info("lead magnet signup processed", "email", task.Email, "magnet_type", task.MagnetType)
	return nil
}

func (a *Automation) customerPurchase(ctx context.Context, task Task) error {
	customerTag := "regular_customer"
	if task.ProductType == "presale" {
		customerTag = "presale_customer"
	}

	for _, tag := range []string{"paying_customer", customerTag} {
		if err := a.esp.TagSubscriber(ctx, task.Email, tag); err != nil {
			return err
		}
	}

	fields := map[string]string{
		"purchase_amount": task.Amount.StringFixed(2),
		"purchase_date":   a.now().UTC().Format(time.RFC3339),
		"product_type":    task.ProductType,
	}
	if err := a.esp.EnrollInSequence(ctx, task.Email, "customer_onboarding", fields); err != nil {
		return err
	}
	slog.Info("customer purchase processed", "email", task.Email, "product_type", task.ProductType, "amount", task.Amount.StringFixed(2))
	return nil
}

func retryable(err error) bool {
	return !errors.Is(err, pkgerrors.ErrUnknownSequence) &&
		!errors.Is(err, pkgerrors.ErrUnknownTag) &&
		!errors.Is(err, pkgerrors.ErrInvalidInput)
}
