package service

import (
	"context"
	"fmt"
	"time"

	stderrors "errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/honeynil/BizPromptService/internal/infrastructure/observability"
	"github.com/honeynil/BizPromptService/internal/infrastructure/redis"
	"github.com/honeynil/BizPromptService/internal/models"
	"github.com/honeynil/BizPromptService/internal/repository"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

// Webhook event types handled by the service.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventCheckoutAsyncSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncFailed    = "checkout.session.async_payment_failed"
	EventCheckoutExpired        = "checkout.session.expired"
	EventChargeRefunded         = "charge.refunded"
)

const (
	webhookDedupeTTL   = 24 * time.Hour
	redisWriteTimeout  = 2 * time.Second
	dispatchTimeout    = 15 * time.Second
	maxTransitionTries = 3
)

// PaymentProvider is the hosted checkout backend.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req models.CheckoutSessionRequest) (*models.ProviderSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*models.ProviderSession, error)
	ParseWebhook(payload []byte, signature string) (*models.ProviderEvent, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, tx *models.PaymentTransaction) error
}

type PaymentService interface {
	CreateCheckout(ctx context.Context, in models.CheckoutInput) (*models.CheckoutResult, error)
	GetStatus(ctx context.Context, sessionID string) (*models.PaymentStatusView, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	Refund(ctx context.Context, sessionID string) (*models.PaymentTransaction, error)
	ListTransactions(ctx context.Context, limit int) ([]models.PaymentTransaction, error)
}

type paymentService struct {
	transactionRepo repository.TransactionRepository
	userRepo        repository.UserRepository
	provider        PaymentProvider
	dispatcher      Dispatcher
	redisClient     redis.RedisClient
	now             func() time.Time
}

// NewPaymentService accepts a nil provider; every payment operation then fails
// with ErrConfiguration. redisClient may be nil, which disables event dedupe.
func NewPaymentService(
	transactionRepo repository.TransactionRepository,
	userRepo repository.UserRepository,
	provider PaymentProvider,
	dispatcher Dispatcher,
	redisClient redis.RedisClient,
) *paymentService {
	return &paymentService{
		transactionRepo: transactionRepo,
		userRepo:        userRepo,
		provider:        provider,
		dispatcher:      dispatcher,
		redisClient:     redisClient,
		now:             time.Now,
	}
}

func (s *paymentService) CreateCheckout(ctx context.Context, in models.CheckoutInput) (*models.CheckoutResult, error) {
	ctx, span := otel.Tracer("payment-service").Start(ctx, "CreateCheckout")
	defer span.End()

	product, err := models.LookupProduct(in.ProductType)
	if err != nil {
		span.SetStatus(codes.Error, "invalid product")
		observability.Logger(ctx).Warn("checkout for unknown product", "product_type", in.ProductType)
		return nil, err
	}
	if s.provider == nil {
		span.SetStatus(codes.Error, "provider not configured")
		observability.Logger(ctx).Error("checkout requested but payment provider is not configured")
		return nil, pkgerrors.ErrConfiguration
	}

	email := in.Email
	if in.UserID != "" {
		user, err := s.userRepo.GetByID(ctx, in.UserID)
		if err != nil && !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: failed to load purchaser", pkgerrors.ErrInternal)
		}
		if user == nil {
			in.UserID = ""
		} else if email == "" {
			email = user.Email
		}
	}
	if email == "" {
		span.SetStatus(codes.Error, "email required")
		return nil, fmt.Errorf("%w: email is required", pkgerrors.ErrInvalidInput)
	}

	metadata := map[string]string{
		"product_type": string(product.Type),
		"email":        email,
		"product_name": product.Name,
	}
	if in.UserID != "" {
		metadata["user_id"] = in.UserID
	}

	session, err := s.provider.CreateCheckoutSession(ctx, models.CheckoutSessionRequest{
		Product:    product,
		Email:      email,
		SuccessURL: in.SuccessURL,
		CancelURL:  in.CancelURL,
		Metadata:   metadata,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider session failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("session_id", session.ID))

	tx := &models.PaymentTransaction{
		ID:            uuid.NewString(),
		SessionID:     session.ID,
		Email:         email,
		Amount:        product.Amount,
		Currency:      product.Currency,
		ProductName:   product.Name,
		PaymentStatus: models.PaymentPending,
		Metadata:      metadata,
	}
	if in.UserID != "" {
		userID := in.UserID
		tx.UserID = &userID
	}
	if err := s.transactionRepo.Create(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction persist failed")
		observability.Logger(ctx).Error("checkout session created but not recorded", "session_id", session.ID, "email", email, "error", err)
		return nil, fmt.Errorf("%w: failed to record transaction", pkgerrors.ErrInternal)
	}

	observability.Logger(ctx).Info("checkout created", "session_id", session.ID, "email", email, "product_type", product.Type, "amount", product.Amount.StringFixed(2))
	return &models.CheckoutResult{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
		Amount:      product.Amount,
		ProductName: product.Name,
	}, nil
}

// GetStatus reconciles the local record with the provider's session. Only a
// paid session completes a transaction and only an expired one cancels it.
func (s *paymentService) GetStatus(ctx context.Context, sessionID string) (*models.PaymentStatusView, error) {
	ctx, span := otel.Tracer("payment-service").Start(ctx, "GetStatus")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	if s.provider == nil {
		return nil, pkgerrors.ErrConfiguration
	}

	tx, err := s.transactionRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ps, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider lookup failed")
		return nil, err
	}

	tx, err = s.reconcileSession(ctx, tx, ps, "reconciler")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &models.PaymentStatusView{
		SessionID:     sessionID,
		PaymentStatus: ps.PaymentStatus,
		Status:        ps.Status,
		Amount:        decimal.New(ps.AmountTotal, -2),
		Currency:      ps.Currency,
		Transaction:   tx,
	}, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ctx, span := otel.Tracer("payment-service").Start(ctx, "HandleWebhook")
	defer span.End()

	if s.provider == nil {
		return pkgerrors.ErrConfiguration
	}

	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook rejected")
		observability.Logger(ctx).Warn("webhook rejected", "error", err)
		observability.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return err
	}
	span.SetAttributes(attribute.String("event_id", event.ID), attribute.String("event_type", event.Type))
	log := observability.Logger(ctx, "event_id", event.ID, "event_type", event.Type)

	if s.seenEvent(ctx, event.ID) {
		log.Info("duplicate webhook delivery ignored")
		observability.WebhookEvents.WithLabelValues(event.Type, "duplicate").Inc()
		return nil
	}

	// The event is recorded only once it has been applied, so a failed or
	// abandoned delivery is processed again when the provider retries.
	if err := s.applyEvent(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook processing failed")
		log.Error("failed to process webhook", "error", err)
		observability.WebhookEvents.WithLabelValues(event.Type, "error").Inc()
		return err
	}
	s.markEvent(ctx, event.ID)
	observability.WebhookEvents.WithLabelValues(event.Type, "processed").Inc()
	return nil
}

// Refund records a refund issued outside the checkout flow.
func (s *paymentService) Refund(ctx context.Context, sessionID string) (*models.PaymentTransaction, error) {
	ctx, span := otel.Tracer("payment-service").Start(ctx, "Refund")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	tx, err := s.transactionRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	tx, _, err = s.advance(ctx, tx, models.PaymentRefunded, models.TransitionUpdate{}, "admin")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return tx, nil
}

func (s *paymentService) ListTransactions(ctx context.Context, limit int) ([]models.PaymentTransaction, error) {
	return s.transactionRepo.List(ctx, limit)
}

func (s *paymentService) applyEvent(ctx context.Context, event *models.ProviderEvent) error {
	switch event.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncSucceeded, EventCheckoutExpired:
		return s.applySessionEvent(ctx, event, "")
	case EventCheckoutAsyncFailed:
		return s.applySessionEvent(ctx, event, models.PaymentFailed)
	case EventChargeRefunded:
		return s.applyRefundEvent(ctx, event)
	default:
		observability.Logger(ctx).Debug("webhook event ignored", "event_id", event.ID, "event_type", event.Type)
		observability.WebhookEvents.WithLabelValues(event.Type, "ignored").Inc()
		return nil
	}
}

// applySessionEvent reconciles the session carried by the event. A non-empty
// forced status overrides the mapping from the provider's session state.
func (s *paymentService) applySessionEvent(ctx context.Context, event *models.ProviderEvent, forced models.PaymentStatus) error {
	if event.Session == nil || event.Session.ID == "" {
		observability.Logger(ctx).Warn("webhook event without checkout session", "event_id", event.ID, "event_type", event.Type)
		return nil
	}

	tx, err := s.transactionRepo.GetBySessionID(ctx, event.Session.ID)
	if stderrors.Is(err, pkgerrors.ErrTransactionNotFound) {
		observability.Logger(ctx).Warn("webhook for unknown session", "event_id", event.ID, "session_id", event.Session.ID)
		return nil
	}
	if err != nil {
		return err
	}

	if forced == "" {
		_, err = s.reconcileSession(ctx, tx, event.Session, "webhook")
		return err
	}

	_, _, err = s.advance(ctx, tx, forced, transitionUpdate(event.Session, s.now()), "webhook")
	if stderrors.Is(err, pkgerrors.ErrInvalidTransition) {
		return nil
	}
	return err
}

func (s *paymentService) applyRefundEvent(ctx context.Context, event *models.ProviderEvent) error {
	if event.PaymentIntentID == "" {
		observability.Logger(ctx).Warn("refund event without payment intent", "event_id", event.ID)
		return nil
	}
	tx, err := s.transactionRepo.GetByPaymentIntentID(ctx, event.PaymentIntentID)
	if stderrors.Is(err, pkgerrors.ErrTransactionNotFound) {
		observability.Logger(ctx).Warn("refund for unknown payment intent", "event_id", event.ID, "payment_intent_id", event.PaymentIntentID)
		return nil
	}
	if err != nil {
		return err
	}

	_, _, err = s.advance(ctx, tx, models.PaymentRefunded, models.TransitionUpdate{At: s.now().UTC()}, "webhook")
	if stderrors.Is(err, pkgerrors.ErrInvalidTransition) {
		return nil
	}
	return err
}

// reconcileSession maps the provider session onto the local record and
// always stores the provider's payment intent and status.
func (s *paymentService) reconcileSession(ctx context.Context, tx *models.PaymentTransaction, ps *models.ProviderSession, source string) (*models.PaymentTransaction, error) {
	var target models.PaymentStatus
	switch {
	case ps.PaymentStatus == models.ProviderPaymentPaid:
		target = models.PaymentCompleted
	case ps.Status == models.ProviderSessionExpired:
		target = models.PaymentCancelled
	}

	upd := transitionUpdate(ps, s.now())
	if target != "" {
		updated, changed, err := s.advance(ctx, tx, target, upd, source)
		switch {
		case changed:
			return updated, nil
		case err != nil && !stderrors.Is(err, pkgerrors.ErrInvalidTransition):
			return nil, err
		}
		tx = updated
	}

	if err := s.transactionRepo.UpdateProviderFields(ctx, tx.SessionID, upd.PaymentIntentID, upd.ProviderStatus); err != nil {
		observability.Logger(ctx).Error("failed to record provider fields", "session_id", tx.SessionID, "error", err)
		return nil, err
	}
	if upd.PaymentIntentID != "" {
		tx.PaymentIntentID = &upd.PaymentIntentID
	}
	if upd.ProviderStatus != "" {
		tx.ProviderStatus = &upd.ProviderStatus
	}
	return tx, nil
}

// advance moves tx to the target status. It reports whether this call made
// the change; only then is fulfillment dispatched. Losing a race to another
// caller that reached the same status is not an error.
func (s *paymentService) advance(ctx context.Context, tx *models.PaymentTransaction, to models.PaymentStatus, upd models.TransitionUpdate, source string) (*models.PaymentTransaction, bool, error) {
	if upd.At.IsZero() {
		upd.At = s.now().UTC()
	}

	current := tx
	for attempt := 0; attempt < maxTransitionTries; attempt++ {
		from := current.PaymentStatus
		if from == to {
			return current, false, nil
		}
		if err := models.CheckTransition(from, to); err != nil {
			observability.Logger(ctx).Warn("payment transition rejected", "session_id", current.SessionID, "from", from, "to", to, "source", source)
			return current, false, err
		}

		updated, err := s.transactionRepo.Transition(ctx, current.SessionID, from, to, upd)
		if err == nil {
			observability.PaymentTransitions.WithLabelValues(source, string(from), string(to)).Inc()
			observability.Logger(ctx).Info("payment status changed", "session_id", updated.SessionID, "from", from, "to", to, "source", source)
			if to == models.PaymentCompleted {
				s.dispatch(ctx, updated)
			}
			return updated, true, nil
		}
		if !stderrors.Is(err, pkgerrors.ErrStatusConflict) {
			return current, false, err
		}

		current, err = s.transactionRepo.GetBySessionID(ctx, current.SessionID)
		if err != nil {
			return tx, false, err
		}
	}
	return current, false, fmt.Errorf("%w: session %s kept changing", pkgerrors.ErrStatusConflict, tx.SessionID)
}

// dispatch runs fulfillment for a transition this caller won. No later
// delivery will reach this point again, so the work must not die with the
// request that triggered it.
func (s *paymentService) dispatch(ctx context.Context, tx *models.PaymentTransaction) {
	if s.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()
	if err := s.dispatcher.Dispatch(ctx, tx); err != nil {
		observability.Logger(ctx).Error("fulfillment incomplete", "session_id", tx.SessionID, "error", err)
	}
}

func transitionUpdate(ps *models.ProviderSession, now time.Time) models.TransitionUpdate {
	return models.TransitionUpdate{
		PaymentIntentID: ps.PaymentIntentID,
		ProviderStatus:  ps.Status,
		At:              now.UTC(),
	}
}

// seenEvent reports whether the event was already applied. A Redis failure
// counts as unseen; the stored-status guard keeps reprocessing safe.
func (s *paymentService) seenEvent(ctx context.Context, eventID string) bool {
	if s.redisClient == nil || eventID == "" {
		return false
	}
	_, err := s.redisClient.Get(ctx, webhookEventKey(eventID))
	switch {
	case err == nil:
		return true
	case stderrors.Is(err, redis.ErrKeyNotFound):
		return false
	default:
		observability.Logger(ctx).Warn("webhook dedupe unavailable", "event_id", eventID, "error", err)
		return false
	}
}

// markEvent records an applied event. It runs detached from the request so a
// client hang-up after the work is done does not lose the record.
func (s *paymentService) markEvent(ctx context.Context, eventID string) {
	if s.redisClient == nil || eventID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), redisWriteTimeout)
	defer cancel()
	if err := s.redisClient.Set(ctx, webhookEventKey(eventID), "1", webhookDedupeTTL); err != nil {
		observability.Logger(ctx).Warn("failed to record webhook event", "event_id", eventID, "error", err)
	}
}

func webhookEventKey(eventID string) string {
	return "webhook:event:" + eventID
}
