package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/honeynil/BizPromptService/internal/models"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

const sessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// Provider talks to Stripe Checkout.
type Provider struct {
	api           *client.API
	webhookSecret string
}

// NewProvider fails with ErrConfiguration when the API key or the webhook
// secret is missing.
func NewProvider(apiKey, webhookSecret string, backends *stripe.Backends) (*Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: stripe api key is not set", pkgerrors.ErrConfiguration)
	}
	if strings.TrimSpace(webhookSecret) == "" {
		return nil, fmt.Errorf("%w: stripe webhook secret is not set", pkgerrors.ErrConfiguration)
	}
	api := &client.API{}
	api.Init(apiKey, backends)
	return &Provider{api: api, webhookSecret: webhookSecret}, nil
}

func (p *Provider) CreateCheckoutSession(ctx context.Context, req models.CheckoutSessionRequest) (*models.ProviderSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Product.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.Product.Name),
						Description: stripe.String(req.Product.Description),
					},
					UnitAmount: stripe.Int64(req.Product.MinorUnits()),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL(req.SuccessURL)),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		slog.Error("failed to create checkout session", "email", req.Email, "product", req.Product.Type, "error", err)
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrProviderUnavailable, err)
	}
	return toProviderSession(s), nil
}

func (p *Provider) GetCheckoutSession(ctx context.Context, sessionID string) (*models.ProviderSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		slog.Error("failed to retrieve checkout session", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrProviderUnavailable, err)
	}
	return toProviderSession(s), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event
// payload the service acts on. A verified event whose object cannot be decoded
// is returned bare: redelivery would fail the same way.
func (p *Provider) ParseWebhook(payload []byte, signature string) (*models.ProviderEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrSignatureInvalid, err)
	}

	out := &models.ProviderEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch {
	case strings.HasPrefix(out.Type, "checkout.session."):
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			slog.Error("undecodable checkout session in webhook", "event_id", out.ID, "event_type", out.Type, "error", err)
			return out, nil
		}
		out.Session = toProviderSession(&s)
	case strings.HasPrefix(out.Type, "charge."):
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			slog.Error("undecodable charge in webhook", "event_id", out.ID, "event_type", out.Type, "error", err)
			return out, nil
		}
		if ch.PaymentIntent != nil {
			out.PaymentIntentID = ch.PaymentIntent.ID
		}
	}
	return out, nil
}

func successURL(base string) string {
	if strings.Contains(base, sessionIDPlaceholder) {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "session_id=" + sessionIDPlaceholder
}

func toProviderSession(s *stripe.CheckoutSession) *models.ProviderSession {
	out := &models.ProviderSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		Status:        string(s.Status),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}
