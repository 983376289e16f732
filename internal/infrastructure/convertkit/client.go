package convertkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

const DefaultBaseURL = "https://api.convertkit.com/v3"

// HTTPDoer is the subset of *http.Client the client needs.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	FormID    string
	Sequences map[string]string
	Tags      map[string]string
}

// DefaultSequences and DefaultTags are the ids of the account the service was
// first set up against. Deployments override them through configuration.
var (
	DefaultSequences = map[string]string{
		"welcome":             "12345",
		"lead_magnet":         "12346",
		"customer_onboarding": "12347",
		"nurture":             "12348",
	}
	DefaultTags = map[string]string{
		"lead_magnet_subscriber": "10001",
		"paying_customer":        "10002",
		"presale_customer":       "10003",
		"regular_customer":       "10004",
		"high_engagement":        "10005",
	}
)

type Client struct {
	cfg  Config
	http HTTPDoer
}

func NewClient(cfg Config, doer HTTPDoer) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Sequences == nil {
		cfg.Sequences = DefaultSequences
	}
	if cfg.Tags == nil {
		cfg.Tags = DefaultTags
	}
	if doer == nil {
		doer = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, http: doer}
}

func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.FormID != ""
}

type Subscriber struct {
	ID           int64             `json:"id"`
	FirstName    string            `json:"first_name"`
	EmailAddress string            `json:"email_address"`
	State        string            `json:"state"`
	Fields       map[string]string `json:"fields"`
}

type subscriptionResponse struct {
	Subscription struct {
		ID         int64      `json:"id"`
		Subscriber Subscriber `json:"subscriber"`
	} `json:"subscription"`
}

// AddSubscriber subscribes the email to the configured form and applies tags.
// A failing tag is logged and does not fail the subscription.
func (c *Client) AddSubscriber(ctx context.Context, email, firstName string, tags []string) (int64, error) {
	if !c.Configured() {
		return 0, pkgerrors.ErrESPNotConfigured
	}

	payload := map[string]any{
		"api_key": c.cfg.APIKey,
		"email":   email,
	}
	if firstName != "" {
		payload["first_name"] = firstName
	}

	var resp subscriptionResponse
	if err := c.post(ctx, "/forms/"+url.PathEscape(c.cfg.FormID)+"/subscribe", payload, &resp); err != nil {
		return 0, fmt.Errorf("failed to add subscriber: %w", err)
	}
	subscriberID := resp.Subscription.Subscriber.ID

	for _, tag := range tags {
		if err := c.TagSubscriber(ctx, email, tag); err != nil {
			slog.Warn("failed to tag new subscriber", "email", email, "tag", tag, "error", err)
		}
	}

	slog.Info("subscriber added", "email", email, "subscriber_id", subscriberID)
	return subscriberID, nil
}

// EnrollInSequence adds the email to a named sequence, passing custom fields.
func (c *Client) EnrollInSequence(ctx context.Context, email, sequence string, fields map[string]string) error {
	if c.cfg.APIKey == "" {
		return pkgerrors.ErrESPNotConfigured
	}
	id, ok := c.cfg.Sequences[sequence]
	if !ok {
		return fmt.Errorf("%w: %s", pkgerrors.ErrUnknownSequence, sequence)
	}

	payload := map[string]any{
		"api_key": c.cfg.APIKey,
		"email":   email,
	}
	if len(fields) > 0 {
		payload["fields"] = fields
	}
	if err := c.post(ctx, "/sequences/"+url.PathEscape(id)+"/subscribe", payload, nil); err != nil {
		return fmt.Errorf("failed to enroll in sequence %s: %w", sequence, err)
	}
	slog.Info("subscriber enrolled in sequence", "email", email, "sequence", sequence)
	return nil
}

func (c *Client) TagSubscriber(ctx context.Context, email, tag string) error {
	if c.cfg.APIKey == "" {
		return pkgerrors.ErrESPNotConfigured
	}
	id, ok := c.cfg.Tags[tag]
	if !ok {
		return fmt.Errorf("%w: %s", pkgerrors.ErrUnknownTag, tag)
	}

	payload := map[string]any{
		"api_key": c.cfg.APIKey,
		"email":   email,
	}
	if err := c.post(ctx, "/tags/"+url.PathEscape(id)+"/subscribe", payload, nil); err != nil {
		return fmt.Errorf("failed to add tag %s: %w", tag, err)
	}
	slog.Info("subscriber tagged", "email", email, "tag", tag)
	return nil
}

// GetSubscriber looks a subscriber up by email and returns nil when there is
// no match. It needs the API secret.
func (c *Client) GetSubscriber(ctx context.Context, email string) (*Subscriber, error) {
	if c.cfg.APISecret == "" {
		return nil, pkgerrors.ErrESPNotConfigured
	}

	q := url.Values{}
	q.Set("api_secret", c.cfg.APISecret)
	q.Set("email_address", email)

	var resp struct {
		Subscribers []Subscriber `json:"subscribers"`
	}
	if err := c.do(ctx, http.MethodGet, "/subscribers?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}
	if len(resp.Subscribers) == 0 {
		return nil, nil
	}
	return &resp.Subscribers[0], nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

// APIError is a non-2xx answer from the ESP.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("convertkit: status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
