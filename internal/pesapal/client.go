// Package pesapal implements a client for the Pesapal API 3.0 payment
// gateway: bearer-token auth, order submission, transaction status queries,
// and cancellation.
package pesapal

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

	"golang.org/x/sync/singleflight"
)

// PaymentStatus is the provider's enumerated transaction outcome.
type PaymentStatus int

const (
	StatusInvalid   PaymentStatus = 0
	StatusCompleted PaymentStatus = 1
	StatusFailed    PaymentStatus = 2
	StatusReversed  PaymentStatus = 3
)

func (s PaymentStatus) String() string {
	switch s {
	case StatusInvalid:
		return "INVALID"
	case StatusCompleted:
		return "COMPLETED"
	case StatusFailed:
		return "FAILED"
	case StatusReversed:
		return "REVERSED"
	default:
		return "UNKNOWN"
	}
}

type ClientConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	NotificationID string
}

// Client talks to the Pesapal HTTP API. The token cache is a single entry
// shared by all callers; refresh goes through a singleflight group so
// concurrent callers at expiry trigger at most one RequestToken call.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	tokenGroup singleflight.Group
	tokenCache tokenCache
}

func NewClient(cfg ClientConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

type authResponse struct {
	Token      string `json:"token"`
	ExpiryDate string `json:"expiryDate"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// Token returns a valid bearer token, reusing the cached one until expiry.
func (c *Client) Token(ctx context.Context) (string, error) {
	if token, ok := c.tokenCache.get(c.now()); ok {
		return token, nil
	}

	result, err, _ := c.tokenGroup.Do("token", func() (any, error) {
		// Re-check under the group: a concurrent caller may have refreshed
		// while this one was queued.
		if token, ok := c.tokenCache.get(c.now()); ok {
			return token, nil
		}
		return c.requestToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) requestToken(ctx context.Context) (string, error) {
	payload := map[string]string{
		"consumer_key":    c.cfg.ConsumerKey,
		"consumer_secret": c.cfg.ConsumerSecret,
	}

	var parsed authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/Auth/RequestToken", "", payload, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if parsed.Status != "200" || parsed.Token == "" {
		return "", fmt.Errorf("%w: %s", ErrAuth, nonEmpty(parsed.Message, "provider rejected credentials"))
	}

	expiry, err := time.Parse(time.RFC3339, parsed.ExpiryDate)
	if err != nil {
		// Tokens are documented as five-minute; fall back rather than fail.
		expiry = c.now().Add(4 * time.Minute)
		c.logger.Warn("unparseable token expiry, using fallback", "expiry_date", parsed.ExpiryDate)
	}

	c.tokenCache.set(parsed.Token, expiry)
	return parsed.Token, nil
}

// OrderRequest describes a payment order submission. ID is the merchant
// reference correlating the provider transaction with the local order.
type OrderRequest struct {
	ID              string         `json:"id"`
	Currency        string         `json:"currency"`
	Amount          float64        `json:"amount"`
	Description     string         `json:"description"`
	CallbackURL     string         `json:"callback_url"`
	CancellationURL string         `json:"cancellation_url,omitempty"`
	NotificationID  string         `json:"notification_id"`
	Branch          string         `json:"branch,omitempty"`
	BillingAddress  BillingAddress `json:"billing_address"`
	RedirectMode    string         `json:"redirect_mode,omitempty"`
}

type BillingAddress struct {
	EmailAddress string `json:"email_address,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	MiddleName   string `json:"middle_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Line1        string `json:"line_1,omitempty"`
	City         string `json:"city,omitempty"`
}

type OrderResponse struct {
	TrackingID        string `json:"order_tracking_id"`
	MerchantReference string `json:"merchant_reference"`
	RedirectURL       string `json:"redirect_url"`
	Status            string `json:"status"`
	Message           string `json:"message"`
}

// SubmitOrder posts a payment order and returns the tracking id plus the
// provider-hosted payment page URL.
func (c *Client) SubmitOrder(ctx context.Context, order OrderRequest) (*OrderResponse, error) {
	if order.NotificationID == "" {
		order.NotificationID = c.cfg.NotificationID
	}

	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	var parsed OrderResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/Transactions/SubmitOrderRequest", token, order, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	if parsed.Status != "200" || parsed.TrackingID == "" {
		return nil, fmt.Errorf("%w: %s", ErrSubmission, nonEmpty(parsed.Message, "provider rejected order"))
	}
	return &parsed, nil
}

type TransactionStatus struct {
	PaymentMethod     string        `json:"payment_method"`
	Amount            float64       `json:"amount"`
	CreatedDate       string        `json:"created_date"`
	ConfirmationCode  string        `json:"confirmation_code"`
	StatusDescription string        `json:"payment_status_description"`
	Description       string        `json:"description"`
	Message           string        `json:"message"`
	PaymentAccount    string        `json:"payment_account"`
	StatusCode        PaymentStatus `json:"status_code"`
	MerchantReference string        `json:"merchant_reference"`
	Currency          string        `json:"currency"`
	Status            string        `json:"status"`
}

// GetTransactionStatus queries the provider for the current outcome of a
// submitted order.
func (c *Client) GetTransactionStatus(ctx context.Context, trackingID string) (*TransactionStatus, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	path := "/api/Transactions/GetTransactionStatus?orderTrackingId=" + url.QueryEscape(trackingID)
	var parsed TransactionStatus
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatusQuery, err)
	}
	if parsed.Status != "200" {
		return nil, fmt.Errorf("%w: %s", ErrStatusQuery, nonEmpty(parsed.Message, "provider returned non-success status"))
	}
	return &parsed, nil
}

type CancelResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CancelOrder requests cancellation of a pending order. A non-success status
// is returned as ErrCancel with the provider message; callers decide whether
// "already completed" is fatal.
func (c *Client) CancelOrder(ctx context.Context, trackingID string) (*CancelResult, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]string{"order_tracking_id": trackingID}
	var parsed CancelResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/Transactions/CancelOrder", token, payload, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancel, err)
	}
	if parsed.Status != "200" {
		return &parsed, fmt.Errorf("%w: %s", ErrCancel, nonEmpty(parsed.Message, "provider rejected cancellation"))
	}
	return &parsed, nil
}

type IPN struct {
	URL                 string `json:"url"`
	CreatedDate         string `json:"created_date"`
	IPNID               string `json:"ipn_id"`
	NotificationType    int    `json:"notification_type"`
	IPNNotificationType string `json:"ipn_notification_type_description"`
	IPNStatus           int    `json:"ipn_status"`
}

// GetIPNList returns the notification channels registered for this merchant.
func (c *Client) GetIPNList(ctx context.Context) ([]IPN, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	var parsed []IPN
	if err := c.doJSON(ctx, http.MethodGet, "/api/URLSetup/GetIpnList", token, nil, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatusQuery, err)
	}
	return parsed, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
