package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Micheal-18/tick.backend/internal/status"
	"github.com/Micheal-18/tick.backend/utils"
)

type Config struct {
	BaseURL   string `json:"baseUrl" mapstructure:"base_url"`
	SecretKey string `json:"secretKey" mapstructure:"secret_key"`
	Timeout   time.Duration
}

// Client talks to the Paystack REST API. Every call carries an explicit
// timeout and goes through a circuit breaker; the provider retries
// webhooks at the transport level, so the client itself never retries.
type Client struct {
	baseURL   string
	secretKey string

	breaker *utils.CircuitBreaker

	// hc is the http client.
	hc *http.Client
}

// NewClient creates a new Paystack client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		breaker:   utils.NewCircuitBreaker("paystack"),

		// set http client with timeout.
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

type reply struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do performs one authenticated API call and decodes the standard
// {status, message, data} envelope.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("paystack: json.Marshal: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("paystack: url.Parse: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, base.String()+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("paystack: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	result, err := c.breaker.Execute(ctx, func() (any, error) {
		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("paystack: http.Do: %w", status.ErrUpstreamUnavailable)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("paystack: http.StatusCode %d: %w", resp.StatusCode, status.ErrUpstreamUnavailable)
		}

		var r reply
		dec := json.NewDecoder(resp.Body)
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("paystack: json.Decode: %w", err)
		}
		if !r.Status {
			return nil, fmt.Errorf("paystack: %s %s: %s", method, path, r.Message)
		}
		return r.Data, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(json.RawMessage), nil
}

type InitializeRequest struct {
	Email       string   `json:"email"`
	Amount      int64    `json:"amount"` // minor units
	Reference   string   `json:"reference"`
	CallbackURL string   `json:"callback_url,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

type Authorization struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// InitializeTransaction starts a hosted checkout and returns the
// authorization URL the buyer is redirected to.
func (c *Client) InitializeTransaction(ctx context.Context, req *InitializeRequest) (*Authorization, error) {
	data, err := c.do(ctx, http.MethodPost, "/transaction/initialize", req)
	if err != nil {
		return nil, fmt.Errorf("initializeTransaction: %w", err)
	}

	var auth Authorization
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, fmt.Errorf("initializeTransaction: json.Unmarshal: %w", err)
	}
	return &auth, nil
}

type settlementRow struct {
	Reference  string `json:"reference"`
	Amount     int64  `json:"total_amount"`
	Subaccount struct {
		SubaccountCode string `json:"subaccount_code"`
	} `json:"subaccount"`
}

// ListSettlements reads the settlement-listing API used by the
// poll-and-reconcile path.
func (c *Client) ListSettlements(ctx context.Context) ([]SettlementEvent, error) {
	data, err := c.do(ctx, http.MethodGet, "/settlement", nil)
	if err != nil {
		return nil, fmt.Errorf("listSettlements: %w", err)
	}

	var rows []settlementRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("listSettlements: json.Unmarshal: %w", err)
	}

	events := make([]SettlementEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, SettlementEvent{
			Reference:     row.Reference,
			Amount:        row.Amount,
			PayoutAccount: row.Subaccount.SubaccountCode,
		})
	}
	return events, nil
}

// InitiateTransfer asks the gateway to pay out to a recipient. The
// matching transfer.success webhook confirms completion.
func (c *Client) InitiateTransfer(ctx context.Context, recipient string, amount int64, reference, reason string) error {
	body := map[string]any{
		"source":    "balance",
		"amount":    amount,
		"recipient": recipient,
		"reference": reference,
		"reason":    reason,
	}
	if _, err := c.do(ctx, http.MethodPost, "/transfer", body); err != nil {
		return fmt.Errorf("initiateTransfer: %w", err)
	}
	return nil
}
