package clearinghouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every clearinghouse call. The upstream API publishes
// no SLA; 30s is a conservative bound after which the call surfaces as a
// retryable TransientError.
const DefaultTimeout = 30 * time.Second

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Submit sends a compiled claim document. idempotencyKey is the claim's
// control number; retries must reuse it so the clearinghouse cannot create a
// duplicate claim.
func (c *Client) Submit(ctx context.Context, document any, idempotencyKey string) (*SubmitAck, error) {
	var ack SubmitAck
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	if err := c.post(ctx, "/claims/submission", document, headers, &ack); err != nil {
		return nil, err
	}
	if ack.ControlNumber == "" {
		ack.ControlNumber = idempotencyKey
	}
	return &ack, nil
}

// CheckStatus runs a real-time 276/277 claim status inquiry.
func (c *Client) CheckStatus(ctx context.Context, q *StatusQuery) (*PayerResponse, error) {
	var resp PayerResponse
	if err := c.post(ctx, "/claims/status", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTransactions returns every transaction visible to the trading partner.
// The endpoint has no claim-scoped filter; correlation happens client-side.
func (c *Client) ListTransactions(ctx context.Context) ([]Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transactions", nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	c.setHeaders(req, nil)

	body, err := c.do(req, "list transactions")
	if err != nil {
		return nil, err
	}

	var txs []Transaction
	if err := json.Unmarshal(body, &txs); err != nil {
		return nil, fmt.Errorf("decode transaction list: %w", err)
	}
	return txs, nil
}

// GetOutput fetches the converted guide-JSON payload of a transaction.
func (c *Client) GetOutput(ctx context.Context, transactionID string) (*PayerResponse, error) {
	var resp PayerResponse
	path := "/transactions/" + transactionID + "/output"
	if err := c.post(ctx, path, struct{}{}, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body any, headers map[string]string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req, headers)

	respBody, err := c.do(req, path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, extra map[string]string) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
}

// do executes the request and maps failures onto the error taxonomy: network
// errors and 5xx become TransientError, 4xx becomes GatewayRejection.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		c.logger.Warn().Str("op", op).Int("status", resp.StatusCode).Msg("clearinghouse server error")
		return nil, &TransientError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return nil, &GatewayRejection{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	return body, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return string(body)
}
