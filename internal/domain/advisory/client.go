// Package advisory proxies claim documents to an external coding advisory
// service. Suggestions are returned to the caller verbatim and never applied
// to a claim automatically.
package advisory

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

const defaultTimeout = 15 * time.Second

// Suggestion is one advisory hint about a claim document.
type Suggestion struct {
	Field    string `json:"field"`
	Code     string `json:"code,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type SuggestionResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// Enabled reports whether an advisory endpoint is configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// Suggest posts the claim document to the advisory service and returns its
// suggestions. Advisory failures are reported as plain errors; the caller
// decides whether they matter.
func (c *Client) Suggest(ctx context.Context, document any) (*SuggestionResponse, error) {
	body, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("encode claim document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/suggest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("advisory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("advisory service returned %d: %s", resp.StatusCode, string(b))
	}

	var out SuggestionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode advisory response: %w", err)
	}
	if out.Suggestions == nil {
		out.Suggestions = []Suggestion{}
	}
	return &out, nil
}
