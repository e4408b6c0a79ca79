// Package pipeline drives the end-to-end analysis flow: decode, classify,
// gate, append result cards, and request remote explanations.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sahyadri-labs/krishirakshak/domain"
)

// ExplanationClient issues cancellable requests against the explanation
// relay. At most one request is in flight per client: issuing a new one
// cancels the prior unresolved request, and a superseded resolution is
// discarded even if it arrives successfully.
type ExplanationClient struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.Mutex
	pending *pendingRequest
}

// pendingRequest tracks the currently active request. The token ties a
// resolution back to the request that produced it.
type pendingRequest struct {
	token  string
	cancel context.CancelFunc
}

// NewExplanationClient creates a client against the given relay base URL.
func NewExplanationClient(baseURL string, timeout time.Duration) *ExplanationClient {
	return &ExplanationClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type explanationResponse struct {
	Explanation string `json:"explanation"`
	Error       string `json:"error"`
}

// RequestExplanation posts one card's context plus the conversation
// history to the relay and returns the generated text. A newer call
// cancels this one; the superseded outcome resolves to
// domain.ErrCancelled regardless of what the transport returned. Single
// attempt, no internal retry.
func (c *ExplanationClient) RequestExplanation(ctx context.Context, ectx domain.ExplanationContext) (string, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	token := uuid.New().String()

	c.mu.Lock()
	if c.pending != nil {
		c.pending.cancel()
	}
	c.pending = &pendingRequest{token: token, cancel: cancel}
	c.mu.Unlock()

	text, err := c.post(reqCtx, ectx)

	// A resolution only counts if this request is still the active one.
	c.mu.Lock()
	active := c.pending != nil && c.pending.token == token
	if active {
		c.pending = nil
	}
	c.mu.Unlock()
	cancel()

	if !active {
		return "", domain.ErrCancelled
	}
	if err != nil {
		if errors.Is(reqCtx.Err(), context.Canceled) {
			return "", domain.ErrCancelled
		}
		return "", err
	}
	return text, nil
}

// InFlight reports whether a request is currently unresolved.
func (c *ExplanationClient) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

func (c *ExplanationClient) post(ctx context.Context, ectx domain.ExplanationContext) (string, error) {
	body, err := json.Marshal(ectx)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/agent-response", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, domain.ErrNetwork)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, domain.ErrNetwork)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var result explanationResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return "", fmt.Errorf("%v: %w", err, domain.ErrRemote)
		}
		return result.Explanation, nil
	case resp.StatusCode == http.StatusBadRequest:
		return "", fmt.Errorf("relay rejected request [%d]: %w", resp.StatusCode, domain.ErrMissingFields)
	default:
		var result explanationResponse
		if err := json.Unmarshal(respBody, &result); err == nil && result.Error != "" {
			return "", fmt.Errorf("%s: %w", result.Error, domain.ErrRemote)
		}
		return "", fmt.Errorf("relay error [%d]: %w", resp.StatusCode, domain.ErrRemote)
	}
}
