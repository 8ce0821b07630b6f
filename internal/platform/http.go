package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-stagepass/internal/resilience"
)

// APIError carries the backend's error message verbatim so the checkout
// surface can show it to the buyer unchanged.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.StatusCode)
}

// HTTPClient talks to the platform REST backend.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	HTTP    resilience.HTTPClient
}

// NewHTTPClient builds a client with a breaker-wrapped, trace-instrumented transport.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, breaker *resilience.Breaker) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  strings.TrimSpace(apiKey),
		HTTP: resilience.HTTPClient{
			Client: &http.Client{
				Timeout:   timeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
			Breaker:     breaker,
			MaxAttempts: 2,
			BaseBackoff: 200 * time.Millisecond,
			Jitter:      0.2,
		},
	}
}

// GetSystemSettings fetches the platform fee configuration.
func (c *HTTPClient) GetSystemSettings(ctx context.Context) (Settings, error) {
	var out Settings
	err := c.call(ctx, http.MethodGet, "/v1/system/settings", nil, &out)
	return out, err
}

// GetEvent loads one event with its ticket and add-on definitions.
func (c *HTTPClient) GetEvent(ctx context.Context, eventID string) (Event, error) {
	var out Event
	if strings.TrimSpace(eventID) == "" {
		return out, errors.New("event id is required")
	}
	err := c.call(ctx, http.MethodGet, "/v1/events/"+url.PathEscape(eventID), nil, &out)
	return out, err
}

// ValidatePromoCode checks a promo code against an event's active campaigns.
func (c *HTTPClient) ValidatePromoCode(ctx context.Context, eventID, code string) (PromoResult, error) {
	var out PromoResult
	payload := map[string]string{"eventId": eventID, "code": code}
	err := c.call(ctx, http.MethodPost, "/v1/promo/validate", payload, &out)
	if err == nil {
		out.DiscountPercent = ClampDiscountPercent(out.DiscountPercent)
	}
	return out, err
}

// PurchaseTicket commits an order with the exact fee snapshot computed client-side.
func (c *HTTPClient) PurchaseTicket(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	var out PurchaseResult
	err := c.call(ctx, http.MethodPost, "/v1/purchase", req, &out)
	return out, err
}

func (c *HTTPClient) call(ctx context.Context, method, path string, body, out any) error {
	if c == nil || c.BaseURL == "" {
		return errors.New("platform: client not configured")
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("platform: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("platform: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: extractMessage(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("platform: decode response: %w", err)
	}
	return nil
}

func extractMessage(data []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return strings.TrimSpace(string(data))
}
