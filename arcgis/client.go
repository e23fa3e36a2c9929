package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultPortalURL  = "https://www.arcgis.com"
	DefaultGeocodeURL = "https://geocode.arcgis.com"
	DefaultRouteURL   = "https://route.arcgis.com"
)

// CodeTokenExpired is the service error code for a lapsed token.
const CodeTokenExpired = 498

// PayloadRecorder receives every raw response body the client decodes.
type PayloadRecorder interface {
	Record(endpoint string, payload []byte)
}

type Client struct {
	portalURL   string
	geocodeURL  string
	routeURL    string
	httpClient  *http.Client
	userAgent   string
	minInterval time.Duration
	recorder    PayloadRecorder
	mu          sync.Mutex
	lastRequest time.Time
}

type Option func(*Client)

func WithPortalURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.portalURL = baseURL
		}
	}
}

func WithGeocodeURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.geocodeURL = baseURL
		}
	}
}

func WithRouteURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.routeURL = baseURL
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

func WithMinInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.minInterval = interval
	}
}

func WithPayloadRecorder(recorder PayloadRecorder) Option {
	return func(c *Client) {
		c.recorder = recorder
	}
}

func NewClient(opts ...Option) *Client {
	client := &Client{
		portalURL:   DefaultPortalURL,
		geocodeURL:  DefaultGeocodeURL,
		routeURL:    DefaultRouteURL,
		httpClient:  http.DefaultClient,
		userAgent:   "commuteatlas/0.1",
		minInterval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type Credentials struct {
	Username string
	Password string
}

type APIError struct {
	Code       int
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e == nil {
		return "arcgis: api error"
	}
	if e.Message == "" {
		return fmt.Sprintf("arcgis: api error code %d", e.Code)
	}
	return "arcgis: " + e.Message
}

// IsTokenExpired reports whether err is the service's token-expiry error.
func IsTokenExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeTokenExpired
}

type apiErrorPayload struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodePayload unmarshals an ArcGIS response into out, surfacing the
// service's embedded error object when present. ArcGIS reports most
// failures inside a 200 response.
func decodePayload(statusCode int, endpoint string, body []byte, out interface{}) error {
	var envelope apiErrorPayload
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return &APIError{
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
			StatusCode: statusCode,
		}
	}
	if statusCode != http.StatusOK {
		return fmt.Errorf("arcgis: %s: http status %d", endpoint, statusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("arcgis: %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, values url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = values.Encode()
	req.Header.Set("Accept", "application/json")
	return c.do(req, endpoint, out)
}

func (c *Client) postForm(ctx context.Context, endpoint string, values url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return c.do(req, endpoint, out)
}

func (c *Client) do(req *http.Request, endpoint string, out interface{}) error {
	if c == nil {
		return errors.New("arcgis: client is nil")
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if strings.TrimSpace(c.userAgent) != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if err := c.waitRateLimit(req.Context()); err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if c.recorder != nil {
		c.recorder.Record(endpoint, body)
	}
	return decodePayload(resp.StatusCode, endpoint, body, out)
}

func (c *Client) waitRateLimit(ctx context.Context) error {
	if c.minInterval <= 0 {
		return nil
	}
	c.mu.Lock()
	now := time.Now()
	next := c.lastRequest.Add(c.minInterval)
	if next.Before(now) || next.Equal(now) {
		c.lastRequest = now
		c.mu.Unlock()
		return nil
	}
	c.lastRequest = next
	c.mu.Unlock()

	return sleepWithContext(ctx, time.Until(next))
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
