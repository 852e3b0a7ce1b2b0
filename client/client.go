// Package client is a Go SDK for the geolocation service.
//
//	c := client.NewClient("http://localhost:3000")
//	loc, err := c.GetGeoInfo(ctx, "66.249.68.102")
//
// Non-200 answers come back as *APIError carrying the service's error envelope.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is where a locally started server listens
const DefaultBaseURL = "http://localhost:3000"

const defaultTimeout = 10 * time.Second

// GeoLocation is the body of a successful lookup
type GeoLocation struct {
	Lat     string `json:"lat"`
	Lng     string `json:"lng"`
	Country string `json:"country"`
	City    string `json:"city"`
}

// ErrorSource points at the request that failed
type ErrorSource struct {
	Pointer string `json:"pointer"`
}

// APIError is a non-200 answer from the service
type APIError struct {
	Status int             `json:"status"`
	Title  string          `json:"title"`
	Detail json.RawMessage `json:"detail"`
	Source ErrorSource     `json:"source"`
}

// Message returns Detail as text when it is a JSON string
func (e *APIError) Message() string {
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	return string(e.Detail)
}

func (e *APIError) Error() string {
	return fmt.Sprintf("geoip: %d %s: %s", e.Status, e.Title, e.Message())
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client calls the lookup endpoint. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the service at baseURL.
// An empty baseURL means DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetGeoInfo looks up ip. Transport failures are returned wrapped;
// answers other than 200 are returned as *APIError.
func (c *Client) GetGeoInfo(ctx context.Context, ip string) (*GeoLocation, error) {
	u, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	u.RawQuery = url.Values{"ip": {ip}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var loc GeoLocation
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &loc, nil
}

// decodeError builds an APIError even when the body is not an envelope
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Status == 0 {
		detail, _ := json.Marshal(strings.TrimSpace(string(body)))
		apiErr = &APIError{
			Status: resp.StatusCode,
			Title:  http.StatusText(resp.StatusCode),
			Detail: detail,
			Source: ErrorSource{Pointer: resp.Request.URL.RequestURI()},
		}
	}
	return apiErr
}
