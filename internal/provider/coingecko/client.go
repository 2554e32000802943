package coingecko

import (
	"net/http"
	"net/url"
	"time"

	"marketwatch/internal/clock"
)

const baseURL = "https://api.coingecko.com/api/v3"

// demoKeyHeader carries a CoinGecko demo API key.
// https://docs.coingecko.com/v3.0.1/reference/authentication
const demoKeyHeader = "x-cg-demo-api-key"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=coingecko_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the CoinGecko REST API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
	// timeout bounds every single request.
	timeout time.Duration
	// clock resolves HTTP-date retry hints.
	clock clock.Clock
}

// ClientOption is a configuration option for the CoinGecko API client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithTimeout bounds each request. Non-positive values keep the default.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock sets the clock used to interpret HTTP-date retry hints.
func WithClock(cl clock.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clock.OrSystem(cl)
	}
}

// NewClient creates a new CoinGecko API client. The key is optional; the
// public API works without one at a lower quota.
func NewClient(key string, options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
		timeout:    5 * time.Second,
		clock:      clock.System(),
	}
	if key != "" {
		client.header.Set(demoKeyHeader, key)
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}
