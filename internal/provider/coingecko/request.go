package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketwatch/internal/provider"
)

// get performs one GET against path and decodes a 200 body into out.
// Throttling, not-found and other statuses are classified into provider errors.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any, opts ...ClientOption) error {
	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
		timeout:    c.timeout,
		clock:      c.clock,
	}
	for _, opt := range opts {
		opt(override)
	}

	query := maps.Clone(override.query)
	if query == nil {
		query = url.Values{}
	}
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}

	u := override.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	if override.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, override.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header
	req.Header.Set("Accept", "application/json")

	res, err := override.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusTooManyRequests:
		return &provider.RateLimitError{RetryAfter: retryAfter(res.Header.Get("Retry-After"), override.clock.Now())}

	case http.StatusNotFound:
		return provider.ErrNotFound

	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return &provider.StatusError{Code: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("decoding %s response: empty body", path)
		}
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP date.
// Anything unusable yields provider.DefaultRetryAfter.
func retryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return provider.DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return provider.DefaultRetryAfter
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}
	return provider.DefaultRetryAfter
}
