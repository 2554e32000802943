package provider

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/shopspring/decimal"
)

// Quote is the normalized market snapshot returned by every gateway.
// Money fields are decimals so upstream floats are never re-rounded; a field
// the upstream omits (or sends as null) stays zero.
//
// ID is the only key used for cache entries and favorite matching. Symbol is
// display-only and may collide across instruments.
type Quote struct {
    ID            string          `json:"id"`
    Symbol        string          `json:"symbol"`
    Name          string          `json:"name"`
    Price         decimal.Decimal `json:"price"`
    Change        decimal.Decimal `json:"change"`
    ChangePercent decimal.Decimal `json:"changePercent"`
    High          decimal.Decimal `json:"high"`
    Low           decimal.Decimal `json:"low"`
    Volume        decimal.Decimal `json:"volume"`
    // IsFavorite is computed per caller and never stored on a cached quote.
    IsFavorite bool      `json:"isFavorite"`
    ReceivedAt time.Time `json:"receivedAt"`
}

// Gateway fetches market data from one upstream provider.
//
//go:generate mockgen -package=market_test -destination=../market/mock_gateway_test.go -source=provider.go Gateway
type Gateway interface {
    Name() string
    // FetchPopular returns a bulk snapshot for a bounded set of instrument ids.
    FetchPopular(ctx context.Context, ids []string) ([]Quote, error)
    // FetchDetail resolves an id or symbol and returns its full snapshot.
    // It returns ErrNotFound when nothing upstream matches.
    FetchDetail(ctx context.Context, idOrSymbol string) (Quote, error)
    // Search runs a text search and resolves at most limit candidates.
    Search(ctx context.Context, query string, limit int) ([]Quote, error)
}

// ErrNotFound reports that no upstream instrument matches the requested key.
var ErrNotFound = errors.New("instrument not found")

// DefaultRetryAfter is used when a throttled response carries no hint.
const DefaultRetryAfter = 60 * time.Second

// RateLimitError is returned when the upstream signals throttling (HTTP 429).
type RateLimitError struct {
    RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
    return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// StatusError is a non-200 response that is neither 404 nor 429.
type StatusError struct {
    Code int
    Body string
}

func (e *StatusError) Error() string {
    if e.Body == "" { return fmt.Sprintf("unexpected status code: %d", e.Code) }
    return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Body)
}

// AsRateLimit reports whether err is (or wraps) a RateLimitError and returns
// the retry hint, falling back to DefaultRetryAfter for a missing hint.
func AsRateLimit(err error) (time.Duration, bool) {
    var rl *RateLimitError
    if !errors.As(err, &rl) { return 0, false }
    if rl.RetryAfter <= 0 { return DefaultRetryAfter, true }
    return rl.RetryAfter, true
}
