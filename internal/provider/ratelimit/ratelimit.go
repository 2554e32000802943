package ratelimit

import (
    "context"
    "time"

    "golang.org/x/time/rate"

    "marketwatch/internal/provider"
)

// Gateway paces calls to an upstream gateway with a token bucket so the
// process stays under the provider quota. Callers wait for a token or return
// early when ctx is done. Search counts as 1+limit requests because every
// candidate costs one extra upstream call.
type Gateway struct {
    G       provider.Gateway
    Limiter *rate.Limiter
}

// NewGateway wraps g with a limiter allowing perMinute requests and the given
// burst. perMinute <= 0 returns g unchanged.
func NewGateway(g provider.Gateway, perMinute int, burst int) provider.Gateway {
    if perMinute <= 0 { return g }
    if burst <= 0 { burst = 1 }
    lim := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
    return &Gateway{G: g, Limiter: lim}
}

func (g *Gateway) Name() string { return g.G.Name() }

func (g *Gateway) wait(ctx context.Context, n int) error {
    if g.Limiter == nil { return nil }
    if b := g.Limiter.Burst(); n > b { n = b }
    return g.Limiter.WaitN(ctx, n)
}

func (g *Gateway) FetchPopular(ctx context.Context, ids []string) ([]provider.Quote, error) {
    if err := g.wait(ctx, 1); err != nil { return nil, err }
    return g.G.FetchPopular(ctx, ids)
}

func (g *Gateway) FetchDetail(ctx context.Context, idOrSymbol string) (provider.Quote, error) {
    // coin list + coin detail
    if err := g.wait(ctx, 2); err != nil { return provider.Quote{}, err }
    return g.G.FetchDetail(ctx, idOrSymbol)
}

func (g *Gateway) Search(ctx context.Context, query string, limit int) ([]provider.Quote, error) {
    if err := g.wait(ctx, 1+limit); err != nil { return nil, err }
    return g.G.Search(ctx, query, limit)
}
