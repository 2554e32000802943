package market

import (
    "context"
    "errors"
    "log/slog"
    "slices"
    "strings"
    "time"

    "golang.org/x/sync/singleflight"

    "marketwatch/internal/aggregate"
    "marketwatch/internal/clock"
    "marketwatch/internal/provider"
    "marketwatch/internal/provider/cache"
    "marketwatch/internal/provider/ratelimit"
)

const (
    popularKey   = "popular"
    detailPrefix = "detail:"
    searchPrefix = "search:"
)

// ErrCoolingDown is the Err of results served without an upstream call
// because the cooldown was active.
var ErrCoolingDown = errors.New("upstream cooling down after rate limit")

// ErrEmptyUpstream is the Err of a popular read whose upstream answer was
// empty. Empty answers are treated as unknown and never cached.
var ErrEmptyUpstream = errors.New("upstream returned no quotes")

type Options struct {
    // TrackedIDs is the fixed popular set, in display order.
    TrackedIDs []string
    PrimaryTTL time.Duration
    BackupTTL  time.Duration
    // MaxItems bounds each cache tier; 0 is unbounded.
    MaxItems int
    // SearchLimit caps resolved search candidates.
    SearchLimit int
    // MinBackupQueryLen is the shortest query that may be answered from
    // backup search or detail entries by exact key.
    MinBackupQueryLen int

    Clock   clock.Clock
    Logger  *slog.Logger
    Metrics *Metrics
}

func (o Options) withDefaults() Options {
    if o.PrimaryTTL <= 0 { o.PrimaryTTL = 15 * time.Minute }
    if o.BackupTTL <= 0 { o.BackupTTL = 24 * time.Hour }
    if o.SearchLimit <= 0 { o.SearchLimit = 5 }
    if o.MinBackupQueryLen <= 0 { o.MinBackupQueryLen = 3 }
    o.Clock = clock.OrSystem(o.Clock)
    if o.Logger == nil { o.Logger = slog.New(slog.DiscardHandler) }
    return o
}

// Coordinator answers market reads from the tiered cache and the upstream
// gateway, honoring the shared cooldown. Every method is safe for
// concurrent use.
type Coordinator struct {
    gw       provider.Gateway
    cooldown *ratelimit.Cooldown
    cache    *cache.Tiered[[]provider.Quote]
    group    singleflight.Group
    opts     Options
    log      *slog.Logger
    metrics  *Metrics
}

func New(gw provider.Gateway, cooldown *ratelimit.Cooldown, opts Options) *Coordinator {
    opts = opts.withDefaults()
    if cooldown == nil { cooldown = ratelimit.NewCooldown(opts.Clock) }
    tiers := cache.NewTiered[[]provider.Quote](opts.PrimaryTTL, opts.BackupTTL, opts.MaxItems, opts.Clock)
    // search and detail churn must not push the popular fallback out
    tiers.Pin(popularKey)
    return &Coordinator{
        gw:       gw,
        cooldown: cooldown,
        cache:    tiers,
        opts:     opts,
        log:      opts.Logger,
        metrics:  opts.Metrics,
    }
}

// GetPopular returns the tracked popular set.
func (c *Coordinator) GetPopular(ctx context.Context) Result {
    res := c.getPopular(ctx)
    c.metrics.result("popular", res.Outcome)
    return res
}

func (c *Coordinator) getPopular(ctx context.Context) Result {
    if qs, ok := c.cache.Fresh(popularKey); ok {
        c.metrics.hit("popular", "primary")
        return fresh(qs)
    }
    if c.coolingDown() { return c.popularFallback(ErrCoolingDown) }

    qs, err := c.call(ctx, "popular", popularKey, func(ctx context.Context) ([]provider.Quote, error) {
        qs, err := c.gw.FetchPopular(ctx, c.opts.TrackedIDs)
        if err != nil { return nil, err }
        if len(qs) == 0 {
            c.log.Warn("popular fetch returned no quotes", slog.Int("tracked", len(c.opts.TrackedIDs)))
            return nil, ErrEmptyUpstream
        }
        c.cache.Put(popularKey, qs)
        return qs, nil
    })
    if err != nil { return c.popularFallback(err) }
    return fresh(qs)
}

func (c *Coordinator) popularFallback(cause error) Result {
    if qs, ok := c.cache.Backup(popularKey); ok {
        c.metrics.hit("popular", "backup")
        return fallback(qs, cause)
    }
    return failed(cause)
}

// GetDetail returns the snapshot for one id or symbol.
func (c *Coordinator) GetDetail(ctx context.Context, idOrSymbol string) Result {
    res := c.getDetail(ctx, normalize(idOrSymbol))
    c.metrics.result("detail", res.Outcome)
    return res
}

func (c *Coordinator) getDetail(ctx context.Context, k string) Result {
    if k == "" { return Result{Quotes: []provider.Quote{}, Outcome: OutcomeNotFound, Err: provider.ErrNotFound} }
    key := detailPrefix + k
    if qs, ok := c.cache.Fresh(key); ok {
        c.metrics.hit("detail", "primary")
        return fresh(qs)
    }
    if popular, ok := c.cache.Fresh(popularKey); ok {
        if q, ok := aggregate.FindByKey(popular, k); ok {
            c.metrics.hit("detail", "popular")
            return fresh([]provider.Quote{q})
        }
    }
    if c.coolingDown() { return c.detailFallback(k, ErrCoolingDown) }

    qs, err := c.call(ctx, "detail", key, func(ctx context.Context) ([]provider.Quote, error) {
        q, err := c.gw.FetchDetail(ctx, k)
        if err != nil { return nil, err }
        qs := []provider.Quote{q}
        c.cache.Put(key, qs)
        // make the canonical id addressable too when looked up by symbol
        if id := strings.ToLower(q.ID); id != "" && id != k {
            c.cache.Put(detailPrefix+id, qs)
        }
        return qs, nil
    })
    switch {
    case err == nil:
        return fresh(qs)
    case errors.Is(err, provider.ErrNotFound):
        return Result{Quotes: []provider.Quote{}, Outcome: OutcomeNotFound, Err: err}
    default:
        return c.detailFallback(k, err)
    }
}

func (c *Coordinator) detailFallback(k string, cause error) Result {
    if qs, ok := c.cache.Backup(detailPrefix + k); ok {
        c.metrics.hit("detail", "backup")
        return fallback(qs, cause)
    }
    if popular, ok := c.cache.Backup(popularKey); ok {
        if q, ok := aggregate.FindByKey(popular, k); ok {
            c.metrics.hit("detail", "backup")
            return fallback([]provider.Quote{q}, cause)
        }
    }
    return failed(cause)
}

// Search returns quotes whose name, symbol or id match query.
func (c *Coordinator) Search(ctx context.Context, query string) Result {
    res := c.search(ctx, normalize(query))
    c.metrics.result("search", res.Outcome)
    return res
}

func (c *Coordinator) search(ctx context.Context, q string) Result {
    if q == "" { return fresh(nil) }
    key := searchPrefix + q
    if qs, ok := c.cache.Fresh(key); ok {
        c.metrics.hit("search", "primary")
        return fresh(qs)
    }
    if popular, ok := c.cache.Fresh(popularKey); ok {
        if m := aggregate.Match(popular, q); len(m) > 0 {
            c.metrics.hit("search", "popular")
            return fresh(m)
        }
    }
    if c.coolingDown() { return c.searchFallback(q, ErrCoolingDown) }

    qs, err := c.call(ctx, "search", key, func(ctx context.Context) ([]provider.Quote, error) {
        qs, err := c.gw.Search(ctx, q, c.opts.SearchLimit)
        if err != nil { return nil, err }
        c.cache.Put(key, qs)
        return qs, nil
    })
    if err != nil { return c.searchFallback(q, err) }
    return fresh(qs)
}

func (c *Coordinator) searchFallback(q string, cause error) Result {
    if popular, ok := c.cache.Backup(popularKey); ok {
        if m := aggregate.Match(popular, q); len(m) > 0 {
            c.metrics.hit("search", "backup")
            return fallback(m, cause)
        }
    }
    if len(q) < c.opts.MinBackupQueryLen { return failed(cause) }
    if qs, ok := c.cache.Backup(searchPrefix + q); ok {
        c.metrics.hit("search", "backup")
        return fallback(qs, cause)
    }
    if qs, ok := c.cache.Backup(detailPrefix + q); ok {
        c.metrics.hit("search", "backup")
        return fallback(qs, cause)
    }
    return failed(cause)
}

// Clear flushes both cache tiers. The cooldown is left untouched.
func (c *Coordinator) Clear() {
    c.cache.Flush()
    c.metrics.cleared()
    c.log.Info("market cache cleared")
}

// Status reports the shared cooldown.
func (c *Coordinator) Status() ratelimit.State { return c.cooldown.State() }

// call runs fn at most once per key at a time; fn stores its own result so
// the cache is populated before waiters are released. A rate-limit error
// arms the cooldown before any waiter sees it.
func (c *Coordinator) call(ctx context.Context, op, key string, fn func(context.Context) ([]provider.Quote, error)) ([]provider.Quote, error) {
    v, err, shared := c.group.Do(key, func() (any, error) {
        // a concurrent flight on another key may have just armed it
        if c.coolingDown() { return nil, ErrCoolingDown }
        start := c.opts.Clock.Now()
        qs, err := fn(ctx)
        c.observe(op, key, err, c.opts.Clock.Now().Sub(start))
        if err != nil { return nil, err }
        return qs, nil
    })
    if shared { c.log.Debug("upstream call shared", slog.String("key", key)) }
    if err != nil { return nil, err }
    return v.([]provider.Quote), nil
}

func (c *Coordinator) observe(op, key string, err error, took time.Duration) {
    if d, limited := provider.AsRateLimit(err); limited {
        resetAt := c.cooldown.Arm(d)
        c.metrics.cooling(true)
        c.metrics.upstream(op, "rate_limited")
        c.metrics.rateLimited()
        c.log.Warn("upstream rate limited",
            slog.String("op", op), slog.String("key", key),
            slog.Duration("retry_after", d), slog.Time("reset_at", resetAt))
        return
    }
    switch {
    case err == nil:
        c.metrics.upstream(op, "ok")
        c.log.Debug("upstream call", slog.String("op", op), slog.String("key", key), slog.Duration("took", took))
    case errors.Is(err, provider.ErrNotFound):
        c.metrics.upstream(op, "not_found")
    default:
        c.metrics.upstream(op, "error")
        c.log.Error("upstream call failed", slog.String("op", op), slog.String("key", key), slog.Any("err", err))
    }
}

func (c *Coordinator) coolingDown() bool {
    active := c.cooldown.Active()
    c.metrics.cooling(active)
    return active
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func fresh(qs []provider.Quote) Result {
    return Result{Quotes: cloneQuotes(qs), Outcome: OutcomeFresh}
}

func fallback(qs []provider.Quote, cause error) Result {
    return Result{Quotes: cloneQuotes(qs), Outcome: OutcomeFallback, Err: cause}
}

func failed(cause error) Result {
    return Result{Quotes: []provider.Quote{}, Outcome: OutcomeFailed, Err: cause}
}

func cloneQuotes(qs []provider.Quote) []provider.Quote {
    if qs == nil { return []provider.Quote{} }
    return slices.Clone(qs)
}
