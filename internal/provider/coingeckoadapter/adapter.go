package coingeckoadapter

import (
    "context"
    "errors"
    "strings"
    "sync"
    "time"

    "golang.org/x/sync/errgroup"

    "marketwatch/internal/clock"
    "marketwatch/internal/provider"
    "marketwatch/internal/provider/coingecko"
)

// MaxSearchLookups caps how many search candidates are resolved to quotes.
// Each candidate costs one upstream call.
const MaxSearchLookups = 5

type Config struct {
    Name     string // display name, default: CoinGecko
    Currency string // quote currency, default: usd
    // CoinListTTLSeconds caches the /coins/list payload used to resolve
    // symbols to ids. If <= 0, the list is fetched on every detail lookup.
    CoinListTTLSeconds int
    // SearchConcurrency bounds parallel candidate lookups. Defaults to 2.
    SearchConcurrency int
}

// Adapter turns the raw CoinGecko client into a provider.Gateway.
type Adapter struct {
    cfg    Config
    client *coingecko.Client
    clock  clock.Clock

    // cache of the coin listing for symbol resolution
    mu           sync.RWMutex
    coins        []coingecko.CoinRef
    coinsExpires time.Time
}

func New(cfg Config, client *coingecko.Client, c clock.Clock) *Adapter {
    if cfg.Name == "" { cfg.Name = "CoinGecko" }
    if cfg.Currency == "" { cfg.Currency = "usd" }
    cfg.Currency = strings.ToLower(cfg.Currency)
    if cfg.SearchConcurrency <= 0 { cfg.SearchConcurrency = 2 }
    return &Adapter{cfg: cfg, client: client, clock: clock.OrSystem(c)}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// FetchPopular returns one quote per id the upstream knows, in upstream
// (market cap) order.
func (a *Adapter) FetchPopular(ctx context.Context, ids []string) ([]provider.Quote, error) {
    if len(ids) == 0 { return nil, nil }
    markets, err := a.client.GetMarkets(ctx, a.cfg.Currency, ids)
    if err != nil { return nil, err }
    now := a.clock.Now().UTC()
    out := make([]provider.Quote, 0, len(markets))
    for _, m := range markets {
        out = append(out, marketQuote(m, now))
    }
    return out, nil
}

// FetchDetail resolves idOrSymbol against the coin listing, then fetches the
// coin's market data. An exact id match wins over a symbol match.
func (a *Adapter) FetchDetail(ctx context.Context, idOrSymbol string) (provider.Quote, error) {
    key := strings.ToLower(strings.TrimSpace(idOrSymbol))
    if key == "" { return provider.Quote{}, provider.ErrNotFound }

    coins, err := a.coinList(ctx)
    if err != nil { return provider.Quote{}, err }
    ref, ok := resolve(coins, key)
    if !ok { return provider.Quote{}, provider.ErrNotFound }

    coin, err := a.client.GetCoin(ctx, ref.ID)
    if err != nil { return provider.Quote{}, err }
    return a.coinQuote(coin), nil
}

// Search resolves at most limit (and never more than MaxSearchLookups)
// candidates from the upstream text search. Candidates that fail for reasons
// other than throttling are skipped; a throttled candidate aborts the search.
func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]provider.Quote, error) {
    query = strings.TrimSpace(query)
    if query == "" { return nil, nil }
    if limit <= 0 || limit > MaxSearchLookups { limit = MaxSearchLookups }

    res, err := a.client.Search(ctx, query)
    if err != nil { return nil, err }
    candidates := res.Coins
    if len(candidates) > limit { candidates = candidates[:limit] }
    if len(candidates) == 0 { return []provider.Quote{}, nil }

    found := make([]*provider.Quote, len(candidates))
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(a.cfg.SearchConcurrency)
    for i, c := range candidates {
        g.Go(func() error {
            markets, err := a.client.GetMarkets(gctx, a.cfg.Currency, []string{c.ID})
            if err != nil {
                if _, limited := provider.AsRateLimit(err); limited { return err }
                return nil
            }
            if len(markets) > 0 {
                q := marketQuote(markets[0], a.clock.Now().UTC())
                found[i] = &q
            }
            return nil
        })
    }
    if err := g.Wait(); err != nil { return nil, err }

    out := make([]provider.Quote, 0, len(found))
    for _, q := range found {
        if q != nil { out = append(out, *q) }
    }
    return out, nil
}

// coinList returns the cached listing or fetches a fresh one.
func (a *Adapter) coinList(ctx context.Context) ([]coingecko.CoinRef, error) {
    ttl := time.Duration(a.cfg.CoinListTTLSeconds) * time.Second
    if ttl > 0 {
        a.mu.RLock()
        coins, exp := a.coins, a.coinsExpires
        a.mu.RUnlock()
        if len(coins) > 0 && a.clock.Now().Before(exp) { return coins, nil }
    }

    coins, err := a.client.GetCoinList(ctx)
    if err != nil { return nil, err }
    if len(coins) == 0 { return nil, errors.New("empty coin list") }
    if ttl > 0 {
        a.mu.Lock()
        a.coins = coins
        a.coinsExpires = a.clock.Now().Add(ttl)
        a.mu.Unlock()
    }
    return coins, nil
}

// resolve finds the listing for a lower-cased key: id first, then symbol.
func resolve(coins []coingecko.CoinRef, key string) (coingecko.CoinRef, bool) {
    var bySymbol *coingecko.CoinRef
    for i := range coins {
        if strings.ToLower(coins[i].ID) == key { return coins[i], true }
        if bySymbol == nil && strings.ToLower(coins[i].Symbol) == key { bySymbol = &coins[i] }
    }
    if bySymbol != nil { return *bySymbol, true }
    return coingecko.CoinRef{}, false
}

func marketQuote(m coingecko.Market, now time.Time) provider.Quote {
    ts := now
    if m.LastUpdated != nil { ts = m.LastUpdated.UTC() }
    return provider.Quote{
        ID:            m.ID,
        Symbol:        strings.ToUpper(m.Symbol),
        Name:          m.Name,
        Price:         m.CurrentPrice,
        Change:        m.PriceChange24h,
        ChangePercent: m.PriceChangePercentage24h,
        High:          m.High24h,
        Low:           m.Low24h,
        Volume:        m.TotalVolume,
        ReceivedAt:    ts,
    }
}

func (a *Adapter) coinQuote(c coingecko.Coin) provider.Quote {
    q := provider.Quote{
        ID:         c.ID,
        Symbol:     strings.ToUpper(c.Symbol),
        Name:       c.Name,
        ReceivedAt: a.clock.Now().UTC(),
    }
    md := c.MarketData
    if md == nil { return q }
    // missing currencies read as zero from the maps
    q.Price = md.CurrentPrice[a.cfg.Currency]
    q.High = md.High24h[a.cfg.Currency]
    q.Low = md.Low24h[a.cfg.Currency]
    q.Volume = md.TotalVolume[a.cfg.Currency]
    q.Change = md.PriceChange24h
    q.ChangePercent = md.PriceChangePercentage24h
    if md.LastUpdated != nil { q.ReceivedAt = md.LastUpdated.UTC() }
    return q
}
