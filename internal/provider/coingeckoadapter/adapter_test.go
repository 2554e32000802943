package coingeckoadapter_test

import (
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/require"

    "marketwatch/internal/clock"
    "marketwatch/internal/provider"
    "marketwatch/internal/provider/coingecko"
    "marketwatch/internal/provider/coingeckoadapter"
)

// fakeUpstream serves a tiny CoinGecko and counts calls per path.
type fakeUpstream struct {
    mu        sync.Mutex
    calls     map[string]int
    throttled map[string]bool // market ids answering 429
    failing   map[string]bool // market ids answering 500
}

func newFakeUpstream() *fakeUpstream {
    return &fakeUpstream{calls: map[string]int{}, throttled: map[string]bool{}, failing: map[string]bool{}}
}

func (f *fakeUpstream) count(path string) int {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.calls[path]
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
    f.mu.Lock()
    f.calls[r.URL.Path]++
    f.mu.Unlock()

    w.Header().Set("Content-Type", "application/json")
    switch {
    case r.URL.Path == "/coins/markets":
        ids := strings.Split(r.URL.Query().Get("ids"), ",")
        var rows []string
        for _, id := range ids {
            if f.throttled[id] {
                w.Header().Set("Retry-After", "30")
                w.WriteHeader(http.StatusTooManyRequests)
                return
            }
            if f.failing[id] {
                w.WriteHeader(http.StatusInternalServerError)
                return
            }
            rows = append(rows, fmt.Sprintf(`{"id":%q,"symbol":%q,"name":%q,"current_price":1.5,"price_change_percentage_24h":null}`, id, id[:3], strings.ToUpper(id[:1])+id[1:]))
        }
        fmt.Fprintf(w, "[%s]", strings.Join(rows, ","))
    case r.URL.Path == "/coins/list":
        fmt.Fprint(w, `[
            {"id":"bitcoin","symbol":"btc","name":"Bitcoin"},
            {"id":"batcat","symbol":"btc","name":"Batcat"},
            {"id":"eth","symbol":"weth","name":"Not Ethereum"},
            {"id":"ethereum","symbol":"eth","name":"Ethereum"}
        ]`)
    case strings.HasPrefix(r.URL.Path, "/coins/"):
        id := strings.TrimPrefix(r.URL.Path, "/coins/")
        fmt.Fprintf(w, `{"id":%q,"symbol":"x","name":"X","market_data":{"current_price":{"usd":42},"high_24h":{"usd":43},"low_24h":{},"total_volume":{"usd":7},"price_change_24h":1,"price_change_percentage_24h":2.5}}`, id)
    case r.URL.Path == "/search":
        fmt.Fprint(w, `{"coins":[
            {"id":"bitcoin","symbol":"BTC","name":"Bitcoin"},
            {"id":"bitcoin-cash","symbol":"BCH","name":"Bitcoin Cash"},
            {"id":"wrapped-bitcoin","symbol":"WBTC","name":"Wrapped Bitcoin"},
            {"id":"bitdao","symbol":"BIT","name":"BitDAO"},
            {"id":"bittensor","symbol":"TAO","name":"Bittensor"},
            {"id":"bitget-token","symbol":"BGB","name":"Bitget Token"},
            {"id":"bitcoin-gold","symbol":"BTG","name":"Bitcoin Gold"}
        ]}`)
    default:
        w.WriteHeader(http.StatusNotFound)
    }
}

func newAdapter(t *testing.T, up *fakeUpstream, cfg coingeckoadapter.Config) (*coingeckoadapter.Adapter, *clock.Fake) {
    t.Helper()
    srv := httptest.NewServer(up)
    t.Cleanup(srv.Close)
    fc := clock.NewFake(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
    client, err := coingecko.NewClient("", coingecko.WithBaseURL(srv.URL), coingecko.WithHTTPClient(srv.Client()), coingecko.WithClock(fc))
    require.NoError(t, err)
    return coingeckoadapter.New(cfg, client, fc), fc
}

func TestFetchPopular_MapsAndUppercases(t *testing.T) {
    t.Parallel()

    up := newFakeUpstream()
    a, fc := newAdapter(t, up, coingeckoadapter.Config{})
    require.Equal(t, "CoinGecko", a.Name())

    quotes, err := a.FetchPopular(t.Context(), []string{"bitcoin", "ethereum"})
    require.NoError(t, err)
    require.Len(t, quotes, 2)
    require.Equal(t, "bitcoin", quotes[0].ID)
    require.Equal(t, "BIT", quotes[0].Symbol)
    require.True(t, decimal.RequireFromString("1.5").Equal(quotes[0].Price))
    require.True(t, quotes[0].ChangePercent.IsZero())
    require.True(t, quotes[0].ReceivedAt.Equal(fc.Now()))
    require.False(t, quotes[0].IsFavorite)
    require.Equal(t, 1, up.count("/coins/markets"))
}

func TestFetchPopular_EmptyIDsSkipsUpstream(t *testing.T) {
    t.Parallel()

    up := newFakeUpstream()
    a, _ := newAdapter(t, up, coingeckoadapter.Config{})
    quotes, err := a.FetchPopular(t.Context(), nil)
    require.NoError(t, err)
    require.Empty(t, quotes)
    require.Zero(t, up.count("/coins/markets"))
}

func TestFetchDetail_IDBeatsSymbol(t *testing.T) {
    t.Parallel()

    up := newFakeUpstream()
    a, _ := newAdapter(t, up, coingeckoadapter.Config{CoinListTTLSeconds: 3600})

    // "eth" is both an id and ethereum's symbol: the id wins.
    q, err := a.FetchDetail(t.Context(), "ETH")
    require.NoError(t, err)
    require.Equal(t, "eth", q.ID)
    require.Equal(t, 1, up.count("/coins/eth"))

    // symbol match, first listing wins
    q, err = a.FetchDetail(t.Context(), "btc")
    require.NoError(t, err)
    require.Equal(t, "bitcoin", q.ID)
    require.True(t, decimal.NewFromInt(42).Equal(q.Price))
    require.True(t, decimal.NewFromInt(43).Equal(q.High))
    require.True(t, q.Low.IsZero())
    require.True(t, decimal.RequireFromString("2.5").Equal(q.ChangePercent))

    // listing was cached between the two lookups
    require.Equal(t, 1, up.count("/coins/list"))
}

func TestFetchDetail_CoinListTTLExpires(t *testing.T) {
    t.Parallel()

    up := newFakeUpstream()
    a, fc := newAdapter(t, up, coingeckoadapter.Config{CoinListTTLSeconds: 60})

    _, err := a.FetchDetail(t.Context(), "bitcoin")
    require.NoError(t, err)
    fc.Advance(61 * time.Second)
    _, err = a.FetchDetail(t.Context(), "bitcoin")
    require.NoError(t, err)
    require.Equal(t, 2, up.count("/coins/list"))
}

func TestFetchDetail_NotFound(t *testing.T) {
    t.Parallel()

    up := newFakeUpstream()
    a, _ := newAdapter(t, up, coingeckoadapter.Config{})

    _, err := a.FetchDetail(t.Context(), "does-not-exist")
    require.ErrorIs(t, err, provider.ErrNotFound)
    require.Zero(t, up.count("/coins/does-not-exist"))

    _, err = a.FetchDetail(t.Context(), "   ")
    require.ErrorIs(t, err, provider.ErrNotFound)
}

func TestSearch_CapsLookupsAndKeepsOrder(t *testing.T) {
    t.Parallel()

    up := newFakeUpstream()
    a, _ := newAdapter(t, up, coingeckoadapter.Config{})

    quotes, err := a.Search(t.Context(), "bit", 50)
    require.NoError(t, err)
    require.Len(t, quotes, coingeckoadapter.MaxSearchLookups)
    require.Equal(t, "bitcoin", quotes[0].ID)
    require.Equal(t, "bittensor", quotes[4].ID)
    require.Equal(t, 1, up.count("/search"))
    require.Equal(t, coingeckoadapter.MaxSearchLookups, up.count("/coins/markets"))
}

func TestSearch_SkipsSoftFailures(t *testing.T) {
    t.Parallel()

    up := newFakeUpstream()
    up.failing["bitcoin-cash"] = true
    a, _ := newAdapter(t, up, coingeckoadapter.Config{})

    quotes, err := a.Search(t.Context(), "bit", 3)
    require.NoError(t, err)
    require.Len(t, quotes, 2)
    require.Equal(t, "bitcoin", quotes[0].ID)
    require.Equal(t, "wrapped-bitcoin", quotes[1].ID)
}

func TestSearch_ThrottledCandidateAborts(t *testing.T) {
    t.Parallel()

    up := newFakeUpstream()
    up.throttled["wrapped-bitcoin"] = true
    a, _ := newAdapter(t, up, coingeckoadapter.Config{SearchConcurrency: 1})

    quotes, err := a.Search(t.Context(), "bit", 5)
    require.Error(t, err)
    require.Nil(t, quotes)
    d, limited := provider.AsRateLimit(err)
    require.True(t, limited)
    require.Equal(t, 30*time.Second, d)
}
