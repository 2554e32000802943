package main

import (
    "context"
    "encoding/json"
    "log/slog"
    "net"
    "net/http"
    "net/http/httptest"
    "os"
    "path/filepath"
    "strconv"
    "sync/atomic"
    "testing"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/stretchr/testify/require"

    "marketwatch/internal/clock"
    "marketwatch/internal/config"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const marketsBody = `[
  {"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":64000.5,"price_change_percentage_24h":1.25,"high_24h":65000,"low_24h":63000,"total_volume":1000},
  {"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3100,"price_change_percentage_24h":-2,"high_24h":null,"low_24h":null,"total_volume":null}
]`

type upstream struct {
    markets   atomic.Int32
    other     atomic.Int32
    throttled atomic.Bool
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/coins/markets" {
        u.other.Add(1)
        http.NotFound(w, r)
        return
    }
    u.markets.Add(1)
    if u.throttled.Load() {
        w.Header().Set("Retry-After", "30")
        w.WriteHeader(http.StatusTooManyRequests)
        return
    }
    w.Header().Set("Content-Type", "application/json")
    _, _ = w.Write([]byte(marketsBody))
}

func newTestHandler(t *testing.T) (http.Handler, *upstream, *clock.Fake) {
    t.Helper()
    up := &upstream{}
    srv := httptest.NewServer(up)
    t.Cleanup(srv.Close)

    cfg := config.Default()
    cfg.CoinGecko.Endpoint = srv.URL
    cfg.CoinGecko.TrackedIDs = []string{"bitcoin", "ethereum"}
    cfg.CoinGecko.MaxRequestsPerMinute = 0
    cfg.Auth.JWTSecret = "s3cret"

    clk := clock.NewFake(t0)
    h, cleanup, err := newHandler(context.Background(), cfg, slog.New(slog.DiscardHandler), prometheus.NewRegistry(), clk)
    require.NoError(t, err)
    t.Cleanup(cleanup)
    return h, up, clk
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
    w := httptest.NewRecorder()
    h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
    return w
}

func TestStocks_EndToEnd(t *testing.T) {
    h, up, _ := newTestHandler(t)

    w := get(h, "/api/market/stocks")
    require.Equal(t, http.StatusOK, w.Code, w.Body.String())

    var body struct {
        Quotes []map[string]any `json:"quotes"`
        WasFromFallback bool    `json:"wasFromFallback"`
    }
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
    require.False(t, body.WasFromFallback)
    require.Len(t, body.Quotes, 2)
    require.Equal(t, "bitcoin", body.Quotes[0]["id"])
    require.Equal(t, "BTC", body.Quotes[0]["symbol"])
    require.Equal(t, 64000.5, body.Quotes[0]["price"])
    require.Equal(t, 0.0, body.Quotes[1]["high"])

    // cached: no second upstream call, and detail short-circuits
    require.Equal(t, http.StatusOK, get(h, "/api/market/stocks").Code)
    require.Equal(t, http.StatusOK, get(h, "/api/market/stocks/eth").Code)
    require.Equal(t, http.StatusOK, get(h, "/api/market/stocks/search?query=bit").Code)
    require.EqualValues(t, 1, up.markets.Load())
    require.EqualValues(t, 0, up.other.Load())
}

func TestStocks_RateLimitedUpstream(t *testing.T) {
    h, up, clk := newTestHandler(t)
    up.throttled.Store(true)

    require.Equal(t, http.StatusServiceUnavailable, get(h, "/api/market/stocks").Code)

    w := get(h, "/api/market/status")
    require.Equal(t, http.StatusOK, w.Code)
    var st struct {
        Limited bool      `json:"isLimited"`
        ResetAt time.Time `json:"resetAt"`
    }
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
    require.True(t, st.Limited)
    require.True(t, st.ResetAt.Equal(t0.Add(30*time.Second)))

    // cooling down: no upstream traffic
    clk.Advance(10 * time.Second)
    require.Equal(t, http.StatusServiceUnavailable, get(h, "/api/market/stocks").Code)
    require.EqualValues(t, 1, up.markets.Load())

    // lifted
    up.throttled.Store(false)
    clk.Advance(25 * time.Second)
    require.Equal(t, http.StatusOK, get(h, "/api/market/stocks").Code)
    require.EqualValues(t, 2, up.markets.Load())
}

func TestMetricsExposed(t *testing.T) {
    h, _, _ := newTestHandler(t)
    get(h, "/api/market/stocks")

    w := get(h, "/metrics")
    require.Equal(t, http.StatusOK, w.Code)
    require.Contains(t, w.Body.String(), `marketwatch_upstream_calls_total{op="popular",result="ok"} 1`)
}

func TestServe_BadConfigExitsNonZero(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    require.NoError(t, os.WriteFile(path, []byte(`{"server":`), 0o600))

    require.Equal(t, 1, serve(path))
}

func TestServe_ListenFailureExitsNonZeroAndLogs(t *testing.T) {
    ln, err := net.Listen("tcp", ":0")
    require.NoError(t, err)
    defer ln.Close()
    port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

    dir := t.TempDir()
    logFile := filepath.Join(dir, "server.log")
    cfg := map[string]any{
        "server": map[string]any{"port": port},
        "log":    map[string]any{"file": logFile, "format": "json"},
    }
    b, err := json.Marshal(cfg)
    require.NoError(t, err)
    path := filepath.Join(dir, "config.json")
    require.NoError(t, os.WriteFile(path, b, 0o600))
    t.Setenv("PORT", port)

    require.Equal(t, 1, serve(path))

    out, err := os.ReadFile(logFile)
    require.NoError(t, err)
    require.Contains(t, string(out), `"msg":"server exited"`)
}
