package main

import (
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "log"
    "os"
    "strings"
    "time"

    "github.com/shopspring/decimal"

    "marketwatch/internal/auth"
    "marketwatch/internal/config"
    "marketwatch/internal/httpx"
    "marketwatch/internal/provider"
    "marketwatch/internal/provider/coingecko"
    "marketwatch/internal/provider/coingeckoadapter"
    "marketwatch/internal/provider/ratelimit"
)

// fetch calls the gateway directly, bypassing every cache, and prints JSON.
//
//    fetch -mode popular -ids bitcoin,ethereum
//    fetch -mode detail -q btc
//    fetch -mode search -q sol -limit 3
//    fetch -mode token -user 1 -role admin
func main() {
    var mode, query, idsCSV, configPath, role string
    var limit, timeout int
    var userID int64
    var ttl time.Duration

    flag.StringVar(&mode, "mode", "popular", "popular | detail | search | token")
    flag.StringVar(&query, "q", "", "id/symbol for detail, text for search")
    flag.StringVar(&idsCSV, "ids", getenv("COINGECKO_TRACKED_IDS", ""), "comma-separated ids for popular (default: configured tracked ids)")
    flag.IntVar(&limit, "limit", 5, "max search results")
    flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 15), "overall timeout seconds")
    flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json or config.yaml (optional)")
    flag.Int64Var(&userID, "user", 1, "user id for -mode token")
    flag.StringVar(&role, "role", auth.RoleUser, "role for -mode token")
    flag.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime for -mode token")
    flag.Parse()

    cfg, err := config.Load(configPath)
    if err != nil { log.Fatalf("config: %v", err) }
    if ids := splitCSV(idsCSV); len(ids) > 0 { cfg.CoinGecko.TrackedIDs = ids }

    if mode == "token" {
        tok, err := auth.NewVerifier(cfg.Auth.JWTSecret, nil).Sign(auth.Claims{UserID: userID, Role: role}, ttl)
        if err != nil { log.Fatalf("sign token: %v", err) }
        fmt.Println(tok)
        return
    }

    gw, err := newGateway(cfg)
    if err != nil { log.Fatalf("gateway: %v", err) }

    ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
    defer cancel()

    var quotes []provider.Quote
    switch mode {
    case "popular":
        quotes, err = gw.FetchPopular(ctx, cfg.CoinGecko.TrackedIDs)
    case "detail":
        if strings.TrimSpace(query) == "" { log.Fatal("-q required for detail") }
        var q provider.Quote
        q, err = gw.FetchDetail(ctx, query)
        quotes = []provider.Quote{q}
    case "search":
        if strings.TrimSpace(query) == "" { log.Fatal("-q required for search") }
        quotes, err = gw.Search(ctx, query, limit)
    default:
        log.Fatalf("unknown mode %q", mode)
    }
    if d, limited := provider.AsRateLimit(err); limited {
        log.Fatalf("%s: rate limited, retry after %s", gw.Name(), d)
    }
    if err != nil { log.Fatalf("%s %s: %v", gw.Name(), mode, err) }
    log.Printf("%s: %d quotes", gw.Name(), len(quotes))

    decimal.MarshalJSONWithoutQuotes = true
    enc := json.NewEncoder(os.Stdout)
    enc.SetIndent("", "  ")
    enc.SetEscapeHTML(false)
    if err := enc.Encode(struct {
        Quotes []provider.Quote `json:"quotes"`
    }{Quotes: quotes}); err != nil {
        log.Fatalf("encode: %v", err)
    }
}

func newGateway(cfg config.Config) (provider.Gateway, error) {
    cg := cfg.CoinGecko
    httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
    client, err := coingecko.NewClient(cg.APIKey,
        coingecko.WithBaseURL(cg.Endpoint),
        coingecko.WithHTTPClient(httpClient),
        coingecko.WithTimeout(time.Duration(cg.TimeoutSec)*time.Second),
    )
    if err != nil { return nil, err }
    gw := coingeckoadapter.New(coingeckoadapter.Config{
        Currency:          cg.Currency,
        SearchConcurrency: cg.SearchConcurrency,
    }, client, nil)
    return ratelimit.NewGateway(gw, cg.MaxRequestsPerMinute, cg.Burst), nil
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }
func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        var x int
        _, _ = fmt.Sscanf(v, "%d", &x)
        if x != 0 { return x }
    }
    return def
}
