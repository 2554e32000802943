package main

import (
    "context"
    "errors"
    "fmt"
    "log"
    "log/slog"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/shopspring/decimal"

    "marketwatch/internal/api"
    "marketwatch/internal/auth"
    "marketwatch/internal/clock"
    "marketwatch/internal/config"
    "marketwatch/internal/favorites"
    "marketwatch/internal/httpx"
    "marketwatch/internal/logging"
    "marketwatch/internal/market"
    "marketwatch/internal/provider"
    "marketwatch/internal/provider/coingecko"
    "marketwatch/internal/provider/coingeckoadapter"
    "marketwatch/internal/provider/ratelimit"
)

func main() {
    os.Exit(serve(os.Getenv("CONFIG_FILE")))
}

// serve runs the server until a signal arrives and returns the process exit
// code. Deferred cleanup runs before main exits.
func serve(configPath string) int {
    cfg, err := config.Load(configPath)
    if err != nil {
        log.Printf("config: %v", err)
        return 1
    }

    logger, closer, err := logging.New(cfg.Log)
    if err != nil {
        log.Printf("logging: %v", err)
        return 1
    }
    defer closer.Close()
    slog.SetDefault(logger)

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    if err := run(ctx, cfg, logger); err != nil {
        logger.Error("server exited", slog.Any("err", err))
        return 1
    }
    return 0
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
    reg := prometheus.NewRegistry()
    reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

    handler, cleanup, err := newHandler(ctx, cfg, logger, reg, nil)
    if err != nil { return err }
    defer cleanup()

    srv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           handler,
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      time.Duration(cfg.Server.RequestTimeoutSec)*time.Second + 10*time.Second,
        IdleTimeout:       60 * time.Second,
    }

    errCh := make(chan error, 1)
    go func() {
        logger.Info("server listening", slog.String("addr", srv.Addr))
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errCh <- err
        }
        close(errCh)
    }()

    select {
    case err := <-errCh:
        return err
    case <-ctx.Done():
    }
    logger.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    return srv.Shutdown(shutdownCtx)
}

// newHandler wires gateway, coordinator, favorites and auth into the HTTP
// handler. cleanup releases the favorites store.
func newHandler(ctx context.Context, cfg config.Config, logger *slog.Logger, reg *prometheus.Registry, clk clock.Clock) (http.Handler, func(), error) {
    gin.SetMode(gin.ReleaseMode)
    // clients get numbers, not quoted strings
    decimal.MarshalJSONWithoutQuotes = true

    gw, err := newGateway(cfg, clk)
    if err != nil { return nil, nil, err }

    store, err := newFavorites(ctx, cfg.Favorites, logger)
    if err != nil { return nil, nil, err }

    if cfg.Auth.JWTSecret == "" {
        logger.Warn("JWT_SECRET not set; favorites and cache clear will reject every request")
    }

    cooldown := ratelimit.NewCooldown(clk)
    coord := market.New(gw, cooldown, market.Options{
        TrackedIDs:  cfg.CoinGecko.TrackedIDs,
        PrimaryTTL:  time.Duration(cfg.Cache.PrimaryTTLSeconds) * time.Second,
        BackupTTL:   time.Duration(cfg.Cache.BackupTTLSeconds) * time.Second,
        MaxItems:    cfg.Cache.MaxItems,
        SearchLimit: cfg.CoinGecko.SearchLimit,
        Clock:       clk,
        Logger:      logger.With(slog.String("component", "market")),
        Metrics:     market.NewMetrics(reg),
    })

    srv := api.New(coord, store, auth.NewVerifier(cfg.Auth.JWTSecret, clk), api.Options{
        RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
        MaxBodyBytes:   cfg.Server.MaxBodyBytes,
        CORSOrigin:     cfg.Server.CORSOrigin,
        Logger:         logger.With(slog.String("component", "http")),
        Gatherer:       reg,
    })
    cleanup := func() {
        if err := store.Close(); err != nil { logger.Error("close favorites", slog.Any("err", err)) }
    }
    return srv.Handler(), cleanup, nil
}

func newGateway(cfg config.Config, clk clock.Clock) (provider.Gateway, error) {
    cg := cfg.CoinGecko
    httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

    client, err := coingecko.NewClient(cg.APIKey,
        coingecko.WithBaseURL(cg.Endpoint),
        coingecko.WithHTTPClient(httpClient),
        coingecko.WithTimeout(time.Duration(cg.TimeoutSec)*time.Second),
        coingecko.WithClock(clk),
    )
    if err != nil { return nil, fmt.Errorf("coingecko client: %w", err) }

    var gw provider.Gateway = coingeckoadapter.New(coingeckoadapter.Config{
        Currency:           cg.Currency,
        CoinListTTLSeconds: cg.CoinListTTLSeconds,
        SearchConcurrency:  cg.SearchConcurrency,
    }, client, clk)
    return ratelimit.NewGateway(gw, cg.MaxRequestsPerMinute, cg.Burst), nil
}

func newFavorites(ctx context.Context, cfg config.Favorites, logger *slog.Logger) (favorites.Store, error) {
    switch cfg.Driver {
    case "sqlite":
        s, err := favorites.OpenSQLite(ctx, cfg.DSN, logger)
        if err != nil { return nil, err }
        logger.Info("favorites store", slog.String("driver", "sqlite"), slog.String("dsn", cfg.DSN))
        return s, nil
    default:
        logger.Info("favorites store", slog.String("driver", "memory"))
        return favorites.NewMemoryStore(), nil
    }
}
