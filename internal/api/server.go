package api

import (
    "context"
    "log/slog"
    "net/http"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "marketwatch/internal/auth"
    "marketwatch/internal/favorites"
    "marketwatch/internal/market"
    "marketwatch/internal/provider/ratelimit"
)

// Market is the read side the HTTP layer needs from the coordinator.
type Market interface {
    GetPopular(ctx context.Context) market.Result
    GetDetail(ctx context.Context, idOrSymbol string) market.Result
    Search(ctx context.Context, query string) market.Result
    Clear()
    Status() ratelimit.State
}

type Options struct {
    RequestTimeout time.Duration
    MaxBodyBytes   int64
    CORSOrigin     string
    // MinQueryLen is the shortest accepted search query after trimming.
    MinQueryLen int
    // SummarySize is how many top and worst performers the summary lists.
    SummarySize int
    Logger      *slog.Logger
    // Gatherer backs /metrics; nil disables the route.
    Gatherer prometheus.Gatherer
}

type Server struct {
    market    Market
    favorites favorites.Store
    verifier  *auth.Verifier
    opts      Options
    log       *slog.Logger
}

func New(m Market, fav favorites.Store, v *auth.Verifier, opts Options) *Server {
    if opts.RequestTimeout <= 0 { opts.RequestTimeout = 10 * time.Second }
    if opts.MinQueryLen <= 0 { opts.MinQueryLen = 2 }
    if opts.SummarySize <= 0 { opts.SummarySize = 3 }
    if opts.Logger == nil { opts.Logger = slog.New(slog.DiscardHandler) }
    return &Server{market: m, favorites: fav, verifier: v, opts: opts, log: opts.Logger}
}

// Handler builds the gin engine with every route mounted.
func (s *Server) Handler() http.Handler {
    r := gin.New()
    r.Use(requestLogger(s.log), recoverPanic(s.log))

    r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
    if s.opts.Gatherer != nil {
        r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
    }

    g := r.Group("/api/market", withJSONHeaders(s.opts.CORSOrigin), withGzip(), limitBody(s.opts.MaxBodyBytes))
    {
        g.GET("/stocks", s.verifier.Optional(), s.getStocks)
        g.GET("/stocks/search", s.verifier.Optional(), s.searchStocks)
        g.GET("/stocks/:symbol", s.verifier.Optional(), s.getStock)
        g.GET("/summary", s.getSummary)
        g.GET("/status", s.getStatus)

        g.GET("/favorites", s.verifier.Required(), s.getFavorites)
        g.POST("/favorites", s.verifier.Required(), s.addFavorite)
        g.DELETE("/favorites/:stockId", s.verifier.Required(), s.removeFavorite)

        g.POST("/cache/clear", s.verifier.Required(), auth.RequireRole(auth.RoleAdmin), s.clearCache)
    }
    return r
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
}
