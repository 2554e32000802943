package api

import (
    "errors"
    "log/slog"
    "net/http"
    "strings"

    "github.com/gin-gonic/gin"

    "marketwatch/internal/aggregate"
    "marketwatch/internal/auth"
    "marketwatch/internal/favorites"
    "marketwatch/internal/market"
    "marketwatch/internal/provider"
)

type quotesResponse struct {
    Quotes          []provider.Quote `json:"quotes"`
    WasFromFallback bool             `json:"wasFromFallback"`
}

type quoteResponse struct {
    Quote           provider.Quote `json:"quote"`
    WasFromFallback bool           `json:"wasFromFallback"`
}

type summaryResponse struct {
    aggregate.Movers
    WasFromFallback bool `json:"wasFromFallback"`
}

type favoriteBody struct {
    StockID string `json:"stockId"`
}

func message(c *gin.Context, code int, msg string) {
    c.JSON(code, gin.H{"message": msg})
}

func unavailable(c *gin.Context) {
    c.JSON(http.StatusServiceUnavailable, gin.H{
        "message":         "market data temporarily unavailable",
        "wasFromFallback": true,
    })
}

// favoriteIDs returns the caller's favorites, or nil for anonymous callers.
// A store error only costs the marking, so it is logged and swallowed.
func (s *Server) favoriteIDs(c *gin.Context) []string {
    claims, ok := auth.FromContext(c)
    if !ok { return nil }
    ids, err := s.favorites.List(c.Request.Context(), claims.UserID)
    if err != nil {
        s.log.Error("list favorites", slog.Int64("user_id", claims.UserID), slog.Any("err", err))
        return nil
    }
    return ids
}

func (s *Server) getStocks(c *gin.Context) {
    ctx, cancel := s.requestContext(c)
    defer cancel()
    res := s.market.GetPopular(ctx)
    if res.Outcome == market.OutcomeFailed {
        unavailable(c)
        return
    }
    c.JSON(http.StatusOK, quotesResponse{
        Quotes:          aggregate.MarkFavorites(res.Quotes, s.favoriteIDs(c)),
        WasFromFallback: res.WasFallback(),
    })
}

func (s *Server) searchStocks(c *gin.Context) {
    query := strings.TrimSpace(c.Query("query"))
    if len([]rune(query)) < s.opts.MinQueryLen {
        message(c, http.StatusBadRequest, "search query must be at least 2 characters")
        return
    }
    ctx, cancel := s.requestContext(c)
    defer cancel()
    res := s.market.Search(ctx, query)
    c.JSON(http.StatusOK, quotesResponse{
        Quotes:          aggregate.MarkFavorites(res.Quotes, s.favoriteIDs(c)),
        WasFromFallback: res.WasFallback(),
    })
}

func (s *Server) getStock(c *gin.Context) {
    symbol := strings.TrimSpace(c.Param("symbol"))
    if symbol == "" {
        message(c, http.StatusBadRequest, "symbol required")
        return
    }
    ctx, cancel := s.requestContext(c)
    defer cancel()
    res := s.market.GetDetail(ctx, symbol)
    switch res.Outcome {
    case market.OutcomeNotFound:
        message(c, http.StatusNotFound, "instrument not found")
        return
    case market.OutcomeFailed:
        unavailable(c)
        return
    }
    q, _ := res.Quote()
    marked := aggregate.MarkFavorites([]provider.Quote{q}, s.favoriteIDs(c))
    c.JSON(http.StatusOK, quoteResponse{Quote: marked[0], WasFromFallback: res.WasFallback()})
}

func (s *Server) getSummary(c *gin.Context) {
    ctx, cancel := s.requestContext(c)
    defer cancel()
    res := s.market.GetPopular(ctx)
    if res.Outcome == market.OutcomeFailed {
        unavailable(c)
        return
    }
    c.JSON(http.StatusOK, summaryResponse{
        Movers:          aggregate.TopMovers(res.Quotes, s.opts.SummarySize),
        WasFromFallback: res.WasFallback(),
    })
}

func (s *Server) getStatus(c *gin.Context) {
    c.JSON(http.StatusOK, s.market.Status())
}

// getFavorites resolves each favorite through the coordinator; ids that no
// longer resolve are left out.
func (s *Server) getFavorites(c *gin.Context) {
    claims, _ := auth.FromContext(c)
    ids, err := s.favorites.List(c.Request.Context(), claims.UserID)
    if err != nil {
        s.log.Error("list favorites", slog.Int64("user_id", claims.UserID), slog.Any("err", err))
        message(c, http.StatusInternalServerError, "could not load favorites")
        return
    }
    ctx, cancel := s.requestContext(c)
    defer cancel()
    resp := quotesResponse{Quotes: []provider.Quote{}}
    for _, id := range ids {
        res := s.market.GetDetail(ctx, id)
        if res.WasFallback() { resp.WasFromFallback = true }
        q, ok := res.Quote()
        if !ok { continue }
        q.IsFavorite = true
        resp.Quotes = append(resp.Quotes, q)
    }
    c.JSON(http.StatusOK, resp)
}

func (s *Server) addFavorite(c *gin.Context) {
    claims, _ := auth.FromContext(c)
    var body favoriteBody
    if err := c.ShouldBindJSON(&body); err != nil {
        message(c, http.StatusBadRequest, "invalid JSON body")
        return
    }
    err := s.favorites.Add(c.Request.Context(), claims.UserID, body.StockID)
    switch {
    case errors.Is(err, favorites.ErrInvalidID):
        message(c, http.StatusBadRequest, "stockId required")
    case err != nil:
        s.log.Error("add favorite", slog.Int64("user_id", claims.UserID), slog.Any("err", err))
        message(c, http.StatusInternalServerError, "could not save favorite")
    default:
        message(c, http.StatusOK, "added to favorites")
    }
}

func (s *Server) removeFavorite(c *gin.Context) {
    claims, _ := auth.FromContext(c)
    removed, err := s.favorites.Remove(c.Request.Context(), claims.UserID, c.Param("stockId"))
    switch {
    case errors.Is(err, favorites.ErrInvalidID):
        message(c, http.StatusBadRequest, "stockId required")
    case err != nil:
        s.log.Error("remove favorite", slog.Int64("user_id", claims.UserID), slog.Any("err", err))
        message(c, http.StatusInternalServerError, "could not remove favorite")
    case !removed:
        message(c, http.StatusNotFound, "not a favorite")
    default:
        message(c, http.StatusOK, "removed from favorites")
    }
}

func (s *Server) clearCache(c *gin.Context) {
    s.market.Clear()
    message(c, http.StatusOK, "cache cleared")
}
