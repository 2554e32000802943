package api

import (
    "compress/gzip"
    "io"
    "log/slog"
    "net/http"
    "strings"
    "sync"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/google/uuid"
)

const requestIDKey = "request_id"

// requestLogger assigns a request id and logs one line per request.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
    return func(c *gin.Context) {
        id := c.GetHeader("X-Request-ID")
        if id == "" { id = uuid.NewString() }
        c.Set(requestIDKey, id)
        c.Header("X-Request-ID", id)

        start := time.Now()
        c.Next()

        status := c.Writer.Status()
        attrs := []any{
            slog.String("request_id", id),
            slog.String("method", c.Request.Method),
            slog.String("path", c.Request.URL.Path),
            slog.Int("status", status),
            slog.Int("size", c.Writer.Size()),
            slog.Duration("duration", time.Since(start)),
            slog.String("client_ip", c.ClientIP()),
        }
        switch {
        case status >= 500:
            log.Error("http request", attrs...)
        case status >= 400:
            log.Warn("http request", attrs...)
        default:
            log.Info("http request", attrs...)
        }
    }
}

// recoverPanic protects handlers from panics.
func recoverPanic(log *slog.Logger) gin.HandlerFunc {
    return func(c *gin.Context) {
        defer func() {
            if rec := recover(); rec != nil {
                id, _ := c.Get(requestIDKey)
                log.Error("http handler panicked", slog.Any("request_id", id), slog.Any("panic", rec))
                c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
            }
        }()
        c.Next()
    }
}

func withJSONHeaders(origin string) gin.HandlerFunc {
    if origin == "" { origin = "*" }
    return func(c *gin.Context) {
        h := c.Writer.Header()
        h.Set("Content-Type", "application/json; charset=utf-8")
        h.Set("Access-Control-Allow-Origin", origin)
        h.Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
        h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Request-ID")
        if c.Request.Method == http.MethodOptions {
            c.AbortWithStatus(http.StatusNoContent)
            return
        }
        c.Next()
    }
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(max int64) gin.HandlerFunc {
    if max <= 0 { max = 1 << 20 }
    return func(c *gin.Context) {
        if c.Request.Body != nil && (c.Request.Method == http.MethodPost || c.Request.Method == http.MethodDelete) {
            c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
        }
        c.Next()
    }
}

var gzPool = sync.Pool{New: func() any {
    // payloads are small JSON; favour speed
    w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
    return w
}}

// withGzip compresses the response when the client supports gzip.
func withGzip() gin.HandlerFunc {
    return func(c *gin.Context) {
        if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
            c.Next()
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(c.Writer)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        c.Header("Content-Encoding", "gzip")
        c.Writer.Header().Add("Vary", "Accept-Encoding")
        c.Writer = &gzipResponseWriter{ResponseWriter: c.Writer, w: gz}
        c.Next()
    }
}

type gzipResponseWriter struct {
    gin.ResponseWriter
    w *gzip.Writer
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
    g.Header().Del("Content-Length")
    return g.w.Write(b)
}

func (g *gzipResponseWriter) WriteString(s string) (int, error) {
    return g.Write([]byte(s))
}
