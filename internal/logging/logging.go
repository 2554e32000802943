package logging

import (
    "io"
    "log/slog"
    "os"
    "path/filepath"
    "strings"

    "gopkg.in/natefinch/lumberjack.v2"

    "marketwatch/internal/config"
)

// ParseLevel maps debug|info|warn|error to a slog level. Anything else is info.
func ParseLevel(s string) slog.Level {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "debug":
        return slog.LevelDebug
    case "warn", "warning":
        return slog.LevelWarn
    case "error":
        return slog.LevelError
    default:
        return slog.LevelInfo
    }
}

// New builds the process logger. When cfg.File is set, output goes to stdout
// and a size-rotated file. The returned closer releases the file.
func New(cfg config.Log) (*slog.Logger, io.Closer, error) {
    var out io.Writer = os.Stdout
    var closer io.Closer = nopCloser{}
    if cfg.File != "" {
        if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil { return nil, nil, err }
        lj := &lumberjack.Logger{
            Filename:   cfg.File,
            MaxSize:    cfg.MaxSizeMB,
            MaxBackups: cfg.MaxBackups,
            MaxAge:     cfg.MaxAgeDays,
            Compress:   true,
        }
        out = io.MultiWriter(os.Stdout, lj)
        closer = lj
    }
    return NewWithWriter(out, cfg.Level, cfg.Format), closer, nil
}

// NewWithWriter builds a logger writing to w in the given format
// ("json" or "text").
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
    opts := &slog.HandlerOptions{Level: ParseLevel(level)}
    if strings.EqualFold(format, "text") { return slog.New(slog.NewTextHandler(w, opts)) }
    return slog.New(slog.NewJSONHandler(w, opts))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
