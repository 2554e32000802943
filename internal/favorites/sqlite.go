package favorites

import (
    "context"
    "database/sql"
    "fmt"
    "log/slog"

    _ "modernc.org/sqlite"
)

// SQLiteStore persists favorites in a SQLite file.
type SQLiteStore struct {
    db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS favorites (
    user_id INTEGER NOT NULL,
    coin_id TEXT    NOT NULL,
    PRIMARY KEY (user_id, coin_id)
);`

// OpenSQLite opens (creating if needed) the database at dsn and ensures the
// schema exists.
func OpenSQLite(ctx context.Context, dsn string, log *slog.Logger) (*SQLiteStore, error) {
    if log == nil { log = slog.New(slog.DiscardHandler) }
    db, err := sql.Open("sqlite", dsn)
    if err != nil { return nil, fmt.Errorf("open favorites db: %w", err) }
    // single writer; also keeps ":memory:" databases on one connection
    db.SetMaxOpenConns(1)
    if err := db.PingContext(ctx); err != nil {
        db.Close()
        return nil, fmt.Errorf("ping favorites db: %w", err)
    }
    if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
        log.Warn("favorites db: failed to set WAL mode", slog.Any("err", err))
    }
    if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
        log.Warn("favorites db: failed to set synchronous mode", slog.Any("err", err))
    }
    if _, err := db.ExecContext(ctx, schema); err != nil {
        db.Close()
        return nil, fmt.Errorf("create favorites table: %w", err)
    }
    return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context, userID int64) ([]string, error) {
    rows, err := s.db.QueryContext(ctx, `SELECT coin_id FROM favorites WHERE user_id = ? ORDER BY rowid`, userID)
    if err != nil { return nil, fmt.Errorf("list favorites: %w", err) }
    defer rows.Close()
    ids := []string{}
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil { return nil, fmt.Errorf("scan favorite: %w", err) }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

func (s *SQLiteStore) Add(ctx context.Context, userID int64, id string) error {
    id, err := normalizeID(id)
    if err != nil { return err }
    if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO favorites (user_id, coin_id) VALUES (?, ?)`, userID, id); err != nil {
        return fmt.Errorf("add favorite: %w", err)
    }
    return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, userID int64, id string) (bool, error) {
    id, err := normalizeID(id)
    if err != nil { return false, err }
    res, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND coin_id = ?`, userID, id)
    if err != nil { return false, fmt.Errorf("remove favorite: %w", err) }
    n, err := res.RowsAffected()
    if err != nil { return false, fmt.Errorf("remove favorite: %w", err) }
    return n > 0, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
