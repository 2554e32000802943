package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "gopkg.in/yaml.v3"
)

type Server struct {
    Port              string `json:"port" yaml:"port"`
    RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
    MaxBodyBytes      int64  `json:"max_body_bytes" yaml:"max_body_bytes"`
    CORSOrigin        string `json:"cors_origin" yaml:"cors_origin"`
}

type CoinGecko struct {
    Endpoint             string   `json:"endpoint" yaml:"endpoint"`
    APIKey               string   `json:"api_key" yaml:"api_key"`
    Currency             string   `json:"currency" yaml:"currency"`
    TrackedIDs           []string `json:"tracked_ids" yaml:"tracked_ids"`
    TimeoutSec           int      `json:"timeout_sec" yaml:"timeout_sec"`
    MaxRequestsPerMinute int      `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
    Burst                int      `json:"burst" yaml:"burst"`
    CoinListTTLSeconds   int      `json:"coin_list_ttl_sec" yaml:"coin_list_ttl_sec"`
    SearchLimit          int      `json:"search_limit" yaml:"search_limit"`
    SearchConcurrency    int      `json:"search_concurrency" yaml:"search_concurrency"`
}

type Cache struct {
    PrimaryTTLSeconds int `json:"primary_ttl_sec" yaml:"primary_ttl_sec"`
    BackupTTLSeconds  int `json:"backup_ttl_sec" yaml:"backup_ttl_sec"`
    MaxItems          int `json:"max_items" yaml:"max_items"`
}

type Favorites struct {
    // Driver is "memory" or "sqlite".
    Driver string `json:"driver" yaml:"driver"`
    DSN    string `json:"dsn" yaml:"dsn"`
}

type Auth struct {
    JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
}

type Log struct {
    Level      string `json:"level" yaml:"level"`
    Format     string `json:"format" yaml:"format"`
    File       string `json:"file" yaml:"file"`
    MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
    MaxBackups int    `json:"max_backups" yaml:"max_backups"`
    MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

type Config struct {
    Server    Server    `json:"server" yaml:"server"`
    CoinGecko CoinGecko `json:"coingecko" yaml:"coingecko"`
    Cache     Cache     `json:"cache" yaml:"cache"`
    Favorites Favorites `json:"favorites" yaml:"favorites"`
    Auth      Auth      `json:"auth" yaml:"auth"`
    Log       Log       `json:"log" yaml:"log"`
}

// DefaultTrackedIDs is the popular set shown on the dashboard.
var DefaultTrackedIDs = []string{
    "bitcoin", "ethereum", "ripple", "cardano", "solana",
    "polkadot", "dogecoin", "avalanche-2", "chainlink", "uniswap",
}

func Default() Config {
    return Config{
        Server: Server{Port: "8080", RequestTimeoutSec: 10, MaxBodyBytes: 1 << 20, CORSOrigin: "*"},
        CoinGecko: CoinGecko{
            Endpoint:             "https://api.coingecko.com/api/v3",
            Currency:             "usd",
            TrackedIDs:           append([]string(nil), DefaultTrackedIDs...),
            TimeoutSec:           5,
            MaxRequestsPerMinute: 30,
            Burst:                5,
            CoinListTTLSeconds:   3600,
            SearchLimit:          5,
            SearchConcurrency:    2,
        },
        Cache: Cache{
            PrimaryTTLSeconds: 900,
            BackupTTLSeconds:  86400,
            MaxItems:          10000,
        },
        Favorites: Favorites{Driver: "memory"},
        Log: Log{Level: "info", Format: "json", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 14},
    }
}

// Load reads a JSON or YAML config (by extension) from path. If path is empty
// the first of config.json, config.yaml, config.yml present in the working
// directory is used; no file at all means defaults. Environment variables
// override select fields, secrets in particular.
func Load(path string) (Config, error) {
    cfg := Default()
    if path == "" {
        for _, p := range []string{"config.json", "config.yaml", "config.yml"} {
            if _, err := os.Stat(p); err == nil { path = p; break }
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := decode(path, b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    if err := cfg.Validate(); err != nil { return cfg, err }
    return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
    switch strings.ToLower(filepath.Ext(path)) {
    case ".yaml", ".yml":
        return yaml.Unmarshal(b, cfg)
    default:
        return json.Unmarshal(b, cfg)
    }
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
    if len(c.CoinGecko.TrackedIDs) == 0 { return errors.New("config: coingecko.tracked_ids is empty") }
    if c.Cache.PrimaryTTLSeconds <= 0 || c.Cache.BackupTTLSeconds <= 0 {
        return errors.New("config: cache ttls must be positive")
    }
    if c.Cache.BackupTTLSeconds < c.Cache.PrimaryTTLSeconds {
        return fmt.Errorf("config: backup ttl %ds shorter than primary ttl %ds", c.Cache.BackupTTLSeconds, c.Cache.PrimaryTTLSeconds)
    }
    switch c.Favorites.Driver {
    case "memory":
    case "sqlite":
        if c.Favorites.DSN == "" { return errors.New("config: favorites.dsn required for sqlite driver") }
    default:
        return fmt.Errorf("config: unknown favorites driver %q", c.Favorites.Driver)
    }
    return nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Server.RequestTimeoutSec = x }
    }
    if v := os.Getenv("CORS_ORIGIN"); v != "" { cfg.Server.CORSOrigin = v }

    if v := os.Getenv("COINGECKO_ENDPOINT"); v != "" { cfg.CoinGecko.Endpoint = v }
    if v := os.Getenv("COINGECKO_API_KEY"); v != "" { cfg.CoinGecko.APIKey = v }
    if v := os.Getenv("COINGECKO_CURRENCY"); v != "" { cfg.CoinGecko.Currency = strings.ToLower(v) }
    if v := os.Getenv("COINGECKO_TRACKED_IDS"); v != "" { cfg.CoinGecko.TrackedIDs = splitCSV(v) }
    if v := os.Getenv("COINGECKO_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.CoinGecko.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("COINGECKO_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.CoinGecko.Burst = x }
    }

    if v := os.Getenv("CACHE_PRIMARY_TTL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Cache.PrimaryTTLSeconds = x }
    }
    if v := os.Getenv("CACHE_BACKUP_TTL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Cache.BackupTTLSeconds = x }
    }

    if v := os.Getenv("FAVORITES_DRIVER"); v != "" { cfg.Favorites.Driver = strings.ToLower(v) }
    if v := os.Getenv("FAVORITES_DSN"); v != "" { cfg.Favorites.DSN = v }

    if v := os.Getenv("JWT_SECRET"); v != "" { cfg.Auth.JWTSecret = v }

    if v := os.Getenv("LOG_LEVEL"); v != "" { cfg.Log.Level = v }
    if v := os.Getenv("LOG_FORMAT"); v != "" { cfg.Log.Format = v }
    if v := os.Getenv("LOG_FILE"); v != "" { cfg.Log.File = v }
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
