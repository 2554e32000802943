package market

import (
    "github.com/prometheus/client_golang/prometheus"
)

// Metrics are the coordinator's Prometheus collectors. A nil *Metrics is a
// valid no-op.
type Metrics struct {
    CacheHits      *prometheus.CounterVec
    UpstreamCalls  *prometheus.CounterVec
    Results        *prometheus.CounterVec
    RateLimitHits  prometheus.Counter
    CacheClears    prometheus.Counter
    CooldownActive prometheus.Gauge
}

// NewMetrics builds the collectors and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
    m := &Metrics{
        CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "marketwatch",
            Name:      "cache_hits_total",
            Help:      "Cache hits by keyspace and tier.",
        }, []string{"keyspace", "tier"}),
        UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "marketwatch",
            Name:      "upstream_calls_total",
            Help:      "Upstream gateway calls by operation and result.",
        }, []string{"op", "result"}),
        Results: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "marketwatch",
            Name:      "results_total",
            Help:      "Coordinator results by operation and outcome.",
        }, []string{"op", "outcome"}),
        RateLimitHits: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "marketwatch",
            Name:      "rate_limit_hits_total",
            Help:      "Upstream 429 responses that armed the cooldown.",
        }),
        CacheClears: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "marketwatch",
            Name:      "cache_clears_total",
            Help:      "Manual cache flushes.",
        }),
        CooldownActive: prometheus.NewGauge(prometheus.GaugeOpts{
            Namespace: "marketwatch",
            Name:      "cooldown_active",
            Help:      "1 while upstream calls are suspended after a rate limit.",
        }),
    }
    if reg != nil {
        reg.MustRegister(m.CacheHits, m.UpstreamCalls, m.Results, m.RateLimitHits, m.CacheClears, m.CooldownActive)
    }
    return m
}

func (m *Metrics) hit(keyspace, tier string) {
    if m == nil { return }
    m.CacheHits.WithLabelValues(keyspace, tier).Inc()
}

func (m *Metrics) upstream(op, result string) {
    if m == nil { return }
    m.UpstreamCalls.WithLabelValues(op, result).Inc()
}

func (m *Metrics) result(op string, o Outcome) {
    if m == nil { return }
    m.Results.WithLabelValues(op, o.String()).Inc()
}

func (m *Metrics) rateLimited() {
    if m == nil { return }
    m.RateLimitHits.Inc()
}

func (m *Metrics) cleared() {
    if m == nil { return }
    m.CacheClears.Inc()
}

func (m *Metrics) cooling(active bool) {
    if m == nil { return }
    if active { m.CooldownActive.Set(1); return }
    m.CooldownActive.Set(0)
}
