package market

import "marketwatch/internal/provider"

// Outcome classifies how a coordinator result was produced.
type Outcome int

const (
    // OutcomeFresh is live or primary-cache data.
    OutcomeFresh Outcome = iota
    // OutcomeFallback is stale data from the backup tier, served because the
    // upstream was throttled or failing.
    OutcomeFallback
    // OutcomeNotFound means the upstream definitively has no such instrument.
    OutcomeNotFound
    // OutcomeFailed means the upstream was unavailable and no backup existed.
    OutcomeFailed
)

func (o Outcome) String() string {
    switch o {
    case OutcomeFresh:
        return "fresh"
    case OutcomeFallback:
        return "fallback"
    case OutcomeNotFound:
        return "not_found"
    case OutcomeFailed:
        return "failed"
    default:
        return "unknown"
    }
}

// Result is what every coordinator read returns. Quotes is never nil.
// Err carries the upstream error behind a Fallback or Failed outcome.
type Result struct {
    Quotes  []provider.Quote
    Outcome Outcome
    Err     error
}

// WasFallback reports whether the caller should be told the data is not
// live. Failed results count: the upstream was unavailable either way.
func (r Result) WasFallback() bool {
    return r.Outcome == OutcomeFallback || r.Outcome == OutcomeFailed
}

// Quote returns the single quote of a detail result.
func (r Result) Quote() (provider.Quote, bool) {
    if len(r.Quotes) == 0 { return provider.Quote{}, false }
    return r.Quotes[0], true
}
