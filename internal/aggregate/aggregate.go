package aggregate

import (
    "sort"
    "strings"

    "marketwatch/internal/provider"
)

// FindByKey returns the quote whose id matches key, or failing that the
// first whose symbol matches. Matching is case-insensitive.
func FindByKey(quotes []provider.Quote, key string) (provider.Quote, bool) {
    k := strings.ToLower(strings.TrimSpace(key))
    if k == "" { return provider.Quote{}, false }
    sym := -1
    for i, q := range quotes {
        if strings.ToLower(q.ID) == k { return q, true }
        if sym < 0 && strings.ToLower(q.Symbol) == k { sym = i }
    }
    if sym >= 0 { return quotes[sym], true }
    return provider.Quote{}, false
}

// Match returns the quotes whose name, symbol or id contains query,
// case-insensitively, preserving input order.
func Match(quotes []provider.Quote, query string) []provider.Quote {
    q := strings.ToLower(strings.TrimSpace(query))
    if q == "" { return nil }
    var out []provider.Quote
    for _, it := range quotes {
        if strings.Contains(strings.ToLower(it.Name), q) ||
            strings.Contains(strings.ToLower(it.Symbol), q) ||
            strings.Contains(strings.ToLower(it.ID), q) {
            out = append(out, it)
        }
    }
    return out
}

// MarkFavorites returns a copy of quotes with IsFavorite set for every id in
// favorites. The input is never modified, so cached slices stay clean.
func MarkFavorites(quotes []provider.Quote, favorites []string) []provider.Quote {
    if quotes == nil { return nil }
    set := make(map[string]struct{}, len(favorites))
    for _, id := range favorites { set[strings.ToLower(id)] = struct{}{} }
    out := make([]provider.Quote, len(quotes))
    for i, q := range quotes {
        _, fav := set[strings.ToLower(q.ID)]
        q.IsFavorite = fav
        out[i] = q
    }
    return out
}

// Movers holds the best and worst performers of a quote set.
type Movers struct {
    Top   []provider.Quote `json:"top"`
    Worst []provider.Quote `json:"worst"`
}

// TopMovers ranks quotes by ChangePercent. Top is best-first, Worst is
// worst-first; ties keep input order. A quote can appear in both lists when
// the set holds fewer than 2n quotes.
func TopMovers(quotes []provider.Quote, n int) Movers {
    if n <= 0 || len(quotes) == 0 { return Movers{Top: []provider.Quote{}, Worst: []provider.Quote{}} }
    sorted := make([]provider.Quote, len(quotes))
    copy(sorted, quotes)
    sort.SliceStable(sorted, func(i, j int) bool {
        return sorted[i].ChangePercent.GreaterThan(sorted[j].ChangePercent)
    })
    if n > len(sorted) { n = len(sorted) }
    top := append([]provider.Quote(nil), sorted[:n]...)
    worst := make([]provider.Quote, 0, n)
    for i := len(sorted) - 1; i >= len(sorted)-n; i-- {
        worst = append(worst, sorted[i])
    }
    return Movers{Top: top, Worst: worst}
}
