package coingecko

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Market is one row of /coins/markets. Numeric fields the API returns as
// null decode to zero.
type Market struct {
	ID                       string          `json:"id"`
	Symbol                   string          `json:"symbol"`
	Name                     string          `json:"name"`
	CurrentPrice             decimal.Decimal `json:"current_price"`
	PriceChange24h           decimal.Decimal `json:"price_change_24h"`
	PriceChangePercentage24h decimal.Decimal `json:"price_change_percentage_24h"`
	High24h                  decimal.Decimal `json:"high_24h"`
	Low24h                   decimal.Decimal `json:"low_24h"`
	TotalVolume              decimal.Decimal `json:"total_volume"`
	LastUpdated              *time.Time      `json:"last_updated"`
}

// GetMarkets retrieves market snapshots for the given coin ids, ordered by
// market cap.
func (c *Client) GetMarkets(ctx context.Context, currency string, ids []string, opts ...ClientOption) ([]Market, error) {
	params := url.Values{}
	params.Set("vs_currency", strings.ToLower(currency))
	params.Set("ids", strings.Join(ids, ","))
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(max(len(ids), 1)))
	params.Set("page", "1")
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h")

	var markets []Market
	if err := c.get(ctx, "/coins/markets", params, &markets, opts...); err != nil {
		return nil, err
	}
	return markets, nil
}
