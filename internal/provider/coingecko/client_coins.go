package coingecko

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"marketwatch/internal/provider"
)

// CoinRef is a listing entry as returned by /coins/list and /search.
type CoinRef struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Coin is the subset of /coins/{id} this service reads.
type Coin struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
	MarketData *CoinMarketData `json:"market_data"`
}

// CoinMarketData holds per-currency market data for one coin.
type CoinMarketData struct {
	CurrentPrice             map[string]decimal.Decimal `json:"current_price"`
	High24h                  map[string]decimal.Decimal `json:"high_24h"`
	Low24h                   map[string]decimal.Decimal `json:"low_24h"`
	TotalVolume              map[string]decimal.Decimal `json:"total_volume"`
	PriceChange24h           decimal.Decimal            `json:"price_change_24h"`
	PriceChangePercentage24h decimal.Decimal            `json:"price_change_percentage_24h"`
	LastUpdated              *time.Time                 `json:"last_updated"`
}

// GetCoinList retrieves every listed coin. The payload is large; callers
// should cache it.
func (c *Client) GetCoinList(ctx context.Context, opts ...ClientOption) ([]CoinRef, error) {
	var coins []CoinRef
	if err := c.get(ctx, "/coins/list", nil, &coins, opts...); err != nil {
		return nil, err
	}
	return coins, nil
}

// GetCoin retrieves full market data for one coin id. An unknown id yields
// provider.ErrNotFound.
func (c *Client) GetCoin(ctx context.Context, id string, opts ...ClientOption) (Coin, error) {
	if id == "" {
		return Coin{}, provider.ErrNotFound
	}
	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("market_data", "true")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")

	var coin Coin
	if err := c.get(ctx, "/coins/"+url.PathEscape(id), params, &coin, opts...); err != nil {
		return Coin{}, err
	}
	return coin, nil
}
