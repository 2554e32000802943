package coingecko

import (
	"context"
	"net/url"
)

// SearchResult is the coin section of /search.
type SearchResult struct {
	Coins []CoinRef `json:"coins"`
}

// Search runs a free-text coin search.
func (c *Client) Search(ctx context.Context, query string, opts ...ClientOption) (SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)

	var res SearchResult
	if err := c.get(ctx, "/search", params, &res, opts...); err != nil {
		return SearchResult{}, err
	}
	return res, nil
}
