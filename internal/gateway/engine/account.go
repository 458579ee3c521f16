package engine

import (
	"context"

	"lighterdash/internal/account"
	"lighterdash/internal/market"
)

var (
	_ account.Source = (*Client)(nil)
	_ market.Source  = (*Client)(nil)
)

func (c *Client) AccountSummary(ctx context.Context) (account.Summary, error) {
	body, err := c.get(ctx, PathAccountSummary)
	if err != nil {
		return account.Summary{}, err
	}
	doc, err := parseBody(PathAccountSummary, "summary.json", body)
	if err != nil {
		return account.Summary{}, err
	}
	return decodeSummary(doc), nil
}

// Positions returns an empty slice when the engine omits the positions key.
func (c *Client) Positions(ctx context.Context) ([]account.Position, error) {
	body, err := c.get(ctx, PathPositions)
	if err != nil {
		return nil, err
	}
	doc, err := parseBody(PathPositions, "positions.json", body)
	if err != nil {
		return nil, err
	}
	return decodePositions(doc), nil
}

func (c *Client) Orders(ctx context.Context) ([]account.Order, error) {
	body, err := c.get(ctx, PathOrders)
	if err != nil {
		return nil, err
	}
	doc, err := parseBody(PathOrders, "orders.json", body)
	if err != nil {
		return nil, err
	}
	return decodeOrders(doc), nil
}

func (c *Client) Markets(ctx context.Context) ([]market.Row, error) {
	body, err := c.get(ctx, PathMarkets)
	if err != nil {
		return nil, err
	}
	doc, err := parseBody(PathMarkets, "markets.json", body)
	if err != nil {
		return nil, err
	}
	return decodeMarkets(doc.Array()), nil
}
