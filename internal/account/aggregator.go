package account

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"lighterdash/internal/logger"
)

const (
	ResourceSummary   = "summary"
	ResourcePositions = "positions"
	ResourceOrders    = "orders"
)

// Source is the engine API surface the aggregator reads from.
type Source interface {
	AccountSummary(ctx context.Context) (Summary, error)
	Positions(ctx context.Context) ([]Position, error)
	Orders(ctx context.Context) ([]Order, error)
}

// Aggregator fetches summary, positions and orders concurrently.
type Aggregator struct {
	src Source
}

func NewAggregator(src Source) (*Aggregator, error) {
	if src == nil {
		return nil, fmt.Errorf("account source is required")
	}
	return &Aggregator{src: src}, nil
}

// Fetch succeeds only when all three requests do. With several failures the
// reported error follows the order summary, positions, orders.
func (a *Aggregator) Fetch(ctx context.Context) (Snapshot, error) {
	var (
		snap Snapshot
		errs [3]error
		g    errgroup.Group
	)
	g.Go(func() error {
		s, err := a.src.AccountSummary(ctx)
		if err != nil {
			errs[0] = NewFetchError(ResourceSummary, err)
			return nil
		}
		snap.Summary = s
		return nil
	})
	g.Go(func() error {
		p, err := a.src.Positions(ctx)
		if err != nil {
			errs[1] = NewFetchError(ResourcePositions, err)
			return nil
		}
		snap.Positions = p
		return nil
	})
	g.Go(func() error {
		o, err := a.src.Orders(ctx)
		if err != nil {
			errs[2] = NewFetchError(ResourceOrders, err)
			return nil
		}
		snap.Orders = o
		return nil
	})
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			logger.Debugf("account fetch failed: %v", err)
			return Snapshot{}, err
		}
	}
	if snap.Positions == nil {
		snap.Positions = []Position{}
	}
	if snap.Orders == nil {
		snap.Orders = []Order{}
	}
	return snap, nil
}
