package feed

import (
	"context"

	"posttrade/internal/model"
)

// FillFeed defines the standard interface for all live fill sources.
type FillFeed interface {
	Name() string
	Collect(ctx context.Context, fills chan<- model.Trade) error
}

// Drain runs f until it stops and returns the fills in arrival order.
func Drain(ctx context.Context, f FillFeed) ([]model.Trade, error) {
	fills := make(chan model.Trade)
	errCh := make(chan error, 1)
	go func() {
		defer close(fills)
		errCh <- f.Collect(ctx, fills)
	}()

	var trades []model.Trade
	for t := range fills {
		trades = append(trades, t)
	}
	return trades, <-errCh
}
