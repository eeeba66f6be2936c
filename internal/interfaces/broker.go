package interfaces

import (
	"context"

	"news-trader/internal/types"
)

// Broker is the order-submission capability backing the trade sizer.
type Broker interface {
	Account(ctx context.Context) (types.Account, error)
	SubmitOrder(ctx context.Context, order types.Order) (string, error)
	// LiquidateAll cancels all open orders and closes all open positions in
	// one call.
	LiquidateAll(ctx context.Context) error
}
