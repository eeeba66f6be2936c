package trading

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"news-trader/internal/interfaces"
	"news-trader/internal/logger"
	"news-trader/internal/trace"
	"news-trader/internal/types"
)

var (
	// ErrNoAccount means the brokerage returned no usable account.
	ErrNoAccount = errors.New("account not found")
	// ErrNoCash means the account carried no cash value.
	ErrNoCash = errors.New("cash not found")
	// ErrOutOfRange means usable cash fell outside the configured safe range.
	ErrOutOfRange = errors.New("usable cash out of range")
)

// Options bounds the sizing arithmetic. Safeguard is subtracted from account
// cash before sizing; MaxUsable caps what one cycle may deploy.
type Options struct {
	SafeguardDollars int
	MaxUsableDollars int
}

// DefaultOptions returns the observed production bounds.
func DefaultOptions() Options {
	return Options{
		SafeguardDollars: 25000,
		MaxUsableDollars: 7000,
	}
}

// Sizer converts a top-symbol set into equal-notional buy orders and submits
// them through the broker.
type Sizer struct {
	broker    interfaces.Broker
	safeguard decimal.Decimal
	maxUsable decimal.Decimal
}

// NewSizer creates a sizer with explicit bounds.
func NewSizer(b interfaces.Broker, opts Options) *Sizer {
	def := DefaultOptions()
	if opts.SafeguardDollars == 0 {
		opts.SafeguardDollars = def.SafeguardDollars
	}
	if opts.MaxUsableDollars == 0 {
		opts.MaxUsableDollars = def.MaxUsableDollars
	}
	return &Sizer{
		broker:    b,
		safeguard: decimal.NewFromInt(int64(opts.SafeguardDollars)),
		maxUsable: decimal.NewFromInt(int64(opts.MaxUsableDollars)),
	}
}

// BuildOrders sizes one BUY/DAY market order per symbol from the account's
// usable cash. Remainder cents from the equal split are dropped, not
// redistributed. An empty symbol set produces no orders and no error.
func (s *Sizer) BuildOrders(ctx context.Context, symbols []string) ([]types.Order, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	account, err := s.broker.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAccount, err)
	}
	if account.Cash == "" {
		return nil, ErrNoCash
	}
	cash, err := decimal.NewFromString(account.Cash)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable cash %q", ErrNoCash, account.Cash)
	}

	usable := cash.Sub(s.safeguard)
	if usable.LessThanOrEqual(decimal.Zero) || usable.GreaterThan(s.maxUsable) {
		return nil, fmt.Errorf("%w: usable %s must be in (0, %s]", ErrOutOfRange, usable.String(), s.maxUsable.String())
	}

	usableCents := usable.Shift(2).IntPart()
	perSymbolCents := usableCents / int64(len(symbols))
	notional := decimal.New(perSymbolCents, -2)

	logger.Info(ctx, "Sizing orders", "symbols", len(symbols), "usable", usable.String(), "per_symbol", notional.StringFixed(2))

	orders := make([]types.Order, 0, len(symbols))
	for _, symbol := range symbols {
		orders = append(orders, types.Order{
			Symbol:      symbol,
			Side:        types.SideBuy,
			TimeInForce: types.TIFDay,
			Notional:    notional.StringFixed(2),
		})
	}
	return orders, nil
}

// SubmitOrders sends the sized orders to the brokerage. A single rejected
// order is logged and does not stop the remainder; the first error is
// returned after all submissions are attempted.
func (s *Sizer) SubmitOrders(ctx context.Context, orders []types.Order) error {
	ctx, span := trace.StartSpan(ctx, "submit-orders")
	defer span.End()

	var firstErr error
	for _, order := range orders {
		orderID, err := s.broker.SubmitOrder(ctx, order)
		if err != nil {
			logger.ErrorWithErr(ctx, "Order submission failed", err, "symbol", order.Symbol)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Trade(ctx, order.Symbol, order.Side, order.Notional, orderID)
	}
	return firstErr
}

// Liquidate requests cancellation of all open orders and closure of all open
// positions in one brokerage call. Failures propagate to the caller.
func (s *Sizer) Liquidate(ctx context.Context) error {
	return s.broker.LiquidateAll(ctx)
}
