package broker

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"news-trader/internal/interfaces"
	"news-trader/internal/logger"
	"news-trader/internal/types"
)

// Params configures the Alpaca connection. DRY_RUN mode logs orders instead
// of submitting them.
type Params struct {
	Mode    string
	BaseURL string
}

// Alpaca implements the Broker interface over the Alpaca trading API.
type Alpaca struct {
	client *alpaca.Client
	mode   string
}

// NewAlpaca creates an Alpaca-backed broker. Credentials come from
// ALPACA_API_KEY and ALPACA_SECRET_KEY.
func NewAlpaca(p Params) (*Alpaca, error) {
	apiKey := os.Getenv("ALPACA_API_KEY")
	apiSecret := os.Getenv("ALPACA_SECRET_KEY")
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("ALPACA_API_KEY and ALPACA_SECRET_KEY must be set")
	}

	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   p.BaseURL,
	})

	return &Alpaca{client: client, mode: p.Mode}, nil
}

func (a *Alpaca) Account(ctx context.Context) (types.Account, error) {
	acct, err := a.client.GetAccount()
	if err != nil {
		return types.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	if acct == nil {
		return types.Account{}, errors.New("account not found")
	}
	return types.Account{Cash: acct.Cash.String()}, nil
}

func (a *Alpaca) SubmitOrder(ctx context.Context, order types.Order) (string, error) {
	if a.mode == "DRY_RUN" {
		logger.Info(ctx, "DRY_RUN: order not submitted", "symbol", order.Symbol, "notional", order.Notional)
		return "dry-run", nil
	}

	notional, err := decimal.NewFromString(order.Notional)
	if err != nil {
		return "", fmt.Errorf("invalid notional %q: %w", order.Notional, err)
	}

	placed, err := a.client.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      order.Symbol,
		Notional:    &notional,
		Side:        alpaca.Side(order.Side),
		Type:        alpaca.Market,
		TimeInForce: alpaca.TimeInForce(order.TimeInForce),
	})
	if err != nil {
		return "", fmt.Errorf("failed to place order for %s: %w", order.Symbol, err)
	}

	return placed.ID, nil
}

// LiquidateAll closes every open position and cancels every open order in
// one brokerage call. Errors propagate as-is; there is no retry.
func (a *Alpaca) LiquidateAll(ctx context.Context) error {
	if a.mode == "DRY_RUN" {
		logger.Info(ctx, "DRY_RUN: liquidation not submitted")
		return nil
	}

	closing, err := a.client.CloseAllPositions(alpaca.CloseAllPositionsRequest{CancelOrders: true})
	if err != nil {
		return fmt.Errorf("failed to liquidate positions: %w", err)
	}
	logger.Info(ctx, "Liquidation submitted", "closing_orders", len(closing))
	return nil
}

var _ interfaces.Broker = (*Alpaca)(nil)
