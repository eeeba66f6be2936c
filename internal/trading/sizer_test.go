package trading

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"news-trader/internal/logger"
	"news-trader/internal/types"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithConfig(logger.LogConfig{Level: "ERROR", Format: "text"})
	os.Exit(m.Run())
}

type fakeBroker struct {
	cash       string
	accountErr error
	submitErr  map[string]error
	submitted  []types.Order
	liquidated int
}

func (b *fakeBroker) Account(ctx context.Context) (types.Account, error) {
	if b.accountErr != nil {
		return types.Account{}, b.accountErr
	}
	return types.Account{Cash: b.cash}, nil
}

func (b *fakeBroker) SubmitOrder(ctx context.Context, order types.Order) (string, error) {
	if err := b.submitErr[order.Symbol]; err != nil {
		return "", err
	}
	b.submitted = append(b.submitted, order)
	return fmt.Sprintf("order-%d", len(b.submitted)), nil
}

func (b *fakeBroker) LiquidateAll(ctx context.Context) error {
	b.liquidated++
	return nil
}

func TestBuildOrdersEqualSplit(t *testing.T) {
	broker := &fakeBroker{cash: "29555"}
	sizer := NewSizer(broker, DefaultOptions())

	orders, err := sizer.BuildOrders(context.Background(), []string{"AAPL", "MSFT", "WMT"})
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	for _, order := range orders {
		if order.Notional != "1518.33" {
			t.Errorf("expected notional 1518.33 for %s, got %s", order.Symbol, order.Notional)
		}
		if order.Side != types.SideBuy || order.TimeInForce != types.TIFDay {
			t.Errorf("expected BUY/DAY order, got side=%s tif=%s", order.Side, order.TimeInForce)
		}
	}
}

func TestBuildOrdersDropsRemainderCents(t *testing.T) {
	// usable = 1000.00 -> 100000 cents / 6 = 16666 cents, 4 cents dropped.
	broker := &fakeBroker{cash: "26000"}
	sizer := NewSizer(broker, DefaultOptions())

	orders, err := sizer.BuildOrders(context.Background(), []string{"A", "B", "C", "D", "E", "F"})
	if err != nil {
		t.Fatal(err)
	}
	for _, order := range orders {
		if order.Notional != "166.66" {
			t.Errorf("expected notional 166.66, got %s", order.Notional)
		}
	}
}

func TestBuildOrdersRangeGuard(t *testing.T) {
	cases := []struct {
		cash    string
		wantErr bool
	}{
		{"25000", true},     // usable exactly zero
		{"24000", true},     // usable negative
		{"25000.01", false}, // smallest positive usable
		{"32000", false},    // usable exactly at the cap
		{"32000.01", true},  // usable above the cap
	}
	for _, tc := range cases {
		broker := &fakeBroker{cash: tc.cash}
		sizer := NewSizer(broker, DefaultOptions())

		_, err := sizer.BuildOrders(context.Background(), []string{"AAPL"})
		if tc.wantErr {
			if !errors.Is(err, ErrOutOfRange) {
				t.Errorf("cash %s: expected ErrOutOfRange, got %v", tc.cash, err)
			}
		} else if err != nil {
			t.Errorf("cash %s: expected success, got %v", tc.cash, err)
		}
	}
}

func TestBuildOrdersEmptySymbols(t *testing.T) {
	broker := &fakeBroker{cash: "29555"}
	sizer := NewSizer(broker, DefaultOptions())

	orders, err := sizer.BuildOrders(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error for empty symbol set, got %v", err)
	}
	if orders != nil {
		t.Errorf("expected no orders, got %v", orders)
	}
}

func TestBuildOrdersErrorTaxonomy(t *testing.T) {
	sizer := NewSizer(&fakeBroker{accountErr: errors.New("401 unauthorized")}, DefaultOptions())
	if _, err := sizer.BuildOrders(context.Background(), []string{"AAPL"}); !errors.Is(err, ErrNoAccount) {
		t.Errorf("expected ErrNoAccount, got %v", err)
	}

	sizer = NewSizer(&fakeBroker{cash: ""}, DefaultOptions())
	if _, err := sizer.BuildOrders(context.Background(), []string{"AAPL"}); !errors.Is(err, ErrNoCash) {
		t.Errorf("expected ErrNoCash for empty cash, got %v", err)
	}

	sizer = NewSizer(&fakeBroker{cash: "lots"}, DefaultOptions())
	if _, err := sizer.BuildOrders(context.Background(), []string{"AAPL"}); !errors.Is(err, ErrNoCash) {
		t.Errorf("expected ErrNoCash for unparseable cash, got %v", err)
	}
}

func TestSubmitOrdersContinuesPastFailure(t *testing.T) {
	rejected := errors.New("insufficient buying power")
	broker := &fakeBroker{
		cash:      "29555",
		submitErr: map[string]error{"MSFT": rejected},
	}
	sizer := NewSizer(broker, DefaultOptions())

	orders := []types.Order{
		{Symbol: "AAPL", Side: types.SideBuy, TimeInForce: types.TIFDay, Notional: "100.00"},
		{Symbol: "MSFT", Side: types.SideBuy, TimeInForce: types.TIFDay, Notional: "100.00"},
		{Symbol: "WMT", Side: types.SideBuy, TimeInForce: types.TIFDay, Notional: "100.00"},
	}
	err := sizer.SubmitOrders(context.Background(), orders)
	if !errors.Is(err, rejected) {
		t.Errorf("expected the rejection surfaced, got %v", err)
	}
	if len(broker.submitted) != 2 {
		t.Errorf("expected 2 accepted orders despite the rejection, got %d", len(broker.submitted))
	}
}

func TestLiquidateDelegates(t *testing.T) {
	broker := &fakeBroker{}
	sizer := NewSizer(broker, DefaultOptions())

	if err := sizer.Liquidate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if broker.liquidated != 1 {
		t.Errorf("expected one liquidation call, got %d", broker.liquidated)
	}
}
