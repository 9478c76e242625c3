package facade_test

import (
	"context"
	"testing"
	"time"

	"optionx/internal/adapter/demo"
	"optionx/internal/domain"
	"optionx/internal/eventhub"
	"optionx/internal/facade"
	"optionx/internal/queue"
	"optionx/internal/scheduler"
)

// newTestFacade строит Facade поверх demo-адаптера с одним заранее
// заведённым символом/балансом - минимальный набор, которого достаточно
// ValidateRequest, чтобы допустить сделку.
func newTestFacade(t *testing.T, cfg queue.Config) (*facade.Facade, *demo.Adapter) {
	t.Helper()

	pa := demo.New()
	pa.SetBalance(domain.AccountDemo, domain.CurrencyUSD, 1000)
	pa.SetSymbol(domain.SymbolInfo{
		Symbol:         "EURUSD",
		Enabled:        true,
		MinAmount:      1,
		MaxAmount:      500,
		MinRefund:      0,
		MaxRefund:      100,
		MinDuration:    30,
		MaxDuration:    300,
		MinPayout:      0,
		SupportedTypes: []domain.OptionType{domain.OptionSprint},
	}, 80)

	hub := eventhub.New(16, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sched := scheduler.New(ctx, nil)

	f := facade.New(pa, hub, sched, cfg, nil)
	if err := f.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = f.Shutdown(time.Now().UnixMilli()) })

	return f, pa
}

// TestPlaceTradeOpensSuccessfully проверяет happy path: заявка проходит
// admission control, facade открывает её через адаптер (OPEN_SUCCESS), и
// проход закрытия в том же Process переводит её в IN_PROGRESS.
func TestPlaceTradeOpensSuccessfully(t *testing.T) {
	f, _ := newTestFacade(t, queue.Config{OrderIntervalMS: 0, MaxTrades: 0})

	req := &domain.TradeRequest{
		Symbol:      "EURUSD",
		OptionType:  domain.OptionSprint,
		OrderType:   domain.OrderBuy,
		AccountType: domain.AccountDemo,
		Currency:    domain.CurrencyUSD,
		Amount:      10,
		Duration:    60,
	}

	result := f.PlaceTrade(req, nil)
	if result == nil {
		t.Fatal("PlaceTrade returned nil result")
	}

	f.Process(time.Now().UnixMilli())

	if result.TradeState != domain.StateInProgress {
		t.Fatalf("got trade state %v, want InProgress", result.TradeState)
	}
	if result.OptionID == 0 {
		t.Error("expected a non-zero option id after a successful open")
	}
}

// TestPlaceTradeRejectsUnknownSymbol проверяет, что неизвестный символ
// отклоняется на этапе допуска и никогда не доходит до адаптера.
func TestPlaceTradeRejectsUnknownSymbol(t *testing.T) {
	f, pa := newTestFacade(t, queue.Config{OrderIntervalMS: 0})

	req := &domain.TradeRequest{
		Symbol:      "GBPJPY",
		OptionType:  domain.OptionSprint,
		OrderType:   domain.OrderBuy,
		AccountType: domain.AccountDemo,
		Currency:    domain.CurrencyUSD,
		Amount:      10,
		Duration:    60,
	}

	result := f.PlaceTrade(req, nil)
	if result == nil {
		t.Fatal("PlaceTrade returned nil result")
	}

	f.Process(time.Now().UnixMilli())

	if result.TradeState == domain.StateOpenSuccess {
		t.Fatal("expected admission to reject an unknown symbol")
	}
	_ = pa
}
