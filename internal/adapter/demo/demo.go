// Package demo implements a deterministic, in-memory PlatformAdapter used
// by integration tests and local development - the reference adapter
// equivalent of original_source's intrade_bar platform binding, stripped
// down to synthetic data instead of a real network client.
package demo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"optionx/internal/adapter"
	"optionx/internal/adapter/wsfeed"
	"optionx/internal/domain"
)

// Adapter is a fake PlatformAdapter with deterministic, caller-controlled
// balances, symbols and ticks. Safe for concurrent use.
type Adapter struct {
	connected int32

	mu        sync.RWMutex
	balances  map[balanceKey]float64
	symbols   map[string]symbolEntry
	responseTimeoutSec int64

	subMu       sync.Mutex
	subscribers map[int]func(domain.Tick)
	nextSubID   int

	placeErr error
	openPrice float64
	optionIDSeq int64

	feed *wsfeed.Client
}

type balanceKey struct {
	account  domain.AccountType
	currency domain.CurrencyType
}

type symbolEntry struct {
	info   domain.SymbolInfo
	payout float64
}

// New creates a disconnected demo adapter with a 30-second response
// timeout by default.
func New() *Adapter {
	return &Adapter{
		balances:            make(map[balanceKey]float64),
		symbols:              make(map[string]symbolEntry),
		responseTimeoutSec:  30,
		subscribers:          make(map[int]func(domain.Tick)),
		openPrice:            1.0,
	}
}

func (a *Adapter) PlatformType() domain.PlatformType { return domain.PlatformDemo }

func (a *Adapter) Connect(_ context.Context) error {
	atomic.StoreInt32(&a.connected, 1)
	return nil
}

func (a *Adapter) Disconnect() error {
	atomic.StoreInt32(&a.connected, 0)
	return nil
}

func (a *Adapter) Connected() bool {
	return atomic.LoadInt32(&a.connected) != 0
}

// SetBalance is a test/setup hook to seed a deterministic balance.
func (a *Adapter) SetBalance(account domain.AccountType, currency domain.CurrencyType, amount float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[balanceKey{account, currency}] = amount
}

func (a *Adapter) Balance(account domain.AccountType, currency domain.CurrencyType) (float64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.balances[balanceKey{account, currency}]
	if !ok {
		return 0, errors.New("demo: no balance seeded for account/currency")
	}
	return v, nil
}

// SetSymbol is a test/setup hook to seed a deterministic symbol.
func (a *Adapter) SetSymbol(info domain.SymbolInfo, payoutPercent float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.symbols[info.Symbol] = symbolEntry{info: info, payout: payoutPercent}
}

func (a *Adapter) Symbol(symbol string) (domain.SymbolInfo, float64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	entry, ok := a.symbols[symbol]
	if !ok {
		return domain.SymbolInfo{}, 0, errors.New("demo: unknown symbol")
	}
	return entry.info, entry.payout, nil
}

func (a *Adapter) ResponseTimeoutSec() int64 {
	return atomic.LoadInt64(&a.responseTimeoutSec)
}

// SetResponseTimeoutSec overrides the default response timeout.
func (a *Adapter) SetResponseTimeoutSec(sec int64) {
	atomic.StoreInt64(&a.responseTimeoutSec, sec)
}

// SetPlaceError forces the next PlaceTrade call to fail - used to drive
// OPEN_ERROR paths in tests.
func (a *Adapter) SetPlaceError(err error) {
	a.mu.Lock()
	a.placeErr = err
	a.mu.Unlock()
}

// PlaceTrade simulates opening a trade with an incrementing option id at a
// fixed open price, unless a forced error was installed via SetPlaceError.
func (a *Adapter) PlaceTrade(_ context.Context, req *domain.TradeRequest, result *domain.TradeResult) error {
	a.mu.Lock()
	forced := a.placeErr
	a.placeErr = nil
	a.mu.Unlock()
	if forced != nil {
		return &adapter.Error{Platform: "demo", Operation: "place_trade", Err: forced}
	}

	id := atomic.AddInt64(&a.optionIDSeq, 1)
	result.OptionID = id
	result.OpenPrice = a.openPrice
	result.OpenDateMS = time.Now().UnixMilli()
	result.TradeState = domain.StateOpenSuccess
	result.LiveState = domain.StateOpenSuccess
	return nil
}

// PushTick delivers a synthetic tick to every subscriber - used by tests
// to drive the close-price/outcome logic deterministically.
func (a *Adapter) PushTick(tick domain.Tick) {
	a.subMu.Lock()
	handlers := make([]func(domain.Tick), 0, len(a.subscribers))
	for _, h := range a.subscribers {
		handlers = append(handlers, h)
	}
	a.subMu.Unlock()
	for _, h := range handlers {
		h(tick)
	}
}

func (a *Adapter) SubscribeTicks(handler func(domain.Tick)) (func(), error) {
	a.subMu.Lock()
	id := a.nextSubID
	a.nextSubID++
	a.subscribers[id] = handler
	a.subMu.Unlock()

	return func() {
		a.subMu.Lock()
		delete(a.subscribers, id)
		a.subMu.Unlock()
	}, nil
}

// UseWebsocketFeed points the adapter at a real tick-streaming websocket
// endpoint: incoming ticks are decoded and fanned out exactly like
// PushTick, so callers (the facade's SubscribeTicks handler) can't tell
// the difference between a test-driven tick and a live one. Run blocks
// until ctx is canceled, so call it in its own goroutine.
func (a *Adapter) UseWebsocketFeed(ctx context.Context, url string, log *zap.Logger) error {
	a.feed = wsfeed.New(url, 2*time.Second, log)
	return a.feed.Run(ctx, a.PushTick)
}

func (a *Adapter) Close() error {
	atomic.StoreInt32(&a.connected, 0)
	if a.feed != nil {
		a.feed.Close()
	}
	return nil
}

var _ adapter.PlatformAdapter = (*Adapter)(nil)
