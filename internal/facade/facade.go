// Package facade composes the account-info provider, trade-state
// manager, trade queue, event hub and a platform adapter into the single
// entry point external callers use - the Go translation of
// original_source BaseTradeExecutionModule.hpp.
package facade

import (
	"context"
	"time"

	"go.uber.org/zap"

	"optionx/internal/accountinfo"
	"optionx/internal/adapter"
	"optionx/internal/domain"
	"optionx/internal/eventhub"
	"optionx/internal/metrics"
	"optionx/internal/queue"
	"optionx/internal/scheduler"
	"optionx/internal/tradestate"
	"optionx/pkg/retry"
	"optionx/pkg/utils"
)

// Facade is the public surface of the trade execution engine for one
// platform adapter.
type Facade struct {
	adapter  adapter.PlatformAdapter
	info     *accountinfo.Provider
	state    *tradestate.Manager
	queueMgr *queue.Manager
	hub      *eventhub.Hub
	sched    *scheduler.Scheduler
	log      *zap.Logger

	unsubscribeTicks func()
}

// New wires a Facade around a concrete adapter. cfg carries the queue's
// admission-control parameters (see SPEC_FULL.md §A.3 QueueConfig).
func New(pa adapter.PlatformAdapter, hub *eventhub.Hub, sched *scheduler.Scheduler, cfg queue.Config, log *zap.Logger) *Facade {
	if log == nil {
		log = zap.NewNop()
	}
	info := accountinfo.New(pa)
	state := tradestate.New(info, log)
	qm := queue.New(state, info, hub, cfg, log)

	f := &Facade{
		adapter:  pa,
		info:     info,
		state:    state,
		queueMgr: qm,
		hub:      hub,
		sched:    sched,
		log:      log,
	}
	f.wireHandlers()
	return f
}

// wireHandlers subscribes to the hub events the facade itself must act
// on: a freshly admitted trade must actually be sent to the platform, and
// a disconnect request must force-close everything.
func (f *Facade) wireHandlers() {
	f.hub.Subscribe(eventhub.TradeRequestEvent{}.EventName(), func(e eventhub.Event) {
		ev := e.(eventhub.TradeRequestEvent)
		f.executeOpen(ev.Request, ev.Result)
	})
	f.hub.Subscribe(eventhub.DisconnectRequestEvent{}.EventName(), func(e eventhub.Event) {
		f.queueMgr.HandleDisconnect()
	})
}

// executeOpen sends a newly admitted trade to the platform adapter. It
// mutates result in place - the same pointer the queue holds in its open
// list - so the next queue processing pass observes OPEN_SUCCESS/
// OPEN_ERROR without any extra plumbing. Transient adapter errors are
// retried with NetworkConfig before the trade is given up on - opening a
// trade is exactly the kind of critical operation original_source's
// retry discipline targets.
func (f *Facade) executeOpen(req *domain.TradeRequest, result *domain.TradeResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := retry.Do(ctx, func() error {
		return f.adapter.PlaceTrade(ctx, req, result)
	}, retry.NetworkConfig())

	if err != nil {
		f.state.FinalizeWithError(result, req, domain.ErrInvalidRequest, domain.StateOpenError, result.SendDateMS, err.Error())
		f.log.Warn("trade open failed", zap.Int64("trade_id", result.TradeID), zap.Error(err))
	}
}

// Initialize connects the adapter and subscribes to its tick stream.
// Equivalent to BaseTradeExecutionModule::initialize, generalized from a
// no-op into actually bringing the adapter online (the original deferred
// that to platform-specific subclasses).
func (f *Facade) Initialize(ctx context.Context) error {
	if err := f.adapter.Connect(ctx); err != nil {
		return err
	}
	f.queueMgr.SetConnected(f.adapter.Connected())
	metrics.PlatformConnectionStatus.WithLabelValues(f.adapter.PlatformType().String()).Set(connectedMetricValue(f.adapter.Connected()))

	unsub, err := f.adapter.SubscribeTicks(func(tick domain.Tick) {
		f.queueMgr.HandlePriceUpdate(tick)
		f.hub.NotifyAsync(eventhub.PriceUpdateEvent{Tick: tick})
	})
	if err != nil {
		return err
	}
	f.unsubscribeTicks = unsub
	return nil
}

// PlaceTrade enqueues a new trade request - delegates to the queue,
// matching BaseTradeExecutionModule::place_trade. A malformed symbol or
// non-positive amount is rejected here, before it ever reaches the
// queue's admission control - cheaper than a symbol-table lookup for
// input that can't possibly be valid. Well-formed requests first refresh
// the account-info cache for their symbol and account/currency from the
// adapter; a failed lookup leaves the entry absent and admission rejects
// the trade.
func (f *Facade) PlaceTrade(req *domain.TradeRequest, preprocess func(*domain.TradeRequest, *domain.TradeResult) bool) *domain.TradeResult {
	if err := utils.ValidateSymbol(req.Symbol); err != nil {
		return f.rejectMalformed(req, domain.ErrInvalidSymbol, err)
	}
	if err := utils.ValidateAmount(req.Amount); err != nil {
		return f.rejectMalformed(req, domain.ErrInvalidRequest, err)
	}
	_ = f.info.RefreshSymbol(req.Symbol)
	_ = f.info.RefreshBalance(req.AccountType, req.Currency)
	return f.queueMgr.AddTrade(req, f.adapter.PlatformType(), preprocess)
}

func (f *Facade) rejectMalformed(req *domain.TradeRequest, code domain.TradeErrorCode, err error) *domain.TradeResult {
	result := req.NewTradeResult()
	result.ErrorCode = code
	result.ErrorDesc = err.Error()
	result.TradeState = domain.StateOpenError
	return result
}

// Process drives one tick of queue processing: admission, closing, then
// finalizing - matches BaseTradeExecutionModule::process calling
// m_trade_queue.process(). Intended to be registered as a Periodic
// scheduler task.
func (f *Facade) Process(nowMS int64) {
	f.queueMgr.ProcessPendingTransactions(nowMS)
	f.queueMgr.ProcessClosingTransactions(nowMS)
	f.queueMgr.ProcessFinalizingTransactions()
	f.hub.Process()
}

// OnTradeResult registers the aggregate callback invoked after every
// trade state change.
func (f *Facade) OnTradeResult(cb func(*domain.TradeRequest, *domain.TradeResult)) {
	f.queueMgr.OnTradeResult(cb)
}

// AccountInfo exposes the underlying provider for read-only queries
// (diagnostics API, tests).
func (f *Facade) AccountInfo() *accountinfo.Provider { return f.info }

// Queue exposes the underlying queue manager for diagnostics.
func (f *Facade) Queue() *queue.Manager { return f.queueMgr }

// Shutdown force-closes every trade and disconnects the adapter -
// matches BaseTradeExecutionModule::shutdown.
func (f *Facade) Shutdown(nowMS int64) error {
	if f.unsubscribeTicks != nil {
		f.unsubscribeTicks()
	}
	f.queueMgr.FinalizeAllTrades(nowMS)
	f.queueMgr.SetConnected(false)
	metrics.PlatformConnectionStatus.WithLabelValues(f.adapter.PlatformType().String()).Set(0)
	if err := f.adapter.Disconnect(); err != nil {
		return err
	}
	return f.adapter.Close()
}

func connectedMetricValue(connected bool) float64 {
	if connected {
		return 1
	}
	return 0
}
