// Package queue implements the trade admission and lifecycle queue - the
// Go translation of original_source
// BaseTradeExecutionModule/TradeQueueManager.hpp. It owns the pending
// (not yet admitted) and open (admitted, live) transaction lists and
// drives every state transition a trade goes through after
// internal/tradestate validates it.
package queue

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"optionx/internal/accountinfo"
	"optionx/internal/domain"
	"optionx/internal/eventhub"
	"optionx/internal/metrics"
	"optionx/internal/tradestate"
)

// Config carries the admission-control parameters read from
// internal/config's QueueConfig.
type Config struct {
	OrderIntervalMS     int64 // minimum spacing between two admissions
	OrderQueueTimeoutMS int64 // how long a request may sit pending before it is canceled
	MaxTrades           int64 // concurrent open-trade cap, 0 = unlimited
}

// Manager is the trade queue. Safe for concurrent use: pendingMu guards
// the admission queue, openMu guards the live-transaction list, and both
// are released before any per-transaction validation or dispatch work
// runs - mirroring the lock-release-around-work discipline
// original_source uses (and that teacher's engine.go also follows for
// its PairState locks).
type Manager struct {
	state *tradestate.Manager
	info  *accountinfo.Provider
	hub   *eventhub.Hub
	cfg   Config
	log   *zap.Logger

	pendingMu sync.Mutex
	pending   []*transaction

	openMu sync.Mutex
	open   []*transaction

	openTrades      int64
	lastAdmissionMS int64
	tradeIDSeq      uint64
	connected       int32

	resultMu       sync.Mutex
	resultCallback func(*domain.TradeRequest, *domain.TradeResult)

	nowFunc func() int64
}

// New builds a Manager. state and info must already be wired to the same
// platform adapter; hub receives TradeRequestEvent/TradeStatusEvent/
// TradeTransactionEvent/OpenTradesEvent notifications.
func New(state *tradestate.Manager, info *accountinfo.Provider, hub *eventhub.Hub, cfg Config, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		state:   state,
		info:    info,
		hub:     hub,
		cfg:     cfg,
		log:     log,
		nowFunc: func() int64 { return time.Now().UnixMilli() },
	}
}

// SetConnected updates the connectivity flag consulted by validation -
// equivalent to the platform adapter's connection state feeding
// validate_request's NO_CONNECTION check.
func (m *Manager) SetConnected(connected bool) {
	v := int32(0)
	if connected {
		v = 1
	}
	atomic.StoreInt32(&m.connected, v)
}

func (m *Manager) isConnected() bool {
	return atomic.LoadInt32(&m.connected) != 0
}

// OnTradeResult registers the single aggregate callback invoked after
// every dispatch, in addition to any per-request callbacks the caller
// attached directly to the TradeRequest.
func (m *Manager) OnTradeResult(cb func(*domain.TradeRequest, *domain.TradeResult)) {
	m.resultMu.Lock()
	m.resultCallback = cb
	m.resultMu.Unlock()
}

// OpenTrades returns the current number of live (admitted, not yet
// finalized) trades.
func (m *Manager) OpenTrades() int64 {
	return atomic.LoadInt64(&m.openTrades)
}

// PendingCount returns the current size of the admission queue.
func (m *Manager) PendingCount() int {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	return len(m.pending)
}

// AddTrade enqueues a new trade request for admission - the equivalent of
// TradeQueueManager::add_trade. preprocess, if non-nil, may inspect and
// mutate the freshly created result before the transaction is queued; if
// it returns false the trade is silently discarded, matching the
// original's abort-on-preprocess-failure behavior. Returns nil in that
// case.
func (m *Manager) AddTrade(req *domain.TradeRequest, platform domain.PlatformType, preprocess func(*domain.TradeRequest, *domain.TradeResult) bool) *domain.TradeResult {
	nowMS := m.nowFunc()

	result := req.NewTradeResult()
	result.TradeID = int64(atomic.AddUint64(&m.tradeIDSeq, 1))
	result.PlaceDateMS = nowMS
	result.PlatformType = platform
	result.TradeState = domain.StateUnknown
	result.LiveState = domain.StateUnknown

	if preprocess != nil && !preprocess(req, result) {
		return nil
	}

	m.pendingMu.Lock()
	m.pending = append(m.pending, &transaction{request: req, result: result})
	m.pendingMu.Unlock()
	return result
}

// cleanExpiredLocked removes pending transactions that have waited past
// OrderQueueTimeoutMS, returning them for the caller to finalize once the
// lock is released. Must be called with pendingMu held.
func (m *Manager) cleanExpiredLocked(nowMS int64) []*transaction {
	if m.cfg.OrderQueueTimeoutMS <= 0 || len(m.pending) == 0 {
		return nil
	}
	kept := m.pending[:0:0]
	var expired []*transaction
	for _, t := range m.pending {
		if nowMS-t.result.PlaceDateMS >= m.cfg.OrderQueueTimeoutMS {
			expired = append(expired, t)
		} else {
			kept = append(kept, t)
		}
	}
	m.pending = kept
	return expired
}

// ProcessPendingTransactions admits at most one pending transaction per
// call, exactly like TradeQueueManager::process_pending_transactions -
// admission is rate-limited by OrderIntervalMS and capped by MaxTrades,
// so the caller (typically a scheduler tick) is expected to invoke this
// repeatedly rather than draining the whole queue in one call.
func (m *Manager) ProcessPendingTransactions(nowMS int64) {
	m.pendingMu.Lock()
	if len(m.pending) == 0 {
		m.pendingMu.Unlock()
		return
	}

	expired := m.cleanExpiredLocked(nowMS)

	var popped *transaction
	if len(m.pending) > 0 {
		elapsed := nowMS - atomic.LoadInt64(&m.lastAdmissionMS)
		openTrades := atomic.LoadInt64(&m.openTrades)
		withinCap := m.cfg.MaxTrades <= 0 || openTrades < m.cfg.MaxTrades
		if elapsed >= m.cfg.OrderIntervalMS && withinCap {
			popped = m.pending[0]
			m.pending = m.pending[1:]
		}
	}
	m.pendingMu.Unlock()

	for _, t := range expired {
		metrics.QueueAdmissions.WithLabelValues("timeout").Inc()
		m.state.FinalizeWithError(t.result, t.request, domain.ErrLongQueueWait, domain.StateOpenError, nowMS, "")
		m.dispatchTradeEvent(t.request, t.result)
	}

	metrics.PendingQueueSize.Set(float64(m.PendingCount()))

	if popped == nil {
		return
	}

	metrics.QueueWaitDuration.Observe(float64(nowMS - popped.result.PlaceDateMS))

	code := m.state.ValidateRequest(popped.request, m.isConnected(), atomic.LoadInt64(&m.openTrades), m.cfg.MaxTrades)
	if code != domain.ErrSuccess {
		metrics.QueueAdmissions.WithLabelValues("rejected").Inc()
		m.state.FinalizeWithError(popped.result, popped.request, code, domain.StateOpenError, nowMS, "")
		m.dispatchTradeEvent(popped.request, popped.result)
		return
	}

	metrics.QueueAdmissions.WithLabelValues("admitted").Inc()
	popped.result.TradeState = domain.StateWaitingOpen
	popped.result.LiveState = domain.StateWaitingOpen
	popped.result.SendDateMS = nowMS
	if balance, ok := m.info.LookupBalance(popped.request.AccountType, popped.request.Currency); ok {
		popped.result.Balance = balance
	}
	if _, payout, ok := m.info.LookupSymbol(popped.request.Symbol); ok {
		popped.result.Payout = payout
	}

	m.incrementOpenTrades()
	atomic.StoreInt64(&m.lastAdmissionMS, nowMS)

	m.openMu.Lock()
	m.open = append(m.open, popped)
	m.openMu.Unlock()

	m.dispatchTradeEvent(popped.request, popped.result)
	m.hub.Notify(eventhub.TradeRequestEvent{Request: popped.request, Result: popped.result})
}

// ProcessClosingTransactions advances every closable open transaction:
// OPEN_SUCCESS moves to IN_PROGRESS, and once the close date has passed
// (and before the response timeout), a closable transaction moves to
// WAITING_CLOSE. Transactions whose close date cannot be computed, or
// whose response wait has overrun, are finalized with CHECK_ERROR and
// removed from the open list.
func (m *Manager) ProcessClosingTransactions(nowMS int64) {
	open := m.snapshotOpen()
	var toRemove []*transaction

	for _, t := range open {
		state := t.result.TradeState
		if state == domain.StateOpenSuccess {
			m.dispatchTradeEvent(t.request, t.result)
			t.result.TradeState = domain.StateInProgress
			t.result.LiveState = domain.StateInProgress
			state = domain.StateInProgress
		}
		if !tradestate.IsClosableState(state) {
			continue
		}

		closeDate := tradestate.CalculateCloseDate(t.result, t.request)
		if closeDate == 0 {
			code := domain.ErrInvalidDuration
			if t.request.OptionType == domain.OptionClassic {
				code = domain.ErrInvalidExpiryTime
			}
			m.state.FinalizeWithError(t.result, t.request, code, domain.StateCheckError, nowMS, "")
			m.dispatchTradeEvent(t.request, t.result)
			toRemove = append(toRemove, t)
			continue
		}
		if nowMS < closeDate {
			continue
		}

		responseTimeoutMS := m.info.ResponseTimeoutSec() * 1000
		if responseTimeoutMS > 0 && nowMS > closeDate+responseTimeoutMS {
			m.state.FinalizeWithError(t.result, t.request, domain.ErrLongResponseWait, domain.StateCheckError, nowMS, "")
			m.dispatchTradeEvent(t.request, t.result)
			toRemove = append(toRemove, t)
			continue
		}

		if tradestate.IsTransitionToWaitingClose(state) {
			t.result.TradeState = domain.StateWaitingClose
			t.result.LiveState = domain.StateWaitingClose
			m.dispatchTradeEvent(t.request, t.result)
			m.hub.Notify(eventhub.TradeStatusEvent{Result: t.result})
		}
	}

	m.removeFromOpen(toRemove)
}

// ProcessFinalizingTransactions dispatches and removes every open
// transaction that has reached a terminal state (WIN/LOSS/STANDOFF/
// REFUND/CANCELED_TRADE/OPEN_ERROR/CHECK_ERROR).
func (m *Manager) ProcessFinalizingTransactions() {
	open := m.snapshotOpen()
	var toRemove []*transaction
	for _, t := range open {
		if tradestate.IsTerminalState(t.result.TradeState) {
			platform := t.result.PlatformType.String()
			metrics.TradesTotal.WithLabelValues(platform, t.result.ErrorCode.String()).Inc()
			metrics.TradeProfit.WithLabelValues(platform).Add(t.result.Profit)
			m.dispatchTradeEvent(t.request, t.result)
			toRemove = append(toRemove, t)
		}
	}
	m.removeFromOpen(toRemove)
}

// HandlePriceUpdate reacts to a fresh tick: every open transaction on the
// tick's symbol has its close price and live (provisional) state
// refreshed, matching TradeQueueManager::handle_event(PriceUpdateEvent).
func (m *Manager) HandlePriceUpdate(tick domain.Tick) {
	open := m.snapshotOpen()
	for _, t := range open {
		state := t.result.TradeState
		if state != domain.StateOpenSuccess && state != domain.StateInProgress {
			continue
		}
		if state == domain.StateOpenSuccess {
			m.dispatchTradeEvent(t.request, t.result)
			t.result.TradeState = domain.StateInProgress
			t.result.LiveState = domain.StateInProgress
		}
		if t.request.Symbol != tick.Symbol || !tick.Flags.Has(domain.TickInitialized) {
			continue
		}
		t.result.ClosePrice = tick.Mid()
		t.result.LiveState = tradestate.DetermineTradeState(t.result.OpenPrice, t.request.OrderType, tick)
		m.dispatchTradeEvent(t.request, t.result)
	}
}

// HandleDisconnect forces every pending and open trade closed - the
// response to a DisconnectRequestEvent.
func (m *Manager) HandleDisconnect() {
	m.FinalizeAllTrades(m.nowFunc())
}

// FinalizeAllTrades forcibly closes every pending and open transaction
// with CLIENT_FORCED_CLOSE, matching
// TradeQueueManager::finalize_all_trades. Used on shutdown or disconnect.
func (m *Manager) FinalizeAllTrades(nowMS int64) {
	m.pendingMu.Lock()
	pending := m.pending
	m.pending = nil
	m.pendingMu.Unlock()

	for _, t := range pending {
		m.state.FinalizeWithError(t.result, t.request, domain.ErrClientForcedClose, domain.StateOpenError, nowMS, "")
		m.dispatchTradeEvent(t.request, t.result)
	}

	m.openMu.Lock()
	open := m.open
	m.open = nil
	m.openMu.Unlock()

	for _, t := range open {
		m.state.FinalizeWithError(t.result, t.request, domain.ErrClientForcedClose, domain.StateCheckError, nowMS, "")
		m.dispatchTradeEvent(t.request, t.result)
	}

	atomic.StoreInt64(&m.openTrades, 0)
	metrics.OpenTradesGauge.Set(0)
	m.hub.Notify(eventhub.OpenTradesEvent{OpenTrades: 0})
}

func (m *Manager) snapshotOpen() []*transaction {
	m.openMu.Lock()
	defer m.openMu.Unlock()
	out := make([]*transaction, len(m.open))
	copy(out, m.open)
	return out
}

func (m *Manager) removeFromOpen(remove []*transaction) {
	if len(remove) == 0 {
		return
	}
	removeSet := make(map[*transaction]bool, len(remove))
	for _, t := range remove {
		removeSet[t] = true
	}

	m.openMu.Lock()
	kept := m.open[:0:0]
	for _, t := range m.open {
		if !removeSet[t] {
			kept = append(kept, t)
		}
	}
	m.open = kept
	m.openMu.Unlock()

	n := atomic.AddInt64(&m.openTrades, -int64(len(remove)))
	metrics.OpenTradesGauge.Set(float64(n))
	m.hub.Notify(eventhub.OpenTradesEvent{OpenTrades: n})
}

func (m *Manager) incrementOpenTrades() {
	n := atomic.AddInt64(&m.openTrades, 1)
	metrics.OpenTradesGauge.Set(float64(n))
	m.hub.Notify(eventhub.OpenTradesEvent{OpenTrades: n})
}

// dispatchTradeEvent publishes the transaction on the hub, fans it out to
// the request's own per-trade callbacks (one independent clone each, see
// domain.TradeRequest.DispatchCallbacks), and finally calls the single
// aggregate result callback, if one was registered - matching the order
// of TradeQueueManager::dispatch_trade_event.
func (m *Manager) dispatchTradeEvent(req *domain.TradeRequest, result *domain.TradeResult) {
	m.hub.Notify(eventhub.TradeTransactionEvent{Request: req, Result: result})
	req.DispatchCallbacks(result)

	m.resultMu.Lock()
	cb := m.resultCallback
	m.resultMu.Unlock()
	if cb != nil {
		cb(req.Clone(), result.Clone())
	}
}
