// Package metrics exposes Prometheus collectors for the trade execution
// engine. Grounded on teacher's internal/bot/metrics.go: same
// promauto-constructed package-level vars under a namespace/subsystem
// pair, just re-pointed at admission, trade outcome, session-store and
// scheduler concerns instead of arbitrage spread/PnL tracking.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============ Очередь и admission control ============

// QueueAdmissions - количество решений по допуску сделок в обработку.
var QueueAdmissions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "optionx",
		Subsystem: "queue",
		Name:      "admissions_total",
		Help:      "Number of trade admission decisions",
	},
	[]string{"result"}, // admitted, rejected, timeout
)

// PendingQueueSize - текущий размер очереди ожидающих сделок.
var PendingQueueSize = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "optionx",
		Subsystem: "queue",
		Name:      "pending_size",
		Help:      "Current number of trades waiting for admission",
	},
)

// OpenTradesGauge - текущее количество открытых сделок.
var OpenTradesGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "optionx",
		Subsystem: "queue",
		Name:      "open_trades",
		Help:      "Current number of open trades",
	},
)

// QueueWaitDuration - время ожидания сделки в очереди до допуска.
var QueueWaitDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "optionx",
		Subsystem: "queue",
		Name:      "wait_duration_ms",
		Help:      "Time a trade spent waiting in the pending queue before admission",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	},
)

// ============ Сделки ============

// TradesTotal - количество сделок по итоговому коду ошибки.
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "optionx",
		Subsystem: "trading",
		Name:      "trades_total",
		Help:      "Total number of finalized trades by error code",
	},
	[]string{"platform", "error_code"},
)

// TradeOpenLatency - время от постановки сделки в очередь до открытия.
var TradeOpenLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "optionx",
		Subsystem: "trading",
		Name:      "open_latency_ms",
		Help:      "Latency from admission to platform open confirmation in milliseconds",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2000, 5000},
	},
	[]string{"platform"},
)

// TradeProfit - суммарная прибыль/убыток по закрытым сделкам.
var TradeProfit = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "optionx",
		Subsystem: "trading",
		Name:      "profit_total",
		Help:      "Total realized profit by platform (negative values tracked separately by caller)",
	},
	[]string{"platform"},
)

// ============ Подключение к платформам ============

// PlatformConnectionStatus - статус подключения к торговой платформе.
var PlatformConnectionStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "optionx",
		Subsystem: "adapter",
		Name:      "connection_status",
		Help:      "Platform adapter connection status (1=connected, 0=disconnected)",
	},
	[]string{"platform"},
)

// PlatformBalance - известный баланс по типу счёта.
var PlatformBalance = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "optionx",
		Subsystem: "adapter",
		Name:      "balance",
		Help:      "Last known account balance",
	},
	[]string{"platform", "account_type"},
)

// ============ Хранилище сессий ============

// SessionStoreOperations - количество операций над хранилищем сессий.
var SessionStoreOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "optionx",
		Subsystem: "session",
		Name:      "operations_total",
		Help:      "Number of session store operations",
	},
	[]string{"op", "result"}, // op: get, set, remove, clear; result: ok, not_found, error
)

// ============ Планировщик ============

// SchedulerTaskLatency - время выполнения одного срабатывания задачи.
var SchedulerTaskLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "optionx",
		Subsystem: "scheduler",
		Name:      "task_duration_ms",
		Help:      "Execution time of a single scheduled task firing in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
	},
	[]string{"task"},
)

// SchedulerTaskPanics - количество паник, перехваченных при срабатывании задач.
var SchedulerTaskPanics = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "optionx",
		Subsystem: "scheduler",
		Name:      "task_panics_total",
		Help:      "Number of recovered panics during scheduled task execution",
	},
	[]string{"task"},
)

// ============ Шина событий ============

// EventsDropped - события, отброшенные из-за переполнения очереди NotifyAsync.
var EventsDropped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "optionx",
		Subsystem: "eventhub",
		Name:      "events_dropped_total",
		Help:      "Number of events dropped because the async queue was full",
	},
	[]string{"event"},
)

// HandlerPanics - паники, перехваченные при вызове подписчиков шины событий.
var HandlerPanics = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "optionx",
		Subsystem: "eventhub",
		Name:      "handler_panics_total",
		Help:      "Number of recovered panics inside event handlers",
	},
	[]string{"event"},
)
