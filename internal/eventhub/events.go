package eventhub

import "optionx/internal/domain"

// Конкретные типы событий, соответствующие наблюдателям
// original_source (data/events/*.hpp). Каждый тип реализует Event через
// EventName().

// PriceUpdateEvent несёт новую котировку по символу.
type PriceUpdateEvent struct {
	Tick domain.Tick
}

func (PriceUpdateEvent) EventName() string { return "price_update" }

// ConnectRequestEvent запрашивает установление соединения с платформой.
type ConnectRequestEvent struct{}

func (ConnectRequestEvent) EventName() string { return "connect_request" }

// DisconnectRequestEvent запрашивает принудительное завершение всех
// сделок и разрыв соединения - обрабатывается TradeQueueManager вызовом
// FinalizeAllTrades.
type DisconnectRequestEvent struct {
	Reason string
}

func (DisconnectRequestEvent) EventName() string { return "disconnect_request" }

// AuthDataEvent несёт учетные данные, полученные при авторизации.
type AuthDataEvent struct {
	Platform string
	Email    string
	Session  string
}

func (AuthDataEvent) EventName() string { return "auth_data" }

// RestartAuthEvent запрашивает повторную авторизацию, например после
// истечения сессии.
type RestartAuthEvent struct {
	Reason string
}

func (RestartAuthEvent) EventName() string { return "restart_auth" }

// AutoDomainSelectedEvent уведомляет, что адаптер выбрал рабочий домен
// платформы автоматически (см. SPEC_FULL.md §D.1 - супплементированная
// фича из original_source AutoDomainSelectedEvent.hpp).
type AutoDomainSelectedEvent struct {
	Domain string
}

func (AutoDomainSelectedEvent) EventName() string { return "auto_domain_selected" }

// BridgeStatusUpdate уведомляет об изменении состояния нижележащего
// транспортного моста адаптера (см. SPEC_FULL.md §D.1).
type BridgeStatusUpdate struct {
	Connected bool
	Detail    string
}

func (BridgeStatusUpdate) EventName() string { return "bridge_status_update" }

// AccountInfoUpdateEvent уведомляет, что провайдер информации о счете
// обновил кеш (баланс/символ).
type AccountInfoUpdateEvent struct {
	InfoType domain.AccountInfoType
}

func (AccountInfoUpdateEvent) EventName() string { return "account_info_update" }

// BalanceRequestEvent - маркер запроса обновления баланса, приватный для
// адаптера (Decision D3): адаптер может публиковать его себе, чтобы
// унифицировать периодический опрос с остальными событиями, но очередь
// сделок на него не подписывается.
type BalanceRequestEvent struct{}

func (BalanceRequestEvent) EventName() string { return "balance_request" }

// TradeRequestEvent публикуется при постановке сделки в очередь на
// открытие (переход в WAITING_OPEN). Request и Result - указатели на те
// же объекты, что хранит очередь, поэтому подписчик (платформенный
// адаптер) может мутировать Result напрямую, и очередь увидит изменение
// при следующей обработке.
type TradeRequestEvent struct {
	Request *domain.TradeRequest
	Result  *domain.TradeResult
}

func (TradeRequestEvent) EventName() string { return "trade_request" }

// TradeStatusEvent публикуется при изменении состояния уже открытой
// сделки (например, переход в WAITING_CLOSE).
type TradeStatusEvent struct {
	Result *domain.TradeResult
}

func (TradeStatusEvent) EventName() string { return "trade_status" }

// TradeTransactionEvent несёт полный снимок сделки при каждом
// значимом изменении - это то, что видит внешний observer Hub'а
// (dispatch_trade_event в original_source).
type TradeTransactionEvent struct {
	Request *domain.TradeRequest
	Result  *domain.TradeResult
}

func (TradeTransactionEvent) EventName() string { return "trade_transaction" }

// OpenTradesEvent уведомляет об изменении счетчика открытых сделок.
type OpenTradesEvent struct {
	OpenTrades int64
}

func (OpenTradesEvent) EventName() string { return "open_trades" }
