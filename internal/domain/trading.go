package domain

// TradeRequest описывает запрос клиента на открытие сделки.
//
// Поля зеркалируют original_source/.../data/trading/TradeRequest.hpp:
// строковые идентификаторы, числовые параметры сделки и список callback,
// которым будет разослан независимый клон запроса/результата при каждом
// обновлении состояния (см. DispatchCallbacks).
type TradeRequest struct {
	Symbol     string
	SignalName string
	UserData   string
	Comment    string
	UniqueHash string

	UniqueID  int64
	AccountID int64

	OptionType  OptionType
	OrderType   OrderType
	AccountType AccountType
	Currency    CurrencyType

	Amount    float64
	Refund    float64
	MinPayout float64

	Duration   int64 // секунды, для SPRINT
	ExpiryTime int64 // unix-секунды, для CLASSIC

	callbacks []TradeCallback
}

// TradeCallback получает независимый клон запроса и результата при каждом
// событии изменения состояния сделки.
type TradeCallback func(request *TradeRequest, result *TradeResult)

// AddCallback регистрирует обработчик, вызываемый при каждом обновлении
// состояния этой сделки.
func (r *TradeRequest) AddCallback(cb TradeCallback) {
	r.callbacks = append(r.callbacks, cb)
}

// DispatchCallbacks вызывает каждый зарегистрированный callback с
// НЕЗАВИСИМЫМ клоном request/result — изменения, сделанные одним
// обработчиком, не видны другому (Decision D2, см. SPEC_FULL.md).
func (r *TradeRequest) DispatchCallbacks(result *TradeResult) {
	for _, cb := range r.callbacks {
		reqClone := r.Clone()
		resClone := result.Clone()
		cb(reqClone, resClone)
	}
}

// Clone возвращает глубокую копию запроса без регистрированных callback
// (клон существует только для передачи снимка состояния, он не должен
// рассылать собственные уведомления).
func (r *TradeRequest) Clone() *TradeRequest {
	clone := *r
	clone.callbacks = nil
	return &clone
}

// NewTradeResult создает результат сделки, наследующий тип счета, валюту
// и сумму из запроса - эквивалент create_trade_result_unique().
func (r *TradeRequest) NewTradeResult() *TradeResult {
	return &TradeResult{
		AccountType: r.AccountType,
		Currency:    r.Currency,
		Amount:      r.Amount,
		ErrorCode:   ErrSuccess,
	}
}

// TradeResult отражает текущее состояние и итог сделки.
//
// Поля зеркалируют original_source/.../data/trading/TradeResult.hpp.
type TradeResult struct {
	TradeID int64

	ErrorCode TradeErrorCode
	ErrorDesc string

	OptionHash string
	OptionID   int64

	Amount  float64
	Payout  float64
	Profit  float64
	Balance float64

	OpenPrice  float64
	ClosePrice float64

	DelayMS int64
	PingMS  int64

	PlaceDateMS int64
	SendDateMS  int64
	OpenDateMS  int64
	CloseDateMS int64

	TradeState TradeState
	LiveState  TradeState

	AccountType  AccountType
	Currency     CurrencyType
	PlatformType PlatformType
}

// Clone возвращает глубокую копию результата.
func (r *TradeResult) Clone() *TradeResult {
	clone := *r
	return &clone
}

// Tick - последняя известная котировка по символу.
type Tick struct {
	Symbol    string
	Bid       float64
	Ask       float64
	TimeMS    int64
	Flags     TickFlags
}

// TickFlags несёт вспомогательные признаки котировки.
type TickFlags uint32

const (
	TickInitialized TickFlags = 1 << iota
	TickRealTime
)

func (f TickFlags) Has(flag TickFlags) bool {
	return f&flag != 0
}

// Mid возвращает среднюю цену бид/аск, используемую при определении
// исхода сделки.
func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// AccountInfoRequest описывает параметры, с которыми провайдер информации
// о счете должен сопоставить ответ (символ, опцион, ордер и т.д.).
type AccountInfoRequest struct {
	InfoType    AccountInfoType
	Symbol      string
	OptionType  OptionType
	OrderType   OrderType
	AccountType AccountType
	Currency    CurrencyType
	TimestampMS int64
}
