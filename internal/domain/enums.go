package domain

// OptionType - тип бинарного опциона.
type OptionType int

const (
	OptionUnknown OptionType = iota
	OptionSprint
	OptionClassic
)

func (t OptionType) String() string {
	switch t {
	case OptionSprint:
		return "SPRINT"
	case OptionClassic:
		return "CLASSIC"
	default:
		return "UNKNOWN"
	}
}

// OrderType - направление сделки.
type OrderType int

const (
	OrderUnknown OrderType = iota
	OrderBuy
	OrderSell
)

func (t OrderType) String() string {
	switch t {
	case OrderBuy:
		return "BUY"
	case OrderSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// AccountType - тип торгового счета (демо/реальный).
type AccountType int

const (
	AccountUnknown AccountType = iota
	AccountDemo
	AccountReal
)

func (t AccountType) String() string {
	switch t {
	case AccountDemo:
		return "DEMO"
	case AccountReal:
		return "REAL"
	default:
		return "UNKNOWN"
	}
}

// CurrencyType - валюта счета.
type CurrencyType int

const (
	CurrencyUnknown CurrencyType = iota
	CurrencyUSD
	CurrencyEUR
	CurrencyRUB
)

func (t CurrencyType) String() string {
	switch t {
	case CurrencyUSD:
		return "USD"
	case CurrencyEUR:
		return "EUR"
	case CurrencyRUB:
		return "RUB"
	default:
		return "UNKNOWN"
	}
}

// PlatformType идентифицирует конкретную торговую платформу (адаптер).
type PlatformType int

const (
	PlatformUnknown PlatformType = iota
	PlatformDemo
)

func (t PlatformType) String() string {
	switch t {
	case PlatformDemo:
		return "DEMO"
	default:
		return "UNKNOWN"
	}
}

// TradeState - состояние сделки в её жизненном цикле.
//
// Переходы:
//
//	WAITING_OPEN -> OPEN_SUCCESS | OPEN_ERROR
//	OPEN_SUCCESS -> IN_PROGRESS
//	IN_PROGRESS  -> WAITING_CLOSE
//	WAITING_CLOSE -> WIN | LOSS | STANDOFF | REFUND | CHECK_ERROR
//
// При остановке движка (FinalizeAllTrades) ожидающие сделки принудительно
// завершаются в OPEN_ERROR, открытые - в CHECK_ERROR, обе с кодом
// CLIENT_FORCED_CLOSE; CANCELED_TRADE этим путём не выставляется.
type TradeState int

const (
	StateUnknown TradeState = iota
	StateWaitingOpen
	StateOpenSuccess
	StateOpenError
	StateInProgress
	StateWaitingClose
	StateCheckError
	StateWin
	StateLoss
	StateStandoff
	StateRefund
	StateCanceledTrade
)

func (s TradeState) String() string {
	switch s {
	case StateWaitingOpen:
		return "WAITING_OPEN"
	case StateOpenSuccess:
		return "OPEN_SUCCESS"
	case StateOpenError:
		return "OPEN_ERROR"
	case StateInProgress:
		return "IN_PROGRESS"
	case StateWaitingClose:
		return "WAITING_CLOSE"
	case StateCheckError:
		return "CHECK_ERROR"
	case StateWin:
		return "WIN"
	case StateLoss:
		return "LOSS"
	case StateStandoff:
		return "STANDOFF"
	case StateRefund:
		return "REFUND"
	case StateCanceledTrade:
		return "CANCELED_TRADE"
	default:
		return "UNKNOWN"
	}
}

// TradeErrorCode перечисляет причины отказа/завершения сделки с ошибкой.
// Значения и строковые описания взяты из исходной реализации один в один.
type TradeErrorCode int

const (
	ErrSuccess TradeErrorCode = iota
	ErrInvalidSymbol
	ErrInvalidOption
	ErrInvalidOrder
	ErrInvalidAccount
	ErrInvalidCurrency
	ErrAmountTooLow
	ErrAmountTooHigh
	ErrRefundTooLow
	ErrRefundTooHigh
	ErrPayoutTooLow
	ErrInvalidDuration
	ErrInvalidExpiryTime
	ErrLimitOpenTrades
	ErrInvalidRequest
	ErrLongQueueWait
	ErrLongResponseWait
	ErrNoConnection
	ErrClientForcedClose
	ErrParsingError
	ErrCanceledTrade
	ErrInsufficientBalance
)

// errorDescriptions - каноническое текстовое описание каждого кода ошибки,
// используется как значение error_desc по умолчанию при finalize.
var errorDescriptions = map[TradeErrorCode]string{
	ErrSuccess:             "Success.",
	ErrInvalidSymbol:       "Invalid symbol.",
	ErrInvalidOption:       "Invalid option type.",
	ErrInvalidOrder:        "Invalid order type.",
	ErrInvalidAccount:      "Invalid account type.",
	ErrInvalidCurrency:     "Invalid currency.",
	ErrAmountTooLow:        "Amount below minimum.",
	ErrAmountTooHigh:       "Amount above maximum.",
	ErrRefundTooLow:        "Refund below minimum.",
	ErrRefundTooHigh:       "Refund above maximum.",
	ErrPayoutTooLow:        "Low payout percentage.",
	ErrInvalidDuration:     "Invalid duration.",
	ErrInvalidExpiryTime:   "Invalid expiry time.",
	ErrLimitOpenTrades:     "Reached open trades limit.",
	ErrInvalidRequest:      "Invalid request.",
	ErrLongQueueWait:       "Long wait in the order queue.",
	ErrLongResponseWait:    "Long wait for server response.",
	ErrNoConnection:        "No network connection.",
	ErrClientForcedClose:   "Forced client shutdown.",
	ErrParsingError:        "Parser error.",
	ErrCanceledTrade:       "Canceled.",
	ErrInsufficientBalance: "Insufficient balance.",
}

// String возвращает каноническое текстовое описание кода ошибки.
// Используется как значение error_desc по умолчанию при finalize.
func (c TradeErrorCode) String() string {
	if s, ok := errorDescriptions[c]; ok {
		return s
	}
	return "Unknown error."
}

// AccountInfoType перечисляет виды данных, которые можно запросить у
// провайдера информации по счету.
type AccountInfoType int

const (
	InfoUnknown AccountInfoType = iota
	InfoBalance
	InfoPayoutPercent
	InfoMinAmount
	InfoMaxAmount
	InfoMinRefund
	InfoMaxRefund
	InfoMaxTrades
	InfoMinDuration
	InfoMaxDuration
	InfoResponseTimeoutSec
	InfoConnectionStatus
	InfoSymbolAvailable
	InfoOptionTypeAvailable
	InfoOrderTypeAvailable
	InfoAccountTypeAvailable
	InfoCurrencyAvailable
)
