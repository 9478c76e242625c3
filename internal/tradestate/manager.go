// Package tradestate реализует проверку заявок на сделку и определение
// их состояния по котировке — перенос original_source
// BaseTradeExecutionModule/TradeStateManager.hpp на Go.
package tradestate

import (
	"go.uber.org/zap"

	"optionx/internal/accountinfo"
	"optionx/internal/domain"
)

// Manager проверяет заявки на открытие сделки и вычисляет их исход по
// котировке. Не хранит состояние очереди — это забота
// internal/queue.TradeQueueManager.
type Manager struct {
	info *accountinfo.Provider
	log  *zap.Logger
}

// New создает Manager поверх провайдера информации о счете.
func New(info *accountinfo.Provider, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{info: info, log: log}
}

// ValidateRequest выполняет полную проверку заявки в фиксированном
// порядке, совпадающем с original_source TradeStateManager::validate_request:
//
//  1. symbol не пуст
//  2. есть соединение с платформой
//  3. symbol известен провайдеру
//  4. тип опциона поддерживается символом
//  5. тип ордера поддерживается
//  6. тип счета поддерживается
//  7. валюта поддерживается
//  8. не превышен лимит одновременно открытых сделок
//  9. amount не выше максимума
//  10. amount не ниже минимума
//  11. refund не выше максимума
//  12. refund не ниже минимума
//  13. duration/expiry_time корректны для своего типа опциона
//  14. payout не ниже минимально допустимого
//  15. баланса достаточно для суммы сделки
//
// Возвращает ErrSuccess, если заявка допустима к постановке в очередь.
func (m *Manager) ValidateRequest(req *domain.TradeRequest, connected bool, openTrades, maxTrades int64) domain.TradeErrorCode {
	if req.Symbol == "" {
		return domain.ErrInvalidSymbol
	}
	if !connected {
		return domain.ErrNoConnection
	}

	symbolInfo, payoutPercent, ok := m.info.LookupSymbol(req.Symbol)
	if !ok {
		return domain.ErrInvalidSymbol
	}
	if req.OptionType == domain.OptionUnknown || !symbolInfo.SupportsOption(req.OptionType) {
		return domain.ErrInvalidOption
	}
	if req.OrderType != domain.OrderBuy && req.OrderType != domain.OrderSell {
		return domain.ErrInvalidOrder
	}
	if req.AccountType != domain.AccountDemo && req.AccountType != domain.AccountReal {
		return domain.ErrInvalidAccount
	}
	if req.Currency == domain.CurrencyUnknown {
		return domain.ErrInvalidCurrency
	}
	if maxTrades > 0 && openTrades >= maxTrades {
		return domain.ErrLimitOpenTrades
	}
	if req.Amount > symbolInfo.MaxAmount {
		return domain.ErrAmountTooHigh
	}
	if req.Amount < symbolInfo.MinAmount {
		return domain.ErrAmountTooLow
	}
	if req.Refund > symbolInfo.MaxRefund {
		return domain.ErrRefundTooHigh
	}
	if req.Refund < symbolInfo.MinRefund {
		return domain.ErrRefundTooLow
	}
	switch req.OptionType {
	case domain.OptionSprint:
		if req.Duration < symbolInfo.MinDuration || req.Duration > symbolInfo.MaxDuration {
			return domain.ErrInvalidDuration
		}
	case domain.OptionClassic:
		if req.ExpiryTime <= 0 {
			return domain.ErrInvalidExpiryTime
		}
	}
	if payoutPercent < req.MinPayout {
		return domain.ErrPayoutTooLow
	}
	balance, _ := m.info.LookupBalance(req.AccountType, req.Currency)
	if balance < req.Amount {
		return domain.ErrInsufficientBalance
	}
	return domain.ErrSuccess
}

// DetermineTradeState вычисляет итог сделки по цене открытия и текущей
// средней цене котировки, в точности как
// TradeStateManager::determine_trade_state:
//
//	open_price == 0                -> STANDOFF
//	BUY:  mid > open  -> WIN, mid < open -> LOSS, иначе STANDOFF
//	SELL: mid < open  -> WIN, mid > open -> LOSS, иначе STANDOFF
//	иначе                           -> STANDOFF
func DetermineTradeState(openPrice float64, order domain.OrderType, tick domain.Tick) domain.TradeState {
	if openPrice == 0 {
		return domain.StateStandoff
	}
	mid := tick.Mid()
	switch order {
	case domain.OrderBuy:
		switch {
		case mid > openPrice:
			return domain.StateWin
		case mid < openPrice:
			return domain.StateLoss
		default:
			return domain.StateStandoff
		}
	case domain.OrderSell:
		switch {
		case mid < openPrice:
			return domain.StateWin
		case mid > openPrice:
			return domain.StateLoss
		default:
			return domain.StateStandoff
		}
	default:
		return domain.StateStandoff
	}
}

// IsClosableState сообщает, может ли сделка в этом состоянии быть
// переведена в обработку закрытия (WAITING_CLOSE, OPEN_SUCCESS,
// IN_PROGRESS).
func IsClosableState(s domain.TradeState) bool {
	switch s {
	case domain.StateWaitingClose, domain.StateOpenSuccess, domain.StateInProgress:
		return true
	default:
		return false
	}
}

// IsTransitionToWaitingClose сообщает, должна ли сделка в этом состоянии
// перейти в WAITING_CLOSE (OPEN_SUCCESS, IN_PROGRESS).
func IsTransitionToWaitingClose(s domain.TradeState) bool {
	return s == domain.StateOpenSuccess || s == domain.StateInProgress
}

// IsTerminalState сообщает, является ли состояние финальным — сделка
// больше не будет обрабатываться очередью.
func IsTerminalState(s domain.TradeState) bool {
	switch s {
	case domain.StateOpenError, domain.StateCheckError, domain.StateWin, domain.StateLoss,
		domain.StateStandoff, domain.StateRefund, domain.StateCanceledTrade:
		return true
	default:
		return false
	}
}

// CalculateCloseDate вычисляет момент времени (в мс), когда сделка должна
// закрыться, по формулам original_source:
//
//	если result.CloseDateMS уже установлен (>0) — он в приоритете
//	SPRINT:   (OpenDateMS либо PlaceDateMS, если открытие ещё не
//	          произошло) + Duration*1000
//	CLASSIC:  ExpiryTime*1000
//	иначе:    0 (невозможно вычислить)
func CalculateCloseDate(result *domain.TradeResult, req *domain.TradeRequest) int64 {
	if result.CloseDateMS > 0 {
		return result.CloseDateMS
	}
	switch req.OptionType {
	case domain.OptionSprint:
		base := result.OpenDateMS
		if base == 0 {
			base = result.PlaceDateMS
		}
		return base + req.Duration*1000
	case domain.OptionClassic:
		return req.ExpiryTime * 1000
	default:
		return 0
	}
}

// FinalizeWithError переводит сделку в финальное (или явно заданное)
// состояние по причине ошибки, обновляя метку времени и — если desc не
// передано — подставляя каноническое описание кода ошибки. Соответствует
// TradeStateManager::finalize_transaction_with_error.
func (m *Manager) FinalizeWithError(result *domain.TradeResult, req *domain.TradeRequest, code domain.TradeErrorCode, state domain.TradeState, timestampMS int64, desc string) {
	result.ErrorCode = code
	if desc == "" {
		desc = code.String()
	}
	result.ErrorDesc = desc
	if result.SendDateMS == 0 {
		result.SendDateMS = timestampMS
	}
	if result.OpenDateMS == 0 {
		result.OpenDateMS = timestampMS
	}
	result.CloseDateMS = timestampMS

	if balance, ok := m.info.LookupBalance(req.AccountType, req.Currency); ok {
		result.Balance = balance
	}
	if _, payout, ok := m.info.LookupSymbol(req.Symbol); ok {
		result.Payout = payout
	}

	result.TradeState = state
	result.LiveState = state

	m.log.Debug("trade finalized with error",
		zap.Int64("trade_id", result.TradeID),
		zap.String("state", state.String()),
		zap.String("error", code.String()),
	)
}
