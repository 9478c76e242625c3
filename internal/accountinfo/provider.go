// Package accountinfo переносит original_source
// BaseTradeExecutionModule/AccountInfoProvider.hpp: единую точку запроса
// данных о счете (баланс, payout, лимиты, доступность символа/типов).
//
// В оригинале эти запросы были шаблонными методами get_info<T>(...). Go не
// умеет в шаблоны методов, поэтому их место занимают обобщенные функции
// верхнего уровня, принимающие *Provider.
package accountinfo

import (
	"sync"

	"optionx/internal/domain"
	"optionx/internal/metrics"
)

// Backend - источник данных о счете, который предоставляет конкретный
// PlatformAdapter (see internal/adapter). Provider кеширует последние
// значения и отдаёт их без блокировки вызывающего на сетевой ввод-вывод.
type Backend interface {
	Balance(account domain.AccountType, currency domain.CurrencyType) (float64, error)
	Symbol(symbol string) (domain.SymbolInfo, float64, error) // symbol info + payout percent
	ResponseTimeoutSec() int64
}

// Provider - потокобезопасный фасад над Backend с кешем последних значений,
// которым пользуются TradeStateManager и TradeQueueManager в горячем пути.
type Provider struct {
	mu       sync.RWMutex
	backend  Backend
	platform string // label used for exported metrics

	balances map[balanceKey]float64
	symbols  map[string]symbolCacheEntry
}

type balanceKey struct {
	account  domain.AccountType
	currency domain.CurrencyType
}

type symbolCacheEntry struct {
	info    domain.SymbolInfo
	payout  float64
}

// platformNamed is implemented by any PlatformAdapter; used only to label
// exported metrics, so it is optional - backends that don't implement it
// simply report under an empty platform label.
type platformNamed interface {
	PlatformType() domain.PlatformType
}

// New создает Provider поверх конкретного адаптера платформы.
func New(backend Backend) *Provider {
	p := &Provider{
		backend:  backend,
		balances: make(map[balanceKey]float64),
		symbols:  make(map[string]symbolCacheEntry),
	}
	if named, ok := backend.(platformNamed); ok {
		p.platform = named.PlatformType().String()
	}
	return p
}

// RefreshBalance запрашивает у backend актуальный баланс и обновляет кеш -
// вызывается фасадом (facade.PlaceTrade) перед постановкой сделки в очередь.
func (p *Provider) RefreshBalance(account domain.AccountType, currency domain.CurrencyType) error {
	balance, err := p.backend.Balance(account, currency)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.balances[balanceKey{account, currency}] = balance
	p.mu.Unlock()
	metrics.PlatformBalance.WithLabelValues(p.platform, account.String()).Set(balance)
	return nil
}

// RefreshSymbol обновляет кеш параметров символа.
func (p *Provider) RefreshSymbol(symbol string) error {
	info, payout, err := p.backend.Symbol(symbol)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.symbols[symbol] = symbolCacheEntry{info: info, payout: payout}
	p.mu.Unlock()
	return nil
}

// LookupBalance возвращает закешированный баланс, не обращаясь к сети.
func (p *Provider) LookupBalance(account domain.AccountType, currency domain.CurrencyType) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.balances[balanceKey{account, currency}]
	return v, ok
}

// LookupSymbol возвращает закешированную информацию о символе и процент
// выплаты.
func (p *Provider) LookupSymbol(symbol string) (domain.SymbolInfo, float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.symbols[symbol]
	if !ok {
		return domain.SymbolInfo{}, 0, false
	}
	return entry.info, entry.payout, true
}

// ResponseTimeoutSec возвращает настроенный таймаут ожидания ответа сервера
// в секундах - эквивалент AccountInfoProvider::get_response_timeout,
// конвертирующего значение в миллисекунды на стороне вызывающего.
func (p *Provider) ResponseTimeoutSec() int64 {
	return p.backend.ResponseTimeoutSec()
}

// Get - обобщенный аналог AccountInfoProvider::get_info<T>: возвращает
// типизированное значение по виду запроса, обращаясь к нужному полю кеша.
// T ограничен float64/int64/bool, которые покрывают все поля
// AccountInfoType.
func Get[T float64 | int64 | bool](p *Provider, req domain.AccountInfoRequest) (T, bool) {
	var zero T
	switch req.InfoType {
	case domain.InfoBalance:
		v, ok := p.LookupBalance(req.AccountType, req.Currency)
		return castTo[T](v, ok, zero)
	case domain.InfoPayoutPercent:
		_, payout, ok := p.LookupSymbol(req.Symbol)
		return castTo[T](payout, ok, zero)
	case domain.InfoMinAmount:
		info, _, ok := p.LookupSymbol(req.Symbol)
		return castTo[T](info.MinAmount, ok, zero)
	case domain.InfoMaxAmount:
		info, _, ok := p.LookupSymbol(req.Symbol)
		return castTo[T](info.MaxAmount, ok, zero)
	case domain.InfoMinRefund:
		info, _, ok := p.LookupSymbol(req.Symbol)
		return castTo[T](info.MinRefund, ok, zero)
	case domain.InfoMaxRefund:
		info, _, ok := p.LookupSymbol(req.Symbol)
		return castTo[T](info.MaxRefund, ok, zero)
	case domain.InfoMinDuration:
		info, _, ok := p.LookupSymbol(req.Symbol)
		return castTo[T](float64(info.MinDuration), ok, zero)
	case domain.InfoMaxDuration:
		info, _, ok := p.LookupSymbol(req.Symbol)
		return castTo[T](float64(info.MaxDuration), ok, zero)
	case domain.InfoResponseTimeoutSec:
		return castTo[T](float64(p.ResponseTimeoutSec()), true, zero)
	case domain.InfoSymbolAvailable:
		_, _, ok := p.LookupSymbol(req.Symbol)
		return castTo[T](boolToFloat(ok), true, zero)
	case domain.InfoOptionTypeAvailable:
		info, _, ok := p.LookupSymbol(req.Symbol)
		return castTo[T](boolToFloat(ok && info.SupportsOption(req.OptionType)), true, zero)
	default:
		return zero, false
	}
}

// GetForTrade - аналог AccountInfoProvider::get_for_trade<T>: строит запрос
// из текущей заявки на сделку (символ/опцион/ордер/счет/валюта) и временной
// метки.
func GetForTrade[T float64 | int64 | bool](p *Provider, infoType domain.AccountInfoType, req *domain.TradeRequest, timestampMS int64) (T, bool) {
	return Get[T](p, domain.AccountInfoRequest{
		InfoType:    infoType,
		Symbol:      req.Symbol,
		OptionType:  req.OptionType,
		OrderType:   req.OrderType,
		AccountType: req.AccountType,
		Currency:    req.Currency,
		TimestampMS: timestampMS,
	})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func castTo[T float64 | int64 | bool](v float64, ok bool, zero T) (T, bool) {
	if !ok {
		return zero, false
	}
	switch any(zero).(type) {
	case float64:
		return any(v).(T), true
	case int64:
		return any(int64(v)).(T), true
	case bool:
		return any(v != 0).(T), true
	default:
		return zero, false
	}
}
