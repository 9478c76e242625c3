// Package adapter defines the contract a concrete trading platform must
// implement to be driven by the facade, queue and account-info provider -
// the Go counterpart of original_source
// parts/interfaces/IPlatformAPI.hpp, shaped after teacher's
// internal/exchange.Exchange interface (connection lifecycle, balance
// queries, tick subscription, typed errors).
package adapter

import (
	"context"
	"fmt"

	"optionx/internal/domain"
)

// PlatformAdapter is implemented once per trading platform. It both
// executes trade placement and serves as the
// internal/accountinfo.Backend feeding the account info provider.
type PlatformAdapter interface {
	// PlatformType identifies this adapter in TradeResult.PlatformType.
	PlatformType() domain.PlatformType

	// Connect establishes the underlying session/transport. Must be
	// idempotent - calling Connect while already connected is a no-op.
	Connect(ctx context.Context) error

	// Disconnect tears down the underlying session without closing the
	// adapter for good (see Close).
	Disconnect() error

	// Connected reports current connectivity, consulted by
	// internal/tradestate.Manager.ValidateRequest's NO_CONNECTION check.
	Connected() bool

	// Balance returns the current balance for the given account/currency
	// pair.
	Balance(account domain.AccountType, currency domain.CurrencyType) (float64, error)

	// Symbol returns trading limits and the current payout percentage
	// for symbol.
	Symbol(symbol string) (domain.SymbolInfo, float64, error)

	// ResponseTimeoutSec is the platform's allowed wait, in seconds, for
	// a close-confirmation response before a trade is finalized with
	// LONG_RESPONSE_WAIT.
	ResponseTimeoutSec() int64

	// PlaceTrade submits req to the platform and fills in result's
	// OpenPrice/OptionHash/OptionID/Ping/Delay fields on success. The
	// caller (internal/queue) handles state-machine bookkeeping; this
	// method only returns a non-nil error to signal OPEN_ERROR.
	PlaceTrade(ctx context.Context, req *domain.TradeRequest, result *domain.TradeResult) error

	// SubscribeTicks registers handler to be invoked for every tick the
	// adapter receives. Returns an unsubscribe function.
	SubscribeTicks(handler func(domain.Tick)) (unsubscribe func(), err error)

	// Close releases all adapter resources permanently.
	Close() error
}

// Error wraps an adapter-level failure with the platform and operation
// that produced it, mirroring teacher's exchange.ExchangeError.
type Error struct {
	Platform  string
	Operation string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Platform, e.Operation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
