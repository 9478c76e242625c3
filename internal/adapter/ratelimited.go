package adapter

import (
	"context"

	"optionx/internal/domain"
	"optionx/pkg/ratelimit"
)

// RateLimited wraps a PlatformAdapter so that PlaceTrade calls are
// throttled to the platform's own API rate limit - the same Token
// Bucket discipline teacher's pkg/ratelimit.RateLimiter documents for
// exchange order endpoints, applied here to binary-option platform
// APIs instead.
type RateLimited struct {
	PlatformAdapter
	limiter *ratelimit.RateLimiter
}

// NewRateLimited wraps pa with a token-bucket limiter of the given rate
// (requests/sec) and burst capacity.
func NewRateLimited(pa PlatformAdapter, rate, burst float64) *RateLimited {
	return &RateLimited{
		PlatformAdapter: pa,
		limiter:         ratelimit.NewRateLimiter(rate, burst),
	}
}

// PlaceTrade blocks for a token before delegating to the wrapped
// adapter, bounded by ctx.
func (r *RateLimited) PlaceTrade(ctx context.Context, req *domain.TradeRequest, result *domain.TradeResult) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return &Error{Platform: r.PlatformType().String(), Operation: "place_trade", Err: err}
	}
	return r.PlatformAdapter.PlaceTrade(ctx, req, result)
}

var _ PlatformAdapter = (*RateLimited)(nil)
