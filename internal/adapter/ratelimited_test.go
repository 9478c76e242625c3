package adapter_test

import (
	"context"
	"testing"
	"time"

	"optionx/internal/adapter"
	"optionx/internal/adapter/demo"
	"optionx/internal/domain"
)

// TestRateLimitedDelaysBeyondBurst проверяет, что запросы сверх burst
// ждут пополнения ведра прежде, чем дойти до обёрнутого адаптера.
func TestRateLimitedDelaysBeyondBurst(t *testing.T) {
	base := demo.New()
	limited := adapter.NewRateLimited(base, 10, 1) // 1 токен в ведре, 10/сек пополнение

	req := &domain.TradeRequest{}

	start := time.Now()
	for i := 0; i < 3; i++ {
		result := &domain.TradeResult{}
		if err := limited.PlaceTrade(context.Background(), req, result); err != nil {
			t.Fatalf("PlaceTrade #%d failed: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// burst=1 на три запроса с пополнением 10/сек означает минимум ~200мс
	// ожидания на двух последних запросах.
	if elapsed < 150*time.Millisecond {
		t.Errorf("expected rate limiting to introduce delay, elapsed only %v", elapsed)
	}
}

// TestRateLimitedRespectsContextCancellation проверяет, что отменённый
// контекст прерывает ожидание токена и не достигает обёрнутого адаптера.
func TestRateLimitedRespectsContextCancellation(t *testing.T) {
	base := demo.New()
	limited := adapter.NewRateLimited(base, 1, 1)

	// Исчерпываем burst первым запросом.
	if err := limited.PlaceTrade(context.Background(), &domain.TradeRequest{}, &domain.TradeResult{}); err != nil {
		t.Fatalf("first PlaceTrade failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := limited.PlaceTrade(ctx, &domain.TradeRequest{}, &domain.TradeResult{})
	if err == nil {
		t.Fatal("expected context deadline to produce an error")
	}
}

var _ adapter.PlatformAdapter = (*adapter.RateLimited)(nil)
