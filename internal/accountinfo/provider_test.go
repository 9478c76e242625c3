package accountinfo_test

import (
	"errors"
	"testing"

	"optionx/internal/accountinfo"
	"optionx/internal/domain"
)

type stubBackend struct {
	balance      float64
	balanceErr   error
	symbol       domain.SymbolInfo
	payout       float64
	symbolErr    error
	responseSec  int64
	platformName domain.PlatformType
}

func (b *stubBackend) Balance(domain.AccountType, domain.CurrencyType) (float64, error) {
	return b.balance, b.balanceErr
}

func (b *stubBackend) Symbol(string) (domain.SymbolInfo, float64, error) {
	return b.symbol, b.payout, b.symbolErr
}

func (b *stubBackend) ResponseTimeoutSec() int64 { return b.responseSec }

func (b *stubBackend) PlatformType() domain.PlatformType { return b.platformName }

func TestRefreshAndLookupBalance(t *testing.T) {
	backend := &stubBackend{balance: 250, platformName: domain.PlatformDemo}
	p := accountinfo.New(backend)

	if _, ok := p.LookupBalance(domain.AccountDemo, domain.CurrencyUSD); ok {
		t.Fatal("LookupBalance before refresh should miss")
	}

	if err := p.RefreshBalance(domain.AccountDemo, domain.CurrencyUSD); err != nil {
		t.Fatalf("RefreshBalance: %v", err)
	}

	got, ok := p.LookupBalance(domain.AccountDemo, domain.CurrencyUSD)
	if !ok || got != 250 {
		t.Fatalf("LookupBalance() = (%v, %v), want (250, true)", got, ok)
	}
}

func TestRefreshBalancePropagatesBackendError(t *testing.T) {
	wantErr := errors.New("network down")
	backend := &stubBackend{balanceErr: wantErr}
	p := accountinfo.New(backend)

	if err := p.RefreshBalance(domain.AccountDemo, domain.CurrencyUSD); !errors.Is(err, wantErr) {
		t.Fatalf("RefreshBalance() error = %v, want %v", err, wantErr)
	}
	if _, ok := p.LookupBalance(domain.AccountDemo, domain.CurrencyUSD); ok {
		t.Fatal("a failed refresh must not populate the cache")
	}
}

func TestRefreshAndLookupSymbol(t *testing.T) {
	info := domain.SymbolInfo{Symbol: "EURUSD", MaxAmount: 500, SupportedTypes: []domain.OptionType{domain.OptionSprint}}
	backend := &stubBackend{symbol: info, payout: 82}
	p := accountinfo.New(backend)

	if err := p.RefreshSymbol("EURUSD"); err != nil {
		t.Fatalf("RefreshSymbol: %v", err)
	}

	gotInfo, gotPayout, ok := p.LookupSymbol("EURUSD")
	if !ok || gotPayout != 82 || gotInfo.MaxAmount != 500 {
		t.Fatalf("LookupSymbol() = (%+v, %v, %v)", gotInfo, gotPayout, ok)
	}
	if _, _, ok := p.LookupSymbol("GBPJPY"); ok {
		t.Fatal("LookupSymbol for a never-refreshed symbol should miss")
	}
}

func TestResponseTimeoutSec(t *testing.T) {
	backend := &stubBackend{responseSec: 20}
	p := accountinfo.New(backend)
	if got := p.ResponseTimeoutSec(); got != 20 {
		t.Fatalf("ResponseTimeoutSec() = %d, want 20", got)
	}
}

func TestGetGenericAccessors(t *testing.T) {
	info := domain.SymbolInfo{
		MinAmount:      1,
		MaxAmount:      500,
		MinRefund:      0,
		MaxRefund:      100,
		MinDuration:    30,
		MaxDuration:    300,
		SupportedTypes: []domain.OptionType{domain.OptionSprint},
	}
	backend := &stubBackend{balance: 1000, symbol: info, payout: 75}
	p := accountinfo.New(backend)
	if err := p.RefreshBalance(domain.AccountDemo, domain.CurrencyUSD); err != nil {
		t.Fatalf("RefreshBalance: %v", err)
	}
	if err := p.RefreshSymbol("EURUSD"); err != nil {
		t.Fatalf("RefreshSymbol: %v", err)
	}

	balReq := domain.AccountInfoRequest{InfoType: domain.InfoBalance, AccountType: domain.AccountDemo, Currency: domain.CurrencyUSD}
	if v, ok := accountinfo.Get[float64](p, balReq); !ok || v != 1000 {
		t.Errorf("Get[float64](InfoBalance) = (%v, %v), want (1000, true)", v, ok)
	}

	maxReq := domain.AccountInfoRequest{InfoType: domain.InfoMaxAmount, Symbol: "EURUSD"}
	if v, ok := accountinfo.Get[float64](p, maxReq); !ok || v != 500 {
		t.Errorf("Get[float64](InfoMaxAmount) = (%v, %v), want (500, true)", v, ok)
	}

	durReq := domain.AccountInfoRequest{InfoType: domain.InfoMaxDuration, Symbol: "EURUSD"}
	if v, ok := accountinfo.Get[int64](p, durReq); !ok || v != 300 {
		t.Errorf("Get[int64](InfoMaxDuration) = (%v, %v), want (300, true)", v, ok)
	}

	availReq := domain.AccountInfoRequest{InfoType: domain.InfoSymbolAvailable, Symbol: "EURUSD"}
	if v, ok := accountinfo.Get[bool](p, availReq); !ok || !v {
		t.Errorf("Get[bool](InfoSymbolAvailable) = (%v, %v), want (true, true)", v, ok)
	}

	missingReq := domain.AccountInfoRequest{InfoType: domain.InfoSymbolAvailable, Symbol: "GBPJPY"}
	if v, ok := accountinfo.Get[bool](p, missingReq); !ok || v {
		t.Errorf("Get[bool](InfoSymbolAvailable) for unknown symbol = (%v, %v), want (false, true)", v, ok)
	}

	optReq := domain.AccountInfoRequest{InfoType: domain.InfoOptionTypeAvailable, Symbol: "EURUSD", OptionType: domain.OptionClassic}
	if v, ok := accountinfo.Get[bool](p, optReq); !ok || v {
		t.Errorf("Get[bool](InfoOptionTypeAvailable, unsupported) = (%v, %v), want (false, true)", v, ok)
	}
}

func TestGetForTrade(t *testing.T) {
	info := domain.SymbolInfo{MaxAmount: 500}
	backend := &stubBackend{symbol: info, payout: 60}
	p := accountinfo.New(backend)
	if err := p.RefreshSymbol("EURUSD"); err != nil {
		t.Fatalf("RefreshSymbol: %v", err)
	}

	req := &domain.TradeRequest{Symbol: "EURUSD"}
	v, ok := accountinfo.GetForTrade[float64](p, domain.InfoPayoutPercent, req, 0)
	if !ok || v != 60 {
		t.Fatalf("GetForTrade(InfoPayoutPercent) = (%v, %v), want (60, true)", v, ok)
	}
}
