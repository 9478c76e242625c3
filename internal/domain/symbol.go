package domain

// SymbolInfo описывает торгуемый символ и ограничения по нему,
// используется Account Info Provider для проверки доступности символа
// и сопутствующих параметров (payout, длительность и т.д.).
type SymbolInfo struct {
	Symbol         string
	Enabled        bool
	MinAmount      float64
	MaxAmount      float64
	MinRefund      float64
	MaxRefund      float64
	MinDuration    int64
	MaxDuration    int64
	MinPayout      float64
	SupportedTypes []OptionType
}

// SymbolsInfo - индекс SymbolInfo по имени символа.
type SymbolsInfo struct {
	bySymbol map[string]SymbolInfo
}

// NewSymbolsInfo строит индекс из списка символов.
func NewSymbolsInfo(symbols []SymbolInfo) *SymbolsInfo {
	idx := &SymbolsInfo{bySymbol: make(map[string]SymbolInfo, len(symbols))}
	for _, s := range symbols {
		idx.bySymbol[s.Symbol] = s
	}
	return idx
}

// Get возвращает информацию о символе, если он известен.
func (s *SymbolsInfo) Get(symbol string) (SymbolInfo, bool) {
	info, ok := s.bySymbol[symbol]
	return info, ok
}

// SupportsOption сообщает, торгуется ли данный тип опциона на символе.
func (info SymbolInfo) SupportsOption(opt OptionType) bool {
	for _, t := range info.SupportedTypes {
		if t == opt {
			return true
		}
	}
	return false
}
