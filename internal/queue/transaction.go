package queue

import "optionx/internal/domain"

// transaction pairs a request with its evolving result while the trade is
// pending admission or open - the Go analogue of original_source's
// TradeTransactionEvent payload held inside TradeQueueManager's lists.
type transaction struct {
	request *domain.TradeRequest
	result  *domain.TradeResult
}
