package aggregation

import (
	"sort"

	"candle-collector/internal/domain"
)

// SortTrades orders trades by (event_time ASC, trade_id ASC).
func SortTrades(trades []*domain.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return compareTrades(trades[i], trades[j]) < 0
	})
}

// compareTrades returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (event_time ASC, trade_id ASC)
func compareTrades(a, b *domain.Trade) int {
	if a.EventTime != b.EventTime {
		if a.EventTime < b.EventTime {
			return -1
		}
		return 1
	}
	return domain.CompareTradeIDs(a.TradeID, b.TradeID)
}
