package aggregation

import (
	"github.com/shopspring/decimal"

	"candle-collector/internal/domain"
)

// ComputeCandle builds the candle of one pair over one window.
// Trades outside [w.Start, w.End) are ignored. Returns nil when no trade
// falls inside the window; gaps are never filled with flat candles.
func ComputeCandle(pair string, tf domain.Timeframe, w Window, trades []*domain.Trade) *domain.Candle {
	inWindow := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t != nil && w.Contains(t.EventTime) {
			inWindow = append(inWindow, t)
		}
	}
	if len(inWindow) == 0 {
		return nil
	}
	SortTrades(inWindow)

	high := inWindow[0].Price
	low := inWindow[0].Price
	var buyBase, sellBase, buyQuote, sellQuote decimal.Decimal

	for _, t := range inWindow {
		if t.Price.GreaterThan(high) {
			high = t.Price
		}
		if t.Price.LessThan(low) {
			low = t.Price
		}

		switch t.Side {
		case domain.SideBuy:
			buyBase = buyBase.Add(t.Quantity)
			buyQuote = buyQuote.Add(t.QuoteAmount())
		case domain.SideSell:
			sellBase = sellBase.Add(t.Quantity)
			sellQuote = sellQuote.Add(t.QuoteAmount())
		}
	}

	return &domain.Candle{
		Pair:      pair,
		TimeFrame: tf.Label,
		Open:      inWindow[0].Price.InexactFloat64(),
		High:      high.InexactFloat64(),
		Low:       low.InexactFloat64(),
		Close:     inWindow[len(inWindow)-1].Price.InexactFloat64(),
		BuyBase:   buyBase.InexactFloat64(),
		SellBase:  sellBase.InexactFloat64(),
		BuyQuote:  buyQuote.InexactFloat64(),
		SellQuote: sellQuote.InexactFloat64(),
		UTCBegin:  w.Start,
	}
}
