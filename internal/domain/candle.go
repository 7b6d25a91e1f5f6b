package domain

// Candle is an OHLC summary of one pair over one window.
// Corresponds to candles table in PostgreSQL and ClickHouse.
//
// Uniqueness key: (Pair, TimeFrame, UTCBegin).
type Candle struct {
	Pair      string // trading pair
	TimeFrame string // timeframe label: "1m" for aggregated, "MINUTE_1" for exchange candles
	Open      float64
	High      float64
	Low       float64
	Close     float64
	BuyBase   float64 // taker-buy volume in base asset
	SellBase  float64 // taker-sell volume in base asset
	BuyQuote  float64 // taker-buy volume in quote asset
	SellQuote float64 // taker-sell volume in quote asset
	UTCBegin  int64   // window start (ms)
}

// CandleKey identifies a candle row.
type CandleKey struct {
	Pair      string
	TimeFrame string
	UTCBegin  int64
}

// Key returns the uniqueness key of the candle.
func (c *Candle) Key() CandleKey {
	return CandleKey{Pair: c.Pair, TimeFrame: c.TimeFrame, UTCBegin: c.UTCBegin}
}
