package normalization

import (
	"encoding/json"
	"fmt"

	"candle-collector/internal/domain"
)

// Column positions in a REST candle row.
const (
	colLow = iota
	colHigh
	colOpen
	colClose
	colAmount
	colQuantity
	colBuyTakerAmount
	colBuyTakerQuantity
	colTradeCount
	colTimestamp
	colWeightedAverage
	colInterval
	colStartTime

	minRowLen = colStartTime + 1
)

// ParseCandleRow converts one row of the REST candles endpoint. The row carries
// taker volume, so buy volume is the taker share and sell volume the remainder.
// The candle is labelled with the exchange interval name (e.g. MINUTE_1).
func ParseCandleRow(pair, interval string, row []json.RawMessage) (*domain.Candle, error) {
	if len(row) < minRowLen {
		return nil, fmt.Errorf("%w: candle row has %d columns, want at least %d", ErrMalformedFrame, len(row), minRowLen)
	}

	r := newFieldReader(map[string]json.RawMessage{
		"low":              row[colLow],
		"high":             row[colHigh],
		"open":             row[colOpen],
		"close":            row[colClose],
		"amount":           row[colAmount],
		"quantity":         row[colQuantity],
		"buyTakerAmount":   row[colBuyTakerAmount],
		"buyTakerQuantity": row[colBuyTakerQuantity],
		"startTime":        row[colStartTime],
	})

	low := r.positive("low")
	high := r.positive("high")
	open := r.positive("open")
	closePrice := r.positive("close")
	amount := r.nonNegative("amount")
	quantity := r.nonNegative("quantity")
	buyAmount := r.nonNegative("buyTakerAmount")
	buyQuantity := r.nonNegative("buyTakerQuantity")
	start := r.millis("startTime")

	if err := r.err(); err != nil {
		return nil, err
	}

	sellAmount := amount.Sub(buyAmount)
	sellQuantity := quantity.Sub(buyQuantity)
	if sellAmount.IsNegative() {
		return nil, ValidationErrors{{Field: "buyTakerAmount", Kind: KindOutOfRange, Value: buyAmount.String()}}
	}
	if sellQuantity.IsNegative() {
		return nil, ValidationErrors{{Field: "buyTakerQuantity", Kind: KindOutOfRange, Value: buyQuantity.String()}}
	}

	return &domain.Candle{
		Pair:      pair,
		TimeFrame: interval,
		Open:      open.InexactFloat64(),
		High:      high.InexactFloat64(),
		Low:       low.InexactFloat64(),
		Close:     closePrice.InexactFloat64(),
		BuyBase:   buyQuantity.InexactFloat64(),
		SellBase:  sellQuantity.InexactFloat64(),
		BuyQuote:  buyAmount.InexactFloat64(),
		SellQuote: sellAmount.InexactFloat64(),
		UTCBegin:  start,
	}, nil
}
