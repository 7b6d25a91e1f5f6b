package normalization

import (
	"encoding/json"
	"strings"

	"candle-collector/internal/domain"
)

// ParseCandle converts a candles_* channel frame into a Candle.
//
// The timeframe label is the channel with its first "_" segment removed,
// upper-cased: "candles_minute_1" becomes "MINUTE_1". The stream does not
// split volume by taker side, so quantity and amount are booked entirely as
// sell volume and the buy side is zero.
func ParseCandle(payload []byte) (*domain.Candle, error) {
	channel, rec, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	label, ok := timeframeLabel(channel)
	if !ok {
		return nil, ErrMissingChannel
	}
	return candleFromRecord(label, rec)
}

// NormalizeCandle is ParseCandle with every failure reported as "no record".
func NormalizeCandle(payload []byte) (*domain.Candle, bool) {
	c, err := ParseCandle(payload)
	if err != nil {
		return nil, false
	}
	return c, true
}

func candleFromRecord(label string, rec map[string]json.RawMessage) (*domain.Candle, error) {
	r := newFieldReader(rec)

	pair := r.str("symbol")
	open := r.positive("open")
	high := r.positive("high")
	low := r.positive("low")
	closePrice := r.positive("close")
	quantity := r.nonNegative("quantity")
	amount := r.nonNegative("amount")
	start := r.millis("startTime")

	if err := r.err(); err != nil {
		return nil, err
	}
	if high.LessThan(low) {
		return nil, ValidationErrors{{Field: "high", Kind: KindOutOfRange, Value: high.String()}}
	}

	return &domain.Candle{
		Pair:      pair,
		TimeFrame: label,
		Open:      open.InexactFloat64(),
		High:      high.InexactFloat64(),
		Low:       low.InexactFloat64(),
		Close:     closePrice.InexactFloat64(),
		SellBase:  quantity.InexactFloat64(),
		SellQuote: amount.InexactFloat64(),
		UTCBegin:  start,
	}, nil
}

// timeframeLabel derives "MINUTE_1" from "candles_minute_1".
func timeframeLabel(channel string) (string, bool) {
	_, rest, found := strings.Cut(channel, "_")
	if !found || rest == "" {
		return "", false
	}
	return strings.ToUpper(rest), true
}
