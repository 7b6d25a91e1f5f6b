package domain

import "strings"

// Channel names of the exchange public feed.
const (
	ChannelTrades       = "trades"
	ChannelCandlePrefix = "candles"
)

// Subscription is the set of channels and symbols requested once per connection.
type Subscription struct {
	Channels []string
	Symbols  []string
}

// TradeSubscription builds the trades subscription for the given pairs.
func TradeSubscription(pairs []string) Subscription {
	return Subscription{
		Channels: []string{ChannelTrades},
		Symbols:  append([]string(nil), pairs...),
	}
}

// CandleSubscription builds the candles subscription for the given pairs and timeframes.
func CandleSubscription(pairs []string, timeframes []Timeframe) Subscription {
	channels := make([]string, 0, len(timeframes))
	for _, tf := range timeframes {
		channels = append(channels, CandleChannel(tf))
	}
	return Subscription{
		Channels: channels,
		Symbols:  append([]string(nil), pairs...),
	}
}

// CandleChannel returns the candle channel name of a timeframe, e.g. "candles_minute_1".
func CandleChannel(tf Timeframe) string {
	return ChannelCandlePrefix + "_" + strings.ToLower(tf.Interval)
}
