package domain

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe is a candle window length.
type Timeframe struct {
	Label    string        // label of locally aggregated candles
	Interval string        // exchange interval name, also the streamed candle label
	Duration time.Duration // window length
}

// Supported timeframes.
var (
	Minute1  = Timeframe{Label: "1m", Interval: "MINUTE_1", Duration: time.Minute}
	Minute15 = Timeframe{Label: "15m", Interval: "MINUTE_15", Duration: 15 * time.Minute}
	Hour1    = Timeframe{Label: "1h", Interval: "HOUR_1", Duration: time.Hour}
	Day1     = Timeframe{Label: "1d", Interval: "DAY_1", Duration: 24 * time.Hour}
)

var knownTimeframes = []Timeframe{Minute1, Minute15, Hour1, Day1}

// DefaultTimeframes returns the timeframes tracked by default.
func DefaultTimeframes() []Timeframe {
	out := make([]Timeframe, len(knownTimeframes))
	copy(out, knownTimeframes)
	return out
}

// ParseTimeframe resolves a timeframe from its label ("15m") or exchange interval ("MINUTE_15").
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	for _, tf := range knownTimeframes {
		if strings.EqualFold(s, tf.Label) || strings.EqualFold(s, tf.Interval) {
			return tf, nil
		}
	}
	return Timeframe{}, fmt.Errorf("unknown timeframe %q", s)
}

// DurationMs returns the window length in milliseconds.
func (tf Timeframe) DurationMs() int64 {
	return tf.Duration.Milliseconds()
}

// String returns the timeframe label.
func (tf Timeframe) String() string {
	return tf.Label
}
