package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Trade represents a single exchange trade.
// Corresponds to trades table in PostgreSQL.
type Trade struct {
	TradeID    string          // exchange trade id, unique per pair
	Pair       string          // trading pair, e.g. BTC_USDT
	Price      decimal.Decimal // execution price
	Quantity   decimal.Decimal // base asset quantity
	Amount     decimal.Decimal // quote asset amount
	Side       Side            // taker side
	EventTime  int64           // exchange event timestamp (ms)
	CreateTime int64           // exchange creation timestamp (ms)
}

// QuoteAmount returns the quote-asset amount of the trade.
// Feeds that omit the amount fall back to price * quantity.
func (t *Trade) QuoteAmount() decimal.Decimal {
	if !t.Amount.IsZero() {
		return t.Amount
	}
	return t.Price.Mul(t.Quantity)
}

// CompareTradeIDs orders trade ids numerically when both are unsigned
// integers, so "9" sorts before "10". Other ids compare lexically.
func CompareTradeIDs(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// Side is the taker side of a trade.
type Side string

// Side constants
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// String returns the string representation of Side.
func (s Side) String() string {
	return string(s)
}

// IsValid checks if the side is a valid value.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}
