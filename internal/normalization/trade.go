package normalization

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"candle-collector/internal/domain"
)

// TradeSchema controls which trade fields are mandatory.
type TradeSchema struct {
	// RequireQuantity rejects records without "quantity". When false the
	// quantity is derived as amount / price.
	RequireQuantity bool
}

// DefaultTradeSchema requires every field the exchange documents.
var DefaultTradeSchema = TradeSchema{RequireQuantity: true}

// ParseTrade converts a trades channel frame using DefaultTradeSchema.
func ParseTrade(payload []byte) (*domain.Trade, error) {
	return DefaultTradeSchema.Parse(payload)
}

// NormalizeTrade is ParseTrade with every failure reported as "no record".
func NormalizeTrade(payload []byte) (*domain.Trade, bool) {
	t, err := ParseTrade(payload)
	if err != nil {
		return nil, false
	}
	return t, true
}

// Parse converts a trades channel frame into a Trade.
func (s TradeSchema) Parse(payload []byte) (*domain.Trade, error) {
	_, rec, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	return s.tradeFromRecord(rec)
}

func (s TradeSchema) tradeFromRecord(rec map[string]json.RawMessage) (*domain.Trade, error) {
	r := newFieldReader(rec)

	pair := r.str("symbol")
	price := r.positive("price")
	amount := r.nonNegative("amount")

	var quantity decimal.Decimal
	if s.RequireQuantity || r.has("quantity") {
		quantity = r.nonNegative("quantity")
	}

	side := parseSide(r, "takerSide")
	tradeID := r.id("id")
	ts := r.millis("ts")

	createTime := ts
	if r.has("createTime") {
		createTime = r.millis("createTime")
	}

	if err := r.err(); err != nil {
		return nil, err
	}

	if !s.RequireQuantity && !r.has("quantity") {
		quantity = amount.Div(price)
	}

	return &domain.Trade{
		TradeID:    tradeID,
		Pair:       pair,
		Price:      price,
		Quantity:   quantity,
		Amount:     amount,
		Side:       side,
		EventTime:  ts,
		CreateTime: createTime,
	}, nil
}

// parseSide accepts "buy" or "sell" in any case.
func parseSide(r *fieldReader, field string) domain.Side {
	n := len(r.errs)
	s := r.str(field)
	if len(r.errs) != n {
		return ""
	}
	side := domain.Side(strings.ToLower(s))
	if !side.IsValid() {
		r.fail(field, KindUnparsable, json.RawMessage(`"`+s+`"`))
		return ""
	}
	return side
}
