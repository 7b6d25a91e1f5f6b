package normalization

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candle-collector/internal/domain"
)

const tradeFrame = `{
	"channel": "trades",
	"data": [{
		"symbol": "BTC_USDT",
		"amount": "70",
		"takerSide": "buy",
		"quantity": "4",
		"createTime": 1648549609000,
		"price": "17.5",
		"id": "1648549609000-3",
		"ts": 1648549609003
	}]
}`

func TestParseTrade(t *testing.T) {
	tr, err := ParseTrade([]byte(tradeFrame))
	require.NoError(t, err)

	assert.Equal(t, "1648549609000-3", tr.TradeID)
	assert.Equal(t, "BTC_USDT", tr.Pair)
	assert.True(t, tr.Price.Equal(decimal.RequireFromString("17.5")))
	assert.True(t, tr.Quantity.Equal(decimal.NewFromInt(4)))
	assert.True(t, tr.Amount.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, domain.SideBuy, tr.Side)
	assert.Equal(t, int64(1648549609003), tr.EventTime)
	assert.Equal(t, int64(1648549609000), tr.CreateTime)
}

func TestParseTrade_IntegerID(t *testing.T) {
	payload := `{"channel":"trades","data":[{"symbol":"ETH_USDT","amount":"10","takerSide":"SELL","quantity":"1","price":"10","id":194350542,"ts":1000}]}`

	tr, err := ParseTrade([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "194350542", tr.TradeID)
	assert.Equal(t, domain.SideSell, tr.Side)
	// createTime absent: falls back to ts
	assert.Equal(t, int64(1000), tr.CreateTime)
}

func TestParseTrade_FieldErrors(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
		kind  ErrorKind
	}{
		{"missing price", `{"symbol":"A_B","amount":"1","quantity":"1","takerSide":"buy","id":"1","ts":1}`, "price", KindMissing},
		{"null price", `{"symbol":"A_B","price":null,"amount":"1","quantity":"1","takerSide":"buy","id":"1","ts":1}`, "price", KindMissing},
		{"zero price", `{"symbol":"A_B","price":"0","amount":"1","quantity":"1","takerSide":"buy","id":"1","ts":1}`, "price", KindOutOfRange},
		{"missing quantity", `{"symbol":"A_B","price":"1","amount":"1","takerSide":"buy","id":"1","ts":1}`, "quantity", KindMissing},
		{"bad side", `{"symbol":"A_B","price":"1","amount":"1","quantity":"1","takerSide":"hold","id":"1","ts":1}`, "takerSide", KindUnparsable},
		{"object id", `{"symbol":"A_B","price":"1","amount":"1","quantity":"1","takerSide":"buy","id":{},"ts":1}`, "id", KindInvalidType},
		{"fractional id", `{"symbol":"A_B","price":"1","amount":"1","quantity":"1","takerSide":"buy","id":1.5,"ts":1}`, "id", KindUnparsable},
		{"negative ts", `{"symbol":"A_B","price":"1","amount":"1","quantity":"1","takerSide":"buy","id":"1","ts":-5}`, "ts", KindOutOfRange},
		{"empty symbol", `{"symbol":"","price":"1","amount":"1","quantity":"1","takerSide":"buy","id":"1","ts":1}`, "symbol", KindMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `{"channel":"trades","data":[` + tt.data + `]}`
			_, err := ParseTrade([]byte(payload))

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			fe := verrs.Field(tt.field)
			require.NotNil(t, fe, "no error for %s in %v", tt.field, verrs)
			assert.Equal(t, tt.kind, fe.Kind)

			_, ok := NormalizeTrade([]byte(payload))
			assert.False(t, ok)
		})
	}
}

func TestTradeSchema_LenientDerivesQuantity(t *testing.T) {
	payload := `{"channel":"trades","data":[{"symbol":"DOGE_USDT","price":"0.25","amount":"5","takerSide":"buy","id":"9","ts":1}]}`

	schema := TradeSchema{RequireQuantity: false}
	tr, err := schema.Parse([]byte(payload))
	require.NoError(t, err)
	assert.True(t, tr.Quantity.Equal(decimal.NewFromInt(20)), "got %s", tr.Quantity)

	_, err = ParseTrade([]byte(payload))
	assert.Error(t, err)
}

func TestParseTrade_Envelope(t *testing.T) {
	_, err := ParseTrade([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = ParseTrade([]byte(`{"channel":"trades","data":[]}`))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestReason(t *testing.T) {
	_, err := ParseTrade([]byte(`{"event":"pong"}`))
	assert.Equal(t, "control", Reason(err))

	_, err = ParseTrade([]byte(`{`))
	assert.Equal(t, "malformed", Reason(err))

	_, err = ParseTrade([]byte(`{"channel":"trades","data":[{"symbol":"A_B"}]}`))
	assert.Equal(t, "missing", Reason(err))

	assert.Equal(t, "", Reason(nil))
}
