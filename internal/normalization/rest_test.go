package normalization

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRow(t *testing.T, s string) []json.RawMessage {
	t.Helper()
	var row []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &row))
	return row
}

func TestParseCandleRow(t *testing.T) {
	row := decodeRow(t, `["45218.5","47590.82","47009.11","45516.6","13337973.2","287.9","6680546.1","144.2",5279,1648665600000,"46328.71","MINUTE_15",1648664700000,1648665599999]`)

	c, err := ParseCandleRow("BTC_USDT", "MINUTE_15", row)
	require.NoError(t, err)

	assert.Equal(t, "BTC_USDT", c.Pair)
	assert.Equal(t, "MINUTE_15", c.TimeFrame)
	assert.Equal(t, 47009.11, c.Open)
	assert.Equal(t, 47590.82, c.High)
	assert.Equal(t, 45218.5, c.Low)
	assert.Equal(t, 45516.6, c.Close)
	assert.Equal(t, int64(1648664700000), c.UTCBegin)

	assert.InDelta(t, 144.2, c.BuyBase, 1e-9)
	assert.InDelta(t, 143.7, c.SellBase, 1e-9)
	assert.InDelta(t, 6680546.1, c.BuyQuote, 1e-6)
	assert.InDelta(t, 6657427.1, c.SellQuote, 1e-6)
}

func TestParseCandleRow_ShortRow(t *testing.T) {
	row := decodeRow(t, `["1","2","1","2"]`)

	_, err := ParseCandleRow("BTC_USDT", "MINUTE_1", row)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestParseCandleRow_TakerExceedsTotal(t *testing.T) {
	row := decodeRow(t, `["1","2","1","2","10","5","11","1",1,0,"1","MINUTE_1",0,59999]`)

	_, err := ParseCandleRow("BTC_USDT", "MINUTE_1", row)
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, KindOutOfRange, verrs.Field("buyTakerAmount").Kind)
}
