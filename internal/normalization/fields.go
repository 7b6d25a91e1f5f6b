package normalization

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// fieldReader pulls typed fields out of one JSON object and collects every
// failure instead of stopping at the first.
type fieldReader struct {
	rec  map[string]json.RawMessage
	errs ValidationErrors
}

func newFieldReader(rec map[string]json.RawMessage) *fieldReader {
	return &fieldReader{rec: rec}
}

func (r *fieldReader) fail(field string, kind ErrorKind, raw json.RawMessage) {
	r.errs = append(r.errs, &FieldError{Field: field, Kind: kind, Value: string(raw)})
}

// raw returns the field value, treating JSON null as absent.
func (r *fieldReader) raw(field string) (json.RawMessage, bool) {
	v, ok := r.rec[field]
	if !ok {
		return nil, false
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil, false
	}
	return v, true
}

func (r *fieldReader) has(field string) bool {
	_, ok := r.raw(field)
	return ok
}

func (r *fieldReader) err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs
}

// str reads a non-empty JSON string.
func (r *fieldReader) str(field string) string {
	v, ok := r.raw(field)
	if !ok {
		r.fail(field, KindMissing, nil)
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		r.fail(field, KindInvalidType, v)
		return ""
	}
	if s == "" {
		r.fail(field, KindMissing, v)
	}
	return s
}

// number reads a decimal given either as a JSON number or a numeric string.
func (r *fieldReader) number(field string) decimal.Decimal {
	v, ok := r.raw(field)
	if !ok {
		r.fail(field, KindMissing, nil)
		return decimal.Zero
	}
	return r.parseNumber(field, v)
}

func (r *fieldReader) parseNumber(field string, v json.RawMessage) decimal.Decimal {
	text := string(v)
	switch v[0] {
	case '"':
		if err := json.Unmarshal(v, &text); err != nil {
			r.fail(field, KindInvalidType, v)
			return decimal.Zero
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
	default:
		r.fail(field, KindInvalidType, v)
		return decimal.Zero
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		r.fail(field, KindUnparsable, v)
		return decimal.Zero
	}
	return d
}

// nonNegative reads a number that must be >= 0.
func (r *fieldReader) nonNegative(field string) decimal.Decimal {
	n := len(r.errs)
	d := r.number(field)
	if len(r.errs) == n && d.IsNegative() {
		r.fail(field, KindOutOfRange, json.RawMessage(d.String()))
	}
	return d
}

// positive reads a number that must be > 0.
func (r *fieldReader) positive(field string) decimal.Decimal {
	n := len(r.errs)
	d := r.number(field)
	if len(r.errs) == n && !d.IsPositive() {
		r.fail(field, KindOutOfRange, json.RawMessage(d.String()))
	}
	return d
}

// millis reads a non-negative integer timestamp in milliseconds.
func (r *fieldReader) millis(field string) int64 {
	n := len(r.errs)
	d := r.number(field)
	if len(r.errs) != n {
		return 0
	}
	if !d.IsInteger() {
		r.fail(field, KindUnparsable, json.RawMessage(d.String()))
		return 0
	}
	if d.IsNegative() {
		r.fail(field, KindOutOfRange, json.RawMessage(d.String()))
		return 0
	}
	return d.IntPart()
}

// id reads an identifier given as a JSON string or integer.
func (r *fieldReader) id(field string) string {
	v, ok := r.raw(field)
	if !ok {
		r.fail(field, KindMissing, nil)
		return ""
	}
	if v[0] == '"' {
		return r.str(field)
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		r.fail(field, KindInvalidType, v)
		return ""
	}
	if _, err := n.Int64(); err != nil {
		r.fail(field, KindUnparsable, v)
		return ""
	}
	return n.String()
}
