package normalization

import (
	"errors"
	"fmt"
	"strings"
)

// Envelope errors. Frames failing with these never reach field validation.
var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrNoData         = errors.New("frame has no data records")
	ErrMissingChannel = errors.New("frame has no channel")
	// ErrControlFrame marks event frames (subscribe acks, pong, errors) that carry no market data.
	ErrControlFrame = errors.New("control frame")
)

// ErrorKind classifies a field validation failure.
type ErrorKind int

const (
	KindMissing ErrorKind = iota + 1
	KindInvalidType
	KindUnparsable
	KindOutOfRange
)

// String returns a metric-friendly name.
func (k ErrorKind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindInvalidType:
		return "invalid_type"
	case KindUnparsable:
		return "unparsable"
	case KindOutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// FieldError describes one invalid field of a data record.
type FieldError struct {
	Field string
	Kind  ErrorKind
	// Value is the raw JSON text, empty when the field is missing.
	Value string
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("field %q: %s", e.Field, e.Kind)
	}
	return fmt.Sprintf("field %q: %s (%s)", e.Field, e.Kind, e.Value)
}

// ValidationErrors lists every invalid field of a record.
type ValidationErrors []*FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "invalid record: " + strings.Join(parts, "; ")
}

// Field returns the error for the named field, or nil.
func (v ValidationErrors) Field(name string) *FieldError {
	for _, e := range v {
		if e.Field == name {
			return e
		}
	}
	return nil
}

// Reason maps a parse error to a short label for drop metrics.
func Reason(err error) string {
	var verrs ValidationErrors
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrControlFrame):
		return "control"
	case errors.Is(err, ErrMalformedFrame):
		return "malformed"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrMissingChannel):
		return "missing_channel"
	case errors.As(err, &verrs) && len(verrs) > 0:
		return verrs[0].Kind.String()
	default:
		return "other"
	}
}
