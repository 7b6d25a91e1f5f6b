package aggregation

import (
	"fmt"
	"time"

	"candle-collector/internal/domain"
)

// Window is a half-open time range [Start, End) in Unix milliseconds.
type Window struct {
	Start int64
	End   int64
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts int64) bool {
	return ts >= w.Start && ts < w.End
}

// WindowFunc selects the window aggregated by a tick at now.
type WindowFunc func(now time.Time, tf domain.Timeframe) Window

// Window policy names accepted by ParseWindowPolicy.
const (
	WindowPolicyAligned        = "aligned"
	WindowPolicyMinuteAnchored = "minute_anchored"
)

// AlignedWindow returns the most recently completed timeframe-aligned window:
// [floor(now/tf)*tf - tf, floor(now/tf)*tf).
func AlignedWindow(now time.Time, tf domain.Timeframe) Window {
	size := tf.DurationMs()
	end := now.UnixMilli() / size * size
	return Window{Start: end - size, End: end}
}

// MinuteAnchoredWindow starts at the current minute regardless of timeframe
// and spans one timeframe forward. Kept for compatibility with older candle
// series; most of the window lies in the future when the tick fires.
func MinuteAnchoredWindow(now time.Time, tf domain.Timeframe) Window {
	start := now.Truncate(time.Minute).UnixMilli()
	return Window{Start: start, End: start + tf.DurationMs()}
}

// ParseWindowPolicy resolves a window policy by name. Empty means aligned.
func ParseWindowPolicy(name string) (WindowFunc, error) {
	switch name {
	case "", WindowPolicyAligned:
		return AlignedWindow, nil
	case WindowPolicyMinuteAnchored:
		return MinuteAnchoredWindow, nil
	default:
		return nil, fmt.Errorf("unknown window policy %q", name)
	}
}
