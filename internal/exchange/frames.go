package exchange

import (
	"encoding/json"
	"fmt"

	"candle-collector/internal/domain"
)

// controlFrame is an outbound request to the feed.
type controlFrame struct {
	Event   string   `json:"event"`
	Channel []string `json:"channel,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
}

// SubscribeFrame renders {"event":"subscribe","channel":[...],"symbols":[...]}.
func SubscribeFrame(sub domain.Subscription) ([]byte, error) {
	if len(sub.Channels) == 0 {
		return nil, fmt.Errorf("subscribe: no channels")
	}
	if len(sub.Symbols) == 0 {
		return nil, fmt.Errorf("subscribe: no symbols")
	}
	data, err := json.Marshal(controlFrame{
		Event:   "subscribe",
		Channel: sub.Channels,
		Symbols: sub.Symbols,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal subscribe frame: %w", err)
	}
	return data, nil
}

// PingFrame is the application-level heartbeat the feed expects.
var PingFrame = []byte(`{"event":"ping"}`)
