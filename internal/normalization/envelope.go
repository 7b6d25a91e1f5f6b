package normalization

import (
	"encoding/json"
	"fmt"
)

// envelope is the outer shape of every streamed frame.
type envelope struct {
	Event   string            `json:"event"`
	Channel string            `json:"channel"`
	Data    []json.RawMessage `json:"data"`
}

// decodeEnvelope returns the channel and the first data record. Later records
// in the same frame are not consumed.
func decodeEnvelope(payload []byte) (string, map[string]json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Event != "" && len(env.Data) == 0 {
		return "", nil, fmt.Errorf("%w: %s", ErrControlFrame, env.Event)
	}
	if len(env.Data) == 0 {
		return env.Channel, nil, ErrNoData
	}

	var rec map[string]json.RawMessage
	if err := json.Unmarshal(env.Data[0], &rec); err != nil || rec == nil {
		return env.Channel, nil, fmt.Errorf("%w: data[0] is not an object", ErrMalformedFrame)
	}
	return env.Channel, rec, nil
}
