// Package exchange holds the transport to the exchange public API: the
// WebSocket feed, its control frames, and the REST candle history endpoint.
package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

// Message types, same values as gorilla/websocket.
const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage
)

// Conn is one open WebSocket connection. *websocket.Conn satisfies it.
// ReadMessage may run concurrently with one writer; writes must be serialized
// by the caller.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens connections to the feed.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// IsCloseError reports whether err is a close frame from the peer rather than
// a transport failure.
func IsCloseError(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce)
}
