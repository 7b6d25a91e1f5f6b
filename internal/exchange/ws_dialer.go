package exchange

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWSEndpoint is the exchange public WebSocket feed.
const DefaultWSEndpoint = "wss://ws.poloniex.com/ws/public"

// WSDialer dials the feed with gorilla/websocket.
type WSDialer struct {
	Endpoint         string
	HandshakeTimeout time.Duration
	Header           http.Header
	// ReadLimit caps a single inbound frame in bytes. Zero means no limit.
	ReadLimit int64
}

// NewWSDialer creates a dialer with a 10s handshake timeout.
func NewWSDialer(endpoint string) *WSDialer {
	if endpoint == "" {
		endpoint = DefaultWSEndpoint
	}
	return &WSDialer{
		Endpoint:         endpoint,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Dial opens one connection. ctx bounds the handshake only.
func (d *WSDialer) Dial(ctx context.Context) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, d.Endpoint, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %w (status %d)", d.Endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", d.Endpoint, err)
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}
	return conn, nil
}

var _ Dialer = (*WSDialer)(nil)
