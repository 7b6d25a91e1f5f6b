package ingestion

import (
	"fmt"
	"sync"
	"time"

	"candle-collector/internal/exchange"
)

// session owns one connection. Reads happen on a single goroutine; every
// write goes through send, which serializes writers under mu.
type session struct {
	conn         exchange.Conn
	writeTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
}

func newSession(conn exchange.Conn, writeTimeout time.Duration) *session {
	return &session{conn: conn, writeTimeout: writeTimeout}
}

// send writes one text frame.
func (s *session) send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	return s.conn.WriteMessage(exchange.TextMessage, data)
}

// read blocks for the next frame, applying readTimeout when set.
func (s *session) read(readTimeout time.Duration) (int, []byte, error) {
	if readTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return 0, nil, fmt.Errorf("set read deadline: %w", err)
		}
	}
	return s.conn.ReadMessage()
}

// close closes the connection once; a blocked read returns with an error.
func (s *session) close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}
