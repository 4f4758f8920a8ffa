package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// Conn is one board client. Outbound frames go through a buffered channel
// drained by a single write pump, so Send never blocks the caller.
type Conn struct {
	id           string
	send         chan []byte
	done         chan struct{}
	writeTimeout time.Duration

	write   func(ctx context.Context, payload []byte) error
	closeWS func(code websocket.StatusCode, reason string)

	closeOnce sync.Once
}

func newConn(id string, c *websocket.Conn, buffer int, writeTimeout time.Duration) *Conn {
	return &Conn{
		id:           id,
		send:         make(chan []byte, buffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		write: func(ctx context.Context, payload []byte) error {
			return c.Write(ctx, websocket.MessageText, payload)
		},
		closeWS: func(code websocket.StatusCode, reason string) {
			_ = c.Close(code, reason)
		},
	}
}

// ID returns the connection handle.
func (c *Conn) ID() string { return c.id }

// Send queues payload for the write pump. A client whose buffer is full is
// too slow to keep up and gets disconnected.
func (c *Conn) Send(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		log.Warn().Str("conn_id", c.id).Int("buffer", cap(c.send)).Msg("send buffer full, closing slow connection")
		c.close(websocket.StatusPolicyViolation, "slow consumer")
		return false
	}
}

// Done is closed once the connection is shutting down.
func (c *Conn) Done() <-chan struct{} { return c.done }

// close marks the connection done and closes the socket in the background.
// The close handshake can take seconds and callers may hold locks.
func (c *Conn) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		go c.closeWS(code, reason)
	})
}

func (c *Conn) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case payload := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := c.write(wctx, payload)
			cancel()
			if err != nil {
				log.Debug().Err(err).Str("conn_id", c.id).Msg("websocket write")
				c.close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}
