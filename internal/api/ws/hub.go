package ws

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gosuda/muretro/internal/protocol"
	"github.com/gosuda/muretro/internal/session"
	redisstore "github.com/gosuda/muretro/internal/store/redis"
)

// Options configures the WebSocket transport.
type Options struct {
	// AllowedOrigins are full origins ("https://retro.example.com") or "*".
	AllowedOrigins    []string
	MaxMessageBytes   int64
	WriteTimeout      time.Duration
	SendBuffer        int
	MessagesPerSecond float64
	Burst             int
}

// Hub accepts board clients and hands their frames to the protocol handler.
type Hub struct {
	tracker *session.Tracker
	handler *protocol.Handler
	feed    *redisstore.PubSub // nil disables the watch stream
	opts    Options
	origins []string
}

// NewHub creates a new WebSocket hub. feed may be nil.
func NewHub(tracker *session.Tracker, handler *protocol.Handler, feed *redisstore.PubSub, opts Options) *Hub {
	return &Hub{
		tracker: tracker,
		handler: handler,
		feed:    feed,
		opts:    opts,
		origins: originPatterns(opts.AllowedOrigins),
	}
}

// ServeBoard handles a board client for its whole lifetime. Each connection
// gets a fresh handle; when it goes away the handle is removed from every
// board and the remaining participants are told.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	clearDeadlines(w)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(h.opts.MaxMessageBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := newConn(uuid.NewString(), conn, h.opts.SendBuffer, h.opts.WriteTimeout)
	h.tracker.Register(c)
	defer h.handler.Disconnect(context.WithoutCancel(ctx), c.ID())

	go c.writePump(ctx)

	log.Info().
		Str("conn_id", c.ID()).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket connected")

	limiter := rate.NewLimiter(rate.Limit(h.opts.MessagesPerSecond), h.opts.Burst)

	for {
		_, frame, readErr := conn.Read(ctx)
		if readErr != nil {
			logReadError(c.ID(), readErr)
			c.close(websocket.StatusNormalClosure, "")
			return
		}

		if !limiter.Allow() {
			log.Warn().Str("conn_id", c.ID()).Msg("websocket message rate exceeded")
			h.handler.Reject(c.ID(), protocol.ErrRateLimited)
			continue
		}

		if handleErr := h.handler.Handle(ctx, c.ID(), frame); handleErr != nil {
			log.Warn().Err(handleErr).Str("conn_id", c.ID()).Msg("websocket message rejected")
		}
	}
}

// ServeWatch streams the mirrored broadcasts of one board from the event
// feed. It is read-only: anything the client sends is ignored.
func (h *Hub) ServeWatch(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		http.Error(w, "event feed disabled", http.StatusNotImplemented)
		return
	}

	boardName := chi.URLParam(r, "boardName")
	if boardName == "" {
		http.Error(w, "missing board name", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before the upgrade so nothing published after the handshake is missed.
	messages, cleanup, err := h.feed.SubscribeBoard(ctx, boardName)
	if err != nil {
		log.Error().Err(err).Str("board", boardName).Msg("websocket subscribe")
		http.Error(w, "subscribe failed", http.StatusBadGateway)
		return
	}
	defer cleanup()

	clearDeadlines(w)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx = conn.CloseRead(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
			writeErr := conn.Write(wctx, websocket.MessageText, msg)
			wcancel()
			if writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}

// clearDeadlines lifts the HTTP server read and write timeouts, which would
// otherwise still apply to the hijacked connection.
func clearDeadlines(w http.ResponseWriter) {
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})
}

func logReadError(connID string, err error) {
	status := websocket.CloseStatus(err)
	switch {
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		log.Debug().Str("conn_id", connID).Msg("websocket closed by client")
	case status == websocket.StatusMessageTooBig:
		log.Warn().Str("conn_id", connID).Msg("websocket message too big")
	case errors.Is(err, context.Canceled):
		log.Debug().Str("conn_id", connID).Msg("websocket context canceled")
	default:
		log.Debug().Err(err).Str("conn_id", connID).Msg("websocket read")
	}
}

// originPatterns converts configured origins to the host patterns the
// websocket handshake matches against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			out = append(out, o)
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			out = append(out, o)
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
