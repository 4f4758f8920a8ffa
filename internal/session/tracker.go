// Package session tracks live connections by their opaque handle.
//
// Board membership is not stored here: each board keeps its own participant
// list. The tracker only answers "is this handle still connected, and how do I
// reach it", which is what broadcasting needs.
package session

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/muretro/internal/domain"
)

// Sender is one live connection as seen by the protocol layer.
type Sender interface {
	// ID returns the connection handle.
	ID() string
	// Send enqueues payload without blocking. It returns false when the
	// payload could not be queued.
	Send(payload []byte) bool
}

// Tracker is a concurrency-safe registry of live connections.
type Tracker struct {
	mu    sync.RWMutex
	conns map[string]Sender
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{conns: make(map[string]Sender)}
}

// Register adds a connection. Registering the same handle again replaces it.
func (t *Tracker) Register(s Sender) {
	t.mu.Lock()
	t.conns[s.ID()] = s
	n := len(t.conns)
	t.mu.Unlock()

	log.Debug().Str("conn_id", s.ID()).Int("connections", n).Msg("connection registered")
}

// Unregister removes a connection. Unknown handles are ignored.
func (t *Tracker) Unregister(id string) {
	t.mu.Lock()
	_, ok := t.conns[id]
	delete(t.conns, id)
	n := len(t.conns)
	t.mu.Unlock()

	if ok {
		log.Debug().Str("conn_id", id).Int("connections", n).Msg("connection unregistered")
	}
}

// Get returns the connection registered under id.
func (t *Tracker) Get(id string) (Sender, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.conns[id]
	return s, ok
}

// Len returns the number of live connections.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}

// Deliver sends payload to every live participant except the one whose handle
// equals exclude (pass "" to exclude nobody). A handle that joined a board more
// than once still gets a single copy. It returns the number of connections the
// payload was queued for.
func (t *Tracker) Deliver(participants []domain.Participant, exclude string, payload []byte) int {
	return t.DeliverTo(handles(participants), exclude, payload)
}

// DeliverTo is Deliver for a plain list of handles.
func (t *Tracker) DeliverTo(ids []string, exclude string, payload []byte) int {
	t.mu.RLock()
	targets := make([]Sender, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == exclude {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if s, ok := t.conns[id]; ok {
			targets = append(targets, s)
		}
	}
	t.mu.RUnlock()

	sent := 0
	for _, s := range targets {
		if s.Send(payload) {
			sent++
			continue
		}
		log.Warn().Str("conn_id", s.ID()).Msg("dropping message for connection")
	}
	return sent
}

func handles(participants []domain.Participant) []string {
	out := make([]string, len(participants))
	for i, p := range participants {
		out[i] = p.ConnectionHandle
	}
	return out
}
