// Package chat keeps the side-channel chat rooms that run next to the boards.
package chat

import (
	"errors"
	"slices"
	"sync"
)

// DefaultRoom always exists. Connections that post without joining a room
// post here.
const DefaultRoom = "default"

// MaxRooms caps the number of rooms, the default room included.
const MaxRooms = 1024

// ErrTooManyRooms is returned by Join when a new room would exceed MaxRooms.
var ErrTooManyRooms = errors.New("chat: too many rooms")

// Message is one chat line.
type Message struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type room struct {
	conns   []string
	history []Message
}

// Rooms holds every chat room and its message history.
type Rooms struct {
	mu           sync.Mutex
	rooms        map[string]*room
	historyLimit int
}

// NewRooms creates the room set with the default room. historyLimit caps the
// number of messages kept per room; values below 1 keep no history.
func NewRooms(historyLimit int) *Rooms {
	return &Rooms{
		rooms:        map[string]*room{DefaultRoom: {}},
		historyLimit: max(historyLimit, 0),
	}
}

// Join adds handle to the named room, creating the room on first use, and
// returns the room's history so it can be replayed to the newcomer.
func (r *Rooms) Join(name, handle string) ([]Message, error) {
	if name == "" {
		name = DefaultRoom
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[name]
	if !ok {
		if len(r.rooms) >= MaxRooms {
			return nil, ErrTooManyRooms
		}
		rm = &room{}
		r.rooms[name] = rm
	}
	if !slices.Contains(rm.conns, handle) {
		rm.conns = append(rm.conns, handle)
	}
	return slices.Clone(rm.history), nil
}

// Post records msg in every room handle has joined, or in the default room
// when it joined none, and returns the handles that should receive it.
func (r *Rooms) Post(handle string, msg Message) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var targets []*room
	for _, rm := range r.rooms {
		if slices.Contains(rm.conns, handle) {
			targets = append(targets, rm)
		}
	}
	if len(targets) == 0 {
		targets = append(targets, r.rooms[DefaultRoom])
	}

	var recipients []string
	for _, rm := range targets {
		rm.history = append(rm.history, msg)
		if over := len(rm.history) - r.historyLimit; over > 0 {
			rm.history = slices.Delete(rm.history, 0, over)
		}
		for _, c := range rm.conns {
			if !slices.Contains(recipients, c) {
				recipients = append(recipients, c)
			}
		}
	}
	return recipients
}

// Leave removes handle from every room. A room other than the default one is
// dropped, history included, once nobody is left in it.
func (r *Rooms) Leave(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, rm := range r.rooms {
		rm.conns = slices.DeleteFunc(rm.conns, func(c string) bool { return c == handle })
		if len(rm.conns) == 0 && name != DefaultRoom {
			delete(r.rooms, name)
		}
	}
}

// Len returns the number of rooms.
func (r *Rooms) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// History returns a copy of a room's messages, oldest first.
func (r *Rooms) History(name string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[name]
	if !ok {
		return nil
	}
	return slices.Clone(rm.history)
}
