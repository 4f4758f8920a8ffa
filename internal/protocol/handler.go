// Package protocol turns inbound board messages into Board Store mutations
// and broadcasts the result.
//
// Every board message maps to exactly one store mutation followed by exactly
// one broadcast. Messages are processed one at a time, so a mutation and the
// broadcast of its result are never interleaved with another message. The
// last mutation applied to a board wins.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/muretro/internal/board"
	"github.com/gosuda/muretro/internal/chat"
	"github.com/gosuda/muretro/internal/domain"
	"github.com/gosuda/muretro/internal/session"
	"github.com/gosuda/muretro/internal/timer"
)

// mutation applies one decoded message to the store and returns the
// resulting board.
type mutation func(h *Handler, connID string, env Envelope) (*domain.Board, error)

// Handler is the message-driven state machine shared by all connections.
type Handler struct {
	mu sync.Mutex

	store   *board.Store
	tracker *session.Tracker
	bc      *Broadcaster
	timers  *timer.Service
	rooms   *chat.Rooms

	mutations map[string]mutation
}

// NewHandler wires the handler to its collaborators.
func NewHandler(store *board.Store, tracker *session.Tracker, bc *Broadcaster, timers *timer.Service, rooms *chat.Rooms) *Handler {
	return &Handler{
		store:   store,
		tracker: tracker,
		bc:      bc,
		timers:  timers,
		rooms:   rooms,
		mutations: map[string]mutation{
			EventCreateBoard:        (*Handler).createBoard,
			EventUpdateBoard:        (*Handler).updateBoard,
			EventAddCard:            (*Handler).addCard,
			EventDeleteCard:         (*Handler).deleteCard,
			EventMoveCard:           (*Handler).moveCard,
			EventColumnNameChanged:  (*Handler).columnNameChanged,
			EventUpdateCardContent:  (*Handler).updateCardContent,
			EventRemoveColumn:       (*Handler).removeColumn,
			EventCreateColumn:       (*Handler).createColumn,
			EventChangeVotingStatus: (*Handler).changeVotingStatus,
			EventChangeBlurStatus:   (*Handler).changeBlurStatus,
			EventVoteCard:           (*Handler).voteCard,
		},
	}
}

// Handle processes one inbound frame from connID. On failure nothing is
// changed or broadcast; the sender alone receives an "exception" event and
// the error is returned for logging.
func (h *Handler) Handle(ctx context.Context, connID string, frame []byte) error {
	env, err := Decode(frame)
	if err != nil {
		h.reject(connID, "", err)
		return fmt.Errorf("protocol.Handler.Handle: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.dispatch(ctx, connID, env); err != nil {
		h.reject(connID, env.Event, err)
		return fmt.Errorf("protocol.Handler.Handle: %s: %w", env.Event, err)
	}
	return nil
}

// Disconnect forgets connID everywhere and re-broadcasts every board so the
// remaining participants see the updated participant lists.
func (h *Handler) Disconnect(ctx context.Context, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	affected := h.store.RemoveConnection(connID)
	h.rooms.Leave(connID)
	h.tracker.Unregister(connID)

	for _, b := range h.store.All() {
		if err := h.bc.Broadcast(ctx, b, "", false); err != nil {
			log.Error().Err(err).Str("board", b.Name).Msg("broadcast after disconnect")
		}
	}

	log.Info().
		Str("conn_id", connID).
		Strs("boards", affected).
		Msg("connection left")
}

// Reject sends an "exception" event to connID without touching any state.
// The transport uses it for frames it refuses before dispatch.
func (h *Handler) Reject(connID string, err error) {
	h.reject(connID, "", err)
}

func (h *Handler) dispatch(ctx context.Context, connID string, env Envelope) error {
	if apply, ok := h.mutations[env.Event]; ok {
		b, err := apply(h, connID, env)
		if err != nil {
			return err
		}
		exclude := excludeOriginator[env.Event]
		log.Debug().
			Str("event", env.Event).
			Str("board", b.Name).
			Str("conn_id", connID).
			Msg("mutation applied")
		return h.bc.Broadcast(ctx, b, connID, exclude)
	}

	switch env.Event {
	case EventStartTimerOnBoard:
		p, err := decodeData[TimerPayload](env)
		if err != nil {
			return err
		}
		return h.timers.Start(ctx, p.BoardName)
	case EventGetTimer:
		p, err := decodeData[TimerPayload](env)
		if err != nil {
			return err
		}
		return h.timers.Get(ctx, p.BoardName)
	case EventLogin:
		return h.login(connID, env)
	case EventChat:
		return h.chat(connID, env)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func (h *Handler) reject(connID, event string, err error) {
	msg := "request failed"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		msg = "board not found"
	case errors.Is(err, domain.ErrIndexOutOfRange):
		msg = "index out of range"
	case errors.Is(err, ErrUnknownEvent):
		msg = "unknown event"
	case errors.Is(err, ErrBadPayload):
		msg = "malformed message"
	case errors.Is(err, ErrRateLimited):
		msg = "too many messages"
	case errors.Is(err, chat.ErrTooManyRooms):
		msg = "too many rooms"
	}

	if sendErr := h.bc.SendTo(connID, EventException, ExceptionPayload{Event: event, Message: msg}); sendErr != nil {
		log.Error().Err(sendErr).Str("conn_id", connID).Msg("send exception")
	}
}

// ---------------------------------------------------------------------------
// Board mutations
// ---------------------------------------------------------------------------

func (h *Handler) createBoard(connID string, env Envelope) (*domain.Board, error) {
	p, err := decodeData[CreateBoardPayload](env)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: board name is required", ErrBadPayload)
	}

	b, created := h.store.CreateWithColumns(p.Name, p.OwnedBy, connID, p.Columns)
	log.Info().
		Str("board", b.Name).
		Str("username", p.OwnedBy).
		Bool("created", created).
		Int("participants", len(b.Participants)).
		Msg("board joined")
	return b, nil
}

func (h *Handler) updateBoard(_ string, env Envelope) (*domain.Board, error) {
	p, err := decodeData[UpdateBoardPayload](env)
	if err != nil {
		return nil, err
	}
	return h.store.ReplaceColumns(p.Name, p.Columns)
}

func (h *Handler) addCard(_ string, env Envelope) (*domain.Board, error) {
	p, err := decodeData[AddCardPayload](env)
	if err != nil {
		return nil, err
	}
	return h.store.AddCard(p.BoardName, p.ColumnIndex, p.Card)
}

func (h *Handler) deleteCard(_ string, env Envelope) (*domain.Board, error) {
	p, err := decodeData[DeleteCardPayload](env)
	if err != nil {
		return nil, err
	}
	return h.store.DeleteCard(p.BoardName, p.ColumnIndex, p.ID)
}

func (h *Handler) moveCard(_ string, env Envelope) (*domain.Board, error) {
	p, err := decodeData[MoveCardPayload](env)
	if err != nil {
		return nil, err
	}
	return h.store.MoveCard(p.BoardName, p.DragIndex, p.SourceColumnIndex, p.TargetColumnIndex)
}

func (h *Handler) columnNameChanged(_ string, env Envelope) (*domain.Board, error) {
	p, err := decodeData[ColumnNameChangedPayload](env)
	if err != nil {
		return nil, err
	}
	return h.store.RenameColumn(p.BoardName, p.ColumnIndex, p.Name)
}

func (h *Handler) updateCardContent(_ string, env Envelope) (*domain.Board, error) {
	p, err := decodeData[UpdateCardContentPayload](env)
	if err != nil {
		return nil, err
	}
	return h.store.UpdateCardContent(p.BoardName, p.ColumnIndex, p.CardIndex, p.Content, p.Image)
}

func (h *Handler) removeColumn(_ string, env Envelope) (*domain.Board, error) {
	p, err := decodeData[RemoveColumnPayload](env)
	if err != nil {
		return nil, err
	}
	return h.store.RemoveColumn(p.BoardName, p.ColumnIndex)
}

func (h *Handler) createColumn(_ string, env Envelope) (*domain.Board, error) {
	p, err := decodeData[CreateColumnPayload](env)
	if err != nil {
		return nil, err
	}
	return h.store.CreateColumn(p.BoardName, p.ColumnName)
}

func (h *Handler) changeVotingStatus(_ string, env Envelope) (*domain.Board, error) {
	p, err := decodeData[StatusPayload](env)
	if err != nil {
		return nil, err
	}
	return h.store.SetVoting(p.BoardName, p.State)
}

func (h *Handler) changeBlurStatus(_ string, env Envelope) (*domain.Board, error) {
	p, err := decodeData[StatusPayload](env)
	if err != nil {
		return nil, err
	}
	return h.store.SetBlur(p.BoardName, p.State)
}

func (h *Handler) voteCard(_ string, env Envelope) (*domain.Board, error) {
	p, err := decodeData[VoteCardPayload](env)
	if err != nil {
		return nil, err
	}
	delta := 1
	if p.Delta != nil {
		delta = *p.Delta
	}
	return h.store.VoteCard(p.BoardName, p.ColumnIndex, p.ID, delta)
}

// ---------------------------------------------------------------------------
// Chat
// ---------------------------------------------------------------------------

func (h *Handler) login(connID string, env Envelope) error {
	p, err := decodeData[LoginPayload](env)
	if err != nil {
		return err
	}

	history, err := h.rooms.Join(p.Room, connID)
	if err != nil {
		return err
	}
	for _, m := range history {
		if err := h.bc.SendTo(connID, EventChat, m); err != nil {
			return err
		}
	}

	log.Info().
		Str("room", p.Room).
		Str("username", p.Username).
		Int("history", len(history)).
		Msg("chat login")
	return nil
}

func (h *Handler) chat(connID string, env Envelope) error {
	p, err := decodeData[ChatPayload](env)
	if err != nil {
		return err
	}
	recipients := h.rooms.Post(connID, p)
	return h.bc.SendToMany(recipients, EventChat, p)
}
