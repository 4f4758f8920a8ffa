package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gosuda/muretro/internal/chat"
	"github.com/gosuda/muretro/internal/domain"
)

// Inbound board mutations.
const (
	EventCreateBoard        = "createBoard"
	EventUpdateBoard        = "updateBoard"
	EventAddCard            = "addCard"
	EventDeleteCard         = "deleteCard"
	EventMoveCard           = "moveCard"
	EventColumnNameChanged  = "columnNameChanged"
	EventUpdateCardContent  = "updateCardContent"
	EventRemoveColumn       = "removeColumn"
	EventCreateColumn       = "createColumn"
	EventChangeVotingStatus = "changeVotingStatus"
	EventChangeBlurStatus   = "changeBlurStatus"
	EventVoteCard           = "voteCard"
)

// Inbound timer and chat messages.
const (
	EventStartTimerOnBoard = "startTimerOnBoard"
	EventGetTimer          = "getTimer"
	EventLogin             = "login"
	EventChat              = "events"
)

// Outbound events.
const (
	EventColumnsUpdated      = "columnsUpdated"
	EventParticipantsUpdated = "participantsUpdated"
	EventException           = "exception"
)

var (
	ErrUnknownEvent = errors.New("protocol: unknown event")
	ErrBadPayload   = errors.New("protocol: bad payload")
	ErrRateLimited  = errors.New("protocol: rate limited")
)

// excludeOriginator says, per mutation kind, whether the connection that sent
// the mutation is left out of the resulting broadcast. Kinds that the client
// applies locally before sending are excluded so the sender does not apply
// them twice.
var excludeOriginator = map[string]bool{
	EventCreateBoard:        false,
	EventUpdateBoard:        true,
	EventAddCard:            false,
	EventDeleteCard:         true,
	EventMoveCard:           false,
	EventColumnNameChanged:  true,
	EventUpdateCardContent:  true,
	EventRemoveColumn:       true,
	EventCreateColumn:       true,
	EventChangeVotingStatus: false,
	EventChangeBlurStatus:   false,
	EventVoteCard:           false,
}

// ExcludesOriginator reports the broadcast policy of a mutation kind. The
// second result is false for kinds that are not board mutations.
func ExcludesOriginator(event string) (exclude, ok bool) {
	exclude, ok = excludeOriginator[event]
	return exclude, ok
}

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode builds an outbound frame.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("protocol.Encode: %s: %w", event, err)
	}
	out, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("protocol.Encode: %s: %w", event, err)
	}
	return out, nil
}

// Decode parses an inbound frame.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", ErrBadPayload)
	}
	return env, nil
}

func decodeData[T any](env Envelope) (T, error) {
	var v T
	if len(env.Data) == 0 {
		return v, fmt.Errorf("%w: %s: missing data", ErrBadPayload, env.Event)
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", ErrBadPayload, env.Event, err)
	}
	return v, nil
}

// CreateBoardPayload joins or creates a board. Columns, when present, seed a
// newly created board (import of an exported board).
type CreateBoardPayload struct {
	Name    string          `json:"name"`
	OwnedBy string          `json:"ownedBy"`
	Columns []domain.Column `json:"columns,omitempty"`
}

type UpdateBoardPayload struct {
	Name    string          `json:"name"`
	Columns []domain.Column `json:"columns"`
}

type AddCardPayload struct {
	BoardName   string      `json:"boardName"`
	ColumnIndex int         `json:"columnIndex"`
	Card        domain.Card `json:"card"`
}

type DeleteCardPayload struct {
	BoardName   string        `json:"boardName"`
	ColumnIndex int           `json:"columnIndex"`
	ID          domain.CardID `json:"id"`
}

type MoveCardPayload struct {
	BoardName         string `json:"boardName"`
	DragIndex         int    `json:"dragIndex"`
	SourceColumnIndex int    `json:"sourceColumnIndex"`
	TargetColumnIndex int    `json:"targetColumnIndex"`
}

type ColumnNameChangedPayload struct {
	BoardName   string `json:"boardName"`
	ColumnIndex int    `json:"columnIndex"`
	Name        string `json:"name"`
}

// UpdateCardContentPayload edits a card. A missing image keeps the current one.
type UpdateCardContentPayload struct {
	BoardName   string  `json:"boardName"`
	ColumnIndex int     `json:"columnIndex"`
	CardIndex   int     `json:"cardIndex"`
	Content     string  `json:"content"`
	Image       *string `json:"image,omitempty"`
}

type RemoveColumnPayload struct {
	BoardName   string `json:"boardName"`
	ColumnIndex int    `json:"columnIndex"`
}

type CreateColumnPayload struct {
	BoardName  string `json:"boardName"`
	ColumnName string `json:"columnName"`
}

// StatusPayload toggles a board-wide column flag (voting or blur).
type StatusPayload struct {
	BoardName string `json:"boardName"`
	State     bool   `json:"state"`
}

// VoteCardPayload adjusts a card's votes. Delta defaults to +1.
type VoteCardPayload struct {
	BoardName   string        `json:"boardName"`
	ColumnIndex int           `json:"columnIndex"`
	ID          domain.CardID `json:"id"`
	Delta       *int          `json:"delta,omitempty"`
}

type TimerPayload struct {
	BoardName string `json:"boardName"`
}

type LoginPayload struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

// ExceptionPayload is sent privately to a connection whose message failed.
type ExceptionPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

// ChatPayload is the inbound and outbound shape of a chat line.
type ChatPayload = chat.Message
