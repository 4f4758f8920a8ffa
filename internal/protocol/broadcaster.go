package protocol

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/muretro/internal/board"
	"github.com/gosuda/muretro/internal/domain"
	"github.com/gosuda/muretro/internal/session"
)

// Publisher mirrors board frames to an external feed.
type Publisher interface {
	PublishBoard(ctx context.Context, boardName string, payload []byte) error
}

// feedBuffer is the number of frames queued for the event feed. Frames
// arriving while the queue is full are dropped.
const feedBuffer = 1024

type feedFrame struct {
	board   string
	payload []byte
}

// Broadcaster fans frames out to the participants of a board.
//
// Frames for the event feed are queued and published by a relay goroutine,
// so a slow or unreachable feed never holds up delivery to participants.
type Broadcaster struct {
	store   *board.Store
	tracker *session.Tracker

	feed    Publisher // nil when no feed is configured
	queue   chan feedFrame
	stop    context.CancelFunc
	stopped chan struct{}
}

// NewBroadcaster creates a Broadcaster. feed may be nil; otherwise the relay
// runs until Close.
func NewBroadcaster(store *board.Store, tracker *session.Tracker, feed Publisher) *Broadcaster {
	bc := &Broadcaster{store: store, tracker: tracker, feed: feed}
	if feed == nil {
		return bc
	}

	ctx, cancel := context.WithCancel(context.Background())
	bc.queue = make(chan feedFrame, feedBuffer)
	bc.stop = cancel
	bc.stopped = make(chan struct{})
	go bc.relay(ctx)
	return bc
}

// Close stops the feed relay and waits for it to exit. Queued frames are
// discarded. Safe to call more than once.
func (bc *Broadcaster) Close() {
	if bc.stop == nil {
		return
	}
	bc.stop()
	<-bc.stopped
}

// Broadcast sends the full column list and the participant list of b to each
// of its participants. When excludeOriginator is set, the connection
// originator is skipped.
func (bc *Broadcaster) Broadcast(_ context.Context, b *domain.Board, originator string, excludeOriginator bool) error {
	columns, err := Encode(EventColumnsUpdated, b.Columns)
	if err != nil {
		return fmt.Errorf("protocol.Broadcaster.Broadcast: %w", err)
	}
	participants, err := Encode(EventParticipantsUpdated, b.ParticipantViews())
	if err != nil {
		return fmt.Errorf("protocol.Broadcaster.Broadcast: %w", err)
	}

	skip := ""
	if excludeOriginator {
		skip = originator
	}

	sent := bc.tracker.Deliver(b.Participants, skip, columns)
	bc.tracker.Deliver(b.Participants, skip, participants)

	bc.publish(b.Name, columns, participants)

	log.Debug().
		Str("board", b.Name).
		Int("participants", len(b.Participants)).
		Int("delivered", sent).
		Bool("exclude_originator", excludeOriginator).
		Msg("board broadcast")
	return nil
}

// NotifyBoard sends one event to every participant of the named board.
func (bc *Broadcaster) NotifyBoard(_ context.Context, boardName, event string, payload any) error {
	b, err := bc.store.FindByName(boardName)
	if err != nil {
		return fmt.Errorf("protocol.Broadcaster.NotifyBoard: %w", err)
	}

	frame, err := Encode(event, payload)
	if err != nil {
		return fmt.Errorf("protocol.Broadcaster.NotifyBoard: %w", err)
	}

	bc.tracker.Deliver(b.Participants, "", frame)
	bc.publish(boardName, frame)
	return nil
}

// SendTo sends one event to a single connection.
func (bc *Broadcaster) SendTo(connID, event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return fmt.Errorf("protocol.Broadcaster.SendTo: %w", err)
	}
	bc.tracker.DeliverTo([]string{connID}, "", frame)
	return nil
}

// SendToMany sends one event to each listed connection.
func (bc *Broadcaster) SendToMany(connIDs []string, event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return fmt.Errorf("protocol.Broadcaster.SendToMany: %w", err)
	}
	bc.tracker.DeliverTo(connIDs, "", frame)
	return nil
}

// publish queues frames for the feed without blocking.
func (bc *Broadcaster) publish(boardName string, frames ...[]byte) {
	if bc.queue == nil {
		return
	}
	for _, f := range frames {
		select {
		case bc.queue <- feedFrame{board: boardName, payload: f}:
		default:
			log.Warn().Str("board", boardName).Int("buffer", cap(bc.queue)).Msg("event feed queue full, dropping frame")
		}
	}
}

func (bc *Broadcaster) relay(ctx context.Context) {
	defer close(bc.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-bc.queue:
			if err := bc.feed.PublishBoard(ctx, f.board, f.payload); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Str("board", f.board).Msg("event feed publish failed")
			}
		}
	}
}
