// Package timer runs the admin-triggered countdown of each board.
//
// There is one countdown per board. Clients poll for the remaining time; the
// server never ticks. A one-shot cleanup removes the entry when the countdown
// has run out.
package timer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/muretro/internal/domain"
)

// DefaultDuration is the length of a board countdown.
const DefaultDuration = 2 * time.Minute

// Outbound event names.
const (
	EventTimer    = "timer"
	EventNewTimer = "newTimer"
)

// Snapshot is the payload pushed to participants.
type Snapshot struct {
	SecondsLeft int    `json:"secondsLeft"`
	BoardName   string `json:"boardName"`
}

// Notifier pushes an event to every participant of a board. It returns an
// error wrapping domain.ErrNotFound when the board does not exist.
type Notifier interface {
	NotifyBoard(ctx context.Context, boardName, event string, payload any) error
}

type entry struct {
	start   time.Time
	gen     uint64
	cleanup clockwork.Timer
}

// Service owns the countdown of every board.
type Service struct {
	notifier Notifier
	clock    clockwork.Clock
	duration time.Duration

	mu      sync.Mutex
	timers  map[string]*entry
	nextGen uint64
}

// NewService creates a Service. A nil clock means the real clock; a
// non-positive duration means DefaultDuration.
func NewService(notifier Notifier, clock clockwork.Clock, duration time.Duration) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Service{
		notifier: notifier,
		clock:    clock,
		duration: duration,
		timers:   make(map[string]*entry),
	}
}

// Duration returns the countdown length.
func (s *Service) Duration() time.Duration { return s.duration }

// Start (re)starts the countdown of a board and pushes a "timer" snapshot to
// its participants. A running countdown is replaced, not stacked.
func (s *Service) Start(ctx context.Context, boardName string) error {
	gen := s.arm(boardName)

	snap := Snapshot{SecondsLeft: s.SecondsLeft(boardName), BoardName: boardName}
	if err := s.notifier.NotifyBoard(ctx, boardName, EventTimer, snap); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.expire(boardName, gen)
		}
		return fmt.Errorf("timer.Service.Start: %w", err)
	}

	log.Info().
		Str("board", boardName).
		Dur("duration", s.duration).
		Msg("timer started")
	return nil
}

// Get pushes a "newTimer" snapshot with the remaining seconds to every
// participant of the board.
func (s *Service) Get(ctx context.Context, boardName string) error {
	snap := Snapshot{SecondsLeft: s.SecondsLeft(boardName), BoardName: boardName}
	if err := s.notifier.NotifyBoard(ctx, boardName, EventNewTimer, snap); err != nil {
		return fmt.Errorf("timer.Service.Get: %w", err)
	}

	log.Debug().
		Str("board", boardName).
		Int("seconds_left", snap.SecondsLeft).
		Msg("timer polled")
	return nil
}

// SecondsLeft returns the whole seconds remaining on a board's countdown,
// rounded to the nearest second. No countdown means zero.
func (s *Service) SecondsLeft(boardName string) int {
	s.mu.Lock()
	e, ok := s.timers[boardName]
	s.mu.Unlock()
	if !ok {
		return 0
	}

	left := e.start.Add(s.duration).Sub(s.clock.Now())
	return max(0, int(math.Round(left.Seconds())))
}

// Active reports whether a countdown entry exists for the board.
func (s *Service) Active(boardName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[boardName]
	return ok
}

// Stop cancels every pending cleanup and forgets all countdowns.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, e := range s.timers {
		e.cleanup.Stop()
		delete(s.timers, name)
	}
}

// arm installs a fresh countdown for boardName and returns its generation.
func (s *Service) arm(boardName string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[boardName]; ok {
		prev.cleanup.Stop()
		log.Debug().Str("board", boardName).Msg("replaced running timer")
	}

	s.nextGen++
	gen := s.nextGen
	s.timers[boardName] = &entry{
		start: s.clock.Now(),
		gen:   gen,
		cleanup: s.clock.AfterFunc(s.duration, func() {
			s.expire(boardName, gen)
		}),
	}
	return gen
}

// expire removes the countdown of boardName if it still belongs to gen. A
// cleanup scheduled for an older countdown therefore never removes a newer one.
func (s *Service) expire(boardName string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[boardName]
	if !ok || e.gen != gen {
		return
	}
	e.cleanup.Stop()
	delete(s.timers, boardName)
	log.Info().Str("board", boardName).Msg("timer ended")
}
