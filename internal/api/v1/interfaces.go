package v1

import (
	"github.com/gosuda/muretro/internal/board"
	"github.com/gosuda/muretro/internal/domain"
)

// BoardReader abstracts read access to boards for handler testing.
// *board.Store satisfies this interface.
type BoardReader interface {
	List() []board.Summary
	FindByName(name string) (*domain.Board, error)
}

// TimerReader abstracts countdown lookups for handler testing.
// *timer.Service satisfies this interface.
type TimerReader interface {
	SecondsLeft(boardName string) int
	Active(boardName string) bool
}
