package v1_test

import (
	"github.com/gosuda/muretro/internal/board"
	"github.com/gosuda/muretro/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock BoardReader
// ---------------------------------------------------------------------------

type mockBoardReader struct {
	listFunc       func() []board.Summary
	findByNameFunc func(name string) (*domain.Board, error)
}

func (m *mockBoardReader) List() []board.Summary {
	return m.listFunc()
}

func (m *mockBoardReader) FindByName(name string) (*domain.Board, error) {
	return m.findByNameFunc(name)
}

// ---------------------------------------------------------------------------
// Mock TimerReader
// ---------------------------------------------------------------------------

type mockTimerReader struct {
	secondsLeftFunc func(boardName string) int
	activeFunc      func(boardName string) bool
}

func (m *mockTimerReader) SecondsLeft(boardName string) int {
	return m.secondsLeftFunc(boardName)
}

func (m *mockTimerReader) Active(boardName string) bool {
	return m.activeFunc(boardName)
}
