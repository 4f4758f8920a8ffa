// Package board holds the authoritative in-memory state of every board.
//
// All reads and writes go through a single mutex. Mutations validate their
// indices before touching anything, so a failed call leaves the board exactly
// as it was. Every mutation returns a deep copy of the resulting board taken
// under the same lock.
package board

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/muretro/internal/domain"
)

// Store owns all boards for the lifetime of the process.
type Store struct {
	mu     sync.RWMutex
	boards []*domain.Board
	byName map[string]*domain.Board
}

// Summary is a read-only overview of a board.
type Summary struct {
	Name         string `json:"name"`
	OwnedBy      string `json:"ownedBy"`
	Participants int    `json:"participants"`
	Columns      int    `json:"columns"`
	Cards        int    `json:"cards"`
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		byName: make(map[string]*domain.Board),
	}
}

// Create joins connHandle to the board called name, creating the board with
// the seed layout if it does not exist yet. created reports which happened.
func (s *Store) Create(name, ownerName, connHandle string) (b *domain.Board, created bool) {
	return s.CreateWithColumns(name, ownerName, connHandle, nil)
}

// CreateWithColumns behaves like Create, but a newly created board starts with
// columns instead of the seed layout. Used to rebuild an exported board.
// Existing boards ignore columns.
func (s *Store) CreateWithColumns(name, ownerName, connHandle string, columns []domain.Column) (*domain.Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant := domain.Participant{ConnectionHandle: connHandle, Username: ownerName}

	if b, ok := s.byName[name]; ok {
		b.Participants = append(b.Participants, participant)
		log.Debug().
			Str("board", name).
			Str("username", ownerName).
			Int("participants", len(b.Participants)).
			Msg("joined existing board")
		return b.Clone(), false
	}

	cols := seedColumns(ownerName)
	if len(columns) > 0 {
		cols = domain.CloneColumns(columns)
		normalizeCards(cols)
	}

	b := &domain.Board{
		Name:         name,
		OwnedBy:      ownerName,
		Participants: []domain.Participant{participant},
		Columns:      cols,
	}
	s.boards = append(s.boards, b)
	s.byName[name] = b

	log.Debug().
		Str("board", name).
		Str("owner", ownerName).
		Int("columns", len(cols)).
		Msg("created board")

	return b.Clone(), true
}

// FindByName returns a copy of the named board or domain.ErrNotFound.
func (s *Store) FindByName(name string) (*domain.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("board.Store.FindByName: board %q: %w", name, domain.ErrNotFound)
	}
	return b.Clone(), nil
}

// All returns copies of every board in creation order.
func (s *Store) All() []*domain.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Board, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, b.Clone())
	}
	return out
}

// List returns a summary of every board in creation order.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, Summary{
			Name:         b.Name,
			OwnedBy:      b.OwnedBy,
			Participants: len(b.Participants),
			Columns:      len(b.Columns),
			Cards:        b.CardCount(),
		})
	}
	return out
}

// Len returns the number of boards.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.boards)
}

// RemoveConnection drops connHandle from the participant list of every board.
// Membership is not indexed by connection, so every board is scanned. It
// returns the names of the boards the handle was removed from.
func (s *Store) RemoveConnection(connHandle string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected []string
	for _, b := range s.boards {
		kept := b.Participants[:0]
		for _, p := range b.Participants {
			if p.ConnectionHandle != connHandle {
				kept = append(kept, p)
			}
		}
		if len(kept) != len(b.Participants) {
			affected = append(affected, b.Name)
		}
		clear(b.Participants[len(kept):])
		b.Participants = kept
	}

	log.Debug().
		Str("conn_id", connHandle).
		Strs("boards", affected).
		Msg("removed connection from boards")

	return affected
}

// ReplaceColumns swaps the whole column list of a board.
func (s *Store) ReplaceColumns(name string, columns []domain.Column) (*domain.Board, error) {
	b, err := s.mutate(name, func(b *domain.Board) error {
		b.Columns = domain.CloneColumns(columns)
		normalizeCards(b.Columns)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("board.Store.ReplaceColumns: %w", err)
	}
	return b, nil
}

// AddCard inserts card at the head of a column. A card without an id gets a
// freshly generated one.
func (s *Store) AddCard(name string, columnIndex int, card domain.Card) (*domain.Board, error) {
	b, err := s.mutate(name, func(b *domain.Board) error {
		col, err := column(b, columnIndex)
		if err != nil {
			return err
		}
		normalizeCard(&card)
		col.Cards = append([]domain.Card{card}, col.Cards...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("board.Store.AddCard: %w", err)
	}
	return b, nil
}

// DeleteCard removes the cards with the given id from a column. An unknown id
// leaves the column unchanged.
func (s *Store) DeleteCard(name string, columnIndex int, id domain.CardID) (*domain.Board, error) {
	b, err := s.mutate(name, func(b *domain.Board) error {
		col, err := column(b, columnIndex)
		if err != nil {
			return err
		}
		kept := make([]domain.Card, 0, len(col.Cards))
		for _, c := range col.Cards {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		col.Cards = kept
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("board.Store.DeleteCard: %w", err)
	}
	return b, nil
}

// MoveCard takes the card at dragIndex of the source column and puts it at the
// head of the target column. The total number of cards is unchanged.
func (s *Store) MoveCard(name string, dragIndex, sourceColumnIndex, targetColumnIndex int) (*domain.Board, error) {
	b, err := s.mutate(name, func(b *domain.Board) error {
		src, err := column(b, sourceColumnIndex)
		if err != nil {
			return err
		}
		dst, err := column(b, targetColumnIndex)
		if err != nil {
			return err
		}
		if dragIndex < 0 || dragIndex >= len(src.Cards) {
			return fmt.Errorf("card %d of column %d: %w", dragIndex, sourceColumnIndex, domain.ErrIndexOutOfRange)
		}

		card := src.Cards[dragIndex]
		src.Cards = append(src.Cards[:dragIndex:dragIndex], src.Cards[dragIndex+1:]...)
		dst.Cards = append([]domain.Card{card}, dst.Cards...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("board.Store.MoveCard: %w", err)
	}
	return b, nil
}

// RenameColumn sets the name of a column.
func (s *Store) RenameColumn(name string, columnIndex int, columnName string) (*domain.Board, error) {
	b, err := s.mutate(name, func(b *domain.Board) error {
		col, err := column(b, columnIndex)
		if err != nil {
			return err
		}
		col.Name = columnName
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("board.Store.RenameColumn: %w", err)
	}
	return b, nil
}

// UpdateCardContent sets the content of a card. A nil image keeps the current one.
func (s *Store) UpdateCardContent(name string, columnIndex, cardIndex int, content string, image *string) (*domain.Board, error) {
	b, err := s.mutate(name, func(b *domain.Board) error {
		col, err := column(b, columnIndex)
		if err != nil {
			return err
		}
		if cardIndex < 0 || cardIndex >= len(col.Cards) {
			return fmt.Errorf("card %d of column %d: %w", cardIndex, columnIndex, domain.ErrIndexOutOfRange)
		}
		card := &col.Cards[cardIndex]
		card.Content = content
		if image != nil {
			card.Image = *image
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("board.Store.UpdateCardContent: %w", err)
	}
	return b, nil
}

// RemoveColumn deletes a column and its cards.
func (s *Store) RemoveColumn(name string, columnIndex int) (*domain.Board, error) {
	b, err := s.mutate(name, func(b *domain.Board) error {
		if _, err := column(b, columnIndex); err != nil {
			return err
		}
		b.Columns = append(b.Columns[:columnIndex:columnIndex], b.Columns[columnIndex+1:]...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("board.Store.RemoveColumn: %w", err)
	}
	return b, nil
}

// CreateColumn appends an empty column.
func (s *Store) CreateColumn(name, columnName string) (*domain.Board, error) {
	b, err := s.mutate(name, func(b *domain.Board) error {
		b.Columns = append(b.Columns, domain.Column{Name: columnName, Cards: []domain.Card{}})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("board.Store.CreateColumn: %w", err)
	}
	return b, nil
}

// SetVoting sets the voting flag on every column of the board.
func (s *Store) SetVoting(name string, state bool) (*domain.Board, error) {
	b, err := s.mutate(name, func(b *domain.Board) error {
		for i := range b.Columns {
			b.Columns[i].Voting = state
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("board.Store.SetVoting: %w", err)
	}
	return b, nil
}

// SetBlur sets the blurry flag on every column of the board.
func (s *Store) SetBlur(name string, state bool) (*domain.Board, error) {
	b, err := s.mutate(name, func(b *domain.Board) error {
		for i := range b.Columns {
			b.Columns[i].Blurry = state
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("board.Store.SetBlur: %w", err)
	}
	return b, nil
}

// VoteCard adds delta to the votes of the card with the given id. Votes never
// drop below zero.
func (s *Store) VoteCard(name string, columnIndex int, id domain.CardID, delta int) (*domain.Board, error) {
	b, err := s.mutate(name, func(b *domain.Board) error {
		col, err := column(b, columnIndex)
		if err != nil {
			return err
		}
		for i := range col.Cards {
			if col.Cards[i].ID == id {
				col.Cards[i].Votes = max(0, col.Cards[i].Votes+delta)
				return nil
			}
		}
		return fmt.Errorf("card %s in column %d: %w", id, columnIndex, domain.ErrNotFound)
	})
	if err != nil {
		return nil, fmt.Errorf("board.Store.VoteCard: %w", err)
	}
	return b, nil
}

// mutate runs fn against the live board under the write lock and returns a
// copy of the result. fn must not modify the board before it has validated
// its input.
func (s *Store) mutate(name string, fn func(b *domain.Board) error) (*domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("board %q: %w", name, domain.ErrNotFound)
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	return b.Clone(), nil
}

func column(b *domain.Board, index int) (*domain.Column, error) {
	if index < 0 || index >= len(b.Columns) {
		return nil, fmt.Errorf("column %d of %d: %w", index, len(b.Columns), domain.ErrIndexOutOfRange)
	}
	return &b.Columns[index], nil
}

// normalizeCard gives an id-less card a fresh id and clamps negative votes.
func normalizeCard(c *domain.Card) {
	if c.ID.IsZero() {
		c.ID = domain.NewCardID()
	}
	c.Votes = max(0, c.Votes)
}

func normalizeCards(cols []domain.Column) {
	for i := range cols {
		for j := range cols[i].Cards {
			normalizeCard(&cols[i].Cards[j])
		}
	}
}
