package domain

// Board is a named retrospective document. Name is the unique key and never
// changes after creation.
type Board struct {
	Name         string        `json:"name"`
	OwnedBy      string        `json:"ownedBy"`
	Participants []Participant `json:"-"`
	Columns      []Column      `json:"columns"`
}

// Participant is a live connection joined to a board. The connection itself is
// owned by the transport; only its handle is kept here.
type Participant struct {
	ConnectionHandle string `json:"-"`
	Username         string `json:"username"`
}

// ParticipantView is the outbound shape of a participant.
type ParticipantView struct {
	Username       string `json:"username"`
	IsAdminOfBoard bool   `json:"isAdminOfBoard"`
}

type Column struct {
	Name   string `json:"name"`
	Voting bool   `json:"voting"`
	Blurry bool   `json:"blurry"`
	Cards  []Card `json:"cards"`
}

type Card struct {
	ID      CardID `json:"id"`
	OwnedBy string `json:"ownedBy"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
	Votes   int    `json:"votes"`
}

// IsAdmin reports whether username owns the board.
func (b *Board) IsAdmin(username string) bool {
	return username == b.OwnedBy
}

// ParticipantViews returns one entry per participant in join order. The admin
// flag is evaluated per entry against the board owner.
func (b *Board) ParticipantViews() []ParticipantView {
	views := make([]ParticipantView, 0, len(b.Participants))
	for _, p := range b.Participants {
		views = append(views, ParticipantView{
			Username:       p.Username,
			IsAdminOfBoard: b.IsAdmin(p.Username),
		})
	}
	return views
}

// CardCount returns the total number of cards across all columns.
func (b *Board) CardCount() int {
	n := 0
	for _, c := range b.Columns {
		n += len(c.Cards)
	}
	return n
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	out := &Board{
		Name:         b.Name,
		OwnedBy:      b.OwnedBy,
		Participants: append([]Participant(nil), b.Participants...),
		Columns:      CloneColumns(b.Columns),
	}
	if out.Participants == nil {
		out.Participants = []Participant{}
	}
	return out
}

// CloneColumns deep-copies a column list. A nil input yields an empty, non-nil
// slice so it encodes as [] rather than null.
func CloneColumns(columns []Column) []Column {
	out := make([]Column, len(columns))
	for i, c := range columns {
		out[i] = c
		out[i].Cards = append(make([]Card, 0, len(c.Cards)), c.Cards...)
	}
	return out
}
