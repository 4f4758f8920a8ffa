package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/muretro/internal/domain"
)

// ---------------------------------------------------------------------------
// 1. CardID JSON round trip keeps the client's representation.
// ---------------------------------------------------------------------------

func TestCardID_JSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
		str  string
	}{
		{name: "millisecond timestamp", in: `1717171717171`, want: `1717171717171`, str: "1717171717171"},
		{name: "string id", in: `"1"`, want: `"1"`, str: "1"},
		{name: "ulid string", in: `"01HZX3J3N4S7Q2V1W0Y5Z6A7B8"`, want: `"01HZX3J3N4S7Q2V1W0Y5Z6A7B8"`, str: "01HZX3J3N4S7Q2V1W0Y5Z6A7B8"},
		{name: "padded number", in: ` 42 `, want: `42`, str: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var id domain.CardID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
			assert.Equal(t, tt.str, id.String())

			out, err := json.Marshal(id)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(out))
		})
	}
}

func TestCardID_NullIsZero(t *testing.T) {
	t.Parallel()

	var card domain.Card
	require.NoError(t, json.Unmarshal([]byte(`{"id":null,"content":"x"}`), &card))
	assert.True(t, card.ID.IsZero())
}

func TestCardID_RejectsGarbage(t *testing.T) {
	t.Parallel()

	var id domain.CardID
	err := json.Unmarshal([]byte(`{"nested":true}`), &id)
	require.Error(t, err)
}

func TestCardID_NumberAndStringAreDistinct(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, domain.CardIDFromInt(7), domain.CardIDFromString("7"))
	assert.Equal(t, domain.CardIDFromInt(7), domain.CardIDFromInt(7))
}

func TestNewCardID_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[domain.CardID]struct{})
	for range 1000 {
		id := domain.NewCardID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

// ---------------------------------------------------------------------------
// 2. Board helpers.
// ---------------------------------------------------------------------------

func TestBoard_ParticipantViews(t *testing.T) {
	t.Parallel()

	b := &domain.Board{
		Name:    "standup",
		OwnedBy: "alice@x.com",
		Participants: []domain.Participant{
			{ConnectionHandle: "c1", Username: "alice@x.com"},
			{ConnectionHandle: "c2", Username: "bob@x.com"},
			{ConnectionHandle: "c3", Username: "alice@x.com"},
		},
	}

	views := b.ParticipantViews()
	require.Len(t, views, 3)
	assert.Equal(t, domain.ParticipantView{Username: "alice@x.com", IsAdminOfBoard: true}, views[0])
	assert.Equal(t, domain.ParticipantView{Username: "bob@x.com", IsAdminOfBoard: false}, views[1])
	assert.True(t, views[2].IsAdminOfBoard, "same name as owner is admin regardless of join order")
}

func TestBoard_CloneIsDeep(t *testing.T) {
	t.Parallel()

	b := &domain.Board{
		Name: "retro",
		Columns: []domain.Column{
			{Name: "Good", Cards: []domain.Card{{ID: domain.CardIDFromString("a"), Content: "x"}}},
		},
		Participants: []domain.Participant{{ConnectionHandle: "c1", Username: "u"}},
	}

	c := b.Clone()
	c.Columns[0].Name = "Bad"
	c.Columns[0].Cards[0].Content = "changed"
	c.Participants[0].Username = "other"

	assert.Equal(t, "Good", b.Columns[0].Name)
	assert.Equal(t, "x", b.Columns[0].Cards[0].Content)
	assert.Equal(t, "u", b.Participants[0].Username)
	assert.Equal(t, 1, c.CardCount())
}

func TestBoard_JSONHidesParticipants(t *testing.T) {
	t.Parallel()

	b := &domain.Board{
		Name:         "retro",
		OwnedBy:      "alice",
		Participants: []domain.Participant{{ConnectionHandle: "secret", Username: "alice"}},
		Columns:      domain.CloneColumns(nil),
	}

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"retro","ownedBy":"alice","columns":[]}`, string(out))
}
