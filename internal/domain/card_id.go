package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/oklog/ulid/v2"
)

// CardID identifies a card within a column. Clients send either a JSON number
// (a millisecond timestamp) or a string; the original form is kept so the id
// round-trips unchanged.
type CardID struct {
	value   string
	numeric bool
}

// NewCardID returns a ULID-backed id. ULIDs sort by creation time and are
// monotonic within the process.
func NewCardID() CardID {
	return CardID{value: ulid.Make().String()}
}

func CardIDFromString(s string) CardID {
	return CardID{value: s}
}

func CardIDFromInt(n int64) CardID {
	return CardID{value: strconv.FormatInt(n, 10), numeric: true}
}

func (id CardID) String() string { return id.value }

func (id CardID) IsZero() bool { return id.value == "" }

func (id CardID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id *CardID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = CardID{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("domain.CardID.UnmarshalJSON: %w", err)
		}
		*id = CardID{value: s}
		return nil
	}

	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("domain.CardID.UnmarshalJSON: %q is neither a string nor a number", data)
	}
	*id = CardID{value: string(data), numeric: true}
	return nil
}
