package board

import "github.com/gosuda/muretro/internal/domain"

const (
	seedColumnName  = "Example column"
	seedSecondName  = "Column 2"
	seedCardImage   = "https://mir-s3-cdn-cf.behance.net/project_modules/hd/5eeea355389655.59822ff824b72.gif"
	seedCardContent = "This is your first card. You can move it around, " +
		"edit it, and vote on it. You may also add more cards and columns. " +
		"Deletion is also possible."
)

// seedColumns returns the starting layout of a fresh board: one example column
// holding one example card, and an empty second column.
func seedColumns(owner string) []domain.Column {
	return []domain.Column{
		{
			Name: seedColumnName,
			Cards: []domain.Card{
				{
					ID:      domain.NewCardID(),
					OwnedBy: owner,
					Content: seedCardContent,
					Image:   seedCardImage,
				},
			},
		},
		{
			Name:  seedSecondName,
			Cards: []domain.Card{},
		},
	}
}
