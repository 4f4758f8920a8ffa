package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/muretro/internal/board"
	"github.com/gosuda/muretro/internal/domain"
)

type ListBoardsOutput struct {
	Body []board.Summary
}

type GetBoardInput struct {
	Name string `path:"name" doc:"Board name"`
}

// BoardExport is the shape a client saves and later feeds back through
// createBoard to rebuild the board.
type BoardExport struct {
	Name    string          `json:"name"`
	OwnedBy string          `json:"ownedBy"`
	Columns []domain.Column `json:"columns"`
}

type GetBoardOutput struct {
	Body *BoardExport
}

type TimerStatus struct {
	BoardName   string `json:"boardName"`
	SecondsLeft int    `json:"secondsLeft"`
	Active      bool   `json:"active"`
}

type GetTimerOutput struct {
	Body *TimerStatus
}

func RegisterBoardRoutes(api huma.API, boards BoardReader, timers TimerReader) {
	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/boards",
		Summary:     "List boards",
		Tags:        []string{"Boards"},
	}, func(_ context.Context, _ *struct{}) (*ListBoardsOutput, error) {
		return &ListBoardsOutput{Body: boards.List()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "export-board",
		Method:      http.MethodGet,
		Path:        "/boards/{name}",
		Summary:     "Export a board",
		Tags:        []string{"Boards"},
	}, func(_ context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		b, err := boards.FindByName(input.Name)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to get board", err)
		}

		return &GetBoardOutput{Body: &BoardExport{
			Name:    b.Name,
			OwnedBy: b.OwnedBy,
			Columns: b.Columns,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board-timer",
		Method:      http.MethodGet,
		Path:        "/boards/{name}/timer",
		Summary:     "Get the countdown of a board",
		Tags:        []string{"Boards"},
	}, func(_ context.Context, input *GetBoardInput) (*GetTimerOutput, error) {
		if _, err := boards.FindByName(input.Name); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to get board", err)
		}

		return &GetTimerOutput{Body: &TimerStatus{
			BoardName:   input.Name,
			SecondsLeft: timers.SecondsLeft(input.Name),
			Active:      timers.Active(input.Name),
		}}, nil
	})
}
