package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/muretro/internal/api/v1"
	"github.com/gosuda/muretro/internal/api/ws"
)

func registerAPIRoutes(api huma.API, boards v1.BoardReader, timers v1.TimerReader) {
	v1.RegisterBoardRoutes(api, boards, timers)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/", hub.ServeBoard)
	r.Get("/watch/{boardName}", hub.ServeWatch)
}
