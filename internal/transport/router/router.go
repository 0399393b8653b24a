package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/nba-highlights/frame-splitter/internal/transport/handler"
)

func NewRouter(h *handler.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/split-full-match-video", h.SplitFullMatchVideo)
	r.Get("/split-jobs/{jobKey}", h.JobStatus)
	r.Get("/hello-world", h.HelloWorld)

	return r
}
