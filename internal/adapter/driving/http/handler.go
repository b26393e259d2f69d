package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/peerdrop/roulette/internal/core/service"
)

type Handler struct {
	Matchmaker *service.Matchmaker
}

func NewHandler(matchmaker *service.Matchmaker) *Handler {
	return &Handler{
		Matchmaker: matchmaker,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	fs := http.FileServer(http.Dir("./static"))
	r.Handle("/*", fs)

	r.Get("/health", h.Health)
	r.Get("/ws", h.ServeWS)

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
