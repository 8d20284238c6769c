package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/ws"
)

func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(a.hub, a.log))

	r.Post("/api/game/create", a.createRoom)
	r.Post("/api/game/join", a.joinRoom)
	r.Get("/api/game/players", a.players)
	r.Get("/api/game/state", a.state)
	r.Get("/api/quiz/all-questions", a.allQuestions)
	r.Get("/api/game/{roomCode}", func(w http.ResponseWriter, req *http.Request) {
		a.roomInfo(w, req, chi.URLParam(req, "roomCode"))
	})
	r.Get("/api/game/{roomCode}/qr", func(w http.ResponseWriter, req *http.Request) {
		a.roomQR(w, req, chi.URLParam(req, "roomCode"))
	})

	// Token-bearing routes
	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Post("/api/game/answer", a.answer)
		r.Post("/api/game/next", a.next)
		r.Post("/api/game/rooms/{roomCode}/disband", func(w http.ResponseWriter, req *http.Request) {
			a.disband(w, req, chi.URLParam(req, "roomCode"))
		})
		r.Post("/api/game/rooms/{roomCode}/leave", func(w http.ResponseWriter, req *http.Request) {
			a.leave(w, req, chi.URLParam(req, "roomCode"))
		})
	})

	return r
}
